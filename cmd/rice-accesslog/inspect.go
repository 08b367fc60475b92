package main

import (
	"github.com/spf13/cobra"

	"github.com/ricesearch/rice-accesslog/internal/inspect"
)

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [file...]",
		Short: "Summarize JSON access log files",
		Long: `Summarize access log files: status codes, searches, mean coverage and
degraded searches by reason. Files ending in .gz or .zst are decompressed.
Reads standard input when no file is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := inspect.New()

			if len(args) == 0 {
				sum, err := in.Summarize(cmd.InOrStdin())
				if err != nil {
					return err
				}
				return sum.Print(cmd.OutOrStdout())
			}

			total := inspect.NewSummary()
			for _, path := range args {
				sum, err := in.SummarizeFile(path)
				if err != nil {
					return err
				}
				total.Merge(sum)
			}
			return total.Print(cmd.OutOrStdout())
		},
	}
}
