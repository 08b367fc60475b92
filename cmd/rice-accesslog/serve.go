package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ricesearch/rice-accesslog/internal/config"
	"github.com/ricesearch/rice-accesslog/internal/pkg/logger"
	"github.com/ricesearch/rice-accesslog/internal/server"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the search server. Every request is written to the access log
configured by access_log.output (stdout, stderr, or a file path).

Examples:
  rice-accesslog serve
  rice-accesslog serve --port 9090 --access-log /var/log/rice/access.log
  rice-accesslog serve -c config.yaml`,
		RunE: runServe,
	}

	cmd.Flags().IntP("port", "p", 8080, "HTTP server port")
	cmd.Flags().String("host", "0.0.0.0", "HTTP server host")
	cmd.Flags().String("access-log", "", "access log output (overrides config)")
	cmd.Flags().String("documents", "", "YAML documents file (overrides config)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info("Starting rice-accesslog",
		"version", version,
		"addr", cfg.Address(),
		"access_log", cfg.AccessLog.Output,
	)

	srv, err := server.New(*cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutdown signal received")
		return srv.Stop(context.Background())
	})

	return g.Wait()
}

// loadConfig loads the config file named by --config and applies the
// command line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Log.Level = "debug"
	}
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("host") {
		cfg.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("access-log") {
		cfg.AccessLog.Output, _ = cmd.Flags().GetString("access-log")
	}
	if cmd.Flags().Changed("documents") {
		cfg.Search.DocumentsFile, _ = cmd.Flags().GetString("documents")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
