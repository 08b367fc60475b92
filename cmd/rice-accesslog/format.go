package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ricesearch/rice-accesslog/internal/accesslog"
)

func formatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "format [file]",
		Short: "Render YAML entry fixtures as JSON access log lines",
		Long: `Read access log entries described in YAML and print one JSON line per
entry. Reads standard input when no file is given.

Example input:
  - ip: 152.200.54.243
    time_ms: 920880005023
    duration_ms: 122
    code: 200
    method: GET
    query: query=test
    search:
      total_hits: 1234
      coverage: {docs: 100, active: 100}`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return formatEntries(in, cmd.OutOrStdout())
		},
	}
}

type entryFixture struct {
	IP           string             `yaml:"ip"`
	RemoteAddr   string             `yaml:"remote_addr"`
	RemotePort   int                `yaml:"remote_port"`
	TimeMillis   int64              `yaml:"time_ms"`
	DurationMs   int64              `yaml:"duration_ms"`
	ResponseSize int64              `yaml:"response_size"`
	Code         int                `yaml:"code"`
	Method       string             `yaml:"method"`
	Path         string             `yaml:"path"`
	Query        string             `yaml:"query"`
	Version      string             `yaml:"version"`
	Agent        string             `yaml:"agent"`
	Host         string             `yaml:"host"`
	Scheme       string             `yaml:"scheme"`
	LocalPort    int                `yaml:"local_port"`
	Search       *searchFixture     `yaml:"search"`
	Trace        *traceFixture      `yaml:"trace"`
	Attributes   []attributeFixture `yaml:"attributes"`
}

type searchFixture struct {
	TotalHits   int64           `yaml:"total_hits"`
	Hits        int             `yaml:"hits"`
	SummaryDocs int             `yaml:"summary_docs"`
	QueryHits   int             `yaml:"query_hits"`
	Offset      int             `yaml:"offset"`
	Coverage    coverageFixture `yaml:"coverage"`
}

type coverageFixture struct {
	Docs       uint64   `yaml:"docs"`
	Active     uint64   `yaml:"active"`
	SoonActive uint64   `yaml:"soon_active"`
	Degraded   []string `yaml:"degraded"`
}

type traceFixture struct {
	Message   string `yaml:"message"`
	Timestamp int64  `yaml:"timestamp"`
}

type attributeFixture struct {
	Key    string   `yaml:"key"`
	Values []string `yaml:"values"`
}

func formatEntries(r io.Reader, w io.Writer) error {
	var fixtures []entryFixture
	if err := yaml.NewDecoder(r).Decode(&fixtures); err != nil && err != io.EOF {
		return fmt.Errorf("parse entries: %w", err)
	}

	out := accesslog.NewWriter(w)
	for i, f := range fixtures {
		e, err := f.entry()
		if err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		if err := out.Write(e); err != nil {
			return err
		}
	}
	return nil
}

func (f entryFixture) entry() (*accesslog.Entry, error) {
	e := accesslog.NewEntry()
	e.SetIPAddress(f.IP)
	e.SetRemoteAddress(f.RemoteAddr)
	e.SetRemotePort(f.RemotePort)
	e.SetTimestampMillis(f.TimeMillis)
	e.SetDurationMillis(f.DurationMs)
	e.SetReturnedContentSize(f.ResponseSize)
	e.SetStatusCode(f.Code)
	e.SetHTTPMethod(f.Method)
	e.SetRawPath(f.Path)
	e.SetRawQuery(f.Query)
	e.SetHTTPVersion(f.Version)
	e.SetUserAgent(f.Agent)
	e.SetHostString(f.Host)
	e.SetScheme(f.Scheme)
	e.SetLocalPort(f.LocalPort)

	if s := f.Search; s != nil {
		var mask accesslog.DegradedReason
		for _, name := range s.Coverage.Degraded {
			r, ok := accesslog.ParseDegradedReason(name)
			if !ok {
				return nil, fmt.Errorf("unknown degraded reason %q", name)
			}
			mask |= r
		}
		soonActive := s.Coverage.SoonActive
		if soonActive == 0 {
			soonActive = s.Coverage.Active
		}
		cov := accesslog.NewCoverage(s.Coverage.Docs, s.Coverage.Active, soonActive, mask)
		e.SetHitCounts(accesslog.NewHitCounts(s.Hits, s.SummaryDocs, s.TotalHits, s.QueryHits, s.Offset, cov))
	}

	if f.Trace != nil {
		e.SetTrace(accesslog.NewTraceNode(f.Trace.Message, f.Trace.Timestamp))
	}

	for _, a := range f.Attributes {
		for _, v := range a.Values {
			e.AddKeyValue(a.Key, v)
		}
	}
	return e, nil
}
