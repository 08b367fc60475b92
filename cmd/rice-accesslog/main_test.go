package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

const fixtures = `- ip: 152.200.54.243
  time_ms: 920880005023
  duration_ms: 122
  response_size: 9875
  code: 200
  method: GET
  query: query=test
  version: HTTP/1.1
  agent: Mozilla/4.05 [en] (Win95; I)
  host: localhost
  search:
    total_hits: 1234
    coverage: {docs: 100, active: 100}
- ip: 10.0.0.1
  code: 503
  attributes:
    - key: multivalue
      values: [value2, value3]
  search:
    total_hits: 2
    hits: 2
    coverage:
      docs: 50
      active: 100
      degraded: [timeout]
`

func TestFormatCommand(t *testing.T) {
	out, err := execute(t, fixtures, "format")
	if err != nil {
		t.Fatalf("format error = %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d:\n%s", len(lines), out)
	}

	want := `{"ip":"152.200.54.243","time":920880005.023,"duration":0.122,"responsesize":9875,"code":200,` +
		`"method":"GET","uri":"?query=test","version":"HTTP/1.1","agent":"Mozilla/4.05 [en] (Win95; I)",` +
		`"host":"localhost","scheme":null,"localport":0,` +
		`"search":{"totalhits":1234,"hits":0,"coverage":{"coverage":100,"documents":100}}}`
	if lines[0] != want {
		t.Errorf("line 0 =\n%s\nwant\n%s", lines[0], want)
	}

	for _, frag := range []string{
		`"coverage":{"coverage":50,"documents":50,"degraded":{"timeout":true}}`,
		`"attributes":{"multivalue":["value2","value3"]}`,
	} {
		if !strings.Contains(lines[1], frag) {
			t.Errorf("line 1 missing %s:\n%s", frag, lines[1])
		}
	}
}

func TestFormatCommand_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"invalid yaml", "- ip: [unterminated"},
		{"unknown reason", "- search:\n    coverage:\n      degraded: [sideways]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, tt.input, "format"); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestInspectCommand(t *testing.T) {
	formatted, err := execute(t, fixtures, "format")
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "access.log")
	if err := os.WriteFile(path, []byte(formatted), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "", "inspect", path, path)
	if err != nil {
		t.Fatalf("inspect error = %v", err)
	}
	for _, want := range []string{"lines", "4", "searches", "mean coverage", "75.0%", "degraded timeout"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	// Standard input
	out, err = execute(t, formatted, "inspect")
	if err != nil {
		t.Fatalf("inspect stdin error = %v", err)
	}
	if !strings.Contains(out, "status 503") {
		t.Errorf("output missing status 503:\n%s", out)
	}

	if _, err := execute(t, "", "inspect", filepath.Join(t.TempDir(), "missing.log")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "rice-accesslog dev") {
		t.Errorf("version output = %q", out)
	}
}
