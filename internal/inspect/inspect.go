// Package inspect reads JSON access log lines and aggregates them into a
// summary. Input may be plain, gzip (.gz) or zstd (.zst) compressed.
package inspect

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/valyala/fastjson"
)

// maxLineSize bounds a single access log line.
const maxLineSize = 1 << 20

// Summary aggregates access log lines.
type Summary struct {
	// Lines is the number of non-blank lines read.
	Lines int
	// Invalid counts lines that are not a JSON object.
	Invalid int
	// Status counts entries by response code.
	Status map[int]int
	// Searches counts entries carrying a search section.
	Searches int
	// Degraded counts searches by degradation reason.
	Degraded map[string]int

	coverageSum int64
}

// NewSummary returns an empty summary.
func NewSummary() *Summary {
	return &Summary{
		Status:   make(map[int]int),
		Degraded: make(map[string]int),
	}
}

// MeanCoverage returns the mean coverage percentage over all searches, or
// 0 when there were none.
func (s *Summary) MeanCoverage() float64 {
	if s.Searches == 0 {
		return 0
	}
	return float64(s.coverageSum) / float64(s.Searches)
}

// Merge adds the counts of o to s.
func (s *Summary) Merge(o *Summary) {
	s.Lines += o.Lines
	s.Invalid += o.Invalid
	s.Searches += o.Searches
	s.coverageSum += o.coverageSum
	for code, n := range o.Status {
		s.Status[code] += n
	}
	for reason, n := range o.Degraded {
		s.Degraded[reason] += n
	}
}

// Print writes a human readable report of the summary.
func (s *Summary) Print(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "lines\t%d\n", s.Lines)
	fmt.Fprintf(tw, "invalid\t%d\n", s.Invalid)

	codes := make([]int, 0, len(s.Status))
	for code := range s.Status {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Fprintf(tw, "status %d\t%d\n", code, s.Status[code])
	}

	fmt.Fprintf(tw, "searches\t%d\n", s.Searches)
	if s.Searches > 0 {
		fmt.Fprintf(tw, "mean coverage\t%.1f%%\n", s.MeanCoverage())
	}

	reasons := make([]string, 0, len(s.Degraded))
	for reason := range s.Degraded {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		fmt.Fprintf(tw, "degraded %s\t%d\n", reason, s.Degraded[reason])
	}
	return tw.Flush()
}

// Inspector parses access log lines. It is safe for concurrent use.
type Inspector struct {
	parser fastjson.ParserPool
}

// New creates an Inspector.
func New() *Inspector {
	return &Inspector{}
}

// Summarize reads newline separated access log entries from r.
func (in *Inspector) Summarize(r io.Reader) (*Summary, error) {
	sum := NewSummary()

	p := in.parser.Get()
	defer in.parser.Put(p)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		sum.Lines++

		v, err := p.ParseBytes(line)
		if err != nil || v.Type() != fastjson.TypeObject {
			sum.Invalid++
			continue
		}
		sum.add(v)
	}
	if err := sc.Err(); err != nil {
		return sum, fmt.Errorf("read access log: %w", err)
	}
	return sum, nil
}

func (s *Summary) add(v *fastjson.Value) {
	if v.Exists("code") {
		s.Status[v.GetInt("code")]++
	}

	search := v.GetObject("search")
	if search == nil {
		return
	}
	s.Searches++
	s.coverageSum += int64(v.GetInt("search", "coverage", "coverage"))

	degraded := v.GetObject("search", "coverage", "degraded")
	if degraded == nil {
		return
	}
	degraded.Visit(func(key []byte, val *fastjson.Value) {
		if val.Type() == fastjson.TypeTrue {
			s.Degraded[string(key)]++
		}
	})
}

// SummarizeFile opens path with Open and summarizes its content.
func (in *Inspector) SummarizeFile(path string) (*Summary, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	sum, err := in.Summarize(rc)
	if err != nil {
		return sum, fmt.Errorf("%s: %w", path, err)
	}
	return sum, nil
}

// Open opens an access log file, decompressing it when the name ends in
// .gz or .zst.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open access log: %w", err)
	}

	switch filepath.Ext(path) {
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open gzip stream %s: %w", path, err)
		}
		return &decompressor{Reader: zr, closeFn: func() { zr.Close() }, file: f}, nil
	case ".zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open zstd stream %s: %w", path, err)
		}
		return &decompressor{Reader: zr, closeFn: zr.Close, file: f}, nil
	default:
		return f, nil
	}
}

// decompressor closes the decoder before the file it reads from.
type decompressor struct {
	io.Reader
	closeFn func()
	file    *os.File
}

func (d *decompressor) Close() error {
	d.closeFn()
	return d.file.Close()
}
