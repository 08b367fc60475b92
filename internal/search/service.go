// Package search provides a partitioned in-memory document index.
//
// The index exists so the server produces real hit counts and coverage
// for its access log. Partitions can be taken down, and a per-query time
// budget can cut a scan short; both show up as degraded coverage.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ricesearch/rice-accesslog/internal/accesslog"
	apperrors "github.com/ricesearch/rice-accesslog/internal/pkg/errors"
	"github.com/ricesearch/rice-accesslog/internal/pkg/hash"
	"github.com/ricesearch/rice-accesslog/internal/pkg/logger"
	"github.com/ricesearch/rice-accesslog/internal/pkg/security"
)

// ErrInvalidPartition is returned for a partition index outside the index.
var ErrInvalidPartition = errors.New("invalid partition")

// Config configures the search service.
type Config struct {
	// Partitions is the number of partitions documents are spread over.
	Partitions int

	// DownPartitions lists partitions that start out down.
	DownPartitions []int

	// TimeBudget bounds the scan of a single query. Zero means no limit.
	TimeBudget time.Duration

	// DefaultHits is the page size used when a request does not set one.
	DefaultHits int

	// MaxHits caps the page size.
	MaxHits int
}

// DefaultConfig returns sensible search defaults.
func DefaultConfig() Config {
	return Config{
		Partitions:  4,
		TimeBudget:  500 * time.Millisecond,
		DefaultHits: 10,
		MaxHits:     400,
	}
}

// Document is an indexed document.
type Document struct {
	ID    string `yaml:"id" json:"id"`
	Title string `yaml:"title" json:"title"`
	Body  string `yaml:"body" json:"body,omitempty"`
}

type partition struct {
	down bool
	docs []Document
}

// Service provides search capabilities.
type Service struct {
	mu         sync.RWMutex
	partitions []*partition
	log        *logger.Logger
	cfg        Config

	// now is replaced in tests.
	now func() time.Time
}

// NewService creates a new search service.
func NewService(cfg Config, log *logger.Logger) *Service {
	if cfg.Partitions <= 0 {
		cfg.Partitions = DefaultConfig().Partitions
	}
	if cfg.DefaultHits <= 0 {
		cfg.DefaultHits = DefaultConfig().DefaultHits
	}
	if cfg.MaxHits <= 0 {
		cfg.MaxHits = DefaultConfig().MaxHits
	}
	if log == nil {
		log = logger.Discard()
	}

	s := &Service{
		partitions: make([]*partition, cfg.Partitions),
		log:        log.WithComponent("search"),
		cfg:        cfg,
		now:        time.Now,
	}
	for i := range s.partitions {
		s.partitions[i] = &partition{}
	}
	for _, p := range cfg.DownPartitions {
		if p >= 0 && p < len(s.partitions) {
			s.partitions[p].down = true
		}
	}
	return s
}

// Add indexes documents. A document is placed by its ID, so re-adding an
// ID replaces the earlier document.
func (s *Service) Add(docs ...Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range docs {
		p := s.partitions[hash.Partition(d.ID, len(s.partitions))]
		replaced := false
		for i := range p.docs {
			if p.docs[i].ID == d.ID {
				p.docs[i] = d
				replaced = true
				break
			}
		}
		if !replaced {
			p.docs = append(p.docs, d)
		}
	}
}

// Count returns the number of indexed documents, including those on down
// partitions.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, p := range s.partitions {
		n += len(p.docs)
	}
	return n
}

// SetPartitionDown marks a partition down or back up.
func (s *Service) SetPartitionDown(i int, down bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.partitions) {
		return fmt.Errorf("%w: %d", ErrInvalidPartition, i)
	}
	if s.partitions[i].down != down {
		s.log.Info("Partition state changed", "partition", i, "down", down)
	}
	s.partitions[i].down = down
	return nil
}

// Request represents a search request.
type Request struct {
	// Query is matched term by term, case-insensitively.
	Query string

	// Hits is the page size. Zero selects the default.
	Hits int

	// Offset is the number of hits to skip.
	Offset int
}

// Hit is a single matching document.
type Hit struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// Response is the result of a search.
type Response struct {
	Hits      []Hit
	TotalHits int64
	Counts    *accesslog.HitCounts
	Duration  time.Duration
}

// Search scans the partitions that are up and within the time budget.
// Skipped partitions still count toward the active documents, so the
// returned coverage reports what was missed.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	terms := strings.Fields(strings.ToLower(security.SanitizeQuery(req.Query)))
	if len(terms) == 0 {
		return nil, apperrors.ValidationError("query is required")
	}
	if req.Offset < 0 {
		return nil, apperrors.ValidationError(fmt.Sprintf("offset must be non-negative, got %d", req.Offset))
	}
	hits := req.Hits
	if hits <= 0 {
		hits = s.cfg.DefaultHits
	}
	if hits > s.cfg.MaxHits {
		hits = s.cfg.MaxHits
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	start := s.now()
	var (
		matches        []Hit
		docs, active   uint64
		degraded       accesslog.DegradedReason
		budgetExceeded bool
	)
	for _, p := range s.partitions {
		active += uint64(len(p.docs))
		if p.down {
			degraded |= accesslog.DegradedByNonIdealState
			continue
		}
		if !budgetExceeded {
			if err := ctx.Err(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			budgetExceeded = ctx.Err() != nil ||
				(s.cfg.TimeBudget > 0 && s.now().Sub(start) >= s.cfg.TimeBudget)
		}
		if budgetExceeded {
			degraded |= accesslog.DegradedByTimeout
			continue
		}

		docs += uint64(len(p.docs))
		for _, d := range p.docs {
			if score := match(d, terms); score > 0 {
				matches = append(matches, Hit{ID: d.ID, Title: d.Title, Score: score})
			}
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})

	page := paginate(matches, req.Offset, hits)
	coverage := accesslog.NewCoverage(docs, active, active, degraded)
	resp := &Response{
		Hits:      page,
		TotalHits: int64(len(matches)),
		Counts:    accesslog.NewHitCounts(len(page), len(page), int64(len(matches)), hits, req.Offset, coverage),
		Duration:  s.now().Sub(start),
	}

	if reasons := coverage.DegradedReasons(); len(reasons) > 0 {
		names := make([]string, len(reasons))
		for i, r := range reasons {
			names[i] = r.String()
		}
		s.log.WithContext(ctx).Warn("Degraded search",
			"query", security.SanitizeForLog(req.Query),
			"coverage", coverage.Percent(),
			"reasons", strings.Join(names, ","),
		)
	}
	return resp, nil
}

// match scores a document by the number of term occurrences. A document
// must contain every term to match.
func match(d Document, terms []string) float64 {
	text := strings.ToLower(d.Title + " " + d.Body)
	var score float64
	for _, t := range terms {
		n := strings.Count(text, t)
		if n == 0 {
			return 0
		}
		score += float64(n)
	}
	return score
}

func paginate(hits []Hit, offset, limit int) []Hit {
	if offset >= len(hits) {
		return []Hit{}
	}
	end := offset + limit
	if end > len(hits) {
		end = len(hits)
	}
	return hits[offset:end]
}
