package search

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ricesearch/rice-accesslog/internal/accesslog"
	apperrors "github.com/ricesearch/rice-accesslog/internal/pkg/errors"
	"github.com/ricesearch/rice-accesslog/internal/pkg/security"
)

// Handler provides HTTP handlers for search operations.
type Handler struct {
	svc *Service
}

// NewHandler creates a new search handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// SearchResponse is the JSON response body for search.
type SearchResponse struct {
	TotalHits int64   `json:"total_hits"`
	Coverage  int     `json:"coverage"`
	Degraded  bool    `json:"degraded"`
	Hits      []Hit   `json:"hits"`
	LatencyMs float64 `json:"latency_ms"`
}

// HandleSearch handles GET /search/?query=..&hits=..&offset=..
//
// The hit counts, the query and a trace root are recorded on the access
// log entry of the request, if there is one.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		apperrors.WriteError(w, apperrors.MethodNotAllowedError(r.Method))
		return
	}

	q := r.URL.Query()
	entry := accesslog.FromContext(r.Context())
	if entry != nil && q.Has("query") {
		entry.AddKeyValue("query", q.Get("query"))
	}

	hits, err := intParam(q.Get("hits"))
	if err != nil {
		apperrors.WriteError(w, apperrors.ValidationError("hits must be an integer"))
		return
	}
	offset, err := intParam(q.Get("offset"))
	if err != nil {
		apperrors.WriteError(w, apperrors.ValidationError("offset must be an integer"))
		return
	}
	if err := validate(q.Get("query"), hits, offset, h.svc.cfg.MaxHits); err != nil {
		apperrors.WriteError(w, apperrors.ValidationError(err.Error()))
		return
	}

	resp, err := h.svc.Search(r.Context(), Request{
		Query:  q.Get("query"),
		Hits:   hits,
		Offset: offset,
	})
	if err != nil {
		if apperrors.IsValidation(err) {
			apperrors.WriteError(w, err)
			return
		}
		apperrors.WriteError(w, apperrors.InternalError("search failed", err))
		return
	}

	if entry != nil {
		entry.SetHitCounts(resp.Counts)
		entry.SetTrace(accesslog.NewTraceNode("search", entry.TimestampMillis()))
	}

	cov := resp.Counts.Coverage()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(SearchResponse{
		TotalHits: resp.TotalHits,
		Coverage:  cov.Percent(),
		Degraded:  cov.IsDegraded(),
		Hits:      resp.Hits,
		LatencyMs: float64(resp.Duration.Microseconds()) / 1000,
	})
}

func validate(query string, hits, offset, maxHits int) error {
	if err := security.ValidateQuery(query); err != nil {
		return err
	}
	if err := security.ValidateHits(hits, maxHits); err != nil {
		return err
	}
	return security.ValidateOffset(offset)
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
