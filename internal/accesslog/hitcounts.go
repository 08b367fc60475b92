package accesslog

// HitCounts holds the hit statistics of a search response.
// The counters are independent; pagination means returned hits may be
// fewer than the hits the query asked for.
type HitCounts struct {
	returnedHits        int
	summaryDocsReturned int
	totalHits           int64
	queryHits           int
	offset              int
	coverage            Coverage
}

// NewHitCounts creates hit statistics for a search response.
func NewHitCounts(returnedHits, summaryDocsReturned int, totalHits int64, queryHits, offset int, coverage Coverage) *HitCounts {
	return &HitCounts{
		returnedHits:        returnedHits,
		summaryDocsReturned: summaryDocsReturned,
		totalHits:           totalHits,
		queryHits:           queryHits,
		offset:              offset,
		coverage:            coverage,
	}
}

// ReturnedHits returns the number of hits returned to the client.
func (h *HitCounts) ReturnedHits() int { return h.returnedHits }

// SummaryDocsReturned returns the number of hits with summaries filled.
func (h *HitCounts) SummaryDocsReturned() int { return h.summaryDocsReturned }

// TotalHits returns the number of documents matching the query.
func (h *HitCounts) TotalHits() int64 { return h.totalHits }

// QueryHits returns the number of hits requested by the query.
func (h *HitCounts) QueryHits() int { return h.queryHits }

// Offset returns the requested offset.
func (h *HitCounts) Offset() int { return h.offset }

// Coverage returns the coverage of the result.
func (h *HitCounts) Coverage() Coverage { return h.coverage }
