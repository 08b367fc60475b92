// Package accesslog provides the per-request access log entry model and its
// JSON line serialization.
package accesslog

import (
	"math"
	"math/bits"
)

// DegradedReason identifies why a search result did not cover all documents.
type DegradedReason uint8

// Degradation bits as reported by the search layer.
const (
	DegradedByMatchPhase      DegradedReason = 1 << 0
	DegradedByTimeout         DegradedReason = 1 << 1
	DegradedByAdaptiveTimeout DegradedReason = 1 << 2
	DegradedByNonIdealState   DegradedReason = 1 << 3
)

// reasonOrder is the order reasons are reported in.
var reasonOrder = []DegradedReason{
	DegradedByNonIdealState,
	DegradedByMatchPhase,
	DegradedByTimeout,
	DegradedByAdaptiveTimeout,
}

// String returns the name used for the reason in log output.
func (r DegradedReason) String() string {
	switch r {
	case DegradedByNonIdealState:
		return "non-ideal-state"
	case DegradedByMatchPhase:
		return "match-phase"
	case DegradedByTimeout:
		return "timeout"
	case DegradedByAdaptiveTimeout:
		return "adaptive-timeout"
	default:
		return "unknown"
	}
}

// ParseDegradedReason returns the reason with the given log name.
func ParseDegradedReason(name string) (DegradedReason, bool) {
	for _, r := range reasonOrder {
		if r.String() == name {
			return r, true
		}
	}
	return 0, false
}

// Coverage records how many documents a search result covered out of the
// documents that should have been searched.
type Coverage struct {
	docs       uint64
	active     uint64
	soonActive uint64
	degraded   DegradedReason
}

// NewCoverage creates a coverage record. degraded is a bitmask of
// DegradedReason values.
func NewCoverage(docs, active, soonActive uint64, degraded DegradedReason) Coverage {
	return Coverage{
		docs:       docs,
		active:     active,
		soonActive: soonActive,
		degraded:   degraded,
	}
}

// Docs returns the number of documents covered.
func (c Coverage) Docs() uint64 { return c.docs }

// Active returns the number of documents that should have been covered.
func (c Coverage) Active() uint64 { return c.active }

// SoonActive returns the number of documents expected to be active once
// redistribution completes.
func (c Coverage) SoonActive() uint64 { return c.soonActive }

// DegradedMask returns the raw degradation bitmask.
func (c Coverage) DegradedMask() DegradedReason { return c.degraded }

// Percent returns floor(docs*100/active), or 100 when nothing was active.
func (c Coverage) Percent() int {
	if c.active == 0 {
		return 100
	}
	hi, lo := bits.Mul64(c.docs, 100)
	if hi >= c.active {
		return math.MaxInt
	}
	q, _ := bits.Div64(hi, lo, c.active)
	if q > math.MaxInt {
		return math.MaxInt
	}
	return int(q)
}

// DegradedReasons decodes the bitmask. Non-ideal state is implied when no
// explicit bit is set and fewer documents than active were covered.
// A bit that disagrees with the counts is reported as is.
func (c Coverage) DegradedReasons() []DegradedReason {
	mask := c.degraded
	if mask&(DegradedByMatchPhase|DegradedByTimeout|DegradedByAdaptiveTimeout|DegradedByNonIdealState) == 0 &&
		c.docs < c.active {
		mask |= DegradedByNonIdealState
	}

	var reasons []DegradedReason
	for _, r := range reasonOrder {
		if mask&r != 0 {
			reasons = append(reasons, r)
		}
	}
	return reasons
}

// IsDegraded reports whether any degradation reason applies.
func (c Coverage) IsDegraded() bool {
	return len(c.DegradedReasons()) > 0
}

// IsDegradedBy reports whether the given reason applies.
func (c Coverage) IsDegradedBy(reason DegradedReason) bool {
	for _, r := range c.DegradedReasons() {
		if r == reason {
			return true
		}
	}
	return false
}
