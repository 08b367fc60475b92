package security

import (
	"fmt"
	"unicode/utf8"
)

// Validation limits.
const (
	// Query limits.
	MinQueryLength = 1
	MaxQueryLength = 10000

	// MaxOffset bounds how deep a client may page.
	MaxOffset = 100000
)

// ValidationError represents a field validation error.
type ValidationError struct {
	Field      string
	Value      interface{}
	Constraint string
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation failed for %s: %s (got: %v)", e.Field, e.Constraint, e.Value)
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Constraint)
}

// ValidateQuery validates a search query string.
// Requirements: Required, 1-10000 chars, valid UTF-8.
func ValidateQuery(query string) error {
	if query == "" {
		return &ValidationError{
			Field:      "query",
			Constraint: "required",
		}
	}

	if !utf8.ValidString(query) {
		return &ValidationError{
			Field:      "query",
			Constraint: "must be valid UTF-8",
		}
	}

	length := utf8.RuneCountInString(query)
	if length > MaxQueryLength {
		return &ValidationError{
			Field:      "query",
			Value:      length,
			Constraint: fmt.Sprintf("maximum length is %d characters", MaxQueryLength),
		}
	}

	return nil
}

// ValidateHits validates a requested page size. Zero selects the
// server default.
func ValidateHits(hits, max int) error {
	if hits < 0 {
		return &ValidationError{
			Field:      "hits",
			Value:      hits,
			Constraint: "must not be negative",
		}
	}

	if hits > max {
		return &ValidationError{
			Field:      "hits",
			Value:      hits,
			Constraint: fmt.Sprintf("maximum value is %d", max),
		}
	}

	return nil
}

// ValidateOffset validates a pagination offset.
// Requirements: 0-100000.
func ValidateOffset(offset int) error {
	if offset < 0 {
		return &ValidationError{
			Field:      "offset",
			Value:      offset,
			Constraint: "must not be negative",
		}
	}

	if offset > MaxOffset {
		return &ValidationError{
			Field:      "offset",
			Value:      offset,
			Constraint: fmt.Sprintf("maximum value is %d", MaxOffset),
		}
	}

	return nil
}
