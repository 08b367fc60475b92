package security

import (
	"strings"
	"testing"
)

func TestValidateQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr bool
	}{
		{"valid simple", "hello world", false},
		{"valid unicode", "搜索 query", false},
		{"valid at max", strings.Repeat("a", MaxQueryLength), false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", MaxQueryLength+1), true},
		{"invalid utf8", "bad\xffquery", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuery(tt.query)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateQuery() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateHits(t *testing.T) {
	tests := []struct {
		hits    int
		wantErr bool
	}{
		{0, false},
		{10, false},
		{400, false},
		{401, true},
		{-1, true},
	}

	for _, tt := range tests {
		err := ValidateHits(tt.hits, 400)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateHits(%d) error = %v, wantErr %v", tt.hits, err, tt.wantErr)
		}
	}
}

func TestValidateOffset(t *testing.T) {
	tests := []struct {
		offset  int
		wantErr bool
	}{
		{0, false},
		{MaxOffset, false},
		{MaxOffset + 1, true},
		{-1, true},
	}

	for _, tt := range tests {
		err := ValidateOffset(tt.offset)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateOffset(%d) error = %v, wantErr %v", tt.offset, err, tt.wantErr)
		}
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{
		Field:      "query",
		Value:      "test",
		Constraint: "too short",
	}
	if !strings.Contains(err.Error(), "query") {
		t.Error("Error() should contain field name")
	}
	if !strings.Contains(err.Error(), "test") {
		t.Error("Error() should contain value")
	}

	errNoValue := &ValidationError{
		Field:      "query",
		Constraint: "required",
	}
	if !strings.Contains(errNoValue.Error(), "query") {
		t.Error("Error() should contain field name")
	}
}
