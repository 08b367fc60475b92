package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		format string
	}{
		{"debug text", "debug", "text"},
		{"info json", "info", "json"},
		{"warn text", "warn", "text"},
		{"error json", "error", "json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.level, tt.format)
			if logger == nil {
				t.Fatal("New() returned nil")
			}
			if logger.Logger == nil {
				t.Fatal("New() returned logger with nil slog.Logger")
			}
		})
	}
}

func TestNewWithWriter_Format(t *testing.T) {
	t.Run("json format", func(t *testing.T) {
		var buf bytes.Buffer
		NewWithWriter(&buf, "info", "json").Info("test message")

		if !strings.Contains(buf.String(), `"msg":"test message"`) {
			t.Errorf("JSON output should contain msg field, got: %s", buf.String())
		}
	})

	t.Run("text format", func(t *testing.T) {
		var buf bytes.Buffer
		NewWithWriter(&buf, "info", "text").Info("test message")

		if !strings.Contains(buf.String(), "msg=\"test message\"") {
			t.Errorf("Text output should contain message, got: %s", buf.String())
		}
	})

	t.Run("level filters", func(t *testing.T) {
		var buf bytes.Buffer
		NewWithWriter(&buf, "warn", "text").Info("hidden")

		if buf.Len() != 0 {
			t.Errorf("info should be filtered at warn level, got: %s", buf.String())
		}
	})
}

func TestLogger_WithContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info", "json")

	if l := logger.WithContext(context.Background()); l != logger {
		t.Error("WithContext() without request ID should return the same logger")
	}

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-123")
	logger.WithContext(ctx).Info("hello")

	if !strings.Contains(buf.String(), `"request_id":"req-123"`) {
		t.Errorf("expected request_id in output, got: %s", buf.String())
	}
}

func TestLogger_WithComponent(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, "info", "json").WithComponent("accesslog").Info("hello")

	if !strings.Contains(buf.String(), `"component":"accesslog"`) {
		t.Errorf("expected component in output, got: %s", buf.String())
	}
}

func TestLogger_WithError(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, "info", "json").WithError(errors.New("boom")).Error("failed")

	if !strings.Contains(buf.String(), `"error":"boom"`) {
		t.Errorf("expected error in output, got: %s", buf.String())
	}
}

func TestDiscard(t *testing.T) {
	if Discard() == nil {
		t.Fatal("Discard() returned nil")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo}, // default
		{"", slog.LevelInfo},        // default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
