package accesslog

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
)

func TestEntry_AddKeyValue(t *testing.T) {
	e := NewEntry()
	if kv := e.KeyValues(); kv != nil {
		t.Fatalf("KeyValues() on empty entry = %v, want nil", kv)
	}

	e.AddKeyValue("b", "1")
	e.AddKeyValue("a", "2")
	e.AddKeyValue("b", "3")

	want := []KeyValues{
		{Key: "b", Values: []string{"1", "3"}},
		{Key: "a", Values: []string{"2"}},
	}
	got := e.KeyValues()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("KeyValues() = %v, want %v", got, want)
	}

	// The returned slice is a copy.
	got[0].Values[0] = "changed"
	if e.KeyValues()[0].Values[0] != "1" {
		t.Error("KeyValues() exposed internal state")
	}
}

func TestEntry_LastWriteWins(t *testing.T) {
	e := NewEntry()
	e.SetStatusCode(200)
	e.SetStatusCode(503)
	if e.StatusCode() != 503 {
		t.Errorf("StatusCode() = %d, want 503", e.StatusCode())
	}
}

func TestContext(t *testing.T) {
	if FromContext(context.Background()) != nil {
		t.Error("FromContext() on empty context should be nil")
	}

	e := NewEntry()
	ctx := NewContext(context.Background(), e)
	if FromContext(ctx) != e {
		t.Error("FromContext() did not return the stored entry")
	}
}

func TestWriter_Write(t *testing.T) {
	var buf bytes.Buffer
	var observed []*Entry
	w := NewWriter(&buf, ObserverFunc(func(e *Entry) {
		observed = append(observed, e)
	}))

	first := newTestEntry("test", fullCoverage())
	second := newTestEntry("other", fullCoverage())
	if err := w.Write(first); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Write(second); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	f := NewJSONFormatter()
	if lines[0] != f.Format(first) || lines[1] != f.Format(second) {
		t.Errorf("lines do not match formatted entries:\n%s", buf.String())
	}
	if len(observed) != 2 || observed[0] != first {
		t.Errorf("observer saw %d entries, want 2", len(observed))
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriter_WriteError(t *testing.T) {
	called := false
	w := NewWriter(failingWriter{}, ObserverFunc(func(*Entry) { called = true }))

	if err := w.Write(NewEntry()); err == nil {
		t.Fatal("expected error from failing writer")
	}
	if called {
		t.Error("observer should not be called when the write fails")
	}
}

func TestWriter_Concurrent(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.Write(newTestEntry("test", fullCoverage()))
		}()
	}
	wg.Wait()

	want := NewJSONFormatter().Format(newTestEntry("test", fullCoverage()))
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 20 {
		t.Fatalf("got %d lines, want 20", len(lines))
	}
	for _, l := range lines {
		if l != want {
			t.Errorf("interleaved line: %s", l)
		}
	}
}
