package accesslog

import (
	"io"
	"sync"
)

// Observer is notified of every entry written.
type Observer interface {
	Observe(e *Entry)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(e *Entry)

// Observe calls f(e).
func (f ObserverFunc) Observe(e *Entry) { f(e) }

// Writer formats completed entries and writes them as JSON lines.
// It is safe for concurrent use; each entry is written with a single
// Write call on the underlying writer.
type Writer struct {
	mu        sync.Mutex
	out       io.Writer
	formatter *JSONFormatter
	observers []Observer
	buf       []byte
}

// NewWriter creates a writer emitting to out.
func NewWriter(out io.Writer, observers ...Observer) *Writer {
	return &Writer{
		out:       out,
		formatter: NewJSONFormatter(),
		observers: observers,
	}
}

// Write formats e and writes it followed by a newline. The entry must not
// be modified after it is passed to Write.
func (w *Writer) Write(e *Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = w.formatter.AppendFormat(w.buf[:0], e)
	w.buf = append(w.buf, '\n')
	if _, err := w.out.Write(w.buf); err != nil {
		return err
	}

	for _, o := range w.observers {
		o.Observe(e)
	}
	return nil
}
