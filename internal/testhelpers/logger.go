// Package testhelpers routes logs of code under test to the test log.
package testhelpers

import (
	"bytes"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/myrjola/pedalcoach/internal/logging"
)

// NewLogger creates a debug level logger with the given log sink such as [NewWriter].
func NewLogger(logSink io.Writer) *slog.Logger {
	handler := logging.NewContextHandler(slog.NewTextHandler(logSink, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	return slog.New(handler)
}

// Logger is shorthand for NewLogger(NewWriter(t)).
func Logger(t *testing.T) *slog.Logger {
	t.Helper()
	return NewLogger(NewWriter(t))
}

// Writer writes each line to t.Log so that logs are shown only for failed tests.
type Writer struct {
	t    *testing.T
	mu   sync.Mutex
	done bool
}

// NewWriter creates a Writer that refuses writes once the test has finished.
func NewWriter(t *testing.T) io.Writer {
	w := &Writer{t: t, mu: sync.Mutex{}, done: false}
	t.Cleanup(func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.done = true
	})
	return w
}

// Write logs every non-empty line of p.
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	// t.Log panics after the test finishes.
	if w.done {
		panic("testhelpers: log written after the test finished: shut down servers and background work in t.Cleanup")
	}
	for line := range bytes.Lines(p) {
		if line = bytes.TrimRight(line, "\n"); len(line) > 0 {
			w.t.Log(string(line))
		}
	}
	return len(p), nil
}
