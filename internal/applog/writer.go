// Package applog owns the process-wide append-only log file.
//
// Backend status callbacks may fire on goroutines the harness does not
// own, so every append opens the file, writes and closes it while holding
// a single mutex.
package applog

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// DefaultPath is the log file used when none is configured.
const DefaultPath = "ANARI.log"

// Writer serializes appends to one log file.
type Writer struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// New returns a Writer for path. An empty path selects DefaultPath.
func New(path string) *Writer {
	if path == "" {
		path = DefaultPath
	}
	return &Writer{path: path, now: time.Now}
}

// WithClock replaces the timestamp source.
func (w *Writer) WithClock(now func() time.Time) *Writer {
	w.now = now
	return w
}

// Path returns the log file path.
func (w *Writer) Path() string {
	return w.path
}

// Write appends p to the log file.
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	n, err := f.Write(p)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// Append writes one timestamped line. It matches backend.StatusFunc and
// is handed to backends as their status callback. Write errors are
// dropped since a status callback has no caller to report to.
func (w *Writer) Append(message string) {
	line := w.now().UTC().Format(time.RFC3339) + " " + strings.TrimRight(message, "\n") + "\n"
	_, _ = w.Write([]byte(line))
}

// NewLogger returns a text logger writing to extra and to the log file.
// Debug records are kept only when verbose is set. A log file that cannot
// be written does not keep records from reaching extra.
func NewLogger(w *Writer, extra io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	out := io.Writer(w)
	if extra != nil {
		out = io.MultiWriter(extra, dropErrors{w})
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}

// dropErrors reports every write as complete.
type dropErrors struct {
	w io.Writer
}

func (d dropErrors) Write(p []byte) (int, error) {
	_, _ = d.w.Write(p)
	return len(p), nil
}
