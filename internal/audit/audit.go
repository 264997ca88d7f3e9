// Package audit keeps a file-backed record of ledger events.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/congo-pay/txengine/internal/events"
)

// FileLogger appends one JSON line per event to a file. It is an events.Sink
// and is safe for concurrent use.
type FileLogger struct {
	mu      sync.Mutex
	file    *os.File
	handler slog.Handler
	last    events.Event
	failed  int
}

// Open creates or appends to the log at path and records StartOfLogger.
func Open(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}

	l := &FileLogger{
		file:    f,
		handler: slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelInfo}),
	}
	l.Record(events.StartOfLogger())
	return l, nil
}

// Record writes the event. A failed write is counted and otherwise ignored.
func (l *FileLogger) Record(e events.Event) {
	level := slog.LevelInfo
	if e.IsRejection() || e.Kind == events.KindExternalErr {
		level = slog.LevelWarn
	}
	r := slog.NewRecord(time.Now(), level, e.Message(), 0)
	r.Add(events.Attrs(e)...)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.handler.Handle(context.Background(), r); err != nil {
		l.failed++
	}
	l.last = e
}

// LastEntry returns the most recently recorded event.
func (l *FileLogger) LastEntry() events.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

// Failed reports how many events could not be written.
func (l *FileLogger) Failed() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failed
}

// Close closes the underlying file. Events recorded afterwards are counted as
// failed.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
