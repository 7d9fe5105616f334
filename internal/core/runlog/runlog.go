// Package runlog collects the ordered debug lines returned with a run report.
package runlog

import (
	"fmt"
	"log/slog"
	"sync"
)

// Log is an append-only list of debug lines. Every line is mirrored to slog.
type Log struct {
	mu     sync.Mutex
	lines  []string
	logger *slog.Logger
}

func New(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

// Addf appends a formatted line.
func (l *Log) Addf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.mu.Lock()
	l.lines = append(l.lines, msg)
	l.mu.Unlock()
	l.logger.Debug(msg)
}

// Append adds lines produced elsewhere, preserving their order.
func (l *Log) Append(lines ...string) {
	l.mu.Lock()
	l.lines = append(l.lines, lines...)
	l.mu.Unlock()
	for _, line := range lines {
		l.logger.Debug(line)
	}
}

// Lines returns a copy of everything collected so far.
func (l *Log) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}
