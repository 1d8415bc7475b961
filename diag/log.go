// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

package diag

import (
	"fmt"
	"sync"
	"time"

	"github.com/peerwire-chat/peerwire/lib/clock"
)

// Severity classifies a diagnostic entry for display.
type Severity int

const (
	// SeverityInfo is neutral progress information.
	SeverityInfo Severity = iota
	// SeveritySuccess marks a completed operation (file delivered,
	// link established).
	SeveritySuccess
	// SeverityWarning marks a recoverable anomaly (malformed envelope
	// dropped, digest mismatch).
	SeverityWarning
	// SeverityError marks a failure the user should act on.
	SeverityError
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeveritySuccess:
		return "success"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Entry is one diagnostic log line.
type Entry struct {
	ID        string
	Message   string
	Timestamp time.Time
	Severity  Severity
}

// Log is an append-only, bulk-clearable diagnostic sink. Safe for
// concurrent use.
type Log struct {
	mu      sync.Mutex
	clock   clock.Clock
	entries []Entry
	nextID  uint64
	notify  func()
}

// New creates an empty Log using clk for entry timestamps.
func New(clk clock.Clock) *Log {
	return &Log{clock: clk}
}

// SetNotify installs a callback invoked after every append or clear,
// outside the log's lock. The presentation layer uses it to refresh.
func (l *Log) SetNotify(fn func()) {
	l.mu.Lock()
	l.notify = fn
	l.mu.Unlock()
}

// Append adds an entry with the given severity and message.
func (l *Log) Append(severity Severity, message string) {
	l.mu.Lock()
	l.nextID++
	l.entries = append(l.entries, Entry{
		ID:        fmt.Sprintf("diag-%d", l.nextID),
		Message:   message,
		Timestamp: l.clock.Now(),
		Severity:  severity,
	})
	notify := l.notify
	l.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// Infof appends a formatted info entry.
func (l *Log) Infof(format string, args ...any) {
	l.Append(SeverityInfo, fmt.Sprintf(format, args...))
}

// Successf appends a formatted success entry.
func (l *Log) Successf(format string, args ...any) {
	l.Append(SeveritySuccess, fmt.Sprintf(format, args...))
}

// Warningf appends a formatted warning entry.
func (l *Log) Warningf(format string, args ...any) {
	l.Append(SeverityWarning, fmt.Sprintf(format, args...))
}

// Errorf appends a formatted error entry.
func (l *Log) Errorf(format string, args ...any) {
	l.Append(SeverityError, fmt.Sprintf(format, args...))
}

// Snapshot returns a copy of all entries in append order.
func (l *Log) Snapshot() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Clear removes all entries. Entry IDs keep counting up so an ID is
// never reused within a process.
func (l *Log) Clear() {
	l.mu.Lock()
	l.entries = nil
	notify := l.notify
	l.mu.Unlock()

	if notify != nil {
		notify()
	}
}
