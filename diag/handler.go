// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

package diag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Handler is a slog.Handler that mirrors records into a diagnostic
// Log. Levels map to severities: Debug and Info to info, Warn to
// warning, Error to error. Attributes are appended to the message as
// "key=value" pairs.
//
// Wrap it with slog.New and pass the logger into components whose
// structured logs should also appear in the on-screen feed:
//
//	logger := slog.New(diag.NewHandler(diagLog, slog.LevelInfo))
type Handler struct {
	log   *Log
	level slog.Level
	attrs []slog.Attr
	group string
}

// NewHandler creates a Handler appending to log, dropping records
// below level.
func NewHandler(log *Log, level slog.Level) *Handler {
	return &Handler{log: log, level: level}
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle implements slog.Handler.
func (h *Handler) Handle(_ context.Context, record slog.Record) error {
	var b strings.Builder
	b.WriteString(record.Message)

	writeAttr := func(attr slog.Attr) {
		key := attr.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		fmt.Fprintf(&b, " %s=%v", key, attr.Value.Any())
	}
	for _, attr := range h.attrs {
		writeAttr(attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		writeAttr(attr)
		return true
	})

	h.log.Append(severityForLevel(record.Level), b.String())
	return nil
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	clone := *h
	if clone.group == "" {
		clone.group = name
	} else {
		clone.group = clone.group + "." + name
	}
	return &clone
}

func severityForLevel(level slog.Level) Severity {
	switch {
	case level >= slog.LevelError:
		return SeverityError
	case level >= slog.LevelWarn:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}
