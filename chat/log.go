// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"sync"
	"unicode/utf8"

	"github.com/peerwire-chat/peerwire/lib/clock"
)

// replyPreviewLimit caps the frozen preview carried by a reply
// reference, in runes.
const replyPreviewLimit = 80

// Log is the ordered conversation log. All operations are atomic and
// idempotent against replay of the same signal; mutations referencing
// an id not in the log are silent no-ops (the log may have been
// cleared since the signal was sent).
type Log struct {
	mu      sync.Mutex
	clock   clock.Clock
	ids     IDGenerator
	entries []*Message
	index   map[string]*Message
	notify  func()
}

// NewLog creates an empty log. ids generates message ids; clk stamps
// CreatedAt.
func NewLog(clk clock.Clock, ids IDGenerator) *Log {
	return &Log{
		clock: clk,
		ids:   ids,
		index: make(map[string]*Message),
	}
}

// SetNotify installs a callback invoked after every mutation, outside
// the log's lock.
func (l *Log) SetNotify(fn func()) {
	l.mu.Lock()
	l.notify = fn
	l.mu.Unlock()
}

// AppendLocalText appends a locally authored text message with
// StatusSent (the envelope was already handed to the channel) and
// returns a copy of the record.
func (l *Log) AppendLocalText(content string, reply *ReplyRef) Message {
	return l.append(&Message{
		ID:      l.ids.NewID(),
		Sender:  SenderLocal,
		Content: content,
		Kind:    KindText,
		Status:  StatusSent,
		Reply:   reply,
	})
}

// AppendLocalFile appends a locally authored file message with
// StatusSending under the caller-provided id (the same id travels in
// the file envelope so the peer's ack can be matched back).
func (l *Log) AppendLocalFile(id, description string, file *FileInfo) Message {
	return l.append(&Message{
		ID:      id,
		Sender:  SenderLocal,
		Content: description,
		Kind:    KindFile,
		Status:  StatusSending,
		File:    file,
	})
}

// AppendRemoteText appends a text message received from the peer.
// Remote messages carry no delivery status.
func (l *Log) AppendRemoteText(fromIdentity, content string, reply *ReplyRef) Message {
	return l.append(&Message{
		ID:             l.ids.NewID(),
		Sender:         SenderRemote,
		SenderIdentity: fromIdentity,
		Content:        content,
		Kind:           KindText,
		Reply:          reply,
	})
}

// AppendRemoteFile appends a file message received from the peer.
func (l *Log) AppendRemoteFile(fromIdentity, id, description string, file *FileInfo) Message {
	return l.append(&Message{
		ID:             id,
		Sender:         SenderRemote,
		SenderIdentity: fromIdentity,
		Content:        description,
		Kind:           KindFile,
		File:           file,
	})
}

// AppendSystem appends a system-authored announcement.
func (l *Log) AppendSystem(content string) Message {
	return l.append(&Message{
		ID:      l.ids.NewID(),
		Sender:  SenderSystem,
		Content: content,
		Kind:    KindText,
	})
}

func (l *Log) append(message *Message) Message {
	l.mu.Lock()
	message.CreatedAt = l.clock.Now()
	l.entries = append(l.entries, message)
	l.index[message.ID] = message
	out := *message
	notify := l.notify
	l.mu.Unlock()

	if notify != nil {
		notify()
	}
	return out
}

// Ack advances the status of the local message with the given id to
// delivered. No-op if the id is unknown, the message is not locally
// authored, or the status is already delivered — replaying the same
// ack is harmless.
func (l *Log) Ack(id string) bool {
	return l.mutate(id, func(m *Message) bool {
		if m.Sender != SenderLocal || m.Status == StatusNone {
			return false
		}
		if m.Status == StatusDelivered {
			return false
		}
		m.Status = StatusDelivered
		return true
	})
}

// Edit replaces the content of the message with the given id and marks
// it edited. No-op if the id is unknown. Reapplying the same content
// is indistinguishable from applying it once. A tombstoned message
// accepts the edit but stays tombstoned.
func (l *Log) Edit(id, content string) bool {
	return l.mutate(id, func(m *Message) bool {
		m.Content = content
		m.Edited = true
		return true
	})
}

// Delete tombstones the message with the given id: Deleted is set,
// Content is retained internally but must be suppressed by any
// consumer. No-op if the id is unknown; idempotent if already
// tombstoned.
func (l *Log) Delete(id string) bool {
	return l.mutate(id, func(m *Message) bool {
		if m.Deleted {
			return false
		}
		m.Deleted = true
		return true
	})
}

// mutate applies fn to the message with the given id under the lock.
// Returns whether a mutation happened.
func (l *Log) mutate(id string, fn func(*Message) bool) bool {
	l.mu.Lock()
	message, ok := l.index[id]
	changed := ok && fn(message)
	notify := l.notify
	l.mu.Unlock()

	if changed && notify != nil {
		notify()
	}
	return changed
}

// Get returns a copy of the message with the given id.
func (l *Log) Get(id string) (Message, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	message, ok := l.index[id]
	if !ok {
		return Message{}, false
	}
	return *message, true
}

// Snapshot returns copies of all messages in append order, tombstones
// included — display suppression is the consumer's job.
func (l *Log) Snapshot() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Message, len(l.entries))
	for i, message := range l.entries {
		out[i] = *message
	}
	return out
}

// Len returns the number of records, tombstones included.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Clear destroys all records. This is the only way a record leaves the
// log; individual deletes tombstone instead.
func (l *Log) Clear() {
	l.mu.Lock()
	l.entries = nil
	l.index = make(map[string]*Message)
	notify := l.notify
	l.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// ResolveReply builds the frozen reply reference for the message with
// the given id: its author, and a preview truncated to a display-safe
// length. Returns nil if the id is unknown or the message is
// tombstoned (no replying to deleted content).
func (l *Log) ResolveReply(id string) *ReplyRef {
	l.mu.Lock()
	defer l.mu.Unlock()
	message, ok := l.index[id]
	if !ok || message.Deleted {
		return nil
	}
	return &ReplyRef{
		ID:      message.ID,
		Sender:  message.Sender,
		Preview: truncatePreview(message.Content, replyPreviewLimit),
	}
}

// truncatePreview shortens s to at most limit runes, appending an
// ellipsis when truncation happened.
func truncatePreview(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
