// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Sender classifies who authored a message.
type Sender int

const (
	// SenderLocal is a message composed on this node.
	SenderLocal Sender = iota
	// SenderRemote is a message received from the connected peer.
	SenderRemote
	// SenderSystem is a client-generated announcement (link
	// established, link lost).
	SenderSystem
)

// String returns the lowercase sender name.
func (s Sender) String() string {
	switch s {
	case SenderLocal:
		return "local"
	case SenderRemote:
		return "remote"
	case SenderSystem:
		return "system"
	default:
		return fmt.Sprintf("sender(%d)", int(s))
	}
}

// Status tracks delivery of a locally authored message. Remote and
// system messages carry StatusNone.
type Status int

const (
	// StatusNone means delivery tracking does not apply.
	StatusNone Status = iota
	// StatusSending means the envelope is out but unacknowledged.
	StatusSending
	// StatusSent means the envelope was handed to the channel.
	StatusSent
	// StatusDelivered means the peer acknowledged receipt.
	StatusDelivered
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusSending:
		return "sending"
	case StatusSent:
		return "sent"
	case StatusDelivered:
		return "delivered"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Kind distinguishes text messages from file transfers.
type Kind int

const (
	// KindText is a plain chat message.
	KindText Kind = iota
	// KindFile is a file transfer; Content holds a human-readable
	// description and File points at the payload.
	KindFile
)

// ReplyRef is a frozen reference to an earlier message, resolved at
// send time. It is not live-updated if the original later changes.
type ReplyRef struct {
	ID      string
	Sender  Sender
	Preview string
}

// FileInfo describes the file attached to a KindFile message. Handle
// retrieves the payload from the FileStore.
type FileInfo struct {
	Name     string
	Size     uint64
	MimeType string
	// HandleID keys the payload in the FileStore. Matches the message
	// id for both sides of a transfer.
	HandleID string
}

// Message is one record in the conversation log.
//
// Invariants, enforced by Log: ID is immutable once created; a
// tombstoned message is never un-tombstoned; Status only advances,
// never regresses.
type Message struct {
	ID     string
	Sender Sender
	// SenderIdentity is the remote peer's identity string, set only
	// for remote-authored messages.
	SenderIdentity string
	Content        string
	CreatedAt      time.Time
	Kind           Kind
	Status         Status
	Reply          *ReplyRef
	Edited         bool
	// Deleted marks a tombstone: the record stays in the log and
	// Content is preserved internally, but consumers must suppress it
	// from display.
	Deleted bool
	File    *FileInfo
}

// IDGenerator produces locally unique message ids. Injected so the
// reducer is deterministic in tests.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator is the production IDGenerator, producing random UUID
// strings.
type UUIDGenerator struct{}

// NewID returns a random UUIDv4 string.
func (UUIDGenerator) NewID() string { return uuid.NewString() }
