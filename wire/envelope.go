// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"fmt"

	"github.com/peerwire-chat/peerwire/lib/codec"
)

// Kind tags an envelope on the wire.
type Kind string

const (
	KindText   Kind = "text"
	KindFile   Kind = "file"
	KindAck    Kind = "ack"
	KindEdit   Kind = "edit"
	KindDelete Kind = "delete"
	KindTyping Kind = "typing"
)

// Envelope is a tagged payload exchanged over the channel. The
// concrete types are Text, File, Ack, Edit, Delete, and Typing;
// consumers dispatch with a type switch.
type Envelope interface {
	// Kind returns the wire tag of this envelope.
	Kind() Kind
}

// Text carries a chat message, optionally replying to an earlier one.
type Text struct {
	Content string
	// Reply is the frozen reference resolved at send time, or nil.
	Reply *ReplyRef
}

// ReplyRef is a frozen reference to an earlier message: the referenced
// id, its author's identity, and a truncated preview of its content at
// the time the reply was composed. It is not live-updated if the
// original later changes.
type ReplyRef struct {
	ID string
	// Sender is the identity string of the referenced message's
	// author. Each side maps it to local/remote by comparing with its
	// own identity.
	Sender  string
	Content string
}

// File carries a complete file payload — no chunking; the channel's
// message framing delivers it whole.
type File struct {
	// ID is the sender-generated message id; the receiver's Ack echoes
	// it back.
	ID       string
	Name     string
	Size     uint64
	MimeType string
	// Digest is the BLAKE3 digest of the uncompressed payload.
	Digest []byte
	// Compression tags how Payload is compressed.
	Compression CompressionTag
	Payload     []byte
}

// Ack acknowledges receipt of the message with MessageID.
type Ack struct {
	MessageID string
}

// Edit replaces the content of the message with MessageID.
type Edit struct {
	MessageID string
	Content   string
}

// Delete tombstones the message with MessageID.
type Delete struct {
	MessageID string
}

// Typing signals whether the sender is currently typing.
type Typing struct {
	IsTyping bool
}

func (Text) Kind() Kind   { return KindText }
func (File) Kind() Kind   { return KindFile }
func (Ack) Kind() Kind    { return KindAck }
func (Edit) Kind() Kind   { return KindEdit }
func (Delete) Kind() Kind { return KindDelete }
func (Typing) Kind() Kind { return KindTyping }

// DecodeError reports an inbound payload that could not be decoded:
// not CBOR, unknown kind, or missing required fields. Callers drop the
// payload with a diagnostic; a DecodeError never propagates as a
// crash.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("wire: %s: %v", e.Reason, e.Err)
	}
	return "wire: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// envelopeWire is the flat on-wire shape shared by all kinds. Only the
// fields belonging to the tagged kind are populated. CBOR-only.
type envelopeWire struct {
	Kind        Kind          `cbor:"kind"`
	Content     string        `cbor:"content,omitempty"`
	Reply       *replyRefWire `cbor:"reply,omitempty"`
	ID          string        `cbor:"id,omitempty"`
	Name        string        `cbor:"name,omitempty"`
	Size        uint64        `cbor:"size,omitempty"`
	MimeType    string        `cbor:"mimeType,omitempty"`
	Digest      []byte        `cbor:"digest,omitempty"`
	Compression uint8         `cbor:"compression,omitempty"`
	Payload     []byte        `cbor:"payload,omitempty"`
	MessageID   string        `cbor:"messageId,omitempty"`
	IsTyping    bool          `cbor:"isTyping,omitempty"`
}

type replyRefWire struct {
	ID      string `cbor:"id"`
	Sender  string `cbor:"sender"`
	Content string `cbor:"content"`
}

// Encode serializes an envelope to its CBOR wire form.
func Encode(envelope Envelope) ([]byte, error) {
	w := envelopeWire{Kind: envelope.Kind()}

	switch e := envelope.(type) {
	case Text:
		w.Content = e.Content
		if e.Reply != nil {
			w.Reply = &replyRefWire{ID: e.Reply.ID, Sender: e.Reply.Sender, Content: e.Reply.Content}
		}
	case File:
		w.ID = e.ID
		w.Name = e.Name
		w.Size = e.Size
		w.MimeType = e.MimeType
		w.Digest = e.Digest
		w.Compression = uint8(e.Compression)
		w.Payload = e.Payload
	case Ack:
		w.MessageID = e.MessageID
	case Edit:
		w.MessageID = e.MessageID
		w.Content = e.Content
	case Delete:
		w.MessageID = e.MessageID
	case Typing:
		w.IsTyping = e.IsTyping
	default:
		return nil, fmt.Errorf("wire: unencodable envelope type %T", envelope)
	}

	data, err := codec.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("wire: encode %s envelope: %w", envelope.Kind(), err)
	}
	return data, nil
}

// Decode parses a raw payload into a typed envelope, validating the
// required fields for its kind.
func Decode(data []byte) (Envelope, error) {
	var w envelopeWire
	if err := codec.Unmarshal(data, &w); err != nil {
		return nil, &DecodeError{Reason: "malformed payload", Err: err}
	}

	switch w.Kind {
	case KindText:
		text := Text{Content: w.Content}
		if w.Reply != nil {
			if w.Reply.ID == "" {
				return nil, &DecodeError{Reason: "text envelope reply missing id"}
			}
			text.Reply = &ReplyRef{ID: w.Reply.ID, Sender: w.Reply.Sender, Content: w.Reply.Content}
		}
		return text, nil

	case KindFile:
		if w.ID == "" {
			return nil, &DecodeError{Reason: "file envelope missing id"}
		}
		if w.Name == "" {
			return nil, &DecodeError{Reason: "file envelope missing name"}
		}
		if CompressionTag(w.Compression) > CompressionZstd {
			return nil, &DecodeError{Reason: fmt.Sprintf("file envelope has unknown compression tag %d", w.Compression)}
		}
		if w.Size > MaxFileSize {
			return nil, &DecodeError{Reason: fmt.Sprintf("file envelope declares %d bytes, above the %d byte limit", w.Size, MaxFileSize)}
		}
		return File{
			ID:          w.ID,
			Name:        w.Name,
			Size:        w.Size,
			MimeType:    w.MimeType,
			Digest:      w.Digest,
			Compression: CompressionTag(w.Compression),
			Payload:     w.Payload,
		}, nil

	case KindAck:
		if w.MessageID == "" {
			return nil, &DecodeError{Reason: "ack envelope missing messageId"}
		}
		return Ack{MessageID: w.MessageID}, nil

	case KindEdit:
		if w.MessageID == "" {
			return nil, &DecodeError{Reason: "edit envelope missing messageId"}
		}
		return Edit{MessageID: w.MessageID, Content: w.Content}, nil

	case KindDelete:
		if w.MessageID == "" {
			return nil, &DecodeError{Reason: "delete envelope missing messageId"}
		}
		return Delete{MessageID: w.MessageID}, nil

	case KindTyping:
		return Typing{IsTyping: w.IsTyping}, nil

	case "":
		return nil, &DecodeError{Reason: "payload missing kind tag"}

	default:
		return nil, &DecodeError{Reason: fmt.Sprintf("unknown envelope kind %q", w.Kind)}
	}
}
