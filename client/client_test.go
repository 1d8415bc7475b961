// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/peerwire-chat/peerwire/chat"
	"github.com/peerwire-chat/peerwire/diag"
	"github.com/peerwire-chat/peerwire/lib/testutil"
	"github.com/peerwire-chat/peerwire/session"
	"github.com/peerwire-chat/peerwire/transport"
	"github.com/peerwire-chat/peerwire/wire"
)

const waitTimeout = 2 * time.Second

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newClient(t *testing.T, mt *transport.MemoryTransport, id string) *Client {
	t.Helper()
	c := New(Options{
		Transport:   mt,
		Logger:      testLogger(),
		DownloadDir: t.TempDir(),
	})
	t.Cleanup(c.Close)
	if err := c.SetIdentity(id); err != nil {
		t.Fatalf("SetIdentity(%q) error: %v", id, err)
	}
	if err := c.PowerOn(); err != nil {
		t.Fatalf("PowerOn error: %v", err)
	}
	testutil.WaitFor(t, waitTimeout, func() bool {
		return c.State() == session.StateReady
	}, "%s ready", id)
	return c
}

// linkedPair returns two connected clients.
func linkedPair(t *testing.T) (*Client, *Client) {
	t.Helper()
	mt := transport.NewMemoryTransport()
	alpha := newClient(t, mt, "AAA111")
	beta := newClient(t, mt, "BBB222")

	if err := beta.Connect("AAA111"); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	testutil.WaitFor(t, waitTimeout, func() bool {
		return alpha.State() == session.StateConnected &&
			beta.State() == session.StateConnected
	}, "both connected")
	return alpha, beta
}

// findMessage returns the first message matching the predicate.
func findMessage(messages []chat.Message, match func(chat.Message) bool) (chat.Message, bool) {
	for _, m := range messages {
		if match(m) {
			return m, true
		}
	}
	return chat.Message{}, false
}

func hasDiagnostic(entries []diag.Entry, severity diag.Severity) bool {
	for _, e := range entries {
		if e.Severity == severity {
			return true
		}
	}
	return false
}

func TestHelloScenario(t *testing.T) {
	alpha, beta := linkedPair(t)

	sent, err := beta.SendText("hello", "")
	if err != nil {
		t.Fatalf("SendText error: %v", err)
	}
	if sent.Status != chat.StatusSent {
		t.Errorf("local status = %s, want sent", sent.Status)
	}
	if sent.Sender != chat.SenderLocal {
		t.Errorf("local sender = %s, want local", sent.Sender)
	}

	testutil.WaitFor(t, waitTimeout, func() bool {
		_, ok := findMessage(alpha.Messages(), func(m chat.Message) bool {
			return m.Sender == chat.SenderRemote && m.Content == "hello"
		})
		return ok
	}, "remote message on alpha")

	received, _ := findMessage(alpha.Messages(), func(m chat.Message) bool {
		return m.Sender == chat.SenderRemote
	})
	if received.SenderIdentity != "BBB222" {
		t.Errorf("SenderIdentity = %q, want BBB222", received.SenderIdentity)
	}
	if received.Status != chat.StatusNone {
		t.Errorf("remote status = %s, want none", received.Status)
	}

	// Both sides got the link announcement.
	if _, ok := findMessage(alpha.Messages(), func(m chat.Message) bool {
		return m.Sender == chat.SenderSystem
	}); !ok {
		t.Error("alpha has no system message announcing the link")
	}
}

func TestSendWithoutLink(t *testing.T) {
	mt := transport.NewMemoryTransport()
	alpha := newClient(t, mt, "AAA111")

	if _, err := alpha.SendText("hello", ""); !errors.Is(err, ErrNoActiveLink) {
		t.Fatalf("SendText without link = %v, want ErrNoActiveLink", err)
	}
	// No message appended, only a diagnostic.
	if got := len(alpha.Messages()); got != 0 {
		t.Errorf("log has %d messages after rejected send, want 0", got)
	}
	if !hasDiagnostic(alpha.Diagnostics(), diag.SeverityWarning) {
		t.Error("rejected send produced no warning diagnostic")
	}
}

func TestFileTransferAckDrivesDelivery(t *testing.T) {
	alpha, beta := linkedPair(t)

	payload := bytes.Repeat([]byte("peerwire "), 512)
	sent, err := alpha.SendFile("notes.txt", "text/plain", payload)
	if err != nil {
		t.Fatalf("SendFile error: %v", err)
	}
	if sent.Status != chat.StatusSending {
		t.Errorf("initial status = %s, want sending", sent.Status)
	}
	if sent.Kind != chat.KindFile {
		t.Errorf("kind = %v, want file", sent.Kind)
	}

	// The payload is retrievable locally before any acknowledgment.
	local, ok := alpha.File(sent.ID)
	if !ok {
		t.Fatal("sender has no local payload handle")
	}
	if !bytes.Equal(local.Bytes(), payload) {
		t.Error("local payload does not match original")
	}

	// The peer's ack advances sending → delivered.
	testutil.WaitFor(t, waitTimeout, func() bool {
		m, ok := findMessage(alpha.Messages(), func(m chat.Message) bool {
			return m.ID == sent.ID
		})
		return ok && m.Status == chat.StatusDelivered
	}, "ack advances status to delivered")

	// The receiver reconstructed the payload intact.
	received, ok := beta.File(sent.ID)
	if !ok {
		t.Fatal("receiver has no payload handle")
	}
	if !bytes.Equal(received.Bytes(), payload) {
		t.Error("received payload does not match original")
	}
	if !hasDiagnostic(beta.Diagnostics(), diag.SeveritySuccess) {
		t.Error("receiver produced no success diagnostic")
	}

	path, err := beta.SaveFile(sent.ID)
	if err != nil {
		t.Fatalf("SaveFile error: %v", err)
	}
	if path == "" {
		t.Error("SaveFile returned empty path")
	}
}

func TestReplayedAckIsIdempotent(t *testing.T) {
	alpha, _ := linkedPair(t)

	sent, err := alpha.SendFile("a.bin", "application/octet-stream", []byte{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	testutil.WaitFor(t, waitTimeout, func() bool {
		m, _ := alpha.log.Get(sent.ID)
		return m.Status == chat.StatusDelivered
	}, "first ack")

	// Replay the same ack straight into alpha's reducer.
	alpha.handlePayload("BBB222", mustEncode(t, wire.Ack{MessageID: sent.ID}))
	m, _ := alpha.log.Get(sent.ID)
	if m.Status != chat.StatusDelivered {
		t.Errorf("status after replayed ack = %s, want delivered", m.Status)
	}

	// An ack for an id that was never in the log is a silent no-op.
	before := len(alpha.Messages())
	alpha.handlePayload("BBB222", mustEncode(t, wire.Ack{MessageID: "ghost"}))
	if len(alpha.Messages()) != before {
		t.Error("unknown ack mutated the log")
	}
}

func TestEditPropagatesOnSharedID(t *testing.T) {
	alpha, beta := linkedPair(t)

	// File transfers share the message id across both logs, so edits
	// propagate.
	sent, err := alpha.SendFile("a.txt", "text/plain", []byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	testutil.WaitFor(t, waitTimeout, func() bool {
		_, ok := beta.log.Get(sent.ID)
		return ok
	}, "file on beta")

	if err := alpha.Edit(sent.ID, "renamed transfer"); err != nil {
		t.Fatalf("Edit error: %v", err)
	}
	local, _ := alpha.log.Get(sent.ID)
	if local.Content != "renamed transfer" || !local.Edited {
		t.Errorf("local copy = %+v, want edited content", local)
	}

	testutil.WaitFor(t, waitTimeout, func() bool {
		m, ok := beta.log.Get(sent.ID)
		return ok && m.Edited && m.Content == "renamed transfer"
	}, "edit applied on beta")
}

func TestEditOfUnsharedIDIsRemoteNoop(t *testing.T) {
	alpha, beta := linkedPair(t)

	// Text messages get independent ids on each side, so a remote edit
	// referencing the author's id finds nothing and changes nothing.
	sent, err := alpha.SendText("original", "")
	if err != nil {
		t.Fatal(err)
	}
	testutil.WaitFor(t, waitTimeout, func() bool {
		_, ok := findMessage(beta.Messages(), func(m chat.Message) bool {
			return m.Content == "original"
		})
		return ok
	}, "text on beta")

	if err := alpha.Edit(sent.ID, "changed"); err != nil {
		t.Fatal(err)
	}

	// Alpha's copy changes; beta's copy keeps the original content.
	local, _ := alpha.log.Get(sent.ID)
	if local.Content != "changed" {
		t.Errorf("alpha content = %q, want changed", local.Content)
	}
	time.Sleep(50 * time.Millisecond)
	remote, _ := findMessage(beta.Messages(), func(m chat.Message) bool {
		return m.Sender == chat.SenderRemote && m.Kind == chat.KindText
	})
	if remote.Content != "original" || remote.Edited {
		t.Errorf("beta copy = %+v, want untouched original", remote)
	}
}

func TestDeleteTombstones(t *testing.T) {
	alpha, beta := linkedPair(t)

	sent, err := alpha.SendFile("a.txt", "text/plain", []byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	testutil.WaitFor(t, waitTimeout, func() bool {
		_, ok := beta.log.Get(sent.ID)
		return ok
	}, "file on beta")

	if err := alpha.Delete(sent.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	local, _ := alpha.log.Get(sent.ID)
	if !local.Deleted {
		t.Error("local copy not tombstoned")
	}
	if local.Content == "" {
		t.Error("tombstone erased content, want preserved")
	}

	testutil.WaitFor(t, waitTimeout, func() bool {
		m, ok := beta.log.Get(sent.ID)
		return ok && m.Deleted
	}, "tombstone on beta")
	remote, _ := beta.log.Get(sent.ID)
	if remote.Content == "" {
		t.Error("remote tombstone erased content")
	}
}

func TestEditRequiresLocalAuthorship(t *testing.T) {
	alpha, beta := linkedPair(t)

	if _, err := beta.SendText("theirs", ""); err != nil {
		t.Fatal(err)
	}
	testutil.WaitFor(t, waitTimeout, func() bool {
		_, ok := findMessage(alpha.Messages(), func(m chat.Message) bool {
			return m.Sender == chat.SenderRemote
		})
		return ok
	}, "remote text on alpha")

	theirs, _ := findMessage(alpha.Messages(), func(m chat.Message) bool {
		return m.Sender == chat.SenderRemote
	})
	if err := alpha.Edit(theirs.ID, "hijack"); !errors.Is(err, ErrNotLocalMessage) {
		t.Errorf("Edit of remote message = %v, want ErrNotLocalMessage", err)
	}
	if err := alpha.Delete("no-such-id"); !errors.Is(err, ErrNotLocalMessage) {
		t.Errorf("Delete of unknown id = %v, want ErrNotLocalMessage", err)
	}
}

func TestReplyReferenceFrozenAcrossTheWire(t *testing.T) {
	alpha, beta := linkedPair(t)

	if _, err := alpha.SendText("first", ""); err != nil {
		t.Fatal(err)
	}
	testutil.WaitFor(t, waitTimeout, func() bool {
		_, ok := findMessage(beta.Messages(), func(m chat.Message) bool {
			return m.Content == "first"
		})
		return ok
	}, "first on beta")

	// Beta replies to its copy of alpha's message.
	copyOnBeta, _ := findMessage(beta.Messages(), func(m chat.Message) bool {
		return m.Content == "first"
	})
	if _, err := beta.SendText("re: first", copyOnBeta.ID); err != nil {
		t.Fatal(err)
	}

	testutil.WaitFor(t, waitTimeout, func() bool {
		_, ok := findMessage(alpha.Messages(), func(m chat.Message) bool {
			return m.Content == "re: first" && m.Reply != nil
		})
		return ok
	}, "reply on alpha")

	reply, _ := findMessage(alpha.Messages(), func(m chat.Message) bool {
		return m.Content == "re: first"
	})
	// Alpha authored the referenced message, so from alpha's point of
	// view the reference points at a local message.
	if reply.Reply.Sender != chat.SenderLocal {
		t.Errorf("reply reference sender = %s, want local", reply.Reply.Sender)
	}
	if reply.Reply.Preview != "first" {
		t.Errorf("reply preview = %q, want first", reply.Reply.Preview)
	}

	// The reference is frozen: editing the original does not rewrite
	// previews already recorded.
	original, _ := findMessage(alpha.Messages(), func(m chat.Message) bool {
		return m.Content == "first"
	})
	if err := alpha.Edit(original.ID, "rewritten"); err != nil {
		t.Fatal(err)
	}
	replyAfter, _ := findMessage(alpha.Messages(), func(m chat.Message) bool {
		return m.Content == "re: first"
	})
	if replyAfter.Reply.Preview != "first" {
		t.Errorf("preview after edit = %q, want frozen first", replyAfter.Reply.Preview)
	}
}

func TestRemoteTypingIndicator(t *testing.T) {
	alpha, beta := linkedPair(t)

	alpha.InputActivity()
	testutil.WaitFor(t, waitTimeout, func() bool {
		return beta.RemoteTyping()
	}, "typing flag set on beta")

	// Any text arrival clears the flag as an implicit stop.
	if _, err := alpha.SendText("done typing", ""); err != nil {
		t.Fatal(err)
	}
	testutil.WaitFor(t, waitTimeout, func() bool {
		return !beta.RemoteTyping()
	}, "typing flag cleared by text")
}

func TestTypingClearedOnLinkLoss(t *testing.T) {
	alpha, beta := linkedPair(t)

	alpha.InputActivity()
	testutil.WaitFor(t, waitTimeout, func() bool {
		return beta.RemoteTyping()
	}, "typing flag set")

	alpha.Disconnect()
	testutil.WaitFor(t, waitTimeout, func() bool {
		return !beta.RemoteTyping() && beta.State() == session.StateReady
	}, "flag cleared and beta ready after link loss")
}

func TestMalformedPayloadDropped(t *testing.T) {
	mt := transport.NewMemoryTransport()
	beta := newClient(t, mt, "BBB222")

	// A bare session stands in for a misbehaving peer.
	raw := session.New(mt, testLogger())
	defer raw.Close()
	raw.SetIdentity("AAA111")
	raw.PowerOn()
	testutil.WaitFor(t, waitTimeout, func() bool {
		return raw.State() == session.StateReady
	}, "raw peer ready")

	if err := raw.Connect("BBB222"); err != nil {
		t.Fatal(err)
	}
	testutil.WaitFor(t, waitTimeout, func() bool {
		return beta.State() == session.StateConnected
	}, "beta connected")
	testutil.WaitFor(t, waitTimeout, func() bool {
		return raw.State() == session.StateConnected
	}, "raw peer connected")

	if err := raw.Send([]byte("definitely not cbor")); err != nil {
		t.Fatal(err)
	}

	testutil.WaitFor(t, waitTimeout, func() bool {
		return hasDiagnostic(beta.Diagnostics(), diag.SeverityWarning)
	}, "warning diagnostic for dropped payload")

	// Nothing landed in the conversation beyond the system message.
	for _, m := range beta.Messages() {
		if m.Sender == chat.SenderRemote {
			t.Errorf("malformed payload produced a message: %+v", m)
		}
	}
}

func TestAutoConnectFiresOncePerProcess(t *testing.T) {
	mt := transport.NewMemoryTransport()
	alpha := newClient(t, mt, "AAA111")

	beta := New(Options{
		Transport:   mt,
		Logger:      testLogger(),
		AutoConnect: "AAA111",
	})
	t.Cleanup(beta.Close)
	beta.SetIdentity("BBB222")
	beta.PowerOn()

	testutil.WaitFor(t, waitTimeout, func() bool {
		return beta.State() == session.StateConnected && alpha.State() == session.StateConnected
	}, "auto-connect linked both")

	// Re-entering ready must not re-trigger the auto-connect.
	beta.Disconnect()
	testutil.WaitFor(t, waitTimeout, func() bool {
		return beta.State() == session.StateReady
	}, "beta ready after disconnect")

	time.Sleep(50 * time.Millisecond)
	if beta.State() != session.StateReady {
		t.Errorf("state = %s after ready re-entry, want ready (no second auto-connect)", beta.State())
	}
}

func TestClearConversation(t *testing.T) {
	alpha, _ := linkedPair(t)

	if _, err := alpha.SendText("one", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := alpha.SendFile("a.bin", "application/octet-stream", []byte{9}); err != nil {
		t.Fatal(err)
	}
	if len(alpha.Messages()) == 0 {
		t.Fatal("expected messages before clear")
	}

	alpha.ClearConversation()
	if got := len(alpha.Messages()); got != 0 {
		t.Errorf("log has %d messages after clear, want 0", got)
	}
	if _, ok := alpha.File("any"); ok {
		t.Error("file store not cleared")
	}

	alpha.ClearDiagnostics()
	if got := len(alpha.Diagnostics()); got != 0 {
		t.Errorf("diagnostics has %d entries after clear, want 0", got)
	}
}

func mustEncode(t *testing.T, envelope wire.Envelope) []byte {
	t.Helper()
	data, err := wire.Encode(envelope)
	if err != nil {
		t.Fatalf("encode %T: %v", envelope, err)
	}
	return data
}

func TestHostileFileSizeDropped(t *testing.T) {
	mt := transport.NewMemoryTransport()
	alpha := newClient(t, mt, "AAA111")

	// The declared size drives the receiver's decompression buffer; an
	// absurd value must be dropped like any other malformed payload
	// instead of aborting the event loop.
	alpha.handlePayload("BBB222", mustEncode(t, wire.File{
		ID:          "f1",
		Name:        "evil.bin",
		Size:        1 << 61,
		MimeType:    "application/octet-stream",
		Compression: wire.CompressionLZ4,
		Payload:     []byte{0x10, 'x'},
	}))

	if !hasDiagnostic(alpha.Diagnostics(), diag.SeverityWarning) {
		t.Error("hostile file envelope produced no warning diagnostic")
	}
	for _, m := range alpha.Messages() {
		if m.Sender == chat.SenderRemote {
			t.Errorf("hostile file envelope produced a message: %+v", m)
		}
	}
}

// ackingTransport links a client to a scripted peer whose channel
// acknowledges file envelopes from within Send, before Send returns.
type ackingTransport struct{}

func (ackingTransport) Register(_ context.Context, id string) (transport.Registration, error) {
	return &ackingRegistration{
		identity: id,
		offers:   make(chan transport.Channel),
		done:     make(chan struct{}),
	}, nil
}

type ackingRegistration struct {
	identity  string
	offers    chan transport.Channel
	done      chan struct{}
	closeOnce sync.Once
}

func (r *ackingRegistration) Identity() string { return r.identity }

func (r *ackingRegistration) Offers() <-chan transport.Channel { return r.offers }

func (r *ackingRegistration) Done() <-chan struct{} { return r.done }

func (r *ackingRegistration) Close() error {
	r.closeOnce.Do(func() { close(r.done) })
	return nil
}

func (r *ackingRegistration) Connect(_ context.Context, target string) (transport.Channel, error) {
	return &ackingChannel{
		remote:   target,
		incoming: make(chan []byte, 4),
		done:     make(chan struct{}),
	}, nil
}

type ackingChannel struct {
	remote    string
	incoming  chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (c *ackingChannel) RemoteIdentity() string { return c.remote }

func (c *ackingChannel) Receive() <-chan []byte { return c.incoming }

func (c *ackingChannel) Done() <-chan struct{} { return c.done }

func (c *ackingChannel) Err() error { return nil }

func (c *ackingChannel) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *ackingChannel) Send(payload []byte) error {
	envelope, err := wire.Decode(payload)
	if err != nil {
		return err
	}
	if file, ok := envelope.(wire.File); ok {
		ack, err := wire.Encode(wire.Ack{MessageID: file.ID})
		if err != nil {
			return err
		}
		c.incoming <- ack
		// Hold the send in flight long enough for the receiver's event
		// loop to pick the ack up first.
		time.Sleep(50 * time.Millisecond)
	}
	return nil
}

func TestAckArrivingDuringSendStillDelivers(t *testing.T) {
	alpha := New(Options{
		Transport:   ackingTransport{},
		Logger:      testLogger(),
		DownloadDir: t.TempDir(),
	})
	t.Cleanup(alpha.Close)
	if err := alpha.SetIdentity("AAA111"); err != nil {
		t.Fatal(err)
	}
	if err := alpha.PowerOn(); err != nil {
		t.Fatal(err)
	}
	testutil.WaitFor(t, waitTimeout, func() bool {
		return alpha.State() == session.StateReady
	}, "ready")
	if err := alpha.Connect("BBB222"); err != nil {
		t.Fatal(err)
	}
	testutil.WaitFor(t, waitTimeout, func() bool {
		return alpha.State() == session.StateConnected
	}, "connected")

	// The peer's ack lands while Send is still blocked. It must wait
	// for the local record instead of no-opping against an absent id.
	sent, err := alpha.SendFile("a.bin", "application/octet-stream", []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("SendFile error: %v", err)
	}
	testutil.WaitFor(t, waitTimeout, func() bool {
		m, ok := findMessage(alpha.Messages(), func(m chat.Message) bool {
			return m.ID == sent.ID
		})
		return ok && m.Status == chat.StatusDelivered
	}, "file delivered despite the early ack")
}
