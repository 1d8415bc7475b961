// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/peerwire-chat/peerwire/chat"
	"github.com/peerwire-chat/peerwire/diag"
	"github.com/peerwire-chat/peerwire/lib/clock"
	"github.com/peerwire-chat/peerwire/lib/identity"
	"github.com/peerwire-chat/peerwire/session"
	"github.com/peerwire-chat/peerwire/transport"
	"github.com/peerwire-chat/peerwire/wire"
)

// ErrNoActiveLink mirrors the session guard for callers that only
// import this package.
var ErrNoActiveLink = session.ErrNoActiveLink

// ErrNotLocalMessage means an edit or delete targeted a message this
// node did not author.
var ErrNotLocalMessage = errors.New("client: not a locally authored message")

// Options configures a Client. Transport is required; everything else
// has a sensible default.
type Options struct {
	Transport transport.Transport
	Logger    *slog.Logger
	Clock     clock.Clock
	IDs       chat.IDGenerator

	// TypingDebounce is the delay before a typing-stopped broadcast.
	// Zero selects chat.DefaultTypingDebounce.
	TypingDebounce time.Duration

	// DownloadDir receives saved file payloads.
	DownloadDir string

	// AutoConnect, when set, dials this identity automatically on the
	// first entry into the ready state — exactly once per process, not
	// re-triggered on later ready re-entries.
	AutoConnect string
}

// Client is the chat client core: one session, one conversation log,
// one diagnostic feed.
type Client struct {
	session *session.Session
	log     *chat.Log
	typing  *chat.TypingController
	files   *chat.FileStore
	diag    *diag.Log
	logger  *slog.Logger
	ids     chat.IDGenerator

	downloadDir string

	// mu serializes local actions so envelope broadcast and log
	// mutation are atomic per caller.
	mu sync.Mutex

	autoConnect     string
	autoConnectDone bool

	notifyMu sync.Mutex
	notify   func()

	loopDone chan struct{}
}

// New creates a client and starts its event loop. Call Close to shut
// down.
func New(opts Options) *Client {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.IDs == nil {
		opts.IDs = chat.UUIDGenerator{}
	}

	diagLog := diag.New(opts.Clock)
	if opts.Logger == nil {
		// Writing to stderr would corrupt the alt-screen display, so
		// background log records surface in the diagnostics pane.
		opts.Logger = slog.New(diag.NewHandler(diagLog, slog.LevelWarn))
	}

	c := &Client{
		log:         chat.NewLog(opts.Clock, opts.IDs),
		files:       chat.NewFileStore(),
		diag:        diagLog,
		logger:      opts.Logger,
		ids:         opts.IDs,
		downloadDir: opts.DownloadDir,
		autoConnect: opts.AutoConnect,
		loopDone:    make(chan struct{}),
	}
	c.session = session.New(opts.Transport, opts.Logger)
	c.typing = chat.NewTypingController(opts.Clock, opts.TypingDebounce, c.broadcastTyping)

	c.log.SetNotify(c.notifyChanged)
	c.diag.SetNotify(c.notifyChanged)

	go c.run()
	return c
}

// SetNotify installs a callback invoked after any observable change:
// log mutation, diagnostic entry, state transition, typing flag. The
// presentation layer uses it to schedule a refresh. Invoked from
// client goroutines; the callback must not block.
func (c *Client) SetNotify(fn func()) {
	c.notifyMu.Lock()
	c.notify = fn
	c.notifyMu.Unlock()
}

func (c *Client) notifyChanged() {
	c.notifyMu.Lock()
	fn := c.notify
	c.notifyMu.Unlock()
	if fn != nil {
		fn()
	}
}

// Close powers off and stops the event loop.
func (c *Client) Close() {
	c.typing.Cancel()
	c.session.Close()
	<-c.loopDone
}

// SetIdentity validates and adopts an identity. While powered on this
// triggers a full re-registration with the new identity.
func (c *Client) SetIdentity(id string) error {
	if err := identity.Validate(id); err != nil {
		c.diag.Errorf("invalid identity %q: %v", id, err)
		return err
	}
	c.session.SetIdentity(id)
	c.diag.Infof("identity set to %s", id)
	return nil
}

// PowerOn boots the session.
func (c *Client) PowerOn() error {
	if err := c.session.PowerOn(); err != nil {
		c.diag.Errorf("power on failed: %v", err)
		return err
	}
	return nil
}

// PowerOff tears everything down. The conversation log survives; only
// the registration and link are dropped.
func (c *Client) PowerOff() {
	c.typing.Cancel()
	c.session.PowerOff()
	c.typing.ClearRemote()
	c.diag.Infof("powered off")
}

// Connect dials target.
func (c *Client) Connect(target string) error {
	if err := c.session.Connect(target); err != nil {
		switch {
		case errors.Is(err, session.ErrSelfConnect):
			c.diag.Warningf("cannot connect to your own identity")
		case errors.Is(err, session.ErrNotReady):
			c.diag.Warningf("cannot connect while %s", c.session.State())
		default:
			c.diag.Errorf("connect to %s failed: %v", target, err)
		}
		return err
	}
	c.diag.Infof("connecting to %s", target)
	return nil
}

// Disconnect closes the active link. The typing-stopped broadcast goes
// out before the channel drops.
func (c *Client) Disconnect() error {
	c.typing.Stop()
	if err := c.session.Disconnect(); err != nil {
		c.diag.Warningf("disconnect: %v", err)
		return err
	}
	return nil
}

// SendText broadcasts a text envelope and appends the local message
// with status sent. replyTo optionally names an earlier message id; the
// reference is resolved and frozen now, not live-updated later. Without
// an active link nothing is appended and only a diagnostic is produced.
func (c *Client) SendText(content, replyTo string) (chat.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	localRef, wireRef := c.resolveReply(replyTo)

	payload, err := wire.Encode(wire.Text{Content: content, Reply: wireRef})
	if err != nil {
		c.diag.Errorf("encoding message failed: %v", err)
		return chat.Message{}, err
	}
	if err := c.sendPayload(payload); err != nil {
		return chat.Message{}, err
	}

	c.typing.Stop()
	return c.log.AppendLocalText(content, localRef), nil
}

// SendFile broadcasts the complete payload in one file envelope and
// appends the local message with status sending. The payload is
// retrievable locally right away, before any acknowledgment; status
// advances to delivered only when the peer's ack arrives. There is no
// retry — an unacknowledged transfer stays sending indefinitely.
func (c *Client) SendFile(name, mimeType string, payload []byte) (chat.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.ids.NewID()
	size := uint64(len(payload))
	if size > wire.MaxFileSize {
		err := fmt.Errorf("client: %s exceeds the %s transfer limit", name, humanize.Bytes(wire.MaxFileSize))
		c.diag.Errorf("cannot send %s: %v", name, err)
		return chat.Message{}, err
	}
	tag, compressed := wire.CompressPayload(mimeType, payload)

	raw, err := wire.Encode(wire.File{
		ID:          id,
		Name:        name,
		Size:        size,
		MimeType:    mimeType,
		Digest:      chat.Digest(payload),
		Compression: tag,
		Payload:     compressed,
	})
	if err != nil {
		c.diag.Errorf("encoding file envelope failed: %v", err)
		return chat.Message{}, err
	}
	if err := c.sendPayload(raw); err != nil {
		return chat.Message{}, err
	}

	c.files.Put(id, name, mimeType, payload)
	c.typing.Stop()
	c.diag.Infof("sending %s", chat.DescribeFile(name, size))

	return c.log.AppendLocalFile(id, chat.DescribeFile(name, size), &chat.FileInfo{
		Name:     name,
		Size:     size,
		MimeType: mimeType,
		HandleID: id,
	}), nil
}

// Edit broadcasts an edit for a locally authored message and applies it
// to the log. No-op without an active link.
func (c *Client) Edit(id, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	message, ok := c.log.Get(id)
	if !ok || message.Sender != chat.SenderLocal {
		return ErrNotLocalMessage
	}

	payload, err := wire.Encode(wire.Edit{MessageID: id, Content: content})
	if err != nil {
		return err
	}
	if err := c.sendPayload(payload); err != nil {
		return err
	}
	c.log.Edit(id, content)
	return nil
}

// Delete broadcasts a delete for a locally authored message and
// tombstones it in the log. No-op without an active link.
func (c *Client) Delete(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	message, ok := c.log.Get(id)
	if !ok || message.Sender != chat.SenderLocal {
		return ErrNotLocalMessage
	}

	payload, err := wire.Encode(wire.Delete{MessageID: id})
	if err != nil {
		return err
	}
	if err := c.sendPayload(payload); err != nil {
		return err
	}
	c.log.Delete(id)
	return nil
}

// sendPayload hands one payload to the session, translating the
// no-link rejection into a user-visible diagnostic. The log is never
// mutated on failure.
func (c *Client) sendPayload(payload []byte) error {
	if err := c.session.Send(payload); err != nil {
		if errors.Is(err, session.ErrNoActiveLink) {
			c.diag.Warningf("no active link")
		} else {
			c.diag.Errorf("send failed: %v", err)
		}
		return err
	}
	return nil
}

// InputActivity records a local input mutation for the typing
// broadcast. Harmless without an active link.
func (c *Client) InputActivity() {
	if c.session.State() == session.StateConnected {
		c.typing.Touch()
	}
}

// broadcastTyping is the TypingController's transmit hook. A missing
// link is expected (typing into a dead session) and swallowed.
func (c *Client) broadcastTyping(isTyping bool) {
	payload, err := wire.Encode(wire.Typing{IsTyping: isTyping})
	if err != nil {
		return
	}
	if err := c.session.Send(payload); err != nil && !errors.Is(err, session.ErrNoActiveLink) {
		c.logger.Warn("typing broadcast failed", "error", err)
	}
}

// SaveFile writes a transferred payload into the download directory
// and returns the written path.
func (c *Client) SaveFile(id string) (string, error) {
	file, ok := c.files.Get(id)
	if !ok {
		return "", fmt.Errorf("client: no payload for message %s", id)
	}
	path, err := file.SaveTo(c.downloadDir)
	if err != nil {
		c.diag.Errorf("saving %s failed: %v", file.Name, err)
		return "", err
	}
	c.diag.Successf("saved %s", path)
	return path, nil
}

// File returns the stored payload handle for a message id.
func (c *Client) File(id string) (*chat.StoredFile, bool) {
	return c.files.Get(id)
}

// ClearConversation destroys the conversation log and retained
// payloads. Diagnostics survive.
func (c *Client) ClearConversation() {
	c.log.Clear()
	c.files.Clear()
	c.diag.Infof("conversation cleared")
}

// ClearDiagnostics empties the diagnostic feed.
func (c *Client) ClearDiagnostics() {
	c.diag.Clear()
}

// Messages returns the conversation in append order, tombstones
// included.
func (c *Client) Messages() []chat.Message { return c.log.Snapshot() }

// Diagnostics returns the diagnostic feed in append order.
func (c *Client) Diagnostics() []diag.Entry { return c.diag.Snapshot() }

// State returns the session state.
func (c *Client) State() session.State { return c.session.State() }

// Identity returns the chosen identity.
func (c *Client) Identity() string { return c.session.Identity() }

// Peer returns the linked peer's identity, or "".
func (c *Client) Peer() string { return c.session.Peer() }

// RemoteTyping reports whether the peer is typing.
func (c *Client) RemoteTyping() bool { return c.typing.RemoteTyping() }

// run is the event loop: session events are applied strictly in
// arrival order on this one goroutine.
func (c *Client) run() {
	defer close(c.loopDone)
	for event := range c.session.Events() {
		c.handleEvent(event)
		c.notifyChanged()
	}
}

func (c *Client) handleEvent(event session.Event) {
	switch e := event.(type) {
	case session.StateChanged:
		if e.State == session.StateReady {
			c.maybeAutoConnect()
		}

	case session.RegistrationFailed:
		if e.Collision {
			c.diag.Errorf("identity %s is already taken", e.Identity)
		} else {
			c.diag.Errorf("registration failed: %v", e.Err)
		}

	case session.ConnectFailed:
		c.diag.Errorf("could not connect to %s: %v", e.Target, e.Err)

	case session.PeerLinked:
		c.log.AppendSystem(fmt.Sprintf("linked with %s", e.Peer))
		c.diag.Successf("linked with %s", e.Peer)

	case session.PeerUnlinked:
		c.typing.Cancel()
		c.typing.ClearRemote()
		c.log.AppendSystem(fmt.Sprintf("link with %s closed", e.Peer))
		if e.Err != nil {
			c.diag.Warningf("link with %s failed: %v", e.Peer, e.Err)
		} else {
			c.diag.Infof("link with %s closed", e.Peer)
		}

	case session.OfferRejected:
		c.diag.Warningf("refused connection from %s: a link is already active", e.Peer)

	case session.InboundPayload:
		c.handlePayload(e.Peer, e.Payload)
	}
}

// maybeAutoConnect fires the connect-by-link target exactly once per
// process, on first entry into ready.
func (c *Client) maybeAutoConnect() {
	c.mu.Lock()
	target := c.autoConnect
	fired := c.autoConnectDone
	c.autoConnectDone = true
	c.mu.Unlock()

	if target == "" || fired {
		return
	}
	c.diag.Infof("auto-connecting to %s", target)
	if err := c.session.Connect(target); err != nil {
		c.diag.Warningf("auto-connect to %s failed: %v", target, err)
	}
}

// handlePayload decodes one inbound payload and dispatches it.
// Malformed payloads are dropped with a diagnostic.
//
// Runs under c.mu so a remote signal can never interleave with a local
// action's broadcast-then-mutate sequence. In particular an ack racing
// SendFile waits here until the local record exists, instead of
// no-opping against an absent id.
func (c *Client) handlePayload(peer string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	envelope, err := wire.Decode(payload)
	if err != nil {
		c.logger.Warn("dropping malformed payload", "peer", peer, "error", err)
		c.diag.Warningf("dropped malformed payload from %s: %v", peer, err)
		return
	}

	switch e := envelope.(type) {
	case wire.Text:
		c.typing.ClearRemote()
		c.log.AppendRemoteText(peer, e.Content, c.mapInboundReply(e.Reply))

	case wire.File:
		c.typing.ClearRemote()
		c.applyRemoteFile(peer, e)

	case wire.Ack:
		if c.log.Ack(e.MessageID) {
			c.diag.Successf("message %s delivered", e.MessageID)
		}

	case wire.Edit:
		c.log.Edit(e.MessageID, e.Content)

	case wire.Delete:
		c.log.Delete(e.MessageID)

	case wire.Typing:
		c.typing.SetRemote(e.IsTyping)
	}
}

// applyRemoteFile reconstructs an inbound transfer, acknowledges it,
// and appends the remote message. A digest mismatch is surfaced but
// the payload is still delivered — the ack acknowledges receipt, not
// integrity.
func (c *Client) applyRemoteFile(peer string, e wire.File) {
	payload, err := wire.DecompressPayload(e.Compression, e.Payload, e.Size)
	if err != nil {
		c.diag.Warningf("dropped undecodable file %s from %s: %v", e.Name, peer, err)
		return
	}
	if !chat.DigestMatches(payload, e.Digest) {
		c.diag.Warningf("digest mismatch on %s from %s", e.Name, peer)
	}

	c.files.Put(e.ID, e.Name, e.MimeType, payload)
	c.log.AppendRemoteFile(peer, e.ID, chat.DescribeFile(e.Name, e.Size), &chat.FileInfo{
		Name:     e.Name,
		Size:     e.Size,
		MimeType: e.MimeType,
		HandleID: e.ID,
	})

	if ack, err := wire.Encode(wire.Ack{MessageID: e.ID}); err == nil {
		if err := c.session.Send(ack); err != nil {
			c.logger.Warn("ack send failed", "peer", peer, "error", err)
		}
	}
	c.diag.Successf("received %s from %s", chat.DescribeFile(e.Name, e.Size), peer)
}

// resolveReply freezes a reply reference in both log form and wire
// form. The wire form carries the referenced author's identity string;
// the receiver maps it back to local/remote by comparing with its own.
func (c *Client) resolveReply(replyTo string) (*chat.ReplyRef, *wire.ReplyRef) {
	if replyTo == "" {
		return nil, nil
	}
	localRef := c.log.ResolveReply(replyTo)
	if localRef == nil {
		return nil, nil
	}

	var senderIdentity string
	switch localRef.Sender {
	case chat.SenderLocal:
		senderIdentity = c.session.Identity()
	case chat.SenderRemote:
		if message, ok := c.log.Get(replyTo); ok {
			senderIdentity = message.SenderIdentity
		}
	}

	return localRef, &wire.ReplyRef{
		ID:      localRef.ID,
		Sender:  senderIdentity,
		Content: localRef.Preview,
	}
}

// mapInboundReply converts a wire reply reference into log form from
// the receiver's point of view.
func (c *Client) mapInboundReply(ref *wire.ReplyRef) *chat.ReplyRef {
	if ref == nil {
		return nil
	}
	sender := chat.SenderRemote
	if ref.Sender == c.session.Identity() {
		sender = chat.SenderLocal
	}
	return &chat.ReplyRef{
		ID:      ref.ID,
		Sender:  sender,
		Preview: ref.Content,
	}
}
