// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"sync"
	"time"

	"github.com/peerwire-chat/peerwire/lib/clock"
)

// DefaultTypingDebounce is how long after the last keystroke the
// typing-stopped signal fires when no other delay is configured.
const DefaultTypingDebounce = 1500 * time.Millisecond

// TypingBroadcast sends a typing signal to the peer. The controller
// calls it with true on input and false when typing stops; failures
// (no active link) are the broadcaster's problem to swallow.
type TypingBroadcast func(isTyping bool)

// TypingController owns the local typing debounce timer and the remote
// typing indicator flag.
//
// Local side: every input mutation broadcasts typing-true immediately
// and re-arms the debounce timer; the timer firing broadcasts
// typing-false. Stop broadcasts false right away (message send,
// disconnect), Cancel silences the timer without broadcasting
// (teardown), so a stale false can never fire into a new session.
//
// Remote side: the flag follows incoming typing envelopes directly, no
// debounce; any text or file arrival clears it as an implicit
// typing-stopped.
type TypingController struct {
	mu        sync.Mutex
	clock     clock.Clock
	delay     time.Duration
	broadcast TypingBroadcast

	timer  *clock.Timer
	active bool

	remoteTyping bool
}

// NewTypingController creates a controller. delay <= 0 selects
// DefaultTypingDebounce.
func NewTypingController(clk clock.Clock, delay time.Duration, broadcast TypingBroadcast) *TypingController {
	if delay <= 0 {
		delay = DefaultTypingDebounce
	}
	return &TypingController{
		clock:     clk,
		delay:     delay,
		broadcast: broadcast,
	}
}

// Touch records a local input mutation: broadcasts typing-true and
// re-arms the debounce timer.
func (c *TypingController) Touch() {
	c.mu.Lock()
	c.active = true
	if c.timer != nil {
		c.timer.Reset(c.delay)
	} else {
		c.timer = c.clock.AfterFunc(c.delay, c.debounceFired)
	}
	broadcast := c.broadcast
	c.mu.Unlock()

	broadcast(true)
}

// debounceFired is the timer callback: no input arrived within the
// debounce window.
func (c *TypingController) debounceFired() {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	c.active = false
	broadcast := c.broadcast
	c.mu.Unlock()

	broadcast(false)
}

// Stop cancels the debounce timer and, if a typing-true was
// outstanding, broadcasts typing-false immediately. Called on message
// send and on disconnect.
func (c *TypingController) Stop() {
	c.mu.Lock()
	wasActive := c.active
	c.active = false
	if c.timer != nil {
		c.timer.Stop()
	}
	broadcast := c.broadcast
	c.mu.Unlock()

	if wasActive {
		broadcast(false)
	}
}

// Cancel silences the debounce timer without broadcasting anything.
// Called on teardown, where a late false broadcast could leak into a
// new session.
func (c *TypingController) Cancel() {
	c.mu.Lock()
	c.active = false
	if c.timer != nil {
		c.timer.Stop()
	}
	c.mu.Unlock()
}

// SetRemote sets the remote typing indicator from an inbound typing
// envelope.
func (c *TypingController) SetRemote(isTyping bool) {
	c.mu.Lock()
	c.remoteTyping = isTyping
	c.mu.Unlock()
}

// ClearRemote clears the remote typing indicator: an inbound text or
// file envelope is an implicit typing-stopped, and a lost link leaves
// nobody typing.
func (c *TypingController) ClearRemote() {
	c.SetRemote(false)
}

// RemoteTyping reports whether the peer is currently typing.
func (c *TypingController) RemoteTyping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remoteTyping
}
