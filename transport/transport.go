// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
)

// Transport opens identity registrations. Implementations:
// [MemoryTransport] (in-process) and [WebRTCTransport] (pion data
// channels with pluggable signaling).
type Transport interface {
	// Register claims identity and returns a live Registration.
	// Returns ErrIdentityTaken if another node currently holds the
	// identity.
	Register(ctx context.Context, identity string) (Registration, error)
}

// Registration is a live claim on an identity. Exactly one
// registration per node is active at a time; changing identity closes
// the old registration before opening a new one.
type Registration interface {
	// Identity returns the claimed identity string.
	Identity() string

	// Connect dials the peer registered as target and returns an open
	// channel. Blocks until the channel opens, ctx expires, or the
	// dial fails.
	Connect(ctx context.Context, target string) (Channel, error)

	// Offers delivers channels opened by remote peers. The channel is
	// never closed; select on Done for termination.
	Offers() <-chan Channel

	// Done is closed when the registration terminates.
	Done() <-chan struct{}

	// Close releases the identity claim and stops delivering offers.
	// Idempotent. Open channels are not closed implicitly — their
	// owner closes them.
	Close() error
}

// Channel is a reliable, ordered, message-oriented pipe to one peer.
type Channel interface {
	// RemoteIdentity returns the peer's identity string.
	RemoteIdentity() string

	// Send transmits one payload. Payloads arrive whole and in send
	// order. Returns ErrChannelClosed after the channel terminates.
	Send(payload []byte) error

	// Receive delivers inbound payloads in arrival order. The channel
	// is never closed; select on Done for termination.
	Receive() <-chan []byte

	// Done is closed when the channel terminates, whether by local
	// close, remote close, or a transport fault.
	Done() <-chan struct{}

	// Err returns the terminating fault, or nil for a clean close.
	// Valid only after Done is closed.
	Err() error

	// Close terminates the channel on both ends. Idempotent.
	Close() error
}

// Errors returned by transport implementations. Callers classify with
// errors.Is.
var (
	// ErrIdentityTaken means registration failed because the identity
	// is already claimed by another node.
	ErrIdentityTaken = errors.New("transport: identity already claimed")

	// ErrUnknownIdentity means the dial target is not registered.
	ErrUnknownIdentity = errors.New("transport: no such identity")

	// ErrRegistrationClosed means the operation raced a Close of the
	// registration it was using.
	ErrRegistrationClosed = errors.New("transport: registration closed")

	// ErrChannelClosed means a send was attempted on a terminated
	// channel.
	ErrChannelClosed = errors.New("transport: channel closed")
)
