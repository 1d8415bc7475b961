// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

package session

// Event is a session lifecycle notification. Events are delivered on
// Session.Events in the order the underlying transitions happened.
type Event interface {
	isEvent()
}

// StateChanged reports a state machine transition.
type StateChanged struct {
	State State
}

// RegistrationFailed reports that registering the identity failed and
// the session entered StateError. Collision distinguishes an identity
// already claimed by another node from other registration failures.
type RegistrationFailed struct {
	Identity  string
	Collision bool
	Err       error
}

// ConnectFailed reports that an outbound dial failed before a channel
// opened. The session has returned to StateReady.
type ConnectFailed struct {
	Target string
	Err    error
}

// PeerLinked reports a channel opening, in either direction. The
// session is now StateConnected.
type PeerLinked struct {
	Peer string
}

// PeerUnlinked reports the active channel closing. Err is nil for a
// deliberate close (local or remote) and non-nil for a channel fault.
// The session has returned to StateReady.
type PeerUnlinked struct {
	Peer string
	Err  error
}

// OfferRejected reports an inbound offer refused because a channel was
// already active or being established. The existing link is untouched.
type OfferRejected struct {
	Peer string
}

// InboundPayload carries one payload received on the active channel.
type InboundPayload struct {
	Peer    string
	Payload []byte
}

func (StateChanged) isEvent()       {}
func (RegistrationFailed) isEvent() {}
func (ConnectFailed) isEvent()      {}
func (PeerLinked) isEvent()         {}
func (PeerUnlinked) isEvent()       {}
func (OfferRejected) isEvent()      {}
func (InboundPayload) isEvent()     {}
