// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import "context"

// Signaler abstracts the rendezvous the WebRTC transport uses for two
// jobs: claiming identities (the collision authority) and exchanging
// session descriptions between peers.
//
// The signaling model is vanilla ICE: all ICE candidates are gathered
// before the SDP is published, so connection establishment requires
// exactly one signaling round-trip (offer → answer).
type Signaler interface {
	// Claim registers identity with the rendezvous. Returns
	// ErrIdentityTaken while another node holds the claim.
	Claim(ctx context.Context, identity string) error

	// Release gives up a claim made by Claim.
	Release(ctx context.Context, identity string) error

	// PublishOffer publishes a complete SDP offer from the identity
	// from directed at target. The implementation stores it where
	// target's PollOffers will find it.
	PublishOffer(ctx context.Context, from, target, sdp string) error

	// PublishAnswer publishes a complete SDP answer from the identity
	// from in response to an offer previously published by offerer.
	PublishAnswer(ctx context.Context, offerer, from, sdp string) error

	// PollOffers returns pending offers directed at identity that have
	// not been returned before.
	PollOffers(ctx context.Context, identity string) ([]SignalMessage, error)

	// PollAnswers returns pending answers to offers originated by
	// identity that have not been returned before.
	PollAnswers(ctx context.Context, identity string) ([]SignalMessage, error)
}

// SignalMessage is one signaling message (offer or answer).
type SignalMessage struct {
	// PeerIdentity is the other party: the offerer for received
	// offers, the answerer for received answers.
	PeerIdentity string

	// SDP is the complete session description with all ICE candidates
	// embedded.
	SDP string

	// Timestamp is the RFC 3339 creation time of the signal.
	Timestamp string
}
