// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport provides the peer-to-peer channel layer the chat
// session runs on: register a named identity, connect to another
// identity, and exchange opaque payloads over a reliable, ordered,
// message-oriented channel.
//
// The package defines three interfaces. [Transport] opens identity
// registrations. A [Registration] is a live claim on an identity: it
// dials outbound channels with Connect and surfaces inbound ones on
// Offers. A [Channel] is one bidirectional message pipe to a single
// peer — payloads arrive whole and in order; framing, reliability, and
// encryption are the transport's job, not the caller's.
//
// The production implementation, [WebRTCTransport], uses pion/webrtc
// data channels (ordered, reliable, DTLS-encrypted) with ICE for NAT
// traversal. Signaling is abstracted behind the [Signaler] interface,
// which claims identities and exchanges SDP offers and answers:
// [HTTPSignaler] talks to a rendezvous service over JSON/HTTP;
// [MemorySignaler] is in-process for tests. Connection establishment
// uses vanilla ICE — all candidates are gathered before the SDP is
// published, so signaling needs exactly one offer/answer round-trip.
//
// [MemoryTransport] is a complete in-process implementation used by
// tests and by loopback demo mode: registrations live in a shared
// registry (duplicate claims fail with [ErrIdentityTaken], which is
// how identity collisions surface everywhere), and channels are paired
// in-memory queues.
package transport
