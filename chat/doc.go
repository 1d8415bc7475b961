// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

// Package chat holds the conversation state: the message log and its
// reducer operations, the typing signal controller, and the store for
// received and sent file payloads.
//
// The [Log] is an ordered, append-mostly collection of message records
// with in-place mutation for status, edit, and delete, keyed by a
// locally unique id from an injected [IDGenerator]. Every mutation is
// idempotent against replay: an ack, edit, or delete referencing an
// unknown id is a silent no-op, a repeated ack leaves status at
// delivered, and a delete never un-tombstones. Status only ever
// advances sending → sent → delivered.
//
// The log knows nothing about transports or envelopes — the client
// package pairs each log operation with the corresponding envelope
// send so the two happen atomically with respect to the caller.
package chat
