// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire defines the channel envelope protocol: the tagged
// payloads two peers exchange over an open channel.
//
// An [Envelope] is one of six kinds — [Text], [File], [Ack], [Edit],
// [Delete], [Typing] — encoded as CBOR with a "kind" tag. [Encode] and
// [Decode] are the only entry points; dispatch on the decoded value is
// a type switch over the concrete kinds, with no implicit coercion
// between them. Decode validates required fields per kind and returns
// a [DecodeError] for unknown tags or malformed payloads so callers
// can drop them with a diagnostic instead of crashing.
//
// File payloads optionally carry a compression tag (none, lz4, zstd —
// chosen by MIME type at packaging time) and a BLAKE3 digest of the
// uncompressed bytes so the receiver can verify integrity.
package wire
