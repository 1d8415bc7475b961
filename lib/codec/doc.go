// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Peerwire's standard CBOR encoding configuration.
//
// Everything that crosses a process boundary or touches disk uses CBOR:
// the channel envelope protocol (wire package) and the persisted
// identity state file (lib/identity). This package holds the shared
// encoding and decoding modes so that every package encodes identically
// without duplicating configuration.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items. Same
// logical data always produces identical bytes. The decoder accepts
// standard CBOR and silently ignores unknown fields for forward
// compatibility, so an older client can receive envelopes from a newer
// one without erroring on fields it does not know.
package codec
