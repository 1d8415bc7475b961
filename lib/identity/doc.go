// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

// Package identity handles the locally chosen identity string a node
// registers with the transport: validation, random generation for
// first runs, and persistence across restarts.
//
// An identity is opaque and globally unique by convention only; the
// transport detects collisions at registration time. Exactly one
// identity is active per running node, and the single persisted key
// (the chosen identity) is the only state that survives a restart.
package identity
