// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

// Package session owns the node's connection lifecycle: one identity
// registration and at most one open channel at a time.
//
// A [Session] moves through the states Offline → Initializing → Ready
// → Connecting → Connected, with Error as the terminal registration
// failure state. Every transition and every inbound payload is
// reported as an [Event] on the Events channel, in the order the
// transitions happened. Operations never block on the network:
// registration and dialing run in background goroutines and surface
// their outcome as events.
//
// The session is the exclusive owner of the registration and channel
// handles. A generation counter invalidates callbacks from superseded
// registrations (power-off, identity change), and a link sequence
// number invalidates callbacks from superseded channels, so a stale
// dial result or channel closure can never mutate current state.
package session
