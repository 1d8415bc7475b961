// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time for testability. Production code
// injects [Real]; tests inject [Fake] and drive time with Advance.
//
// The typing debounce timer and the signaling pollers are the only
// timer-driven parts of Peerwire. Both accept a Clock so that tests can
// fire the debounce or a poll tick deterministically instead of
// sleeping.
package clock
