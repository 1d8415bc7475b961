// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers: channel assertions
// with timeout safety valves, and condition polling for asynchronous
// state transitions.
package testutil
