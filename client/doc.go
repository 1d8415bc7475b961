// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

// Package client wires the session state machine, conversation log,
// typing controller, and file store into the chat client core.
//
// A [Client] consumes session events on a single goroutine and applies
// them in arrival order: inbound payloads are decoded and dispatched to
// the log or typing controller, lifecycle transitions produce
// system-authored messages and diagnostic entries, and malformed
// payloads are dropped with a diagnostic, never a crash. Local actions
// (send, edit, delete) broadcast their envelope and mutate the log
// atomically with respect to a single caller.
package client
