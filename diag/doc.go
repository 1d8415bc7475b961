// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

// Package diag is the user-visible diagnostic log: the scrollable
// event feed the client shows alongside the conversation. It is not
// chat data — entries are append-only during a session, bulk-cleared
// by the user, and never persisted.
//
// Core components append to a [Log] directly for user-facing events
// (link established, file received, registration failed). [Handler]
// additionally bridges log/slog records into the same Log so that
// structured logging and the on-screen feed stay consistent.
package diag
