// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

// Package tui is the terminal presentation layer: a bubbletea program
// rendering the conversation transcript, a composer input, the
// connection status bar, and a toggleable diagnostics pane.
//
// The TUI holds no protocol state. It reads snapshots from the client
// on every refresh and funnels all actions (send, connect, edit,
// delete) through the client's operations; a notify hook from the
// client schedules refreshes through the bubbletea message loop.
package tui
