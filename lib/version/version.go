// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

// Package version exposes the build version string for the peerwire
// binary.
package version

// version is set at build time via
// -ldflags "-X github.com/peerwire-chat/peerwire/lib/version.version=v1.2.3".
var version = "dev"

// Info returns the build version.
func Info() string { return version }
