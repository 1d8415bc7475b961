// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the peerwire
// client.
//
// Configuration is loaded from a single YAML file specified by:
//   - PEERWIRE_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. Absent fields take
// the defaults from [Default]. Running without a config file at all is
// supported and uses the defaults unchanged.
package config
