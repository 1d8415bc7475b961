// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable that points at the config file.
const EnvVar = "PEERWIRE_CONFIG"

// Config is the master configuration for the peerwire client.
type Config struct {
	// StateDir is where runtime state is stored, currently the
	// persisted identity file.
	StateDir string `yaml:"state_dir"`

	// DownloadDir is where received file payloads are saved on request.
	DownloadDir string `yaml:"download_dir"`

	// TypingDebounce is how long after the last keystroke the client
	// broadcasts a typing-stopped signal.
	TypingDebounce time.Duration `yaml:"typing_debounce"`

	// Signaling configures the rendezvous used by the WebRTC transport
	// to claim identities and exchange session descriptions.
	Signaling SignalingConfig `yaml:"signaling"`

	// ICE configures STUN/TURN servers for NAT traversal.
	ICE ICEConfig `yaml:"ice"`
}

// SignalingConfig configures the signaling rendezvous.
type SignalingConfig struct {
	// URL is the base URL of the rendezvous service. Empty selects the
	// in-process transport (loopback demo mode).
	URL string `yaml:"url"`

	// PollInterval is how often the transport polls the rendezvous for
	// inbound offers and answers.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// ICEConfig configures ICE servers for the WebRTC transport.
type ICEConfig struct {
	Servers []ICEServer `yaml:"servers"`
}

// ICEServer is one STUN or TURN server entry.
type ICEServer struct {
	URLs       []string `yaml:"urls"`
	Username   string   `yaml:"username,omitempty"`
	Credential string   `yaml:"credential,omitempty"`
}

// Default returns the configuration used when no file is provided.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		StateDir:       filepath.Join(home, ".local", "state", "peerwire"),
		DownloadDir:    filepath.Join(home, "Downloads"),
		TypingDebounce: 1500 * time.Millisecond,
		Signaling: SignalingConfig{
			PollInterval: 2 * time.Second,
		},
		ICE: ICEConfig{
			Servers: []ICEServer{
				{URLs: []string{"stun:stun.l.google.com:19302"}},
			},
		},
	}
}

// Load reads the config file at path, applying defaults for absent
// fields. If path is empty, the PEERWIRE_CONFIG environment variable is
// consulted; if that is also empty, Default() is returned.
func Load(path string) (Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.TypingDebounce <= 0 {
		return fmt.Errorf("typing_debounce must be positive, got %v", c.TypingDebounce)
	}
	if c.Signaling.PollInterval <= 0 {
		return fmt.Errorf("signaling.poll_interval must be positive, got %v", c.Signaling.PollInterval)
	}
	return nil
}

// IdentityFile returns the path of the persisted identity state file.
func (c *Config) IdentityFile() string {
	return filepath.Join(c.StateDir, "identity")
}
