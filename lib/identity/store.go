// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/peerwire-chat/peerwire/lib/codec"
)

// Store persists the chosen identity as a small CBOR state file. It is
// a single key-value pair: read at startup, written whenever the user
// changes identity.
type Store struct {
	path string
}

// stateFile is the on-disk shape. CBOR-only, never JSON.
type stateFile struct {
	Identity string `cbor:"identity"`
}

// NewStore creates a store backed by the file at path. The file and its
// parent directory are created on first Save.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns the persisted identity, or "" if none has been saved
// yet. A missing file is not an error; a corrupt one is.
func (s *Store) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("identity: read state file %s: %w", s.path, err)
	}

	var state stateFile
	if err := codec.Unmarshal(data, &state); err != nil {
		return "", fmt.Errorf("identity: decode state file %s: %w", s.path, err)
	}
	return state.Identity, nil
}

// Save persists id, replacing any previous value. The write is atomic:
// a temp file in the same directory is renamed over the target so a
// crash never leaves a torn state file.
func (s *Store) Save(id string) error {
	if err := Validate(id); err != nil {
		return err
	}

	data, err := codec.Marshal(stateFile{Identity: id})
	if err != nil {
		return fmt.Errorf("identity: encode state file: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("identity: create state dir %s: %w", dir, err)
	}

	temp, err := os.CreateTemp(dir, ".identity-*")
	if err != nil {
		return fmt.Errorf("identity: create temp file: %w", err)
	}
	tempName := temp.Name()
	if _, err := temp.Write(data); err != nil {
		temp.Close()
		os.Remove(tempName)
		return fmt.Errorf("identity: write temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("identity: close temp file: %w", err)
	}
	if err := os.Rename(tempName, s.path); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("identity: replace state file: %w", err)
	}
	return nil
}
