// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/zeebo/blake3"
)

// StoredFile is a retained file payload: a sent file kept for local
// reference, or a received file awaiting save. The payload lives in
// memory for the duration of the session — whole-file transfer, no
// chunking, no persistence across restarts.
type StoredFile struct {
	ID       string
	Name     string
	MimeType string
	Size     uint64
	// Digest is the BLAKE3 digest of the payload.
	Digest []byte

	data []byte
}

// Bytes returns a copy of the payload.
func (f *StoredFile) Bytes() []byte {
	out := make([]byte, len(f.data))
	copy(out, f.data)
	return out
}

// SaveTo writes the payload into dir under the transferred file name,
// creating dir if needed. Returns the written path.
func (f *StoredFile) SaveTo(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("chat: create download dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, filepath.Base(f.Name))
	if err := os.WriteFile(path, f.data, 0o644); err != nil {
		return "", fmt.Errorf("chat: save %s: %w", path, err)
	}
	return path, nil
}

// FileStore holds payloads keyed by message id. Safe for concurrent
// use.
type FileStore struct {
	mu    sync.Mutex
	files map[string]*StoredFile
}

// NewFileStore creates an empty store.
func NewFileStore() *FileStore {
	return &FileStore{files: make(map[string]*StoredFile)}
}

// Put stores a payload under id and returns its record, digest
// computed.
func (s *FileStore) Put(id, name, mimeType string, payload []byte) *StoredFile {
	data := make([]byte, len(payload))
	copy(data, payload)

	file := &StoredFile{
		ID:       id,
		Name:     name,
		MimeType: mimeType,
		Size:     uint64(len(data)),
		Digest:   Digest(data),
		data:     data,
	}

	s.mu.Lock()
	s.files[id] = file
	s.mu.Unlock()
	return file
}

// Get returns the stored file for id.
func (s *FileStore) Get(id string) (*StoredFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	file, ok := s.files[id]
	return file, ok
}

// Clear drops all payloads. Paired with Log.Clear.
func (s *FileStore) Clear() {
	s.mu.Lock()
	s.files = make(map[string]*StoredFile)
	s.mu.Unlock()
}

// Digest returns the BLAKE3 digest of payload.
func Digest(payload []byte) []byte {
	sum := blake3.Sum256(payload)
	return sum[:]
}

// DigestMatches reports whether payload hashes to want. An empty want
// (older peer that doesn't send digests) matches anything.
func DigestMatches(payload, want []byte) bool {
	if len(want) == 0 {
		return true
	}
	return bytes.Equal(Digest(payload), want)
}

// DescribeFile renders the human-readable content line for a file
// message, e.g. "photo.png (1.2 MB)".
func DescribeFile(name string, size uint64) string {
	return fmt.Sprintf("%s (%s)", name, humanize.Bytes(size))
}
