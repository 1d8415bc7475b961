// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStorePutGet(t *testing.T) {
	store := NewFileStore()
	payload := []byte("file contents")

	put := store.Put("f1", "notes.txt", "text/plain", payload)
	if put.Size != uint64(len(payload)) {
		t.Errorf("Size = %d, want %d", put.Size, len(payload))
	}
	if len(put.Digest) != 32 {
		t.Errorf("digest length = %d, want 32", len(put.Digest))
	}

	got, ok := store.Get("f1")
	if !ok {
		t.Fatal("Get(f1) missed")
	}
	if !bytes.Equal(got.Bytes(), payload) {
		t.Error("payload mismatch")
	}

	// Bytes returns a copy; mutating it leaves the store intact.
	leaked := got.Bytes()
	leaked[0] = 'X'
	if !bytes.Equal(got.Bytes(), payload) {
		t.Error("Bytes() exposed internal storage")
	}

	if _, ok := store.Get("missing"); ok {
		t.Error("Get(missing) hit")
	}
}

func TestFileStorePutCopiesPayload(t *testing.T) {
	store := NewFileStore()
	payload := []byte("mutable")
	store.Put("f1", "a", "text/plain", payload)
	payload[0] = 'X'

	got, _ := store.Get("f1")
	if got.Bytes()[0] != 'm' {
		t.Error("Put did not copy the payload")
	}
}

func TestFileStoreClear(t *testing.T) {
	store := NewFileStore()
	store.Put("f1", "a", "text/plain", []byte("x"))
	store.Clear()
	if _, ok := store.Get("f1"); ok {
		t.Error("file survived Clear")
	}
}

func TestSaveTo(t *testing.T) {
	store := NewFileStore()
	payload := []byte("saved bytes")
	file := store.Put("f1", "report.txt", "text/plain", payload)

	dir := filepath.Join(t.TempDir(), "downloads")
	path, err := file.SaveTo(dir)
	if err != nil {
		t.Fatalf("SaveTo error: %v", err)
	}
	if filepath.Base(path) != "report.txt" {
		t.Errorf("saved as %q", path)
	}
	written, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(written, payload) {
		t.Error("written bytes mismatch")
	}
}

func TestSaveToStripsDirectoryComponents(t *testing.T) {
	store := NewFileStore()
	file := store.Put("f1", "../../escape.txt", "text/plain", []byte("x"))

	dir := t.TempDir()
	path, err := file.SaveTo(dir)
	if err != nil {
		t.Fatalf("SaveTo error: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("file escaped the download dir: %q", path)
	}
}

func TestDigestMatches(t *testing.T) {
	payload := []byte("digest me")
	digest := Digest(payload)

	if !DigestMatches(payload, digest) {
		t.Error("matching digest rejected")
	}
	if DigestMatches([]byte("tampered"), digest) {
		t.Error("tampered payload accepted")
	}
	// Empty expected digest means the sender did not provide one.
	if !DigestMatches(payload, nil) {
		t.Error("absent digest rejected")
	}
}

func TestDescribeFile(t *testing.T) {
	got := DescribeFile("photo.png", 1200000)
	if got != "photo.png (1.2 MB)" {
		t.Errorf("DescribeFile = %q", got)
	}
}
