// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// generatedLength is the length of generated identities. Six characters
// from a 32-symbol alphabet gives a space of ~10^9, plenty for a scheme
// where collisions are detected at registration anyway.
const generatedLength = 6

// generatedAlphabet excludes easily confused symbols (0/O, 1/I) because
// identities are read aloud and typed by hand when sharing a link.
const generatedAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// MaxLength bounds accepted identities. Generous compared to generated
// ones so users can choose memorable names.
const MaxLength = 64

// Validate reports whether s is acceptable as an identity: non-empty,
// at most MaxLength bytes, and limited to letters, digits, '-' and '_'.
func Validate(s string) error {
	if s == "" {
		return fmt.Errorf("identity: empty")
	}
	if len(s) > MaxLength {
		return fmt.Errorf("identity: %d bytes exceeds maximum of %d", len(s), MaxLength)
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return fmt.Errorf("identity: invalid character %q", r)
		}
	}
	return nil
}

// Generate returns a new random identity, e.g. "K7PQ2M". Used on first
// run when no identity has been persisted yet.
func Generate() string {
	buffer := make([]byte, generatedLength)
	if _, err := rand.Read(buffer); err != nil {
		panic("identity: reading random bytes: " + err.Error())
	}
	var b strings.Builder
	b.Grow(generatedLength)
	for _, c := range buffer {
		b.WriteByte(generatedAlphabet[int(c)%len(generatedAlphabet)])
	}
	return b.String()
}
