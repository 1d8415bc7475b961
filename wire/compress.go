// Copyright 2026 The Peerwire Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"fmt"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// MaxFileSize caps the declared uncompressed size of a file payload.
// Transfers are whole-message and held fully in memory, and the
// declared size drives the decompression buffer allocation, so an
// inbound envelope must never be able to demand an unbounded amount of
// memory.
const MaxFileSize = 256 << 20

// CompressionTag identifies how a file envelope's payload is
// compressed. Tags are protocol constants — changing them breaks wire
// compatibility.
type CompressionTag uint8

const (
	// CompressionNone indicates an uncompressed payload. Used for
	// already-compressed content (images, video, archives) where
	// compression adds CPU cost without reducing size.
	CompressionNone CompressionTag = 0

	// CompressionLZ4 indicates LZ4 block compression. Fast default
	// for binary payloads of unknown or mixed content.
	CompressionLZ4 CompressionTag = 1

	// CompressionZstd indicates zstd compression. Better ratios for
	// text-like payloads (source, JSON, logs).
	CompressionZstd CompressionTag = 2
)

// String returns the human-readable name of a compression tag.
func (tag CompressionTag) String() string {
	switch tag {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(tag))
	}
}

// zstd encoder/decoder are stateless for EncodeAll/DecodeAll use and
// shared process-wide.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("wire: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("wire: zstd decoder initialization failed: " + err.Error())
	}
}

// CompressPayload compresses a file payload for the wire, choosing the
// algorithm by MIME type: none for already-compressed content, zstd
// for text-like content, LZ4 otherwise. Falls back to none when
// compression does not shrink the payload.
func CompressPayload(mimeType string, payload []byte) (CompressionTag, []byte) {
	if len(payload) == 0 {
		return CompressionNone, payload
	}

	// Text-like types are checked before the incompressible prefixes
	// so SVG (image/ prefix, but text) still compresses.
	if textLikeMIME(mimeType) {
		compressed := zstdEncoder.EncodeAll(payload, nil)
		if len(compressed) < len(payload) {
			return CompressionZstd, compressed
		}
		return CompressionNone, payload
	}

	if incompressibleMIME(mimeType) {
		return CompressionNone, payload
	}

	buffer := make([]byte, lz4.CompressBlockBound(len(payload)))
	n, err := lz4.CompressBlock(payload, buffer, nil)
	if err != nil || n == 0 || n >= len(payload) {
		// n == 0 means incompressible.
		return CompressionNone, payload
	}
	return CompressionLZ4, buffer[:n]
}

// DecompressPayload reverses CompressPayload. size is the expected
// uncompressed length from the envelope; a mismatch is an error.
func DecompressPayload(tag CompressionTag, payload []byte, size uint64) ([]byte, error) {
	// size is attacker-controlled and sizes the output buffer below.
	if size > MaxFileSize {
		return nil, fmt.Errorf("wire: declared size %d exceeds the %d byte limit", size, MaxFileSize)
	}

	switch tag {
	case CompressionNone:
		if uint64(len(payload)) != size {
			return nil, fmt.Errorf("wire: payload length %d does not match declared size %d", len(payload), size)
		}
		return payload, nil

	case CompressionLZ4:
		buffer := make([]byte, size)
		n, err := lz4.UncompressBlock(payload, buffer)
		if err != nil {
			return nil, fmt.Errorf("wire: lz4 decompress: %w", err)
		}
		if uint64(n) != size {
			return nil, fmt.Errorf("wire: lz4 decompressed to %d bytes, declared size %d", n, size)
		}
		return buffer[:n], nil

	case CompressionZstd:
		decompressed, err := zstdDecoder.DecodeAll(payload, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("wire: zstd decompress: %w", err)
		}
		if uint64(len(decompressed)) != size {
			return nil, fmt.Errorf("wire: zstd decompressed to %d bytes, declared size %d", len(decompressed), size)
		}
		return decompressed, nil

	default:
		return nil, fmt.Errorf("wire: unknown compression tag %d", uint8(tag))
	}
}

// incompressibleMIME reports content that is already compressed.
func incompressibleMIME(mimeType string) bool {
	switch {
	case strings.HasPrefix(mimeType, "image/"),
		strings.HasPrefix(mimeType, "video/"),
		strings.HasPrefix(mimeType, "audio/"):
		return true
	}
	switch mimeType {
	case "application/zip", "application/gzip", "application/x-xz",
		"application/zstd", "application/x-7z-compressed",
		"application/x-bzip2", "application/pdf":
		return true
	}
	return false
}

// textLikeMIME reports content where zstd's better text ratios are
// worth the extra CPU over LZ4.
func textLikeMIME(mimeType string) bool {
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}
	switch mimeType {
	case "application/json", "application/xml", "application/yaml",
		"application/javascript", "application/toml",
		"application/x-ndjson", "image/svg+xml":
		return true
	}
	return false
}
