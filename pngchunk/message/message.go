// Package message converts between user text and chunk payloads. Payloads
// are either raw UTF-8 or a marked zlib stream, following the convention of
// PNG's compressed text chunks.
package message

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/flaneur2020/pngchunk/pngchunk"
	"github.com/klauspost/compress/zlib"
)

// CompressedPrefix marks a payload as a zlib stream. The NUL byte keeps it
// from colliding with ordinary text.
const CompressedPrefix = "zlib\x00"

// MaxInflatedSize bounds the decompressed size of a payload.
const MaxInflatedSize = 16 << 20

// ErrCorruptPayload is returned when a marked payload is not a valid zlib stream
var ErrCorruptPayload = &pngchunk.Error{Code: "CORRUPT_PAYLOAD", Message: "compressed payload is corrupt"}

// Encode turns text into a chunk payload, compressing it when asked.
func Encode(text string, compressed bool) ([]byte, error) {
	if !compressed {
		return []byte(text), nil
	}

	var buf bytes.Buffer
	buf.WriteString(CompressedPrefix)
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("failed to create zlib writer: %w", err)
	}
	if _, err := zw.Write([]byte(text)); err != nil {
		return nil, fmt.Errorf("failed to compress message: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish zlib stream: %w", err)
	}
	return buf.Bytes(), nil
}

// IsCompressed reports whether payload carries the compressed marker.
func IsCompressed(payload []byte) bool {
	return bytes.HasPrefix(payload, []byte(CompressedPrefix))
}

// Decode returns the text held in payload, inflating it if it is marked
// as compressed.
func Decode(payload []byte) (string, error) {
	text := payload
	if IsCompressed(payload) {
		inflated, err := inflate(payload[len(CompressedPrefix):])
		if err != nil {
			return "", err
		}
		text = inflated
	}
	if !utf8.Valid(text) {
		return "", pngchunk.ErrInvalidUTF8.WithDetail("size", len(text))
	}
	return string(text), nil
}

// DecodeChunk is Decode applied to a chunk's payload.
func DecodeChunk(c *pngchunk.Chunk) (string, error) {
	text, err := Decode(c.Data())
	if err != nil {
		if pngErr, ok := err.(*pngchunk.Error); ok {
			return "", pngErr.WithDetail("chunkType", c.ChunkType().String())
		}
		return "", err
	}
	return text, nil
}

func inflate(stream []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(stream))
	if err != nil {
		return nil, ErrCorruptPayload.WithCause(err)
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, MaxInflatedSize+1))
	if err != nil {
		return nil, ErrCorruptPayload.WithCause(err)
	}
	if len(out) > MaxInflatedSize {
		return nil, ErrCorruptPayload.
			WithMessage("compressed payload exceeds size limit").
			WithDetail("limit", MaxInflatedSize)
	}
	return out, nil
}
