package pngchunk

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"unicode/utf8"
)

const (
	// LengthSize is the width of the big-endian length field.
	LengthSize = 4
	// CRCSize is the width of the big-endian CRC field.
	CRCSize = 4
	// FrameOverhead is the number of bytes a chunk frame adds around its data.
	FrameOverhead = LengthSize + ChunkTypeSize + CRCSize
)

// Chunk is one framed PNG record. Length and CRC are derived from the
// type and data and are never stored.
type Chunk struct {
	chunkType ChunkType
	data      []byte
}

// NewChunk builds a chunk from a type and payload without validation.
// The chunk takes ownership of data.
func NewChunk(chunkType ChunkType, data []byte) *Chunk {
	return &Chunk{
		chunkType: chunkType,
		data:      data,
	}
}

// DecodeChunk parses a single chunk frame from the start of b and verifies
// its CRC. Bytes after the frame are ignored; the frame occupies
// FrameOverhead+Length() bytes.
func DecodeChunk(b []byte) (*Chunk, error) {
	if len(b) < FrameOverhead {
		return nil, ErrTooShort.
			WithMessage("chunk frame too short").
			WithDetail("need", FrameOverhead).
			WithDetail("have", len(b))
	}

	length := binary.BigEndian.Uint32(b[:LengthSize])
	rest := b[LengthSize:]

	var typeBytes [ChunkTypeSize]byte
	copy(typeBytes[:], rest[:ChunkTypeSize])
	chunkType, err := ChunkTypeFromBytes(typeBytes)
	if err != nil {
		return nil, err
	}
	rest = rest[ChunkTypeSize:]

	// rest still holds the CRC, so both must fit after the data.
	if uint64(len(rest)) < uint64(length)+CRCSize {
		return nil, ErrTooShort.
			WithMessage("chunk data shorter than declared length").
			WithDetail("chunkType", chunkType.String()).
			WithDetail("need", uint64(length)+CRCSize).
			WithDetail("have", len(rest))
	}

	end := int(length)
	data := make([]byte, end)
	copy(data, rest[:end])
	stored := binary.BigEndian.Uint32(rest[end : end+CRCSize])

	c := &Chunk{chunkType: chunkType, data: data}
	if actual := c.CRC(); actual != stored {
		return nil, ErrCRCMismatch.
			WithDetail("chunkType", chunkType.String()).
			WithDetail("expected", stored).
			WithDetail("actual", actual)
	}
	return c, nil
}

// Length returns the payload size in bytes.
func (c *Chunk) Length() uint32 {
	return uint32(len(c.data))
}

// ChunkType returns the chunk's type code.
func (c *Chunk) ChunkType() ChunkType {
	return c.chunkType
}

// Data returns the payload. The slice is owned by the chunk.
func (c *Chunk) Data() []byte {
	return c.data
}

// CRC computes CRC-32 (IEEE) over the type bytes followed by the data.
func (c *Chunk) CRC() uint32 {
	h := crc32.NewIEEE()
	h.Write(c.chunkType.data[:])
	h.Write(c.data)
	return h.Sum32()
}

// DataAsString returns the payload as text.
func (c *Chunk) DataAsString() (string, error) {
	if !utf8.Valid(c.data) {
		return "", ErrInvalidUTF8.WithDetail("chunkType", c.chunkType.String())
	}
	return string(c.data), nil
}

// Bytes serializes the chunk: length, type, data, CRC.
func (c *Chunk) Bytes() []byte {
	out := make([]byte, 0, FrameOverhead+len(c.data))
	return c.appendTo(out)
}

func (c *Chunk) appendTo(out []byte) []byte {
	out = binary.BigEndian.AppendUint32(out, c.Length())
	out = append(out, c.chunkType.data[:]...)
	out = append(out, c.data...)
	return binary.BigEndian.AppendUint32(out, c.CRC())
}

func (c *Chunk) String() string {
	text, err := c.DataAsString()
	if err != nil {
		text = fmt.Sprintf("<binary %d bytes>", len(c.data))
	}
	return fmt.Sprintf("%s: %s", c.chunkType, text)
}
