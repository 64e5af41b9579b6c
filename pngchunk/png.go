package pngchunk

import (
	"bytes"
	"strings"
)

// SignatureSize is the length of the PNG file signature.
const SignatureSize = 8

// Signature is the fixed prefix of every PNG datastream.
var Signature = [SignatureSize]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

// TerminalChunkType is the type code of the chunk that ends a PNG datastream.
const TerminalChunkType = "IEND"

// Png is a PNG datastream held as an ordered list of chunks.
type Png struct {
	chunks []*Chunk
}

// FromChunks builds a Png from chunks without checking their order.
func FromChunks(chunks []*Chunk) *Png {
	return &Png{chunks: chunks}
}

// Decode parses a complete PNG datastream. Parsing stops after the first
// IEND chunk or at the end of b; anything after IEND is ignored. A failure
// in any chunk fails the whole decode and carries the chunk's byte offset.
func Decode(b []byte) (*Png, error) {
	if len(b) < SignatureSize {
		return nil, ErrBadSignature.
			WithMessage("input shorter than png signature").
			WithDetail("have", len(b))
	}
	if !bytes.Equal(b[:SignatureSize], Signature[:]) {
		return nil, ErrBadSignature.WithDetail("header", printable(b[:SignatureSize]))
	}

	var chunks []*Chunk
	offset := SignatureSize
	for offset < len(b) {
		c, err := DecodeChunk(b[offset:])
		if err != nil {
			return nil, withOffset(err, offset, len(chunks))
		}
		chunks = append(chunks, c)
		offset += FrameOverhead + len(c.data)
		if c.chunkType.String() == TerminalChunkType {
			break
		}
	}
	return &Png{chunks: chunks}, nil
}

func withOffset(err error, offset, index int) error {
	pngErr, ok := err.(*Error)
	if !ok {
		return err
	}
	return pngErr.WithDetail("offset", offset).WithDetail("chunkIndex", index)
}

// Header returns the PNG signature.
func (p *Png) Header() [SignatureSize]byte {
	return Signature
}

// Chunks returns the chunk list in file order. The slice is owned by p.
func (p *Png) Chunks() []*Chunk {
	return p.chunks
}

// AppendChunk adds c just before a trailing IEND chunk, or at the end if
// the list does not end with one.
func (p *Png) AppendChunk(c *Chunk) {
	n := len(p.chunks)
	if n == 0 || p.chunks[n-1].chunkType.String() != TerminalChunkType {
		p.chunks = append(p.chunks, c)
		return
	}
	p.chunks = append(p.chunks, nil)
	p.chunks[n] = p.chunks[n-1]
	p.chunks[n-1] = c
}

// ChunkByType returns the first chunk whose type is chunkType, or nil.
func (p *Png) ChunkByType(chunkType string) *Chunk {
	if i := p.indexOf(chunkType); i >= 0 {
		return p.chunks[i]
	}
	return nil
}

// RemoveFirstChunk removes and returns the first chunk whose type is
// chunkType. The list is left unchanged when nothing matches.
func (p *Png) RemoveFirstChunk(chunkType string) (*Chunk, error) {
	i := p.indexOf(chunkType)
	if i < 0 {
		return nil, ErrChunkNotFound.WithDetail("chunkType", chunkType)
	}
	removed := p.chunks[i]
	copy(p.chunks[i:], p.chunks[i+1:])
	p.chunks[len(p.chunks)-1] = nil
	p.chunks = p.chunks[:len(p.chunks)-1]
	return removed, nil
}

func (p *Png) indexOf(chunkType string) int {
	for i, c := range p.chunks {
		if c.chunkType.String() == chunkType {
			return i
		}
	}
	return -1
}

// Bytes serializes the signature followed by every chunk in list order.
func (p *Png) Bytes() []byte {
	size := SignatureSize
	for _, c := range p.chunks {
		size += FrameOverhead + len(c.data)
	}
	out := make([]byte, 0, size)
	out = append(out, Signature[:]...)
	for _, c := range p.chunks {
		out = c.appendTo(out)
	}
	return out
}

func (p *Png) String() string {
	var sb strings.Builder
	sb.WriteString("Png {\n")
	for _, c := range p.chunks {
		sb.WriteString("  ")
		sb.WriteString(c.String())
		sb.WriteString("\n")
	}
	sb.WriteString("}")
	return sb.String()
}
