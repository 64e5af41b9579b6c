package pngchunk

import (
	"fmt"
	"unicode/utf8"
)

// ChunkTypeSize is the width of a chunk type code in bytes.
const ChunkTypeSize = 4

// propertyBit is bit 5 of each type byte; its meaning depends on the byte position.
const propertyBit = 0x20

// ChunkType is a 4-byte PNG chunk type code. The letter case of each byte
// encodes one property: ancillary, private, reserved and safe-to-copy.
type ChunkType struct {
	data [ChunkTypeSize]byte
}

// ChunkTypeFromBytes validates b and returns it as a ChunkType.
func ChunkTypeFromBytes(b [ChunkTypeSize]byte) (ChunkType, error) {
	for i, c := range b {
		if !isLetter(c) {
			return ChunkType{}, ErrInvalidChunkType.
				WithDetail("chunkType", printable(b[:])).
				WithDetail("index", i)
		}
	}
	if !reservedBitValid(b) {
		return ChunkType{}, ErrInvalidChunkType.
			WithMessage("chunk type has reserved bit set").
			WithDetail("chunkType", printable(b[:]))
	}
	return ChunkType{data: b}, nil
}

// ParseChunkType parses a 4-character type code such as "RuSt".
func ParseChunkType(s string) (ChunkType, error) {
	if len(s) != ChunkTypeSize {
		return ChunkType{}, ErrInvalidChunkType.
			WithMessage("chunk type must be 4 bytes long").
			WithDetail("length", len(s))
	}
	var b [ChunkTypeSize]byte
	copy(b[:], s)
	return ChunkTypeFromBytes(b)
}

// Bytes returns the raw type code.
func (t ChunkType) Bytes() [ChunkTypeSize]byte {
	return t.data
}

// IsCritical reports whether the first byte is uppercase.
func (t ChunkType) IsCritical() bool {
	return t.data[0]&propertyBit == 0
}

// IsPublic reports whether the second byte is uppercase.
func (t ChunkType) IsPublic() bool {
	return t.data[1]&propertyBit == 0
}

// IsReservedBitValid reports whether the third byte is uppercase.
func (t ChunkType) IsReservedBitValid() bool {
	return reservedBitValid(t.data)
}

// IsSafeToCopy reports whether the fourth byte is lowercase.
func (t ChunkType) IsSafeToCopy() bool {
	return t.data[3]&propertyBit != 0
}

// IsValid reports whether every byte is an ASCII letter and the reserved
// bit is clear. The other three properties do not affect validity.
func (t ChunkType) IsValid() bool {
	for _, c := range t.data {
		if !isLetter(c) {
			return false
		}
	}
	return t.IsReservedBitValid()
}

// Equal reports whether both type codes hold the same bytes.
func (t ChunkType) Equal(other ChunkType) bool {
	return t.data == other.data
}

func (t ChunkType) String() string {
	if !utf8.Valid(t.data[:]) {
		return "<invalid>"
	}
	return string(t.data[:])
}

func reservedBitValid(b [ChunkTypeSize]byte) bool {
	return b[2]&propertyBit == 0
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// printable renders raw type bytes for error details.
func printable(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return fmt.Sprintf("%x", b)
}
