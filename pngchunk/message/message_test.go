package message

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/flaneur2020/pngchunk/pngchunk"
	"github.com/klauspost/compress/zlib"
)

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		compressed bool
	}{
		{name: "plain", text: "This is where your secret message will be!"},
		{name: "plain empty", text: ""},
		{name: "compressed", text: "This is where your secret message will be!", compressed: true},
		{name: "compressed repetitive", text: strings.Repeat("abc", 10000), compressed: true},
		{name: "compressed unicode", text: "秘密のメッセージ", compressed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := Encode(tt.text, tt.compressed)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if IsCompressed(payload) != tt.compressed {
				t.Errorf("IsCompressed() = %v, want %v", IsCompressed(payload), tt.compressed)
			}
			got, err := Decode(payload)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if got != tt.text {
				t.Errorf("Decode() = %q, want %q", got, tt.text)
			}
		})
	}
}

func TestCompressionShrinksRepetitiveText(t *testing.T) {
	text := strings.Repeat("secret ", 1000)
	payload, err := Encode(text, true)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(payload) >= len(text) {
		t.Errorf("compressed payload %d bytes, plain %d bytes", len(payload), len(text))
	}
}

func TestDecodeInvalidUTF8(t *testing.T) {
	_, err := Decode([]byte{0xff, 0xfe})
	if !errors.Is(err, pngchunk.ErrInvalidUTF8) {
		t.Fatalf("error = %v, want INVALID_UTF8", err)
	}
}

func TestDecodeCorruptStream(t *testing.T) {
	payload := append([]byte(CompressedPrefix), []byte("not zlib at all")...)
	_, err := Decode(payload)
	if !errors.Is(err, ErrCorruptPayload) {
		t.Fatalf("error = %v, want CORRUPT_PAYLOAD", err)
	}
}

func TestDecodeTruncatedStream(t *testing.T) {
	payload, err := Encode(strings.Repeat("x", 4096), true)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	_, err = Decode(payload[:len(payload)-6])
	if !errors.Is(err, ErrCorruptPayload) {
		t.Fatalf("error = %v, want CORRUPT_PAYLOAD", err)
	}
}

func TestDecodeSizeLimit(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(CompressedPrefix)
	zw := zlib.NewWriter(&buf)
	zeros := make([]byte, 1<<20)
	for i := 0; i < MaxInflatedSize/len(zeros)+1; i++ {
		if _, err := zw.Write(zeros); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	_, err := Decode(buf.Bytes())
	if !errors.Is(err, ErrCorruptPayload) {
		t.Fatalf("error = %v, want CORRUPT_PAYLOAD", err)
	}
}

func TestDecodeChunkAddsType(t *testing.T) {
	ct, err := pngchunk.ParseChunkType("RuSt")
	if err != nil {
		t.Fatalf("ParseChunkType failed: %v", err)
	}
	_, err = DecodeChunk(pngchunk.NewChunk(ct, []byte{0xff}))
	if v, ok := pngchunk.Detail(err, "chunkType"); !ok || v != "RuSt" {
		t.Errorf("chunkType detail = %v, want RuSt", v)
	}
}
