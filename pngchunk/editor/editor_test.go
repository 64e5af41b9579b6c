package editor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"strings"
	"sync"
	"testing"

	"github.com/flaneur2020/pngchunk/pngchunk"
	"github.com/flaneur2020/pngchunk/pngchunk/logger"
	"github.com/flaneur2020/pngchunk/pngchunk/storage"
	"github.com/opencontainers/go-digest"
)

func testImage(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("png.Encode failed: %v", err)
	}
	return buf.Bytes()
}

func setup(t *testing.T) (*storage.MockStorage, Editor) {
	t.Helper()
	store := storage.NewMockStorage()
	store.AddFile("image.png", testImage(t))
	return store, NewEditor(store)
}

func TestEditor_EncodeDecode(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		compress bool
	}{
		{name: "plain"},
		{name: "compressed", compress: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, ed := setup(t)

			res, err := ed.Encode(ctx, EncodeRequest{
				Path:      "image.png",
				ChunkType: "RuSt",
				Message:   "hidden message",
				Compress:  tt.compress,
			})
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if res.File.Name != "image.png" {
				t.Errorf("written to %s, want in place", res.File.Name)
			}

			stored, err := store.ReadFile(ctx, "image.png")
			if err != nil {
				t.Fatalf("ReadFile failed: %v", err)
			}
			if res.File.Digest != digest.FromBytes(stored) {
				t.Errorf("digest mismatch")
			}
			if _, err := png.Decode(bytes.NewReader(stored)); err != nil {
				t.Errorf("encoded file is not a valid image: %v", err)
			}

			text, err := ed.Decode(ctx, "image.png", "RuSt")
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if text != "hidden message" {
				t.Errorf("Decode() = %q, want hidden message", text)
			}
		})
	}
}

func TestEditor_EncodeToOutput(t *testing.T) {
	ctx := context.Background()
	store, ed := setup(t)
	original, _ := store.ReadFile(ctx, "image.png")

	if _, err := ed.Encode(ctx, EncodeRequest{
		Path:       "image.png",
		OutputPath: "out/secret.png",
		ChunkType:  "RuSt",
		Message:    "x",
	}); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	unchanged, _ := store.ReadFile(ctx, "image.png")
	if !bytes.Equal(unchanged, original) {
		t.Error("input file should be unchanged when an output path is given")
	}
	if _, err := ed.Decode(ctx, "out/secret.png", "RuSt"); err != nil {
		t.Errorf("Decode of output failed: %v", err)
	}
}

func TestEditor_EncodeInvalidType(t *testing.T) {
	ctx := context.Background()
	store, ed := setup(t)
	before, _ := store.ReadFile(ctx, "image.png")

	_, err := ed.Encode(ctx, EncodeRequest{Path: "image.png", ChunkType: "Rust", Message: "x"})
	if !errors.Is(err, pngchunk.ErrInvalidChunkType) {
		t.Fatalf("error = %v, want INVALID_CHUNK_TYPE", err)
	}
	after, _ := store.ReadFile(ctx, "image.png")
	if !bytes.Equal(before, after) {
		t.Error("failed encode modified the file")
	}
}

func TestEditor_DecodeMissing(t *testing.T) {
	_, ed := setup(t)
	_, err := ed.Decode(context.Background(), "image.png", "RuSt")
	if !errors.Is(err, pngchunk.ErrChunkNotFound) {
		t.Fatalf("error = %v, want CHUNK_NOT_FOUND", err)
	}
}

func TestEditor_Remove(t *testing.T) {
	ctx := context.Background()
	store, ed := setup(t)
	original, _ := store.ReadFile(ctx, "image.png")

	for _, msg := range []string{"first", "second"} {
		if _, err := ed.Encode(ctx, EncodeRequest{Path: "image.png", ChunkType: "RuSt", Message: msg}); err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
	}

	res, err := ed.Remove(ctx, "image.png", "RuSt")
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if text, _ := res.Removed.DataAsString(); text != "first" {
		t.Errorf("removed %q, want first", text)
	}
	text, err := ed.Decode(ctx, "image.png", "RuSt")
	if err != nil || text != "second" {
		t.Errorf("Decode() = %q, %v; want second", text, err)
	}

	if _, err := ed.Remove(ctx, "image.png", "RuSt"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	restored, _ := store.ReadFile(ctx, "image.png")
	if !bytes.Equal(restored, original) {
		t.Error("removing every added chunk should restore the original bytes")
	}

	if _, err := ed.Remove(ctx, "image.png", "RuSt"); !errors.Is(err, pngchunk.ErrChunkNotFound) {
		t.Errorf("error = %v, want CHUNK_NOT_FOUND", err)
	}
}

func TestEditor_CorruptFile(t *testing.T) {
	store, ed := setup(t)
	data := testImage(t)
	data[len(data)-1] ^= 0xff
	store.AddFile("broken.png", data)

	_, err := ed.Decode(context.Background(), "broken.png", "RuSt")
	if !errors.Is(err, pngchunk.ErrCRCMismatch) {
		t.Fatalf("error = %v, want CRC_MISMATCH", err)
	}
}

func TestEditor_Print(t *testing.T) {
	ctx := context.Background()
	store, ed := setup(t)

	var paths []string
	for i := 0; i < 8; i++ {
		name := fmt.Sprintf("img-%d.png", i)
		store.AddFile(name, testImage(t))
		if _, err := ed.Encode(ctx, EncodeRequest{Path: name, ChunkType: "RuSt", Message: name}); err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		paths = append(paths, name)
	}

	var mu sync.Mutex
	var calls int
	var lastCurrent, lastTotal int64
	results, err := ed.Print(ctx, paths, 3, func(current, total int64) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		lastCurrent, lastTotal = current, total
	})
	if err != nil {
		t.Fatalf("Print failed: %v", err)
	}

	if len(results) != len(paths) {
		t.Fatalf("expected %d results, got %d", len(paths), len(results))
	}
	for i, r := range results {
		if r.Path != paths[i] {
			t.Errorf("results[%d].Path = %s, want %s", i, r.Path, paths[i])
		}
		c := r.Png.ChunkByType("RuSt")
		if c == nil {
			t.Errorf("%s: RuSt chunk missing", r.Path)
			continue
		}
		if text, _ := c.DataAsString(); text != paths[i] {
			t.Errorf("%s: message = %q", r.Path, text)
		}
	}
	if calls != len(paths) || lastCurrent != int64(len(paths)) || lastTotal != int64(len(paths)) {
		t.Errorf("progress calls=%d last=%d/%d", calls, lastCurrent, lastTotal)
	}
}

func TestEditor_PrintFailsOnMissingFile(t *testing.T) {
	_, ed := setup(t)
	_, err := ed.Print(context.Background(), []string{"image.png", "missing.png"}, 0, nil)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("error = %v, want not-exist", err)
	}
}

// Print loads files from several goroutines; run with -race.
func TestEditor_PrintWithDebugLogging(t *testing.T) {
	var buf bytes.Buffer
	prevOut := logger.SetOutput(&buf)
	prevLevel := logger.GetLogLevel()
	logger.SetLogLevel(logger.LogLevelDebug)
	t.Cleanup(func() {
		logger.SetOutput(prevOut)
		logger.SetLogLevel(prevLevel)
	})

	store, ed := setup(t)
	var paths []string
	for i := 0; i < 16; i++ {
		name := fmt.Sprintf("img-%d.png", i)
		store.AddFile(name, testImage(t))
		paths = append(paths, name)
	}

	if _, err := ed.Print(context.Background(), paths, 8, nil); err != nil {
		t.Fatalf("Print failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	decoded := 0
	for _, line := range lines {
		if strings.Contains(line, "DEBUG: decoded ") {
			decoded++
		}
	}
	if decoded != len(paths) {
		t.Errorf("expected %d decoded lines, got %d:\n%s", len(paths), decoded, buf.String())
	}
}
