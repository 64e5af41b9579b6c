// Package editor applies chunk operations to PNG files held in a Storage.
// It owns all I/O and logging around the pure codec in package pngchunk.
package editor

import (
	"context"
	"fmt"

	"github.com/flaneur2020/pngchunk/pngchunk"
	"github.com/flaneur2020/pngchunk/pngchunk/logger"
	"github.com/flaneur2020/pngchunk/pngchunk/message"
	"github.com/flaneur2020/pngchunk/pngchunk/storage"
	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"
)

// ProgressCallback is called each time a file finishes loading
// current: files loaded so far
// total: number of files requested
type ProgressCallback func(current int64, total int64)

// EncodeRequest describes a message to embed in a PNG file.
type EncodeRequest struct {
	Path       string // file to read
	OutputPath string // file to write; Path when empty
	ChunkType  string
	Message    string
	Compress   bool
}

// EncodeResult reports where the encoded file was written.
type EncodeResult struct {
	File  storage.FileDescriptor
	Chunk *pngchunk.Chunk
}

// RemoveResult reports the removed chunk and the rewritten file.
type RemoveResult struct {
	File    storage.FileDescriptor
	Removed *pngchunk.Chunk
}

// FileChunks is the decoded chunk list of one file.
type FileChunks struct {
	Path   string
	Png    *pngchunk.Png
	Size   int64
	Digest digest.Digest
}

type Editor interface {
	Encode(ctx context.Context, req EncodeRequest) (*EncodeResult, error)
	Decode(ctx context.Context, path string, chunkType string) (string, error)
	Remove(ctx context.Context, path string, chunkType string) (*RemoveResult, error)
	// Print loads every path concurrently with at most jobs files in
	// flight. Results are returned in the order of paths.
	Print(ctx context.Context, paths []string, jobs int, progress ProgressCallback) ([]*FileChunks, error)
}

type editor struct {
	store storage.Storage
}

func NewEditor(store storage.Storage) Editor {
	return &editor{
		store: store,
	}
}

func (e *editor) load(ctx context.Context, path string) (*pngchunk.Png, []byte, error) {
	data, err := e.store.ReadFile(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	p, err := pngchunk.Decode(data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	logger.Debug("decoded %s: %d chunks", path, len(p.Chunks()))
	return p, data, nil
}

func (e *editor) Encode(ctx context.Context, req EncodeRequest) (*EncodeResult, error) {
	// Validate the type before touching storage.
	chunkType, err := pngchunk.ParseChunkType(req.ChunkType)
	if err != nil {
		return nil, err
	}
	payload, err := message.Encode(req.Message, req.Compress)
	if err != nil {
		return nil, err
	}

	p, _, err := e.load(ctx, req.Path)
	if err != nil {
		return nil, err
	}

	chunk := pngchunk.NewChunk(chunkType, payload)
	p.AppendChunk(chunk)

	output := req.OutputPath
	if output == "" {
		output = req.Path
	}
	desc, err := e.store.WriteFile(ctx, output, p.Bytes())
	if err != nil {
		return nil, err
	}
	logger.Info("encoded %d byte %s chunk into %s", chunk.Length(), chunkType, output)
	return &EncodeResult{File: desc, Chunk: chunk}, nil
}

func (e *editor) Decode(ctx context.Context, path string, chunkType string) (string, error) {
	if _, err := pngchunk.ParseChunkType(chunkType); err != nil {
		return "", err
	}
	p, _, err := e.load(ctx, path)
	if err != nil {
		return "", err
	}
	chunk := p.ChunkByType(chunkType)
	if chunk == nil {
		return "", pngchunk.ErrChunkNotFound.
			WithDetail("chunkType", chunkType).
			WithDetail("path", path)
	}
	return message.DecodeChunk(chunk)
}

func (e *editor) Remove(ctx context.Context, path string, chunkType string) (*RemoveResult, error) {
	if _, err := pngchunk.ParseChunkType(chunkType); err != nil {
		return nil, err
	}
	p, _, err := e.load(ctx, path)
	if err != nil {
		return nil, err
	}
	removed, err := p.RemoveFirstChunk(chunkType)
	if err != nil {
		return nil, err
	}
	desc, err := e.store.WriteFile(ctx, path, p.Bytes())
	if err != nil {
		return nil, err
	}
	logger.Info("removed %s chunk from %s", chunkType, path)
	return &RemoveResult{File: desc, Removed: removed}, nil
}

func (e *editor) Print(ctx context.Context, paths []string, jobs int, progress ProgressCallback) ([]*FileChunks, error) {
	results := make([]*FileChunks, len(paths))
	tracker := newProgressTracker(int64(len(paths)), progress)

	g, ctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			p, data, err := e.load(ctx, path)
			if err != nil {
				return err
			}
			results[i] = &FileChunks{
				Path:   path,
				Png:    p,
				Size:   int64(len(data)),
				Digest: digest.FromBytes(data),
			}
			tracker.done()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
