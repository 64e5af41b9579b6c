package storage

import (
	"context"

	"github.com/opencontainers/go-digest"
)

// FileDescriptor describes a stored file.
type FileDescriptor struct {
	Name   string
	Digest digest.Digest
	Size   int64
}

// Storage abstracts whole-file reads and writes. The codec always works on
// complete in-memory buffers, so there are no ranged operations.
type Storage interface {
	ReadFile(ctx context.Context, name string) ([]byte, error)
	WriteFile(ctx context.Context, name string, data []byte) (FileDescriptor, error)
}
