package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/flaneur2020/pngchunk/pngchunk/logger"
	"github.com/opencontainers/go-digest"
)

// LocalStorage reads and writes files on the local filesystem.
type LocalStorage struct {
	perm os.FileMode
}

// NewLocalStorage creates a filesystem storage that writes new files with perm.
func NewLocalStorage(perm os.FileMode) *LocalStorage {
	return &LocalStorage{perm: perm}
}

// ReadFile returns the full contents of name.
func (s *LocalStorage) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	logger.Debug("read %s (%d bytes)", name, len(data))
	return data, nil
}

// WriteFile replaces name with data. The content is written to a temporary
// file in the same directory and renamed into place, so readers never see
// a partially written file.
func (s *LocalStorage) WriteFile(ctx context.Context, name string, data []byte) (FileDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return FileDescriptor{}, err
	}

	perm := s.perm
	if info, err := os.Stat(name); err == nil {
		perm = info.Mode().Perm()
	}

	dir := filepath.Dir(name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return FileDescriptor{}, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(name)+".*")
	if err != nil {
		return FileDescriptor{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return FileDescriptor{}, fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return FileDescriptor{}, fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return FileDescriptor{}, fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return FileDescriptor{}, err
	}
	if err := os.Rename(tmpName, name); err != nil {
		return FileDescriptor{}, fmt.Errorf("failed to replace %s: %w", name, err)
	}

	desc := FileDescriptor{
		Name:   name,
		Digest: digest.FromBytes(data),
		Size:   int64(len(data)),
	}
	logger.Debug("wrote %s (%d bytes, %s)", name, desc.Size, desc.Digest)
	return desc, nil
}
