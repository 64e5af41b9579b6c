package storage

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/opencontainers/go-digest"
)

// MockStorage is a simple in-memory Storage implementation for tests.
type MockStorage struct {
	mu     sync.RWMutex
	files  map[string][]byte
	faults map[string]int
}

// NewMockStorage constructs an empty MockStorage.
func NewMockStorage() *MockStorage {
	return &MockStorage{
		files:  make(map[string][]byte),
		faults: make(map[string]int),
	}
}

// ReadFile returns a copy of the stored content.
func (m *MockStorage) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if err := m.fault(name); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.files[name]
	if !ok {
		return nil, fmt.Errorf("mock storage: %s: %w", name, os.ErrNotExist)
	}
	return append([]byte(nil), data...), nil
}

// WriteFile stores a copy of data under name.
func (m *MockStorage) WriteFile(ctx context.Context, name string, data []byte) (FileDescriptor, error) {
	if err := m.fault(name); err != nil {
		return FileDescriptor{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.files[name] = append([]byte(nil), data...)
	return FileDescriptor{
		Name:   name,
		Digest: digest.FromBytes(data),
		Size:   int64(len(data)),
	}, nil
}

// AddFile seeds the storage with content and returns its digest.
func (m *MockStorage) AddFile(name string, data []byte) digest.Digest {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.files[name] = append([]byte(nil), data...)
	return digest.FromBytes(data)
}

// FailNext makes the next n operations on name fail with a transient error.
func (m *MockStorage) FailNext(name string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[name] = n
}

func (m *MockStorage) fault(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.faults[name] <= 0 {
		return nil
	}
	m.faults[name]--
	return fmt.Errorf("mock storage: transient failure on %s", name)
}
