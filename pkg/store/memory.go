package store

import (
	"context"
	"sync"

	"github.com/aretw0/quotesync/pkg/core"
)

// MemoryBackend keeps the durable entry in process memory.
// Useful for tests and for throwaway sessions.
type MemoryBackend struct {
	mu   sync.Mutex
	data []byte
	// WriteErr, when set, makes every Write fail with it.
	WriteErr error
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (m *MemoryBackend) Read(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, core.ErrNotFound
	}
	return append([]byte(nil), m.data...), nil
}

func (m *MemoryBackend) Write(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.data = append([]byte(nil), data...)
	return nil
}

// Set replaces the raw entry, bypassing WriteErr.
func (m *MemoryBackend) Set(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
}

func (m *MemoryBackend) Close() error { return nil }

// ComponentType implements introspection.Component.
func (m *MemoryBackend) ComponentType() string { return "memory" }

var _ core.Backend = (*MemoryBackend)(nil)
