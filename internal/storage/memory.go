package storage

import (
	"context"
	"sync"

	"github.com/and161185/focus-vault/internal/errs"
)

// Memory is an in-process Store. Values are copied on the way in and out.
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte
}

var _ Store = (*Memory)(nil)

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory { return &Memory{data: map[string][]byte{}} }

// Get returns a copy of the value under key.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value under key.
func (m *Memory) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}
