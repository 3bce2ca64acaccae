// Package mock provides an in-memory image store for tests.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/devix/thermoscan/internal/imagestore"
)

// MemoryStore keeps image bytes in a map.
type MemoryStore struct {
	mu    sync.Mutex
	next  int
	files map[string][]byte

	// FailWith, when set, is returned by every method.
	FailWith error
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string][]byte)}
}

func (m *MemoryStore) Save(ctx context.Context, originalName string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return "", m.FailWith
	}
	m.next++
	ref := fmt.Sprintf("img-%d-%s", m.next, originalName)
	m.files[ref] = append([]byte(nil), data...)
	return ref, nil
}

func (m *MemoryStore) Load(ctx context.Context, ref string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	data, ok := m.files[ref]
	if !ok {
		return nil, imagestore.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryStore) Remove(ctx context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	delete(m.files, ref)
	return nil
}

// Has reports whether a reference is currently stored.
func (m *MemoryStore) Has(ref string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[ref]
	return ok
}

var _ imagestore.Store = (*MemoryStore)(nil)
