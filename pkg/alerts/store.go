package alerts

import (
	"context"
	"sync"
)

// Store remembers which keys fired during the current radar session.
type Store interface {
	// MarkIfNew records key and reports whether it was absent. The check and the
	// insert are one atomic step.
	MarkIfNew(ctx context.Context, key Key) (bool, error)
	// Reset forgets every key.
	Reset(ctx context.Context) error
	// Len returns the number of recorded keys.
	Len(ctx context.Context) (int, error)
}

// MemoryStore is the in-process Store.
type MemoryStore struct {
	mu   sync.Mutex
	seen map[Key]struct{}
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[Key]struct{})}
}

func (m *MemoryStore) MarkIfNew(_ context.Context, key Key) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[key]; ok {
		return false, nil
	}
	m.seen[key] = struct{}{}
	return true, nil
}

func (m *MemoryStore) Reset(_ context.Context) error {
	m.mu.Lock()
	m.seen = make(map[Key]struct{})
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Len(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen), nil
}
