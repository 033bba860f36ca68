package cart

import (
	"context"
	"sync"
)

// Store keeps one cart per user as a product_id -> quantity map. Carts are
// session scoped and carry no persistence guarantee, entries are revalidated
// against live products before they are shown or checked out.
type Store interface {
	Get(ctx context.Context, userID uint) (map[uint]uint, error)
	Set(ctx context.Context, userID uint, items map[uint]uint) error
	Clear(ctx context.Context, userID uint) error
}

// MemoryStore is the single-process Store used by default and in tests.
type MemoryStore struct {
	mu    sync.Mutex
	carts map[uint]map[uint]uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[uint]map[uint]uint)}
}

func (s *MemoryStore) Get(_ context.Context, userID uint) (map[uint]uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make(map[uint]uint, len(s.carts[userID]))
	for id, q := range s.carts[userID] {
		items[id] = q
	}
	return items, nil
}

func (s *MemoryStore) Set(_ context.Context, userID uint, items map[uint]uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make(map[uint]uint, len(items))
	for id, q := range items {
		cp[id] = q
	}
	s.carts[userID] = cp
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, userID)
	return nil
}
