package noncestore

import (
	"context"
	"sync"
	"time"

	"pixelift/internal/ports"
)

// NonceTTL is how long an OAuth state nonce stays valid.
const NonceTTL = 10 * time.Minute

type entry struct {
	shop      string
	createdAt time.Time
}

// MemoryStore keeps nonces in a process-local map. Demo/single-instance use
// only: state does not survive restarts or span instances.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory nonce store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

var _ ports.NonceStore = (*MemoryStore)(nil)

// Put stores a nonce and sweeps expired entries while holding the lock.
func (s *MemoryStore) Put(_ context.Context, nonce string, shop string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.entries {
		if now.Sub(e.createdAt) > NonceTTL {
			delete(s.entries, k)
		}
	}
	s.entries[nonce] = entry{shop: shop, createdAt: now}
	return nil
}

// Consume reads and deletes a nonce, single use.
func (s *MemoryStore) Consume(_ context.Context, nonce string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[nonce]
	if !ok {
		return "", false, nil
	}
	delete(s.entries, nonce)
	if s.now().Sub(e.createdAt) > NonceTTL {
		return "", false, nil
	}
	return e.shop, true, nil
}
