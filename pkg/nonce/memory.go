package nonce

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is an in-process nonce store for tests and development.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory nonce store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Issue(_ context.Context, identity string, ttl time.Duration) (*Challenge, error) {
	value, err := newValue()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.entries[identity] = memoryEntry{
		value:     value,
		expiresAt: s.now().Add(ttl),
	}
	s.mu.Unlock()

	return &Challenge{Nonce: value, Message: Message(value)}, nil
}

func (s *MemoryStore) Consume(_ context.Context, identity string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[identity]
	if !ok {
		return "", ErrNonceInvalid
	}
	// Consumption is destructive either way: an expired nonce is dropped too.
	delete(s.entries, identity)
	if s.now().After(entry.expiresAt) {
		return "", ErrNonceInvalid
	}
	return entry.value, nil
}
