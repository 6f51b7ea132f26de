package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// PersistentStore is the durable second tier behind the in-memory cache.
// Get returns (nil, nil) on a miss. Implementations are safe for
// concurrent use.
type PersistentStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	Ping(ctx context.Context) error
	Close() error
}

// NoopStore is a PersistentStore that stores nothing. It backs the cache
// when no durable tier is configured, leaving memory-only behavior.
type NoopStore struct{}

func (NoopStore) Get(ctx context.Context, key string) ([]byte, error) { return nil, nil }

func (NoopStore) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	return nil
}

func (NoopStore) Delete(ctx context.Context, key string) error { return nil }

func (NoopStore) DeletePrefix(ctx context.Context, prefix string) error { return nil }

func (NoopStore) Ping(ctx context.Context) error { return nil }

func (NoopStore) Close() error { return nil }

// MemoryStore is an in-process PersistentStore. It serves deployments
// without Redis and keeps tests hermetic.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	now   func() time.Time
}

type memoryItem struct {
	payload   []byte
	expiresAt time.Time
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]memoryItem),
		now:   time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	item, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if !item.expiresAt.IsZero() && s.now().After(item.expiresAt) {
		s.mu.Lock()
		delete(s.items, key)
		s.mu.Unlock()
		return nil, nil
	}
	out := make([]byte, len(item.payload))
	copy(out, item.payload)
	return out, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	item := memoryItem{payload: append([]byte(nil), payload...)}
	if ttl > 0 {
		item.expiresAt = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.items[key] = item
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) DeletePrefix(ctx context.Context, prefix string) error {
	s.mu.Lock()
	for key := range s.items {
		if strings.HasPrefix(key, prefix) {
			delete(s.items, key)
		}
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
