package training

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// cacheStore is the storage side of a read-through cache. Get reports whether an entry was present.
type cacheStore[K comparable, V any] interface {
	Get(ctx context.Context, key K) (V, bool, error)
	Put(ctx context.Context, key K, value V) error
}

// getOrCompute returns the stored value for key when valid accepts it. Otherwise it computes, stores and returns a
// fresh value. hit reports whether the stored value was used.
func getOrCompute[K comparable, V any](
	ctx context.Context,
	store cacheStore[K, V],
	key K,
	valid func(V) bool,
	compute func(context.Context) (V, error),
) (_ V, hit bool, err error) {
	var zero V
	stored, ok, err := store.Get(ctx, key)
	if err != nil {
		return zero, false, fmt.Errorf("get cache entry: %w", err)
	}
	if ok && valid(stored) {
		return stored, true, nil
	}
	fresh, err := compute(ctx)
	if err != nil {
		return zero, false, err
	}
	if err = store.Put(ctx, key, fresh); err != nil {
		return zero, false, fmt.Errorf("put cache entry: %w", err)
	}
	return fresh, false, nil
}

type memoryEntry[V any] struct {
	value    V
	storedAt time.Time
}

// memoryStore is a cacheStore whose entries expire ttl after they were stored. Expired entries are evicted when they
// are looked up.
type memoryStore[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]memoryEntry[V]
	ttl     time.Duration
}

func newMemoryStore[K comparable, V any](ttl time.Duration) *memoryStore[K, V] {
	return &memoryStore[K, V]{
		mu:      sync.Mutex{},
		entries: make(map[K]memoryEntry[V]),
		ttl:     ttl,
	}
}

func (s *memoryStore[K, V]) Get(_ context.Context, key K) (V, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		var zero V
		return zero, false, nil
	}
	if time.Since(entry.storedAt) >= s.ttl {
		delete(s.entries, key)
		var zero V
		return zero, false, nil
	}
	return entry.value, true, nil
}

func (s *memoryStore[K, V]) Put(_ context.Context, key K, value V) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry[V]{value: value, storedAt: time.Now()}
	return nil
}

func (s *memoryStore[K, V]) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
