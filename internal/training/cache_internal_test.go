package training

import (
	"context"
	"errors"
	"testing"
	"testing/synctest"
	"time"
)

// countingStore is an in-memory cacheStore that records how it is used.
type countingStore[K comparable, V any] struct {
	entries map[K]V
	gets    int
	puts    int
	getErr  error
}

func newCountingStore[K comparable, V any]() *countingStore[K, V] {
	return &countingStore[K, V]{entries: make(map[K]V), gets: 0, puts: 0, getErr: nil}
}

func (s *countingStore[K, V]) Get(_ context.Context, key K) (V, bool, error) {
	s.gets++
	if s.getErr != nil {
		var zero V
		return zero, false, s.getErr
	}
	v, ok := s.entries[key]
	return v, ok, nil
}

func (s *countingStore[K, V]) Put(_ context.Context, key K, value V) error {
	s.puts++
	s.entries[key] = value
	return nil
}

func TestGetOrCompute(t *testing.T) {
	ctx := t.Context()
	store := newCountingStore[string, int]()
	computed := 0
	compute := func(context.Context) (int, error) {
		computed++
		return computed * 10, nil
	}
	atLeast := func(n int) func(int) bool { return func(v int) bool { return v >= n } }

	v, hit, err := getOrCompute(ctx, store, "k", atLeast(0), compute)
	if err != nil || hit || v != 10 {
		t.Fatalf("first call = (%d, %v, %v), want (10, false, nil)", v, hit, err)
	}
	v, hit, err = getOrCompute(ctx, store, "k", atLeast(0), compute)
	if err != nil || !hit || v != 10 {
		t.Fatalf("second call = (%d, %v, %v), want (10, true, nil)", v, hit, err)
	}
	if store.puts != 1 {
		t.Errorf("puts = %d after a hit, want 1", store.puts)
	}
	v, hit, err = getOrCompute(ctx, store, "k", atLeast(15), compute)
	if err != nil || hit || v != 20 {
		t.Fatalf("invalid entry call = (%d, %v, %v), want (20, false, nil)", v, hit, err)
	}
	if store.puts != 2 {
		t.Errorf("puts = %d after a refresh, want 2", store.puts)
	}

	computeErr := errors.New("boom")
	_, _, err = getOrCompute(ctx, store, "other", atLeast(0), func(context.Context) (int, error) {
		return 0, computeErr
	})
	if !errors.Is(err, computeErr) {
		t.Errorf("err = %v, want %v", err, computeErr)
	}
	if _, ok := store.entries["other"]; ok {
		t.Error("failed computation was stored")
	}

	store.getErr = errors.New("disk on fire")
	if _, _, err = getOrCompute(ctx, store, "k", atLeast(0), compute); !errors.Is(err, store.getErr) {
		t.Errorf("err = %v, want %v", err, store.getErr)
	}
}

func TestMemoryStore_expires(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := t.Context()
		store := newMemoryStore[string, int](time.Minute)
		if err := store.Put(ctx, "k", 1); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		time.Sleep(59 * time.Second)
		if v, ok, _ := store.Get(ctx, "k"); !ok || v != 1 {
			t.Errorf("Get() before expiry = (%d, %v), want (1, true)", v, ok)
		}

		time.Sleep(time.Second)
		if _, ok, _ := store.Get(ctx, "k"); ok {
			t.Error("Get() after expiry found the entry")
		}
		if n := store.len(); n != 0 {
			t.Errorf("expired entry not evicted, %d entries left", n)
		}
	})
}
