package repo

import (
	"context"
	"sync"
	"time"

	"github.com/nexcar/rwe-km/internal/cache"
)

type stubCache struct {
	mu    sync.Mutex
	store map[string][]byte
	sets  int
	dels  int
}

func newStubCache() *stubCache {
	return &stubCache{store: make(map[string][]byte)}
}

func (s *stubCache) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.store[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return append([]byte(nil), value...), nil
}

func (s *stubCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store[key] = append([]byte(nil), value...)
	s.sets++
	return nil
}

func (s *stubCache) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.store, key)
	s.dels++
	return nil
}

func (s *stubCache) Close() error { return nil }
