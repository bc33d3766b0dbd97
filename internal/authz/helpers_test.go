package authz_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/fieldgate/fieldgate/internal/authz"
	"github.com/fieldgate/fieldgate/internal/shared"
	_ "github.com/fieldgate/fieldgate/internal/testing/guard"
)

// memStore is an in-memory ConfigStore with error injection.
type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	setErr error
	delErr error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (s *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	value, ok := s.data[key]
	if !ok {
		return nil, shared.ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (s *memStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	s.data[key] = cp
	return nil
}

func (s *memStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.delErr != nil {
		return s.delErr
	}
	delete(s.data, key)
	return nil
}

func (s *memStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}

// stubCounter reports canned role usage counts.
type stubCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newStubCounter() *stubCounter {
	return &stubCounter{counts: make(map[string]int64)}
}

func (c *stubCounter) CountWithRole(ctx context.Context, role string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	return c.counts[role], nil
}

func (c *stubCounter) set(role string, n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[role] = n
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type engine struct {
	blobs    *memStore
	counter  *stubCounter
	cache    *authz.Cache
	registry *authz.Registry
	store    *authz.PermissionStore
	eval     *authz.Evaluator
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	blobs := newMemStore()
	counter := newStubCounter()
	cache := authz.NewCache(nil)
	logger := discardLogger()
	registry := authz.NewRegistry(blobs, cache, counter, logger)
	store := authz.NewPermissionStore(blobs, cache, registry, logger)
	eval := authz.NewEvaluator(store, logger, nil)
	return &engine{
		blobs:    blobs,
		counter:  counter,
		cache:    cache,
		registry: registry,
		store:    store,
		eval:     eval,
	}
}

func userWithRole(t *testing.T, e *engine, role string) authz.User {
	t.Helper()
	resolved, err := e.registry.Resolve(context.Background(), role)
	if err != nil {
		t.Fatalf("resolve role %s: %v", role, err)
	}
	return authz.User{ID: uuid.New(), Role: resolved}
}
