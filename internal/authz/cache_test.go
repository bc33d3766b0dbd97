package authz_test

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldgate/fieldgate/internal/authz"
)

// gatedStore parks the first read of one key after the underlying value has
// been fetched, so a test can interleave a configuration write with a load
// already in flight.
type gatedStore struct {
	*memStore
	key string

	mu      sync.Mutex
	armed   bool
	entered chan struct{}
	release chan struct{}
}

func newGatedStore(key string) *gatedStore {
	return &gatedStore{
		memStore: newMemStore(),
		key:      key,
		armed:    true,
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
}

func (s *gatedStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.memStore.Get(ctx, key)
	s.mu.Lock()
	hold := s.armed && key == s.key
	if hold {
		s.armed = false
	}
	s.mu.Unlock()
	if hold {
		close(s.entered)
		<-s.release
	}
	return value, err
}

// twoProcessEngines builds two engine stacks over the same config store and
// the same Redis, as two replicas of the service would run.
func twoProcessEngines(t *testing.T) (*engine, *engine, *memStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	blobs := newMemStore()
	counter := newStubCounter()
	logger := discardLogger()

	build := func() *engine {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		cache := authz.NewCache(client)
		registry := authz.NewRegistry(blobs, cache, counter, logger)
		store := authz.NewPermissionStore(blobs, cache, registry, logger)
		return &engine{
			blobs:    blobs,
			counter:  counter,
			cache:    cache,
			registry: registry,
			store:    store,
			eval:     authz.NewEvaluator(store, logger, nil),
		}
	}
	return build(), build(), blobs
}

func TestCacheServesRepeatedReads(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	first, err := e.store.GetEffective(ctx)
	require.NoError(t, err)

	// Once populated, reads bypass the persisted store entirely.
	e.blobs.getErr = assert.AnError
	second, err := e.store.GetEffective(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCacheInvalidationCrossProcess(t *testing.T) {
	a, b, _ := twoProcessEngines(t)
	ctx := context.Background()

	// Both processes warm their caches from defaults.
	got, err := a.store.GetEffective(ctx)
	require.NoError(t, err)
	require.True(t, got.Grants(authz.RoleAdmin, authz.PermUsersView))
	got, err = b.store.GetEffective(ctx)
	require.NoError(t, err)
	require.True(t, got.Grants(authz.RoleAdmin, authz.PermUsersView))

	// Process A writes an override; process B must observe it on its very
	// next read via the shared version counter.
	require.NoError(t, a.store.SetEffective(ctx, authz.PermissionMap{authz.RoleAdmin: {}}))

	got, err = b.store.GetEffective(ctx)
	require.NoError(t, err)
	assert.False(t, got.Grants(authz.RoleAdmin, authz.PermUsersView))
}

func TestCacheInvalidationCrossProcessCustomRoles(t *testing.T) {
	a, b, _ := twoProcessEngines(t)
	ctx := context.Background()

	defs, err := b.registry.GetCustomRoles(ctx)
	require.NoError(t, err)
	require.Empty(t, defs)

	require.NoError(t, a.registry.CreateOrUpdateCustomRole(ctx, authz.RoleDefinition{
		Name:        "AUDITOR",
		Permissions: []authz.Permission{authz.PermDashboardAnalyticsView},
	}))

	defs, err = b.registry.GetCustomRoles(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "AUDITOR", defs[0].Name)
}

func TestSetEffectiveWinsOverInFlightLoad(t *testing.T) {
	gate := newGatedStore(authz.ConfigKeyPermissionOverride)
	cache := authz.NewCache(nil)
	logger := discardLogger()
	registry := authz.NewRegistry(gate, cache, newStubCounter(), logger)
	store := authz.NewPermissionStore(gate, cache, registry, logger)
	ctx := context.Background()

	// A reader loads the pre-write state (no override yet) and parks
	// before it can populate the cache.
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = store.GetEffective(ctx)
	}()
	<-gate.entered

	// The write completes and is acknowledged while the stale load is
	// still parked.
	override := authz.PermissionMap{authz.RoleAdmin: {authz.PermUsersView}}
	require.NoError(t, store.SetEffective(ctx, override))
	close(gate.release)
	<-done

	// The parked load must not have resurrected the pre-write defaults:
	// any read after the acknowledged write sees the override.
	got, err := store.GetEffective(ctx)
	require.NoError(t, err)
	assert.Equal(t, override, got)
	assert.False(t, got.Grants(authz.RoleAdmin, authz.PermPaymentRequestsView))
}

func TestCustomRoleWriteWinsOverInFlightLoad(t *testing.T) {
	gate := newGatedStore(authz.ConfigKeyCustomRoles)
	cache := authz.NewCache(nil)
	logger := discardLogger()
	registry := authz.NewRegistry(gate, cache, newStubCounter(), logger)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = registry.GetCustomRoles(ctx)
	}()
	<-gate.entered

	require.NoError(t, registry.CreateOrUpdateCustomRole(ctx, authz.RoleDefinition{
		Name:        "AUDITOR",
		Permissions: []authz.Permission{authz.PermDashboardAnalyticsView},
	}))
	close(gate.release)
	<-done

	defs, err := registry.GetCustomRoles(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "AUDITOR", defs[0].Name)
}

func TestCacheDegradesWithoutRedis(t *testing.T) {
	// A nil client disables the shared counter but local invalidation must
	// still hold: a write in this process is visible to the next read.
	e := newEngine(t)
	ctx := context.Background()

	_, err := e.store.GetEffective(ctx)
	require.NoError(t, err)

	require.NoError(t, e.store.SetEffective(ctx, authz.PermissionMap{authz.RoleCustomer: {authz.PermInvoicesView}}))
	got, err := e.store.GetEffective(ctx)
	require.NoError(t, err)
	assert.Equal(t, authz.PermissionMap{authz.RoleCustomer: {authz.PermInvoicesView}}, got)
}

func TestCacheUnreachableRedisNeverBlocksReads(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	blobs := newMemStore()
	logger := discardLogger()
	cache := authz.NewCache(client)
	registry := authz.NewRegistry(blobs, cache, newStubCounter(), logger)
	store := authz.NewPermissionStore(blobs, cache, registry, logger)
	ctx := context.Background()

	_, err := store.GetEffective(ctx)
	require.NoError(t, err)

	mr.Close()

	// Redis gone: reads keep serving the local cache.
	got, err := store.GetEffective(ctx)
	require.NoError(t, err)
	assert.True(t, got.Grants(authz.RoleAdmin, authz.PermUsersView))
}
