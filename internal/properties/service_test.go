package properties_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldgate/fieldgate/internal/authz"
	"github.com/fieldgate/fieldgate/internal/properties"
	"github.com/fieldgate/fieldgate/internal/shared"
)

// captureRepo records the scope each call received.
type captureRepo struct {
	propertyScopes  []authz.FilterPredicate
	workOrderScopes []authz.FilterPredicate
}

func (r *captureRepo) ListProperties(ctx context.Context, scope authz.FilterPredicate) ([]properties.Property, error) {
	r.propertyScopes = append(r.propertyScopes, scope)
	return nil, nil
}

func (r *captureRepo) ListWorkOrders(ctx context.Context, scope authz.FilterPredicate) ([]properties.WorkOrder, error) {
	r.workOrderScopes = append(r.workOrderScopes, scope)
	return nil, nil
}

type emptyBlobs struct{}

func (emptyBlobs) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, shared.ErrNotFound
}
func (emptyBlobs) Set(ctx context.Context, key string, value []byte) error { return nil }
func (emptyBlobs) Delete(ctx context.Context, key string) error            { return nil }

func resolveUser(t *testing.T, role string) authz.User {
	t.Helper()
	registry := authz.NewRegistry(emptyBlobs{}, authz.NewCache(nil), nil, nil)
	resolved, err := registry.Resolve(context.Background(), role)
	require.NoError(t, err)
	return authz.User{ID: uuid.New(), Role: resolved}
}

func TestListPropertiesAlwaysScoped(t *testing.T) {
	repo := &captureRepo{}
	svc := properties.NewService(repo)
	ctx := context.Background()

	pm := resolveUser(t, authz.RolePropertyManager)
	_, err := svc.ListProperties(ctx, pm, authz.ScopeParams{})
	require.NoError(t, err)

	require.Len(t, repo.propertyScopes, 1)
	owner, ok := repo.propertyScopes[0].OwnerID()
	require.True(t, ok)
	assert.Equal(t, pm.ID, owner)
}

func TestListWorkOrdersScopePerRole(t *testing.T) {
	repo := &captureRepo{}
	svc := properties.NewService(repo)
	ctx := context.Background()

	contractor := resolveUser(t, authz.RoleContractor)
	_, err := svc.ListWorkOrders(ctx, contractor, authz.ScopeParams{})
	require.NoError(t, err)
	assignee, ok := repo.workOrderScopes[0].AssigneeID()
	require.True(t, ok)
	assert.Equal(t, contractor.ID, assignee)

	admin := resolveUser(t, authz.RoleAdmin)
	_, err = svc.ListWorkOrders(ctx, admin, authz.ScopeParams{})
	require.NoError(t, err)
	assert.True(t, repo.workOrderScopes[1].Unrestricted())

	// Admin drill-down narrows to the named property manager.
	pmID := uuid.New()
	_, err = svc.ListWorkOrders(ctx, admin, authz.ScopeParams{AsPropertyManagerID: pmID})
	require.NoError(t, err)
	owner, ok := repo.workOrderScopes[2].OwnerID()
	require.True(t, ok)
	assert.Equal(t, pmID, owner)
}

func TestUnknownRoleQueriesNothing(t *testing.T) {
	repo := &captureRepo{}
	svc := properties.NewService(repo)
	ctx := context.Background()

	ghost := authz.User{ID: uuid.New(), Role: authz.Role{Name: "GHOST"}}
	_, err := svc.ListProperties(ctx, ghost, authz.ScopeParams{})
	require.NoError(t, err)
	assert.True(t, repo.propertyScopes[0].DenyAll())
}
