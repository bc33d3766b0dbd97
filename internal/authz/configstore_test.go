package authz_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldgate/fieldgate/internal/authz"
	"github.com/fieldgate/fieldgate/internal/shared"
)

func TestGetEffectiveDefaultsWhenNoOverride(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	effective, err := e.store.GetEffective(ctx)
	require.NoError(t, err)
	defaults, err := e.store.GetDefaults(ctx)
	require.NoError(t, err)
	assert.Equal(t, defaults, effective)

	active, err := e.store.IsOverrideActive(ctx)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestSetEffectiveRoundTrip(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	override := authz.PermissionMap{
		authz.RoleAdmin:    {authz.PermUsersView, authz.PermRolesView},
		authz.RoleCustomer: {authz.PermInvoicesView},
	}
	require.NoError(t, e.store.SetEffective(ctx, override))

	got, err := e.store.GetEffective(ctx)
	require.NoError(t, err)
	assert.Equal(t, override, got)

	active, err := e.store.IsOverrideActive(ctx)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestOverrideFullyReplacesDefaults(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	// Scenario B: an override listing ADMIN with no permissions strips
	// ADMIN entirely; nothing merges back from the defaults.
	require.NoError(t, e.store.SetEffective(ctx, authz.PermissionMap{authz.RoleAdmin: {}}))

	got, err := e.store.GetEffective(ctx)
	require.NoError(t, err)
	assert.Empty(t, got[authz.RoleAdmin])
	assert.False(t, got.Grants(authz.RoleAdmin, authz.PermPaymentRequestsView))

	// Roles the override omits have no permissions at all.
	assert.Empty(t, got[authz.RoleCustomer])
	assert.False(t, got.Grants(authz.RoleCustomer, authz.PermInvoicesView))
}

func TestResetRestoresDefaults(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	require.NoError(t, e.store.SetEffective(ctx, authz.PermissionMap{authz.RoleAdmin: {}}))
	require.NoError(t, e.store.Reset(ctx))

	effective, err := e.store.GetEffective(ctx)
	require.NoError(t, err)
	defaults, err := e.store.GetDefaults(ctx)
	require.NoError(t, err)
	assert.Equal(t, defaults, effective, "reset returns the system to compiled defaults")

	active, err := e.store.IsOverrideActive(ctx)
	require.NoError(t, err)
	assert.False(t, active)

	// Reset with no override present is a no-op, not an error.
	require.NoError(t, e.store.Reset(ctx))
}

func TestSetEffectiveValidation(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	err := e.store.SetEffective(ctx, authz.PermissionMap{"GHOST": {authz.PermUsersView}})
	assert.ErrorIs(t, err, shared.ErrInvalidRequest, "unknown role keys are rejected")

	err = e.store.SetEffective(ctx, authz.PermissionMap{authz.RoleAdmin: {"bogus.permission"}})
	assert.ErrorIs(t, err, shared.ErrInvalidRequest, "permissions outside the enumeration are rejected")

	active, err := e.store.IsOverrideActive(ctx)
	require.NoError(t, err)
	assert.False(t, active, "failed validation must not persist anything")
}

func TestSetEffectiveAcceptsCustomRoleKeys(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	require.NoError(t, e.registry.CreateOrUpdateCustomRole(ctx, authz.RoleDefinition{Name: "AUDITOR"}))
	require.NoError(t, e.store.SetEffective(ctx, authz.PermissionMap{
		"AUDITOR": {authz.PermDashboardAnalyticsView},
	}))

	got, err := e.store.GetEffective(ctx)
	require.NoError(t, err)
	assert.True(t, got.Grants("AUDITOR", authz.PermDashboardAnalyticsView))
}

func TestCorruptOverrideFallsBackToDefaults(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	require.NoError(t, e.blobs.Set(ctx, authz.ConfigKeyPermissionOverride, []byte("{broken")))

	effective, err := e.store.GetEffective(ctx)
	require.NoError(t, err)
	defaults, err := e.store.GetDefaults(ctx)
	require.NoError(t, err)
	assert.Equal(t, defaults, effective)

	// The key is present, so the override counts as active even though
	// its content is unusable.
	active, err := e.store.IsOverrideActive(ctx)
	require.NoError(t, err)
	assert.True(t, active)
}

func TestOverrideDropsUnknownPermissions(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	blob := []byte(`{"ADMIN":["users.view","permission.retired.long.ago"]}`)
	require.NoError(t, e.blobs.Set(ctx, authz.ConfigKeyPermissionOverride, blob))

	got, err := e.store.GetEffective(ctx)
	require.NoError(t, err)
	assert.Equal(t, []authz.Permission{authz.PermUsersView}, got[authz.RoleAdmin])
}

func TestEffectiveReadAfterWrite(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	_, err := e.store.GetEffective(ctx)
	require.NoError(t, err)

	override := authz.PermissionMap{authz.RoleStaff: {authz.PermLeadsManage}}
	require.NoError(t, e.store.SetEffective(ctx, override))

	// The very next read after the write returns must see the override.
	got, err := e.store.GetEffective(ctx)
	require.NoError(t, err)
	assert.Equal(t, override, got)

	require.NoError(t, e.store.Reset(ctx))
	got, err = e.store.GetEffective(ctx)
	require.NoError(t, err)
	defaults, err := e.store.GetDefaults(ctx)
	require.NoError(t, err)
	assert.Equal(t, defaults, got)
}

func TestCustomRoleDefaultsIncludeDefinition(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	require.NoError(t, e.registry.CreateOrUpdateCustomRole(ctx, authz.RoleDefinition{
		Name:        "AUDITOR",
		Permissions: []authz.Permission{authz.PermDashboardAnalyticsView},
	}))

	defaults, err := e.store.GetDefaults(ctx)
	require.NoError(t, err)
	assert.Equal(t, []authz.Permission{authz.PermDashboardAnalyticsView}, defaults["AUDITOR"],
		"a custom role's definition is its default permission set")
}

func TestDeletedRolePurgedFromEffective(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	require.NoError(t, e.registry.CreateOrUpdateCustomRole(ctx, authz.RoleDefinition{
		Name:        "AUDITOR",
		Permissions: []authz.Permission{authz.PermDashboardAnalyticsView},
	}))
	got, err := e.store.GetEffective(ctx)
	require.NoError(t, err)
	require.True(t, got.Grants("AUDITOR", authz.PermDashboardAnalyticsView))

	require.NoError(t, e.registry.DeleteCustomRole(ctx, "AUDITOR"))
	got, err = e.store.GetEffective(ctx)
	require.NoError(t, err)
	assert.NotContains(t, got, "AUDITOR",
		"role deletion purges its permission mapping entry")
}

func TestGetEffectiveInfrastructureError(t *testing.T) {
	e := newEngine(t)
	e.blobs.getErr = shared.ErrInfrastructure

	_, err := e.store.GetEffective(context.Background())
	assert.ErrorIs(t, err, shared.ErrInfrastructure,
		"a store failure must never be treated as an absent override")

	_, err = e.store.IsOverrideActive(context.Background())
	assert.ErrorIs(t, err, shared.ErrInfrastructure)
}
