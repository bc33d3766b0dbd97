package authz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/fieldgate/fieldgate/internal/shared"
)

// defaultTable is the compiled role-permission mapping used whenever no
// override is persisted.
func defaultTable() PermissionMap {
	return PermissionMap{
		RoleAdmin:       AllPermissions(),
		RoleSeniorAdmin: AllPermissions(),
		RoleStaff: {
			PermDashboardAnalyticsView,
			PermLeadsManage,
			PermEmployeesViewAll,
			PermPropertiesView,
			PermWorkOrdersView,
			PermWorkOrdersManage,
			PermPaymentRequestsView,
			PermUsersView,
		},
		RolePropertyManager: {
			PermDashboardAnalyticsView,
			PermPropertiesView,
			PermPropertiesManage,
			PermWorkOrdersView,
			PermInvoicesView,
			PermPaymentRequestsView,
			PermAssetsView,
		},
		RoleContractor: {
			PermWorkOrdersView,
			PermWorkOrdersManage,
			PermInvoicesView,
			PermPaymentRequestsView,
		},
		RoleArtisan: {
			PermWorkOrdersView,
			PermPaymentRequestsView,
		},
		RoleCustomer: {
			PermPropertiesView,
			PermWorkOrdersView,
			PermInvoicesView,
		},
	}
}

// PermissionStore is the authoritative source of the effective role to
// permission mapping. Exactly one of two sources is authoritative at a
// time: the compiled default table, or a persisted override stored as a
// single JSON document. The override, when present, fully replaces the
// defaults: roles it does not list have no permissions. There is no
// partial per-role merge.
type PermissionStore struct {
	blobs    ConfigStore
	cache    *Cache
	registry *Registry
	logger   *slog.Logger
	group    singleflight.Group
}

// NewPermissionStore constructs a PermissionStore sharing the registry's
// cache so one invalidation covers both the custom-role list and the
// effective map.
func NewPermissionStore(blobs ConfigStore, cache *Cache, registry *Registry, logger *slog.Logger) *PermissionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PermissionStore{blobs: blobs, cache: cache, registry: registry, logger: logger}
}

// GetDefaults returns the baseline mapping ignoring any override: the
// compiled table for built-in roles, plus each custom role's defined
// permission set (a custom role's definition is its default). Used for
// diffing and preview in administrative tooling.
func (s *PermissionStore) GetDefaults(ctx context.Context) (PermissionMap, error) {
	m := defaultTable()
	defs, err := s.registry.GetCustomRoles(ctx)
	if err != nil {
		return nil, err
	}
	for _, def := range defs {
		perms := make([]Permission, len(def.Permissions))
		copy(perms, def.Permissions)
		m[def.Name] = perms
	}
	return m, nil
}

// GetEffective returns the currently effective mapping, cached until the
// next configuration write. Absence of the override key means 100%
// defaults; an unparsable override also falls back to defaults. A store
// read failure surfaces as ErrInfrastructure and is never treated as "no
// override".
func (s *PermissionStore) GetEffective(ctx context.Context) (PermissionMap, error) {
	if m, ok := s.cache.Effective(ctx); ok {
		return m, nil
	}
	v, err, _ := s.group.Do(ConfigKeyPermissionOverride, func() (any, error) {
		gen := s.cache.Generation()
		m, err := s.loadEffective(ctx)
		if err != nil {
			return nil, err
		}
		s.cache.StoreEffective(gen, m)
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(PermissionMap), nil
}

func (s *PermissionStore) loadEffective(ctx context.Context) (PermissionMap, error) {
	raw, err := s.blobs.Get(ctx, ConfigKeyPermissionOverride)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return s.GetDefaults(ctx)
		}
		return nil, err
	}

	var stored map[string][]string
	if err := json.Unmarshal(raw, &stored); err != nil {
		s.logger.Error("authz: corrupt permission override, using defaults", slog.Any("error", err))
		return s.GetDefaults(ctx)
	}

	m := make(PermissionMap, len(stored))
	for role, perms := range stored {
		set := make([]Permission, 0, len(perms))
		for _, p := range perms {
			perm := Permission(p)
			if !perm.Valid() {
				// Permissions removed from the enumeration since the
				// override was written are dropped, never granted.
				s.logger.Warn("authz: dropping unknown permission from override",
					slog.String("role", role), slog.String("permission", p))
				continue
			}
			set = append(set, perm)
		}
		m[role] = set
	}
	return m, nil
}

// IsOverrideActive reports whether the override key is present, regardless
// of content validity.
func (s *PermissionStore) IsOverrideActive(ctx context.Context) (bool, error) {
	_, err := s.blobs.Get(ctx, ConfigKeyPermissionOverride)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// SetEffective persists m as the authoritative override. Every role key
// must exist in the registry and every permission must belong to the
// compiled enumeration. The cache is invalidated before returning.
func (s *PermissionStore) SetEffective(ctx context.Context, m PermissionMap) error {
	for role, perms := range m {
		exists, err := s.registry.RoleExists(ctx, role)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: unknown role %q", shared.ErrInvalidRequest, role)
		}
		for _, p := range perms {
			if !p.Valid() {
				return fmt.Errorf("%w: unknown permission %q for role %q", shared.ErrInvalidRequest, p, role)
			}
		}
	}

	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("%w: encode permission override", shared.ErrInvalidRequest)
	}
	if err := s.blobs.Set(ctx, ConfigKeyPermissionOverride, raw); err != nil {
		return err
	}
	s.cache.Invalidate(ctx)
	return nil
}

// Reset deletes the override entirely, returning the system to compiled
// defaults, and invalidates the cache before returning.
func (s *PermissionStore) Reset(ctx context.Context) error {
	if err := s.blobs.Delete(ctx, ConfigKeyPermissionOverride); err != nil {
		return err
	}
	s.cache.Invalidate(ctx)
	return nil
}
