package authz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/fieldgate/fieldgate/internal/shared"
)

// Registry owns the authoritative list of role names, built-in and custom.
// It is the single place permitted to answer "does this role exist".
type Registry struct {
	blobs  ConfigStore
	cache  *Cache
	users  UserCounter
	logger *slog.Logger
	group  singleflight.Group
}

// NewRegistry constructs a Registry.
func NewRegistry(blobs ConfigStore, cache *Cache, users UserCounter, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{blobs: blobs, cache: cache, users: users, logger: logger}
}

// IsBuiltIn reports whether name is a compiled role.
func (r *Registry) IsBuiltIn(name string) bool {
	return IsBuiltIn(name)
}

// ListRoles returns all role names: built-in roles in their fixed order
// followed by custom roles alphabetically.
func (r *Registry) ListRoles(ctx context.Context) ([]string, error) {
	defs, err := r.GetCustomRoles(ctx)
	if err != nil {
		return nil, err
	}
	names := BuiltInRoles()
	custom := make([]string, 0, len(defs))
	for _, def := range defs {
		custom = append(custom, def.Name)
	}
	sort.Strings(custom)
	return append(names, custom...), nil
}

// RoleExists reports whether name resolves to a built-in or custom role.
func (r *Registry) RoleExists(ctx context.Context, name string) (bool, error) {
	if IsBuiltIn(name) {
		return true, nil
	}
	defs, err := r.GetCustomRoles(ctx)
	if err != nil {
		return false, err
	}
	for _, def := range defs {
		if def.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// Resolve turns a raw role string from a user record into a Role. A name
// that no longer resolves is returned with Known=false: downstream it
// carries zero permissions and a deny-all scope, never an error, so stale
// assignments degrade instead of locking the user out with a hard failure.
func (r *Registry) Resolve(ctx context.Context, name string) (Role, error) {
	if IsBuiltIn(name) {
		return Role{Name: name, BuiltIn: true, Known: true}, nil
	}
	exists, err := r.RoleExists(ctx, name)
	if err != nil {
		return Role{}, err
	}
	return Role{Name: name, Known: exists}, nil
}

// GetCustomRoles reads the persisted custom-role collection, empty when
// absent. Results are cached until the next configuration write.
func (r *Registry) GetCustomRoles(ctx context.Context) ([]RoleDefinition, error) {
	if defs, ok := r.cache.CustomRoles(ctx); ok {
		return defs, nil
	}
	v, err, _ := r.group.Do(ConfigKeyCustomRoles, func() (any, error) {
		gen := r.cache.Generation()
		defs, err := r.loadCustomRoles(ctx)
		if err != nil {
			return nil, err
		}
		r.cache.StoreCustomRoles(gen, defs)
		return defs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]RoleDefinition), nil
}

func (r *Registry) loadCustomRoles(ctx context.Context) ([]RoleDefinition, error) {
	raw, err := r.blobs.Get(ctx, ConfigKeyCustomRoles)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return []RoleDefinition{}, nil
		}
		return nil, err
	}
	var defs []RoleDefinition
	if err := json.Unmarshal(raw, &defs); err != nil {
		// A corrupt collection reads as empty: affected roles degrade to
		// zero permissions rather than failing every request.
		r.logger.Error("authz: corrupt custom role collection", slog.Any("error", err))
		return []RoleDefinition{}, nil
	}
	return defs, nil
}

// CreateOrUpdateCustomRole persists def, replacing any existing entry of the
// same name wholesale so no stale permission leftovers survive an update.
// The full collection is written back and the cache invalidated before
// returning.
func (r *Registry) CreateOrUpdateCustomRole(ctx context.Context, def RoleDefinition) error {
	def.Name = strings.TrimSpace(def.Name)
	if def.Name == "" {
		return fmt.Errorf("%w: role name required", shared.ErrInvalidRequest)
	}
	if IsBuiltIn(def.Name) {
		return fmt.Errorf("%w: %q is a built-in role name", shared.ErrInvalidRequest, def.Name)
	}
	for _, p := range def.Permissions {
		if !p.Valid() {
			return fmt.Errorf("%w: unknown permission %q", shared.ErrInvalidRequest, p)
		}
	}

	defs, err := r.loadCustomRoles(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range defs {
		if defs[i].Name == def.Name {
			defs[i] = def
			replaced = true
			break
		}
	}
	if !replaced {
		defs = append(defs, def)
	}

	raw, err := json.Marshal(defs)
	if err != nil {
		return fmt.Errorf("%w: encode custom roles", shared.ErrInvalidRequest)
	}
	if err := r.blobs.Set(ctx, ConfigKeyCustomRoles, raw); err != nil {
		return err
	}
	r.cache.Invalidate(ctx)
	return nil
}

// DeleteCustomRole removes the named custom role. Deletion is refused while
// any persisted user record still carries the role, reporting the live
// count; the failure leaves the collection untouched so retrying yields the
// same error. When the collection empties the configuration key is deleted
// entirely rather than storing an empty marker. Both the custom-role cache
// and the permission-configuration cache are invalidated, since a role's
// disappearance must also purge any permission mapping entry referencing it.
func (r *Registry) DeleteCustomRole(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if IsBuiltIn(name) {
		return fmt.Errorf("%w: cannot delete built-in role %q", shared.ErrInvalidRequest, name)
	}

	defs, err := r.loadCustomRoles(ctx)
	if err != nil {
		return err
	}
	idx := -1
	for i := range defs {
		if defs[i].Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: custom role %q", shared.ErrNotFound, name)
	}

	count, err := r.users.CountWithRole(ctx, name)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: role %q is assigned to %d user(s)", shared.ErrConflict, name, count)
	}

	defs = append(defs[:idx], defs[idx+1:]...)
	if len(defs) == 0 {
		if err := r.blobs.Delete(ctx, ConfigKeyCustomRoles); err != nil {
			return err
		}
	} else {
		raw, err := json.Marshal(defs)
		if err != nil {
			return fmt.Errorf("%w: encode custom roles", shared.ErrInvalidRequest)
		}
		if err := r.blobs.Set(ctx, ConfigKeyCustomRoles, raw); err != nil {
			return err
		}
	}
	r.cache.Invalidate(ctx)
	return nil
}
