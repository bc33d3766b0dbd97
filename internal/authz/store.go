package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldgate/fieldgate/internal/shared"
)

// Configuration keys. Each holds one opaque serialized document.
const (
	// ConfigKeyPermissionOverride stores the permission override map.
	// Presence of this key is the sole switch away from compiled defaults.
	ConfigKeyPermissionOverride = "authz.permission_override"
	// ConfigKeyCustomRoles stores the full custom-role collection as a
	// single document, so replace-all updates are atomic.
	ConfigKeyCustomRoles = "authz.custom_roles"
)

// ConfigStore is the persisted key/blob store backing role and permission
// configuration. Get returns shared.ErrNotFound when the key is absent;
// any transport failure must surface as shared.ErrInfrastructure so callers
// never mistake an unreachable store for "no override".
type ConfigStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// PGConfigStore implements ConfigStore on the system_config table.
type PGConfigStore struct {
	pool *pgxpool.Pool
}

// NewPGConfigStore constructs a PostgreSQL backed ConfigStore.
func NewPGConfigStore(pool *pgxpool.Pool) *PGConfigStore {
	return &PGConfigStore{pool: pool}
}

// Get fetches the blob stored under key.
func (s *PGConfigStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM system_config WHERE key = $1`, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("%w: get config %s: %v", shared.ErrInfrastructure, key, err)
	}
	return value, nil
}

// Set upserts the blob stored under key.
func (s *PGConfigStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO system_config (key, value, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("%w: set config %s: %v", shared.ErrInfrastructure, key, err)
	}
	return nil
}

// Delete removes the key entirely. Deleting an absent key is not an error.
func (s *PGConfigStore) Delete(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM system_config WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("%w: delete config %s: %v", shared.ErrInfrastructure, key, err)
	}
	return nil
}

var _ ConfigStore = (*PGConfigStore)(nil)

// UserCounter reports how many persisted user records currently reference a
// role. Implemented by the users repository; consulted before any custom
// role deletion to avoid orphaning users into an unresolvable role.
type UserCounter interface {
	CountWithRole(ctx context.Context, role string) (int64, error)
}
