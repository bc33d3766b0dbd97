package properties

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldgate/fieldgate/internal/authz"
)

// RepositoryPort defines data access methods for properties.
type RepositoryPort interface {
	ListProperties(ctx context.Context, scope authz.FilterPredicate) ([]Property, error)
	ListWorkOrders(ctx context.Context, scope authz.FilterPredicate) ([]WorkOrder, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// scopeClause renders the filter predicate as SQL. The predicate is closed:
// anything without an explicit rule renders as FALSE, so an unhandled case
// can only hide rows, never leak them.
func scopeClause(scope authz.FilterPredicate, ownerCol, assigneeCol string, args *[]any) string {
	switch {
	case scope.Unrestricted():
		return "TRUE"
	case scope.DenyAll():
		return "FALSE"
	default:
		if id, ok := scope.OwnerID(); ok {
			*args = append(*args, id)
			return fmt.Sprintf("%s = $%d", ownerCol, len(*args))
		}
		if id, ok := scope.AssigneeID(); ok {
			if assigneeCol == "" {
				return "FALSE"
			}
			*args = append(*args, id)
			return fmt.Sprintf("%s = $%d", assigneeCol, len(*args))
		}
		return "FALSE"
	}
}

// ListProperties returns the properties visible under scope.
func (r *Repository) ListProperties(ctx context.Context, scope authz.FilterPredicate) ([]Property, error) {
	var args []any
	where := scopeClause(scope, "owner_id", "", &args)
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, address, owner_id, created_at, updated_at
		 FROM properties WHERE `+where+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Property
	for rows.Next() {
		var p Property
		if err := rows.Scan(&p.ID, &p.Name, &p.Address, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListWorkOrders returns the work orders visible under scope.
func (r *Repository) ListWorkOrders(ctx context.Context, scope authz.FilterPredicate) ([]WorkOrder, error) {
	var args []any
	where := scopeClause(scope, "owner_id", "assignee_id", &args)
	rows, err := r.pool.Query(ctx,
		`SELECT id, property_id, title, status, owner_id, assignee_id, created_at, updated_at
		 FROM work_orders WHERE `+where+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WorkOrder
	for rows.Next() {
		var wo WorkOrder
		if err := rows.Scan(&wo.ID, &wo.PropertyID, &wo.Title, &wo.Status, &wo.OwnerID, &wo.AssigneeID, &wo.CreatedAt, &wo.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, wo)
	}
	return out, rows.Err()
}

var _ RepositoryPort = (*Repository)(nil)
