package properties

import (
	"context"

	"github.com/fieldgate/fieldgate/internal/authz"
)

// Service handles property business logic. It resolves the caller's scope
// before every repository call; the repository never sees an unscoped
// query.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListProperties returns the properties the user may see.
func (s *Service) ListProperties(ctx context.Context, user authz.User, params authz.ScopeParams) ([]Property, error) {
	scope := authz.ScopeFilter(user, authz.ResourceProperties, params)
	return s.repo.ListProperties(ctx, scope)
}

// ListWorkOrders returns the work orders the user may see.
func (s *Service) ListWorkOrders(ctx context.Context, user authz.User, params authz.ScopeParams) ([]WorkOrder, error) {
	scope := authz.ScopeFilter(user, authz.ResourceWorkOrders, params)
	return s.repo.ListWorkOrders(ctx, scope)
}
