package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/fieldgate/fieldgate/internal/shared"
)

// RoleChecker answers whether a role name currently resolves in the role
// registry. Role validity is checked at assignment time only; existing
// records are tolerated defensively if their role later disappears.
type RoleChecker interface {
	RoleExists(ctx context.Context, name string) (bool, error)
}

// Service handles user business logic.
type Service struct {
	repo  RepositoryPort
	roles RoleChecker
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, roles RoleChecker) *Service {
	return &Service{repo: repo, roles: roles}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// GetUser returns a single user.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetUser(ctx, id)
}

// CreateUser registers a new account with a registry-validated role.
func (s *Service) CreateUser(ctx context.Context, email, name, password, role string) (*User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password required", shared.ErrInvalidRequest)
	}
	if err := s.checkRole(ctx, role); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.repo.CreateUser(ctx, User{
		ID:       uuid.New(),
		Email:    email,
		Name:     strings.TrimSpace(name),
		Role:     role,
		IsActive: true,
	}, string(hash))
}

// AssignRole moves a user to another role after registry validation.
func (s *Service) AssignRole(ctx context.Context, id uuid.UUID, role string) (*User, error) {
	if err := s.checkRole(ctx, role); err != nil {
		return nil, err
	}
	return s.repo.UpdateUserRole(ctx, id, role)
}

func (s *Service) checkRole(ctx context.Context, role string) error {
	exists, err := s.roles.RoleExists(ctx, role)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: unknown role %q", shared.ErrInvalidRequest, role)
	}
	return nil
}
