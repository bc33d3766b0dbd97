package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/fieldgate/fieldgate/internal/authz"
	"github.com/fieldgate/fieldgate/internal/shared"
)

// RoleResolver turns a raw role string into a validated authz.Role.
// Satisfied by *authz.Registry.
type RoleResolver interface {
	Resolve(ctx context.Context, name string) (authz.Role, error)
}

// Service is the credential resolver: it authenticates bearer credentials
// into user records and issues new credentials on login.
type Service struct {
	repo    Repository
	tokens  *TokenManager
	roles   RoleResolver
	revoked *redis.Client
}

// NewService constructs a Service. client may be nil, disabling revocation.
func NewService(repo Repository, tokens *TokenManager, roles RoleResolver, client *redis.Client) *Service {
	return &Service{repo: repo, tokens: tokens, roles: roles, revoked: client}
}

// Login validates email/password credentials and issues a bearer token.
// Inactive accounts and unknown emails fail identically so the response
// does not disclose which one occurred.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	acc, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", shared.ErrUnauthenticated)
	}
	if !acc.IsActive {
		return nil, fmt.Errorf("%w: invalid credentials", shared.ErrUnauthenticated)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", shared.ErrUnauthenticated)
	}
	token, expires, err := s.tokens.Issue(acc.ID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: token, TokenType: "Bearer", ExpiresAt: expires}, nil
}

// Resolve turns an opaque bearer credential into an authorization user.
// Fails closed with ErrUnauthenticated when the token is malformed,
// expired, revoked, or does not map to an active account.
func (s *Service) Resolve(ctx context.Context, rawToken string) (authz.User, error) {
	claims, err := s.tokens.Verify(rawToken)
	if err != nil {
		return authz.User{}, err
	}
	if revoked, err := s.isRevoked(ctx, claims.TokenID); err != nil {
		return authz.User{}, err
	} else if revoked {
		return authz.User{}, fmt.Errorf("%w: token revoked", shared.ErrUnauthenticated)
	}

	acc, err := s.repo.FindByID(ctx, claims.SubjectID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return authz.User{}, fmt.Errorf("%w: unknown subject", shared.ErrUnauthenticated)
		}
		return authz.User{}, err
	}
	if !acc.IsActive {
		return authz.User{}, fmt.Errorf("%w: account disabled", shared.ErrUnauthenticated)
	}

	role, err := s.roles.Resolve(ctx, acc.Role)
	if err != nil {
		return authz.User{}, err
	}
	return authz.User{ID: acc.ID, Role: role}, nil
}

// Logout revokes the presented token until its natural expiry.
func (s *Service) Logout(ctx context.Context, rawToken string) error {
	claims, err := s.tokens.Verify(rawToken)
	if err != nil {
		return err
	}
	if s.revoked == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.revoked.Set(ctx, revocationKey(claims.TokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: revoke token: %v", shared.ErrInfrastructure, err)
	}
	return nil
}

func (s *Service) isRevoked(ctx context.Context, tokenID string) (bool, error) {
	if s.revoked == nil || tokenID == "" {
		return false, nil
	}
	_, err := s.revoked.Get(ctx, revocationKey(tokenID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: revocation check: %v", shared.ErrInfrastructure, err)
	}
	return true, nil
}

func revocationKey(tokenID string) string {
	return "auth:revoked:" + tokenID
}
