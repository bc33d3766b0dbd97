package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fieldgate/fieldgate/internal/shared"
)

// TokenManager issues and verifies bearer tokens. Tokens carry only the
// subject identifier; permissions are resolved per request from the
// configuration store so role edits and revocations take effect without
// reissuing tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenManager constructs a TokenManager for HS256 signing.
func NewTokenManager(secret string, issuer string, ttl time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("auth: token secret required")
	}
	return &TokenManager{secret: []byte(secret), issuer: issuer, ttl: ttl}, nil
}

// Issue creates a signed bearer token for the subject.
func (m *TokenManager) Issue(subjectID uuid.UUID) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(m.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    m.issuer,
		Subject:   subjectID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
		ID:        uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, expires, nil
}

// Claims is the verified content of a bearer token.
type Claims struct {
	SubjectID uuid.UUID
	TokenID   string
	ExpiresAt time.Time
}

// Verify parses and validates a bearer token, failing closed with
// ErrUnauthenticated on any malformed, expired or mis-signed credential.
func (m *TokenManager) Verify(raw string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return Claims{}, fmt.Errorf("%w: invalid token", shared.ErrUnauthenticated)
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return Claims{}, fmt.Errorf("%w: invalid token claims", shared.ErrUnauthenticated)
	}
	subjectID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: invalid subject", shared.ErrUnauthenticated)
	}
	var expires time.Time
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	return Claims{SubjectID: subjectID, TokenID: claims.ID, ExpiresAt: expires}, nil
}
