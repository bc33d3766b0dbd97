package shared

import "errors"

var (
	// ErrUnauthenticated indicates a missing, malformed or expired credential.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates an authenticated caller lacking permission or scope.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidRequest indicates a caller error such as a malformed role definition.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a mutation rejected because of live references.
	ErrConflict = errors.New("conflict")
	// ErrInfrastructure indicates the persisted store was unreachable. Callers
	// may retry with backoff; the engine itself never retries.
	ErrInfrastructure = errors.New("infrastructure unavailable")
)
