package authz

import (
	"fmt"
	"net/http"

	"github.com/fieldgate/fieldgate/internal/platform/httpx"
	"github.com/fieldgate/fieldgate/internal/shared"
)

// Middleware wires authorization checks into HTTP handlers. It assumes an
// upstream authenticator already placed the resolved user in the request
// context; a missing user fails closed as unauthenticated.
type Middleware struct {
	Evaluator *Evaluator
}

// RequirePermission gates a route on a single atomic permission.
func (m Middleware) RequirePermission(perm Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, fmt.Errorf("%w: no credential", shared.ErrUnauthenticated))
				return
			}
			if err := m.Evaluator.Authorize(r.Context(), user, perm); err != nil {
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireClass gates a route on structural role-class membership. Mounted
// before permission middleware wherever both apply, so the coarse check
// short-circuits first.
func (m Middleware) RequireClass(class RoleClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, fmt.Errorf("%w: no credential", shared.ErrUnauthenticated))
				return
			}
			if err := m.Evaluator.RequireRoleClass(user, class); err != nil {
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
