package authz

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fieldgate/fieldgate/internal/shared"
)

// DecisionMetrics counts authorization outcomes. Implemented by
// observability.Metrics; nil-safe by construction.
type DecisionMetrics interface {
	AuthzDecision(result string, permission string)
}

// Evaluator answers allow/deny questions by composing the role registry
// and the permission configuration store.
type Evaluator struct {
	store   *PermissionStore
	logger  *slog.Logger
	metrics DecisionMetrics
}

// NewEvaluator constructs an Evaluator. metrics may be nil.
func NewEvaluator(store *PermissionStore, logger *slog.Logger, metrics DecisionMetrics) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{store: store, logger: logger, metrics: metrics}
}

// Authorize allows the user to proceed iff the effective configuration
// grants perm to the user's role. A role absent from the effective map --
// including a custom role deleted after assignment -- carries the empty
// permission set, never "all permissions": deny by default on any
// ambiguity. Denials are logged as policy-relevant events.
func (e *Evaluator) Authorize(ctx context.Context, user User, perm Permission) error {
	effective, err := e.store.GetEffective(ctx)
	if err != nil {
		return err
	}
	if user.Role.Known && effective.Grants(user.Role.Name, perm) {
		e.count("allow", perm)
		return nil
	}
	e.count("deny", perm)
	e.logger.Warn("authz: permission denied",
		slog.String("user_id", user.ID.String()),
		slog.String("role", user.Role.Name),
		slog.String("permission", string(perm)),
	)
	return fmt.Errorf("%w: missing permission %s", shared.ErrForbidden, perm)
}

// RequireRoleClass checks structural membership of the user's role in a
// compiled role class. Classes are independent of the dynamic permission
// map; call sites needing both evaluate the class check first so a coarse
// deny short-circuits before any configuration lookup.
func (e *Evaluator) RequireRoleClass(user User, class RoleClass) error {
	if class.Contains(user.Role) {
		e.count("allow", Permission("class:"+class.Name()))
		return nil
	}
	e.count("deny", Permission("class:"+class.Name()))
	e.logger.Warn("authz: role class denied",
		slog.String("user_id", user.ID.String()),
		slog.String("role", user.Role.Name),
		slog.String("class", class.Name()),
	)
	return fmt.Errorf("%w: requires %s role", shared.ErrForbidden, class.Name())
}

func (e *Evaluator) count(result string, perm Permission) {
	if e.metrics != nil {
		e.metrics.AuthzDecision(result, string(perm))
	}
}
