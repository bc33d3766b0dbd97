package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/fieldgate/fieldgate/internal/authz"
	"github.com/fieldgate/fieldgate/internal/users"
)

// StaleRoleMetrics records scan results. Implemented by
// observability.Metrics.
type StaleRoleMetrics interface {
	SetStaleRoleUsers(n float64)
}

// StaleRoleScanJob reports user records still carrying a deleted custom
// role. Such users degrade to zero permissions at request time; the scan
// is the operational path to find and reassign them instead of failing
// their requests.
type StaleRoleScanJob struct {
	users    users.RepositoryPort
	registry *authz.Registry
	logger   *slog.Logger
	metrics  StaleRoleMetrics
}

// NewStaleRoleScanJob constructs the job. metrics may be nil.
func NewStaleRoleScanJob(repo users.RepositoryPort, registry *authz.Registry, logger *slog.Logger, metrics StaleRoleMetrics) *StaleRoleScanJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &StaleRoleScanJob{users: repo, registry: registry, logger: logger, metrics: metrics}
}

// Handle processes TaskStaleRoleScan tasks.
func (j *StaleRoleScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload StaleRoleScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Limit <= 0 {
		payload.Limit = 20
	}

	list, err := j.users.ListUsers(ctx)
	if err != nil {
		return err
	}

	stale := 0
	for _, u := range list {
		exists, err := j.registry.RoleExists(ctx, u.Role)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		stale++
		if stale <= payload.Limit {
			j.logger.Warn("stale role assignment",
				slog.String("user_id", u.ID.String()),
				slog.String("role", u.Role),
			)
		}
	}

	if j.metrics != nil {
		j.metrics.SetStaleRoleUsers(float64(stale))
	}
	j.logger.Info("stale role scan complete",
		slog.Int("users", len(list)),
		slog.Int("stale", stale),
	)
	return nil
}
