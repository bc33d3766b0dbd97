// Package jobs wires background processing on Asynq.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStaleRoleScan flags user records whose role no longer resolves.
	TaskStaleRoleScan = "authz:stale_role_scan"
)

// StaleRoleScanPayload configures a scan run.
type StaleRoleScanPayload struct {
	// Limit caps how many offending users are listed in the log output.
	Limit int `json:"limit"`
}

// NewStaleRoleScanTask constructs an Asynq task.
func NewStaleRoleScanTask(payload StaleRoleScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStaleRoleScan, data), nil
}
