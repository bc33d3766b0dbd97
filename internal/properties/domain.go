// Package properties manages properties and their work orders. It is the
// reference consumer of the authorization engine: every query goes through
// the row-level scope filter resolved for the calling user.
package properties

import (
	"time"

	"github.com/google/uuid"
)

// Property is a managed building or unit.
type Property struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	OwnerID   uuid.UUID `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WorkOrder is a field-service job raised against a property.
type WorkOrder struct {
	ID         uuid.UUID `json:"id"`
	PropertyID uuid.UUID `json:"property_id"`
	Title      string    `json:"title"`
	Status     string    `json:"status"`
	OwnerID    uuid.UUID `json:"owner_id"`
	AssigneeID uuid.UUID `json:"assignee_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
