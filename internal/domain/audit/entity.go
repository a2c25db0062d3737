package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action classifies an audited mutation.
type Action string

const (
	ActionCreate       Action = "create"
	ActionUpdate       Action = "update"
	ActionDelete       Action = "delete"
	ActionStatusChange Action = "status_change"
	ActionApproval     Action = "approval"
	ActionRejection    Action = "rejection"
	ActionAccrual      Action = "accrual"
	ActionAdjustment   Action = "adjustment"
)

// Log is one immutable audit event. Rows are append-only: no repository
// exposes update or delete for them, and Timestamp is assigned by the
// database server.
type Log struct {
	ID        uuid.UUID
	Timestamp time.Time

	ActorID        *uuid.UUID
	ActorType      ActorType
	ActorIP        string
	ActorUserAgent string

	Action     Action
	EntityType string
	EntityID   uuid.UUID

	OrganizationID *uuid.UUID

	OldValues Values
	NewValues Values
	Changes   map[string]Change

	Description string
	Extra       map[string]any

	RequestID string
	SessionID string
}
