package workflow

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/audit"
	"github.com/google/uuid"
)

// Configuration is an organization-scoped approval workflow definition.
// Resolution picks the active configuration with the highest priority whose
// effective window covers the instant.
type Configuration struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID

	Name     string
	Criteria Criteria
	Priority int

	EffectiveFrom time.Time
	EffectiveTo   *time.Time
	IsActive      bool

	CreatedAt time.Time
	UpdatedAt time.Time
	IsDeleted bool
	DeletedAt *time.Time
}

// CoversInstant reports whether the configuration's effective window
// contains t.
func (c Configuration) CoversInstant(t time.Time) bool {
	if t.Before(c.EffectiveFrom) {
		return false
	}
	if c.EffectiveTo != nil && t.After(*c.EffectiveTo) {
		return false
	}
	return true
}

func (c Configuration) AuditEntityType() string  { return "workflow_configuration" }
func (c Configuration) AuditEntityID() uuid.UUID { return c.ID }

func (c Configuration) Snapshot() audit.Values {
	return audit.Values{
		"id":              audit.UUIDValue(c.ID),
		"organization_id": audit.UUIDValue(c.OrganizationID),
		"name":            c.Name,
		"priority":        float64(c.Priority),
		"effective_from":  audit.TimeValue(c.EffectiveFrom),
		"effective_to":    audit.TimePtr(c.EffectiveTo),
		"is_active":       c.IsActive,
		"is_deleted":      c.IsDeleted,
		"deleted_at":      audit.TimePtr(c.DeletedAt),
	}
}

// Criteria is the JSONB matching-criteria blob on a configuration. The core
// treats it as opaque; resolution is by priority alone.
type Criteria map[string]any

// Value implements driver.Valuer for database storage
func (c Criteria) Value() (driver.Value, error) {
	if len(c) == 0 {
		return nil, nil
	}
	return json.Marshal(c)
}

// Scan implements sql.Scanner for database retrieval
func (c *Criteria) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan Criteria: invalid type")
	}

	return json.Unmarshal(bytes, c)
}

type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepApproved  StepStatus = "approved"
	StepRejected  StepStatus = "rejected"
	StepSkipped   StepStatus = "skipped"
	StepEscalated StepStatus = "escalated"
	StepDelegated StepStatus = "delegated"
)

// Step is one instantiated approval step of a leave request. StepOrder is
// 0-based and contiguous per request; the step the request's cursor points
// at is the only one an approver may act on.
type Step struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	LeaveRequestID uuid.UUID
	WorkflowID     *uuid.UUID

	StepOrder  int
	ApproverID uuid.UUID
	Status     StepStatus

	ActionedAt    *time.Time
	ActionRemarks *string

	CreatedAt time.Time
	UpdatedAt time.Time
	IsDeleted bool
	DeletedAt *time.Time
}

func (s Step) AuditEntityType() string  { return "workflow_step" }
func (s Step) AuditEntityID() uuid.UUID { return s.ID }

func (s Step) Snapshot() audit.Values {
	return audit.Values{
		"id":               audit.UUIDValue(s.ID),
		"organization_id":  audit.UUIDValue(s.OrganizationID),
		"leave_request_id": audit.UUIDValue(s.LeaveRequestID),
		"workflow_id":      audit.UUIDPtr(s.WorkflowID),
		"step_order":       float64(s.StepOrder),
		"approver_id":      audit.UUIDValue(s.ApproverID),
		"status":           string(s.Status),
		"actioned_at":      audit.TimePtr(s.ActionedAt),
		"action_remarks":   audit.StringPtr(s.ActionRemarks),
		"is_deleted":       s.IsDeleted,
		"deleted_at":       audit.TimePtr(s.DeletedAt),
	}
}
