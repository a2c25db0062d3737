package user

import (
	"time"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/audit"
	"github.com/google/uuid"
)

type Role string

const (
	RoleEmployee    Role = "employee"
	RoleManager     Role = "manager"
	RoleHRAdmin     Role = "hr_admin"
	RoleSystemAdmin Role = "system_admin"
	RoleAuditor     Role = "auditor"
)

type Status string

const (
	StatusActive     Status = "active"
	StatusInactive   Status = "inactive"
	StatusSuspended  Status = "suspended"
	StatusTerminated Status = "terminated"
)

// User is an employee record. ManagerID is self-referential and drives the
// default approver chain on leave submission.
type User struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID

	EmployeeID   string
	Email        string
	FullName     string
	PasswordHash string

	Role           Role
	Status         Status
	EmploymentType string

	HireDate         *time.Time
	ProbationEndDate *time.Time
	ManagerID        *uuid.UUID

	CreatedAt time.Time
	UpdatedAt time.Time
	IsDeleted bool
	DeletedAt *time.Time
}

// IsActiveActor reports whether the user may initiate new requests.
func (u User) IsActiveActor() bool {
	return u.Status == StatusActive && !u.IsDeleted
}

// Attributes returns the enumerated attribute map that custom eligibility
// rules evaluate against.
func (u User) Attributes() map[string]string {
	attrs := map[string]string{
		"role":            string(u.Role),
		"status":          string(u.Status),
		"employment_type": u.EmploymentType,
		"employee_id":     u.EmployeeID,
	}
	if u.ManagerID != nil {
		attrs["manager_id"] = u.ManagerID.String()
	}
	return attrs
}

func (u User) AuditEntityType() string  { return "user" }
func (u User) AuditEntityID() uuid.UUID { return u.ID }

func (u User) Snapshot() audit.Values {
	return audit.Values{
		"id":                 audit.UUIDValue(u.ID),
		"organization_id":    audit.UUIDValue(u.OrganizationID),
		"employee_id":        u.EmployeeID,
		"email":              u.Email,
		"full_name":          u.FullName,
		"role":               string(u.Role),
		"status":             string(u.Status),
		"employment_type":    u.EmploymentType,
		"hire_date":          audit.TimePtr(u.HireDate),
		"probation_end_date": audit.TimePtr(u.ProbationEndDate),
		"manager_id":         audit.UUIDPtr(u.ManagerID),
		"is_deleted":         u.IsDeleted,
		"deleted_at":         audit.TimePtr(u.DeletedAt),
	}
}
