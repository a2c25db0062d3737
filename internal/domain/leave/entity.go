package leave

import (
	"time"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/audit"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LeaveType entity
type LeaveType struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID

	// Code is unique per organization.
	Code        string
	Name        string
	Description *string

	IsActive       bool
	RequiresReason bool

	CreatedAt time.Time
	UpdatedAt time.Time
	IsDeleted bool
	DeletedAt *time.Time
}

func (t LeaveType) AuditEntityType() string  { return "leave_type" }
func (t LeaveType) AuditEntityID() uuid.UUID { return t.ID }

func (t LeaveType) Snapshot() audit.Values {
	return audit.Values{
		"id":              audit.UUIDValue(t.ID),
		"organization_id": audit.UUIDValue(t.OrganizationID),
		"code":            t.Code,
		"name":            t.Name,
		"description":     audit.StringPtr(t.Description),
		"is_active":       t.IsActive,
		"requires_reason": t.RequiresReason,
		"is_deleted":      t.IsDeleted,
		"deleted_at":      audit.TimePtr(t.DeletedAt),
	}
}

type AccrualFrequency string

const (
	AccrualNone      AccrualFrequency = "none"
	AccrualMonthly   AccrualFrequency = "monthly"
	AccrualQuarterly AccrualFrequency = "quarterly"
	AccrualYearly    AccrualFrequency = "yearly"
)

type EligibilityType string

const (
	EligibilityImmediate      EligibilityType = "immediate"
	EligibilityAfterProbation EligibilityType = "after_probation"
	EligibilityAfterTenure    EligibilityType = "after_tenure"
	EligibilityCustom         EligibilityType = "custom"
)

type CarryForwardType string

const (
	CarryForwardNone   CarryForwardType = "none"
	CarryForwardCapped CarryForwardType = "capped"
	CarryForwardFull   CarryForwardType = "full"
)

// LeavePolicy scopes accrual, eligibility and carry-forward rules to one
// (organization, leave type) pair within an effective window.
type LeavePolicy struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	LeaveTypeID    uuid.UUID

	Name string

	AccrualFrequency AccrualFrequency
	AccrualAmount    decimal.Decimal
	AccrualCap       *decimal.Decimal

	CarryForwardType CarryForwardType
	CarryForwardCap  *decimal.Decimal

	AllowNegativeBalance bool

	EligibilityType       EligibilityType
	EligibilityTenureDays int
	EligibilityRules      EligibilityRules

	EffectiveFrom time.Time
	EffectiveTo   *time.Time
	IsActive      bool

	CreatedAt time.Time
	UpdatedAt time.Time
	IsDeleted bool
	DeletedAt *time.Time
}

// CoversInstant reports whether the policy's effective window contains t.
func (p LeavePolicy) CoversInstant(t time.Time) bool {
	if t.Before(p.EffectiveFrom) {
		return false
	}
	if p.EffectiveTo != nil && t.After(*p.EffectiveTo) {
		return false
	}
	return true
}

func (p LeavePolicy) AuditEntityType() string  { return "leave_policy" }
func (p LeavePolicy) AuditEntityID() uuid.UUID { return p.ID }

func (p LeavePolicy) Snapshot() audit.Values {
	return audit.Values{
		"id":                      audit.UUIDValue(p.ID),
		"organization_id":         audit.UUIDValue(p.OrganizationID),
		"leave_type_id":           audit.UUIDValue(p.LeaveTypeID),
		"name":                    p.Name,
		"accrual_frequency":       string(p.AccrualFrequency),
		"accrual_amount":          audit.DecimalValue(p.AccrualAmount),
		"accrual_cap":             audit.DecimalPtr(p.AccrualCap),
		"carry_forward_type":      string(p.CarryForwardType),
		"carry_forward_cap":       audit.DecimalPtr(p.CarryForwardCap),
		"allow_negative_balance":  p.AllowNegativeBalance,
		"eligibility_type":        string(p.EligibilityType),
		"eligibility_tenure_days": float64(p.EligibilityTenureDays),
		"effective_from":          audit.TimeValue(p.EffectiveFrom),
		"effective_to":            audit.TimePtr(p.EffectiveTo),
		"is_active":               p.IsActive,
		"is_deleted":              p.IsDeleted,
		"deleted_at":              audit.TimePtr(p.DeletedAt),
	}
}

// LeaveBalance is the per (user, leave type, period) accounting record.
// Available is derived, never stored.
type LeaveBalance struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	UserID         uuid.UUID
	LeaveTypeID    uuid.UUID
	PolicyID       *uuid.UUID

	PeriodStart time.Time
	PeriodEnd   time.Time

	OpeningBalance decimal.Decimal
	Accrued        decimal.Decimal
	Used           decimal.Decimal
	Pending        decimal.Decimal
	Adjusted       decimal.Decimal
	CarriedForward decimal.Decimal
	Encashed       decimal.Decimal
	Expired        decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
	IsDeleted bool
	DeletedAt *time.Time
}

// Available is opening + accrued + carried_forward + adjusted minus
// used, pending, encashed and expired.
func (b LeaveBalance) Available() decimal.Decimal {
	return b.OpeningBalance.
		Add(b.Accrued).
		Add(b.CarriedForward).
		Add(b.Adjusted).
		Sub(b.Used).
		Sub(b.Pending).
		Sub(b.Encashed).
		Sub(b.Expired)
}

func (b LeaveBalance) AuditEntityType() string  { return "leave_balance" }
func (b LeaveBalance) AuditEntityID() uuid.UUID { return b.ID }

func (b LeaveBalance) Snapshot() audit.Values {
	return audit.Values{
		"id":              audit.UUIDValue(b.ID),
		"organization_id": audit.UUIDValue(b.OrganizationID),
		"user_id":         audit.UUIDValue(b.UserID),
		"leave_type_id":   audit.UUIDValue(b.LeaveTypeID),
		"policy_id":       audit.UUIDPtr(b.PolicyID),
		"period_start":    audit.DateValue(b.PeriodStart),
		"period_end":      audit.DateValue(b.PeriodEnd),
		"opening_balance": audit.DecimalValue(b.OpeningBalance),
		"accrued":         audit.DecimalValue(b.Accrued),
		"used":            audit.DecimalValue(b.Used),
		"pending":         audit.DecimalValue(b.Pending),
		"adjusted":        audit.DecimalValue(b.Adjusted),
		"carried_forward": audit.DecimalValue(b.CarriedForward),
		"encashed":        audit.DecimalValue(b.Encashed),
		"expired":         audit.DecimalValue(b.Expired),
		"is_deleted":      b.IsDeleted,
		"deleted_at":      audit.TimePtr(b.DeletedAt),
	}
}

type RequestStatus string

const (
	StatusDraft           RequestStatus = "draft"
	StatusPendingApproval RequestStatus = "pending_approval"
	StatusApproved        RequestStatus = "approved"
	StatusRejected        RequestStatus = "rejected"
	StatusCancelled       RequestStatus = "cancelled"
	StatusWithdrawn       RequestStatus = "withdrawn"
)

// IsTerminal reports whether the status is a sink in the request lifecycle.
func (s RequestStatus) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusCancelled, StatusWithdrawn:
		return true
	}
	return false
}

// BlocksNewRequests reports whether a request in this status keeps its
// window occupied. Approved leave still blocks an overlapping request;
// only rejected, cancelled and withdrawn requests free the dates.
func (s RequestStatus) BlocksNewRequests() bool {
	switch s {
	case StatusDraft, StatusPendingApproval, StatusApproved:
		return true
	}
	return false
}

// LeaveRequest is the central unit of work. CurrentWorkflowStep is the
// cursor: the single step_order at which the next approval action is
// expected while the request is pending approval.
type LeaveRequest struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID

	RequestNumber string
	UserID        uuid.UUID
	LeaveTypeID   uuid.UUID
	PolicyID      *uuid.UUID

	// StartDate and EndDate are inclusive on both ends.
	StartDate time.Time
	EndDate   time.Time
	TotalDays decimal.Decimal
	Reason    string

	Status              RequestStatus
	CurrentWorkflowStep int

	SubmittedAt *time.Time

	DecidedAt       *time.Time
	DecidedBy       *uuid.UUID
	DecisionRemarks *string

	CancelledAt        *time.Time
	CancelledBy        *uuid.UUID
	CancellationReason *string

	CreatedAt time.Time
	UpdatedAt time.Time
	IsDeleted bool
	DeletedAt *time.Time
}

// Overlaps reports whether the request's window intersects [start, end],
// inclusive on both ends.
func (r LeaveRequest) Overlaps(start, end time.Time) bool {
	return !r.StartDate.After(end) && !r.EndDate.Before(start)
}

func (r LeaveRequest) AuditEntityType() string  { return "leave_request" }
func (r LeaveRequest) AuditEntityID() uuid.UUID { return r.ID }

func (r LeaveRequest) Snapshot() audit.Values {
	return audit.Values{
		"id":                    audit.UUIDValue(r.ID),
		"organization_id":       audit.UUIDValue(r.OrganizationID),
		"request_number":        r.RequestNumber,
		"user_id":               audit.UUIDValue(r.UserID),
		"leave_type_id":         audit.UUIDValue(r.LeaveTypeID),
		"policy_id":             audit.UUIDPtr(r.PolicyID),
		"start_date":            audit.DateValue(r.StartDate),
		"end_date":              audit.DateValue(r.EndDate),
		"total_days":            audit.DecimalValue(r.TotalDays),
		"reason":                r.Reason,
		"status":                string(r.Status),
		"current_workflow_step": float64(r.CurrentWorkflowStep),
		"submitted_at":          audit.TimePtr(r.SubmittedAt),
		"decided_at":            audit.TimePtr(r.DecidedAt),
		"decided_by":            audit.UUIDPtr(r.DecidedBy),
		"decision_remarks":      audit.StringPtr(r.DecisionRemarks),
		"cancelled_at":          audit.TimePtr(r.CancelledAt),
		"cancelled_by":          audit.UUIDPtr(r.CancelledBy),
		"cancellation_reason":   audit.StringPtr(r.CancellationReason),
		"is_deleted":            r.IsDeleted,
		"deleted_at":            audit.TimePtr(r.DeletedAt),
	}
}

// LeaveRequestDate is one day of a request's window. Unique on
// (leave_request_id, date).
type LeaveRequestDate struct {
	ID             uuid.UUID
	LeaveRequestID uuid.UUID

	Date     time.Time
	DayValue decimal.Decimal

	IsWeekend bool
	IsHoliday bool

	CreatedAt time.Time
	UpdatedAt time.Time
	IsDeleted bool
	DeletedAt *time.Time
}

func (d LeaveRequestDate) AuditEntityType() string  { return "leave_request_date" }
func (d LeaveRequestDate) AuditEntityID() uuid.UUID { return d.ID }

func (d LeaveRequestDate) Snapshot() audit.Values {
	return audit.Values{
		"id":               audit.UUIDValue(d.ID),
		"leave_request_id": audit.UUIDValue(d.LeaveRequestID),
		"date":             audit.DateValue(d.Date),
		"day_value":        audit.DecimalValue(d.DayValue),
		"is_weekend":       d.IsWeekend,
		"is_holiday":       d.IsHoliday,
		"is_deleted":       d.IsDeleted,
		"deleted_at":       audit.TimePtr(d.DeletedAt),
	}
}

// Comment is a remark on a leave request. Internal comments are hidden from
// the requesting employee at the presentation layer.
type Comment struct {
	ID             uuid.UUID
	LeaveRequestID uuid.UUID
	UserID         uuid.UUID

	Body       string
	IsInternal bool

	CreatedAt time.Time
	UpdatedAt time.Time
	IsDeleted bool
	DeletedAt *time.Time
}

func (c Comment) AuditEntityType() string  { return "leave_request_comment" }
func (c Comment) AuditEntityID() uuid.UUID { return c.ID }

func (c Comment) Snapshot() audit.Values {
	return audit.Values{
		"id":               audit.UUIDValue(c.ID),
		"leave_request_id": audit.UUIDValue(c.LeaveRequestID),
		"user_id":          audit.UUIDValue(c.UserID),
		"body":             c.Body,
		"is_internal":      c.IsInternal,
		"is_deleted":       c.IsDeleted,
		"deleted_at":       audit.TimePtr(c.DeletedAt),
	}
}
