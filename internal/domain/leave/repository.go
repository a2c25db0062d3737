package leave

import (
	"context"
	"time"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/audit"
	"github.com/google/uuid"
)

type TypeRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*LeaveType, error)
	GetRequired(ctx context.Context, id uuid.UUID) (*LeaveType, error)
	GetByCode(ctx context.Context, organizationID uuid.UUID, code string) (*LeaveType, error)
	List(ctx context.Context, organizationID uuid.UUID, limit, offset int) ([]LeaveType, error)

	Create(ctx context.Context, t *LeaveType, actx audit.Context) error
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any, action audit.Action, description string, actx audit.Context) (*LeaveType, error)
	SoftDelete(ctx context.Context, id uuid.UUID, actx audit.Context) error
}

type PolicyRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*LeavePolicy, error)
	GetRequired(ctx context.Context, id uuid.UUID) (*LeavePolicy, error)
	// ListActive returns active policies for the (organization, leave type)
	// pair whose effective window covers at.
	ListActive(ctx context.Context, organizationID, leaveTypeID uuid.UUID, at time.Time) ([]LeavePolicy, error)
	// ListAccruable returns every active policy, across organizations, with a
	// non-none accrual frequency whose effective window covers at. The
	// scheduled accrual sweep drives off this.
	ListAccruable(ctx context.Context, at time.Time) ([]LeavePolicy, error)
	List(ctx context.Context, organizationID uuid.UUID, limit, offset int) ([]LeavePolicy, error)

	Create(ctx context.Context, p *LeavePolicy, actx audit.Context) error
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any, action audit.Action, description string, actx audit.Context) (*LeavePolicy, error)
	SoftDelete(ctx context.Context, id uuid.UUID, actx audit.Context) error
}

type BalanceRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*LeaveBalance, error)
	GetRequired(ctx context.Context, id uuid.UUID) (*LeaveBalance, error)
	// GetCurrent returns the balance whose period contains on, or nil when
	// none exists.
	GetCurrent(ctx context.Context, userID, leaveTypeID uuid.UUID, on time.Time) (*LeaveBalance, error)
	// GetCurrentForUpdate is GetCurrent with a row lock. Callers must lock
	// the leave request before the balance.
	GetCurrentForUpdate(ctx context.Context, userID, leaveTypeID uuid.UUID, on time.Time) (*LeaveBalance, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]LeaveBalance, error)
	// ListByPolicy returns the balances attached to a policy whose period
	// contains on.
	ListByPolicy(ctx context.Context, policyID uuid.UUID, on time.Time) ([]LeaveBalance, error)

	Create(ctx context.Context, b *LeaveBalance, actx audit.Context) error
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any, action audit.Action, description string, actx audit.Context) (*LeaveBalance, error)
	SoftDelete(ctx context.Context, id uuid.UUID, actx audit.Context) error
}

// RequestFilter narrows list and count queries. Limit is capped at
// database.MaxQueryLimit by implementations.
type RequestFilter struct {
	OrganizationID *uuid.UUID
	UserID         *uuid.UUID
	Status         *RequestStatus
	Limit          int
	Offset         int
}

type RequestRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*LeaveRequest, error)
	GetRequired(ctx context.Context, id uuid.UUID) (*LeaveRequest, error)
	// GetForUpdate loads the request under a row lock. Always acquired
	// before the balance lock.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*LeaveRequest, error)
	GetByNumber(ctx context.Context, requestNumber string) (*LeaveRequest, error)
	// FindOverlapping returns the user's blocking requests (draft, pending
	// approval or approved) whose windows intersect [start, end], inclusive
	// on both ends.
	FindOverlapping(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]LeaveRequest, error)
	List(ctx context.Context, filter RequestFilter) ([]LeaveRequest, error)
	Count(ctx context.Context, filter RequestFilter) (int64, error)

	Create(ctx context.Context, r *LeaveRequest, actx audit.Context) error
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any, action audit.Action, description string, actx audit.Context) (*LeaveRequest, error)
	// SoftDelete cascades to the request's date and workflow step rows.
	SoftDelete(ctx context.Context, id uuid.UUID, actx audit.Context) error
}

type DateRepository interface {
	ListForRequest(ctx context.Context, leaveRequestID uuid.UUID) ([]LeaveRequestDate, error)
	CreateBatch(ctx context.Context, dates []*LeaveRequestDate, actx audit.Context) error
}

type CommentRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*Comment, error)
	ListForRequest(ctx context.Context, leaveRequestID uuid.UUID) ([]Comment, error)
	Create(ctx context.Context, c *Comment, actx audit.Context) error
}
