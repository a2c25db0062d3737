package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/lms-backend-go/internal/domain/leave"
	"github.com/google/uuid"
)

type leaveRequestRepository struct {
	store *Store
	audit audit.Repository
}

func NewLeaveRequestRepository(store *Store) leave.RequestRepository {
	return &leaveRequestRepository{store: store, audit: NewAuditLogRepository(store)}
}

func (r *leaveRequestRepository) Get(ctx context.Context, id uuid.UUID) (*leave.LeaveRequest, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok || req.IsDeleted {
		return nil, nil
	}
	return &req, nil
}

func (r *leaveRequestRepository) GetRequired(ctx context.Context, id uuid.UUID) (*leave.LeaveRequest, error) {
	req, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, leave.ErrLeaveRequestNotFound
	}
	return req, nil
}

func (r *leaveRequestRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*leave.LeaveRequest, error) {
	return r.GetRequired(ctx, id)
}

func (r *leaveRequestRepository) GetByNumber(ctx context.Context, requestNumber string) (*leave.LeaveRequest, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, req := range s.requests {
		if !req.IsDeleted && req.RequestNumber == requestNumber {
			found := req
			return &found, nil
		}
	}
	return nil, nil
}

func (r *leaveRequestRepository) FindOverlapping(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]leave.LeaveRequest, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var overlapping []leave.LeaveRequest
	for _, req := range s.requests {
		if req.IsDeleted || req.UserID != userID || !req.Status.BlocksNewRequests() {
			continue
		}
		if req.Overlaps(start, end) {
			overlapping = append(overlapping, req)
		}
	}
	sort.Slice(overlapping, func(i, j int) bool {
		return overlapping[i].StartDate.Before(overlapping[j].StartDate)
	})
	return overlapping, nil
}

func (r *leaveRequestRepository) List(ctx context.Context, filter leave.RequestFilter) ([]leave.LeaveRequest, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var requests []leave.LeaveRequest
	for _, req := range s.requests {
		if matchesRequestFilter(req, filter) {
			requests = append(requests, req)
		}
	}
	sort.Slice(requests, func(i, j int) bool {
		if !requests[i].CreatedAt.Equal(requests[j].CreatedAt) {
			return requests[i].CreatedAt.After(requests[j].CreatedAt)
		}
		return requests[i].ID.String() > requests[j].ID.String()
	})
	return paginate(requests, filter.Limit, filter.Offset), nil
}

func (r *leaveRequestRepository) Count(ctx context.Context, filter leave.RequestFilter) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, req := range s.requests {
		if matchesRequestFilter(req, filter) {
			total++
		}
	}
	return total, nil
}

func matchesRequestFilter(req leave.LeaveRequest, filter leave.RequestFilter) bool {
	if req.IsDeleted {
		return false
	}
	if filter.OrganizationID != nil && req.OrganizationID != *filter.OrganizationID {
		return false
	}
	if filter.UserID != nil && req.UserID != *filter.UserID {
		return false
	}
	if filter.Status != nil && req.Status != *filter.Status {
		return false
	}
	return true
}

func (r *leaveRequestRepository) Create(ctx context.Context, req *leave.LeaveRequest, actx audit.Context) error {
	s := r.store
	s.mu.Lock()
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	req.CreatedAt = s.now()
	req.UpdatedAt = req.CreatedAt
	s.requests[req.ID] = *req
	s.mu.Unlock()

	return audit.Record(ctx, r.audit, audit.ActionCreate, req, nil, req.Snapshot(), actx,
		fmt.Sprintf("leave request %s created", req.RequestNumber))
}

func (r *leaveRequestRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any, action audit.Action, description string, actx audit.Context) (*leave.LeaveRequest, error) {
	old, err := r.GetRequired(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *old
	for col, val := range fields {
		switch col {
		case "status":
			updated.Status = leave.RequestStatus(asFieldString(val))
		case "current_workflow_step":
			updated.CurrentWorkflowStep = asInt(val)
		case "submitted_at":
			updated.SubmittedAt = asTimePtr(val)
		case "decided_at":
			updated.DecidedAt = asTimePtr(val)
		case "decided_by":
			updated.DecidedBy = asUUIDPtr(val)
		case "decision_remarks":
			updated.DecisionRemarks = asStringPtr(val)
		case "cancelled_at":
			updated.CancelledAt = asTimePtr(val)
		case "cancelled_by":
			updated.CancelledBy = asUUIDPtr(val)
		case "cancellation_reason":
			updated.CancellationReason = asStringPtr(val)
		case "reason":
			updated.Reason = asFieldString(val)
		default:
			return nil, errUnknownField(col)
		}
	}

	s := r.store
	s.mu.Lock()
	updated.UpdatedAt = s.now()
	s.requests[id] = updated
	s.mu.Unlock()

	if err := audit.Record(ctx, r.audit, action, updated, old.Snapshot(), updated.Snapshot(), actx, description); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *leaveRequestRepository) SoftDelete(ctx context.Context, id uuid.UUID, actx audit.Context) error {
	old, err := r.GetRequired(ctx, id)
	if err != nil {
		return err
	}

	s := r.store
	s.mu.Lock()
	now := s.now()

	deleted := *old
	deleted.IsDeleted = true
	deleted.DeletedAt = &now
	deleted.UpdatedAt = now
	s.requests[id] = deleted

	for dateID, d := range s.dates {
		if d.LeaveRequestID == id && !d.IsDeleted {
			d.IsDeleted = true
			d.DeletedAt = &now
			d.UpdatedAt = now
			s.dates[dateID] = d
		}
	}
	for stepID, step := range s.steps {
		if step.LeaveRequestID == id && !step.IsDeleted {
			step.IsDeleted = true
			step.DeletedAt = &now
			step.UpdatedAt = now
			s.steps[stepID] = step
		}
	}
	s.mu.Unlock()

	return audit.Record(ctx, r.audit, audit.ActionDelete, deleted, old.Snapshot(), deleted.Snapshot(), actx,
		fmt.Sprintf("leave request %s deleted", deleted.RequestNumber))
}

type leaveRequestDateRepository struct {
	store *Store
	audit audit.Repository
}

func NewLeaveRequestDateRepository(store *Store) leave.DateRepository {
	return &leaveRequestDateRepository{store: store, audit: NewAuditLogRepository(store)}
}

func (r *leaveRequestDateRepository) ListForRequest(ctx context.Context, leaveRequestID uuid.UUID) ([]leave.LeaveRequestDate, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var dates []leave.LeaveRequestDate
	for _, d := range s.dates {
		if !d.IsDeleted && d.LeaveRequestID == leaveRequestID {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Date.Before(dates[j].Date) })
	return dates, nil
}

func (r *leaveRequestDateRepository) CreateBatch(ctx context.Context, dates []*leave.LeaveRequestDate, actx audit.Context) error {
	for _, d := range dates {
		s := r.store
		s.mu.Lock()
		if d.ID == uuid.Nil {
			d.ID = uuid.New()
		}
		d.CreatedAt = s.now()
		d.UpdatedAt = d.CreatedAt
		s.dates[d.ID] = *d
		s.mu.Unlock()

		if err := audit.Record(ctx, r.audit, audit.ActionCreate, d, nil, d.Snapshot(), actx, "leave request date created"); err != nil {
			return err
		}
	}
	return nil
}

type commentRepository struct {
	store *Store
	audit audit.Repository
}

func NewCommentRepository(store *Store) leave.CommentRepository {
	return &commentRepository{store: store, audit: NewAuditLogRepository(store)}
}

func (r *commentRepository) Get(ctx context.Context, id uuid.UUID) (*leave.Comment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok || c.IsDeleted {
		return nil, nil
	}
	return &c, nil
}

func (r *commentRepository) ListForRequest(ctx context.Context, leaveRequestID uuid.UUID) ([]leave.Comment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var comments []leave.Comment
	for _, c := range s.comments {
		if !c.IsDeleted && c.LeaveRequestID == leaveRequestID {
			comments = append(comments, c)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.Before(comments[j].CreatedAt)
		}
		return comments[i].ID.String() < comments[j].ID.String()
	})
	return comments, nil
}

func (r *commentRepository) Create(ctx context.Context, c *leave.Comment, actx audit.Context) error {
	s := r.store
	s.mu.Lock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = s.now()
	c.UpdatedAt = c.CreatedAt
	s.comments[c.ID] = *c
	s.mu.Unlock()

	return audit.Record(ctx, r.audit, audit.ActionCreate, c, nil, c.Snapshot(), actx, "comment added")
}
