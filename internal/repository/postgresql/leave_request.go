package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/lms-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/lms-backend-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type leaveRequestRepositoryImpl struct {
	db    *database.DB
	audit audit.Repository
}

func NewLeaveRequestRepository(db *database.DB, auditRepo audit.Repository) leave.RequestRepository {
	return &leaveRequestRepositoryImpl{db: db, audit: auditRepo}
}

const leaveRequestColumns = `
	id, organization_id, request_number, user_id, leave_type_id, policy_id,
	start_date, end_date, total_days, reason,
	status, current_workflow_step, submitted_at,
	decided_at, decided_by, decision_remarks,
	cancelled_at, cancelled_by, cancellation_reason,
	created_at, updated_at, is_deleted, deleted_at
`

func scanLeaveRequest(row pgx.Row) (*leave.LeaveRequest, error) {
	var r leave.LeaveRequest
	err := row.Scan(
		&r.ID, &r.OrganizationID, &r.RequestNumber, &r.UserID, &r.LeaveTypeID, &r.PolicyID,
		&r.StartDate, &r.EndDate, &r.TotalDays, &r.Reason,
		&r.Status, &r.CurrentWorkflowStep, &r.SubmittedAt,
		&r.DecidedAt, &r.DecidedBy, &r.DecisionRemarks,
		&r.CancelledAt, &r.CancelledBy, &r.CancellationReason,
		&r.CreatedAt, &r.UpdatedAt, &r.IsDeleted, &r.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *leaveRequestRepositoryImpl) get(ctx context.Context, id uuid.UUID, forUpdate bool) (*leave.LeaveRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + leaveRequestColumns + ` FROM leave_requests WHERE id = $1 AND is_deleted = FALSE`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	req, err := scanLeaveRequest(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return req, nil
}

func (r *leaveRequestRepositoryImpl) Get(ctx context.Context, id uuid.UUID) (*leave.LeaveRequest, error) {
	return r.get(ctx, id, false)
}

func (r *leaveRequestRepositoryImpl) GetRequired(ctx context.Context, id uuid.UUID) (*leave.LeaveRequest, error) {
	req, err := r.get(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, leave.ErrLeaveRequestNotFound
	}
	return req, nil
}

// GetForUpdate locks the request row. Locking order is always the request
// first, then its balance.
func (r *leaveRequestRepositoryImpl) GetForUpdate(ctx context.Context, id uuid.UUID) (*leave.LeaveRequest, error) {
	req, err := r.get(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, leave.ErrLeaveRequestNotFound
	}
	return req, nil
}

func (r *leaveRequestRepositoryImpl) GetByNumber(ctx context.Context, requestNumber string) (*leave.LeaveRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + leaveRequestColumns + ` FROM leave_requests WHERE request_number = $1 AND is_deleted = FALSE`

	req, err := scanLeaveRequest(q.QueryRow(ctx, query, requestNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return req, nil
}

// FindOverlapping returns the user's requests intersecting [start, end],
// inclusive on both ends. Approved leave still occupies its window; only
// rejected, cancelled and withdrawn requests are ignored.
func (r *leaveRequestRepositoryImpl) FindOverlapping(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]leave.LeaveRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + leaveRequestColumns + `
		FROM leave_requests
		WHERE user_id = $1
		  AND is_deleted = FALSE
		  AND status IN ($2, $3, $4)
		  AND start_date <= $5
		  AND end_date >= $6
		ORDER BY start_date ASC
	`

	rows, err := q.Query(ctx, query, userID, leave.StatusDraft, leave.StatusPendingApproval, leave.StatusApproved, end, start)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectLeaveRequests(rows)
}

func (r *leaveRequestRepositoryImpl) List(ctx context.Context, filter leave.RequestFilter) ([]leave.LeaveRequest, error) {
	q := GetQuerier(ctx, r.db)

	whereClause, args := buildRequestFilter(filter)
	argIndex := len(args) + 1

	query := fmt.Sprintf(`
		SELECT `+leaveRequestColumns+`
		FROM leave_requests
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argIndex, argIndex+1)
	args = append(args, clampLimit(filter.Limit), filter.Offset)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectLeaveRequests(rows)
}

func (r *leaveRequestRepositoryImpl) Count(ctx context.Context, filter leave.RequestFilter) (int64, error) {
	q := GetQuerier(ctx, r.db)

	whereClause, args := buildRequestFilter(filter)

	var total int64
	err := q.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM leave_requests %s`, whereClause), args...).Scan(&total)
	return total, err
}

func buildRequestFilter(filter leave.RequestFilter) (string, []any) {
	whereClause := "WHERE is_deleted = FALSE"
	var args []any
	argIndex := 1

	if filter.OrganizationID != nil {
		whereClause += fmt.Sprintf(" AND organization_id = $%d", argIndex)
		args = append(args, *filter.OrganizationID)
		argIndex++
	}
	if filter.UserID != nil {
		whereClause += fmt.Sprintf(" AND user_id = $%d", argIndex)
		args = append(args, *filter.UserID)
		argIndex++
	}
	if filter.Status != nil {
		whereClause += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, *filter.Status)
		argIndex++
	}

	return whereClause, args
}

func collectLeaveRequests(rows pgx.Rows) ([]leave.LeaveRequest, error) {
	var requests []leave.LeaveRequest
	for rows.Next() {
		req, err := scanLeaveRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	return requests, rows.Err()
}

func (r *leaveRequestRepositoryImpl) Create(ctx context.Context, req *leave.LeaveRequest, actx audit.Context) error {
	q := GetQuerier(ctx, r.db)

	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}

	query := `
		INSERT INTO leave_requests (
			id, organization_id, request_number, user_id, leave_type_id, policy_id,
			start_date, end_date, total_days, reason,
			status, current_workflow_step,
			created_at, updated_at, is_deleted
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12,
			NOW(), NOW(), FALSE
		) RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		req.ID, req.OrganizationID, req.RequestNumber, req.UserID, req.LeaveTypeID, req.PolicyID,
		req.StartDate, req.EndDate, req.TotalDays, req.Reason,
		req.Status, req.CurrentWorkflowStep,
	).Scan(&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert leave request: %w", err)
	}

	return audit.Record(ctx, r.audit, audit.ActionCreate, req, nil, req.Snapshot(), actx,
		fmt.Sprintf("leave request %s created", req.RequestNumber))
}

func (r *leaveRequestRepositoryImpl) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any, action audit.Action, description string, actx audit.Context) (*leave.LeaveRequest, error) {
	q := GetQuerier(ctx, r.db)

	old, err := r.GetRequired(ctx, id)
	if err != nil {
		return nil, err
	}

	setClause, args := buildSetClause(fields, 2)
	query := fmt.Sprintf(`UPDATE leave_requests SET %s, updated_at = NOW() WHERE id = $1`, setClause)

	if _, err := q.Exec(ctx, query, append([]any{id}, args...)...); err != nil {
		return nil, fmt.Errorf("update leave request: %w", err)
	}

	updated, err := r.GetRequired(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := audit.Record(ctx, r.audit, action, updated, old.Snapshot(), updated.Snapshot(), actx, description); err != nil {
		return nil, err
	}
	return updated, nil
}

// SoftDelete flips the request and cascades to its owned date and workflow
// step rows.
func (r *leaveRequestRepositoryImpl) SoftDelete(ctx context.Context, id uuid.UUID, actx audit.Context) error {
	q := GetQuerier(ctx, r.db)

	old, err := r.GetRequired(ctx, id)
	if err != nil {
		return err
	}

	query := `
		UPDATE leave_requests
		SET is_deleted = TRUE, deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE
		RETURNING ` + leaveRequestColumns + `
	`

	deleted, err := scanLeaveRequest(q.QueryRow(ctx, query, id))
	if err != nil {
		return fmt.Errorf("soft delete leave request: %w", err)
	}

	cascade := `
		UPDATE %s
		SET is_deleted = TRUE, deleted_at = NOW(), updated_at = NOW()
		WHERE leave_request_id = $1 AND is_deleted = FALSE
	`
	if _, err := q.Exec(ctx, fmt.Sprintf(cascade, "leave_request_dates"), id); err != nil {
		return fmt.Errorf("cascade soft delete dates: %w", err)
	}
	if _, err := q.Exec(ctx, fmt.Sprintf(cascade, "workflow_steps"), id); err != nil {
		return fmt.Errorf("cascade soft delete steps: %w", err)
	}

	return audit.Record(ctx, r.audit, audit.ActionDelete, deleted, old.Snapshot(), deleted.Snapshot(), actx,
		fmt.Sprintf("leave request %s deleted", deleted.RequestNumber))
}
