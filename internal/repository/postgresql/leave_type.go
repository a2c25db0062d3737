package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/lms-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/lms-backend-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type leaveTypeRepositoryImpl struct {
	db    *database.DB
	audit audit.Repository
}

func NewLeaveTypeRepository(db *database.DB, auditRepo audit.Repository) leave.TypeRepository {
	return &leaveTypeRepositoryImpl{db: db, audit: auditRepo}
}

const leaveTypeColumns = `
	id, organization_id, code, name, description, is_active, requires_reason,
	created_at, updated_at, is_deleted, deleted_at
`

func scanLeaveType(row pgx.Row) (*leave.LeaveType, error) {
	var t leave.LeaveType
	err := row.Scan(
		&t.ID, &t.OrganizationID, &t.Code, &t.Name, &t.Description, &t.IsActive, &t.RequiresReason,
		&t.CreatedAt, &t.UpdatedAt, &t.IsDeleted, &t.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *leaveTypeRepositoryImpl) Get(ctx context.Context, id uuid.UUID) (*leave.LeaveType, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + leaveTypeColumns + ` FROM leave_types WHERE id = $1 AND is_deleted = FALSE`

	t, err := scanLeaveType(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

func (r *leaveTypeRepositoryImpl) GetRequired(ctx context.Context, id uuid.UUID) (*leave.LeaveType, error) {
	t, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, leave.ErrLeaveTypeNotFound
	}
	return t, nil
}

func (r *leaveTypeRepositoryImpl) GetByCode(ctx context.Context, organizationID uuid.UUID, code string) (*leave.LeaveType, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + leaveTypeColumns + ` FROM leave_types WHERE organization_id = $1 AND code = $2 AND is_deleted = FALSE`

	t, err := scanLeaveType(q.QueryRow(ctx, query, organizationID, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

func (r *leaveTypeRepositoryImpl) List(ctx context.Context, organizationID uuid.UUID, limit, offset int) ([]leave.LeaveType, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + leaveTypeColumns + `
		FROM leave_types
		WHERE organization_id = $1 AND is_deleted = FALSE
		ORDER BY code ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := q.Query(ctx, query, organizationID, clampLimit(limit), offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []leave.LeaveType
	for rows.Next() {
		t, err := scanLeaveType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, *t)
	}
	return types, rows.Err()
}

func (r *leaveTypeRepositoryImpl) Create(ctx context.Context, t *leave.LeaveType, actx audit.Context) error {
	q := GetQuerier(ctx, r.db)

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	query := `
		INSERT INTO leave_types (
			id, organization_id, code, name, description, is_active, requires_reason,
			created_at, updated_at, is_deleted
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			NOW(), NOW(), FALSE
		) RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		t.ID, t.OrganizationID, t.Code, t.Name, t.Description, t.IsActive, t.RequiresReason,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert leave type: %w", err)
	}

	return audit.Record(ctx, r.audit, audit.ActionCreate, t, nil, t.Snapshot(), actx, "leave type created")
}

func (r *leaveTypeRepositoryImpl) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any, action audit.Action, description string, actx audit.Context) (*leave.LeaveType, error) {
	q := GetQuerier(ctx, r.db)

	old, err := r.GetRequired(ctx, id)
	if err != nil {
		return nil, err
	}

	setClause, args := buildSetClause(fields, 2)
	query := fmt.Sprintf(`UPDATE leave_types SET %s, updated_at = NOW() WHERE id = $1`, setClause)

	if _, err := q.Exec(ctx, query, append([]any{id}, args...)...); err != nil {
		return nil, fmt.Errorf("update leave type: %w", err)
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

func (r *leaveTypeRepositoryImpl) SoftDelete(ctx context.Context, id uuid.UUID, actx audit.Context) error {
	q := GetQuerier(ctx, r.db)

	old, err := r.GetRequired(ctx, id)
	if err != nil {
		return err
	}

	query := `
		UPDATE leave_types
		SET is_deleted = TRUE, deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE
		RETURNING ` + leaveTypeColumns + `
	`

	deleted, err := scanLeaveType(q.QueryRow(ctx, query, id))
	if err != nil {
		return fmt.Errorf("soft delete leave type: %w", err)
	}

	return audit.Record(ctx, r.audit, audit.ActionDelete, deleted, old.Snapshot(), deleted.Snapshot(), actx, "leave type deleted")
}
