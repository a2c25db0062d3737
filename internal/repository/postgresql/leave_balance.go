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

type leaveBalanceRepositoryImpl struct {
	db    *database.DB
	audit audit.Repository
}

func NewLeaveBalanceRepository(db *database.DB, auditRepo audit.Repository) leave.BalanceRepository {
	return &leaveBalanceRepositoryImpl{db: db, audit: auditRepo}
}

const leaveBalanceColumns = `
	id, organization_id, user_id, leave_type_id, policy_id,
	period_start, period_end,
	opening_balance, accrued, used, pending, adjusted, carried_forward, encashed, expired,
	created_at, updated_at, is_deleted, deleted_at
`

func scanLeaveBalance(row pgx.Row) (*leave.LeaveBalance, error) {
	var b leave.LeaveBalance
	err := row.Scan(
		&b.ID, &b.OrganizationID, &b.UserID, &b.LeaveTypeID, &b.PolicyID,
		&b.PeriodStart, &b.PeriodEnd,
		&b.OpeningBalance, &b.Accrued, &b.Used, &b.Pending, &b.Adjusted, &b.CarriedForward, &b.Encashed, &b.Expired,
		&b.CreatedAt, &b.UpdatedAt, &b.IsDeleted, &b.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *leaveBalanceRepositoryImpl) Get(ctx context.Context, id uuid.UUID) (*leave.LeaveBalance, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + leaveBalanceColumns + ` FROM leave_balances WHERE id = $1 AND is_deleted = FALSE`

	b, err := scanLeaveBalance(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}

func (r *leaveBalanceRepositoryImpl) GetRequired(ctx context.Context, id uuid.UUID) (*leave.LeaveBalance, error) {
	b, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, leave.ErrBalanceNotFound
	}
	return b, nil
}

func (r *leaveBalanceRepositoryImpl) getCurrent(ctx context.Context, userID, leaveTypeID uuid.UUID, on time.Time, forUpdate bool) (*leave.LeaveBalance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + leaveBalanceColumns + `
		FROM leave_balances
		WHERE user_id = $1
		  AND leave_type_id = $2
		  AND period_start <= $3
		  AND period_end >= $3
		  AND is_deleted = FALSE
		ORDER BY period_start DESC
		LIMIT 1
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	b, err := scanLeaveBalance(q.QueryRow(ctx, query, userID, leaveTypeID, on))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}

func (r *leaveBalanceRepositoryImpl) GetCurrent(ctx context.Context, userID, leaveTypeID uuid.UUID, on time.Time) (*leave.LeaveBalance, error) {
	return r.getCurrent(ctx, userID, leaveTypeID, on, false)
}

// GetCurrentForUpdate locks the balance row. The leave request row must
// already be locked by the caller.
func (r *leaveBalanceRepositoryImpl) GetCurrentForUpdate(ctx context.Context, userID, leaveTypeID uuid.UUID, on time.Time) (*leave.LeaveBalance, error) {
	return r.getCurrent(ctx, userID, leaveTypeID, on, true)
}

func (r *leaveBalanceRepositoryImpl) ListForUser(ctx context.Context, userID uuid.UUID) ([]leave.LeaveBalance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + leaveBalanceColumns + `
		FROM leave_balances
		WHERE user_id = $1 AND is_deleted = FALSE
		ORDER BY period_start DESC, leave_type_id ASC
	`

	rows, err := q.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []leave.LeaveBalance
	for rows.Next() {
		b, err := scanLeaveBalance(rows)
		if err != nil {
			return nil, err
		}
		balances = append(balances, *b)
	}
	return balances, rows.Err()
}

func (r *leaveBalanceRepositoryImpl) ListByPolicy(ctx context.Context, policyID uuid.UUID, on time.Time) ([]leave.LeaveBalance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + leaveBalanceColumns + `
		FROM leave_balances
		WHERE policy_id = $1
		  AND period_start <= $2
		  AND period_end >= $2
		  AND is_deleted = FALSE
		ORDER BY user_id ASC, period_start DESC
	`

	rows, err := q.Query(ctx, query, policyID, on)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []leave.LeaveBalance
	for rows.Next() {
		b, err := scanLeaveBalance(rows)
		if err != nil {
			return nil, err
		}
		balances = append(balances, *b)
	}
	return balances, rows.Err()
}

func (r *leaveBalanceRepositoryImpl) Create(ctx context.Context, b *leave.LeaveBalance, actx audit.Context) error {
	q := GetQuerier(ctx, r.db)

	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}

	query := `
		INSERT INTO leave_balances (
			id, organization_id, user_id, leave_type_id, policy_id,
			period_start, period_end,
			opening_balance, accrued, used, pending, adjusted, carried_forward, encashed, expired,
			created_at, updated_at, is_deleted
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7,
			$8, $9, $10, $11, $12, $13, $14, $15,
			NOW(), NOW(), FALSE
		) RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		b.ID, b.OrganizationID, b.UserID, b.LeaveTypeID, b.PolicyID,
		b.PeriodStart, b.PeriodEnd,
		b.OpeningBalance, b.Accrued, b.Used, b.Pending, b.Adjusted, b.CarriedForward, b.Encashed, b.Expired,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert leave balance: %w", err)
	}

	return audit.Record(ctx, r.audit, audit.ActionCreate, b, nil, b.Snapshot(), actx, "leave balance created")
}

func (r *leaveBalanceRepositoryImpl) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any, action audit.Action, description string, actx audit.Context) (*leave.LeaveBalance, error) {
	q := GetQuerier(ctx, r.db)

	old, err := r.GetRequired(ctx, id)
	if err != nil {
		return nil, err
	}

	setClause, args := buildSetClause(fields, 2)
	query := fmt.Sprintf(`UPDATE leave_balances SET %s, updated_at = NOW() WHERE id = $1`, setClause)

	if _, err := q.Exec(ctx, query, append([]any{id}, args...)...); err != nil {
		return nil, fmt.Errorf("update leave balance: %w", err)
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

func (r *leaveBalanceRepositoryImpl) SoftDelete(ctx context.Context, id uuid.UUID, actx audit.Context) error {
	q := GetQuerier(ctx, r.db)

	old, err := r.GetRequired(ctx, id)
	if err != nil {
		return err
	}

	query := `
		UPDATE leave_balances
		SET is_deleted = TRUE, deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE
		RETURNING ` + leaveBalanceColumns + `
	`

	deleted, err := scanLeaveBalance(q.QueryRow(ctx, query, id))
	if err != nil {
		return fmt.Errorf("soft delete leave balance: %w", err)
	}

	return audit.Record(ctx, r.audit, audit.ActionDelete, deleted, old.Snapshot(), deleted.Snapshot(), actx, "leave balance deleted")
}
