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

type leavePolicyRepositoryImpl struct {
	db    *database.DB
	audit audit.Repository
}

func NewLeavePolicyRepository(db *database.DB, auditRepo audit.Repository) leave.PolicyRepository {
	return &leavePolicyRepositoryImpl{db: db, audit: auditRepo}
}

const leavePolicyColumns = `
	id, organization_id, leave_type_id, name,
	accrual_frequency, accrual_amount, accrual_cap,
	carry_forward_type, carry_forward_cap, allow_negative_balance,
	eligibility_type, eligibility_tenure_days, eligibility_rules,
	effective_from, effective_to, is_active,
	created_at, updated_at, is_deleted, deleted_at
`

func scanLeavePolicy(row pgx.Row) (*leave.LeavePolicy, error) {
	var p leave.LeavePolicy
	err := row.Scan(
		&p.ID, &p.OrganizationID, &p.LeaveTypeID, &p.Name,
		&p.AccrualFrequency, &p.AccrualAmount, &p.AccrualCap,
		&p.CarryForwardType, &p.CarryForwardCap, &p.AllowNegativeBalance,
		&p.EligibilityType, &p.EligibilityTenureDays, &p.EligibilityRules,
		&p.EffectiveFrom, &p.EffectiveTo, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt, &p.IsDeleted, &p.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *leavePolicyRepositoryImpl) Get(ctx context.Context, id uuid.UUID) (*leave.LeavePolicy, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + leavePolicyColumns + ` FROM leave_policies WHERE id = $1 AND is_deleted = FALSE`

	p, err := scanLeavePolicy(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (r *leavePolicyRepositoryImpl) GetRequired(ctx context.Context, id uuid.UUID) (*leave.LeavePolicy, error) {
	p, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, leave.ErrPolicyNotFound
	}
	return p, nil
}

// ListActive returns active policies effective at the given instant,
// most recent effective_from first with id as the deterministic tie-break.
func (r *leavePolicyRepositoryImpl) ListActive(ctx context.Context, organizationID, leaveTypeID uuid.UUID, at time.Time) ([]leave.LeavePolicy, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + leavePolicyColumns + `
		FROM leave_policies
		WHERE organization_id = $1
		  AND leave_type_id = $2
		  AND is_active = TRUE
		  AND is_deleted = FALSE
		  AND effective_from <= $3
		  AND (effective_to IS NULL OR effective_to >= $3)
		ORDER BY effective_from DESC, id ASC
	`

	rows, err := q.Query(ctx, query, organizationID, leaveTypeID, at)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []leave.LeavePolicy
	for rows.Next() {
		p, err := scanLeavePolicy(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, *p)
	}
	return policies, rows.Err()
}

// ListAccruable feeds the scheduled accrual sweep: every active policy
// with an accrual frequency, regardless of organization.
func (r *leavePolicyRepositoryImpl) ListAccruable(ctx context.Context, at time.Time) ([]leave.LeavePolicy, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + leavePolicyColumns + `
		FROM leave_policies
		WHERE accrual_frequency <> 'none'
		  AND is_active = TRUE
		  AND is_deleted = FALSE
		  AND effective_from <= $1
		  AND (effective_to IS NULL OR effective_to >= $1)
		ORDER BY organization_id ASC, id ASC
	`

	rows, err := q.Query(ctx, query, at)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []leave.LeavePolicy
	for rows.Next() {
		p, err := scanLeavePolicy(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, *p)
	}
	return policies, rows.Err()
}

func (r *leavePolicyRepositoryImpl) List(ctx context.Context, organizationID uuid.UUID, limit, offset int) ([]leave.LeavePolicy, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + leavePolicyColumns + `
		FROM leave_policies
		WHERE organization_id = $1 AND is_deleted = FALSE
		ORDER BY effective_from DESC, id ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := q.Query(ctx, query, organizationID, clampLimit(limit), offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []leave.LeavePolicy
	for rows.Next() {
		p, err := scanLeavePolicy(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, *p)
	}
	return policies, rows.Err()
}

func (r *leavePolicyRepositoryImpl) Create(ctx context.Context, p *leave.LeavePolicy, actx audit.Context) error {
	q := GetQuerier(ctx, r.db)

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	query := `
		INSERT INTO leave_policies (
			id, organization_id, leave_type_id, name,
			accrual_frequency, accrual_amount, accrual_cap,
			carry_forward_type, carry_forward_cap, allow_negative_balance,
			eligibility_type, eligibility_tenure_days, eligibility_rules,
			effective_from, effective_to, is_active,
			created_at, updated_at, is_deleted
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9, $10,
			$11, $12, $13,
			$14, $15, $16,
			NOW(), NOW(), FALSE
		) RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		p.ID, p.OrganizationID, p.LeaveTypeID, p.Name,
		p.AccrualFrequency, p.AccrualAmount, p.AccrualCap,
		p.CarryForwardType, p.CarryForwardCap, p.AllowNegativeBalance,
		p.EligibilityType, p.EligibilityTenureDays, p.EligibilityRules,
		p.EffectiveFrom, p.EffectiveTo, p.IsActive,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert leave policy: %w", err)
	}

	return audit.Record(ctx, r.audit, audit.ActionCreate, p, nil, p.Snapshot(), actx, "leave policy created")
}

func (r *leavePolicyRepositoryImpl) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any, action audit.Action, description string, actx audit.Context) (*leave.LeavePolicy, error) {
	q := GetQuerier(ctx, r.db)

	old, err := r.GetRequired(ctx, id)
	if err != nil {
		return nil, err
	}

	setClause, args := buildSetClause(fields, 2)
	query := fmt.Sprintf(`UPDATE leave_policies SET %s, updated_at = NOW() WHERE id = $1`, setClause)

	if _, err := q.Exec(ctx, query, append([]any{id}, args...)...); err != nil {
		return nil, fmt.Errorf("update leave policy: %w", err)
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

func (r *leavePolicyRepositoryImpl) SoftDelete(ctx context.Context, id uuid.UUID, actx audit.Context) error {
	q := GetQuerier(ctx, r.db)

	old, err := r.GetRequired(ctx, id)
	if err != nil {
		return err
	}

	query := `
		UPDATE leave_policies
		SET is_deleted = TRUE, deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE
		RETURNING ` + leavePolicyColumns + `
	`

	deleted, err := scanLeavePolicy(q.QueryRow(ctx, query, id))
	if err != nil {
		return fmt.Errorf("soft delete leave policy: %w", err)
	}

	return audit.Record(ctx, r.audit, audit.ActionDelete, deleted, old.Snapshot(), deleted.Snapshot(), actx, "leave policy deleted")
}
