package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/lms-backend-go/internal/domain/workflow"
	"github.com/cmlabs-hris/lms-backend-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type workflowConfigurationRepositoryImpl struct {
	db    *database.DB
	audit audit.Repository
}

func NewWorkflowConfigurationRepository(db *database.DB, auditRepo audit.Repository) workflow.ConfigurationRepository {
	return &workflowConfigurationRepositoryImpl{db: db, audit: auditRepo}
}

const workflowConfigurationColumns = `
	id, organization_id, name, criteria, priority,
	effective_from, effective_to, is_active,
	created_at, updated_at, is_deleted, deleted_at
`

func scanWorkflowConfiguration(row pgx.Row) (*workflow.Configuration, error) {
	var c workflow.Configuration
	err := row.Scan(
		&c.ID, &c.OrganizationID, &c.Name, &c.Criteria, &c.Priority,
		&c.EffectiveFrom, &c.EffectiveTo, &c.IsActive,
		&c.CreatedAt, &c.UpdatedAt, &c.IsDeleted, &c.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *workflowConfigurationRepositoryImpl) Get(ctx context.Context, id uuid.UUID) (*workflow.Configuration, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + workflowConfigurationColumns + ` FROM workflow_configurations WHERE id = $1 AND is_deleted = FALSE`

	c, err := scanWorkflowConfiguration(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (r *workflowConfigurationRepositoryImpl) GetRequired(ctx context.Context, id uuid.UUID) (*workflow.Configuration, error) {
	c, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, workflow.ErrWorkflowNotFound
	}
	return c, nil
}

// ListActive orders by priority descending then id so the first row is the
// deterministic resolution winner.
func (r *workflowConfigurationRepositoryImpl) ListActive(ctx context.Context, organizationID uuid.UUID, at time.Time) ([]workflow.Configuration, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + workflowConfigurationColumns + `
		FROM workflow_configurations
		WHERE organization_id = $1
		  AND is_active = TRUE
		  AND is_deleted = FALSE
		  AND effective_from <= $2
		  AND (effective_to IS NULL OR effective_to >= $2)
		ORDER BY priority DESC, id ASC
	`

	rows, err := q.Query(ctx, query, organizationID, at)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []workflow.Configuration
	for rows.Next() {
		c, err := scanWorkflowConfiguration(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, *c)
	}
	return configs, rows.Err()
}

func (r *workflowConfigurationRepositoryImpl) Create(ctx context.Context, c *workflow.Configuration, actx audit.Context) error {
	q := GetQuerier(ctx, r.db)

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	query := `
		INSERT INTO workflow_configurations (
			id, organization_id, name, criteria, priority,
			effective_from, effective_to, is_active,
			created_at, updated_at, is_deleted
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			NOW(), NOW(), FALSE
		) RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		c.ID, c.OrganizationID, c.Name, c.Criteria, c.Priority,
		c.EffectiveFrom, c.EffectiveTo, c.IsActive,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert workflow configuration: %w", err)
	}

	return audit.Record(ctx, r.audit, audit.ActionCreate, c, nil, c.Snapshot(), actx, "workflow configuration created")
}

func (r *workflowConfigurationRepositoryImpl) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any, action audit.Action, description string, actx audit.Context) (*workflow.Configuration, error) {
	q := GetQuerier(ctx, r.db)

	old, err := r.GetRequired(ctx, id)
	if err != nil {
		return nil, err
	}

	setClause, args := buildSetClause(fields, 2)
	query := fmt.Sprintf(`UPDATE workflow_configurations SET %s, updated_at = NOW() WHERE id = $1`, setClause)

	if _, err := q.Exec(ctx, query, append([]any{id}, args...)...); err != nil {
		return nil, fmt.Errorf("update workflow configuration: %w", err)
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

func (r *workflowConfigurationRepositoryImpl) SoftDelete(ctx context.Context, id uuid.UUID, actx audit.Context) error {
	q := GetQuerier(ctx, r.db)

	old, err := r.GetRequired(ctx, id)
	if err != nil {
		return err
	}

	query := `
		UPDATE workflow_configurations
		SET is_deleted = TRUE, deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE
		RETURNING ` + workflowConfigurationColumns + `
	`

	deleted, err := scanWorkflowConfiguration(q.QueryRow(ctx, query, id))
	if err != nil {
		return fmt.Errorf("soft delete workflow configuration: %w", err)
	}

	return audit.Record(ctx, r.audit, audit.ActionDelete, deleted, old.Snapshot(), deleted.Snapshot(), actx, "workflow configuration deleted")
}

type workflowStepRepositoryImpl struct {
	db    *database.DB
	audit audit.Repository
}

func NewWorkflowStepRepository(db *database.DB, auditRepo audit.Repository) workflow.StepRepository {
	return &workflowStepRepositoryImpl{db: db, audit: auditRepo}
}

const workflowStepColumns = `
	id, organization_id, leave_request_id, workflow_id,
	step_order, approver_id, status, actioned_at, action_remarks,
	created_at, updated_at, is_deleted, deleted_at
`

func scanWorkflowStep(row pgx.Row) (*workflow.Step, error) {
	var s workflow.Step
	err := row.Scan(
		&s.ID, &s.OrganizationID, &s.LeaveRequestID, &s.WorkflowID,
		&s.StepOrder, &s.ApproverID, &s.Status, &s.ActionedAt, &s.ActionRemarks,
		&s.CreatedAt, &s.UpdatedAt, &s.IsDeleted, &s.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *workflowStepRepositoryImpl) Get(ctx context.Context, id uuid.UUID) (*workflow.Step, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + workflowStepColumns + ` FROM workflow_steps WHERE id = $1 AND is_deleted = FALSE`

	s, err := scanWorkflowStep(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func (r *workflowStepRepositoryImpl) GetRequired(ctx context.Context, id uuid.UUID) (*workflow.Step, error) {
	s, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, workflow.ErrStepNotFound
	}
	return s, nil
}

func (r *workflowStepRepositoryImpl) ListForRequest(ctx context.Context, leaveRequestID uuid.UUID) ([]workflow.Step, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + workflowStepColumns + `
		FROM workflow_steps
		WHERE leave_request_id = $1 AND is_deleted = FALSE
		ORDER BY step_order ASC
	`

	rows, err := q.Query(ctx, query, leaveRequestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []workflow.Step
	for rows.Next() {
		s, err := scanWorkflowStep(rows)
		if err != nil {
			return nil, err
		}
		steps = append(steps, *s)
	}
	return steps, rows.Err()
}

func (r *workflowStepRepositoryImpl) Create(ctx context.Context, s *workflow.Step, actx audit.Context) error {
	q := GetQuerier(ctx, r.db)

	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	query := `
		INSERT INTO workflow_steps (
			id, organization_id, leave_request_id, workflow_id,
			step_order, approver_id, status, actioned_at, action_remarks,
			created_at, updated_at, is_deleted
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9,
			NOW(), NOW(), FALSE
		) RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		s.ID, s.OrganizationID, s.LeaveRequestID, s.WorkflowID,
		s.StepOrder, s.ApproverID, s.Status, s.ActionedAt, s.ActionRemarks,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert workflow step: %w", err)
	}

	return audit.Record(ctx, r.audit, audit.ActionCreate, s, nil, s.Snapshot(), actx,
		fmt.Sprintf("workflow step %d created", s.StepOrder))
}

func (r *workflowStepRepositoryImpl) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any, action audit.Action, description string, actx audit.Context) (*workflow.Step, error) {
	q := GetQuerier(ctx, r.db)

	old, err := r.GetRequired(ctx, id)
	if err != nil {
		return nil, err
	}

	setClause, args := buildSetClause(fields, 2)
	query := fmt.Sprintf(`UPDATE workflow_steps SET %s, updated_at = NOW() WHERE id = $1`, setClause)

	if _, err := q.Exec(ctx, query, append([]any{id}, args...)...); err != nil {
		return nil, fmt.Errorf("update workflow step: %w", err)
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

func (r *workflowStepRepositoryImpl) SoftDelete(ctx context.Context, id uuid.UUID, actx audit.Context) error {
	q := GetQuerier(ctx, r.db)

	old, err := r.GetRequired(ctx, id)
	if err != nil {
		return err
	}

	query := `
		UPDATE workflow_steps
		SET is_deleted = TRUE, deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE
		RETURNING ` + workflowStepColumns + `
	`

	deleted, err := scanWorkflowStep(q.QueryRow(ctx, query, id))
	if err != nil {
		return fmt.Errorf("soft delete workflow step: %w", err)
	}

	return audit.Record(ctx, r.audit, audit.ActionDelete, deleted, old.Snapshot(), deleted.Snapshot(), actx, "workflow step deleted")
}
