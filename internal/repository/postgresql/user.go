package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/lms-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/lms-backend-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type userRepositoryImpl struct {
	db    *database.DB
	audit audit.Repository
}

func NewUserRepository(db *database.DB, auditRepo audit.Repository) user.Repository {
	return &userRepositoryImpl{db: db, audit: auditRepo}
}

const userColumns = `
	id, organization_id, employee_id, email, full_name, password_hash,
	role, status, employment_type, hire_date, probation_end_date, manager_id,
	created_at, updated_at, is_deleted, deleted_at
`

func scanUser(row pgx.Row) (*user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID, &u.OrganizationID, &u.EmployeeID, &u.Email, &u.FullName, &u.PasswordHash,
		&u.Role, &u.Status, &u.EmploymentType, &u.HireDate, &u.ProbationEndDate, &u.ManagerID,
		&u.CreatedAt, &u.UpdatedAt, &u.IsDeleted, &u.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepositoryImpl) Get(ctx context.Context, id uuid.UUID) (*user.User, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND is_deleted = FALSE`

	u, err := scanUser(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func (r *userRepositoryImpl) GetRequired(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, user.ErrUserNotFound
	}
	return u, nil
}

func (r *userRepositoryImpl) GetByEmail(ctx context.Context, organizationID uuid.UUID, email string) (*user.User, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + userColumns + ` FROM users WHERE organization_id = $1 AND email = $2 AND is_deleted = FALSE`

	u, err := scanUser(q.QueryRow(ctx, query, organizationID, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func (r *userRepositoryImpl) GetByEmployeeID(ctx context.Context, organizationID uuid.UUID, employeeID string) (*user.User, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + userColumns + ` FROM users WHERE organization_id = $1 AND employee_id = $2 AND is_deleted = FALSE`

	u, err := scanUser(q.QueryRow(ctx, query, organizationID, employeeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func (r *userRepositoryImpl) List(ctx context.Context, organizationID uuid.UUID, limit, offset int) ([]user.User, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE organization_id = $1 AND is_deleted = FALSE
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := q.Query(ctx, query, organizationID, clampLimit(limit), offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *userRepositoryImpl) Count(ctx context.Context, organizationID uuid.UUID) (int64, error) {
	q := GetQuerier(ctx, r.db)

	var total int64
	err := q.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE organization_id = $1 AND is_deleted = FALSE`, organizationID).Scan(&total)
	return total, err
}

func (r *userRepositoryImpl) Create(ctx context.Context, u *user.User, actx audit.Context) error {
	q := GetQuerier(ctx, r.db)

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	query := `
		INSERT INTO users (
			id, organization_id, employee_id, email, full_name, password_hash,
			role, status, employment_type, hire_date, probation_end_date, manager_id,
			created_at, updated_at, is_deleted
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12,
			NOW(), NOW(), FALSE
		) RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		u.ID, u.OrganizationID, u.EmployeeID, u.Email, u.FullName, u.PasswordHash,
		u.Role, u.Status, u.EmploymentType, u.HireDate, u.ProbationEndDate, u.ManagerID,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	return audit.Record(ctx, r.audit, audit.ActionCreate, u, nil, u.Snapshot(), actx, "user created")
}

func (r *userRepositoryImpl) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any, action audit.Action, description string, actx audit.Context) (*user.User, error) {
	q := GetQuerier(ctx, r.db)

	old, err := r.GetRequired(ctx, id)
	if err != nil {
		return nil, err
	}

	setClause, args := buildSetClause(fields, 2)
	query := fmt.Sprintf(`UPDATE users SET %s, updated_at = NOW() WHERE id = $1`, setClause)

	if _, err := q.Exec(ctx, query, append([]any{id}, args...)...); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
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

func (r *userRepositoryImpl) SoftDelete(ctx context.Context, id uuid.UUID, actx audit.Context) error {
	q := GetQuerier(ctx, r.db)

	old, err := r.GetRequired(ctx, id)
	if err != nil {
		return err
	}

	query := `
		UPDATE users
		SET is_deleted = TRUE, deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE
		RETURNING ` + userColumns + `
	`

	deleted, err := scanUser(q.QueryRow(ctx, query, id))
	if err != nil {
		return fmt.Errorf("soft delete user: %w", err)
	}

	return audit.Record(ctx, r.audit, audit.ActionDelete, deleted, old.Snapshot(), deleted.Snapshot(), actx, "user deleted")
}
