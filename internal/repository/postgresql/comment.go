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

type commentRepositoryImpl struct {
	db    *database.DB
	audit audit.Repository
}

func NewCommentRepository(db *database.DB, auditRepo audit.Repository) leave.CommentRepository {
	return &commentRepositoryImpl{db: db, audit: auditRepo}
}

func (r *commentRepositoryImpl) Get(ctx context.Context, id uuid.UUID) (*leave.Comment, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, leave_request_id, user_id, body, is_internal,
			   created_at, updated_at, is_deleted, deleted_at
		FROM leave_request_comments
		WHERE id = $1 AND is_deleted = FALSE
	`

	var c leave.Comment
	err := q.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.LeaveRequestID, &c.UserID, &c.Body, &c.IsInternal,
		&c.CreatedAt, &c.UpdatedAt, &c.IsDeleted, &c.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *commentRepositoryImpl) ListForRequest(ctx context.Context, leaveRequestID uuid.UUID) ([]leave.Comment, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, leave_request_id, user_id, body, is_internal,
			   created_at, updated_at, is_deleted, deleted_at
		FROM leave_request_comments
		WHERE leave_request_id = $1 AND is_deleted = FALSE
		ORDER BY created_at ASC, id ASC
	`

	rows, err := q.Query(ctx, query, leaveRequestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []leave.Comment
	for rows.Next() {
		var c leave.Comment
		err := rows.Scan(
			&c.ID, &c.LeaveRequestID, &c.UserID, &c.Body, &c.IsInternal,
			&c.CreatedAt, &c.UpdatedAt, &c.IsDeleted, &c.DeletedAt,
		)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (r *commentRepositoryImpl) Create(ctx context.Context, c *leave.Comment, actx audit.Context) error {
	q := GetQuerier(ctx, r.db)

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	query := `
		INSERT INTO leave_request_comments (
			id, leave_request_id, user_id, body, is_internal,
			created_at, updated_at, is_deleted
		) VALUES (
			$1, $2, $3, $4, $5,
			NOW(), NOW(), FALSE
		) RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		c.ID, c.LeaveRequestID, c.UserID, c.Body, c.IsInternal,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}

	return audit.Record(ctx, r.audit, audit.ActionCreate, c, nil, c.Snapshot(), actx, "comment added")
}
