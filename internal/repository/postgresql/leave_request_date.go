package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/lms-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/lms-backend-go/internal/pkg/database"
	"github.com/google/uuid"
)

type leaveRequestDateRepositoryImpl struct {
	db    *database.DB
	audit audit.Repository
}

func NewLeaveRequestDateRepository(db *database.DB, auditRepo audit.Repository) leave.DateRepository {
	return &leaveRequestDateRepositoryImpl{db: db, audit: auditRepo}
}

func (r *leaveRequestDateRepositoryImpl) ListForRequest(ctx context.Context, leaveRequestID uuid.UUID) ([]leave.LeaveRequestDate, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, leave_request_id, date, day_value, is_weekend, is_holiday,
			   created_at, updated_at, is_deleted, deleted_at
		FROM leave_request_dates
		WHERE leave_request_id = $1 AND is_deleted = FALSE
		ORDER BY date ASC
	`

	rows, err := q.Query(ctx, query, leaveRequestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []leave.LeaveRequestDate
	for rows.Next() {
		var d leave.LeaveRequestDate
		err := rows.Scan(
			&d.ID, &d.LeaveRequestID, &d.Date, &d.DayValue, &d.IsWeekend, &d.IsHoliday,
			&d.CreatedAt, &d.UpdatedAt, &d.IsDeleted, &d.DeletedAt,
		)
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func (r *leaveRequestDateRepositoryImpl) CreateBatch(ctx context.Context, dates []*leave.LeaveRequestDate, actx audit.Context) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO leave_request_dates (
			id, leave_request_id, date, day_value, is_weekend, is_holiday,
			created_at, updated_at, is_deleted
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			NOW(), NOW(), FALSE
		) RETURNING created_at, updated_at
	`

	for _, d := range dates {
		if d.ID == uuid.Nil {
			d.ID = uuid.New()
		}
		err := q.QueryRow(ctx, query,
			d.ID, d.LeaveRequestID, d.Date, d.DayValue, d.IsWeekend, d.IsHoliday,
		).Scan(&d.CreatedAt, &d.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert leave request date: %w", err)
		}

		if err := audit.Record(ctx, r.audit, audit.ActionCreate, d, nil, d.Snapshot(), actx, "leave request date created"); err != nil {
			return err
		}
	}
	return nil
}
