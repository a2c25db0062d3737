package user

import (
	"context"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/audit"
	"github.com/google/uuid"
)

type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (*User, error)
	// GetRequired behaves like Get but returns ErrUserNotFound instead of nil.
	GetRequired(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, organizationID uuid.UUID, email string) (*User, error)
	GetByEmployeeID(ctx context.Context, organizationID uuid.UUID, employeeID string) (*User, error)
	List(ctx context.Context, organizationID uuid.UUID, limit, offset int) ([]User, error)
	Count(ctx context.Context, organizationID uuid.UUID) (int64, error)

	Create(ctx context.Context, u *User, actx audit.Context) error
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any, action audit.Action, description string, actx audit.Context) (*User, error)
	SoftDelete(ctx context.Context, id uuid.UUID, actx audit.Context) error
}
