package workflow

import (
	"context"
	"time"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/audit"
	"github.com/google/uuid"
)

type ConfigurationRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*Configuration, error)
	GetRequired(ctx context.Context, id uuid.UUID) (*Configuration, error)
	// ListActive returns active configurations whose effective window covers
	// at, ordered by priority descending then id for a deterministic pick.
	ListActive(ctx context.Context, organizationID uuid.UUID, at time.Time) ([]Configuration, error)

	Create(ctx context.Context, c *Configuration, actx audit.Context) error
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any, action audit.Action, description string, actx audit.Context) (*Configuration, error)
	SoftDelete(ctx context.Context, id uuid.UUID, actx audit.Context) error
}

type StepRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*Step, error)
	GetRequired(ctx context.Context, id uuid.UUID) (*Step, error)
	// ListForRequest returns the request's steps sorted by step_order
	// ascending.
	ListForRequest(ctx context.Context, leaveRequestID uuid.UUID) ([]Step, error)

	Create(ctx context.Context, s *Step, actx audit.Context) error
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any, action audit.Action, description string, actx audit.Context) (*Step, error)
	SoftDelete(ctx context.Context, id uuid.UUID, actx audit.Context) error
}
