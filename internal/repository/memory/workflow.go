package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/lms-backend-go/internal/domain/workflow"
	"github.com/google/uuid"
)

type workflowConfigurationRepository struct {
	store *Store
	audit audit.Repository
}

func NewWorkflowConfigurationRepository(store *Store) workflow.ConfigurationRepository {
	return &workflowConfigurationRepository{store: store, audit: NewAuditLogRepository(store)}
}

func (r *workflowConfigurationRepository) Get(ctx context.Context, id uuid.UUID) (*workflow.Configuration, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.workflows[id]
	if !ok || c.IsDeleted {
		return nil, nil
	}
	return &c, nil
}

func (r *workflowConfigurationRepository) GetRequired(ctx context.Context, id uuid.UUID) (*workflow.Configuration, error) {
	c, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, workflow.ErrWorkflowNotFound
	}
	return c, nil
}

func (r *workflowConfigurationRepository) ListActive(ctx context.Context, organizationID uuid.UUID, at time.Time) ([]workflow.Configuration, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var configs []workflow.Configuration
	for _, c := range s.workflows {
		if c.IsDeleted || !c.IsActive || c.OrganizationID != organizationID {
			continue
		}
		if !c.CoversInstant(at) {
			continue
		}
		configs = append(configs, c)
	}
	sort.Slice(configs, func(i, j int) bool {
		if configs[i].Priority != configs[j].Priority {
			return configs[i].Priority > configs[j].Priority
		}
		return configs[i].ID.String() < configs[j].ID.String()
	})
	return configs, nil
}

func (r *workflowConfigurationRepository) Create(ctx context.Context, c *workflow.Configuration, actx audit.Context) error {
	s := r.store
	s.mu.Lock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = s.now()
	c.UpdatedAt = c.CreatedAt
	s.workflows[c.ID] = *c
	s.mu.Unlock()

	return audit.Record(ctx, r.audit, audit.ActionCreate, c, nil, c.Snapshot(), actx, "workflow configuration created")
}

func (r *workflowConfigurationRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any, action audit.Action, description string, actx audit.Context) (*workflow.Configuration, error) {
	old, err := r.GetRequired(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *old
	for col, val := range fields {
		switch col {
		case "name":
			updated.Name = asFieldString(val)
		case "priority":
			updated.Priority = asInt(val)
		case "is_active":
			updated.IsActive = val == true
		case "effective_to":
			updated.EffectiveTo = asTimePtr(val)
		default:
			return nil, errUnknownField(col)
		}
	}

	s := r.store
	s.mu.Lock()
	updated.UpdatedAt = s.now()
	s.workflows[id] = updated
	s.mu.Unlock()

	if err := audit.Record(ctx, r.audit, action, updated, old.Snapshot(), updated.Snapshot(), actx, description); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *workflowConfigurationRepository) SoftDelete(ctx context.Context, id uuid.UUID, actx audit.Context) error {
	old, err := r.GetRequired(ctx, id)
	if err != nil {
		return err
	}

	s := r.store
	s.mu.Lock()
	deleted := *old
	now := s.now()
	deleted.IsDeleted = true
	deleted.DeletedAt = &now
	deleted.UpdatedAt = now
	s.workflows[id] = deleted
	s.mu.Unlock()

	return audit.Record(ctx, r.audit, audit.ActionDelete, deleted, old.Snapshot(), deleted.Snapshot(), actx, "workflow configuration deleted")
}

type workflowStepRepository struct {
	store *Store
	audit audit.Repository
}

func NewWorkflowStepRepository(store *Store) workflow.StepRepository {
	return &workflowStepRepository{store: store, audit: NewAuditLogRepository(store)}
}

func (r *workflowStepRepository) Get(ctx context.Context, id uuid.UUID) (*workflow.Step, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	step, ok := s.steps[id]
	if !ok || step.IsDeleted {
		return nil, nil
	}
	return &step, nil
}

func (r *workflowStepRepository) GetRequired(ctx context.Context, id uuid.UUID) (*workflow.Step, error) {
	step, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if step == nil {
		return nil, workflow.ErrStepNotFound
	}
	return step, nil
}

func (r *workflowStepRepository) ListForRequest(ctx context.Context, leaveRequestID uuid.UUID) ([]workflow.Step, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var steps []workflow.Step
	for _, step := range s.steps {
		if !step.IsDeleted && step.LeaveRequestID == leaveRequestID {
			steps = append(steps, step)
		}
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].StepOrder < steps[j].StepOrder })
	return steps, nil
}

func (r *workflowStepRepository) Create(ctx context.Context, step *workflow.Step, actx audit.Context) error {
	s := r.store
	s.mu.Lock()
	if step.ID == uuid.Nil {
		step.ID = uuid.New()
	}
	step.CreatedAt = s.now()
	step.UpdatedAt = step.CreatedAt
	s.steps[step.ID] = *step
	s.mu.Unlock()

	return audit.Record(ctx, r.audit, audit.ActionCreate, step, nil, step.Snapshot(), actx,
		fmt.Sprintf("workflow step %d created", step.StepOrder))
}

func (r *workflowStepRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any, action audit.Action, description string, actx audit.Context) (*workflow.Step, error) {
	old, err := r.GetRequired(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *old
	for col, val := range fields {
		switch col {
		case "status":
			updated.Status = workflow.StepStatus(asFieldString(val))
		case "actioned_at":
			updated.ActionedAt = asTimePtr(val)
		case "action_remarks":
			updated.ActionRemarks = asStringPtr(val)
		case "approver_id":
			if id := asUUIDPtr(val); id != nil {
				updated.ApproverID = *id
			}
		default:
			return nil, errUnknownField(col)
		}
	}

	s := r.store
	s.mu.Lock()
	updated.UpdatedAt = s.now()
	s.steps[id] = updated
	s.mu.Unlock()

	if err := audit.Record(ctx, r.audit, action, updated, old.Snapshot(), updated.Snapshot(), actx, description); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *workflowStepRepository) SoftDelete(ctx context.Context, id uuid.UUID, actx audit.Context) error {
	old, err := r.GetRequired(ctx, id)
	if err != nil {
		return err
	}

	s := r.store
	s.mu.Lock()
	deleted := *old
	now := s.now()
	deleted.IsDeleted = true
	deleted.DeletedAt = &now
	deleted.UpdatedAt = now
	s.steps[id] = deleted
	s.mu.Unlock()

	return audit.Record(ctx, r.audit, audit.ActionDelete, deleted, old.Snapshot(), deleted.Snapshot(), actx, "workflow step deleted")
}
