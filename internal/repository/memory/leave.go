package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/lms-backend-go/internal/domain/leave"
	"github.com/google/uuid"
)

type leaveTypeRepository struct {
	store *Store
	audit audit.Repository
}

func NewLeaveTypeRepository(store *Store) leave.TypeRepository {
	return &leaveTypeRepository{store: store, audit: NewAuditLogRepository(store)}
}

func (r *leaveTypeRepository) Get(ctx context.Context, id uuid.UUID) (*leave.LeaveType, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.leaveTypes[id]
	if !ok || t.IsDeleted {
		return nil, nil
	}
	return &t, nil
}

func (r *leaveTypeRepository) GetRequired(ctx context.Context, id uuid.UUID) (*leave.LeaveType, error) {
	t, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, leave.ErrLeaveTypeNotFound
	}
	return t, nil
}

func (r *leaveTypeRepository) GetByCode(ctx context.Context, organizationID uuid.UUID, code string) (*leave.LeaveType, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.leaveTypes {
		if !t.IsDeleted && t.OrganizationID == organizationID && t.Code == code {
			found := t
			return &found, nil
		}
	}
	return nil, nil
}

func (r *leaveTypeRepository) List(ctx context.Context, organizationID uuid.UUID, limit, offset int) ([]leave.LeaveType, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var types []leave.LeaveType
	for _, t := range s.leaveTypes {
		if !t.IsDeleted && t.OrganizationID == organizationID {
			types = append(types, t)
		}
	}
	sort.Slice(types, func(i, j int) bool { return types[i].Code < types[j].Code })

	return paginate(types, limit, offset), nil
}

func (r *leaveTypeRepository) Create(ctx context.Context, t *leave.LeaveType, actx audit.Context) error {
	s := r.store
	s.mu.Lock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = s.now()
	t.UpdatedAt = t.CreatedAt
	s.leaveTypes[t.ID] = *t
	s.mu.Unlock()

	return audit.Record(ctx, r.audit, audit.ActionCreate, t, nil, t.Snapshot(), actx, "leave type created")
}

func (r *leaveTypeRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any, action audit.Action, description string, actx audit.Context) (*leave.LeaveType, error) {
	old, err := r.GetRequired(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *old
	for col, val := range fields {
		switch col {
		case "name":
			updated.Name = asFieldString(val)
		case "description":
			updated.Description = asStringPtr(val)
		case "is_active":
			updated.IsActive = val == true
		case "requires_reason":
			updated.RequiresReason = val == true
		default:
			return nil, errUnknownField(col)
		}
	}

	s := r.store
	s.mu.Lock()
	updated.UpdatedAt = s.now()
	s.leaveTypes[id] = updated
	s.mu.Unlock()

	if err := audit.Record(ctx, r.audit, action, updated, old.Snapshot(), updated.Snapshot(), actx, description); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *leaveTypeRepository) SoftDelete(ctx context.Context, id uuid.UUID, actx audit.Context) error {
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
	s.leaveTypes[id] = deleted
	s.mu.Unlock()

	return audit.Record(ctx, r.audit, audit.ActionDelete, deleted, old.Snapshot(), deleted.Snapshot(), actx, "leave type deleted")
}

type leavePolicyRepository struct {
	store *Store
	audit audit.Repository
}

func NewLeavePolicyRepository(store *Store) leave.PolicyRepository {
	return &leavePolicyRepository{store: store, audit: NewAuditLogRepository(store)}
}

func (r *leavePolicyRepository) Get(ctx context.Context, id uuid.UUID) (*leave.LeavePolicy, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.policies[id]
	if !ok || p.IsDeleted {
		return nil, nil
	}
	return &p, nil
}

func (r *leavePolicyRepository) GetRequired(ctx context.Context, id uuid.UUID) (*leave.LeavePolicy, error) {
	p, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, leave.ErrPolicyNotFound
	}
	return p, nil
}

func (r *leavePolicyRepository) ListActive(ctx context.Context, organizationID, leaveTypeID uuid.UUID, at time.Time) ([]leave.LeavePolicy, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var policies []leave.LeavePolicy
	for _, p := range s.policies {
		if p.IsDeleted || !p.IsActive {
			continue
		}
		if p.OrganizationID != organizationID || p.LeaveTypeID != leaveTypeID {
			continue
		}
		if !p.CoversInstant(at) {
			continue
		}
		policies = append(policies, p)
	}
	sort.Slice(policies, func(i, j int) bool {
		if !policies[i].EffectiveFrom.Equal(policies[j].EffectiveFrom) {
			return policies[i].EffectiveFrom.After(policies[j].EffectiveFrom)
		}
		return policies[i].ID.String() < policies[j].ID.String()
	})
	return policies, nil
}

func (r *leavePolicyRepository) ListAccruable(ctx context.Context, at time.Time) ([]leave.LeavePolicy, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var policies []leave.LeavePolicy
	for _, p := range s.policies {
		if p.IsDeleted || !p.IsActive {
			continue
		}
		if p.AccrualFrequency == leave.AccrualNone {
			continue
		}
		if !p.CoversInstant(at) {
			continue
		}
		policies = append(policies, p)
	}
	sort.Slice(policies, func(i, j int) bool {
		if policies[i].OrganizationID != policies[j].OrganizationID {
			return policies[i].OrganizationID.String() < policies[j].OrganizationID.String()
		}
		return policies[i].ID.String() < policies[j].ID.String()
	})
	return policies, nil
}

func (r *leavePolicyRepository) List(ctx context.Context, organizationID uuid.UUID, limit, offset int) ([]leave.LeavePolicy, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var policies []leave.LeavePolicy
	for _, p := range s.policies {
		if !p.IsDeleted && p.OrganizationID == organizationID {
			policies = append(policies, p)
		}
	}
	sort.Slice(policies, func(i, j int) bool {
		if !policies[i].EffectiveFrom.Equal(policies[j].EffectiveFrom) {
			return policies[i].EffectiveFrom.After(policies[j].EffectiveFrom)
		}
		return policies[i].ID.String() < policies[j].ID.String()
	})
	return paginate(policies, limit, offset), nil
}

func (r *leavePolicyRepository) Create(ctx context.Context, p *leave.LeavePolicy, actx audit.Context) error {
	s := r.store
	s.mu.Lock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt
	s.policies[p.ID] = *p
	s.mu.Unlock()

	return audit.Record(ctx, r.audit, audit.ActionCreate, p, nil, p.Snapshot(), actx, "leave policy created")
}

func (r *leavePolicyRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any, action audit.Action, description string, actx audit.Context) (*leave.LeavePolicy, error) {
	old, err := r.GetRequired(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *old
	for col, val := range fields {
		switch col {
		case "name":
			updated.Name = asFieldString(val)
		case "is_active":
			updated.IsActive = val == true
		case "accrual_amount":
			updated.AccrualAmount = asDecimal(val)
		case "effective_to":
			updated.EffectiveTo = asTimePtr(val)
		default:
			return nil, errUnknownField(col)
		}
	}

	s := r.store
	s.mu.Lock()
	updated.UpdatedAt = s.now()
	s.policies[id] = updated
	s.mu.Unlock()

	if err := audit.Record(ctx, r.audit, action, updated, old.Snapshot(), updated.Snapshot(), actx, description); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *leavePolicyRepository) SoftDelete(ctx context.Context, id uuid.UUID, actx audit.Context) error {
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
	s.policies[id] = deleted
	s.mu.Unlock()

	return audit.Record(ctx, r.audit, audit.ActionDelete, deleted, old.Snapshot(), deleted.Snapshot(), actx, "leave policy deleted")
}

type leaveBalanceRepository struct {
	store *Store
	audit audit.Repository
}

func NewLeaveBalanceRepository(store *Store) leave.BalanceRepository {
	return &leaveBalanceRepository{store: store, audit: NewAuditLogRepository(store)}
}

func (r *leaveBalanceRepository) Get(ctx context.Context, id uuid.UUID) (*leave.LeaveBalance, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.balances[id]
	if !ok || b.IsDeleted {
		return nil, nil
	}
	return &b, nil
}

func (r *leaveBalanceRepository) GetRequired(ctx context.Context, id uuid.UUID) (*leave.LeaveBalance, error) {
	b, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, leave.ErrBalanceNotFound
	}
	return b, nil
}

func (r *leaveBalanceRepository) GetCurrent(ctx context.Context, userID, leaveTypeID uuid.UUID, on time.Time) (*leave.LeaveBalance, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var current *leave.LeaveBalance
	for _, b := range s.balances {
		if b.IsDeleted || b.UserID != userID || b.LeaveTypeID != leaveTypeID {
			continue
		}
		if on.Before(b.PeriodStart) || on.After(b.PeriodEnd) {
			continue
		}
		candidate := b
		if current == nil || candidate.PeriodStart.After(current.PeriodStart) {
			current = &candidate
		}
	}
	return current, nil
}

// GetCurrentForUpdate has no row lock to take; the store mutex and the
// transaction serialization in RunInTx stand in for it.
func (r *leaveBalanceRepository) GetCurrentForUpdate(ctx context.Context, userID, leaveTypeID uuid.UUID, on time.Time) (*leave.LeaveBalance, error) {
	return r.GetCurrent(ctx, userID, leaveTypeID, on)
}

func (r *leaveBalanceRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]leave.LeaveBalance, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var balances []leave.LeaveBalance
	for _, b := range s.balances {
		if !b.IsDeleted && b.UserID == userID {
			balances = append(balances, b)
		}
	}
	sort.Slice(balances, func(i, j int) bool {
		if !balances[i].PeriodStart.Equal(balances[j].PeriodStart) {
			return balances[i].PeriodStart.After(balances[j].PeriodStart)
		}
		return balances[i].LeaveTypeID.String() < balances[j].LeaveTypeID.String()
	})
	return balances, nil
}

func (r *leaveBalanceRepository) ListByPolicy(ctx context.Context, policyID uuid.UUID, on time.Time) ([]leave.LeaveBalance, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var balances []leave.LeaveBalance
	for _, b := range s.balances {
		if b.IsDeleted || b.PolicyID == nil || *b.PolicyID != policyID {
			continue
		}
		if on.Before(b.PeriodStart) || on.After(b.PeriodEnd) {
			continue
		}
		balances = append(balances, b)
	}
	sort.Slice(balances, func(i, j int) bool {
		if balances[i].UserID != balances[j].UserID {
			return balances[i].UserID.String() < balances[j].UserID.String()
		}
		return balances[i].PeriodStart.After(balances[j].PeriodStart)
	})
	return balances, nil
}

func (r *leaveBalanceRepository) Create(ctx context.Context, b *leave.LeaveBalance, actx audit.Context) error {
	s := r.store
	s.mu.Lock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedAt = s.now()
	b.UpdatedAt = b.CreatedAt
	s.balances[b.ID] = *b
	s.mu.Unlock()

	return audit.Record(ctx, r.audit, audit.ActionCreate, b, nil, b.Snapshot(), actx, "leave balance created")
}

func (r *leaveBalanceRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any, action audit.Action, description string, actx audit.Context) (*leave.LeaveBalance, error) {
	old, err := r.GetRequired(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *old
	for col, val := range fields {
		switch col {
		case "opening_balance":
			updated.OpeningBalance = asDecimal(val)
		case "accrued":
			updated.Accrued = asDecimal(val)
		case "used":
			updated.Used = asDecimal(val)
		case "pending":
			updated.Pending = asDecimal(val)
		case "adjusted":
			updated.Adjusted = asDecimal(val)
		case "carried_forward":
			updated.CarriedForward = asDecimal(val)
		case "encashed":
			updated.Encashed = asDecimal(val)
		case "expired":
			updated.Expired = asDecimal(val)
		case "policy_id":
			updated.PolicyID = asUUIDPtr(val)
		default:
			return nil, errUnknownField(col)
		}
	}

	s := r.store
	s.mu.Lock()
	updated.UpdatedAt = s.now()
	s.balances[id] = updated
	s.mu.Unlock()

	if err := audit.Record(ctx, r.audit, action, updated, old.Snapshot(), updated.Snapshot(), actx, description); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *leaveBalanceRepository) SoftDelete(ctx context.Context, id uuid.UUID, actx audit.Context) error {
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
	s.balances[id] = deleted
	s.mu.Unlock()

	return audit.Record(ctx, r.audit, audit.ActionDelete, deleted, old.Snapshot(), deleted.Snapshot(), actx, "leave balance deleted")
}
