package balance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/lms-backend-go/internal/domain/leave"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Engine is the balance state machine: submit reserves pending days,
// approve consumes them into used, reject and withdraw release them.
// The caller must hold the leave request row lock before any mutation here;
// this engine then locks the balance row, preserving the request-first
// locking order.
type Engine struct {
	balances leave.BalanceRepository
	policies leave.PolicyRepository
	types    leave.TypeRepository
	logger   *slog.Logger
}

func NewEngine(
	balanceRepository leave.BalanceRepository,
	policyRepository leave.PolicyRepository,
	typeRepository leave.TypeRepository,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		balances: balanceRepository,
		policies: policyRepository,
		types:    typeRepository,
		logger:   logger,
	}
}

// OnSubmit reserves the request's days. Unlike reject and withdraw, a
// missing balance row fails hard here.
func (e *Engine) OnSubmit(ctx context.Context, req *leave.LeaveRequest, actx audit.Context) (*leave.LeaveBalance, error) {
	bal, err := e.balances.GetCurrentForUpdate(ctx, req.UserID, req.LeaveTypeID, req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load balance: %w", err)
	}
	if bal == nil {
		return nil, leave.ErrBalanceNotFound
	}

	allowNegative := false
	if req.PolicyID != nil {
		policy, err := e.policies.Get(ctx, *req.PolicyID)
		if err != nil {
			return nil, fmt.Errorf("failed to load policy: %w", err)
		}
		if policy != nil {
			allowNegative = policy.AllowNegativeBalance
		}
	}

	available := bal.Available()
	if !allowNegative && available.LessThan(req.TotalDays) {
		return nil, leave.InsufficientBalanceError{
			Available: available,
			Requested: req.TotalDays,
			LeaveType: e.leaveTypeCode(ctx, req),
		}
	}

	updated, err := e.balances.UpdateFields(ctx, bal.ID,
		map[string]any{"pending": bal.Pending.Add(req.TotalDays)},
		audit.ActionUpdate,
		fmt.Sprintf("reserved %s days for request %s", req.TotalDays.String(), req.RequestNumber),
		actx,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve balance: %w", err)
	}
	return updated, nil
}

// OnApprove consumes the reservation: pending to used.
func (e *Engine) OnApprove(ctx context.Context, req *leave.LeaveRequest, actx audit.Context) (*leave.LeaveBalance, error) {
	bal, err := e.balances.GetCurrentForUpdate(ctx, req.UserID, req.LeaveTypeID, req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load balance: %w", err)
	}
	if bal == nil {
		return nil, leave.ErrBalanceNotFound
	}

	updated, err := e.balances.UpdateFields(ctx, bal.ID,
		map[string]any{
			"pending": subtractFloored(bal.Pending, req.TotalDays),
			"used":    bal.Used.Add(req.TotalDays),
		},
		audit.ActionApproval,
		fmt.Sprintf("consumed %s days for approved request %s", req.TotalDays.String(), req.RequestNumber),
		actx,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to consume balance: %w", err)
	}
	return updated, nil
}

// OnReject releases the reservation. A missing balance row is a logged
// no-op.
func (e *Engine) OnReject(ctx context.Context, req *leave.LeaveRequest, actx audit.Context) (*leave.LeaveBalance, error) {
	return e.release(ctx, req, audit.ActionRejection,
		fmt.Sprintf("released %s days for rejected request %s", req.TotalDays.String(), req.RequestNumber), actx)
}

// OnWithdraw releases the reservation. A missing balance row is a logged
// no-op.
func (e *Engine) OnWithdraw(ctx context.Context, req *leave.LeaveRequest, actx audit.Context) (*leave.LeaveBalance, error) {
	return e.release(ctx, req, audit.ActionStatusChange,
		fmt.Sprintf("released %s days for withdrawn request %s", req.TotalDays.String(), req.RequestNumber), actx)
}

func (e *Engine) release(ctx context.Context, req *leave.LeaveRequest, action audit.Action, description string, actx audit.Context) (*leave.LeaveBalance, error) {
	bal, err := e.balances.GetCurrentForUpdate(ctx, req.UserID, req.LeaveTypeID, req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load balance: %w", err)
	}
	if bal == nil {
		e.logger.Warn("no balance to release",
			slog.String("request_number", req.RequestNumber),
			slog.String("user_id", req.UserID.String()),
			slog.String("leave_type_id", req.LeaveTypeID.String()),
		)
		return nil, nil
	}

	updated, err := e.balances.UpdateFields(ctx, bal.ID,
		map[string]any{"pending": subtractFloored(bal.Pending, req.TotalDays)},
		action, description, actx,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to release balance: %w", err)
	}
	return updated, nil
}

// ApplyAccrual posts one accrual tick of the policy onto the balance,
// honoring the accrual cap on the accrued component.
func (e *Engine) ApplyAccrual(ctx context.Context, policy *leave.LeavePolicy, balanceID uuid.UUID, actx audit.Context) (*leave.LeaveBalance, error) {
	if policy.AccrualFrequency == leave.AccrualNone || policy.AccrualAmount.IsZero() {
		return nil, nil
	}

	bal, err := e.balances.GetRequired(ctx, balanceID)
	if err != nil {
		return nil, err
	}

	accrued := bal.Accrued.Add(policy.AccrualAmount)
	if policy.AccrualCap != nil && accrued.GreaterThan(*policy.AccrualCap) {
		accrued = *policy.AccrualCap
	}
	if accrued.Equal(bal.Accrued) {
		return bal, nil
	}

	updated, err := e.balances.UpdateFields(ctx, bal.ID,
		map[string]any{"accrued": accrued},
		audit.ActionAccrual,
		fmt.Sprintf("accrued %s days under policy %q", accrued.Sub(bal.Accrued).String(), policy.Name),
		actx,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to apply accrual: %w", err)
	}
	return updated, nil
}

// RunScheduledAccruals walks every accruable policy and posts one tick to
// each balance attached to it. Individual balance failures are logged and
// skipped so one bad row cannot stall the whole sweep.
func (e *Engine) RunScheduledAccruals(ctx context.Context, at time.Time, actx audit.Context) error {
	policies, err := e.policies.ListAccruable(ctx, at)
	if err != nil {
		return fmt.Errorf("failed to list accruable policies: %w", err)
	}

	var failed int
	for i := range policies {
		policy := &policies[i]
		balances, err := e.balances.ListByPolicy(ctx, policy.ID, at)
		if err != nil {
			return fmt.Errorf("failed to list balances for policy %s: %w", policy.ID, err)
		}
		for _, bal := range balances {
			if _, err := e.ApplyAccrual(ctx, policy, bal.ID, actx); err != nil {
				failed++
				e.logger.Error("accrual failed",
					slog.String("policy_id", policy.ID.String()),
					slog.String("balance_id", bal.ID.String()),
					slog.Any("error", err),
				)
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("accrual sweep finished with %d failed balances", failed)
	}
	return nil
}

func subtractFloored(from, amount decimal.Decimal) decimal.Decimal {
	result := from.Sub(amount)
	if result.IsNegative() {
		return decimal.Zero
	}
	return result
}

func (e *Engine) leaveTypeCode(ctx context.Context, req *leave.LeaveRequest) string {
	t, err := e.types.Get(ctx, req.LeaveTypeID)
	if err != nil || t == nil {
		return req.LeaveTypeID.String()
	}
	return t.Code
}
