package balance

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/lms-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/lms-backend-go/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store    *memory.Store
	balances leave.BalanceRepository
	policies leave.PolicyRepository
	engine   *Engine

	org       uuid.UUID
	userID    uuid.UUID
	leaveType leave.LeaveType
	policy    leave.LeavePolicy
	balance   leave.LeaveBalance

	actx audit.Context
}

func newFixture(t *testing.T, opening int64, allowNegative bool) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	types := memory.NewLeaveTypeRepository(store)
	policies := memory.NewLeavePolicyRepository(store)
	balances := memory.NewLeaveBalanceRepository(store)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f := &fixture{
		store:    store,
		balances: balances,
		policies: policies,
		engine:   NewEngine(balances, policies, types, logger),
		org:      uuid.New(),
		userID:   uuid.New(),
		actx:     audit.SystemContext(audit.ActorSystem),
	}

	f.leaveType = leave.LeaveType{OrganizationID: f.org, Code: "SICK", Name: "Sick Leave", IsActive: true}
	require.NoError(t, types.Create(ctx, &f.leaveType, f.actx))

	now := time.Now().UTC()
	f.policy = leave.LeavePolicy{
		OrganizationID:       f.org,
		LeaveTypeID:          f.leaveType.ID,
		Name:                 "Sick Leave Policy",
		AllowNegativeBalance: allowNegative,
		EligibilityType:      leave.EligibilityImmediate,
		EffectiveFrom:        now.AddDate(-1, 0, 0),
		IsActive:             true,
	}
	require.NoError(t, policies.Create(ctx, &f.policy, f.actx))

	f.balance = leave.LeaveBalance{
		OrganizationID: f.org,
		UserID:         f.userID,
		LeaveTypeID:    f.leaveType.ID,
		PolicyID:       &f.policy.ID,
		PeriodStart:    now.AddDate(0, -6, 0),
		PeriodEnd:      now.AddDate(0, 6, 0),
		OpeningBalance: decimal.NewFromInt(opening),
	}
	require.NoError(t, balances.Create(ctx, &f.balance, f.actx))

	return f
}

func (f *fixture) request(days int64) *leave.LeaveRequest {
	start := time.Now().UTC().AddDate(0, 0, 7)
	return &leave.LeaveRequest{
		ID:             uuid.New(),
		OrganizationID: f.org,
		RequestNumber:  "LR-AAAA00000001",
		UserID:         f.userID,
		LeaveTypeID:    f.leaveType.ID,
		PolicyID:       &f.policy.ID,
		StartDate:      start,
		EndDate:        start.AddDate(0, 0, int(days)-1),
		TotalDays:      decimal.NewFromInt(days),
		Status:         leave.StatusDraft,
	}
}

func TestOnSubmitReserves(t *testing.T) {
	f := newFixture(t, 10, false)

	updated, err := f.engine.OnSubmit(context.Background(), f.request(4), f.actx)
	require.NoError(t, err)
	assert.True(t, updated.Pending.Equal(decimal.NewFromInt(4)))
	assert.True(t, updated.Available().Equal(decimal.NewFromInt(6)))
}

func TestOnSubmitInsufficient(t *testing.T) {
	f := newFixture(t, 2, false)

	_, err := f.engine.OnSubmit(context.Background(), f.request(4), f.actx)
	require.Error(t, err)
	assert.ErrorIs(t, err, leave.ErrInsufficientBalance)

	var balErr leave.InsufficientBalanceError
	require.ErrorAs(t, err, &balErr)
	assert.True(t, balErr.Available.Equal(decimal.NewFromInt(2)))
	assert.True(t, balErr.Requested.Equal(decimal.NewFromInt(4)))
	assert.Equal(t, "SICK", balErr.LeaveType)
}

func TestOnSubmitAllowNegative(t *testing.T) {
	f := newFixture(t, 2, true)

	updated, err := f.engine.OnSubmit(context.Background(), f.request(4), f.actx)
	require.NoError(t, err)
	assert.True(t, updated.Available().Equal(decimal.NewFromInt(-2)))
}

func TestOnSubmitMissingBalance(t *testing.T) {
	f := newFixture(t, 10, false)

	req := f.request(4)
	req.UserID = uuid.New()

	_, err := f.engine.OnSubmit(context.Background(), req, f.actx)
	assert.ErrorIs(t, err, leave.ErrBalanceNotFound)
}

func TestOnApproveConsumesReservation(t *testing.T) {
	f := newFixture(t, 10, false)
	req := f.request(4)

	_, err := f.engine.OnSubmit(context.Background(), req, f.actx)
	require.NoError(t, err)

	updated, err := f.engine.OnApprove(context.Background(), req, f.actx)
	require.NoError(t, err)
	assert.True(t, updated.Pending.IsZero())
	assert.True(t, updated.Used.Equal(decimal.NewFromInt(4)))
	assert.True(t, updated.Available().Equal(decimal.NewFromInt(6)))
}

func TestOnRejectReleases(t *testing.T) {
	f := newFixture(t, 10, false)
	req := f.request(4)

	_, err := f.engine.OnSubmit(context.Background(), req, f.actx)
	require.NoError(t, err)

	updated, err := f.engine.OnReject(context.Background(), req, f.actx)
	require.NoError(t, err)
	assert.True(t, updated.Pending.IsZero())
	assert.True(t, updated.Used.IsZero())
}

func TestReleaseMissingBalanceIsNoOp(t *testing.T) {
	f := newFixture(t, 10, false)

	req := f.request(4)
	req.UserID = uuid.New()

	updated, err := f.engine.OnWithdraw(context.Background(), req, f.actx)
	require.NoError(t, err)
	assert.Nil(t, updated)
}

func TestReleaseNeverGoesNegative(t *testing.T) {
	f := newFixture(t, 10, false)

	// Release without a prior reservation: pending clamps at zero.
	updated, err := f.engine.OnReject(context.Background(), f.request(4), f.actx)
	require.NoError(t, err)
	assert.True(t, updated.Pending.IsZero())
}

func TestApplyAccrual(t *testing.T) {
	f := newFixture(t, 0, false)
	ctx := context.Background()

	cap := decimal.NewFromInt(3)
	policy := f.policy
	policy.AccrualFrequency = leave.AccrualMonthly
	policy.AccrualAmount = decimal.NewFromInt(2)
	policy.AccrualCap = &cap

	updated, err := f.engine.ApplyAccrual(ctx, &policy, f.balance.ID, f.actx)
	require.NoError(t, err)
	assert.True(t, updated.Accrued.Equal(decimal.NewFromInt(2)))

	// Second tick hits the cap.
	updated, err = f.engine.ApplyAccrual(ctx, &policy, f.balance.ID, f.actx)
	require.NoError(t, err)
	assert.True(t, updated.Accrued.Equal(cap))

	// At the cap further ticks change nothing.
	updated, err = f.engine.ApplyAccrual(ctx, &policy, f.balance.ID, f.actx)
	require.NoError(t, err)
	assert.True(t, updated.Accrued.Equal(cap))
}

func TestApplyAccrualNoneFrequency(t *testing.T) {
	f := newFixture(t, 0, false)

	updated, err := f.engine.ApplyAccrual(context.Background(), &f.policy, f.balance.ID, f.actx)
	require.NoError(t, err)
	assert.Nil(t, updated)
}

func TestRunScheduledAccruals(t *testing.T) {
	f := newFixture(t, 0, false)
	ctx := context.Background()

	monthly := leave.LeavePolicy{
		OrganizationID:   f.org,
		LeaveTypeID:      f.leaveType.ID,
		Name:             "Monthly Accrual",
		AccrualFrequency: leave.AccrualMonthly,
		AccrualAmount:    decimal.NewFromFloat(1.5),
		EligibilityType:  leave.EligibilityImmediate,
		EffectiveFrom:    time.Now().UTC().AddDate(-1, 0, 0),
		IsActive:         true,
	}
	require.NoError(t, f.policies.Create(ctx, &monthly, f.actx))
	_, err := f.balances.UpdateFields(ctx, f.balance.ID,
		map[string]any{"policy_id": monthly.ID},
		audit.ActionUpdate, "policy switched", f.actx)
	require.NoError(t, err)

	require.NoError(t, f.engine.RunScheduledAccruals(ctx, time.Now().UTC(), f.actx))

	bal, err := f.balances.GetRequired(ctx, f.balance.ID)
	require.NoError(t, err)
	assert.True(t, bal.Accrued.Equal(decimal.NewFromFloat(1.5)), "accrued = %s", bal.Accrued)
}
