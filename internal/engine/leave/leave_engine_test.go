package leave

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/lms-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/lms-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/lms-backend-go/internal/domain/workflow"
	balanceengine "github.com/cmlabs-hris/lms-backend-go/internal/engine/balance"
	policyengine "github.com/cmlabs-hris/lms-backend-go/internal/engine/policy"
	workflowengine "github.com/cmlabs-hris/lms-backend-go/internal/engine/workflow"
	"github.com/cmlabs-hris/lms-backend-go/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store *memory.Store

	users    user.Repository
	requests leave.RequestRepository
	balances leave.BalanceRepository
	steps    workflow.StepRepository

	engine *Engine

	org      uuid.UUID
	employee user.User
	manager  user.User
	senior   user.User

	leaveType leave.LeaveType
	policy    leave.LeavePolicy
	balance   leave.LeaveBalance
	wf        workflow.Configuration

	actx audit.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	users := memory.NewUserRepository(store)
	leaveTypes := memory.NewLeaveTypeRepository(store)
	policies := memory.NewLeavePolicyRepository(store)
	balances := memory.NewLeaveBalanceRepository(store)
	requests := memory.NewLeaveRequestRepository(store)
	dates := memory.NewLeaveRequestDateRepository(store)
	comments := memory.NewCommentRepository(store)
	workflows := memory.NewWorkflowConfigurationRepository(store)
	steps := memory.NewWorkflowStepRepository(store)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	policyEngine := policyengine.NewEngine(policies, balances)
	balanceEngine := balanceengine.NewEngine(balances, policies, leaveTypes, logger)
	workflowEngine := workflowengine.NewEngine(workflows, steps, requests)
	engine := NewEngine(store, users, requests, dates, balances, comments,
		policyEngine, balanceEngine, workflowEngine, logger)

	f := &fixture{
		store:    store,
		users:    users,
		requests: requests,
		balances: balances,
		steps:    steps,
		engine:   engine,
		org:      uuid.New(),
	}
	f.actx = audit.SystemContext(audit.ActorSystem)

	now := time.Now().UTC()
	hired := now.AddDate(-3, 0, 0)
	probationOver := now.AddDate(-2, -6, 0)

	f.senior = user.User{
		OrganizationID: f.org,
		EmployeeID:     "E-001",
		Email:          "senior@example.com",
		FullName:       "Senior Manager",
		Role:           user.RoleManager,
		Status:         user.StatusActive,
		HireDate:       &hired,
	}
	require.NoError(t, users.Create(ctx, &f.senior, f.actx))

	f.manager = user.User{
		OrganizationID: f.org,
		EmployeeID:     "E-002",
		Email:          "manager@example.com",
		FullName:       "Line Manager",
		Role:           user.RoleManager,
		Status:         user.StatusActive,
		HireDate:       &hired,
		ManagerID:      &f.senior.ID,
	}
	require.NoError(t, users.Create(ctx, &f.manager, f.actx))

	f.employee = user.User{
		OrganizationID:   f.org,
		EmployeeID:       "E-003",
		Email:            "employee@example.com",
		FullName:         "An Employee",
		Role:             user.RoleEmployee,
		Status:           user.StatusActive,
		EmploymentType:   "full_time",
		HireDate:         &hired,
		ProbationEndDate: &probationOver,
		ManagerID:        &f.manager.ID,
	}
	require.NoError(t, users.Create(ctx, &f.employee, f.actx))

	f.leaveType = leave.LeaveType{
		OrganizationID: f.org,
		Code:           "ANNUAL",
		Name:           "Annual Leave",
		IsActive:       true,
	}
	require.NoError(t, leaveTypes.Create(ctx, &f.leaveType, f.actx))

	f.policy = leave.LeavePolicy{
		OrganizationID:  f.org,
		LeaveTypeID:     f.leaveType.ID,
		Name:            "Annual Leave Policy",
		EligibilityType: leave.EligibilityImmediate,
		EffectiveFrom:   now.AddDate(-2, 0, 0),
		IsActive:        true,
	}
	require.NoError(t, policies.Create(ctx, &f.policy, f.actx))

	f.balance = leave.LeaveBalance{
		OrganizationID: f.org,
		UserID:         f.employee.ID,
		LeaveTypeID:    f.leaveType.ID,
		PolicyID:       &f.policy.ID,
		PeriodStart:    now.AddDate(-1, 0, 0),
		PeriodEnd:      now.AddDate(1, 0, 0),
		OpeningBalance: decimal.NewFromInt(12),
	}
	require.NoError(t, balances.Create(ctx, &f.balance, f.actx))

	f.wf = workflow.Configuration{
		OrganizationID: f.org,
		Name:           "Default Approval",
		Criteria:       workflow.Criteria{"approval_levels": 2},
		Priority:       10,
		EffectiveFrom:  now.AddDate(-1, 0, 0),
		IsActive:       true,
	}
	require.NoError(t, workflows.Create(ctx, &f.wf, f.actx))

	return f
}

func (f *fixture) createInput(startOffset, days int) leave.CreateLeaveRequestRequest {
	start := time.Now().UTC().AddDate(0, 0, startOffset)
	end := start.AddDate(0, 0, days-1)
	return leave.CreateLeaveRequestRequest{
		UserID:      f.employee.ID.String(),
		LeaveTypeID: f.leaveType.ID.String(),
		StartDate:   start.Format("2006-01-02"),
		EndDate:     end.Format("2006-01-02"),
		TotalDays:   float64(days),
		Reason:      "family trip",
	}
}

func (f *fixture) mustCreate(t *testing.T, startOffset, days int) leave.LeaveRequest {
	t.Helper()
	created, err := f.engine.CreateLeaveRequest(context.Background(), f.createInput(startOffset, days), f.actx)
	require.NoError(t, err)
	return created.LeaveRequest
}

func (f *fixture) mustSubmit(t *testing.T, id uuid.UUID) *leave.LeaveRequest {
	t.Helper()
	submitted, err := f.engine.Submit(context.Background(), id, f.actx)
	require.NoError(t, err)
	return submitted
}

func (f *fixture) stepsFor(t *testing.T, requestID uuid.UUID) []workflow.Step {
	t.Helper()
	steps, err := f.steps.ListForRequest(context.Background(), requestID)
	require.NoError(t, err)
	return steps
}

func (f *fixture) currentBalance(t *testing.T) *leave.LeaveBalance {
	t.Helper()
	bal, err := f.balances.GetRequired(context.Background(), f.balance.ID)
	require.NoError(t, err)
	return bal
}

func TestCreateLeaveRequest(t *testing.T) {
	f := newFixture(t)

	created, err := f.engine.CreateLeaveRequest(context.Background(), f.createInput(10, 3), f.actx)
	require.NoError(t, err)

	req := created.LeaveRequest
	assert.Equal(t, leave.StatusDraft, req.Status)
	assert.Regexp(t, `^LR-[0-9A-F]{12}$`, req.RequestNumber)
	require.NotNil(t, req.PolicyID)
	assert.Equal(t, f.policy.ID, *req.PolicyID)
	assert.NotEmpty(t, created.PolicyReason)

	dates, err := f.engine.ListRequestDates(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Len(t, dates, 3)
}

func TestCreateLeaveRequestRejectsOverlap(t *testing.T) {
	f := newFixture(t)
	first := f.mustCreate(t, 10, 3)

	_, err := f.engine.CreateLeaveRequest(context.Background(), f.createInput(11, 2), f.actx)
	require.Error(t, err)
	assert.ErrorIs(t, err, leave.ErrLeaveOverlap)

	var overlapErr leave.OverlapError
	require.ErrorAs(t, err, &overlapErr)
	assert.Contains(t, overlapErr.RequestNumbers, first.RequestNumber)
}

func TestCreateLeaveRequestRejectsOverlapWithApproved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.mustCreate(t, 10, 3)
	f.mustSubmit(t, first.ID)
	steps := f.stepsFor(t, first.ID)

	_, err := f.engine.ApproveStep(ctx, steps[0].ID, f.manager.ID, nil, f.actx)
	require.NoError(t, err)
	result, err := f.engine.ApproveStep(ctx, steps[1].ID, f.senior.ID, nil, f.actx)
	require.NoError(t, err)
	completed, ok := result.(workflowengine.Completed)
	require.True(t, ok, "expected Completed, got %T", result)
	require.Equal(t, leave.StatusApproved, completed.FinalStatus)

	// Approved leave still occupies its window.
	_, err = f.engine.CreateLeaveRequest(ctx, f.createInput(11, 2), f.actx)
	require.Error(t, err)
	assert.ErrorIs(t, err, leave.ErrLeaveOverlap)

	var overlapErr leave.OverlapError
	require.ErrorAs(t, err, &overlapErr)
	assert.Contains(t, overlapErr.RequestNumbers, first.RequestNumber)
}

func TestCreateLeaveRequestAfterWithdrawalSucceeds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.mustCreate(t, 10, 3)
	f.mustSubmit(t, first.ID)
	_, err := f.engine.WithdrawRequest(ctx, first.ID, f.employee.ID, nil, f.actx)
	require.NoError(t, err)

	// Withdrawn requests free their dates.
	_, err = f.engine.CreateLeaveRequest(ctx, f.createInput(11, 2), f.actx)
	assert.NoError(t, err)
}

func TestCreateLeaveRequestInactiveUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.users.UpdateFields(context.Background(), f.employee.ID,
		map[string]any{"status": string(user.StatusSuspended)},
		audit.ActionUpdate, "suspended", f.actx)
	require.NoError(t, err)

	_, err = f.engine.CreateLeaveRequest(context.Background(), f.createInput(10, 3), f.actx)
	assert.ErrorIs(t, err, user.ErrUserInactive)
}

func TestCreateLeaveRequestNoPolicy(t *testing.T) {
	f := newFixture(t)

	input := f.createInput(10, 3)
	input.LeaveTypeID = uuid.New().String()

	_, err := f.engine.CreateLeaveRequest(context.Background(), input, f.actx)
	assert.ErrorIs(t, err, leave.ErrPolicyNotFound)
}

func TestSubmitReservesBalance(t *testing.T) {
	f := newFixture(t)
	req := f.mustCreate(t, 10, 3)

	submitted := f.mustSubmit(t, req.ID)

	assert.Equal(t, leave.StatusPendingApproval, submitted.Status)
	assert.NotNil(t, submitted.SubmittedAt)
	assert.Equal(t, 0, submitted.CurrentWorkflowStep)

	steps := f.stepsFor(t, req.ID)
	require.Len(t, steps, 2)
	assert.Equal(t, f.manager.ID, steps[0].ApproverID)
	assert.Equal(t, f.senior.ID, steps[1].ApproverID)
	for _, s := range steps {
		assert.Equal(t, workflow.StepPending, s.Status)
	}

	bal := f.currentBalance(t)
	assert.True(t, bal.Pending.Equal(decimal.NewFromInt(3)), "pending = %s", bal.Pending)
	assert.True(t, bal.Available().Equal(decimal.NewFromInt(9)), "available = %s", bal.Available())
}

func TestSubmitNonDraftFails(t *testing.T) {
	f := newFixture(t)
	req := f.mustCreate(t, 10, 3)
	f.mustSubmit(t, req.ID)

	_, err := f.engine.Submit(context.Background(), req.ID, f.actx)
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrInvalidState)
}

func TestSubmitInsufficientBalanceRollsBack(t *testing.T) {
	f := newFixture(t)
	req := f.mustCreate(t, 10, 3)

	// Drain the balance so the reservation fails after step creation.
	_, err := f.balances.UpdateFields(context.Background(), f.balance.ID,
		map[string]any{"used": decimal.NewFromInt(11)},
		audit.ActionAdjustment, "drained for test", f.actx)
	require.NoError(t, err)

	_, err = f.engine.Submit(context.Background(), req.ID, f.actx)
	require.Error(t, err)
	assert.ErrorIs(t, err, leave.ErrInsufficientBalance)

	// The whole transition rolled back: no steps, request still draft.
	assert.Empty(t, f.stepsFor(t, req.ID))
	reloaded, err := f.requests.GetRequired(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusDraft, reloaded.Status)
}

func TestSubmitWithoutApproverChainFails(t *testing.T) {
	f := newFixture(t)
	req := f.mustCreate(t, 10, 3)

	_, err := f.users.UpdateFields(context.Background(), f.employee.ID,
		map[string]any{"manager_id": (*uuid.UUID)(nil)},
		audit.ActionUpdate, "manager removed", f.actx)
	require.NoError(t, err)

	_, err = f.engine.Submit(context.Background(), req.ID, f.actx)
	assert.ErrorIs(t, err, workflow.ErrWorkflowNotFound)
}

func TestApproveTwoLevelFlow(t *testing.T) {
	f := newFixture(t)
	req := f.mustCreate(t, 10, 3)
	f.mustSubmit(t, req.ID)
	steps := f.stepsFor(t, req.ID)

	// First approval advances the cursor.
	result, err := f.engine.ApproveStep(context.Background(), steps[0].ID, f.manager.ID, nil, f.actx)
	require.NoError(t, err)
	activated, ok := result.(workflowengine.StepActivated)
	require.True(t, ok, "expected StepActivated, got %T", result)
	assert.Equal(t, 1, activated.Step.StepOrder)

	reloaded, err := f.requests.GetRequired(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusPendingApproval, reloaded.Status)
	assert.Equal(t, 1, reloaded.CurrentWorkflowStep)

	// Final approval completes the workflow and consumes the reservation.
	comment := "enjoy"
	result, err = f.engine.ApproveStep(context.Background(), steps[1].ID, f.senior.ID, &comment, f.actx)
	require.NoError(t, err)
	completed, ok := result.(workflowengine.Completed)
	require.True(t, ok, "expected Completed, got %T", result)
	assert.Equal(t, leave.StatusApproved, completed.FinalStatus)

	bal := f.currentBalance(t)
	assert.True(t, bal.Pending.IsZero(), "pending = %s", bal.Pending)
	assert.True(t, bal.Used.Equal(decimal.NewFromInt(3)), "used = %s", bal.Used)
}

func TestApproveOutOfOrderFails(t *testing.T) {
	f := newFixture(t)
	req := f.mustCreate(t, 10, 3)
	f.mustSubmit(t, req.ID)
	steps := f.stepsFor(t, req.ID)

	_, err := f.engine.ApproveStep(context.Background(), steps[1].ID, f.senior.ID, nil, f.actx)
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrInvalidState)

	// Nothing moved.
	reloaded, err := f.requests.GetRequired(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.CurrentWorkflowStep)
	assert.True(t, f.currentBalance(t).Pending.Equal(decimal.NewFromInt(3)))
}

func TestApproveByWrongActorFails(t *testing.T) {
	f := newFixture(t)
	req := f.mustCreate(t, 10, 3)
	f.mustSubmit(t, req.ID)
	steps := f.stepsFor(t, req.ID)

	_, err := f.engine.ApproveStep(context.Background(), steps[0].ID, f.employee.ID, nil, f.actx)
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrApprovalDenied)
}

func TestRejectReleasesReservation(t *testing.T) {
	f := newFixture(t)
	req := f.mustCreate(t, 10, 3)
	f.mustSubmit(t, req.ID)
	steps := f.stepsFor(t, req.ID)

	remark := "headcount too thin that week"
	result, err := f.engine.RejectStep(context.Background(), steps[0].ID, f.manager.ID, &remark, f.actx)
	require.NoError(t, err)
	completed, ok := result.(workflowengine.Completed)
	require.True(t, ok)
	assert.Equal(t, leave.StatusRejected, completed.FinalStatus)

	bal := f.currentBalance(t)
	assert.True(t, bal.Pending.IsZero())
	assert.True(t, bal.Used.IsZero())
	assert.True(t, bal.Available().Equal(decimal.NewFromInt(12)))
}

func TestWithdraw(t *testing.T) {
	f := newFixture(t)
	req := f.mustCreate(t, 10, 3)
	f.mustSubmit(t, req.ID)

	// Only the owner may withdraw.
	_, err := f.engine.WithdrawRequest(context.Background(), req.ID, f.manager.ID, nil, f.actx)
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrApprovalDenied)

	reason := "plans changed"
	result, err := f.engine.WithdrawRequest(context.Background(), req.ID, f.employee.ID, &reason, f.actx)
	require.NoError(t, err)
	completed, ok := result.(workflowengine.Completed)
	require.True(t, ok)
	assert.Equal(t, leave.StatusWithdrawn, completed.FinalStatus)

	for _, s := range f.stepsFor(t, req.ID) {
		assert.Equal(t, workflow.StepSkipped, s.Status)
	}
	assert.True(t, f.currentBalance(t).Pending.IsZero())
}

func TestWithdrawDraftFails(t *testing.T) {
	f := newFixture(t)
	req := f.mustCreate(t, 10, 3)

	_, err := f.engine.WithdrawRequest(context.Background(), req.ID, f.employee.ID, nil, f.actx)
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrInvalidState)
}

func TestDeleteDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.mustCreate(t, 10, 3)

	require.NoError(t, f.engine.DeleteDraft(ctx, req.ID, f.employee.ID, f.actx))

	_, err := f.engine.GetLeaveRequest(ctx, req.ID)
	assert.ErrorIs(t, err, leave.ErrLeaveRequestNotFound)

	// Cascades to the per-day rows.
	dates, err := f.engine.ListRequestDates(ctx, req.ID)
	require.NoError(t, err)
	assert.Empty(t, dates)
}

func TestDeleteDraftOwnerOnly(t *testing.T) {
	f := newFixture(t)
	req := f.mustCreate(t, 10, 3)

	err := f.engine.DeleteDraft(context.Background(), req.ID, f.manager.ID, f.actx)
	assert.ErrorIs(t, err, workflow.ErrApprovalDenied)
}

func TestDeleteSubmittedFails(t *testing.T) {
	f := newFixture(t)
	req := f.mustCreate(t, 10, 3)
	f.mustSubmit(t, req.ID)

	err := f.engine.DeleteDraft(context.Background(), req.ID, f.employee.ID, f.actx)
	assert.ErrorIs(t, err, workflow.ErrInvalidState)
}

func TestAddComment(t *testing.T) {
	f := newFixture(t)
	req := f.mustCreate(t, 10, 3)

	comment, err := f.engine.AddComment(context.Background(), req.ID, f.manager.ID,
		leave.AddCommentRequest{Body: "please attach the travel form", IsInternal: false}, f.actx)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, comment.ID)

	comments, err := f.engine.ListComments(context.Background(), req.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "please attach the travel form", comments[0].Body)
}

func TestAddCommentUnknownRequest(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.AddComment(context.Background(), uuid.New(), f.manager.ID,
		leave.AddCommentRequest{Body: "hello"}, f.actx)
	assert.ErrorIs(t, err, leave.ErrLeaveRequestNotFound)
}

func TestMutationsAreAudited(t *testing.T) {
	f := newFixture(t)
	before := len(f.store.AllLogs())

	req := f.mustCreate(t, 10, 3)
	f.mustSubmit(t, req.ID)

	var sawStatusChange bool
	for _, log := range f.store.AllLogs()[before:] {
		if log.EntityType == "leave_request" && log.Action == audit.ActionStatusChange {
			sawStatusChange = true
			change, ok := log.Changes["status"]
			require.True(t, ok, "status change event must diff the status key")
			assert.Equal(t, string(leave.StatusDraft), change.Old)
			assert.Equal(t, string(leave.StatusPendingApproval), change.New)
		}
	}
	assert.True(t, sawStatusChange, "expected a status_change audit event for the request")
}

func TestNewRequestNumberFormat(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		n, err := NewRequestNumber()
		require.NoError(t, err)
		assert.Regexp(t, `^LR-[0-9A-F]{12}$`, n)
		assert.False(t, seen[n], "duplicate request number %s", n)
		seen[n] = true
	}
}

func TestRunInTxPropagatesErrors(t *testing.T) {
	f := newFixture(t)
	sentinel := errors.New("boom")

	err := f.store.RunInTx(context.Background(), func(ctx context.Context) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
}
