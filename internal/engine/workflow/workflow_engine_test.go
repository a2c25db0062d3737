package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/lms-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/lms-backend-go/internal/domain/workflow"
	"github.com/cmlabs-hris/lms-backend-go/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store    *memory.Store
	configs  workflow.ConfigurationRepository
	steps    workflow.StepRepository
	requests leave.RequestRepository
	engine   *Engine

	org  uuid.UUID
	actx audit.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	configs := memory.NewWorkflowConfigurationRepository(store)
	steps := memory.NewWorkflowStepRepository(store)
	requests := memory.NewLeaveRequestRepository(store)

	return &fixture{
		store:    store,
		configs:  configs,
		steps:    steps,
		requests: requests,
		engine:   NewEngine(configs, steps, requests),
		org:      uuid.New(),
		actx:     audit.SystemContext(audit.ActorSystem),
	}
}

func (f *fixture) seedConfig(t *testing.T, name string, priority int) *workflow.Configuration {
	t.Helper()
	c := workflow.Configuration{
		OrganizationID: f.org,
		Name:           name,
		Priority:       priority,
		EffectiveFrom:  time.Now().UTC().AddDate(-1, 0, 0),
		IsActive:       true,
	}
	require.NoError(t, f.configs.Create(context.Background(), &c, f.actx))
	return &c
}

func (f *fixture) seedPendingRequest(t *testing.T, ownerID uuid.UUID) *leave.LeaveRequest {
	t.Helper()
	now := time.Now().UTC()
	submitted := now
	req := leave.LeaveRequest{
		OrganizationID:      f.org,
		RequestNumber:       "LR-BBBB00000001",
		UserID:              ownerID,
		LeaveTypeID:         uuid.New(),
		StartDate:           now.AddDate(0, 0, 7),
		EndDate:             now.AddDate(0, 0, 9),
		TotalDays:           decimal.NewFromInt(3),
		Status:              leave.StatusPendingApproval,
		CurrentWorkflowStep: 0,
		SubmittedAt:         &submitted,
	}
	require.NoError(t, f.requests.Create(context.Background(), &req, f.actx))
	return &req
}

func TestResolveWorkflowPicksHighestPriority(t *testing.T) {
	f := newFixture(t)
	f.seedConfig(t, "fallback", 1)
	want := f.seedConfig(t, "department override", 50)

	wf, reason, err := f.engine.ResolveWorkflow(context.Background(), f.org, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, want.ID, wf.ID)
	assert.Contains(t, reason, "department override")
}

func TestResolveWorkflowNoneConfigured(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.engine.ResolveWorkflow(context.Background(), f.org, time.Now().UTC())
	assert.ErrorIs(t, err, workflow.ErrWorkflowNotFound)
}

func TestInstantiateStepsContiguousOrders(t *testing.T) {
	f := newFixture(t)
	wf := f.seedConfig(t, "default", 1)
	req := f.seedPendingRequest(t, uuid.New())

	approvers := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	steps, err := f.engine.InstantiateSteps(context.Background(), req, wf, approvers, f.actx)
	require.NoError(t, err)
	require.Len(t, steps, 3)
	for i, s := range steps {
		assert.Equal(t, i, s.StepOrder)
		assert.Equal(t, approvers[i], s.ApproverID)
		assert.Equal(t, workflow.StepPending, s.Status)
	}
}

func TestInstantiateStepsWithoutApprovers(t *testing.T) {
	f := newFixture(t)
	wf := f.seedConfig(t, "default", 1)
	req := f.seedPendingRequest(t, uuid.New())

	_, err := f.engine.InstantiateSteps(context.Background(), req, wf, nil, f.actx)
	assert.ErrorIs(t, err, workflow.ErrInvalidState)
}

func TestApproveUnknownStep(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Approve(context.Background(), uuid.New(), uuid.New(), nil, f.actx)
	assert.ErrorIs(t, err, workflow.ErrApprovalDenied)
}

func TestRejectStampsDecision(t *testing.T) {
	f := newFixture(t)
	wf := f.seedConfig(t, "default", 1)
	req := f.seedPendingRequest(t, uuid.New())
	approver := uuid.New()

	steps, err := f.engine.InstantiateSteps(context.Background(), req, wf, []uuid.UUID{approver}, f.actx)
	require.NoError(t, err)

	remark := "overlapping release window"
	result, err := f.engine.Reject(context.Background(), steps[0].ID, approver, &remark, f.actx)
	require.NoError(t, err)

	completed, ok := result.(Completed)
	require.True(t, ok)
	assert.Equal(t, leave.StatusRejected, completed.FinalStatus)
	require.NotNil(t, completed.LeaveRequest.DecidedAt)
	require.NotNil(t, completed.LeaveRequest.DecidedBy)
	assert.Equal(t, approver, *completed.LeaveRequest.DecidedBy)
	require.NotNil(t, completed.LeaveRequest.DecisionRemarks)
	assert.Equal(t, remark, *completed.LeaveRequest.DecisionRemarks)
}

func TestApproveSingleStepCompletes(t *testing.T) {
	f := newFixture(t)
	wf := f.seedConfig(t, "default", 1)
	req := f.seedPendingRequest(t, uuid.New())
	approver := uuid.New()

	steps, err := f.engine.InstantiateSteps(context.Background(), req, wf, []uuid.UUID{approver}, f.actx)
	require.NoError(t, err)

	result, err := f.engine.Approve(context.Background(), steps[0].ID, approver, nil, f.actx)
	require.NoError(t, err)

	completed, ok := result.(Completed)
	require.True(t, ok)
	assert.Equal(t, leave.StatusApproved, completed.FinalStatus)

	// Acting on the same step twice is rejected.
	_, err = f.engine.Approve(context.Background(), steps[0].ID, approver, nil, f.actx)
	assert.ErrorIs(t, err, workflow.ErrInvalidState)
}
