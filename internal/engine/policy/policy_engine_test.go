package policy

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/lms-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/lms-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/lms-backend-go/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) (*Engine, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return NewEngine(
		memory.NewLeavePolicyRepository(store),
		memory.NewLeaveBalanceRepository(store),
	), store
}

func seedPolicy(t *testing.T, e *Engine, org, leaveType uuid.UUID, name string, effectiveFrom time.Time) leave.LeavePolicy {
	t.Helper()
	p := leave.LeavePolicy{
		OrganizationID:  org,
		LeaveTypeID:     leaveType,
		Name:            name,
		EligibilityType: leave.EligibilityImmediate,
		EffectiveFrom:   effectiveFrom,
		IsActive:        true,
	}
	require.NoError(t, e.PolicyRepository.Create(context.Background(), &p, audit.SystemContext(audit.ActorSystem)))
	return p
}

func TestResolvePolicyPrefersLatestEffective(t *testing.T) {
	e, _ := newEngine(t)
	org := uuid.New()
	leaveType := uuid.New()
	now := time.Now().UTC()

	seedPolicy(t, e, org, leaveType, "old", now.AddDate(-2, 0, 0))
	newer := seedPolicy(t, e, org, leaveType, "new", now.AddDate(-1, 0, 0))

	u := &user.User{ID: uuid.New(), OrganizationID: org}
	res, err := e.ResolvePolicyForUser(context.Background(), u, leaveType, now)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, res.Policy.ID)
	assert.Contains(t, res.Reason, `"new"`)
}

func TestResolvePolicyNoneActive(t *testing.T) {
	e, _ := newEngine(t)
	org := uuid.New()
	leaveType := uuid.New()
	now := time.Now().UTC()

	// Only a future policy exists.
	seedPolicy(t, e, org, leaveType, "future", now.AddDate(1, 0, 0))

	u := &user.User{ID: uuid.New(), OrganizationID: org}
	_, err := e.ResolvePolicyForUser(context.Background(), u, leaveType, now)
	assert.ErrorIs(t, err, leave.ErrPolicyNotFound)
}

func TestAssertEligibleImmediate(t *testing.T) {
	e, _ := newEngine(t)
	p := &leave.LeavePolicy{Name: "p", EligibilityType: leave.EligibilityImmediate}
	assert.NoError(t, e.AssertEligible(&user.User{}, p, time.Now().UTC()))
}

func TestAssertEligibleAfterProbation(t *testing.T) {
	e, _ := newEngine(t)
	now := time.Now().UTC()
	p := &leave.LeavePolicy{Name: "p", EligibilityType: leave.EligibilityAfterProbation}

	// Unset probation end date blocks.
	err := e.AssertEligible(&user.User{}, p, now)
	assert.ErrorIs(t, err, leave.ErrNotEligible)

	// Probation still running blocks.
	future := now.AddDate(0, 1, 0)
	err = e.AssertEligible(&user.User{ProbationEndDate: &future}, p, now)
	require.Error(t, err)
	var eligErr leave.EligibilityError
	require.ErrorAs(t, err, &eligErr)
	assert.Contains(t, eligErr.Reason, "probation ends")

	// Probation over passes.
	past := now.AddDate(0, -1, 0)
	assert.NoError(t, e.AssertEligible(&user.User{ProbationEndDate: &past}, p, now))
}

func TestAssertEligibleAfterTenure(t *testing.T) {
	e, _ := newEngine(t)
	now := time.Now().UTC()
	p := &leave.LeavePolicy{
		Name:                  "p",
		EligibilityType:       leave.EligibilityAfterTenure,
		EligibilityTenureDays: 90,
	}

	err := e.AssertEligible(&user.User{}, p, now)
	assert.ErrorIs(t, err, leave.ErrNotEligible)

	recent := now.AddDate(0, 0, -30)
	err = e.AssertEligible(&user.User{HireDate: &recent}, p, now)
	assert.ErrorIs(t, err, leave.ErrNotEligible)

	longAgo := now.AddDate(0, 0, -120)
	assert.NoError(t, e.AssertEligible(&user.User{HireDate: &longAgo}, p, now))
}

func TestAssertEligibleCustomRules(t *testing.T) {
	e, _ := newEngine(t)
	now := time.Now().UTC()
	p := &leave.LeavePolicy{
		Name:            "p",
		EligibilityType: leave.EligibilityCustom,
		EligibilityRules: leave.EligibilityRules{
			All: []leave.RuleCondition{
				{Attr: "employment_type", Op: "eq", Value: "full_time"},
			},
			Any: []leave.RuleCondition{
				{Attr: "role", Op: "in", Value: []string{"employee", "manager"}},
			},
		},
	}

	pass := &user.User{Role: user.RoleEmployee, Status: user.StatusActive, EmploymentType: "full_time"}
	assert.NoError(t, e.AssertEligible(pass, p, now))

	fail := &user.User{Role: user.RoleAuditor, Status: user.StatusActive, EmploymentType: "contract"}
	err := e.AssertEligible(fail, p, now)
	require.Error(t, err)
	var eligErr leave.EligibilityError
	require.ErrorAs(t, err, &eligErr)
	assert.Len(t, eligErr.Criteria, 2)
}
