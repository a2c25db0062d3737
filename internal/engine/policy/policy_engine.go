package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/lms-backend-go/internal/domain/user"
	"github.com/google/uuid"
)

// Engine resolves the applicable leave policy for a (user, leave type) pair
// and evaluates eligibility under it. It holds no transaction of its own;
// the caller's unit of work scopes every call.
type Engine struct {
	leave.PolicyRepository
	leave.BalanceRepository
}

func NewEngine(policyRepository leave.PolicyRepository, balanceRepository leave.BalanceRepository) *Engine {
	return &Engine{
		PolicyRepository:  policyRepository,
		BalanceRepository: balanceRepository,
	}
}

// Resolution carries the selected policy and why it won.
type Resolution struct {
	Policy leave.LeavePolicy
	Reason string
}

// ResolvePolicyForUser picks the active policy for the user's organization
// and the leave type whose effective window covers at, preferring the most
// recent effective_from with the id as a deterministic tie-break.
func (e *Engine) ResolvePolicyForUser(ctx context.Context, u *user.User, leaveTypeID uuid.UUID, at time.Time) (Resolution, error) {
	policies, err := e.PolicyRepository.ListActive(ctx, u.OrganizationID, leaveTypeID, at)
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to list active policies: %w", err)
	}
	if len(policies) == 0 {
		return Resolution{}, leave.ErrPolicyNotFound
	}

	selected := policies[0]
	reason := fmt.Sprintf("policy %q effective from %s", selected.Name, selected.EffectiveFrom.Format("2006-01-02"))
	if len(policies) > 1 {
		reason += fmt.Sprintf(" (selected over %d older candidates)", len(policies)-1)
	}

	return Resolution{Policy: selected, Reason: reason}, nil
}

// AssertEligible evaluates the policy's eligibility type against the user
// at the given instant.
func (e *Engine) AssertEligible(u *user.User, p *leave.LeavePolicy, at time.Time) error {
	switch p.EligibilityType {
	case leave.EligibilityImmediate:
		return nil

	case leave.EligibilityAfterProbation:
		if u.ProbationEndDate == nil {
			return leave.EligibilityError{
				PolicyName: p.Name,
				Reason:     "probation end date is not set",
			}
		}
		if at.Before(*u.ProbationEndDate) {
			return leave.EligibilityError{
				PolicyName: p.Name,
				Reason:     fmt.Sprintf("probation ends %s", u.ProbationEndDate.Format("2006-01-02")),
			}
		}
		return nil

	case leave.EligibilityAfterTenure:
		if u.HireDate == nil {
			return leave.EligibilityError{
				PolicyName: p.Name,
				Reason:     "hire date is not set",
			}
		}
		tenureDays := int(at.Sub(*u.HireDate).Hours() / 24)
		if tenureDays < p.EligibilityTenureDays {
			return leave.EligibilityError{
				PolicyName: p.Name,
				Reason:     fmt.Sprintf("tenure %d days is below required %d", tenureDays, p.EligibilityTenureDays),
			}
		}
		return nil

	case leave.EligibilityCustom:
		ok, failed := p.EligibilityRules.Evaluate(u.Attributes())
		if !ok {
			return leave.EligibilityError{
				PolicyName: p.Name,
				Reason:     "custom eligibility rules not satisfied",
				Criteria:   failed,
			}
		}
		return nil

	default:
		return leave.EligibilityError{
			PolicyName: p.Name,
			Reason:     fmt.Sprintf("unknown eligibility type %q", p.EligibilityType),
		}
	}
}

// GetBalance is the non-throwing current-period balance lookup; nil when no
// period covers the date.
func (e *Engine) GetBalance(ctx context.Context, userID, leaveTypeID uuid.UUID, on time.Time) (*leave.LeaveBalance, error) {
	return e.BalanceRepository.GetCurrent(ctx, userID, leaveTypeID, on)
}
