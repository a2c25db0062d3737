package leave

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/lms-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/lms-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/lms-backend-go/internal/domain/workflow"
	balanceengine "github.com/cmlabs-hris/lms-backend-go/internal/engine/balance"
	policyengine "github.com/cmlabs-hris/lms-backend-go/internal/engine/policy"
	workflowengine "github.com/cmlabs-hris/lms-backend-go/internal/engine/workflow"
	"github.com/cmlabs-hris/lms-backend-go/internal/pkg/validator"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TxRunner scopes one orchestrated operation in one transaction: commit on
// normal return, rollback on error or panic. The database and the in-memory
// store both satisfy it.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Engine orchestrates policy resolution, workflow instantiation and balance
// accounting for the leave request lifecycle. It owns no business rules
// beyond composition and overlap detection; each mutating operation runs
// inside a single unit of work.
type Engine struct {
	tx TxRunner

	users    user.Repository
	requests leave.RequestRepository
	dates    leave.DateRepository
	balances leave.BalanceRepository
	comments leave.CommentRepository

	policy   *policyengine.Engine
	balance  *balanceengine.Engine
	workflow *workflowengine.Engine

	logger *slog.Logger
}

func NewEngine(
	tx TxRunner,
	userRepository user.Repository,
	requestRepository leave.RequestRepository,
	dateRepository leave.DateRepository,
	balanceRepository leave.BalanceRepository,
	commentRepository leave.CommentRepository,
	policyEngine *policyengine.Engine,
	balanceEngine *balanceengine.Engine,
	workflowEngine *workflowengine.Engine,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		tx:       tx,
		users:    userRepository,
		requests: requestRepository,
		dates:    dateRepository,
		balances: balanceRepository,
		comments: commentRepository,
		policy:   policyEngine,
		balance:  balanceEngine,
		workflow: workflowEngine,
		logger:   logger,
	}
}

// Created is the result of CreateLeaveRequest.
type Created struct {
	LeaveRequest leave.LeaveRequest
	PolicyReason string
}

// CreateLeaveRequest validates the window, rejects overlaps with the user's
// non-terminal requests, resolves the policy, asserts eligibility and
// persists the request in draft together with its per-day rows.
func (e *Engine) CreateLeaveRequest(ctx context.Context, input leave.CreateLeaveRequestRequest, actx audit.Context) (*Created, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	userID, err := parseUUIDField(input.UserID, "user_id")
	if err != nil {
		return nil, err
	}
	leaveTypeID, err := parseUUIDField(input.LeaveTypeID, "leave_type_id")
	if err != nil {
		return nil, err
	}
	startDate, _ := time.Parse("2006-01-02", input.StartDate)
	endDate, _ := time.Parse("2006-01-02", input.EndDate)
	totalDays := decimal.NewFromFloat(input.TotalDays)

	var created Created
	err = e.tx.RunInTx(ctx, func(ctx context.Context) error {
		u, err := e.users.GetRequired(ctx, userID)
		if err != nil {
			return err
		}
		if !u.IsActiveActor() {
			return user.ErrUserInactive
		}

		overlapping, err := e.requests.FindOverlapping(ctx, userID, startDate, endDate)
		if err != nil {
			return fmt.Errorf("failed to check overlapping requests: %w", err)
		}
		if len(overlapping) > 0 {
			numbers := make([]string, 0, len(overlapping))
			for _, o := range overlapping {
				numbers = append(numbers, o.RequestNumber)
			}
			return leave.OverlapError{RequestNumbers: numbers}
		}

		now := time.Now().UTC()
		resolution, err := e.policy.ResolvePolicyForUser(ctx, u, leaveTypeID, now)
		if err != nil {
			return err
		}
		if err := e.policy.AssertEligible(u, &resolution.Policy, now); err != nil {
			return err
		}

		requestNumber, err := NewRequestNumber()
		if err != nil {
			return err
		}

		req := leave.LeaveRequest{
			OrganizationID: u.OrganizationID,
			RequestNumber:  requestNumber,
			UserID:         userID,
			LeaveTypeID:    leaveTypeID,
			PolicyID:       &resolution.Policy.ID,
			StartDate:      startDate,
			EndDate:        endDate,
			TotalDays:      totalDays,
			Reason:         input.Reason,
			Status:         leave.StatusDraft,
		}
		if err := e.requests.Create(ctx, &req, actx); err != nil {
			return err
		}

		// One row per calendar day, value 1.0. Holiday tagging belongs to
		// an external calendar collaborator.
		var dayRows []*leave.LeaveRequestDate
		for d := startDate; !d.After(endDate); d = d.AddDate(0, 0, 1) {
			weekday := d.Weekday()
			dayRows = append(dayRows, &leave.LeaveRequestDate{
				LeaveRequestID: req.ID,
				Date:           d,
				DayValue:       decimal.NewFromInt(1),
				IsWeekend:      weekday == time.Saturday || weekday == time.Sunday,
			})
		}
		if err := e.dates.CreateBatch(ctx, dayRows, actx); err != nil {
			return err
		}

		created = Created{LeaveRequest: req, PolicyReason: resolution.Reason}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// Submit moves a draft request to pending approval: it resolves the
// workflow, instantiates the approver steps, reserves the balance and
// stamps the submission. Any failure rolls the whole transition back.
func (e *Engine) Submit(ctx context.Context, requestID uuid.UUID, actx audit.Context) (*leave.LeaveRequest, error) {
	var submitted *leave.LeaveRequest
	err := e.tx.RunInTx(ctx, func(ctx context.Context) error {
		req, err := e.requests.GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != leave.StatusDraft {
			return workflow.StateError{
				CurrentState:    string(req.Status),
				AttemptedAction: "submit",
			}
		}

		u, err := e.users.GetRequired(ctx, req.UserID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		wf, reason, err := e.workflow.ResolveWorkflow(ctx, req.OrganizationID, now)
		if err != nil {
			return err
		}

		approvers, err := e.approverChain(ctx, u, approvalLevels(wf))
		if err != nil {
			return err
		}

		if _, err := e.workflow.InstantiateSteps(ctx, req, wf, approvers, actx); err != nil {
			return err
		}

		// Balance reservation point: a throw here rolls back the steps too.
		if _, err := e.balance.OnSubmit(ctx, req, actx); err != nil {
			return err
		}

		submitted, err = e.requests.UpdateFields(ctx, req.ID,
			map[string]any{
				"status":                leave.StatusPendingApproval,
				"submitted_at":          now,
				"current_workflow_step": 0,
			},
			audit.ActionStatusChange,
			fmt.Sprintf("request %s submitted", req.RequestNumber),
			actx,
		)
		if err != nil {
			return fmt.Errorf("failed to mark request submitted: %w", err)
		}

		e.logger.Info("leave request submitted",
			slog.String("request_number", req.RequestNumber),
			slog.String("workflow", reason),
			slog.Int("steps", len(approvers)),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return submitted, nil
}

// ApproveStep delegates to the workflow engine; when that completes the
// workflow with an approval, the reservation is consumed.
func (e *Engine) ApproveStep(ctx context.Context, stepID, actorUserID uuid.UUID, comment *string, actx audit.Context) (workflowengine.Result, error) {
	var result workflowengine.Result
	err := e.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		result, err = e.workflow.Approve(ctx, stepID, actorUserID, comment, actx)
		if err != nil {
			return err
		}
		if completed, ok := result.(workflowengine.Completed); ok && completed.FinalStatus == leave.StatusApproved {
			if _, err := e.balance.OnApprove(ctx, &completed.LeaveRequest, actx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RejectStep delegates to the workflow engine and releases the reservation.
func (e *Engine) RejectStep(ctx context.Context, stepID, actorUserID uuid.UUID, comment *string, actx audit.Context) (workflowengine.Result, error) {
	var result workflowengine.Result
	err := e.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		result, err = e.workflow.Reject(ctx, stepID, actorUserID, comment, actx)
		if err != nil {
			return err
		}
		if completed, ok := result.(workflowengine.Completed); ok && completed.FinalStatus == leave.StatusRejected {
			if _, err := e.balance.OnReject(ctx, &completed.LeaveRequest, actx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// WithdrawRequest lets the owner pull back a pending request and releases
// the reservation.
func (e *Engine) WithdrawRequest(ctx context.Context, requestID, actorUserID uuid.UUID, reason *string, actx audit.Context) (workflowengine.Result, error) {
	var result workflowengine.Result
	err := e.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		result, err = e.workflow.Withdraw(ctx, requestID, actorUserID, reason, actx)
		if err != nil {
			return err
		}
		if completed, ok := result.(workflowengine.Completed); ok && completed.FinalStatus == leave.StatusWithdrawn {
			if _, err := e.balance.OnWithdraw(ctx, &completed.LeaveRequest, actx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AddComment persists a remark on the request without changing its state.
func (e *Engine) AddComment(ctx context.Context, requestID, userID uuid.UUID, input leave.AddCommentRequest, actx audit.Context) (*leave.Comment, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var comment leave.Comment
	err := e.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := e.requests.GetRequired(ctx, requestID); err != nil {
			return err
		}
		comment = leave.Comment{
			LeaveRequestID: requestID,
			UserID:         userID,
			Body:           input.Body,
			IsInternal:     input.IsInternal,
		}
		return e.comments.Create(ctx, &comment, actx)
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// DeleteDraft soft-deletes a draft the owner abandoned. Submitted requests
// go through withdraw instead so their reservation is settled.
func (e *Engine) DeleteDraft(ctx context.Context, requestID, actorUserID uuid.UUID, actx audit.Context) error {
	return e.tx.RunInTx(ctx, func(ctx context.Context) error {
		req, err := e.requests.GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.UserID != actorUserID {
			return workflow.ApprovalError{Reason: "only the request owner may delete a draft"}
		}
		if req.Status != leave.StatusDraft {
			return workflow.StateError{
				CurrentState:    string(req.Status),
				AttemptedAction: "delete",
			}
		}
		return e.requests.SoftDelete(ctx, req.ID, actx)
	})
}

// Read-only queries. No transaction, no business rules.

func (e *Engine) GetLeaveRequest(ctx context.Context, id uuid.UUID) (*leave.LeaveRequest, error) {
	return e.requests.GetRequired(ctx, id)
}

func (e *Engine) ListLeaveRequests(ctx context.Context, filter leave.RequestFilter) ([]leave.LeaveRequest, error) {
	return e.requests.List(ctx, filter)
}

func (e *Engine) CountLeaveRequests(ctx context.Context, filter leave.RequestFilter) (int64, error) {
	return e.requests.Count(ctx, filter)
}

func (e *Engine) GetLeaveBalances(ctx context.Context, userID uuid.UUID) ([]leave.LeaveBalance, error) {
	return e.balances.ListForUser(ctx, userID)
}

func (e *Engine) ListComments(ctx context.Context, requestID uuid.UUID) ([]leave.Comment, error) {
	return e.comments.ListForRequest(ctx, requestID)
}

func (e *Engine) ListRequestDates(ctx context.Context, requestID uuid.UUID) ([]leave.LeaveRequestDate, error) {
	return e.dates.ListForRequest(ctx, requestID)
}

// approverChain walks the manager links upward from the requester,
// collecting up to levels approvers. A request with no determinable
// approver cannot enter a workflow.
func (e *Engine) approverChain(ctx context.Context, u *user.User, levels int) ([]uuid.UUID, error) {
	var approvers []uuid.UUID
	seen := map[uuid.UUID]bool{u.ID: true}

	managerID := u.ManagerID
	for managerID != nil && len(approvers) < levels {
		if seen[*managerID] {
			break
		}
		seen[*managerID] = true

		manager, err := e.users.Get(ctx, *managerID)
		if err != nil {
			return nil, err
		}
		if manager == nil {
			break
		}
		approvers = append(approvers, manager.ID)
		managerID = manager.ManagerID
	}

	if len(approvers) == 0 {
		return nil, workflow.ErrWorkflowNotFound
	}
	return approvers, nil
}

// approvalLevels reads the approver-chain depth from the workflow criteria
// blob, defaulting to a single level.
func approvalLevels(wf *workflow.Configuration) int {
	v, ok := wf.Criteria["approval_levels"]
	if !ok {
		return 1
	}
	switch vv := v.(type) {
	case int:
		if vv > 0 {
			return vv
		}
	case float64:
		if vv >= 1 {
			return int(vv)
		}
	}
	return 1
}

func parseUUIDField(value, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, validator.ValidationErrors{{
			Field:   field,
			Message: field + " must be a valid UUID",
		}}
	}
	return id, nil
}
