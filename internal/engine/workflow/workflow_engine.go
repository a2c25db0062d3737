package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/lms-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/lms-backend-go/internal/domain/workflow"
	"github.com/google/uuid"
)

// Engine is the ordered approval state machine. A request's cursor
// (current_workflow_step) names the single step an approver may act on;
// approve advances it, reject and withdraw terminate the request.
type Engine struct {
	configurations workflow.ConfigurationRepository
	steps          workflow.StepRepository
	requests       leave.RequestRepository
}

func NewEngine(
	configurationRepository workflow.ConfigurationRepository,
	stepRepository workflow.StepRepository,
	requestRepository leave.RequestRepository,
) *Engine {
	return &Engine{
		configurations: configurationRepository,
		steps:          stepRepository,
		requests:       requestRepository,
	}
}

// Result is what approve, reject and withdraw return: either the next step
// was activated or the workflow completed with a final status.
type Result interface {
	workflowResult()
}

// StepActivated reports that the cursor advanced to Step.
type StepActivated struct {
	Step    workflow.Step
	IsFinal bool
}

func (StepActivated) workflowResult() {}

// Completed reports the terminal outcome of a request's workflow. The
// caller hands off to the balance engine based on FinalStatus.
type Completed struct {
	LeaveRequest leave.LeaveRequest
	FinalStatus  leave.RequestStatus
}

func (Completed) workflowResult() {}

// ResolveWorkflow picks the active configuration with the highest priority
// whose effective window covers at.
func (e *Engine) ResolveWorkflow(ctx context.Context, organizationID uuid.UUID, at time.Time) (*workflow.Configuration, string, error) {
	configs, err := e.configurations.ListActive(ctx, organizationID, at)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list active workflows: %w", err)
	}
	if len(configs) == 0 {
		return nil, "", workflow.ErrWorkflowNotFound
	}

	selected := configs[0]
	reason := fmt.Sprintf("workflow %q at priority %d", selected.Name, selected.Priority)
	return &selected, reason, nil
}

// InstantiateSteps writes one step per approver with contiguous 0-based
// step orders. Every step persists as pending; only the request cursor
// makes the first one actionable.
func (e *Engine) InstantiateSteps(ctx context.Context, req *leave.LeaveRequest, wf *workflow.Configuration, approverIDs []uuid.UUID, actx audit.Context) ([]workflow.Step, error) {
	if len(approverIDs) == 0 {
		return nil, workflow.StateError{
			CurrentState:    string(req.Status),
			AttemptedAction: "instantiate workflow without approvers",
		}
	}

	steps := make([]workflow.Step, 0, len(approverIDs))
	for order, approverID := range approverIDs {
		step := workflow.Step{
			OrganizationID: req.OrganizationID,
			LeaveRequestID: req.ID,
			WorkflowID:     &wf.ID,
			StepOrder:      order,
			ApproverID:     approverID,
			Status:         workflow.StepPending,
		}
		if err := e.steps.Create(ctx, &step, actx); err != nil {
			return nil, fmt.Errorf("failed to create workflow step %d: %w", order, err)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// Approve acts on the cursor step. It returns StepActivated when a later
// step exists and Completed when the approved step was the last one.
func (e *Engine) Approve(ctx context.Context, stepID, actorUserID uuid.UUID, comment *string, actx audit.Context) (Result, error) {
	step, req, err := e.loadActionable(ctx, stepID, actorUserID, "approve")
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	approvedStep, err := e.steps.UpdateFields(ctx, step.ID,
		map[string]any{
			"status":         workflow.StepApproved,
			"actioned_at":    now,
			"action_remarks": comment,
		},
		audit.ActionApproval,
		fmt.Sprintf("step %d of request %s approved", step.StepOrder, req.RequestNumber),
		actx,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to approve step: %w", err)
	}

	allSteps, err := e.steps.ListForRequest(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow steps: %w", err)
	}

	for i, s := range allSteps {
		if s.ID != approvedStep.ID {
			continue
		}
		if i+1 < len(allSteps) {
			next := allSteps[i+1]
			if _, err := e.requests.UpdateFields(ctx, req.ID,
				map[string]any{"current_workflow_step": next.StepOrder},
				audit.ActionUpdate,
				fmt.Sprintf("request %s advanced to step %d", req.RequestNumber, next.StepOrder),
				actx,
			); err != nil {
				return nil, fmt.Errorf("failed to advance workflow cursor: %w", err)
			}
			return StepActivated{Step: next, IsFinal: false}, nil
		}

		finalReq, err := e.requests.UpdateFields(ctx, req.ID,
			map[string]any{
				"status":           leave.StatusApproved,
				"decided_at":       now,
				"decided_by":       actorUserID,
				"decision_remarks": comment,
			},
			audit.ActionApproval,
			fmt.Sprintf("request %s approved", req.RequestNumber),
			actx,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to approve request: %w", err)
		}
		return Completed{LeaveRequest: *finalReq, FinalStatus: leave.StatusApproved}, nil
	}

	return nil, workflow.ErrStepNotFound
}

// Reject terminates the workflow at the cursor step. Remaining pending
// steps stay pending but are logically dead once the request is rejected.
func (e *Engine) Reject(ctx context.Context, stepID, actorUserID uuid.UUID, comment *string, actx audit.Context) (Result, error) {
	step, req, err := e.loadActionable(ctx, stepID, actorUserID, "reject")
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if _, err := e.steps.UpdateFields(ctx, step.ID,
		map[string]any{
			"status":         workflow.StepRejected,
			"actioned_at":    now,
			"action_remarks": comment,
		},
		audit.ActionRejection,
		fmt.Sprintf("step %d of request %s rejected", step.StepOrder, req.RequestNumber),
		actx,
	); err != nil {
		return nil, fmt.Errorf("failed to reject step: %w", err)
	}

	finalReq, err := e.requests.UpdateFields(ctx, req.ID,
		map[string]any{
			"status":           leave.StatusRejected,
			"decided_at":       now,
			"decided_by":       actorUserID,
			"decision_remarks": comment,
		},
		audit.ActionRejection,
		fmt.Sprintf("request %s rejected", req.RequestNumber),
		actx,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reject request: %w", err)
	}
	return Completed{LeaveRequest: *finalReq, FinalStatus: leave.StatusRejected}, nil
}

// Withdraw is the owner pulling back a pending request: the request goes
// to withdrawn and every pending step is swept to skipped.
func (e *Engine) Withdraw(ctx context.Context, leaveRequestID, actorUserID uuid.UUID, reason *string, actx audit.Context) (Result, error) {
	req, err := e.requests.GetForUpdate(ctx, leaveRequestID)
	if err != nil {
		return nil, err
	}

	if req.UserID != actorUserID {
		return nil, workflow.ApprovalError{Reason: "only the request owner may withdraw"}
	}
	if req.Status != leave.StatusPendingApproval {
		return nil, workflow.StateError{
			CurrentState:    string(req.Status),
			AttemptedAction: "withdraw",
		}
	}

	now := time.Now().UTC()
	finalReq, err := e.requests.UpdateFields(ctx, req.ID,
		map[string]any{
			"status":              leave.StatusWithdrawn,
			"cancelled_at":        now,
			"cancelled_by":        actorUserID,
			"cancellation_reason": reason,
		},
		audit.ActionStatusChange,
		fmt.Sprintf("request %s withdrawn", req.RequestNumber),
		actx,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to withdraw request: %w", err)
	}

	steps, err := e.steps.ListForRequest(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow steps: %w", err)
	}
	for _, s := range steps {
		if s.Status != workflow.StepPending {
			continue
		}
		if _, err := e.steps.UpdateFields(ctx, s.ID,
			map[string]any{"status": workflow.StepSkipped},
			audit.ActionStatusChange,
			fmt.Sprintf("step %d of request %s skipped on withdrawal", s.StepOrder, req.RequestNumber),
			actx,
		); err != nil {
			return nil, fmt.Errorf("failed to skip step %d: %w", s.StepOrder, err)
		}
	}

	return Completed{LeaveRequest: *finalReq, FinalStatus: leave.StatusWithdrawn}, nil
}

// loadActionable enforces the shared approve/reject preconditions: the step
// exists, the actor is its assigned approver, both step and request are in
// actionable states, and the step is the one the cursor points at.
func (e *Engine) loadActionable(ctx context.Context, stepID, actorUserID uuid.UUID, action string) (*workflow.Step, *leave.LeaveRequest, error) {
	step, err := e.steps.Get(ctx, stepID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load workflow step: %w", err)
	}
	if step == nil {
		return nil, nil, workflow.ApprovalError{Reason: "workflow step not found"}
	}

	req, err := e.requests.GetForUpdate(ctx, step.LeaveRequestID)
	if err != nil {
		return nil, nil, err
	}

	if step.ApproverID != actorUserID {
		return nil, nil, workflow.ApprovalError{Reason: "actor is not the assigned approver"}
	}
	if step.Status != workflow.StepPending {
		return nil, nil, workflow.StateError{
			CurrentState:    string(step.Status),
			AttemptedAction: action,
		}
	}
	if req.Status != leave.StatusPendingApproval {
		return nil, nil, workflow.StateError{
			CurrentState:    string(req.Status),
			AttemptedAction: action,
		}
	}
	if step.StepOrder != req.CurrentWorkflowStep {
		return nil, nil, workflow.StateError{
			CurrentState:    fmt.Sprintf("awaiting step %d", req.CurrentWorkflowStep),
			AttemptedAction: fmt.Sprintf("%s step %d", action, step.StepOrder),
		}
	}

	return step, req, nil
}
