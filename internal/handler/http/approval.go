package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/leave"
	leaveengine "github.com/cmlabs-hris/lms-backend-go/internal/engine/leave"
	workflowengine "github.com/cmlabs-hris/lms-backend-go/internal/engine/workflow"
	"github.com/cmlabs-hris/lms-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/lms-backend-go/internal/handler/http/response"
)

type ApprovalHandler interface {
	ApproveStep(w http.ResponseWriter, r *http.Request)
	RejectStep(w http.ResponseWriter, r *http.Request)
}

type ApprovalHandlerImpl struct {
	engine *leaveengine.Engine
}

func NewApprovalHandler(engine *leaveengine.Engine) ApprovalHandler {
	return &ApprovalHandlerImpl{engine: engine}
}

// ApproveStep implements ApprovalHandler.
func (h *ApprovalHandlerImpl) ApproveStep(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "approve")
}

// RejectStep implements ApprovalHandler.
func (h *ApprovalHandlerImpl) RejectStep(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "reject")
}

func (h *ApprovalHandlerImpl) decide(w http.ResponseWriter, r *http.Request, action string) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	stepID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var req leave.DecisionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Error("decision decode error", "action", action, "error", err)
			response.BadRequest(w, "Invalid request format", nil)
			return
		}
	}

	var result workflowengine.Result
	var err error
	switch action {
	case "approve":
		result, err = h.engine.ApproveStep(r.Context(), stepID, actor.UserID, req.Comment, actor.AuditContext(r))
	default:
		result, err = h.engine.RejectStep(r.Context(), stepID, actor.UserID, req.Comment, actor.AuditContext(r))
	}
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, toWorkflowResultResponse(result))
}

// workflowResultResponse flattens the engine's result sum type for the wire.
type workflowResultResponse struct {
	Outcome      string                      `json:"outcome"`
	NextStep     *workflowStepResponse       `json:"next_step,omitempty"`
	LeaveRequest *leave.LeaveRequestResponse `json:"leave_request,omitempty"`
	FinalStatus  string                      `json:"final_status,omitempty"`
}

type workflowStepResponse struct {
	ID         string `json:"id"`
	StepOrder  int    `json:"step_order"`
	ApproverID string `json:"approver_id"`
	Status     string `json:"status"`
}

func toWorkflowResultResponse(result workflowengine.Result) workflowResultResponse {
	switch res := result.(type) {
	case workflowengine.StepActivated:
		return workflowResultResponse{
			Outcome: "step_activated",
			NextStep: &workflowStepResponse{
				ID:         res.Step.ID.String(),
				StepOrder:  res.Step.StepOrder,
				ApproverID: res.Step.ApproverID.String(),
				Status:     string(res.Step.Status),
			},
		}
	case workflowengine.Completed:
		resp := leave.ToLeaveRequestResponse(&res.LeaveRequest)
		return workflowResultResponse{
			Outcome:      "completed",
			LeaveRequest: &resp,
			FinalStatus:  string(res.FinalStatus),
		}
	default:
		return workflowResultResponse{Outcome: "unknown"}
	}
}
