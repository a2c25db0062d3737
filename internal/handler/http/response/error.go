package response

import (
	"errors"
	"net/http"
	"strings"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/lms-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/lms-backend-go/internal/domain/workflow"
	"github.com/cmlabs-hris/lms-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Not found
	case errors.Is(err, user.ErrUserNotFound):
		NotFound(w, "User not found")
	case errors.Is(err, leave.ErrLeaveTypeNotFound):
		NotFound(w, "Leave type not found")
	case errors.Is(err, leave.ErrLeaveRequestNotFound):
		NotFound(w, "Leave request not found")
	case errors.Is(err, leave.ErrCommentNotFound):
		NotFound(w, "Comment not found")
	case errors.Is(err, workflow.ErrStepNotFound):
		NotFound(w, "Workflow step not found")

	// Conflicts
	case errors.Is(err, user.ErrDuplicateEntity):
		Conflict(w, err.Error())
	case errors.Is(err, workflow.ErrInvalidState):
		handleStateError(w, err)

	// Authorization on the workflow path
	case errors.Is(err, workflow.ErrApprovalDenied):
		Forbidden(w, err.Error())

	// Policy and leave rule failures
	case errors.Is(err, leave.ErrPolicyNotFound):
		BadRequest(w, "No applicable leave policy", nil)
	case errors.Is(err, workflow.ErrWorkflowNotFound):
		BadRequest(w, "No applicable approval workflow", nil)
	case errors.Is(err, leave.ErrBalanceNotFound):
		BadRequest(w, "No leave balance for the requested period", nil)
	case errors.Is(err, leave.ErrNotEligible):
		handleEligibilityError(w, err)
	case errors.Is(err, leave.ErrInsufficientBalance):
		handleInsufficientBalance(w, err)
	case errors.Is(err, leave.ErrLeaveOverlap):
		handleOverlapError(w, err)
	case errors.Is(err, user.ErrUserInactive):
		BadRequest(w, "User is not active", nil)

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}

func handleStateError(w http.ResponseWriter, err error) {
	var stateErr workflow.StateError
	if errors.As(err, &stateErr) {
		fail(w, http.StatusConflict, "WORKFLOW_STATE", stateErr.Error(), map[string]string{
			"current_state":    stateErr.CurrentState,
			"attempted_action": stateErr.AttemptedAction,
		})
		return
	}
	Conflict(w, err.Error())
}

func handleEligibilityError(w http.ResponseWriter, err error) {
	var eligErr leave.EligibilityError
	if errors.As(err, &eligErr) {
		details := map[string]string{"reason": eligErr.Reason}
		if len(eligErr.Criteria) > 0 {
			details["criteria"] = strings.Join(eligErr.Criteria, "; ")
		}
		BadRequest(w, "Not eligible for this leave policy", details)
		return
	}
	BadRequest(w, "Not eligible for this leave policy", nil)
}

func handleInsufficientBalance(w http.ResponseWriter, err error) {
	var balErr leave.InsufficientBalanceError
	if errors.As(err, &balErr) {
		BadRequest(w, "Insufficient leave balance", map[string]string{
			"available":  balErr.Available.String(),
			"requested":  balErr.Requested.String(),
			"leave_type": balErr.LeaveType,
		})
		return
	}
	BadRequest(w, "Insufficient leave balance", nil)
}

func handleOverlapError(w http.ResponseWriter, err error) {
	var overlapErr leave.OverlapError
	if errors.As(err, &overlapErr) {
		BadRequest(w, "Leave request overlaps existing requests", map[string]string{
			"overlapping_requests": strings.Join(overlapErr.RequestNumbers, ", "),
		})
		return
	}
	BadRequest(w, "Leave request overlaps existing requests", nil)
}
