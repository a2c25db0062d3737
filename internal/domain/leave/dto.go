package leave

import (
	"time"

	"github.com/cmlabs-hris/lms-backend-go/internal/pkg/validator"
)

type CreateLeaveRequestRequest struct {
	UserID      string  `json:"user_id"`
	LeaveTypeID string  `json:"leave_type_id"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	TotalDays   float64 `json:"total_days"`
	Reason      string  `json:"reason"`
}

func (r *CreateLeaveRequestRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.UserID) {
		errs = append(errs, validator.ValidationError{
			Field:   "user_id",
			Message: "user_id is required",
		})
	}

	if validator.IsEmpty(r.LeaveTypeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "leave_type_id",
			Message: "leave_type_id is required",
		})
	}

	// Date window
	var start, end time.Time
	var startOK, endOK bool
	if start, startOK = validator.IsValidDate(r.StartDate); !startOK {
		errs = append(errs, validator.ValidationError{
			Field:   "start_date",
			Message: "start_date must be in YYYY-MM-DD format",
		})
	}
	if end, endOK = validator.IsValidDate(r.EndDate); !endOK {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must be in YYYY-MM-DD format",
		})
	}
	if startOK && endOK && end.Before(start) {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must not be before start_date",
		})
	}

	// Total days
	if r.TotalDays <= 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "total_days",
			Message: "total_days must be greater than zero",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type AddCommentRequest struct {
	Body       string `json:"body"`
	IsInternal bool   `json:"is_internal"`
}

func (r *AddCommentRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Body) {
		errs = append(errs, validator.ValidationError{
			Field:   "body",
			Message: "body is required",
		})
	}
	if len(r.Body) > 2000 {
		errs = append(errs, validator.ValidationError{
			Field:   "body",
			Message: "body must not exceed 2000 characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type DecisionRequest struct {
	Comment *string `json:"comment,omitempty"`
}

type WithdrawRequest struct {
	Reason *string `json:"reason,omitempty"`
}

type LeaveRequestResponse struct {
	ID                  string   `json:"id"`
	RequestNumber       string   `json:"request_number"`
	UserID              string   `json:"user_id"`
	LeaveTypeID         string   `json:"leave_type_id"`
	PolicyID            *string  `json:"policy_id,omitempty"`
	StartDate           string   `json:"start_date"`
	EndDate             string   `json:"end_date"`
	TotalDays           float64  `json:"total_days"`
	Reason              string   `json:"reason"`
	Status              string   `json:"status"`
	CurrentWorkflowStep int      `json:"current_workflow_step"`
	SubmittedAt         *string  `json:"submitted_at,omitempty"`
	DecidedAt           *string  `json:"decided_at,omitempty"`
	DecidedBy           *string  `json:"decided_by,omitempty"`
	DecisionRemarks     *string  `json:"decision_remarks,omitempty"`
	CancelledAt         *string  `json:"cancelled_at,omitempty"`
	CancellationReason  *string  `json:"cancellation_reason,omitempty"`
}

func ToLeaveRequestResponse(r *LeaveRequest) LeaveRequestResponse {
	resp := LeaveRequestResponse{
		ID:                  r.ID.String(),
		RequestNumber:       r.RequestNumber,
		UserID:              r.UserID.String(),
		LeaveTypeID:         r.LeaveTypeID.String(),
		StartDate:           r.StartDate.Format("2006-01-02"),
		EndDate:             r.EndDate.Format("2006-01-02"),
		TotalDays:           r.TotalDays.InexactFloat64(),
		Reason:              r.Reason,
		Status:              string(r.Status),
		CurrentWorkflowStep: r.CurrentWorkflowStep,
		DecisionRemarks:     r.DecisionRemarks,
		CancellationReason:  r.CancellationReason,
	}
	if r.PolicyID != nil {
		id := r.PolicyID.String()
		resp.PolicyID = &id
	}
	resp.SubmittedAt = formatTimePtr(r.SubmittedAt)
	resp.DecidedAt = formatTimePtr(r.DecidedAt)
	resp.CancelledAt = formatTimePtr(r.CancelledAt)
	if r.DecidedBy != nil {
		id := r.DecidedBy.String()
		resp.DecidedBy = &id
	}
	return resp
}

type BalanceResponse struct {
	ID             string  `json:"id"`
	UserID         string  `json:"user_id"`
	LeaveTypeID    string  `json:"leave_type_id"`
	PeriodStart    string  `json:"period_start"`
	PeriodEnd      string  `json:"period_end"`
	OpeningBalance float64 `json:"opening_balance"`
	Accrued        float64 `json:"accrued"`
	Used           float64 `json:"used"`
	Pending        float64 `json:"pending"`
	Adjusted       float64 `json:"adjusted"`
	CarriedForward float64 `json:"carried_forward"`
	Encashed       float64 `json:"encashed"`
	Expired        float64 `json:"expired"`
	Available      float64 `json:"available"`
}

func ToBalanceResponse(b *LeaveBalance) BalanceResponse {
	return BalanceResponse{
		ID:             b.ID.String(),
		UserID:         b.UserID.String(),
		LeaveTypeID:    b.LeaveTypeID.String(),
		PeriodStart:    b.PeriodStart.Format("2006-01-02"),
		PeriodEnd:      b.PeriodEnd.Format("2006-01-02"),
		OpeningBalance: b.OpeningBalance.InexactFloat64(),
		Accrued:        b.Accrued.InexactFloat64(),
		Used:           b.Used.InexactFloat64(),
		Pending:        b.Pending.InexactFloat64(),
		Adjusted:       b.Adjusted.InexactFloat64(),
		CarriedForward: b.CarriedForward.InexactFloat64(),
		Encashed:       b.Encashed.InexactFloat64(),
		Expired:        b.Expired.InexactFloat64(),
		Available:      b.Available().InexactFloat64(),
	}
}

type CommentResponse struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Body       string `json:"body"`
	IsInternal bool   `json:"is_internal"`
	CreatedAt  string `json:"created_at"`
}

func ToCommentResponse(c *Comment) CommentResponse {
	return CommentResponse{
		ID:         c.ID.String(),
		UserID:     c.UserID.String(),
		Body:       c.Body,
		IsInternal: c.IsInternal,
		CreatedAt:  c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
