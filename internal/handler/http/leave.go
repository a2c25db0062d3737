package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/leave"
	leaveengine "github.com/cmlabs-hris/lms-backend-go/internal/engine/leave"
	"github.com/cmlabs-hris/lms-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/lms-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/lms-backend-go/internal/pkg/database"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type LeaveHandler interface {
	CreateRequest(w http.ResponseWriter, r *http.Request)
	SubmitRequest(w http.ResponseWriter, r *http.Request)
	GetRequest(w http.ResponseWriter, r *http.Request)
	ListRequests(w http.ResponseWriter, r *http.Request)
	GetMyRequests(w http.ResponseWriter, r *http.Request)
	WithdrawRequest(w http.ResponseWriter, r *http.Request)
	DeleteRequest(w http.ResponseWriter, r *http.Request)

	AddComment(w http.ResponseWriter, r *http.Request)
	ListComments(w http.ResponseWriter, r *http.Request)
	ListDates(w http.ResponseWriter, r *http.Request)

	GetMyBalances(w http.ResponseWriter, r *http.Request)
	GetUserBalances(w http.ResponseWriter, r *http.Request)
}

type LeaveHandlerImpl struct {
	engine *leaveengine.Engine
}

func NewLeaveHandler(engine *leaveengine.Engine) LeaveHandler {
	return &LeaveHandlerImpl{engine: engine}
}

// CreateRequest implements LeaveHandler.
func (h *LeaveHandlerImpl) CreateRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	var req leave.CreateLeaveRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("CreateRequest decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	// Employees file their own requests.
	if req.UserID == "" {
		req.UserID = actor.UserID.String()
	}

	created, err := h.engine.CreateLeaveRequest(r.Context(), req, actor.AuditContext(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Leave request created", leave.ToLeaveRequestResponse(&created.LeaveRequest))
}

// SubmitRequest implements LeaveHandler.
func (h *LeaveHandlerImpl) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	requestID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	submitted, err := h.engine.Submit(r.Context(), requestID, actor.AuditContext(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Leave request submitted", leave.ToLeaveRequestResponse(submitted))
}

// GetRequest implements LeaveHandler.
func (h *LeaveHandlerImpl) GetRequest(w http.ResponseWriter, r *http.Request) {
	requestID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	req, err := h.engine.GetLeaveRequest(r.Context(), requestID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, leave.ToLeaveRequestResponse(req))
}

// ListRequests implements LeaveHandler.
func (h *LeaveHandlerImpl) ListRequests(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	filter := leave.RequestFilter{OrganizationID: &actor.OrganizationID}

	if v := r.URL.Query().Get("user_id"); v != "" {
		userID, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(w, "Invalid user_id", nil)
			return
		}
		filter.UserID = &userID
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := leave.RequestStatus(v)
		filter.Status = &status
	}
	filter.Limit, filter.Offset = parsePagination(r)

	h.listWithMeta(w, r, filter)
}

// GetMyRequests implements LeaveHandler.
func (h *LeaveHandlerImpl) GetMyRequests(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	filter := leave.RequestFilter{
		OrganizationID: &actor.OrganizationID,
		UserID:         &actor.UserID,
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := leave.RequestStatus(v)
		filter.Status = &status
	}
	filter.Limit, filter.Offset = parsePagination(r)

	h.listWithMeta(w, r, filter)
}

func (h *LeaveHandlerImpl) listWithMeta(w http.ResponseWriter, r *http.Request, filter leave.RequestFilter) {
	requests, err := h.engine.ListLeaveRequests(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	total, err := h.engine.CountLeaveRequests(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	items := make([]leave.LeaveRequestResponse, 0, len(requests))
	for i := range requests {
		items = append(items, leave.ToLeaveRequestResponse(&requests[i]))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = database.MaxQueryLimit
	}
	response.SuccessWithMeta(w, items, &response.Meta{
		Page:       filter.Offset/limit + 1,
		Limit:      limit,
		TotalItems: total,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	})
}

// WithdrawRequest implements LeaveHandler.
func (h *LeaveHandlerImpl) WithdrawRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	requestID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var req leave.WithdrawRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Error("WithdrawRequest decode error", "error", err)
			response.BadRequest(w, "Invalid request format", nil)
			return
		}
	}

	result, err := h.engine.WithdrawRequest(r.Context(), requestID, actor.UserID, req.Reason, actor.AuditContext(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Leave request withdrawn", toWorkflowResultResponse(result))
}

// DeleteRequest implements LeaveHandler. Only drafts can be deleted.
func (h *LeaveHandlerImpl) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	requestID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.engine.DeleteDraft(r.Context(), requestID, actor.UserID, actor.AuditContext(r)); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Leave request deleted", nil)
}

// AddComment implements LeaveHandler.
func (h *LeaveHandlerImpl) AddComment(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	requestID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var req leave.AddCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("AddComment decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	comment, err := h.engine.AddComment(r.Context(), requestID, actor.UserID, req, actor.AuditContext(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Comment added", leave.ToCommentResponse(comment))
}

// ListComments implements LeaveHandler.
func (h *LeaveHandlerImpl) ListComments(w http.ResponseWriter, r *http.Request) {
	requestID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	comments, err := h.engine.ListComments(r.Context(), requestID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	items := make([]leave.CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, leave.ToCommentResponse(&comments[i]))
	}
	response.Success(w, items)
}

// ListDates implements LeaveHandler.
func (h *LeaveHandlerImpl) ListDates(w http.ResponseWriter, r *http.Request) {
	requestID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	dates, err := h.engine.ListRequestDates(r.Context(), requestID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	type dateResponse struct {
		Date      string  `json:"date"`
		DayValue  float64 `json:"day_value"`
		IsWeekend bool    `json:"is_weekend"`
		IsHoliday bool    `json:"is_holiday"`
	}
	items := make([]dateResponse, 0, len(dates))
	for _, d := range dates {
		items = append(items, dateResponse{
			Date:      d.Date.Format("2006-01-02"),
			DayValue:  d.DayValue.InexactFloat64(),
			IsWeekend: d.IsWeekend,
			IsHoliday: d.IsHoliday,
		})
	}
	response.Success(w, items)
}

// GetMyBalances implements LeaveHandler.
func (h *LeaveHandlerImpl) GetMyBalances(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}
	h.writeBalances(w, r, actor.UserID)
}

// GetUserBalances implements LeaveHandler.
func (h *LeaveHandlerImpl) GetUserBalances(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	h.writeBalances(w, r, userID)
}

func (h *LeaveHandlerImpl) writeBalances(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	balances, err := h.engine.GetLeaveBalances(r.Context(), userID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	items := make([]leave.BalanceResponse, 0, len(balances))
	for i := range balances {
		items = append(items, leave.ToBalanceResponse(&balances[i]))
	}
	response.Success(w, items)
}

func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		response.BadRequest(w, "Invalid "+name, nil)
		return uuid.Nil, false
	}
	return id, true
}

func parsePagination(r *http.Request) (limit, offset int) {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
