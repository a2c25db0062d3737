package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/user"
	userengine "github.com/cmlabs-hris/lms-backend-go/internal/engine/user"
	"github.com/cmlabs-hris/lms-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/lms-backend-go/internal/handler/http/response"
	"github.com/google/uuid"
)

type UserHandler interface {
	Create(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	SetManager(w http.ResponseWriter, r *http.Request)
}

type UserHandlerImpl struct {
	engine *userengine.Engine
}

func NewUserHandler(engine *userengine.Engine) UserHandler {
	return &UserHandlerImpl{engine: engine}
}

// Create implements UserHandler.
func (h *UserHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	var req user.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("CreateUser decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	// Users are always created inside the caller's organization.
	req.OrganizationID = actor.OrganizationID.String()

	created, err := h.engine.CreateUser(r.Context(), req, actor.AuditContext(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "User created", user.ToUserResponse(&created.User))
}

// Get implements UserHandler.
func (h *UserHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	u, err := h.engine.GetUser(r.Context(), userID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, user.ToUserResponse(u))
}

// List implements UserHandler.
func (h *UserHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	limit, offset := parsePagination(r)
	users, err := h.engine.ListUsers(r.Context(), actor.OrganizationID, limit, offset)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	items := make([]user.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, user.ToUserResponse(&users[i]))
	}
	response.Success(w, items)
}

// SetManager implements UserHandler.
func (h *UserHandlerImpl) SetManager(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	userID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var req user.SetManagerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("SetManager decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	var managerID *uuid.UUID
	if req.ManagerID != nil {
		id, err := uuid.Parse(*req.ManagerID)
		if err != nil {
			response.BadRequest(w, "Invalid manager_id", nil)
			return
		}
		managerID = &id
	}

	updated, err := h.engine.SetManager(r.Context(), userID, managerID, actor.AuditContext(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Manager updated", user.ToUserResponse(updated))
}
