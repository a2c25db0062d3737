package http

import (
	"net/http"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/lms-backend-go/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type AuditHandler interface {
	ListForEntity(w http.ResponseWriter, r *http.Request)
}

type AuditHandlerImpl struct {
	logs audit.Repository
}

func NewAuditHandler(logs audit.Repository) AuditHandler {
	return &AuditHandlerImpl{logs: logs}
}

// ListForEntity returns the audit trail of one entity, newest first.
func (h *AuditHandlerImpl) ListForEntity(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	if entityType == "" {
		response.BadRequest(w, "Entity type is required", nil)
		return
	}

	entityID, ok := parseIDParam(w, r, "entityID")
	if !ok {
		return
	}

	limit, offset := parsePagination(r)
	logs, err := h.logs.ListForEntity(r.Context(), entityType, entityID, limit, offset)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	items := make([]audit.LogResponse, 0, len(logs))
	for i := range logs {
		items = append(items, audit.ToLogResponse(&logs[i]))
	}
	response.Success(w, items)
}
