package memory

import (
	"context"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/audit"
	"github.com/google/uuid"
)

type auditLogRepository struct {
	store *Store
}

func NewAuditLogRepository(store *Store) audit.Repository {
	return &auditLogRepository{store: store}
}

func (r *auditLogRepository) Append(ctx context.Context, entry audit.Entry, actx audit.Context) (audit.Log, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	log := audit.Log{
		ID:             uuid.New(),
		Timestamp:      s.now(),
		ActorID:        actx.ActorID,
		ActorType:      actx.ActorType,
		ActorIP:        actx.ActorIP,
		ActorUserAgent: actx.ActorUserAgent,
		Action:         entry.Action,
		EntityType:     entry.EntityType,
		EntityID:       entry.EntityID,
		OrganizationID: actx.OrganizationID,
		OldValues:      entry.OldValues,
		NewValues:      entry.NewValues,
		Changes:        entry.Changes,
		Description:    entry.Description,
		Extra:          entry.Extra,
		RequestID:      actx.RequestID,
		SessionID:      actx.SessionID,
	}
	s.logs = append(s.logs, log)
	return log, nil
}

// ListForEntity returns newest first, preserving append order within equal
// timestamps.
func (r *auditLogRepository) ListForEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit, offset int) ([]audit.Log, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []audit.Log
	for i := len(s.logs) - 1; i >= 0; i-- {
		log := s.logs[i]
		if log.EntityType == entityType && log.EntityID == entityID {
			matched = append(matched, log)
		}
	}

	limit = clampLimit(limit)
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// AllLogs exposes the full event list for test assertions.
func (s *Store) AllLogs() []audit.Log {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audit.Log(nil), s.logs...)
}
