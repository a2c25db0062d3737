package postgresql

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/lms-backend-go/internal/pkg/database"
	"github.com/google/uuid"
)

type auditLogRepositoryImpl struct {
	db *database.DB
}

func NewAuditLogRepository(db *database.DB) audit.Repository {
	return &auditLogRepositoryImpl{db: db}
}

// Append inserts one immutable event. The timestamp is assigned by the
// database server; there is no update or delete path for audit rows.
func (r *auditLogRepositoryImpl) Append(ctx context.Context, entry audit.Entry, actx audit.Context) (audit.Log, error) {
	q := GetQuerier(ctx, r.db)

	oldValues, err := marshalNullable(entry.OldValues)
	if err != nil {
		return audit.Log{}, fmt.Errorf("marshal old_values: %w", err)
	}
	newValues, err := marshalNullable(entry.NewValues)
	if err != nil {
		return audit.Log{}, fmt.Errorf("marshal new_values: %w", err)
	}
	changes, err := marshalNullable(entry.Changes)
	if err != nil {
		return audit.Log{}, fmt.Errorf("marshal changes: %w", err)
	}
	mergedExtra := mergeExtra(entry.Extra, actx.Extra)
	extra, err := marshalNullable(mergedExtra)
	if err != nil {
		return audit.Log{}, fmt.Errorf("marshal extra: %w", err)
	}

	log := audit.Log{
		ID:             uuid.New(),
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
		Extra:          mergedExtra,
		RequestID:      actx.RequestID,
		SessionID:      actx.SessionID,
	}

	query := `
		INSERT INTO audit_logs (
			id, actor_id, actor_type, actor_ip, actor_user_agent,
			action, entity_type, entity_id, organization_id,
			old_values, new_values, changes,
			description, extra, request_id, session_id, timestamp
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12,
			$13, $14, $15, $16, NOW()
		) RETURNING timestamp
	`

	err = q.QueryRow(ctx, query,
		log.ID, log.ActorID, log.ActorType, nullableString(log.ActorIP), nullableString(log.ActorUserAgent),
		log.Action, log.EntityType, log.EntityID, log.OrganizationID,
		oldValues, newValues, changes,
		nullableString(log.Description), extra, nullableString(log.RequestID), nullableString(log.SessionID),
	).Scan(&log.Timestamp)
	if err != nil {
		return audit.Log{}, fmt.Errorf("append audit log: %w", err)
	}

	return log, nil
}

// ListForEntity implements audit.Repository, newest first.
func (r *auditLogRepositoryImpl) ListForEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit, offset int) ([]audit.Log, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, timestamp, actor_id, actor_type, actor_ip, actor_user_agent,
			   action, entity_type, entity_id, organization_id,
			   old_values, new_values, changes,
			   description, extra, request_id, session_id
		FROM audit_logs
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY timestamp DESC, id DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := q.Query(ctx, query, entityType, entityID, clampLimit(limit), offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []audit.Log
	for rows.Next() {
		var (
			log                            audit.Log
			actorIP, actorUA, desc         *string
			reqID, sessID                  *string
			oldValues, newValues, changes  []byte
			extra                          []byte
		)
		err := rows.Scan(
			&log.ID, &log.Timestamp, &log.ActorID, &log.ActorType, &actorIP, &actorUA,
			&log.Action, &log.EntityType, &log.EntityID, &log.OrganizationID,
			&oldValues, &newValues, &changes,
			&desc, &extra, &reqID, &sessID,
		)
		if err != nil {
			return nil, err
		}

		log.ActorIP = derefString(actorIP)
		log.ActorUserAgent = derefString(actorUA)
		log.Description = derefString(desc)
		log.RequestID = derefString(reqID)
		log.SessionID = derefString(sessID)

		if err := unmarshalNullable(oldValues, &log.OldValues); err != nil {
			return nil, err
		}
		if err := unmarshalNullable(newValues, &log.NewValues); err != nil {
			return nil, err
		}
		if err := unmarshalNullable(changes, &log.Changes); err != nil {
			return nil, err
		}
		if err := unmarshalNullable(extra, &log.Extra); err != nil {
			return nil, err
		}

		logs = append(logs, log)
	}

	return logs, rows.Err()
}

func marshalNullable(v any) ([]byte, error) {
	switch vv := v.(type) {
	case audit.Values:
		if vv == nil {
			return nil, nil
		}
	case map[string]audit.Change:
		if vv == nil {
			return nil, nil
		}
	case map[string]any:
		if vv == nil {
			return nil, nil
		}
	case nil:
		return nil, nil
	}
	return json.Marshal(v)
}

func unmarshalNullable[T any](data []byte, dst *T) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}

func mergeExtra(entryExtra, ctxExtra map[string]any) map[string]any {
	if len(entryExtra) == 0 && len(ctxExtra) == 0 {
		return nil
	}
	merged := make(map[string]any, len(entryExtra)+len(ctxExtra))
	for k, v := range ctxExtra {
		merged[k] = v
	}
	for k, v := range entryExtra {
		merged[k] = v
	}
	return merged
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
