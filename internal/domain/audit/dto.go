package audit

import "time"

type LogResponse struct {
	ID             string            `json:"id"`
	Timestamp      string            `json:"timestamp"`
	ActorID        *string           `json:"actor_id,omitempty"`
	ActorType      string            `json:"actor_type"`
	Action         string            `json:"action"`
	EntityType     string            `json:"entity_type"`
	EntityID       string            `json:"entity_id"`
	OrganizationID *string           `json:"organization_id,omitempty"`
	OldValues      Values            `json:"old_values,omitempty"`
	NewValues      Values            `json:"new_values,omitempty"`
	Changes        map[string]Change `json:"changes,omitempty"`
	Description    string            `json:"description,omitempty"`
	RequestID      string            `json:"request_id,omitempty"`
}

func ToLogResponse(l *Log) LogResponse {
	resp := LogResponse{
		ID:          l.ID.String(),
		Timestamp:   l.Timestamp.UTC().Format(time.RFC3339),
		ActorType:   string(l.ActorType),
		Action:      string(l.Action),
		EntityType:  l.EntityType,
		EntityID:    l.EntityID.String(),
		OldValues:   l.OldValues,
		NewValues:   l.NewValues,
		Changes:     l.Changes,
		Description: l.Description,
		RequestID:   l.RequestID,
	}
	if l.ActorID != nil {
		id := l.ActorID.String()
		resp.ActorID = &id
	}
	if l.OrganizationID != nil {
		id := l.OrganizationID.String()
		resp.OrganizationID = &id
	}
	return resp
}
