package audit

import "github.com/google/uuid"

// ActorType identifies who (or what) performed an audited action.
type ActorType string

const (
	ActorUser      ActorType = "user"
	ActorSystem    ActorType = "system"
	ActorScheduler ActorType = "scheduler"
)

// Context carries actor identity and request provenance through every
// mutating operation. Handlers build it once per request; engines and
// repositories only pass it along.
type Context struct {
	ActorID        *uuid.UUID
	ActorType      ActorType
	ActorIP        string
	ActorUserAgent string

	OrganizationID *uuid.UUID

	RequestID string
	SessionID string

	Extra map[string]any
}

// SystemContext returns a Context for actions not attributable to a user,
// such as scheduled accrual runs.
func SystemContext(actorType ActorType) Context {
	return Context{ActorType: actorType}
}
