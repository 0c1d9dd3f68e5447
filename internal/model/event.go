// internal/model/event.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// Event actions published to the tenant-events queue.
const (
	ActionTenantCreated = "tenant.created"
	ActionUserCreated   = "user.created"
	ActionRoleChanged   = "user.role_changed"
)

// Event is the wire form of an administrative action. TenantID is nil for
// actions that happen before any tenant exists (bootstrap user registration);
// such events are not auditable and consumers skip them.
type Event struct {
	Action   string     `json:"action"`
	TenantID *uuid.UUID `json:"tenant_id,omitempty"`
	ActorID  *uuid.UUID `json:"actor_id,omitempty"`
	Subject  uuid.UUID  `json:"subject"`
	Detail   string     `json:"detail,omitempty"`
	At       time.Time  `json:"at"`
}
