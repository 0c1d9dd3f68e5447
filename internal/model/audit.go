// internal/model/audit.go
package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

func init() {
	registerTenantScoped("audit_events")
}

// AuditEvent is the durable record of an administrative action within a
// tenant. Rows are written by the event consumer, never directly by handlers.
type AuditEvent struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	TenantID  uuid.UUID       `json:"tenant_id" db:"tenant_id"`
	Action    string          `json:"action" db:"action"`
	ActorID   *uuid.UUID      `json:"actor_id,omitempty" db:"actor_id"`
	Payload   json.RawMessage `json:"payload" db:"payload"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
