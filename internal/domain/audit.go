package domain

import "time"

// Audit actions recorded on the write path.
const (
	AuditActionCreate = "create"
	AuditActionUpdate = "update"
	AuditActionDelete = "delete"
)

// AuditEvent is one entry on the citizenly:audit Redis stream. Every
// mutation of residents, households and migrations publishes one.
type AuditEvent struct {
	Action       string            `json:"action"`        // create/update/delete
	ResourceType string            `json:"resource_type"` // "resident", "household", "resident_migration"
	ResourceID   string            `json:"resource_id"`
	ActorID      string            `json:"actor_id"`      // user_profiles.id of the operator
	BarangayCode string            `json:"barangay_code"` // where the resource lives
	At           time.Time         `json:"at"`
	Details      map[string]string `json:"details,omitempty"`
}
