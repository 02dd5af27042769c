package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin          = "LOGIN"
	AuditActionRegister       = "REGISTER"
	AuditActionPasswordChange = "PASSWORD_CHANGE"
	AuditActionPasswordReset  = "PASSWORD_RESET"
	AuditActionUserCreate     = "USER_CREATE"
	AuditActionUserUpdate     = "USER_UPDATE"
	AuditActionUserDisable    = "USER_DISABLE"
	AuditActionUserRestore    = "USER_RESTORE"
	AuditActionUserDelete     = "USER_DELETE"
	AuditActionRoleCreate     = "ROLE_CREATE"
	AuditActionRoleUpdate     = "ROLE_UPDATE"
	AuditActionRoleDisable    = "ROLE_DISABLE"
	AuditActionRoleRestore    = "ROLE_RESTORE"

	AuditActionContentCreate = "CONTENT_CREATE"
	AuditActionContentUpdate = "CONTENT_UPDATE"
	AuditActionContentDelete = "CONTENT_DELETE"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         int64     `db:"id" json:"id"`
	ActorID    *int64    `db:"actor_id" json:"actor_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *int64    `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// RequestMeta carries caller details recorded alongside audit entries.
type RequestMeta struct {
	ActorID   int64
	IP        string
	UserAgent string
}
