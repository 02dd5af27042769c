package models

import "time"

// RoleStatus filters role listings by soft-delete state.
type RoleStatus string

const (
	RoleStatusAll      RoleStatus = "all"
	RoleStatusActive   RoleStatus = "active"
	RoleStatusInactive RoleStatus = "inactive"
)

// Role is a named permission tier. Higher levels grant more access.
type Role struct {
	ID        int64      `db:"id" json:"id"`
	Label     string     `db:"label" json:"label"`
	Level     int        `db:"level" json:"level"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	Users     []RoleUser `db:"-" json:"users,omitempty"`
}

// Deleted reports whether the role carries a soft-delete marker.
func (r *Role) Deleted() bool {
	return r != nil && r.DeletedAt != nil
}

// RoleUser is the credential-free projection of a user referencing a role.
type RoleUser struct {
	ID       int64  `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	IsActive bool   `db:"is_active" json:"is_active"`
	RoleID   int64  `db:"role_id" json:"role_id"`
}

// RoleFilter captures listing criteria for roles.
type RoleFilter struct {
	Status       RoleStatus
	ExcludeLevel int
}
