package models

import "time"

// DeletedUserSentinel replaces personal data on deleted accounts.
const DeletedUserSentinel = "Utilisateur supprimé"

// UserStatus filters user listings by the active flag.
type UserStatus string

const (
	UserStatusAll      UserStatus = "all"
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// User represents an application account stored in the users table.
type User struct {
	ID                 int64        `db:"id" json:"id"`
	Email              string       `db:"email" json:"email"`
	Name               string       `db:"name" json:"name"`
	PasswordHash       string       `db:"password_hash" json:"-"`
	RoleID             int64        `db:"role_id" json:"role_id"`
	IsActive           bool         `db:"is_active" json:"is_active"`
	ResetCode          *string      `db:"reset_code" json:"-"`
	ResetCodeExpiresAt *time.Time   `db:"reset_code_expires_at" json:"-"`
	DeletedAt          *time.Time   `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt          time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time    `db:"updated_at" json:"updated_at"`
	Role               *RoleSummary `db:"-" json:"role,omitempty"`
}

// RoleSummary is the role information embedded in user payloads.
type RoleSummary struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
	Level int    `json:"level"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Status    UserStatus
	RoleID    *int64
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// NewPagination normalises page inputs the same way repositories do.
func NewPagination(page, pageSize, total int) *Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return &Pagination{Page: page, PageSize: pageSize, TotalCount: total}
}
