package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Organisation-de-merge/backend-cesizen/internal/models"
	"github.com/Organisation-de-merge/backend-cesizen/internal/repository"
	appErrors "github.com/Organisation-de-merge/backend-cesizen/pkg/errors"
)

// mockDirectory keeps roles and users in memory and satisfies the role, user
// and auth repository interfaces at once, so reassignment is observable.
type mockDirectory struct {
	roles      map[int64]*models.Role
	users      map[int64]*models.User
	nextRoleID int64
	nextUserID int64
	auditLogs  []*models.AuditLog

	disableErr error
	listErr    error
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{
		roles: make(map[int64]*models.Role),
		users: make(map[int64]*models.User),
	}
}

func (m *mockDirectory) addRole(label string, level int) *models.Role {
	m.nextRoleID++
	role := &models.Role{ID: m.nextRoleID, Label: label, Level: level}
	m.roles[role.ID] = role
	return role
}

func (m *mockDirectory) addUser(email string, roleID int64, active bool, hash string) *models.User {
	m.nextUserID++
	user := &models.User{ID: m.nextUserID, Email: email, Name: email, RoleID: roleID, IsActive: active, PasswordHash: hash}
	m.users[user.ID] = user
	return user
}

func (m *mockDirectory) withRole(u models.User) *models.User {
	if role, ok := m.roles[u.RoleID]; ok {
		u.Role = &models.RoleSummary{ID: role.ID, Label: role.Label, Level: role.Level}
	}
	return &u
}

func (m *mockDirectory) sortedRoleIDs() []int64 {
	ids := make([]int64, 0, len(m.roles))
	for id := range m.roles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *mockDirectory) sortedUserIDs() []int64 {
	ids := make([]int64, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// roles

func (m *mockDirectory) List(ctx context.Context, filter models.RoleFilter) ([]models.Role, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var roles []models.Role
	for _, id := range m.sortedRoleIDs() {
		role := m.roles[id]
		if filter.ExcludeLevel > 0 && role.Level == filter.ExcludeLevel {
			continue
		}
		if filter.Status == models.RoleStatusActive && role.Deleted() {
			continue
		}
		if filter.Status == models.RoleStatusInactive && !role.Deleted() {
			continue
		}
		roles = append(roles, *role)
	}
	return roles, nil
}

func (m *mockDirectory) FindByID(ctx context.Context, id int64) (*models.Role, error) {
	if role, ok := m.roles[id]; ok {
		copy := *role
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDirectory) FindActiveByLabel(ctx context.Context, label string) (*models.Role, error) {
	for _, id := range m.sortedRoleIDs() {
		role := m.roles[id]
		if strings.EqualFold(role.Label, label) && !role.Deleted() {
			copy := *role
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockDirectory) UsersByRole(ctx context.Context, roleIDs []int64) ([]models.RoleUser, error) {
	wanted := make(map[int64]bool, len(roleIDs))
	for _, id := range roleIDs {
		wanted[id] = true
	}
	var out []models.RoleUser
	for _, id := range m.sortedUserIDs() {
		u := m.users[id]
		if u.DeletedAt == nil && wanted[u.RoleID] {
			out = append(out, models.RoleUser{ID: u.ID, Name: u.Name, IsActive: u.IsActive, RoleID: u.RoleID})
		}
	}
	return out, nil
}

func (m *mockDirectory) Create(ctx context.Context, role *models.Role) error {
	for _, existing := range m.roles {
		if strings.EqualFold(existing.Label, role.Label) {
			return fmt.Errorf("create role: %w", appErrors.Clone(appErrors.ErrConflict, "resource already exists"))
		}
	}
	m.nextRoleID++
	role.ID = m.nextRoleID
	copy := *role
	m.roles[role.ID] = &copy
	return nil
}

func (m *mockDirectory) Update(ctx context.Context, role *models.Role) error {
	if _, ok := m.roles[role.ID]; !ok {
		return sql.ErrNoRows
	}
	copy := *role
	copy.Users = nil
	m.roles[role.ID] = &copy
	return nil
}

func (m *mockDirectory) Restore(ctx context.Context, id int64, at time.Time) error {
	role, ok := m.roles[id]
	if !ok {
		return sql.ErrNoRows
	}
	role.DeletedAt = nil
	role.UpdatedAt = at
	return nil
}

func (m *mockDirectory) DisableAndReassign(ctx context.Context, roleID, baseRoleID int64, at time.Time) (int64, error) {
	if m.disableErr != nil {
		return 0, m.disableErr
	}
	role, ok := m.roles[roleID]
	if !ok {
		return 0, sql.ErrNoRows
	}
	base, ok := m.roles[baseRoleID]
	if !ok || base.Deleted() {
		return 0, repository.ErrBaseRoleUnavailable
	}
	var moved int64
	for _, u := range m.users {
		if u.RoleID == roleID {
			u.RoleID = baseRoleID
			moved++
		}
	}
	stamp := at
	role.DeletedAt = &stamp
	role.UpdatedAt = at
	return moved, nil
}

// audit

func (m *mockDirectory) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

// users are exposed through a thin view so method names do not clash with roles.

type mockUserStore struct {
	*mockDirectory
}

func (m *mockDirectory) userStore() *mockUserStore {
	return &mockUserStore{mockDirectory: m}
}

func (m *mockUserStore) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	var users []models.User
	for _, id := range m.sortedUserIDs() {
		u := m.users[id]
		if u.DeletedAt != nil {
			continue
		}
		if filter.Status == models.UserStatusActive && !u.IsActive {
			continue
		}
		if filter.Status == models.UserStatusInactive && u.IsActive {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(u.Name+" "+u.Email), strings.ToLower(filter.Search)) {
			continue
		}
		users = append(users, *m.withRole(*u))
	}
	return users, len(users), nil
}

func (m *mockUserStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if u, ok := m.users[id]; ok && u.DeletedAt == nil {
		return m.withRole(*u), nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, id := range m.sortedUserIDs() {
		u := m.users[id]
		if u.DeletedAt == nil && strings.EqualFold(u.Email, email) {
			return m.withRole(*u), nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserStore) FindByResetCode(ctx context.Context, code string, now time.Time) (*models.User, error) {
	for _, id := range m.sortedUserIDs() {
		u := m.users[id]
		if u.DeletedAt == nil && u.ResetCode != nil && *u.ResetCode == code && u.ResetCodeExpiresAt != nil && u.ResetCodeExpiresAt.After(now) {
			return m.withRole(*u), nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserStore) activeRole(roleID int64) error {
	role, ok := m.roles[roleID]
	if !ok || role.Deleted() {
		return repository.ErrRoleUnavailable
	}
	return nil
}

func (m *mockUserStore) emailTaken(email string, except int64) bool {
	for _, u := range m.users {
		if u.ID != except && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (m *mockUserStore) Create(ctx context.Context, user *models.User) error {
	if err := m.activeRole(user.RoleID); err != nil {
		return err
	}
	if m.emailTaken(user.Email, 0) {
		return fmt.Errorf("create user: %w", appErrors.Clone(appErrors.ErrConflict, "resource already exists"))
	}
	m.nextUserID++
	user.ID = m.nextUserID
	copy := *user
	copy.Role = nil
	m.users[user.ID] = &copy
	return nil
}

func (m *mockUserStore) Update(ctx context.Context, user *models.User) error {
	if err := m.activeRole(user.RoleID); err != nil {
		return err
	}
	if _, ok := m.users[user.ID]; !ok {
		return sql.ErrNoRows
	}
	if m.emailTaken(user.Email, user.ID) {
		return fmt.Errorf("update user: %w", appErrors.Clone(appErrors.ErrConflict, "resource already exists"))
	}
	copy := *user
	copy.Role = nil
	m.users[user.ID] = &copy
	return nil
}

func (m *mockUserStore) UpdatePassword(ctx context.Context, id int64, passwordHash string, updatedAt time.Time) error {
	u, ok := m.users[id]
	if !ok || u.DeletedAt != nil {
		return sql.ErrNoRows
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = updatedAt
	return nil
}

func (m *mockUserStore) SetActive(ctx context.Context, id int64, active bool, updatedAt time.Time) error {
	u, ok := m.users[id]
	if !ok || u.DeletedAt != nil {
		return sql.ErrNoRows
	}
	u.IsActive = active
	u.UpdatedAt = updatedAt
	return nil
}

func (m *mockUserStore) Anonymize(ctx context.Context, id int64, at time.Time) error {
	u, ok := m.users[id]
	if !ok || u.DeletedAt != nil || u.IsActive {
		return sql.ErrNoRows
	}
	u.Name = models.DeletedUserSentinel
	u.Email = fmt.Sprintf("%s#%d", models.DeletedUserSentinel, id)
	u.PasswordHash = models.DeletedUserSentinel
	u.ResetCode = nil
	u.ResetCodeExpiresAt = nil
	stamp := at
	u.DeletedAt = &stamp
	return nil
}

func (m *mockUserStore) SetResetCode(ctx context.Context, id int64, code string, expiresAt time.Time) error {
	u, ok := m.users[id]
	if !ok || u.DeletedAt != nil {
		return sql.ErrNoRows
	}
	c := code
	exp := expiresAt
	u.ResetCode = &c
	u.ResetCodeExpiresAt = &exp
	return nil
}

func (m *mockUserStore) ResetCodeInUse(ctx context.Context, code string, now time.Time) (bool, error) {
	_, err := m.FindByResetCode(ctx, code, now)
	return err == nil, nil
}

func (m *mockUserStore) ConsumeResetCode(ctx context.Context, id int64, code, passwordHash string, now time.Time) error {
	u, ok := m.users[id]
	if !ok || u.DeletedAt != nil || u.ResetCode == nil || *u.ResetCode != code || u.ResetCodeExpiresAt == nil || !u.ResetCodeExpiresAt.After(now) {
		return sql.ErrNoRows
	}
	u.PasswordHash = passwordHash
	u.ResetCode = nil
	u.ResetCodeExpiresAt = nil
	return nil
}
