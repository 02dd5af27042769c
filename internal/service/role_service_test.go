package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Organisation-de-merge/backend-cesizen/internal/models"
	"github.com/Organisation-de-merge/backend-cesizen/internal/repository"
	appErrors "github.com/Organisation-de-merge/backend-cesizen/pkg/errors"
)

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func newRoleFixture(t *testing.T) (*RoleService, *mockDirectory, *models.Role) {
	t.Helper()
	dir := newMockDirectory()
	dir.addRole("Administrateur", 100)
	base := dir.addRole("Utilisateur", 1)
	svc := NewRoleService(dir, dir, NewMetricsService(), nil, nil, RoleConfig{BaseLabel: "Utilisateur", AdminLevel: 100})
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	return svc, dir, base
}

func TestRoleServiceDisableReassignsUsersToBaseRole(t *testing.T) {
	svc, dir, base := newRoleFixture(t)
	ctx := context.Background()

	role, err := svc.Create(ctx, CreateRoleRequest{Label: "Moderateur", Level: intPtr(80)}, models.RequestMeta{ActorID: 1})
	require.NoError(t, err)

	users := dir.userStore()
	first := &models.User{Email: "one@cesizen.fr", Name: "One", RoleID: role.ID, IsActive: true}
	second := &models.User{Email: "two@cesizen.fr", Name: "Two", RoleID: role.ID, IsActive: false}
	require.NoError(t, users.Create(ctx, first))
	require.NoError(t, users.Create(ctx, second))

	disabled, err := svc.Disable(ctx, role.ID, models.RequestMeta{ActorID: 1})
	require.NoError(t, err)
	require.NotNil(t, disabled.DeletedAt)

	for _, id := range []int64{first.ID, second.ID} {
		u, err := users.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, base.ID, u.RoleID)
		assert.Equal(t, "Utilisateur", u.Role.Label)
	}
	remaining, err := dir.UsersByRole(ctx, []int64{role.ID})
	require.NoError(t, err)
	assert.Empty(t, remaining)

	stored, err := dir.FindByID(ctx, role.ID)
	require.NoError(t, err)
	assert.True(t, stored.Deleted())

	last := dir.auditLogs[len(dir.auditLogs)-1]
	assert.Equal(t, models.AuditActionRoleDisable, last.Action)
	assert.Contains(t, string(last.NewValues), `"reassigned_users":2`)
}

func TestRoleServiceDisableBaseRoleForbidden(t *testing.T) {
	for _, label := range []string{"Utilisateur", "utilisateur", "UTILISATEUR", " Utilisateur "} {
		t.Run(label, func(t *testing.T) {
			svc, dir, base := newRoleFixture(t)
			dir.roles[base.ID].Label = label
			dir.addUser("a@b.com", base.ID, true, "")

			_, err := svc.Disable(context.Background(), base.ID, models.RequestMeta{})
			require.Error(t, err)
			assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

			stored, _ := dir.FindByID(context.Background(), base.ID)
			assert.False(t, stored.Deleted())
			assert.Empty(t, dir.auditLogs)
		})
	}
}

func TestRoleServiceDisableAdministrativeRoleForbidden(t *testing.T) {
	svc, _, _ := newRoleFixture(t)

	_, err := svc.Disable(context.Background(), 1, models.RequestMeta{})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestRoleServiceDisableMissingBaseRoleIsInvariantViolation(t *testing.T) {
	svc, dir, base := newRoleFixture(t)
	stamp := time.Now()
	dir.roles[base.ID].DeletedAt = &stamp
	target := dir.addRole("Auteur", 60)
	user := dir.addUser("author@cesizen.fr", target.ID, true, "")

	_, err := svc.Disable(context.Background(), target.ID, models.RequestMeta{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvariant))
	assert.Equal(t, target.ID, dir.users[user.ID].RoleID)
	assert.False(t, dir.roles[target.ID].Deleted())
}

func TestRoleServiceDisableBaseRoleVanishedDuringTransaction(t *testing.T) {
	svc, dir, _ := newRoleFixture(t)
	target := dir.addRole("Auteur", 60)
	dir.disableErr = repository.ErrBaseRoleUnavailable

	_, err := svc.Disable(context.Background(), target.ID, models.RequestMeta{})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvariant))
}

func TestRoleServiceDisableTransactionFailureLeavesNothingVisible(t *testing.T) {
	svc, dir, _ := newRoleFixture(t)
	target := dir.addRole("Auteur", 60)
	user := dir.addUser("author@cesizen.fr", target.ID, true, "")
	dir.disableErr = errors.New("connection reset")

	_, err := svc.Disable(context.Background(), target.ID, models.RequestMeta{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
	assert.Equal(t, target.ID, dir.users[user.ID].RoleID)
	assert.False(t, dir.roles[target.ID].Deleted())
}

func TestRoleServiceDisableNotFound(t *testing.T) {
	svc, _, _ := newRoleFixture(t)

	_, err := svc.Disable(context.Background(), 404, models.RequestMeta{})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestRoleServiceDisableAlreadyDisabledIsNoop(t *testing.T) {
	svc, dir, _ := newRoleFixture(t)
	target := dir.addRole("Auteur", 60)
	stamp := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	dir.roles[target.ID].DeletedAt = &stamp
	dir.disableErr = errors.New("must not be called")

	role, err := svc.Disable(context.Background(), target.ID, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, stamp, *role.DeletedAt)
}

func TestRoleServiceRestoreKeepsReassignedUsers(t *testing.T) {
	svc, dir, base := newRoleFixture(t)
	ctx := context.Background()
	target := dir.addRole("Moderateur", 80)
	user := dir.addUser("mod@cesizen.fr", target.ID, true, "")

	_, err := svc.Disable(ctx, target.ID, models.RequestMeta{})
	require.NoError(t, err)

	restored, err := svc.Restore(ctx, target.ID, models.RequestMeta{})
	require.NoError(t, err)
	assert.Nil(t, restored.DeletedAt)
	assert.False(t, dir.roles[target.ID].Deleted())
	assert.Equal(t, base.ID, dir.users[user.ID].RoleID)
}

func TestRoleServiceListExcludesAdministrativeRole(t *testing.T) {
	svc, dir, base := newRoleFixture(t)
	author := dir.addRole("Auteur", 60)
	stamp := time.Now()
	gone := dir.addRole("Ancien", 20)
	dir.roles[gone.ID].DeletedAt = &stamp
	dir.addUser("a@cesizen.fr", author.ID, true, "secret-hash")
	dir.addUser("b@cesizen.fr", base.ID, false, "")

	all, err := svc.List(context.Background(), models.RoleStatusAll)
	require.NoError(t, err)
	labels := make([]string, 0, len(all))
	for _, r := range all {
		assert.NotEqual(t, 100, r.Level)
		labels = append(labels, r.Label)
	}
	assert.ElementsMatch(t, []string{"Utilisateur", "Auteur", "Ancien"}, labels)

	active, err := svc.List(context.Background(), models.RoleStatusActive)
	require.NoError(t, err)
	assert.Len(t, active, 2)
	for _, r := range active {
		if r.ID == author.ID {
			require.Len(t, r.Users, 1)
			assert.Equal(t, models.RoleUser{ID: 1, Name: "a@cesizen.fr", IsActive: true, RoleID: author.ID}, r.Users[0])
		}
	}

	inactive, err := svc.List(context.Background(), models.RoleStatusInactive)
	require.NoError(t, err)
	require.Len(t, inactive, 1)
	assert.Equal(t, "Ancien", inactive[0].Label)

	_, err = svc.List(context.Background(), models.RoleStatus("deleted"))
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestRoleServiceCreateValidation(t *testing.T) {
	svc, _, _ := newRoleFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateRoleRequest{Label: "  ", Level: intPtr(10)}, models.RequestMeta{})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Create(ctx, CreateRoleRequest{Label: "Coach"}, models.RequestMeta{})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Create(ctx, CreateRoleRequest{Label: "Coach", Level: intPtr(101)}, models.RequestMeta{})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	role, err := svc.Create(ctx, CreateRoleRequest{Label: "Coach", Level: intPtr(0)}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, 0, role.Level)

	_, err = svc.Create(ctx, CreateRoleRequest{Label: "coach", Level: intPtr(5)}, models.RequestMeta{})
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestRoleServiceUpdate(t *testing.T) {
	svc, dir, base := newRoleFixture(t)
	ctx := context.Background()
	author := dir.addRole("Auteur", 60)

	updated, err := svc.Update(ctx, author.ID, UpdateRoleRequest{Level: intPtr(65)}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "Auteur", updated.Label)
	assert.Equal(t, 65, updated.Level)

	updated, err = svc.Update(ctx, author.ID, UpdateRoleRequest{Label: strPtr("Rédacteur")}, models.RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "Rédacteur", updated.Label)

	_, err = svc.Update(ctx, author.ID, UpdateRoleRequest{Label: strPtr("")}, models.RequestMeta{})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Update(ctx, 999, UpdateRoleRequest{Level: intPtr(1)}, models.RequestMeta{})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Update(ctx, base.ID, UpdateRoleRequest{Label: strPtr("Membre")}, models.RequestMeta{})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	_, err = svc.Update(ctx, base.ID, UpdateRoleRequest{Level: intPtr(2)}, models.RequestMeta{})
	assert.NoError(t, err)
}

func TestRoleServiceGetIncludesUsers(t *testing.T) {
	svc, dir, base := newRoleFixture(t)
	dir.addUser("u@cesizen.fr", base.ID, true, "")

	role, err := svc.Get(context.Background(), base.ID)
	require.NoError(t, err)
	require.Len(t, role.Users, 1)
	assert.Equal(t, base.ID, role.Users[0].RoleID)

	_, err = svc.Get(context.Background(), 42)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
