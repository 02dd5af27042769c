package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Organisation-de-merge/backend-cesizen/internal/models"
	appErrors "github.com/Organisation-de-merge/backend-cesizen/pkg/errors"
)

var userRowColumns = []string{"id", "email", "name", "password_hash", "role_id", "is_active", "reset_code", "reset_code_expires_at", "deleted_at", "created_at", "updated_at", "role_label", "role_level"}

func TestUserRepositoryFindByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(userRowColumns).
		AddRow(1, "user@cesizen.fr", "hash", "User", 4, true, nil, nil, nil, now, now, "Utilisateur", 1)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users u JOIN roles r ON r.id = u.role_id WHERE LOWER(u.email) = LOWER($1) AND u.deleted_at IS NULL LIMIT 1")).
		WithArgs("USER@cesizen.fr").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "USER@cesizen.fr")
	require.NoError(t, err)
	assert.Equal(t, "user@cesizen.fr", user.Email)
	require.NotNil(t, user.Role)
	assert.Equal(t, "Utilisateur", user.Role.Label)
	assert.Equal(t, 1, user.Role.Level)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindByResetCode(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now().UTC()
	code := "123456"
	expires := now.Add(10 * time.Minute)
	mock.ExpectQuery(regexp.QuoteMeta("u.reset_code = $1 AND u.reset_code_expires_at > $2")).
		WithArgs(code, now).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(5, "a@b.com", "A", "hash", 4, true, code, expires, nil, now, now, "Utilisateur", 1))

	user, err := repo.FindByResetCode(context.Background(), code, now)
	require.NoError(t, err)
	require.NotNil(t, user.ResetCode)
	assert.Equal(t, code, *user.ResetCode)
}

func TestUserRepositoryList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users u JOIN roles r ON r.id = u.role_id WHERE u.deleted_at IS NULL AND u.is_active = FALSE AND (LOWER(u.email) LIKE $1 OR LOWER(u.name) LIKE $1) ORDER BY u.created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("%ali%").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(1, "alice@cesizen.fr", "hash", "Alice", 2, false, nil, nil, nil, now, now, "Modérateur", 80))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users u JOIN roles r ON r.id = u.role_id WHERE u.deleted_at IS NULL AND u.is_active = FALSE")).
		WithArgs("%ali%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	users, total, err := repo.List(context.Background(), models.UserFilter{Status: models.UserStatusInactive, Search: "ALI"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Modérateur", users[0].Role.Label)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreateLocksRole(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM roles WHERE id = $1 AND deleted_at IS NULL FOR SHARE")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
	mock.ExpectQuery("INSERT INTO users").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))
	mock.ExpectCommit()

	user := &models.User{Email: "new@cesizen.fr", Name: "New", PasswordHash: "hash", RoleID: 4, IsActive: true}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.Equal(t, int64(12), user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreateOnDisabledRole(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR SHARE").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.User{Email: "x@y.z", RoleID: 3})
	assert.ErrorIs(t, err, ErrRoleUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreateDuplicateEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR SHARE").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
	mock.ExpectQuery("INSERT INTO users").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.User{Email: "dup@cesizen.fr", RoleID: 4})
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryAnonymize(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)
	at := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND is_active = FALSE AND deleted_at IS NULL")).
		WithArgs(int64(8), models.DeletedUserSentinel, "Utilisateur supprimé#8", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Anonymize(context.Background(), 8, at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryConsumeResetCodeOnlyOnce(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)
	now := time.Now().UTC()

	mock.ExpectExec("UPDATE users SET password_hash = \\$3, reset_code = NULL").
		WithArgs(int64(5), "123456", "newhash", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET password_hash = \\$3, reset_code = NULL").
		WithArgs(int64(5), "123456", "newhash", now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.ConsumeResetCode(context.Background(), 5, "123456", "newhash", now))
	assert.ErrorIs(t, repo.ConsumeResetCode(context.Background(), 5, "123456", "newhash", now), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositorySetActive(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)
	at := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET is_active = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL")).
		WithArgs(int64(3), false, at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetActive(context.Background(), 3, false, at))
	assert.NoError(t, mock.ExpectationsWereMet())
}
