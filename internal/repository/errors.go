package repository

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"

	appErrors "github.com/Organisation-de-merge/backend-cesizen/pkg/errors"
)

var (
	// ErrRoleUnavailable is returned when a write targets a missing or disabled role.
	ErrRoleUnavailable = errors.New("role missing or disabled")
	// ErrBaseRoleUnavailable is returned when the fallback role vanished mid-disable.
	ErrBaseRoleUnavailable = errors.New("base role missing or disabled")
)

// postgresError returns the SQLSTATE carried by err, if any.
func postgresError(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// MapError converts constraint violations into typed application errors and
// leaves every other error untouched.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	switch postgresError(err) {
	case pgerrcode.UniqueViolation:
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "resource already exists")
	case pgerrcode.ForeignKeyViolation:
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "referenced resource does not exist")
	case pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "value violates a constraint")
	}
	return err
}
