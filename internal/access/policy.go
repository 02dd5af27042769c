package access

import (
	"github.com/Organisation-de-merge/backend-cesizen/internal/models"
	appErrors "github.com/Organisation-de-merge/backend-cesizen/pkg/errors"
)

// Operation names a guarded use case.
type Operation string

const (
	OpRolesList    Operation = "roles.list"
	OpRolesGet     Operation = "roles.get"
	OpRolesCreate  Operation = "roles.create"
	OpRolesUpdate  Operation = "roles.update"
	OpRolesDisable Operation = "roles.disable"
	OpRolesRestore Operation = "roles.restore"

	OpUsersList    Operation = "users.list"
	OpUsersGet     Operation = "users.get"
	OpUsersCreate  Operation = "users.create"
	OpUsersUpdate  Operation = "users.update"
	OpUsersDisable Operation = "users.disable"
	OpUsersRestore Operation = "users.restore"
	OpUsersDelete  Operation = "users.delete"

	OpAuthMe             Operation = "auth.me"
	OpAuthChangePassword Operation = "auth.change_password"

	OpFavoritesOwn    Operation = "favorites.own"
	OpFavoritesByUser Operation = "favorites.by_user"

	OpActivitiesWrite    Operation = "activities.write"
	OpActivityTypesWrite Operation = "activity_types.write"
	OpPagesWrite         Operation = "pages.write"
	OpPagesListAll       Operation = "pages.list_all"
	OpMenusWrite         Operation = "menus.write"
)

// Policy maps operations to their requirement.
type Policy map[Operation]Requirement

// DefaultPolicy returns the platform's access rules with the standard
// administrative level.
func DefaultPolicy() Policy {
	return NewPolicy(LevelAdmin)
}

// NewPolicy returns the access rules for a deployment whose administrative
// roles start at adminLevel. The moderator floor never exceeds it.
func NewPolicy(adminLevel int) Policy {
	if adminLevel <= 0 {
		adminLevel = LevelAdmin
	}
	admin := Requirement{MinLevel: adminLevel}
	moderator := Requirement{MinLevel: min(LevelModerator, adminLevel)}
	member := Requirement{MinLevel: LevelUser}

	return Policy{
		OpRolesList:    admin,
		OpRolesGet:     admin,
		OpRolesCreate:  admin,
		OpRolesUpdate:  admin,
		OpRolesDisable: admin,
		OpRolesRestore: admin,

		OpUsersList:    moderator,
		OpUsersGet:     moderator,
		OpUsersDisable: moderator,
		OpUsersRestore: moderator,
		OpUsersCreate:  admin,
		OpUsersUpdate:  admin,
		OpUsersDelete:  admin,

		OpAuthMe:             member,
		OpAuthChangePassword: member,

		OpFavoritesOwn:    member,
		OpFavoritesByUser: moderator,

		OpActivitiesWrite:    admin,
		OpActivityTypesWrite: admin,
		OpPagesWrite:         admin,
		OpPagesListAll:       admin,
		OpMenusWrite:         admin,
	}
}

// Requirement returns the rule for op and whether one is declared.
func (p Policy) Requirement(op Operation) (Requirement, bool) {
	req, ok := p[op]
	return req, ok
}

// Authorize evaluates op for claims. Undeclared operations are denied.
func (p Policy) Authorize(claims *models.JWTClaims, op Operation) error {
	req, ok := p[op]
	if !ok {
		if claims == nil {
			return appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
		}
		return appErrors.Clone(appErrors.ErrForbidden, "operation not permitted")
	}
	return Authorize(claims, req)
}

// Allows is Authorize reduced to a boolean, for optional visibility checks.
func (p Policy) Allows(claims *models.JWTClaims, op Operation) bool {
	return claims != nil && p.Authorize(claims, op) == nil
}
