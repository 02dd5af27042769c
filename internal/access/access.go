// Package access decides whether a session claim may perform an operation.
//
// Decisions read only the claim carried by the token. Role changes made
// after the token was issued apply from the holder's next login.
package access

import (
	"strings"

	"github.com/Organisation-de-merge/backend-cesizen/internal/models"
	appErrors "github.com/Organisation-de-merge/backend-cesizen/pkg/errors"
)

// Role levels used by the default policy.
const (
	LevelUser      = 1
	LevelAuthor    = 60
	LevelModerator = 80
	LevelAdmin     = 100
)

// Requirement is the gate declared for an operation. Both checks apply when
// both are set.
type Requirement struct {
	MinLevel int
	Labels   []string
}

// Authorize permits claims satisfying req.
func Authorize(claims *models.JWTClaims, req Requirement) error {
	if claims == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	if len(req.Labels) > 0 && !hasLabel(req.Labels, claims.RoleLabel) {
		return appErrors.Clone(appErrors.ErrForbidden, "role not allowed for this operation")
	}
	if claims.RoleLevel < req.MinLevel {
		return appErrors.Clone(appErrors.ErrForbidden, "insufficient role level")
	}
	return nil
}

func hasLabel(labels []string, label string) bool {
	for _, l := range labels {
		if strings.EqualFold(l, label) {
			return true
		}
	}
	return false
}
