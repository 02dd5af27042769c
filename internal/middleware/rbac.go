package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/Organisation-de-merge/backend-cesizen/internal/access"
	"github.com/Organisation-de-merge/backend-cesizen/pkg/response"
)

// Require enforces the policy entry declared for op against the request claims.
// It must run after JWT.
func Require(policy access.Policy, op access.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := policy.Authorize(ClaimsFrom(c), op); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}
