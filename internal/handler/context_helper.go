package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Organisation-de-merge/backend-cesizen/internal/middleware"
	"github.com/Organisation-de-merge/backend-cesizen/internal/models"
	appErrors "github.com/Organisation-de-merge/backend-cesizen/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.ClaimsFrom(c)
}

// requireClaims returns the caller claims or an unauthorized error when the
// route was reached without a token.
func requireClaims(c *gin.Context) (*models.JWTClaims, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	return claims, nil
}

func requestMeta(c *gin.Context) models.RequestMeta {
	meta := models.RequestMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
	if claims := claimsFromContext(c); claims != nil {
		meta.ActorID = claims.UserID
	}
	return meta
}

func pathID(c *gin.Context, name string) (int64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid "+name)
	}
	return id, nil
}

func bindError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
