package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Organisation-de-merge/backend-cesizen/internal/access"
	"github.com/Organisation-de-merge/backend-cesizen/internal/models"
	"github.com/Organisation-de-merge/backend-cesizen/internal/service"
	appErrors "github.com/Organisation-de-merge/backend-cesizen/pkg/errors"
	"github.com/Organisation-de-merge/backend-cesizen/pkg/logger"
)

type stubValidator struct {
	tokens map[string]*models.JWTClaims
}

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s.tokens[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
}

type envelope struct {
	Error *appErrors.Error `json:"error"`
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newGuardedRouter(op access.Operation) *gin.Engine {
	validator := stubValidator{tokens: map[string]*models.JWTClaims{
		"admin":  {UserID: 1, RoleLabel: "Administrateur", RoleLevel: 100},
		"member": {UserID: 2, RoleLabel: "Utilisateur", RoleLevel: 1},
		"mod":    {UserID: 3, RoleLabel: "Modérateur", RoleLevel: 80},
	}}
	r := gin.New()
	r.GET("/guarded", JWT(validator), Require(access.DefaultPolicy(), op), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": ClaimsFrom(c).UserID})
	})
	r.GET("/optional", OptionalJWT(validator), func(c *gin.Context) {
		claims := ClaimsFrom(c)
		if claims == nil {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, claims.RoleLabel)
	})
	return r
}

func perform(r http.Handler, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTRejectsMissingAndMalformedHeaders(t *testing.T) {
	r := newGuardedRouter(access.OpAuthMe)

	for _, header := range []string{"", "admin", "Basic admin", "Bearer ", "Bearer nope"} {
		w := perform(r, "/guarded", header)
		assert.Equal(t, http.StatusUnauthorized, w.Code, header)

		var body envelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.NotNil(t, body.Error)
		assert.Equal(t, "UNAUTHORIZED", body.Error.Code)
	}
}

func TestRequireAppliesPolicyLevels(t *testing.T) {
	cases := []struct {
		op     access.Operation
		token  string
		status int
	}{
		{access.OpRolesCreate, "admin", http.StatusOK},
		{access.OpRolesCreate, "mod", http.StatusForbidden},
		{access.OpUsersDisable, "mod", http.StatusOK},
		{access.OpUsersDisable, "member", http.StatusForbidden},
		{access.OpFavoritesOwn, "member", http.StatusOK},
		{access.Operation("unknown.op"), "admin", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(string(tc.op)+"/"+tc.token, func(t *testing.T) {
			w := perform(newGuardedRouter(tc.op), "/guarded", "Bearer "+tc.token)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestRequireWithoutClaimsIsUnauthorized(t *testing.T) {
	r := gin.New()
	r.GET("/open", Require(access.DefaultPolicy(), access.OpAuthMe), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := perform(r, "/open", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOptionalJWT(t *testing.T) {
	r := newGuardedRouter(access.OpAuthMe)

	assert.Equal(t, "anonymous", perform(r, "/optional", "").Body.String())
	assert.Equal(t, "anonymous", perform(r, "/optional", "Bearer broken").Body.String())
	assert.Equal(t, "Modérateur", perform(r, "/optional", "Bearer mod").Body.String())
}

type recordingAudit struct {
	logs []*models.AuditLog
	err  error
}

func (r *recordingAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.logs = append(r.logs, log)
	return r.err
}

func TestAuditRecordsSuccessfulWritesOnly(t *testing.T) {
	recorder := &recordingAudit{}
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{UserID: 9})
		c.Next()
	})
	r.PUT("/activities/:id", Audit(recorder, nil, models.AuditActionContentUpdate, "activities"), func(c *gin.Context) {
		if c.Param("id") == "0" {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPut, "/activities/12", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)
	req = httptest.NewRequest(http.MethodPut, "/activities/0", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, recorder.logs, 1)
	entry := recorder.logs[0]
	assert.Equal(t, models.AuditActionContentUpdate, entry.Action)
	assert.Equal(t, "activities", entry.Resource)
	assert.Equal(t, int64(9), *entry.ActorID)
	assert.Equal(t, int64(12), *entry.ResourceID)

	recorder.err = errors.New("db down")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/activities/13", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTExposesCallerToRequestLog(t *testing.T) {
	validator := stubValidator{tokens: map[string]*models.JWTClaims{"mod": {UserID: 3, RoleLevel: 80}}}
	var logged int64
	r := gin.New()
	r.GET("/me", JWT(validator), func(c *gin.Context) {
		logged = c.GetInt64(logger.UserIDKey)
		c.Status(http.StatusOK)
	})

	perform(r, "/me", "Bearer mod")
	assert.Equal(t, int64(3), logged)
}

func TestMetricsSkipsHealthChecksAndPreflights(t *testing.T) {
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics, "/health"))
	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/activities/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.OPTIONS("/activities/:id", func(c *gin.Context) { c.String(http.StatusNoContent, "") })

	perform(r, "/health", "")
	perform(r, "/activities/4", "")
	perform(r, "/activities/5", "")
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodOptions, "/activities/5", nil))

	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",path="/activities/:id",status="200"} 2`)
	assert.NotContains(t, body, `path="/health"`)
	assert.NotContains(t, body, `method="OPTIONS"`)
}
