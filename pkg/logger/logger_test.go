package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Organisation-de-merge/backend-cesizen/pkg/middleware/requestid"
)

func newObservedRouter(t *testing.T) (*gin.Engine, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)

	r := gin.New()
	r.Use(requestid.Middleware())
	r.Use(GinMiddleware(zap.New(core), "/health"))
	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/activities/:id", func(c *gin.Context) {
		c.Set(UserIDKey, int64(7))
		c.String(http.StatusNotFound, "missing")
	})
	r.GET("/boom", func(c *gin.Context) { c.String(http.StatusInternalServerError, "boom") })
	return r, logs
}

func serve(r *gin.Engine, path string) {
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
}

func TestGinMiddlewareSkipsHealthyChecks(t *testing.T) {
	r, logs := newObservedRouter(t)

	serve(r, "/health")

	assert.Zero(t, logs.Len())
}

func TestGinMiddlewareLogsRouteAndCaller(t *testing.T) {
	r, logs := newObservedRouter(t)

	serve(r, "/activities/12")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, "/activities/:id", fields["route"])
	assert.Equal(t, "/activities/12", fields["path"])
	assert.Equal(t, int64(7), fields["user_id"])
	assert.Equal(t, int64(http.StatusNotFound), fields["status"])
	assert.NotEmpty(t, fields["request_id"])
}

func TestGinMiddlewareLogsServerErrorsAtErrorLevel(t *testing.T) {
	r, logs := newObservedRouter(t)

	serve(r, "/boom")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)
}
