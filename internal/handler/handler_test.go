package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Organisation-de-merge/backend-cesizen/internal/access"
	"github.com/Organisation-de-merge/backend-cesizen/internal/middleware"
	"github.com/Organisation-de-merge/backend-cesizen/internal/models"
	appErrors "github.com/Organisation-de-merge/backend-cesizen/pkg/errors"
)

func newTestContext(method, target string, body *bytes.Buffer, contentType string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	if body == nil {
		body = &bytes.Buffer{}
	}
	req, _ := http.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("User-Agent", "handler-test")
	c.Request = req
	return c, w
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: 1, RoleID: 1, RoleLabel: "Administrateur", RoleLevel: access.LevelAdmin}
}

func memberClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: 4, RoleID: 2, RoleLabel: "Utilisateur", RoleLevel: access.LevelUser}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) *appErrors.Error {
	t.Helper()
	var envelope struct {
		Error *appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	return envelope.Error
}

func TestRoleHandlerRejectsNonNumericID(t *testing.T) {
	svc := &roleServiceMock{}
	h := NewRoleHandler(svc)
	c, w := newTestContext(http.MethodDelete, "/roles/abc", nil, "")
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	h.Disable(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decodeError(t, w).Code)
	assert.Zero(t, svc.disabledID)
}

func TestRoleHandlerDisablePassesActor(t *testing.T) {
	svc := &roleServiceMock{}
	h := NewRoleHandler(svc)
	c, w := newTestContext(http.MethodDelete, "/roles/3", nil, "")
	c.Params = gin.Params{{Key: "id", Value: "3"}}
	c.Set(middleware.ContextUserKey, adminClaims())

	h.Disable(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(3), svc.disabledID)
	assert.Equal(t, int64(1), svc.meta.ActorID)
	assert.Equal(t, "handler-test", svc.meta.UserAgent)
}

func TestRoleHandlerSurfacesServiceError(t *testing.T) {
	svc := &roleServiceMock{err: appErrors.Clone(appErrors.ErrForbidden, "cannot remove the base role")}
	h := NewRoleHandler(svc)
	c, w := newTestContext(http.MethodDelete, "/roles/2", nil, "")
	c.Params = gin.Params{{Key: "id", Value: "2"}}

	h.Disable(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "cannot remove the base role", decodeError(t, w).Message)
}

func TestRoleHandlerListDefaultsToAll(t *testing.T) {
	svc := &roleServiceMock{}
	h := NewRoleHandler(svc)
	c, w := newTestContext(http.MethodGet, "/roles", nil, "")

	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RoleStatusAll, svc.status)
}

func TestRoleHandlerCreateRejectsMalformedJSON(t *testing.T) {
	h := NewRoleHandler(&roleServiceMock{})
	c, w := newTestContext(http.MethodPost, "/roles", bytes.NewBufferString(`{"label":`), "application/json")

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestActivityHandlerForcesPublishedForVisitors(t *testing.T) {
	svc := &activityServiceMock{}
	h := NewActivityHandler(svc, &uploadServiceMock{}, access.DefaultPolicy())
	c, w := newTestContext(http.MethodGet, "/activities?status=DRAFT&query=yoga&typeId=2&page=2&limit=5", nil, "")

	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(models.StatusPublished), svc.query.Status)
	assert.Equal(t, "yoga", svc.query.Query)
	require.NotNil(t, svc.query.TypeID)
	assert.Equal(t, int64(2), *svc.query.TypeID)
	assert.Equal(t, 5, svc.query.Limit)
}

func TestActivityHandlerForcesPublishedForMembers(t *testing.T) {
	svc := &activityServiceMock{}
	h := NewActivityHandler(svc, &uploadServiceMock{}, access.DefaultPolicy())
	c, _ := newTestContext(http.MethodGet, "/activities?status=HIDDEN", nil, "")
	c.Set(middleware.ContextUserKey, memberClaims())

	h.List(c)

	assert.Equal(t, string(models.StatusPublished), svc.query.Status)
}

func TestActivityHandlerEditorsKeepStatusFilter(t *testing.T) {
	svc := &activityServiceMock{}
	h := NewActivityHandler(svc, &uploadServiceMock{}, access.DefaultPolicy())
	c, _ := newTestContext(http.MethodGet, "/activities?status=DRAFT", nil, "")
	c.Set(middleware.ContextUserKey, adminClaims())

	h.List(c)

	assert.Equal(t, "DRAFT", svc.query.Status)
}

func TestActivityHandlerGetHidesUnpublishedFromVisitors(t *testing.T) {
	svc := &activityServiceMock{}
	h := NewActivityHandler(svc, nil, access.DefaultPolicy())

	c, _ := newTestContext(http.MethodGet, "/activities/7", nil, "")
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	h.Get(c)
	assert.False(t, svc.includeUnpublished)

	c, _ = newTestContext(http.MethodGet, "/activities/7", nil, "")
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	c.Set(middleware.ContextUserKey, adminClaims())
	h.Get(c)
	assert.True(t, svc.includeUnpublished)
}

func activityMultipart(t *testing.T, withFile bool) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fields := map[string]string{
		"name":         "Respiration carrée",
		"description":  "Inspirer, retenir, expirer, retenir",
		"duration":     "10",
		"stress_level": "3",
		"type_id":      "2",
		"status":       "PUBLISHED",
	}
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if withFile {
		part, err := writer.CreateFormFile(thumbnailField, "cover.png")
		require.NoError(t, err)
		_, err = part.Write([]byte("\x89PNG\r\n\x1a\n"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestActivityHandlerCreateStoresThumbnail(t *testing.T) {
	svc := &activityServiceMock{}
	uploads := &uploadServiceMock{}
	h := NewActivityHandler(svc, uploads, access.DefaultPolicy())
	body, contentType := activityMultipart(t, true)
	c, w := newTestContext(http.MethodPost, "/activities", body, contentType)

	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, svc.created)
	assert.Equal(t, "Respiration carrée", svc.created.Name)
	assert.Equal(t, 10, svc.created.Duration)
	assert.Equal(t, int64(2), svc.created.TypeID)
	require.NotNil(t, svc.thumbnail)
	assert.Equal(t, "activities/cover.png", *svc.thumbnail)
	assert.Empty(t, uploads.removed)
}

func TestActivityHandlerCreateWithoutThumbnail(t *testing.T) {
	svc := &activityServiceMock{}
	uploads := &uploadServiceMock{}
	h := NewActivityHandler(svc, uploads, access.DefaultPolicy())
	body, contentType := activityMultipart(t, false)
	c, w := newTestContext(http.MethodPost, "/activities", body, contentType)

	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Nil(t, svc.thumbnail)
	assert.Empty(t, uploads.stored)
}

func TestActivityHandlerCreateDiscardsThumbnailOnFailure(t *testing.T) {
	svc := &activityServiceMock{createErr: appErrors.Clone(appErrors.ErrValidation, "unknown activity type")}
	uploads := &uploadServiceMock{}
	h := NewActivityHandler(svc, uploads, access.DefaultPolicy())
	body, contentType := activityMultipart(t, true)
	c, w := newTestContext(http.MethodPost, "/activities", body, contentType)

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"activities/cover.png"}, uploads.removed)
}

func TestActivityHandlerUpdateReplacesThumbnail(t *testing.T) {
	old := "activities/old.png"
	svc := &activityServiceMock{current: &models.Activity{ID: 4, Thumbnail: &old}}
	uploads := &uploadServiceMock{}
	h := NewActivityHandler(svc, uploads, access.DefaultPolicy())
	body, contentType := activityMultipart(t, true)
	c, w := newTestContext(http.MethodPut, "/activities/4", body, contentType)
	c.Params = gin.Params{{Key: "id", Value: "4"}}

	h.Update(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"activities/cover.png"}, uploads.stored)
	assert.Equal(t, []string{old}, uploads.removed)
}

func TestActivityHandlerCreateRejectsOversizedThumbnail(t *testing.T) {
	svc := &activityServiceMock{}
	uploads := &uploadServiceMock{err: appErrors.Clone(appErrors.ErrValidation, "file exceeds 10 bytes")}
	h := NewActivityHandler(svc, uploads, access.DefaultPolicy())
	body, contentType := activityMultipart(t, true)
	c, w := newTestContext(http.MethodPost, "/activities", body, contentType)

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, svc.created)
}

func TestPageHandlerGetVisibility(t *testing.T) {
	svc := &pageServiceMock{}
	h := NewPageHandler(svc, nil, access.DefaultPolicy())

	c, _ := newTestContext(http.MethodGet, "/pages/3", nil, "")
	c.Params = gin.Params{{Key: "id", Value: "3"}}
	c.Set(middleware.ContextUserKey, memberClaims())
	h.Get(c)
	assert.False(t, svc.includeUnpublished)

	c, _ = newTestContext(http.MethodGet, "/pages/3", nil, "")
	c.Params = gin.Params{{Key: "id", Value: "3"}}
	c.Set(middleware.ContextUserKey, adminClaims())
	h.Get(c)
	assert.True(t, svc.includeUnpublished)
}

func TestPageHandlerCreateAcceptsJSON(t *testing.T) {
	h := NewPageHandler(&pageServiceMock{}, &uploadServiceMock{}, access.DefaultPolicy())
	c, w := newTestContext(http.MethodPost, "/pages", bytes.NewBufferString(`{"title":"Stress","content":"..."}`), "application/json")

	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"title":"Stress"`)
}

func TestFavoriteHandlerRequiresClaims(t *testing.T) {
	svc := &favoriteServiceMock{}
	h := NewFavoriteHandler(svc)
	c, w := newTestContext(http.MethodPost, "/favorites/5", nil, "")
	c.Params = gin.Params{{Key: "activityId", Value: "5"}}

	h.Add(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, svc.activityID)
}

func TestFavoriteHandlerAddUsesCaller(t *testing.T) {
	svc := &favoriteServiceMock{}
	h := NewFavoriteHandler(svc)
	c, w := newTestContext(http.MethodPost, "/favorites/5", nil, "")
	c.Params = gin.Params{{Key: "activityId", Value: "5"}}
	c.Set(middleware.ContextUserKey, memberClaims())

	h.Add(c)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, int64(4), svc.userID)
	assert.Equal(t, int64(5), svc.activityID)
}

func TestFavoriteHandlerListForUnknownUser(t *testing.T) {
	svc := &favoriteServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "user not found")}
	h := NewFavoriteHandler(svc)
	c, w := newTestContext(http.MethodGet, "/favorites/user/99", nil, "")
	c.Params = gin.Params{{Key: "id", Value: "99"}}

	h.ListForUser(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, int64(99), svc.userID)
}

func TestAuthHandlerLoginCapturesClient(t *testing.T) {
	svc := &authServiceMock{}
	h := NewAuthHandler(svc, &profileServiceMock{})
	c, w := newTestContext(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"email":"user@cesizen.fr","password":"user123"}`), "application/json")

	h.Login(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.login)
	assert.Equal(t, "handler-test", svc.login.UserAgent)
	assert.Contains(t, w.Body.String(), `"access_token":"token"`)
}

func TestAuthHandlerForgotPasswordAnswersUniformly(t *testing.T) {
	svc := &authServiceMock{}
	h := NewAuthHandler(svc, &profileServiceMock{})
	c, w := newTestContext(http.MethodPost, "/auth/forgot-password", bytes.NewBufferString(`{"email":"nobody@cesizen.fr"}`), "application/json")

	h.ForgotPassword(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.forgot)
	assert.Equal(t, "nobody@cesizen.fr", svc.forgot.Email)
}

func TestAuthHandlerForgotPasswordThrottled(t *testing.T) {
	svc := &authServiceMock{err: appErrors.Clone(appErrors.ErrTooManyRequests, "please wait before requesting another code")}
	h := NewAuthHandler(svc, &profileServiceMock{})
	c, w := newTestContext(http.MethodPost, "/auth/forgot-password", bytes.NewBufferString(`{"email":"user@cesizen.fr"}`), "application/json")

	h.ForgotPassword(c)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestAuthHandlerResetPasswordInvalidCode(t *testing.T) {
	svc := &authServiceMock{err: appErrors.Clone(appErrors.ErrInvalidOrExpired, "invalid or expired code")}
	h := NewAuthHandler(svc, &profileServiceMock{})
	c, w := newTestContext(http.MethodPost, "/auth/reset-password", bytes.NewBufferString(`{"code":"000000","new_password":"secret1"}`), "application/json")

	h.ResetPassword(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrInvalidOrExpired.Code, decodeError(t, w).Code)
}

func TestAuthHandlerMeAndChangePassword(t *testing.T) {
	profiles := &profileServiceMock{}
	h := NewAuthHandler(&authServiceMock{}, profiles)

	c, w := newTestContext(http.MethodGet, "/auth/me", nil, "")
	h.Me(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newTestContext(http.MethodGet, "/auth/me", nil, "")
	c.Set(middleware.ContextUserKey, memberClaims())
	h.Me(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":4`)

	c, w = newTestContext(http.MethodPost, "/auth/change-password", bytes.NewBufferString(`{"old_password":"user123","new_password":"user456"}`), "application/json")
	c.Set(middleware.ContextUserKey, memberClaims())
	h.ChangePassword(c)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, int64(4), profiles.changedFor)
}

func TestUploadHandlerServe(t *testing.T) {
	uploads := &uploadServiceMock{objects: map[string][]byte{"activities/a.png": []byte("png-bytes")}}
	h := NewUploadHandler(uploads)

	c, w := newTestContext(http.MethodGet, "/uploads/activities/a.png", nil, "")
	c.Params = gin.Params{{Key: "key", Value: "/activities/a.png"}}
	h.Serve(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "png-bytes", w.Body.String())

	c, w = newTestContext(http.MethodGet, "/uploads/missing.png", nil, "")
	c.Params = gin.Params{{Key: "key", Value: "/missing.png"}}
	h.Serve(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type stubPinger struct {
	err error
}

func (p stubPinger) PingContext(context.Context) error {
	return p.err
}

func TestMetricsHandlerReady(t *testing.T) {
	h := NewMetricsHandler(nil, stubPinger{})
	c, w := newTestContext(http.MethodGet, "/ready", nil, "")
	h.Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)

	h = NewMetricsHandler(nil, stubPinger{err: errors.New("connection refused")})
	c, w = newTestContext(http.MethodGet, "/ready", nil, "")
	h.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	c, w = newTestContext(http.MethodGet, "/metrics", nil, "")
	h.Prometheus(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
