package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"

	"github.com/Organisation-de-merge/backend-cesizen/internal/dto"
	"github.com/Organisation-de-merge/backend-cesizen/internal/models"
	"github.com/Organisation-de-merge/backend-cesizen/internal/service"
	appErrors "github.com/Organisation-de-merge/backend-cesizen/pkg/errors"
)

type roleServiceMock struct {
	disabledID int64
	meta       models.RequestMeta
	status     models.RoleStatus
	err        error
}

func (m *roleServiceMock) List(ctx context.Context, status models.RoleStatus) ([]models.Role, error) {
	m.status = status
	return []models.Role{{ID: 2, Label: "Utilisateur", Level: 1}}, m.err
}

func (m *roleServiceMock) Get(ctx context.Context, id int64) (*models.Role, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.Role{ID: id}, nil
}

func (m *roleServiceMock) Create(ctx context.Context, req service.CreateRoleRequest, meta models.RequestMeta) (*models.Role, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.Role{ID: 9, Label: req.Label, Level: *req.Level}, nil
}

func (m *roleServiceMock) Update(ctx context.Context, id int64, req service.UpdateRoleRequest, meta models.RequestMeta) (*models.Role, error) {
	return &models.Role{ID: id}, m.err
}

func (m *roleServiceMock) Disable(ctx context.Context, id int64, meta models.RequestMeta) (*models.Role, error) {
	m.disabledID = id
	m.meta = meta
	if m.err != nil {
		return nil, m.err
	}
	return &models.Role{ID: id}, nil
}

func (m *roleServiceMock) Restore(ctx context.Context, id int64, meta models.RequestMeta) (*models.Role, error) {
	return &models.Role{ID: id}, m.err
}

type activityServiceMock struct {
	query              dto.ActivityQuery
	includeUnpublished bool
	created            *dto.CreateActivityRequest
	thumbnail          *string
	current            *models.Activity
	createErr          error
}

func (m *activityServiceMock) List(ctx context.Context, query dto.ActivityQuery) ([]models.Activity, *models.Pagination, error) {
	m.query = query
	return []models.Activity{}, models.NewPagination(query.Page, query.Limit, 0), nil
}

func (m *activityServiceMock) Latest(ctx context.Context, count int) ([]models.Activity, error) {
	return []models.Activity{}, nil
}

func (m *activityServiceMock) Get(ctx context.Context, id int64, includeUnpublished bool) (*models.Activity, error) {
	m.includeUnpublished = includeUnpublished
	if m.current != nil {
		return m.current, nil
	}
	return &models.Activity{ID: id, Status: models.StatusPublished}, nil
}

func (m *activityServiceMock) Create(ctx context.Context, req dto.CreateActivityRequest, thumbnail *string) (*models.Activity, error) {
	m.created = &req
	m.thumbnail = thumbnail
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.Activity{ID: 1, Name: req.Name, Thumbnail: thumbnail}, nil
}

func (m *activityServiceMock) Update(ctx context.Context, id int64, req dto.UpdateActivityRequest, thumbnail *string) (*models.Activity, error) {
	m.thumbnail = thumbnail
	return &models.Activity{ID: id, Thumbnail: thumbnail}, nil
}

func (m *activityServiceMock) Delete(ctx context.Context, id int64) error {
	return nil
}

type uploadServiceMock struct {
	stored  []string
	removed []string
	objects map[string][]byte
	err     error
}

func (m *uploadServiceMock) StoreThumbnail(ctx context.Context, prefix string, file *multipart.FileHeader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	key := prefix + "/" + file.Filename
	m.stored = append(m.stored, key)
	return key, nil
}

func (m *uploadServiceMock) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}
	return io.NopCloser(bytes.NewReader(data)), "image/png", nil
}

func (m *uploadServiceMock) Remove(ctx context.Context, key string) {
	m.removed = append(m.removed, key)
}

type pageServiceMock struct {
	includeUnpublished bool
}

func (m *pageServiceMock) List(ctx context.Context) ([]models.InformationPage, error) {
	return []models.InformationPage{}, nil
}

func (m *pageServiceMock) ListPublished(ctx context.Context) ([]models.InformationPage, error) {
	return []models.InformationPage{}, nil
}

func (m *pageServiceMock) Get(ctx context.Context, id int64, includeUnpublished bool) (*models.InformationPage, error) {
	m.includeUnpublished = includeUnpublished
	return &models.InformationPage{ID: id}, nil
}

func (m *pageServiceMock) Create(ctx context.Context, req dto.CreatePageRequest, thumbnail *string) (*models.InformationPage, error) {
	return &models.InformationPage{ID: 1, Title: req.Title, Thumbnail: thumbnail}, nil
}

func (m *pageServiceMock) Update(ctx context.Context, id int64, req dto.UpdatePageRequest, thumbnail *string) (*models.InformationPage, error) {
	return &models.InformationPage{ID: id}, nil
}

func (m *pageServiceMock) Delete(ctx context.Context, id int64) error {
	return nil
}

type favoriteServiceMock struct {
	userID     int64
	activityID int64
	err        error
}

func (m *favoriteServiceMock) List(ctx context.Context, userID int64) ([]models.Favorite, error) {
	m.userID = userID
	return []models.Favorite{}, nil
}

func (m *favoriteServiceMock) ListForUser(ctx context.Context, userID int64) ([]models.Favorite, error) {
	m.userID = userID
	return []models.Favorite{}, m.err
}

func (m *favoriteServiceMock) Add(ctx context.Context, userID, activityID int64) error {
	m.userID, m.activityID = userID, activityID
	return m.err
}

func (m *favoriteServiceMock) Remove(ctx context.Context, userID, activityID int64) error {
	m.userID, m.activityID = userID, activityID
	return m.err
}

type authServiceMock struct {
	forgot *models.ForgotPasswordRequest
	login  *models.LoginRequest
	err    error
}

func (m *authServiceMock) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	m.login = &req
	if m.err != nil {
		return nil, m.err
	}
	return &models.LoginResponse{AccessToken: "token"}, nil
}

func (m *authServiceMock) Register(ctx context.Context, req models.RegisterRequest) (*models.LoginResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.LoginResponse{AccessToken: "token"}, nil
}

func (m *authServiceMock) ForgotPassword(ctx context.Context, req models.ForgotPasswordRequest) error {
	m.forgot = &req
	return m.err
}

func (m *authServiceMock) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) error {
	return m.err
}

type profileServiceMock struct {
	changedFor int64
}

func (m *profileServiceMock) ResolveProfile(ctx context.Context, id int64) (*models.User, error) {
	return &models.User{ID: id, Email: "user@cesizen.fr"}, nil
}

func (m *profileServiceMock) ChangePassword(ctx context.Context, userID int64, req models.ChangePasswordRequest, meta models.RequestMeta) error {
	m.changedFor = userID
	return nil
}
