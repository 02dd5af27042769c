package handler

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/Organisation-de-merge/backend-cesizen/pkg/errors"
	"github.com/Organisation-de-merge/backend-cesizen/pkg/response"
)

const thumbnailField = "thumbnail"

type uploadService interface {
	StoreThumbnail(ctx context.Context, prefix string, file *multipart.FileHeader) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
	Remove(ctx context.Context, key string)
}

// UploadHandler serves stored thumbnails.
type UploadHandler struct {
	uploads uploadService
}

// NewUploadHandler creates an upload handler.
func NewUploadHandler(uploads uploadService) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// Serve godoc
// @Summary Download a stored thumbnail
// @Tags Uploads
// @Produce octet-stream
// @Param key path string true "Object key"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /uploads/{key} [get]
func (h *UploadHandler) Serve(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file not found"))
		return
	}

	body, contentType, err := h.uploads.Open(c.Request.Context(), key)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer body.Close()

	c.Header("Cache-Control", "public, max-age=86400")
	c.DataFromReader(http.StatusOK, -1, contentType, body, nil)
}

// storeThumbnail saves the optional thumbnail part of a multipart request.
// It returns nil when the request carries no file.
func storeThumbnail(c *gin.Context, uploads uploadService, prefix string) (*string, error) {
	if uploads == nil {
		return nil, nil
	}
	file, err := c.FormFile(thumbnailField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, bindError(err, "invalid thumbnail upload")
	}

	key, err := uploads.StoreThumbnail(c.Request.Context(), prefix, file)
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// discardThumbnail removes a thumbnail stored for a request that then failed.
func discardThumbnail(c *gin.Context, uploads uploadService, key *string) {
	if uploads == nil || key == nil {
		return
	}
	uploads.Remove(c.Request.Context(), *key)
}
