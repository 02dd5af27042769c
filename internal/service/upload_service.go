package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/Organisation-de-merge/backend-cesizen/pkg/errors"
	"github.com/Organisation-de-merge/backend-cesizen/pkg/storage"
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// UploadConfig limits accepted thumbnails.
type UploadConfig struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// UploadService stores thumbnails in object storage under random keys.
type UploadService struct {
	store   storage.ObjectStorage
	config  UploadConfig
	allowed map[string]bool
	logger  *zap.Logger
}

// NewUploadService creates an instance of UploadService.
func NewUploadService(store storage.ObjectStorage, cfg UploadConfig, logger *zap.Logger) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = 5 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		for mime := range imageExtensions {
			cfg.AllowedMIMEs = append(cfg.AllowedMIMEs, mime)
		}
	}
	allowed := make(map[string]bool, len(cfg.AllowedMIMEs))
	for _, mime := range cfg.AllowedMIMEs {
		allowed[strings.ToLower(mime)] = true
	}
	return &UploadService{store: store, config: cfg, allowed: allowed, logger: logger}
}

// StoreThumbnail validates and stores an uploaded image, returning its key.
// The content type is sniffed from the bytes, not trusted from the client.
func (s *UploadService) StoreThumbnail(ctx context.Context, prefix string, file *multipart.FileHeader) (string, error) {
	if file == nil {
		return "", appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if file.Size > s.config.MaxFileSizeBytes {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes", s.config.MaxFileSizeBytes))
	}

	src, err := file.Open()
	if err != nil {
		return "", validationError(err, "unable to read uploaded file")
	}
	defer src.Close()

	return s.Store(ctx, prefix, src, file.Size)
}

// Store writes an image read from r.
func (s *UploadService) Store(ctx context.Context, prefix string, r io.Reader, size int64) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", validationError(err, "unable to read uploaded file")
	}
	head = head[:n]
	if n == 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "file is empty")
	}

	contentType := strings.ToLower(strings.SplitN(http.DetectContentType(head), ";", 2)[0])
	if !s.allowed[contentType] {
		return "", appErrors.Clone(appErrors.ErrValidation, "unsupported file type "+contentType)
	}

	ext := imageExtensions[contentType]
	key := path.Join(strings.Trim(prefix, "/"), uuid.NewString()+ext)

	body := io.MultiReader(bytes.NewReader(head), r)
	if err := s.store.Put(ctx, key, body, size, contentType); err != nil {
		return "", internalError(err, "failed to store file")
	}
	return key, nil
}

// Open streams a stored object.
func (s *UploadService) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	rc, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) || errors.Is(err, storage.ErrInvalidKey) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, "", internalError(err, "failed to open file")
	}
	return rc, contentTypeForKey(key), nil
}

// Remove deletes a stored object; failures are logged only.
func (s *UploadService) Remove(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		s.logger.Warn("failed to delete stored file", zap.String("key", key), zap.Error(err))
	}
}

func contentTypeForKey(key string) string {
	ext := strings.ToLower(path.Ext(key))
	for mime, known := range imageExtensions {
		if known == ext {
			return mime
		}
	}
	return "application/octet-stream"
}
