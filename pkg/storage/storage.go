// Package storage keeps uploaded thumbnails on local disk or in MinIO.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Organisation-de-merge/backend-cesizen/pkg/config"
)

// ErrObjectNotFound is returned by Get when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ErrInvalidKey is returned for keys escaping the storage root.
var ErrInvalidKey = errors.New("invalid object key")

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// New returns the backend selected by cfg.Driver and makes sure its bucket exists.
func New(ctx context.Context, cfg config.StorageConfig) (ObjectStorage, error) {
	var (
		backend ObjectStorage
		err     error
	)
	switch cfg.Driver {
	case config.StorageDriverMinio:
		backend, err = NewMinioStorage(cfg.Minio)
	case config.StorageDriverLocal, "":
		backend, err = NewLocalStorage(cfg.LocalDir)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := backend.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure storage bucket: %w", err)
	}
	return backend, nil
}
