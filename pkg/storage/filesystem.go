package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage persists files on disk under a base directory.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage returns a handle rooted at baseDir.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve uploads directory: %w", err)
	}
	return &LocalStorage{baseDir: abs}, nil
}

// EnsureBucket creates the base directory.
func (s *LocalStorage) EnsureBucket(context.Context) error {
	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return fmt.Errorf("create uploads directory: %w", err)
	}
	return nil
}

// Put copies r into the file addressed by key. The content is written to a
// temporary file first, so a failed copy never leaves a truncated upload.
func (s *LocalStorage) Put(ctx context.Context, key string, r io.Reader, _ int64, _ string) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("prepare upload directory: %w", err)
	}
	file, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("create upload file: %w", err)
	}
	tmp := file.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if _, err := io.Copy(file, r); err != nil {
		_ = file.Close()
		return fmt.Errorf("write upload stream: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close upload file: %w", err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		return fmt.Errorf("set upload permissions: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("store upload file: %w", err)
	}
	return nil
}

// Get returns a read-only handle for the stored file.
func (s *LocalStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(_ context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete upload file: %w", err)
	}
	return nil
}

// Bucket returns the base directory.
func (s *LocalStorage) Bucket() string {
	return s.baseDir
}

func (s *LocalStorage) resolve(key string) (string, error) {
	cleaned := filepath.Clean("/" + strings.TrimSpace(key))
	if cleaned == "/" {
		return "", ErrInvalidKey
	}
	path := filepath.Join(s.baseDir, cleaned)
	if !strings.HasPrefix(path, s.baseDir+string(filepath.Separator)) {
		return "", ErrInvalidKey
	}
	return path, nil
}
