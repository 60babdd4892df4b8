package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/KeremKalyoncu/objstore/internal/errors"
)

// LocalStorage keeps objects on the local filesystem. It is the development
// driver; production runs against S3.
type LocalStorage struct {
	basePath  string
	publicURL string
	logger    *zap.Logger
}

// NewLocalStorage creates a new local storage handler
func NewLocalStorage(basePath, publicURL string, logger *zap.Logger) (*LocalStorage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	absPath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage directory: %w", err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{
		basePath:  absPath,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger,
	}, nil
}

// BasePath returns the absolute directory objects are written under
func (ls *LocalStorage) BasePath() string {
	return ls.basePath
}

// Store writes body to basePath/<key>
func (ls *LocalStorage) Store(ctx context.Context, body io.Reader, name string) (*Object, error) {
	if name == "" {
		return nil, apperrors.ErrInvalidName
	}
	if body == nil {
		return nil, apperrors.ErrInvalidRequest
	}

	key := NewKey(name)
	fullPath, err := ls.Path(key)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, ls.uploadError(key, fmt.Errorf("failed to create directory: %w", err))
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return nil, ls.uploadError(key, fmt.Errorf("failed to create file: %w", err))
	}

	written, err := io.Copy(file, readerWithContext(ctx, body))
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(fullPath)
		return nil, ls.uploadError(key, fmt.Errorf("failed to write file: %w", err))
	}

	ls.logger.Info("Stream stored on local disk",
		zap.String("key", key),
		zap.Int64("size", written),
	)

	return &Object{
		Key:  key,
		Name: name,
		URL:  ls.publicURL + "/" + key,
		Size: written,
	}, nil
}

// Delete removes a file from local storage. A missing file is not an error,
// matching S3 DeleteObject.
func (ls *LocalStorage) Delete(ctx context.Context, key string) error {
	fullPath, err := ls.Path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		ls.logger.Error("Delete failed", zap.String("key", key), zap.Error(err))
		return apperrors.ErrDeleteFailed.Wrap(err)
	}

	ls.logger.Info("Object deleted", zap.String("key", key))
	return nil
}

// Path maps key to a file under basePath, refusing keys that escape it
func (ls *LocalStorage) Path(key string) (string, error) {
	if key == "" {
		return "", apperrors.ErrInvalidKey
	}

	// Join cleans the path, so "<uuid>-../../x" would silently drop the
	// uuid prefix. Only canonical relative keys map 1:1 onto files.
	if strings.HasPrefix(key, "/") || path.Clean(key) != key {
		return "", apperrors.ErrInvalidKey.WithDetails(map[string]string{"key": key})
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", apperrors.ErrInvalidKey.WithDetails(map[string]string{"key": key})
		}
	}

	fullPath := filepath.Join(ls.basePath, filepath.FromSlash(key))
	rel, err := filepath.Rel(ls.basePath, fullPath)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", apperrors.ErrInvalidKey.WithDetails(map[string]string{"key": key})
	}

	return fullPath, nil
}

// KeyFromURL recovers the key from a URL returned by Store
func (ls *LocalStorage) KeyFromURL(rawURL string) (string, error) {
	return keyFromURL(ls.publicURL+"/", rawURL)
}

func (ls *LocalStorage) uploadError(key string, err error) error {
	ls.logger.Error("Upload failed", zap.String("key", key), zap.Error(err))
	return apperrors.ErrUploadFailed.Wrap(err)
}

// ctxReader stops a copy once ctx is done
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}
