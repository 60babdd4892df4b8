package storage

import (
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/KeremKalyoncu/objstore/internal/errors"
)

// NewKey returns "<uuid>-<name>". The random prefix keeps repeated uploads
// of the same name from colliding.
func NewKey(name string) string {
	return uuid.NewString() + "-" + name
}

// PublicURL joins endpoint, bucket and key the way S3 path-style URLs look
func PublicURL(endpoint, bucket, key string) string {
	return strings.TrimRight(endpoint, "/") + "/" + bucket + "/" + key
}

// keyFromURL strips prefix from rawURL and returns the remaining key
func keyFromURL(prefix, rawURL string) (string, error) {
	if !strings.HasPrefix(rawURL, prefix) {
		return "", apperrors.ErrInvalidKey.WithDetails(map[string]string{"url": rawURL})
	}
	key := strings.TrimPrefix(rawURL, prefix)
	if key == "" {
		return "", apperrors.ErrInvalidKey.WithDetails(map[string]string{"url": rawURL})
	}
	return key, nil
}

func contentType(name string) string {
	return mime.TypeByExtension(path.Ext(name))
}
