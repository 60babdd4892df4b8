// Package storage stores streams in an S3-compatible bucket under generated
// keys and hands back their public URLs.
package storage

import (
	"context"
	"io"
)

// Storage is the interface for object storage operations
type Storage interface {
	// Store uploads body under a fresh "<uuid>-<name>" key
	Store(ctx context.Context, body io.Reader, name string) (*Object, error)
	// Delete removes the object stored under key
	Delete(ctx context.Context, key string) error
}

// KeyResolver maps a public URL returned by Store back to its key
type KeyResolver interface {
	KeyFromURL(rawURL string) (string, error)
}

// Object describes an uploaded object. Only Key is needed to delete it.
type Object struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// TryDelete deletes key and reports whether the request succeeded.
// The error itself is dropped; stores log it before returning.
func TryDelete(ctx context.Context, s Storage, key string) bool {
	return s.Delete(ctx, key) == nil
}

// countingReader tracks how many bytes the uploader consumed
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
