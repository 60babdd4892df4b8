package testutil

import (
	"context"
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"

	apperrors "github.com/KeremKalyoncu/objstore/internal/errors"
	"github.com/KeremKalyoncu/objstore/pkg/storage"
)

// MockStorage is an in-memory storage.Storage
type MockStorage struct {
	mu        sync.Mutex
	files     map[string][]byte
	baseURL   string
	storeErr  error
	deleteErr error
	deletes   []string
}

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		files:   make(map[string][]byte),
		baseURL: "http://localhost:9000/test-bucket",
	}
}

// Store keeps body in memory under a generated key
func (m *MockStorage) Store(ctx context.Context, body io.Reader, name string) (*storage.Object, error) {
	if name == "" {
		return nil, apperrors.ErrInvalidName
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, apperrors.ErrUploadFailed.Wrap(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.storeErr != nil {
		return nil, m.storeErr
	}

	key := storage.NewKey(name)
	m.files[key] = data

	return &storage.Object{
		Key:  key,
		Name: name,
		URL:  m.baseURL + "/" + key,
		Size: int64(len(data)),
	}, nil
}

// Delete removes key; deleting a missing key succeeds like S3
func (m *MockStorage) Delete(ctx context.Context, key string) error {
	if key == "" {
		return apperrors.ErrInvalidKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.deletes = append(m.deletes, key)
	if m.deleteErr != nil {
		return m.deleteErr
	}

	delete(m.files, key)
	return nil
}

// FailStores makes subsequent Store calls return err
func (m *MockStorage) FailStores(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storeErr = err
}

// FailDeletes makes subsequent Delete calls return err
func (m *MockStorage) FailDeletes(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteErr = err
}

// GetFile returns stored bytes, or nil
func (m *MockStorage) GetFile(key string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.files[key]
}

// FileCount returns the number of files in mock storage
func (m *MockStorage) FileCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

// Deletes returns every key Delete was called with
func (m *MockStorage) Deletes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deletes...)
}

// ErrUpstream is a generic transport failure for tests
var ErrUpstream = errors.New("upstream unavailable")

// TestLogger returns a logger that discards output
func TestLogger() *zap.Logger {
	return zap.NewNop()
}
