package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KeremKalyoncu/objstore/internal/config"
)

func localConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		Storage: config.StorageConfig{
			Driver:         config.DriverLocal,
			LocalPath:      t.TempDir(),
			LocalPublicURL: "http://localhost:8080/files",
		},
		Resilience: config.ResilienceConfig{
			MaxAttempts:  1,
			InitialDelay: time.Millisecond,
			MaxDelay:     time.Millisecond,
		},
		API: config.APIConfig{
			Port:        8080,
			Host:        "127.0.0.1",
			Key:         "secret",
			BodyLimitMB: 1,
			RateLimit:   100,
		},
		Queue: config.QueueConfig{Concurrency: 1},
	}
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/objects", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-API-Key", "secret")
	return req
}

func TestNewContainer_LocalDriverWithoutQueue(t *testing.T) {
	c, err := NewContainer(context.Background(), localConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.QueueClient)
	assert.NotNil(t, c.Storage.Local)
	assert.NotNil(t, c.Storage.Resilient)
	assert.NotNil(t, c.ObjectHandler)
	assert.NotNil(t, c.HealthHandler)
}

func TestNewContainer_WithQueue(t *testing.T) {
	cfg := localConfig(t)
	cfg.Queue.RedisAddr = "127.0.0.1:0"

	c, err := NewContainer(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	assert.NotNil(t, c.QueueClient)
	assert.NoError(t, c.Close())
}

func TestNewStorage_S3DriverBuildsOffline(t *testing.T) {
	cfg := localConfig(t)
	cfg.Storage = config.StorageConfig{
		Driver:    config.DriverS3,
		Endpoint:  "http://localhost:9000",
		Region:    "us-east-1",
		Bucket:    "docs",
		AccessKey: "key",
		SecretKey: "secret",
	}

	stack, err := NewStorage(context.Background(), cfg, zap.NewNop(), nil)
	require.NoError(t, err)
	assert.Nil(t, stack.Local)
	assert.NotNil(t, stack.Storage)
}

func TestHTTPServer_StoreServeDelete(t *testing.T) {
	cfg := localConfig(t)
	c, err := NewContainer(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	srv, limiter := c.NewHTTPServer()
	defer limiter.Close()

	resp, err := srv.Test(uploadRequest(t, "notes.txt", []byte("hello")))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var obj struct {
		Key  string `json:"key"`
		URL  string `json:"url"`
		Size int64  `json:"size"`
	}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &obj))

	assert.Equal(t, "http://localhost:8080/files/"+obj.Key, obj.URL)
	assert.Equal(t, int64(5), obj.Size)

	onDisk, err := os.ReadFile(filepath.Join(cfg.Storage.LocalPath, obj.Key))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), onDisk)

	resp, err = srv.Test(httptest.NewRequest(http.MethodGet, "/files/"+obj.Key, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	del := httptest.NewRequest(http.MethodDelete, "/api/v1/objects/"+obj.Key, nil)
	del.Header.Set("X-API-Key", "secret")
	resp, err = srv.Test(del)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	_, err = os.Stat(filepath.Join(cfg.Storage.LocalPath, obj.Key))
	assert.True(t, os.IsNotExist(err))
}

func TestHTTPServer_RequiresAPIKey(t *testing.T) {
	c, err := NewContainer(context.Background(), localConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	srv, limiter := c.NewHTTPServer()
	defer limiter.Close()

	req := uploadRequest(t, "a.txt", []byte("x"))
	req.Header.Del("X-API-Key")

	resp, err := srv.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, err = srv.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestHTTPServer_DeleteByURL(t *testing.T) {
	cfg := localConfig(t)
	c, err := NewContainer(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	srv, limiter := c.NewHTTPServer()
	defer limiter.Close()

	resp, err := srv.Test(uploadRequest(t, "notes.txt", []byte("hello")))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var obj struct {
		Key string `json:"key"`
		URL string `json:"url"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&obj))

	del := httptest.NewRequest(http.MethodDelete, "/api/v1/objects?url="+url.QueryEscape(obj.URL), nil)
	del.Header.Set("X-API-Key", "secret")
	resp, err = srv.Test(del)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	_, err = os.Stat(filepath.Join(cfg.Storage.LocalPath, obj.Key))
	assert.True(t, os.IsNotExist(err))
}

func TestHTTPServer_ErrorHandler(t *testing.T) {
	c, err := NewContainer(context.Background(), localConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	srv, limiter := c.NewHTTPServer()
	defer limiter.Close()
	srv.Get("/boom", func(ctx *fiber.Ctx) error {
		panic("unexpected")
	})

	resp, err := srv.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "INTERNAL_ERROR", body["code"])

	resp, err = srv.Test(httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	body = nil
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "HTTP_404", body["code"])
}
