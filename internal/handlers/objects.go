package handlers

import (
	"context"
	"net/url"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/KeremKalyoncu/objstore/internal/errors"
	"github.com/KeremKalyoncu/objstore/internal/metrics"
	"github.com/KeremKalyoncu/objstore/pkg/storage"
)

// DeleteScheduler defers deletions to a background worker
type DeleteScheduler interface {
	EnqueueDelete(ctx context.Context, key string, delay time.Duration) (string, error)
}

// ObjectHandler exposes Store and Delete over HTTP
type ObjectHandler struct {
	storage   storage.Storage
	scheduler DeleteScheduler
	resolver  storage.KeyResolver
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewObjectHandler creates an object handler. scheduler may be nil.
func NewObjectHandler(store storage.Storage, scheduler DeleteScheduler, m *metrics.Metrics, logger *zap.Logger) *ObjectHandler {
	return &ObjectHandler{
		storage:   store,
		scheduler: scheduler,
		metrics:   m,
		logger:    logger,
	}
}

// WithKeyResolver lets Delete accept ?url= in place of a key
func (h *ObjectHandler) WithKeyResolver(r storage.KeyResolver) *ObjectHandler {
	h.resolver = r
	return h
}

// Upload stores the multipart "file" field and returns the new object
func (h *ObjectHandler) Upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return errorResponse(c, apperrors.ErrInvalidRequest.WithDetails("multipart field \"file\" is required"))
	}

	name := c.FormValue("name")
	if name == "" {
		name = filepath.Base(fh.Filename)
	}

	f, err := fh.Open()
	if err != nil {
		return errorResponse(c, apperrors.ErrInvalidRequest.Wrap(err))
	}
	defer f.Close()

	obj, err := h.storage.Store(c.UserContext(), f, name)
	if err != nil {
		h.logger.Warn("Upload request failed",
			zap.String("name", name),
			zap.String("code", apperrors.GetErrorCode(err)),
		)
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(obj)
}

// Delete removes the object named by the wildcard path or by ?url=, or
// schedules its removal when ?after is given
func (h *ObjectHandler) Delete(c *fiber.Ctx) error {
	key, err := h.requestKey(c)
	if err != nil {
		return errorResponse(c, err)
	}

	if after := c.Query("after"); after != "" {
		return h.scheduleDelete(c, key, after)
	}

	if err := h.storage.Delete(c.UserContext(), key); err != nil {
		return c.Status(apperrors.GetStatusCode(err)).JSON(fiber.Map{
			"deleted": false,
			"code":    apperrors.GetErrorCode(err),
			"error":   apperrors.GetErrorMessage(err),
			"details": apperrors.GetDetails(err),
		})
	}

	return c.JSON(fiber.Map{
		"deleted": true,
		"key":     key,
	})
}

func (h *ObjectHandler) requestKey(c *fiber.Ctx) (string, error) {
	if rawURL := c.Query("url"); rawURL != "" {
		if h.resolver == nil {
			return "", apperrors.ErrInvalidRequest.WithDetails("url lookup is not available for this storage driver")
		}
		return h.resolver.KeyFromURL(rawURL)
	}

	key, err := url.PathUnescape(c.Params("*"))
	if err != nil || key == "" {
		return "", apperrors.ErrInvalidKey
	}
	return key, nil
}

func (h *ObjectHandler) scheduleDelete(c *fiber.Ctx, key, after string) error {
	delay, err := time.ParseDuration(after)
	if err != nil || delay < 0 {
		return errorResponse(c, apperrors.ErrInvalidRequest.WithDetails("after must be a non-negative duration such as 10m"))
	}
	if h.scheduler == nil {
		return errorResponse(c, apperrors.ErrInvalidRequest.WithDetails("deferred deletion requires REDIS_ADDR"))
	}

	taskID, err := h.scheduler.EnqueueDelete(c.UserContext(), key, delay)
	if err != nil {
		return errorResponse(c, err)
	}
	h.metrics.RecordDeferredDelete()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"task_id": taskID,
		"key":     key,
		"after":   delay.String(),
	})
}

func errorResponse(c *fiber.Ctx, err error) error {
	body := fiber.Map{
		"code":  apperrors.GetErrorCode(err),
		"error": apperrors.GetErrorMessage(err),
	}
	if details := apperrors.GetDetails(err); details != nil {
		body["details"] = details
	}
	return c.Status(apperrors.GetStatusCode(err)).JSON(body)
}
