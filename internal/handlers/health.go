package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/KeremKalyoncu/objstore/internal/metrics"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler provides health check endpoints
type HealthHandler struct {
	redis   Pinger
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewHealthHandler creates a health handler. redis may be nil when no queue
// is configured.
func NewHealthHandler(redis Pinger, m *metrics.Metrics, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		redis:   redis,
		metrics: m,
		logger:  logger,
	}
}

// Liveness returns whether service is alive
func (h *HealthHandler) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// Readiness returns whether service is ready to accept traffic
func (h *HealthHandler) Readiness(c *fiber.Ctx) error {
	if h.redis == nil {
		return c.JSON(fiber.Map{"ready": true})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	if err := h.redis.Ping(ctx); err != nil {
		h.logger.Warn("Redis readiness check failed", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"ready":   false,
			"message": "Redis not available",
		})
	}

	return c.JSON(fiber.Map{"ready": true})
}

// Metrics returns the in-process counters
func (h *HealthHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(h.metrics.GetSnapshot())
}
