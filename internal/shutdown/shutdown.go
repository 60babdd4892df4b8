package shutdown

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

type hook struct {
	name string
	fn   func(ctx context.Context) error
}

// GracefulShutdown runs registered cleanup hooks once a stop signal arrives
type GracefulShutdown struct {
	logger  *zap.Logger
	timeout time.Duration
	hooks   []hook
}

// NewGracefulShutdown creates a shutdown handler
func NewGracefulShutdown(logger *zap.Logger, timeout time.Duration) *GracefulShutdown {
	return &GracefulShutdown{
		logger:  logger,
		timeout: timeout,
	}
}

// Register adds a cleanup hook. Hooks run in registration order.
func (gs *GracefulShutdown) Register(name string, fn func(ctx context.Context) error) {
	gs.hooks = append(gs.hooks, hook{name: name, fn: fn})
}

// Wait blocks until SIGINT or SIGTERM, or until ctx is done, then runs
// every hook
func (gs *GracefulShutdown) Wait(ctx context.Context) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		gs.logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
	case <-ctx.Done():
		gs.logger.Info("Shutdown requested")
	}

	gs.Shutdown()
}

// Shutdown runs every hook under a shared timeout. A failing hook is logged
// and does not stop the rest.
func (gs *GracefulShutdown) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), gs.timeout)
	defer cancel()

	for _, h := range gs.hooks {
		gs.logger.Info("Executing cleanup hook", zap.String("hook", h.name))

		if err := h.fn(ctx); err != nil {
			gs.logger.Error("Cleanup hook failed",
				zap.String("hook", h.name),
				zap.Error(err),
			)
		}
	}

	gs.logger.Info("Graceful shutdown completed")
}
