package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"github.com/KeremKalyoncu/objstore/internal/app"
	"github.com/KeremKalyoncu/objstore/internal/config"
	"github.com/KeremKalyoncu/objstore/internal/logger"
	"github.com/KeremKalyoncu/objstore/internal/shutdown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	zapLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatal("Failed to initialize logger: ", err)
	}
	defer zapLogger.Sync()

	container, err := app.NewContainer(context.Background(), cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize application", zap.Error(err))
	}

	server, rateLimiter := container.NewHTTPServer()

	if cfg.API.Key == "" {
		zapLogger.Warn("API_KEY is not set; /api/v1 is unauthenticated")
	}

	serveErr := make(chan error, 1)
	go func() {
		zapLogger.Info("API server listening", zap.String("address", cfg.API.Address()))
		serveErr <- server.Listen(cfg.API.Address())
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := <-serveErr; err != nil {
			zapLogger.Error("API server stopped", zap.Error(err))
		}
		cancel()
	}()

	gs := shutdown.NewGracefulShutdown(zapLogger, cfg.API.WriteTimeout)
	gs.Register("http", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})
	gs.Register("ratelimiter", func(ctx context.Context) error {
		rateLimiter.Close()
		return nil
	})
	gs.Register("container", func(ctx context.Context) error {
		return container.Close()
	})

	gs.Wait(ctx)
}
