package main

import (
	"context"
	"log"

	"go.uber.org/zap"

	"github.com/KeremKalyoncu/objstore/internal/app"
	"github.com/KeremKalyoncu/objstore/internal/config"
	"github.com/KeremKalyoncu/objstore/internal/logger"
	"github.com/KeremKalyoncu/objstore/internal/metrics"
	"github.com/KeremKalyoncu/objstore/internal/queue"
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

	if cfg.Queue.RedisAddr == "" {
		zapLogger.Fatal("REDIS_ADDR is required for the worker")
	}

	zapLogger.Info("Starting deferred deletion worker",
		zap.String("redis_addr", cfg.Queue.RedisAddr),
		zap.Int("concurrency", cfg.Queue.Concurrency),
	)

	stack, err := app.NewStorage(context.Background(), cfg, zapLogger, metrics.GetMetrics())
	if err != nil {
		zapLogger.Fatal("Failed to initialize storage", zap.Error(err))
	}

	workerServer := queue.NewServer(queue.ServerConfig{
		RedisAddr:       cfg.Queue.RedisAddr,
		RedisPassword:   cfg.Queue.RedisPassword,
		Concurrency:     cfg.Queue.Concurrency,
		ShutdownTimeout: cfg.Queue.ShutdownTimeout,
		Storage:         stack.Storage,
		Logger:          zapLogger,
	})

	if err := workerServer.Start(); err != nil {
		zapLogger.Fatal("Failed to start worker server", zap.Error(err))
	}

	gs := shutdown.NewGracefulShutdown(zapLogger, cfg.Queue.ShutdownTimeout)
	gs.Register("worker", func(ctx context.Context) error {
		workerServer.Shutdown()
		return nil
	})

	gs.Wait(context.Background())
}
