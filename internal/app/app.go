package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/KeremKalyoncu/objstore/internal/circuitbreaker"
	"github.com/KeremKalyoncu/objstore/internal/config"
	"github.com/KeremKalyoncu/objstore/internal/handlers"
	"github.com/KeremKalyoncu/objstore/internal/metrics"
	"github.com/KeremKalyoncu/objstore/internal/queue"
	"github.com/KeremKalyoncu/objstore/internal/retry"
	"github.com/KeremKalyoncu/objstore/pkg/storage"
)

// StorageStack is the configured driver plus its decorators
type StorageStack struct {
	// Storage is the outermost layer; callers use this one
	Storage storage.Storage

	Resilient *storage.Resilient

	// Resolver maps public URLs back to keys for the active driver
	Resolver storage.KeyResolver

	// Local is set only for the local driver
	Local *storage.LocalStorage
}

// NewStorage builds driver -> Resilient -> Metered from cfg
func NewStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (*StorageStack, error) {
	var (
		driver   storage.Storage
		resolver storage.KeyResolver
		local    *storage.LocalStorage
		bucket   string
	)

	switch cfg.Storage.Driver {
	case config.DriverLocal:
		ls, err := storage.NewLocalStorage(cfg.Storage.LocalPath, cfg.Storage.LocalPublicURL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local storage: %w", err)
		}
		driver, resolver, local = ls, ls, ls

	default:
		s3Storage, err := storage.NewS3Storage(ctx, storage.Config{
			Endpoint:     cfg.Storage.Endpoint,
			Region:       cfg.Storage.Region,
			Bucket:       cfg.Storage.Bucket,
			AccessKey:    cfg.Storage.AccessKey,
			SecretKey:    cfg.Storage.SecretKey,
			UsePathStyle: cfg.Storage.UsePathStyle,
			PartSize:     cfg.Storage.PartSize,
			Logger:       logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		driver, resolver = s3Storage, s3Storage
		bucket = s3Storage.Bucket()
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = cfg.Resilience.MaxAttempts
	retryCfg.InitialDelay = cfg.Resilience.InitialDelay
	retryCfg.MaxDelay = cfg.Resilience.MaxDelay

	resilient := storage.NewResilient(driver, storage.ResilienceConfig{
		Retry:          retryCfg,
		BreakerEnabled: cfg.Resilience.BreakerEnabled,
		Breaker:        circuitbreaker.Config{Timeout: cfg.Resilience.BreakerTimeout},
		Logger:         logger,
	})

	logger.Info("Storage initialized",
		zap.String("driver", cfg.Storage.Driver),
		zap.String("bucket", bucket),
		zap.String("endpoint", cfg.Storage.Endpoint),
		zap.Int("max_attempts", cfg.Resilience.MaxAttempts),
		zap.Bool("breaker", cfg.Resilience.BreakerEnabled),
	)

	return &StorageStack{
		Storage:   storage.NewMetered(resilient, m),
		Resilient: resilient,
		Resolver:  resolver,
		Local:     local,
	}, nil
}

// Container holds all application dependencies
type Container struct {
	Config        *config.Config
	Logger        *zap.Logger
	Metrics       *metrics.Metrics
	Storage       *StorageStack
	QueueClient   *queue.Client // nil when REDIS_ADDR is unset
	ObjectHandler *handlers.ObjectHandler
	HealthHandler *handlers.HealthHandler
}

// NewContainer creates and initializes a new application container
func NewContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	m := metrics.GetMetrics()

	stack, err := NewStorage(ctx, cfg, logger, m)
	if err != nil {
		return nil, err
	}

	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: m,
		Storage: stack,
	}

	// Typed nils must not leak into the handler interfaces
	var (
		scheduler handlers.DeleteScheduler
		pinger    handlers.Pinger
	)
	if cfg.Queue.RedisAddr != "" {
		c.QueueClient = queue.NewClient(queue.ClientConfig{
			RedisAddr:     cfg.Queue.RedisAddr,
			RedisPassword: cfg.Queue.RedisPassword,
			MaxRetry:      cfg.Queue.MaxRetry,
			Logger:        logger,
		})
		scheduler, pinger = c.QueueClient, c.QueueClient

		logger.Info("Deferred deletion enabled", zap.String("redis_addr", cfg.Queue.RedisAddr))
	}

	c.ObjectHandler = handlers.NewObjectHandler(stack.Storage, scheduler, m, logger).
		WithKeyResolver(stack.Resolver)
	c.HealthHandler = handlers.NewHealthHandler(pinger, m, logger)

	return c, nil
}

// Close closes all resources
func (c *Container) Close() error {
	c.Logger.Info("Closing application container")

	if c.QueueClient != nil {
		return c.QueueClient.Close()
	}

	return nil
}
