package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	apperrors "github.com/KeremKalyoncu/objstore/internal/errors"
)

// Task types
const (
	TypeDeleteObject = "object:delete"
)

// DeletePayload is the body of an object:delete task
type DeletePayload struct {
	Key         string    `json:"key"`
	RequestedAt time.Time `json:"requested_at"`
}

// Client enqueues deferred deletions
type Client struct {
	asynq    *asynq.Client
	redis    *redis.Client
	maxRetry int
	logger   *zap.Logger
}

// ClientConfig holds client configuration
type ClientConfig struct {
	RedisAddr     string
	RedisPassword string
	MaxRetry      int
	Logger        *zap.Logger
}

// NewClient creates a new queue client. Connections are opened lazily.
func NewClient(cfg ClientConfig) *Client {
	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}

	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		PoolSize:     4,
		MaxRetries:   2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	return &Client{
		asynq:    asynq.NewClient(redisOpt),
		redis:    redisClient,
		maxRetry: cfg.MaxRetry,
		logger:   cfg.Logger,
	}
}

// EnqueueDelete schedules deletion of key after delay and returns the task ID
func (c *Client) EnqueueDelete(ctx context.Context, key string, delay time.Duration) (string, error) {
	if key == "" {
		return "", apperrors.ErrInvalidKey
	}

	task, err := newDeleteTask(key, time.Now())
	if err != nil {
		return "", apperrors.ErrQueueFailed.Wrap(err)
	}

	taskID := uuid.NewString()
	info, err := c.asynq.EnqueueContext(ctx, task,
		asynq.TaskID(taskID),
		asynq.ProcessIn(delay),
		asynq.MaxRetry(c.maxRetry),
		asynq.Timeout(time.Minute),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		c.logger.Error("Failed to enqueue delete",
			zap.String("key", key),
			zap.Error(err),
		)
		return "", apperrors.ErrQueueFailed.Wrap(err)
	}

	c.logger.Info("Delete enqueued",
		zap.String("task_id", info.ID),
		zap.String("key", key),
		zap.String("queue", info.Queue),
		zap.Duration("delay", delay),
	)

	return info.ID, nil
}

// Ping checks that Redis is reachable
func (c *Client) Ping(ctx context.Context) error {
	if err := c.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close releases both connections
func (c *Client) Close() error {
	asynqErr := c.asynq.Close()
	redisErr := c.redis.Close()
	if asynqErr != nil {
		return asynqErr
	}
	return redisErr
}

func newDeleteTask(key string, requestedAt time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(DeletePayload{Key: key, RequestedAt: requestedAt.UTC()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeDeleteObject, payload), nil
}
