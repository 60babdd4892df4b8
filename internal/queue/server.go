package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/KeremKalyoncu/objstore/pkg/storage"
)

// Server runs deferred deletions
type Server struct {
	asynq   *asynq.Server
	mux     *asynq.ServeMux
	storage storage.Storage
	logger  *zap.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	RedisAddr       string
	RedisPassword   string
	Concurrency     int
	ShutdownTimeout time.Duration
	Storage         storage.Storage
	Logger          *zap.Logger
}

// NewServer creates a new queue server
func NewServer(cfg ServerConfig) *Server {
	asynqServer := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword},
		asynq.Config{
			Concurrency:     cfg.Concurrency,
			ShutdownTimeout: cfg.ShutdownTimeout,
			Logger:          NewAsynqLogger(cfg.Logger),
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				cfg.Logger.Error("Task failed",
					zap.String("type", task.Type()),
					zap.Int("retried", retried),
					zap.Int("max_retry", maxRetry),
					zap.Error(err),
				)
			}),
		},
	)

	srv := &Server{
		asynq:   asynqServer,
		mux:     asynq.NewServeMux(),
		storage: cfg.Storage,
		logger:  cfg.Logger,
	}

	srv.mux.HandleFunc(TypeDeleteObject, srv.handleDeleteTask)

	return srv
}

// Start begins processing tasks in the background. It does not install
// signal handlers; call Shutdown to stop.
func (s *Server) Start() error {
	s.logger.Info("Starting worker server")
	return s.asynq.Start(s.mux)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() {
	s.logger.Info("Shutting down worker server")
	s.asynq.Shutdown()
}

func (s *Server) handleDeleteTask(ctx context.Context, task *asynq.Task) error {
	var payload DeletePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Key == "" {
		return fmt.Errorf("delete task without key: %w", asynq.SkipRetry)
	}

	s.logger.Info("Processing deferred delete",
		zap.String("key", payload.Key),
		zap.Time("requested_at", payload.RequestedAt),
	)

	if err := s.storage.Delete(ctx, payload.Key); err != nil {
		if !storage.IsRetryable(err) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	return nil
}

// AsynqLogger adapts zap.Logger to asynq.Logger interface
type AsynqLogger struct {
	logger *zap.Logger
}

func NewAsynqLogger(logger *zap.Logger) *AsynqLogger {
	return &AsynqLogger{logger: logger.WithOptions(zap.AddCallerSkip(1))}
}

func (l *AsynqLogger) Debug(args ...interface{}) {
	l.logger.Debug(fmt.Sprint(args...))
}

func (l *AsynqLogger) Info(args ...interface{}) {
	l.logger.Info(fmt.Sprint(args...))
}

func (l *AsynqLogger) Warn(args ...interface{}) {
	l.logger.Warn(fmt.Sprint(args...))
}

func (l *AsynqLogger) Error(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
}

func (l *AsynqLogger) Fatal(args ...interface{}) {
	l.logger.Fatal(fmt.Sprint(args...))
}
