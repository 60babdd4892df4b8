package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	apperrors "github.com/KeremKalyoncu/objstore/internal/errors"
)

// Storage drivers
const (
	DriverS3    = "s3"
	DriverLocal = "local"
)

// Config holds all application configuration
type Config struct {
	// Object storage
	Storage StorageConfig

	// Retry / circuit breaking around storage calls
	Resilience ResilienceConfig

	// HTTP API
	API APIConfig

	// Deferred deletion queue
	Queue QueueConfig

	// Logging
	Logger LoggerConfig
}

// StorageConfig holds S3-compatible storage configuration.
// The env names follow the deployment this service replaced; STORAGE_BUCKET
// carries the endpoint URL, not the bucket.
type StorageConfig struct {
	Driver       string // s3, local
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
	PartSize     int64

	LocalPath      string
	LocalPublicURL string
}

// ResilienceConfig holds retry and circuit breaker settings
type ResilienceConfig struct {
	MaxAttempts    int // 1 disables retry
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	BreakerEnabled bool
	BreakerTimeout time.Duration
}

// APIConfig holds API server configuration
type APIConfig struct {
	Port         int
	Host         string
	Key          string // empty disables auth
	BodyLimitMB  int
	RateLimit    int // requests per minute per IP
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// QueueConfig holds asynq/Redis settings. An empty RedisAddr disables
// deferred deletes.
type QueueConfig struct {
	RedisAddr       string
	RedisPassword   string
	Concurrency     int
	MaxRetry        int
	ShutdownTimeout time.Duration
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string // debug, info, warn, error
	Format     string // json, text
	FileName   string // empty logs to stdout only
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	// Development switches to zap's colored debug console logger
	Development bool
}

// Load reads an optional .env file and then the process environment.
// Missing storage credentials are not an error here; the first storage
// call reports them.
func Load() (*Config, error) {
	// A missing .env is the normal case in containers.
	_ = godotenv.Load()

	cfg := &Config{
		Storage: StorageConfig{
			Driver:         getEnv("STORAGE_DRIVER", DriverS3),
			Endpoint:       getEnv("STORAGE_BUCKET", ""),
			Region:         getEnv("S3_REGION", "us-east-1"),
			Bucket:         getEnv("BUCKET_NAME", ""),
			AccessKey:      getEnv("AWS_ACCESS_KEY", ""),
			SecretKey:      getEnv("AWS_SECRET_KEY", ""),
			UsePathStyle:   getEnvBool("S3_USE_PATH_STYLE", true),
			PartSize:       getEnvInt64("S3_PART_SIZE", 5*1024*1024),
			LocalPath:      getEnv("LOCAL_STORAGE_PATH", "./data"),
			LocalPublicURL: getEnv("LOCAL_PUBLIC_URL", "http://localhost:8080/files"),
		},
		Resilience: ResilienceConfig{
			MaxAttempts:    getEnvInt("STORAGE_RETRY_MAX_ATTEMPTS", 1),
			InitialDelay:   getEnvDuration("STORAGE_RETRY_INITIAL_DELAY", 200*time.Millisecond),
			MaxDelay:       getEnvDuration("STORAGE_RETRY_MAX_DELAY", 5*time.Second),
			BreakerEnabled: getEnvBool("STORAGE_BREAKER_ENABLED", false),
			BreakerTimeout: getEnvDuration("STORAGE_BREAKER_TIMEOUT", 30*time.Second),
		},
		API: APIConfig{
			Port:         getEnvInt("API_PORT", 8080),
			Host:         getEnv("API_HOST", "0.0.0.0"),
			Key:          getEnv("API_KEY", ""),
			BodyLimitMB:  getEnvInt("API_BODY_LIMIT_MB", 100),
			RateLimit:    getEnvInt("API_RATE_LIMIT", 60),
			ReadTimeout:  getEnvDuration("API_READ_TIMEOUT", 2*time.Minute),
			WriteTimeout: getEnvDuration("API_WRITE_TIMEOUT", 2*time.Minute),
		},
		Queue: QueueConfig{
			RedisAddr:       getEnv("REDIS_ADDR", ""),
			RedisPassword:   getEnv("REDIS_PASSWORD", ""),
			Concurrency:     getEnvInt("WORKER_CONCURRENCY", 4),
			MaxRetry:        getEnvInt("DELETE_MAX_RETRY", 5),
			ShutdownTimeout: getEnvDuration("WORKER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Logger: LoggerConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			FileName:   getEnv("LOG_FILE", ""),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 30),

			Development: getEnvBool("LOG_DEVELOPMENT", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate rejects values no component can work with
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverS3, DriverLocal:
	default:
		return invalid("STORAGE_DRIVER must be %q or %q, got %q", DriverS3, DriverLocal, c.Storage.Driver)
	}

	if c.Storage.Driver == DriverLocal && c.Storage.LocalPath == "" {
		return invalid("LOCAL_STORAGE_PATH is required for the local driver")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		return invalid("API_PORT must be between 1 and 65535, got %d", c.API.Port)
	}

	if c.Resilience.MaxAttempts < 1 {
		return invalid("STORAGE_RETRY_MAX_ATTEMPTS must be >= 1")
	}

	if c.Queue.Concurrency < 1 {
		return invalid("WORKER_CONCURRENCY must be >= 1")
	}

	return nil
}

func invalid(format string, args ...interface{}) error {
	return apperrors.ErrConfigInvalid.Wrap(fmt.Errorf(format, args...))
}

// Address returns the host:port the API listens on
func (c APIConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
