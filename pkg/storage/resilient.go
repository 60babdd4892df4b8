package storage

import (
	"context"
	"errors"
	"io"
	"time"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"go.uber.org/zap"

	"github.com/KeremKalyoncu/objstore/internal/circuitbreaker"
	apperrors "github.com/KeremKalyoncu/objstore/internal/errors"
	"github.com/KeremKalyoncu/objstore/internal/retry"
)

// ResilienceConfig configures NewResilient. The zero value adds nothing:
// one attempt and no breaker.
type ResilienceConfig struct {
	Retry          retry.Config
	BreakerEnabled bool
	Breaker        circuitbreaker.Config
	Logger         *zap.Logger
}

// Resilient wraps a Storage with bounded retry and an optional circuit breaker
type Resilient struct {
	inner   Storage
	retry   retry.Config
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewResilient wraps inner
func NewResilient(inner Storage, cfg ResilienceConfig) *Resilient {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Resilient{
		inner:  inner,
		retry:  cfg.Retry,
		logger: logger,
	}

	if r.retry.Retryable == nil {
		r.retry.Retryable = IsRetryable
	}
	if r.retry.OnRetry == nil {
		r.retry.OnRetry = func(attempt int, delay time.Duration, err error) {
			logger.Warn("Retrying storage call",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
		}
	}

	if cfg.BreakerEnabled {
		bcfg := cfg.Breaker
		if bcfg.IsSuccessful == nil {
			// Bad input says nothing about the service's health
			bcfg.IsSuccessful = func(err error) bool { return err == nil || !IsRetryable(err) }
		}
		if bcfg.OnStateChange == nil {
			bcfg.OnStateChange = func(name string, from, to circuitbreaker.State) {
				logger.Warn("Circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			}
		}
		r.breaker = circuitbreaker.NewCircuitBreaker("storage", bcfg)
	}

	return r
}

// Store retries only when body can be rewound; a plain stream gets one attempt
func (r *Resilient) Store(ctx context.Context, body io.Reader, name string) (*Object, error) {
	cfg := r.retry

	seeker, seekable := body.(io.Seeker)
	var start int64
	if seekable {
		offset, err := seeker.Seek(0, io.SeekCurrent)
		if err != nil {
			seekable = false
		}
		start = offset
	}
	if !seekable {
		cfg.MaxAttempts = 1
	}

	var obj *Object
	attempts := 0

	err := r.guard(ctx, func() error {
		return retry.Retry(ctx, cfg, func() error {
			if attempts > 0 {
				if _, err := seeker.Seek(start, io.SeekStart); err != nil {
					return retry.Permanent(err)
				}
			}
			attempts++

			o, err := r.inner.Store(ctx, body, name)
			if err != nil {
				return err
			}
			obj = o
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return obj, nil
}

// Delete retries transient failures of inner.Delete
func (r *Resilient) Delete(ctx context.Context, key string) error {
	return r.guard(ctx, func() error {
		return retry.Retry(ctx, r.retry, func() error {
			return r.inner.Delete(ctx, key)
		})
	})
}

// BreakerState reports the breaker state, or closed when none is configured
func (r *Resilient) BreakerState() circuitbreaker.State {
	if r.breaker == nil {
		return circuitbreaker.StateClosed
	}
	return r.breaker.State()
}

func (r *Resilient) guard(ctx context.Context, fn func() error) error {
	if r.breaker == nil {
		return fn()
	}

	err := r.breaker.Execute(ctx, fn)
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
		return apperrors.ErrStorageUnavailable.Wrap(err)
	}
	return err
}

// IsRetryable reports whether a storage error may succeed on a later attempt.
// Invalid input, cancellation and 4xx responses (other than 408 and 429)
// are final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, apperrors.ErrInvalidName) ||
		errors.Is(err, apperrors.ErrInvalidKey) ||
		errors.Is(err, apperrors.ErrInvalidRequest) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		status := respErr.HTTPStatusCode()
		if status >= 400 && status < 500 && status != 408 && status != 429 {
			return false
		}
	}

	return true
}
