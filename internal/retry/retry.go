package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// Config holds retry configuration
type Config struct {
	// MaxAttempts is the maximum number of attempts (including initial attempt)
	MaxAttempts int
	// InitialDelay is the delay before first retry
	InitialDelay time.Duration
	// MaxDelay is the maximum delay between retries
	MaxDelay time.Duration
	// Multiplier is the backoff multiplier
	Multiplier float64
	// Jitter is the fraction of the delay that is randomized, 0.0 to 1.0
	Jitter float64
	// Retryable reports whether err should be retried
	Retryable func(err error) bool
	// OnRetry is called before each retry attempt
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultConfig returns the default retry configuration
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.3,
	}
}

// permanentError marks an error that must not be retried
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so Retry returns it immediately
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry executes fn with exponential backoff. The returned error is the
// last one fn produced, or the context error if ctx ends first.
func Retry(ctx context.Context, config Config, fn func() error) error {
	config = normalize(config)

	var lastErr error

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}

		lastErr = err

		if !config.Retryable(err) || attempt >= config.MaxAttempts {
			break
		}

		delay := calculateDelay(attempt, config)

		if config.OnRetry != nil {
			config.OnRetry(attempt, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		}
	}

	return lastErr
}

func normalize(config Config) Config {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.Multiplier < 1 {
		config.Multiplier = 2.0
	}
	if config.Jitter < 0 {
		config.Jitter = 0
	}
	if config.Jitter > 1 {
		config.Jitter = 1
	}
	if config.Retryable == nil {
		config.Retryable = func(err error) bool { return err != nil }
	}
	return config
}

// calculateDelay returns initialDelay * multiplier^(attempt-1), capped at
// MaxDelay, spread by +/- Jitter.
func calculateDelay(attempt int, config Config) time.Duration {
	backoff := float64(config.InitialDelay) * math.Pow(config.Multiplier, float64(attempt-1))

	if backoff > float64(config.MaxDelay) {
		backoff = float64(config.MaxDelay)
	}

	if config.Jitter > 0 {
		jitterAmount := backoff * config.Jitter
		backoff = backoff - jitterAmount + (rand.Float64() * jitterAmount * 2)
	}

	return time.Duration(backoff)
}

// Do is a simple retry function with default config
func Do(ctx context.Context, fn func() error) error {
	return Retry(ctx, DefaultConfig(), fn)
}
