package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errTransient = errors.New("transient")

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastConfig(3), func() error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ReturnsLastErrorWhenExhausted(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastConfig(2), func() error {
		calls++
		return errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 2, calls)
}

func TestRetry_SingleAttemptByDefault(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), Config{}, func() error {
		calls++
		return errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, calls)
}

func TestRetry_StopsOnNonRetryable(t *testing.T) {
	cfg := fastConfig(5)
	cfg.Retryable = func(err error) bool { return !errors.Is(err, errTransient) }

	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		return errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, calls)
}

func TestRetry_PermanentIsUnwrapped(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastConfig(5), func() error {
		calls++
		return Permanent(errTransient)
	})

	assert.Equal(t, errTransient, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_OnRetryCallback(t *testing.T) {
	cfg := fastConfig(3)
	var attempts []int
	cfg.OnRetry = func(attempt int, delay time.Duration, err error) {
		attempts = append(attempts, attempt)
	}

	_ = Retry(context.Background(), cfg, func() error { return errTransient })

	assert.Equal(t, []int{1, 2}, attempts)
}

func TestRetry_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Retry(ctx, fastConfig(3), func() error {
		calls++
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestCalculateDelay_CappedAtMax(t *testing.T) {
	cfg := normalize(Config{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     300 * time.Millisecond,
		Multiplier:   2,
	})

	assert.Equal(t, 100*time.Millisecond, calculateDelay(1, cfg))
	assert.Equal(t, 200*time.Millisecond, calculateDelay(2, cfg))
	assert.Equal(t, 300*time.Millisecond, calculateDelay(5, cfg))
}

func TestCalculateDelay_JitterBounds(t *testing.T) {
	cfg := normalize(Config{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2,
		Jitter:       0.5,
	})

	for i := 0; i < 50; i++ {
		d := calculateDelay(1, cfg)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}
