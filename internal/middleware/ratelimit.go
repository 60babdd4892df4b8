package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/KeremKalyoncu/objstore/internal/errors"
)

// RateLimiter implements fixed-window rate limiting per client IP
type RateLimiter struct {
	clients map[string]*clientBucket
	mu      sync.Mutex
	rate    int           // requests per window
	window  time.Duration // time window
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

type clientBucket struct {
	tokens     int
	lastRefill time.Time
}

// NewRateLimiter creates a rate limiter (e.g., 60 requests per minute).
// Call Close to stop the cleanup goroutine.
func NewRateLimiter(requestsPerWindow int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*clientBucket),
		rate:    requestsPerWindow,
		window:  window,
		now:     time.Now,
		stop:    make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// Middleware returns Fiber middleware function
func (rl *RateLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !rl.allow(c.IP()) {
			c.Set(fiber.HeaderRetryAfter, fmtSeconds(rl.window))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"code":        apperrors.ErrRateLimited.Code,
				"error":       apperrors.ErrRateLimited.Message,
				"retry_after": int(rl.window.Seconds()),
			})
		}

		return c.Next()
	}
}

// Close stops the cleanup goroutine
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.stop) })
}

// allow checks if client can make a request
func (rl *RateLimiter) allow(clientID string) bool {
	if rl.rate <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	bucket, exists := rl.clients[clientID]
	if !exists {
		bucket = &clientBucket{
			tokens:     rl.rate,
			lastRefill: now,
		}
		rl.clients[clientID] = bucket
	}

	if now.Sub(bucket.lastRefill) >= rl.window {
		bucket.tokens = rl.rate
		bucket.lastRefill = now
	}

	if bucket.tokens > 0 {
		bucket.tokens--
		return true
	}

	return false
}

// cleanup removes stale client entries
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evict()
		case <-rl.stop:
			return
		}
	}
}

func (rl *RateLimiter) evict() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for clientID, bucket := range rl.clients {
		if now.Sub(bucket.lastRefill) > 2*rl.window {
			delete(rl.clients, clientID)
		}
	}
}

func fmtSeconds(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
