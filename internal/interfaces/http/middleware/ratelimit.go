package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arledger/backend/internal/interfaces/http/dto"
)

// RateLimiter is an in-memory token bucket limiter keyed by caller.
// Each key gets `limit` tokens that refill continuously over `window`.
type RateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	limit    float64
	rate     float64 // tokens per second
	window   time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing `limit` requests per window
// and starts a background sweep of idle buckets.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   float64(limit),
		rate:    float64(limit) / window.Seconds(),
		window:  window,
		stop:    make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

// Stop terminates the background sweep. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stop)
	})
}

// sweep drops buckets that have been idle long enough to be full again
func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(rl.window * 2)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-2 * rl.window)
			rl.mu.Lock()
			for key, b := range rl.buckets {
				if b.lastSeen.Before(cutoff) {
					delete(rl.buckets, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// refill tops up a bucket for the time elapsed since it was last seen.
// Callers must hold the mutex.
func (rl *RateLimiter) refill(b *bucket, now time.Time) {
	b.tokens += rl.rate * now.Sub(b.lastSeen).Seconds()
	if b.tokens > rl.limit {
		b.tokens = rl.limit
	}
	b.lastSeen = now
}

// Allow consumes one token for the key, reporting whether one was
// available
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: rl.limit, lastSeen: now}
		rl.buckets[key] = b
	} else {
		rl.refill(b, now)
	}

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Remaining returns the whole tokens currently available for the key
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok {
		return int(rl.limit)
	}
	rl.refill(b, time.Now())
	return int(b.tokens)
}

// RateLimit limits requests per client IP, or per actor when the
// actor header is present.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if actorID := c.GetHeader("X-Actor-ID"); actorID != "" {
			key = actorID + ":" + key
		}

		if !limiter.Allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				dto.NewErrorResponse("RATE_LIMIT_EXCEEDED", "Too many requests. Please try again later."))
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(int(limiter.limit)))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(key)))
		c.Next()
	}
}
