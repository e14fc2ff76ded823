package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter manages rate limiting for API requests
type RateLimiter struct {
	limiters map[string]*limiterEntry
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(rps int, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

// getLimiter returns a rate limiter for a specific key
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.limiters[key]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// Prune removes limiters idle for longer than ttl
func (rl *RateLimiter) Prune(ttl time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	cutoff := time.Now().Add(-ttl)
	for key, entry := range rl.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
			removed++
		}
	}
	return removed
}

// Cleanup prunes idle limiters until ctx is done
func (rl *RateLimiter) Cleanup(ctx context.Context) {
	ticker := time.NewTicker(limiterIdleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Prune(limiterIdleTTL)
		}
	}
}

// Allow reports whether the request may proceed, keyed by owner or client IP.
// A rejected request is answered with 429 and aborted.
func (rl *RateLimiter) Allow(c *gin.Context) bool {
	var key string
	if ownerID, ok := GetOwnerID(c); ok {
		key = fmt.Sprintf("owner:%s", ownerID)
	} else {
		key = fmt.Sprintf("ip:%s", c.ClientIP())
	}

	if !rl.getLimiter(key).Allow() {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": "Rate limit exceeded",
		})
		return false
	}
	return true
}

// RateLimit middleware limits requests per owner or IP
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.Allow(c) {
			c.Next()
		}
	}
}

// QuotaChecker counts requests per key in a fixed window
type QuotaChecker interface {
	CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, error)
}

// Quota middleware caps expensive requests per owner across all API instances.
// A failing checker lets the request through.
func Quota(checker QuotaChecker, name string, limit int64, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID, exists := GetOwnerID(c)
		if !exists {
			c.Next()
			return
		}

		allowed, err := checker.CheckRateLimit(c.Request.Context(), fmt.Sprintf("%s:%s", name, ownerID), limit, window)
		if err == nil && !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Quota exceeded. Please try again later.",
			})
			return
		}

		c.Next()
	}
}
