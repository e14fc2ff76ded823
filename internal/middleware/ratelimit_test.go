package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/binyominzeev/vidfaq/internal/cache"
)

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := NewRateLimiter(2, 2) // 2 requests per second, burst of 2

	router := gin.New()
	router.Use(RateLimit(rl))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	// First two requests should succeed
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/test", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	// Third request should be rate limited
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// Another client has its own bucket
	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "10.0.0.9:1234"
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiterPrune(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.getLimiter("ip:a")
	rl.getLimiter("ip:b")

	assert.Equal(t, 0, rl.Prune(time.Hour))
	assert.Equal(t, 2, rl.Prune(-time.Second))
	assert.Empty(t, rl.limiters)
}

func withOwner(ownerID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(AuthContextKey, ownerID)
		c.Next()
	}
}

func TestQuota(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	c, err := cache.NewCache(mr.Host(), mr.Server().Addr().Port, "", 0)
	require.NoError(t, err)
	defer c.Close()

	router := gin.New()
	router.POST("/fetch", withOwner("owner-1"), Quota(c, "fetch", 2, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/fetch", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

type failingChecker struct{}

func (failingChecker) CheckRateLimit(context.Context, string, int64, time.Duration) (bool, error) {
	return false, errors.New("redis down")
}

func TestQuotaFailsOpen(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.POST("/fetch", withOwner("owner-1"), Quota(failingChecker{}, "fetch", 1, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/fetch", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
