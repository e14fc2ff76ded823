package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/binyominzeev/vidfaq/internal/logging"
	"github.com/binyominzeev/vidfaq/internal/metrics"
	"github.com/binyominzeev/vidfaq/internal/tracing"
)

const (
	RequestIDHeader     = "X-Request-ID"
	RequestIDContextKey = "request_id"
	RouteContextKey     = "route"
)

// Logger middleware assigns a request ID, logs the request and records metrics
func Logger(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(RequestIDContextKey, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		endpoint := c.FullPath()
		if route := c.GetString(RouteContextKey); route != "" {
			endpoint = route
		}
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, endpoint, strconv.Itoa(status), latency.Seconds())

		logger.WithRequestID(requestID).LogHTTPRequest(
			c.Request.Method,
			c.Request.Host,
			c.Request.URL.Path,
			c.ClientIP(),
			status,
			latency,
		)
	}
}

// GetRequestID retrieves the request ID assigned by Logger
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDContextKey)
}

// Tracing middleware wraps each request in a server span
func Tracing() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := tracing.StartHTTPSpan(c.Request, c.Request.Method+" "+c.Request.URL.Path)
		defer tracing.FinishSpan(span)

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		tracing.SetTag(span, "http.status_code", c.Writer.Status())
		if ownerID, ok := GetOwnerID(c); ok {
			tracing.SetTag(span, "owner_id", ownerID)
		}
		if len(c.Errors) > 0 {
			tracing.LogError(span, c.Errors.Last())
		}
	}
}
