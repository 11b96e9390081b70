package gateway

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hupe1980/botgate/logging"
)

// RequestIDHeader carries the request ID on both requests and responses.
// Incoming values are trusted and echoed back; otherwise a fresh UUID is
// assigned.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "botgate.request_id"

// RequestID returns middleware that assigns each request a correlation ID and
// exposes it on the response headers.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(requestIDKey, id)
		c.Writer.Header().Set(RequestIDHeader, id)

		c.Next()
	}
}

// RequestIDFrom returns the correlation ID assigned by the RequestID
// middleware, or an empty string when the middleware is not installed.
func RequestIDFrom(c *gin.Context) string {
	if id, ok := c.Get(requestIDKey); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}

	return ""
}

// AccessLog returns middleware that emits one structured log line per
// completed request.
func AccessLog(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info("gateway.request.completed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", RequestIDFrom(c),
		)
	}
}
