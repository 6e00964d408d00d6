package middlewares

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

// RequestID honors an inbound X-Request-Id so a gateway-assigned id survives,
// and mints one otherwise.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Writer.Header().Set(requestIDHeader, id)
		c.Set(CtxRequestID, id)

		c.Next()
	}
}

// RequestLogger emits one structured line per request after the handler ran.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}

	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		// prefer the route pattern over the raw path so ids don't explode
		// the log cardinality; unmatched paths (404) have no pattern
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		attrs := []any{
			"method", c.Request.Method,
			"route", route,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}

		if id, ok := c.Get(CtxRequestID); ok {
			attrs = append(attrs, "request_id", id)
		}

		if jobID := c.GetString(CtxJobID); jobID != "" {
			attrs = append(attrs, "job_id", jobID)
		}

		log.InfoContext(c.Request.Context(), "http_request", attrs...)
	}
}
