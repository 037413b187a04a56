// Package middleware carries the request-scoped gin middleware: request id
// propagation, access logging, and panic recovery in the API envelope shape.
package middleware

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDKey is the gin context key the request id is stored under.
const RequestIDKey = "request_id"

const requestIDHeader = "X-Request-ID"

// RequestID honors an inbound X-Request-ID header or mints one, and echoes it
// on the response so callers can correlate log lines with job activity.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(RequestIDKey, requestID)
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

// Logger logs method, path, status, and latency per request. Health probes are
// skipped to keep the log readable under orchestrator polling.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/healthz" || path == "/readyz" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		log.Printf("[%s] %s %s %d %s",
			c.GetString(RequestIDKey),
			c.Request.Method,
			path,
			c.Writer.Status(),
			latency,
		)
	}
}

// Recovery converts panics into a 500 response in the standard envelope
// instead of gin's plain-text default, keeping the request id in the log line.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Printf("[%s] panic recovered: %v", c.GetString(RequestIDKey), recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "an internal error occurred",
			},
		})
	})
}
