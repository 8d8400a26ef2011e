package config

import (
	"strconv"
	"time"

	"salonportal-backend/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const slowRequestThreshold = 200 * time.Millisecond

// PerformanceLogger tags each request with an X-Request-ID, stores a
// request-scoped logger under "logger", and records timing.
func PerformanceLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header("X-Request-ID", requestID)

		reqLog := Log().With(zap.String("request_id", requestID))
		c.Set("logger", reqLog)

		c.Next()

		latency := time.Since(start)
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()

		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(latency.Seconds())

		reqLog.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)

		if latency > slowRequestThreshold {
			reqLog.Warn("Slow request",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Duration("latency", latency))
		}
	}
}

// RequestLogger returns the logger stored by PerformanceLogger, or the
// global one outside a request.
func RequestLogger(c *gin.Context) *zap.Logger {
	if l, ok := c.Get("logger"); ok {
		if zl, ok := l.(*zap.Logger); ok {
			return zl
		}
	}
	return Log()
}
