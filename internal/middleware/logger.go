package middleware

import (
	"net/http"
	"strconv"
	"time"

	"VoiceTaskManager_Backend/internal/metrics"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLogger writes one line per request and feeds the HTTP metrics.
func RequestLogger(logger *zap.Logger, collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		if collector != nil {
			collector.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
			collector.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(elapsed.Seconds())
		}

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", elapsed),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", GetRequestID(c)),
		}
		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("RequestLogger(): request failed", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("RequestLogger(): request rejected", fields...)
		default:
			logger.Info("RequestLogger(): request served", fields...)
		}
	}
}

// Recovery turns a panic into the uniform JSON error body.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("Recovery(): panic in handler",
			zap.Any("panic", recovered),
			zap.String("request_id", GetRequestID(c)),
			zap.Stack("stack"))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	})
}
