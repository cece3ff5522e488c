// internal/middleware/logging_middleware.go
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"printer-service/internal/utils"
)

// LoggingMiddleware logs every API request with its request id. Probe
// paths are skipped unless they fail.
func LoggingMiddleware(logger *zap.Logger, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]bool, len(skipPaths))
	for _, path := range skipPaths {
		skip[path] = true
	}

	return func(c *gin.Context) {
		startTime := time.Now()
		path := c.Request.URL.Path
		c.Next()

		status := c.Writer.Status()
		if skip[path] && status < 400 {
			return
		}

		requestLogger := utils.NewServiceLogger(
			utils.LoggerWithRequestID(logger, utils.GetRequestID(c)),
			"http-server",
		)
		requestLogger.LogAPIRequest(
			c.Request.Method,
			path,
			c.Request.UserAgent(),
			c.ClientIP(),
			status,
			time.Since(startTime),
		)
	}
}
