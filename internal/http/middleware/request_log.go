package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anef-maroc/pdfcp-backend/internal/platform/ctxutil"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
)

// RequestLogger writes one access line per request. Health probes log at debug.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	log = log.With("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := routeOf(c)
		kv := append([]any{
			"method", c.Request.Method,
			"path", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}, ctxutil.LogFields(c.Request.Context())...)
		if len(c.Errors) > 0 {
			kv = append(kv, "error", c.Errors.Last().Error())
		}

		switch {
		case status >= 500:
			log.Error("request", kv...)
		case status >= 400:
			log.Warn("request", kv...)
		case isProbe(route):
			log.Debug("request", kv...)
		default:
			log.Info("request", kv...)
		}
	}
}

func routeOf(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}

func isProbe(route string) bool {
	switch route {
	case "/health", "/healthcheck", "/api/health":
		return true
	}
	return false
}
