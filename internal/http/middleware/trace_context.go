package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/anef-maroc/pdfcp-backend/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

// AttachTraceContext reuses the caller's ids when sent, then the active span, then a fresh uuid.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ids := ctxutil.Correlation{
			TraceID:   headerOr(c, headerTraceID, spanTraceID(c)),
			RequestID: headerOr(c, headerRequestID, ""),
		}
		c.Request = c.Request.WithContext(ctxutil.WithCorrelation(c.Request.Context(), ids))
		c.Header(headerTraceID, ids.TraceID)
		c.Header(headerRequestID, ids.RequestID)
		c.Next()
	}
}

func headerOr(c *gin.Context, name, fallback string) string {
	if v := strings.TrimSpace(c.GetHeader(name)); v != "" {
		return v
	}
	if fallback != "" {
		return fallback
	}
	return uuid.NewString()
}

func spanTraceID(c *gin.Context) string {
	sc := trace.SpanContextFromContext(c.Request.Context())
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
