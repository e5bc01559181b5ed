package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type correlationKey struct{}

// Correlation holds the ids that tie a log line back to one HTTP request.
type Correlation struct {
	TraceID   string
	RequestID string
}

func WithCorrelation(ctx context.Context, c Correlation) context.Context {
	return context.WithValue(Default(ctx), correlationKey{}, c)
}

func GetCorrelation(ctx context.Context) (Correlation, bool) {
	if ctx == nil {
		return Correlation{}, false
	}
	c, ok := ctx.Value(correlationKey{}).(Correlation)
	return c, ok
}

// LogFields returns key/value pairs for the request ids and the caller, if known.
func LogFields(ctx context.Context) []any {
	var kv []any
	if c, ok := GetCorrelation(ctx); ok {
		if c.TraceID != "" {
			kv = append(kv, "trace_id", c.TraceID)
		}
		if c.RequestID != "" {
			kv = append(kv, "request_id", c.RequestID)
		}
	}
	if rd := GetRequestData(ctx); rd != nil && rd.UserID != uuid.Nil {
		kv = append(kv, "user_id", rd.UserID.String(), "scope_level", string(rd.Scope.Level))
	}
	return kv
}
