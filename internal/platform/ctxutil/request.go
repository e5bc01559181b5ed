package ctxutil

import (
	"context"

	"github.com/google/uuid"

	"github.com/anef-maroc/pdfcp-backend/internal/rbac"
)

type requestDataKey struct{}

// RequestData is the authenticated caller attached to a request context.
type RequestData struct {
	UserID   uuid.UUID
	FullName string
	Role     string
	Scope    rbac.UserScope
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(Default(ctx), requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		return rd
	}
	return nil
}
