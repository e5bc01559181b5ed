package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/anef-maroc/pdfcp-backend/internal/http/response"
	pkgerrors "github.com/anef-maroc/pdfcp-backend/internal/pkg/errors"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/ctxutil"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
)

// TokenAuthenticator resolves a bearer token into an authenticated context.
type TokenAuthenticator interface {
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
}

type AuthMiddleware struct {
	log  *logger.Logger
	auth TokenAuthenticator
}

func NewAuthMiddleware(log *logger.Logger, auth TokenAuthenticator) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), auth: auth}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", errMissingToken)
			c.Abort()
			return
		}
		ctx, err := am.auth.SetContextFromToken(c.Request.Context(), tokenString)
		if err != nil {
			if !errors.Is(err, pkgerrors.ErrUnauthorized) {
				am.log.Warn("token check failed", "error", err)
			}
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
			c.Abort()
			return
		}
		rd := ctxutil.GetRequestData(ctx)
		if rd == nil || rd.UserID == uuid.Nil {
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", errMissingToken)
			c.Abort()
			return
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func (am *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		if rd == nil || !rd.Scope.IsAdmin() {
			response.RespondError(c, http.StatusForbidden, "forbidden", errAdminOnly)
			c.Abort()
			return
		}
		c.Next()
	}
}

// EventSource cannot send headers; the stream passes ?token= instead.
func extractToken(c *gin.Context) string {
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
