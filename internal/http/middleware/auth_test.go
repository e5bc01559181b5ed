package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	pkgerrors "github.com/anef-maroc/pdfcp-backend/internal/pkg/errors"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/ctxutil"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
	"github.com/anef-maroc/pdfcp-backend/internal/rbac"
)

type stubAuth map[string]*ctxutil.RequestData

func (s stubAuth) SetContextFromToken(ctx context.Context, token string) (context.Context, error) {
	rd, ok := s[token]
	if !ok {
		return nil, fmt.Errorf("%w: invalid token", pkgerrors.ErrUnauthorized)
	}
	return ctxutil.WithRequestData(ctx, rd), nil
}

func authRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	am := NewAuthMiddleware(logger.NewNop(), stubAuth{
		"admin-token": {UserID: uuid.New(), Scope: rbac.UserScope{Level: rbac.ScopeAdmin}},
		"adp-token":   {UserID: uuid.New(), Scope: rbac.UserScope{Level: rbac.ScopeLocal}},
	})
	r := gin.New()
	protected := r.Group("/api", am.RequireAuth())
	protected.GET("/me", func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		c.String(http.StatusOK, string(rd.Scope.Level))
	})
	protected.GET("/admin", am.RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func call(r http.Handler, path, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuth(t *testing.T) {
	r := authRouter()
	cases := []struct {
		name, path, header string
		want               int
	}{
		{"missing", "/api/me", "", http.StatusUnauthorized},
		{"not bearer", "/api/me", "Basic abc", http.StatusUnauthorized},
		{"unknown token", "/api/me", "Bearer nope", http.StatusUnauthorized},
		{"bearer", "/api/me", "Bearer adp-token", http.StatusOK},
		{"lowercase scheme", "/api/me", "bearer adp-token", http.StatusOK},
		{"query token", "/api/me?token=adp-token", "", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := call(r, tc.path, tc.header)
			assert.Equal(t, tc.want, rec.Code)
			if tc.want == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), `"code":"unauthorized"`)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	r := authRouter()
	assert.Equal(t, http.StatusNoContent, call(r, "/api/admin", "Bearer admin-token").Code)

	rec := call(r, "/api/admin", "Bearer adp-token")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"forbidden"`)
}
