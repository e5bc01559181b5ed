package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/anef-maroc/pdfcp-backend/internal/http/response"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
	"github.com/anef-maroc/pdfcp-backend/internal/services"
)

type AuthHandler struct {
	log         *logger.Logger
	authService services.AuthService
}

func NewAuthHandler(log *logger.Logger, authService services.AuthService) *AuthHandler {
	return &AuthHandler{log: log.With("handler", "AuthHandler"), authService: authService}
}

// POST /api/auth/login
func (ah *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !bindJSON(c, &req) {
		return
	}
	res, err := ah.authService.Login(dbcOf(c), req.Email, req.Password)
	if err != nil {
		fail(c, ah.log, "Login", err)
		return
	}
	response.RespondOK(c, gin.H{
		"access_token": res.AccessToken,
		"token_type":   res.TokenType,
		"expires_at":   res.ExpiresAt,
		"expires_in":   int(ah.authService.GetAccessTTL().Seconds()),
		"profile":      res.Profile,
	})
}

// GET /api/auth/me
func (ah *AuthHandler) Me(c *gin.Context) {
	p, err := ah.authService.Me(dbcOf(c))
	if err != nil {
		fail(c, ah.log, "Me", err)
		return
	}
	response.RespondOK(c, p)
}
