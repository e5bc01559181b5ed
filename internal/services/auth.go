package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/anef-maroc/pdfcp-backend/internal/data/repos"
	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	pkgerrors "github.com/anef-maroc/pdfcp-backend/internal/pkg/errors"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/apierr"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/ctxutil"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
	"github.com/anef-maroc/pdfcp-backend/internal/rbac"
)

type JWTClaims struct {
	jwt.RegisteredClaims
}

// Profile is the caller as the UI sees it.
type Profile struct {
	User       *types.User     `json:"user"`
	ScopeLevel rbac.ScopeLevel `json:"scope_level"`
	ScopeLabel string          `json:"scope_label"`
	Scope      rbac.UserScope  `json:"scope"`
	Menu       []rbac.MenuKey  `json:"menu"`
}

type LoginResult struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Profile     Profile   `json:"profile"`
}

type AuthService interface {
	Login(dbc dbctx.Context, email, password string) (*LoginResult, error)
	Me(dbc dbctx.Context) (*Profile, error)
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	IssueToken(userID uuid.UUID) (string, time.Time, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	db           *gorm.DB
	log          *logger.Logger
	userRepo     repos.UserRepo
	jwtSecretKey string
	accessTTL    time.Duration
}

func NewAuthService(db *gorm.DB, baseLog *logger.Logger, userRepo repos.UserRepo, jwtSecretKey string, accessTTL time.Duration) AuthService {
	if accessTTL <= 0 {
		accessTTL = 7 * 24 * time.Hour
	}
	return &authService{
		db:           db,
		log:          baseLog.With("service", "AuthService"),
		userRepo:     userRepo,
		jwtSecretKey: jwtSecretKey,
		accessTTL:    accessTTL,
	}
}

// HashPassword bcrypts a plain password with the default cost.
func HashPassword(password string) (string, error) {
	raw, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(raw), nil
}

func ProfileOf(u *types.User) Profile {
	scope := u.Scope()
	return Profile{
		User:       u,
		ScopeLevel: scope.Level,
		ScopeLabel: scope.Level.Label(),
		Scope:      scope,
		Menu:       rbac.MenuFor(scope.Level),
	}
}

func badCredentials() error {
	return apierr.New(http.StatusUnauthorized, "invalid_credentials", fmt.Errorf("%w: invalid email or password", pkgerrors.ErrUnauthorized))
}

func (as *authService) Login(dbc dbctx.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, invalid("invalid_request", "email and password are required")
	}
	u, err := as.userRepo.GetByEmail(dbc, email)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil || !u.IsActive {
		return nil, badCredentials()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, badCredentials()
	}
	tok, exp, err := as.IssueToken(u.ID)
	if err != nil {
		return nil, err
	}
	as.log.Info("user logged in", "user_id", u.ID)
	return &LoginResult{
		AccessToken: tok,
		TokenType:   "Bearer",
		ExpiresAt:   exp,
		Profile:     ProfileOf(u),
	}, nil
}

func (as *authService) Me(dbc dbctx.Context) (*Profile, error) {
	rd, err := requireActor(dbc)
	if err != nil {
		return nil, err
	}
	u, err := as.userRepo.GetByID(dbc, rd.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return nil, apierr.Unauthorized(pkgerrors.ErrUnauthorized)
	}
	p := ProfileOf(u)
	return &p, nil
}

func (as *authService) IssueToken(userID uuid.UUID) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(as.accessTTL)
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(as.jwtSecretKey))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return []byte(as.jwtSecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", pkgerrors.ErrUnauthorized)
		}
		return nil, fmt.Errorf("%w: invalid token", pkgerrors.ErrUnauthorized)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid subject", pkgerrors.ErrUnauthorized)
	}
	u, err := as.userRepo.GetByID(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil || !u.IsActive {
		return nil, fmt.Errorf("%w: unknown or inactive user", pkgerrors.ErrUnauthorized)
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{
		UserID:   u.ID,
		FullName: u.FullName,
		Role:     u.Role,
		Scope:    u.Scope(),
	}), nil
}

func (as *authService) GetAccessTTL() time.Duration { return as.accessTTL }
