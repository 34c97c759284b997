package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	pkgAuth "github.com/boldreach/logistics-backend/pkg/auth"
	"github.com/boldreach/logistics-backend/pkg/auth/session"
	"github.com/boldreach/logistics-backend/pkg/config"
	"github.com/boldreach/logistics-backend/pkg/db/models"
	pkgerrors "github.com/boldreach/logistics-backend/pkg/errors"
	"github.com/boldreach/logistics-backend/pkg/logger"
	"github.com/boldreach/logistics-backend/pkg/mailer"
	"github.com/boldreach/logistics-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	resetTokenBytes           = 32
	resetTokenTTL             = 24 * time.Hour
	minPasswordLen            = 8
)

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type resetTokenRepository interface {
	Create(ctx context.Context, token *models.PasswordResetToken) error
	FindByToken(ctx context.Context, token string) (*models.PasswordResetToken, error)
	MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

// LoginResult carries the minted token pair and the sanitized account.
type LoginResult struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         *models.User `json:"user"`
}

// TokenPair is the result of a refresh rotation.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Service defines the behavior needed by the auth controller.
type Service interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Users          userRepository
	ResetTokens    resetTokenRepository
	SessionManager sessionManager
	Mailer         mailer.Mailer
	Logger         *logger.Logger
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	AppBaseURL     string
}

type service struct {
	users       userRepository
	resetTokens resetTokenRepository
	sessions    sessionManager
	mail        mailer.Mailer
	logg        *logger.Logger
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	baseURL     string
	now         func() time.Time
}

// NewService constructs an auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if params.ResetTokens == nil {
		return nil, fmt.Errorf("reset token repository required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		users:       params.Users,
		resetTokens: params.ResetTokens,
		sessions:    params.SessionManager,
		mail:        params.Mailer,
		logg:        params.Logger,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		baseURL:     strings.TrimRight(params.AppBaseURL, "/"),
		now:         time.Now,
	}, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find user")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	accessID := session.NewAccessID()
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now(), pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint token")
	}

	refreshToken, err := s.sessions.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create session")
	}

	if err := s.users.RecordLogin(ctx, user.ID, s.now().UTC()); err != nil {
		logCtx := s.logg.WithUserID(ctx, user.ID.String())
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "auth.login.record_failed")
	}

	sanitized := *user
	sanitized.PasswordHash = ""
	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         &sanitized,
	}, nil
}

func (s *service) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}

	newAccessID, newRefresh, err := s.sessions.Rotate(ctx, claims.ID, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	newAccess, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now(), pkgAuth.AccessTokenPayload{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   claims.Role,
		JTI:    newAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint token")
	}

	return &TokenPair{AccessToken: newAccess, RefreshToken: newRefresh}, nil
}

func (s *service) Logout(ctx context.Context, accessToken string) error {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if err := s.sessions.Revoke(ctx, claims.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

// ForgotPassword always reports success so account existence is never leaked.
// Token creation and mail delivery failures are logged and swallowed.
func (s *service) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "auth.forgot.lookup_failed")
		}
		return nil
	}
	if !user.IsActive {
		return nil
	}

	token, err := generateResetToken()
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "auth.forgot.token_failed")
		return nil
	}

	row := &models.PasswordResetToken{
		UserID:    user.ID,
		Email:     user.Email,
		Token:     token,
		ExpiresAt: s.now().Add(resetTokenTTL),
	}
	if err := s.resetTokens.Create(ctx, row); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "auth.forgot.store_failed")
		return nil
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, token)
	if err := s.mail.SendPasswordReset(ctx, user.Email, resetURL); err != nil {
		logCtx := s.logg.WithUserID(ctx, user.ID.String())
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "auth.forgot.email_failed")
	}
	return nil
}

func (s *service) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "reset token is required")
	}
	if len(newPassword) < minPasswordLen {
		return pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	row, err := s.resetTokens.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "reset token is invalid or expired")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find reset token")
	}
	if row.UsedAt != nil || s.now().After(row.ExpiresAt) {
		return pkgerrors.New(pkgerrors.CodeValidation, "reset token is invalid or expired")
	}

	user, err := s.users.FindByEmail(ctx, row.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "reset token is invalid or expired")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find user")
	}

	hash, err := security.HashPassword(newPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
	}

	// mark failure leaves a reusable token; logged, not fatal
	if err := s.resetTokens.MarkUsed(ctx, row.ID, s.now().UTC()); err != nil {
		logCtx := s.logg.WithUserID(ctx, user.ID.String())
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "auth.reset.mark_used_failed")
	}
	return nil
}

func generateResetToken() (string, error) {
	bytes := make([]byte, resetTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating reset token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
