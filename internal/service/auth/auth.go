// internal/service/auth/auth.go
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"rollcall-service/internal/domain/auth"
	"rollcall-service/internal/domain/user"
	xerrors "rollcall-service/internal/pkg/errors"
	"rollcall-service/internal/pkg/jwt"
	"rollcall-service/internal/pkg/session"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const resetTokenTTL = time.Hour

// UserStore is the slice of the user repository auth needs
type UserStore interface {
	Create(ctx context.Context, u *user.User) error
	FindByID(ctx context.Context, id int64) (*user.User, error)
	FindByUsernameOrEmail(ctx context.Context, identifier string) (*user.User, error)
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	Exists(ctx context.Context, username, email string) (bool, bool, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
	UpdateLastLogin(ctx context.Context, id int64) error
	SetRole(ctx context.Context, id int64, role string) error
	AdminExists(ctx context.Context) (bool, error)
}

// SessionStore is the durable session and reset-token table
type SessionStore interface {
	session.Store
	CreateSession(ctx context.Context, s *auth.Session) error
	ListActiveSessions(ctx context.Context, userID int64) ([]*auth.Session, error)
	CreateResetToken(ctx context.Context, t *auth.PasswordResetToken) error
	FindResetToken(ctx context.Context, token string) (*auth.PasswordResetToken, error)
	MarkResetTokenUsed(ctx context.Context, id int64) error
	InvalidateResetTokens(ctx context.Context, userID int64) error
}

// Notifier pushes session events to open sockets
type Notifier interface {
	ForceLogout(userID int64, sessionID string, reason string)
}

// LoginRecorder counts login outcomes
type LoginRecorder interface {
	RecordLogin(outcome string)
}

// Dependencies wires an AuthService
type Dependencies struct {
	Users          UserStore
	Sessions       SessionStore
	JWT            *jwt.Manager
	SessionManager *session.Manager
	RateLimiter    *session.RateLimiter
	Email          *EmailHelper
	Notifier       Notifier
	Metrics        LoginRecorder
	Cache          *redis.Client
	Logger         *zap.Logger
}

type AuthService struct {
	users          UserStore
	sessions       SessionStore
	jwtManager     *jwt.Manager
	sessionManager *session.Manager
	rateLimiter    *session.RateLimiter
	emailHelper    *EmailHelper
	notifier       Notifier
	metrics        LoginRecorder
	cache          *redis.Client
	logger         *zap.Logger

	hashCost int
	now      func() time.Time
}

func NewAuthService(d Dependencies) *AuthService {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &AuthService{
		users:          d.Users,
		sessions:       d.Sessions,
		jwtManager:     d.JWT,
		sessionManager: d.SessionManager,
		rateLimiter:    d.RateLimiter,
		emailHelper:    d.Email,
		notifier:       d.Notifier,
		metrics:        d.Metrics,
		cache:          d.Cache,
		logger:         d.Logger,
		hashCost:       bcrypt.DefaultCost,
		now:            time.Now,
	}
}

// ========== Registration ==========

// Register creates a new user account and logs it in
func (s *AuthService) Register(ctx context.Context, req *auth.RegisterRequest) (*auth.LoginResponse, error) {
	usernameTaken, emailTaken, err := s.users.Exists(ctx, req.Username, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check user: %w", err)
	}
	if usernameTaken {
		return nil, fmt.Errorf("%w: username already registered", xerrors.ErrDuplicateEntry)
	}
	if emailTaken {
		return nil, fmt.Errorf("%w: email already registered", xerrors.ErrDuplicateEntry)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &user.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hashedPassword),
		FullName:     strings.TrimSpace(req.FullName),
		Role:         user.RoleUser,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, xerrors.Wrap(err, "failed to create user")
	}

	s.logger.Info("user registered", zap.Int64("user_id", u.ID), zap.String("username", u.Username))

	if s.emailHelper != nil {
		s.emailHelper.SendWelcomeEmail(ctx, u.Email, u.DisplayName())
	}

	// Auto-login after registration
	return s.issueSession(ctx, u, req.IPAddress, req.UserAgent)
}

// ========== Login ==========

// Login authenticates by username or email
func (s *AuthService) Login(ctx context.Context, req *auth.LoginRequest) (*auth.LoginResponse, error) {
	allowed, remaining, err := s.rateLimiter.CheckLoginAttempt(ctx, req.IPAddress, req.UsernameOrEmail)
	if err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}
	if !allowed {
		s.recordLogin("rate_limited")
		return nil, fmt.Errorf("%w: too many login attempts, please try again in 15 minutes", xerrors.ErrRateLimited)
	}

	u, err := s.users.FindByUsernameOrEmail(ctx, req.UsernameOrEmail)
	if errors.Is(err, xerrors.ErrNotFound) {
		s.recordLogin("failed")
		return nil, xerrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		s.recordLogin("failed")
		s.logger.Info("login failed",
			zap.Int64("user_id", u.ID),
			zap.Int64("attempts_remaining", remaining),
		)
		return nil, xerrors.ErrInvalidCredentials
	}

	if !u.IsActive {
		s.recordLogin("inactive")
		return nil, xerrors.ErrAccountInactive
	}

	if err := s.users.UpdateLastLogin(ctx, u.ID); err != nil {
		s.logger.Error("failed to update last login", zap.Error(err))
	}
	if err := s.rateLimiter.ResetLoginAttempts(ctx, req.IPAddress, req.UsernameOrEmail); err != nil {
		s.logger.Warn("failed to reset login attempts", zap.Error(err))
	}

	s.recordLogin("success")
	return s.issueSession(ctx, u, req.IPAddress, req.UserAgent)
}

// issueSession signs a token and stores the session in Postgres and Redis
func (s *AuthService) issueSession(ctx context.Context, u *user.User, ipAddress, userAgent string) (*auth.LoginResponse, error) {
	token, err := s.jwtManager.Generator.GenerateAccessToken(u.ID, u.Username, u.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	now := s.now()
	dbSession := &auth.Session{
		UserID:    u.ID,
		JTI:       token.JTI,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Status:    auth.SessionActive,
		LoginAt:   now,
		ExpiresAt: token.ExpiresAt,
	}
	if err := s.sessions.CreateSession(ctx, dbSession); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	sessionData := &session.SessionData{
		JTI:            token.JTI,
		UserID:         u.ID,
		SessionID:      dbSession.ID,
		Username:       u.Username,
		Email:          u.Email,
		Role:           u.Role,
		IPAddress:      ipAddress,
		UserAgent:      userAgent,
		LoginAt:        now,
		LastActivityAt: now,
		ExpiresAt:      token.ExpiresAt,
		IsActive:       true,
	}
	if err := s.sessionManager.CreateSession(ctx, sessionData); err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}

	return &auth.LoginResponse{
		AccessToken: token.Signed,
		TokenType:   "Bearer",
		ExpiresIn:   int(token.ExpiresAt.Sub(now).Seconds()),
		ExpiresAt:   token.ExpiresAt,
		User:        u.Profile(),
	}, nil
}

// ========== Logout ==========

// Logout invalidates the session behind claims and blacklists its token
func (s *AuthService) Logout(ctx context.Context, claims *jwt.Claims) error {
	if err := s.sessionManager.InvalidateSession(ctx, claims.UserID, claims.ID); err != nil {
		return fmt.Errorf("failed to invalidate session: %w", err)
	}

	if err := s.sessionManager.BlacklistToken(ctx, claims.ID, s.remaining(claims)); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}

	s.notify(claims.UserID, claims.ID, "User logged out")
	return nil
}

// LogoutAllSessions invalidates all sessions for a user
func (s *AuthService) LogoutAllSessions(ctx context.Context, userID int64) error {
	jtis, err := s.sessionManager.InvalidateAllUserSessions(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to invalidate sessions: %w", err)
	}

	for _, jti := range jtis {
		if err := s.sessionManager.BlacklistToken(ctx, jti, s.jwtManager.Generator.Ttl); err != nil {
			s.logger.Warn("failed to blacklist token", zap.String("jti", jti), zap.Error(err))
		}
	}

	s.notify(userID, "", "All sessions logged out")
	return nil
}

// ========== Session Management ==========

// GetActiveSessions returns a user's live sessions
func (s *AuthService) GetActiveSessions(ctx context.Context, userID int64) ([]*auth.Session, error) {
	sessions, err := s.sessions.ListActiveSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get sessions: %w", err)
	}
	return sessions, nil
}

// RevokeSession revokes one of the caller's own sessions
func (s *AuthService) RevokeSession(ctx context.Context, userID int64, jti string) error {
	dbSession, err := s.sessions.FindSessionByJTI(ctx, jti)
	if err != nil {
		return xerrors.Wrap(err, "failed to find session")
	}
	if dbSession.UserID != userID {
		return xerrors.ErrNotFound
	}

	if err := s.sessionManager.InvalidateSession(ctx, userID, jti); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	if err := s.sessionManager.BlacklistToken(ctx, jti, dbSession.ExpiresAt.Sub(s.now())); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}

	s.notify(userID, jti, "Session revoked")
	return nil
}

// ========== Profile ==========

// Me returns the caller's profile
func (s *AuthService) Me(ctx context.Context, userID int64) (*user.Profile, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := u.Profile()
	return &profile, nil
}

// ========== Password Management ==========

// ChangePassword changes the password and logs out everywhere
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, req *auth.ChangePasswordRequest) error {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return fmt.Errorf("%w: current password is incorrect", xerrors.ErrInvalidInput)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.hashCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, string(hashedPassword)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return s.LogoutAllSessions(ctx, userID)
}

// ForgotPassword mails a reset link. It never reveals whether the email exists.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	allowed, err := s.rateLimiter.CheckPasswordResetAttempt(ctx, email)
	if err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}
	if !allowed {
		return fmt.Errorf("%w: too many password reset attempts, please try again later", xerrors.ErrRateLimited)
	}

	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, xerrors.ErrNotFound) {
		s.logger.Debug("password reset for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}

	resetToken, err := generateToken()
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	t := &auth.PasswordResetToken{
		UserID:    u.ID,
		Token:     resetToken,
		ExpiresAt: s.now().Add(resetTokenTTL),
	}
	if err := s.sessions.CreateResetToken(ctx, t); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	// Cache for quick lookup
	if s.cache != nil {
		if err := s.cache.Set(ctx, resetCacheKey(u.ID), resetToken, resetTokenTTL).Err(); err != nil {
			s.logger.Error("failed to cache reset token", zap.Error(err))
		}
	}

	if s.emailHelper != nil {
		s.emailHelper.SendPasswordResetEmail(ctx, u.Email, u.DisplayName(), resetToken)
	}
	return nil
}

// ResetPassword consumes a reset token and sets a new password
func (s *AuthService) ResetPassword(ctx context.Context, req *auth.ResetPasswordRequest) error {
	t, err := s.sessions.FindResetToken(ctx, req.Token)
	if errors.Is(err, xerrors.ErrNotFound) {
		return xerrors.ErrInvalidResetToken
	}
	if err != nil {
		return fmt.Errorf("failed to find reset token: %w", err)
	}
	if !t.Usable(s.now()) {
		return xerrors.ErrInvalidResetToken
	}

	// Mark first so a token can only ever win once
	if err := s.sessions.MarkResetTokenUsed(ctx, t.ID); err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.hashCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, t.UserID, string(hashedPassword)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.sessions.InvalidateResetTokens(ctx, t.UserID); err != nil {
		s.logger.Warn("failed to invalidate remaining reset tokens", zap.Error(err))
	}
	if s.cache != nil {
		s.cache.Del(ctx, resetCacheKey(t.UserID))
	}

	return s.LogoutAllSessions(ctx, t.UserID)
}

// ========== Token Validation ==========

// ValidateToken checks signature, purpose, blacklist and the live session
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*jwt.Claims, error) {
	claims, err := s.jwtManager.Verifier.VerifyAccessToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrUnauthorized, err)
	}

	blacklisted, err := s.sessionManager.IsTokenBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check blacklist: %w", err)
	}
	if blacklisted {
		return nil, fmt.Errorf("%w: token has been revoked", xerrors.ErrSessionExpired)
	}

	if _, err := s.sessionManager.GetSession(ctx, claims.UserID, claims.ID); err != nil {
		return nil, xerrors.Wrap(err, "session not found")
	}

	return claims, nil
}

// ========== Helpers ==========

func (s *AuthService) remaining(claims *jwt.Claims) time.Duration {
	if claims.ExpiresAt == nil {
		return s.jwtManager.Generator.Ttl
	}
	return claims.ExpiresAt.Time.Sub(s.now())
}

func (s *AuthService) notify(userID int64, jti, reason string) {
	if s.notifier != nil {
		s.notifier.ForceLogout(userID, jti, reason)
	}
}

func (s *AuthService) recordLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordLogin(outcome)
	}
}

func resetCacheKey(userID int64) string {
	return fmt.Sprintf("password_reset:%d", userID)
}

// generateToken returns 32 random hex characters
func generateToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
