// internal/service/auth/super_admin.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rollcall-service/internal/domain/user"
	xerrors "rollcall-service/internal/pkg/errors"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// EnsureSuperAdminExists creates or promotes the configured admin account (called on startup)
func (s *AuthService) EnsureSuperAdminExists(ctx context.Context, email, password, username string) error {
	if email == "" || password == "" {
		s.logger.Info("super admin not configured, skipping")
		return nil
	}

	exists, err := s.users.AdminExists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check admin existence: %w", err)
	}
	if exists {
		s.logger.Info("admin already exists, skipping creation")
		return nil
	}

	existing, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.users.SetRole(ctx, existing.ID, user.RoleAdmin); err != nil {
			return fmt.Errorf("failed to promote %s: %w", email, err)
		}
		s.logger.Info("existing user promoted to admin", zap.Int64("user_id", existing.ID))
		return nil
	case !errors.Is(err, xerrors.ErrNotFound):
		return fmt.Errorf("failed to check email: %w", err)
	}

	if username == "" {
		username = strings.SplitN(email, "@", 2)[0]
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &user.User{
		Username:     username,
		Email:        strings.ToLower(email),
		PasswordHash: string(hashedPassword),
		FullName:     "Administrator",
		Role:         user.RoleAdmin,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	s.logger.Info("super admin created successfully",
		zap.String("email", admin.Email),
		zap.Int64("user_id", admin.ID),
	)
	return nil
}
