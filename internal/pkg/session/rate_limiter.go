// internal/pkg/session/rate_limiter.go
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	maxLoginAttempts = 5
	loginWindow      = 15 * time.Minute
	maxResetAttempts = 3
	resetWindow      = time.Hour
)

type RateLimiter struct {
	client *redis.Client
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// CheckLoginAttempt checks if login attempt is allowed
func (r *RateLimiter) CheckLoginAttempt(ctx context.Context, ip, identifier string) (bool, int64, error) {
	count, err := r.hit(ctx, r.loginKey(ip, identifier), loginWindow)
	if err != nil {
		return false, 0, fmt.Errorf("failed to increment login attempt: %w", err)
	}

	remaining := maxLoginAttempts - count
	if remaining < 0 {
		remaining = 0
	}

	return count <= maxLoginAttempts, remaining, nil
}

// GetRemainingAttempts returns remaining login attempts
func (r *RateLimiter) GetRemainingAttempts(ctx context.Context, ip, identifier string) (int64, error) {
	count, err := r.client.Get(ctx, r.loginKey(ip, identifier)).Int64()
	if errors.Is(err, redis.Nil) {
		return maxLoginAttempts, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get login attempts: %w", err)
	}

	remaining := maxLoginAttempts - count
	if remaining < 0 {
		remaining = 0
	}

	return remaining, nil
}

// ResetLoginAttempts resets the login attempt counter
func (r *RateLimiter) ResetLoginAttempts(ctx context.Context, ip, identifier string) error {
	return r.client.Del(ctx, r.loginKey(ip, identifier)).Err()
}

// CheckPasswordResetAttempt checks password reset rate limit
func (r *RateLimiter) CheckPasswordResetAttempt(ctx context.Context, email string) (bool, error) {
	key := fmt.Sprintf("ratelimit:password_reset:%s", strings.ToLower(email))

	count, err := r.hit(ctx, key, resetWindow)
	if err != nil {
		return false, fmt.Errorf("failed to increment password reset attempt: %w", err)
	}

	return count <= maxResetAttempts, nil
}

// hit increments key and starts its window on the first attempt
func (r *RateLimiter) hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}

func (r *RateLimiter) loginKey(ip, identifier string) string {
	return fmt.Sprintf("ratelimit:login:%s:%s", ip, strings.ToLower(identifier))
}
