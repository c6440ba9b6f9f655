// internal/service/auth/email.go
package auth

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"

	"rollcall-service/internal/jobs"

	"go.uber.org/zap"
)

// Mailer queues an email for the background worker
type Mailer interface {
	EnqueueSendEmail(ctx context.Context, payload jobs.SendEmailPayload) error
}

// EmailHelper builds transactional emails and hands them to the queue
type EmailHelper struct {
	mailer  Mailer
	logger  *zap.Logger
	baseURL string
}

func NewEmailHelper(mailer Mailer, logger *zap.Logger, baseURL string) *EmailHelper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailHelper{
		mailer:  mailer,
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// ========== Password Reset ==========

// ResetURL is the frontend page that completes a reset
func (h *EmailHelper) ResetURL(token string) string {
	return fmt.Sprintf("%s/reset-password?token=%s", h.baseURL, url.QueryEscape(token))
}

// PasswordResetEmail builds a password reset email
func (h *EmailHelper) PasswordResetEmail(fullName, token string) (string, string) {
	resetURL := html.EscapeString(h.ResetURL(token))

	subject := "Reset your Roll Call password"
	body := fmt.Sprintf(`
		<h2>Password Reset Request</h2>
		<p>Hello %s,</p>
		<p>We received a request to reset your Roll Call password. The link below is valid for one hour.</p>
		<p><a class="button" href="%s">Reset Password</a></p>
		<p>Or copy this link into your browser:<br>%s</p>
		<p>If you did not ask for a reset you can ignore this email. Your password stays the same.</p>
	`, html.EscapeString(fullName), resetURL, resetURL)

	return subject, body
}

// SendPasswordResetEmail queues the reset email
func (h *EmailHelper) SendPasswordResetEmail(ctx context.Context, email, fullName, token string) {
	subject, body := h.PasswordResetEmail(fullName, token)
	h.enqueue(ctx, email, subject, body)
}

// ========== Welcome ==========

// WelcomeEmail builds the email sent after registration
func (h *EmailHelper) WelcomeEmail(fullName string) (string, string) {
	subject := "Welcome to Roll Call"
	body := fmt.Sprintf(`
		<h2>Welcome aboard, %s!</h2>
		<p>Your account is ready. Join an event, check in every day and watch your streak grow.</p>
		<p><a class="button" href="%s/dashboard">Open your dashboard</a></p>
	`, html.EscapeString(fullName), html.EscapeString(h.baseURL))

	return subject, body
}

// SendWelcomeEmail queues the welcome email
func (h *EmailHelper) SendWelcomeEmail(ctx context.Context, email, fullName string) {
	subject, body := h.WelcomeEmail(fullName)
	h.enqueue(ctx, email, subject, body)
}

func (h *EmailHelper) enqueue(ctx context.Context, to, subject, body string) {
	if h.mailer == nil {
		h.logger.Debug("mail queue not configured, email skipped", zap.String("subject", subject))
		return
	}

	payload := jobs.SendEmailPayload{To: to, Subject: subject, Body: body}
	if err := h.mailer.EnqueueSendEmail(ctx, payload); err != nil {
		h.logger.Error("failed to queue email",
			zap.String("email", to),
			zap.String("subject", subject),
			zap.Error(err),
		)
		return
	}
	h.logger.Info("email queued", zap.String("email", to), zap.String("subject", subject))
}
