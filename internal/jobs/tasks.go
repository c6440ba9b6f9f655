package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	// QueueDefault is the only queue the worker consumes.
	QueueDefault = "default"
	// TaskTypeSendEmail delivers one transactional mail.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeSessionCleanup purges expired session rows.
	TaskTypeSessionCleanup = "sessions:cleanup"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs a mail:send task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// MailSender is what the mail job delivers through
type MailSender interface {
	Send(to, subject, bodyHTML string) error
}

// MailJob handles mail:send tasks
type MailJob struct {
	sender MailSender
	logger *zap.Logger
}

func NewMailJob(sender MailSender, logger *zap.Logger) *MailJob {
	return &MailJob{sender: sender, logger: logger}
}

// Handle processes TaskTypeSendEmail tasks. Bad payloads are not retried.
func (j *MailJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", TaskTypeSendEmail, err, asynq.SkipRetry)
	}
	if payload.To == "" {
		return fmt.Errorf("mail without recipient: %w", asynq.SkipRetry)
	}

	if err := j.sender.Send(payload.To, payload.Subject, payload.Body); err != nil {
		j.logger.Warn("mail delivery failed", zap.String("to", payload.To), zap.Error(err))
		return err
	}

	j.logger.Info("mail sent", zap.String("to", payload.To), zap.String("subject", payload.Subject))
	return nil
}

// SessionPurger deletes sessions that expired before cutoff
type SessionPurger interface {
	DeleteExpiredSessions(ctx context.Context, cutoff time.Time) (int64, error)
}

// SessionCleanupJob handles sessions:cleanup tasks
type SessionCleanupJob struct {
	store  SessionPurger
	grace  time.Duration
	logger *zap.Logger
	now    func() time.Time
}

func NewSessionCleanupJob(store SessionPurger, grace time.Duration, logger *zap.Logger) *SessionCleanupJob {
	return &SessionCleanupJob{store: store, grace: grace, logger: logger, now: time.Now}
}

// Handle removes rows that expired more than grace ago
func (j *SessionCleanupJob) Handle(ctx context.Context, _ *asynq.Task) error {
	n, err := j.store.DeleteExpiredSessions(ctx, j.now().Add(-j.grace))
	if err != nil {
		return err
	}
	j.logger.Info("expired sessions purged", zap.Int64("count", n))
	return nil
}
