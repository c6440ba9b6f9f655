package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rollcall-service/internal/config"
	"rollcall-service/internal/db"
	"rollcall-service/internal/jobs"
	"rollcall-service/internal/repository/postgres"
	"rollcall-service/internal/service/email"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// expired session rows are kept this long for auditing
const sessionRetention = 7 * 24 * time.Hour

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[WORKER] No .env file found, relying on system env vars")
	}
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if cfg.Env == "development" {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.ConnectDB(ctx, db.PostgresConfig{URL: cfg.DatabaseURL, MaxConns: 2})
	if err != nil {
		logger.Fatal("failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pool.Close()

	sender := email.NewSender(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		FromName: cfg.SMTPFromName,
		Secure:   cfg.SMTPSecure,
	})
	if !sender.Configured() {
		logger.Warn("SMTP_HOST not set, mail tasks will fail and retry")
	}

	mailJob := jobs.NewMailJob(sender, logger)
	cleanupJob := jobs.NewSessionCleanupJob(postgres.NewAuthRepository(pool), sessionRetention, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPass, DB: cfg.RedisDB},
		Concurrency: cfg.WorkerConcurrency,
		Logger:      logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSendEmail, Handler: mailJob.Handle},
			{Type: jobs.TaskTypeSessionCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.SessionCleanupCron, Task: asynq.NewTask(jobs.TaskTypeSessionCleanup, nil), Options: []asynq.Option{asynq.Queue(jobs.QueueDefault)}},
		},
	})
	if err != nil {
		logger.Fatal("failed to build worker", zap.Error(err))
	}

	logger.Info("worker started", zap.Int("concurrency", cfg.WorkerConcurrency))
	if err := worker.Run(ctx); err != nil {
		logger.Fatal("worker stopped with error", zap.Error(err))
	}
}
