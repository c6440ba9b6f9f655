package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"rollcall-service/internal/client/api"
	"rollcall-service/internal/client/cli"
	"rollcall-service/internal/client/config"
	"rollcall-service/internal/client/flows"
	"rollcall-service/internal/client/storage"
	"rollcall-service/internal/client/store"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// a missing .env is normal for an installed CLI
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(cli.ExitUsage)
	}

	// only warnings reach the terminal
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	logger, err := zcfg.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens := storage.NewFile(cfg.TokenFile)
	client := api.New(cfg, tokens,
		api.WithUnauthorizedHandler(cli.LoginHint(os.Stderr)),
		api.WithLogger(logger),
	)
	st := store.New(tokens, logger)
	app := cli.NewApp(flows.New(client, st, logger), os.Stdin, os.Stdout, os.Stderr)

	code := app.Run(ctx, os.Args[1:])
	stop()
	logger.Sync()
	os.Exit(code)
}
