package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/inkworks/inkworks/internal/app"
	"github.com/inkworks/inkworks/internal/notifications"
	"github.com/inkworks/inkworks/internal/platform/db"
	"github.com/inkworks/inkworks/internal/users"
	"github.com/inkworks/inkworks/jobs"
)

func main() {
	if app.InTestMode() {
		return
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp(openDeps, os.Stdin, os.Stdout).RunContext(ctx, os.Args); err != nil {
		slog.Default().Error("inkctl", slog.Any("error", err))
		os.Exit(1)
	}
}

func openDeps(ctx context.Context) (*Deps, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := app.NewLogger(cfg)
	infra, err := app.OpenInfra(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	client := jobs.NewClient(redisOpts)
	inspector := asynq.NewInspector(redisOpts)
	return &Deps{
		Migrate:   func(ctx context.Context) error { return db.Migrate(ctx, cfg.PGDSN, logger) },
		Scanner:   notifications.NewService(notifications.NewRepository(infra.Pool)),
		Enqueuer:  client,
		Users:     users.NewService(users.NewRepository(infra.Pool)),
		Inspector: inspector,
		Now:       time.Now,
		Close: func() {
			_ = inspector.Close()
			_ = client.Close()
			infra.Close()
		},
	}, nil
}
