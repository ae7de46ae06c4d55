package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/member-hub/member-hub/internal/app"
	jobmetrics "github.com/member-hub/member-hub/internal/jobs"
	"github.com/member-hub/member-hub/internal/platform/db"
	"github.com/member-hub/member-hub/internal/roles"
	"github.com/member-hub/member-hub/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := jobmetrics.NewMetrics(nil)

	var sender jobs.Sender = jobs.LogSender{Logger: logger}
	if cfg.SMTPHost != "" {
		sender = jobs.SMTPSender{Host: cfg.SMTPHost, Port: cfg.SMTPPort, From: cfg.SMTPFrom}
	}
	verifyJob := jobs.NewVerifyEmailJob(sender, logger, metrics)

	rolesRepo := roles.NewRepository(pool)
	expiryJob := jobs.NewRoleExpirySweepJob(rolesRepo, logger, metrics)

	sweepTask, err := jobs.NewRoleExpirySweepTask(jobs.RoleExpirySweepPayload{WarnDays: cfg.RoleExpiryWarnDays})
	if err != nil {
		logger.Error("build expiry sweep task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeVerifyEmail, Handler: verifyJob.Handle},
			{Type: jobs.TaskTypeRoleExpirySweep, Handler: expiryJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.RoleExpiryCron, Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
