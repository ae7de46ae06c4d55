package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/member-hub/member-hub/internal/app"
	"github.com/member-hub/member-hub/internal/auth"
	"github.com/member-hub/member-hub/internal/contacts"
	"github.com/member-hub/member-hub/internal/gate"
	"github.com/member-hub/member-hub/internal/members"
	"github.com/member-hub/member-hub/internal/observability"
	"github.com/member-hub/member-hub/internal/platform/cache"
	"github.com/member-hub/member-hub/internal/platform/db"
	"github.com/member-hub/member-hub/internal/rates"
	"github.com/member-hub/member-hub/internal/roles"
	"github.com/member-hub/member-hub/internal/shared"
	"github.com/member-hub/member-hub/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "hub_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(pool)
	metrics := observability.NewMetrics()

	registry := gate.DefaultRegistry()

	rolesRepo := roles.NewRepository(pool)
	rolesService := roles.NewService(rolesRepo, registry, auditLogger, logger)

	authGate := gate.New(registry, rolesService, logger)
	gateMW := gate.Middleware{Gate: authGate, Logger: logger}

	membersRepo := members.NewRepository(pool)
	membersService := members.NewService(membersRepo, auditLogger, logger).
		WithRetryObserver(metrics)
	membersHandler := members.NewHandler(logger, membersService, gateMW)

	rolesHandler := roles.NewHandler(logger, rolesService, gateMW)

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Warn("job client unavailable", slog.Any("error", err))
		jobsClient = nil
	} else {
		defer func() {
			if err := jobsClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
	}

	contactsRepo := contacts.NewRepository(pool)
	contactsService := contacts.NewService(contactsRepo, redisClient, auditLogger, logger).
		WithCodeTTL(cfg.VerifyCodeTTL)
	contactsHandler := contacts.NewHandler(logger, contactsService, gateMW, jobsClient)

	ratesRepo := rates.NewRepository(pool)
	ratesService := rates.NewService(ratesRepo, auditLogger, logger)
	ratesHandler := rates.NewHandler(logger, ratesService, gateMW)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, contactsRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SessionManager:  sessionManager,
		CSRFManager:     csrfManager,
		AuthHandler:     authHandler,
		MembersHandler:  membersHandler,
		RolesHandler:    rolesHandler,
		ContactsHandler: contactsHandler,
		RatesHandler:    ratesHandler,
		JobHandler:      jobHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
