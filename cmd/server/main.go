package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/inkworks/inkworks/internal/app"
	"github.com/inkworks/inkworks/internal/auth"
	"github.com/inkworks/inkworks/internal/catalog"
	"github.com/inkworks/inkworks/internal/clients"
	"github.com/inkworks/inkworks/internal/cnpj"
	"github.com/inkworks/inkworks/internal/documents"
	"github.com/inkworks/inkworks/internal/expenses"
	"github.com/inkworks/inkworks/internal/labels"
	"github.com/inkworks/inkworks/internal/notifications"
	"github.com/inkworks/inkworks/internal/observability"
	"github.com/inkworks/inkworks/internal/orders"
	"github.com/inkworks/inkworks/internal/platform/cache"
	"github.com/inkworks/inkworks/internal/platform/db"
	"github.com/inkworks/inkworks/internal/quotes"
	"github.com/inkworks/inkworks/internal/rbac"
	"github.com/inkworks/inkworks/internal/reports"
	"github.com/inkworks/inkworks/internal/settings"
	"github.com/inkworks/inkworks/internal/shared"
	"github.com/inkworks/inkworks/internal/stock"
	"github.com/inkworks/inkworks/internal/users"
	"github.com/inkworks/inkworks/jobs"
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

	if err := db.Migrate(ctx, cfg.PGDSN, logger); err != nil {
		logger.Error("apply migrations", slog.Any("error", err))
		os.Exit(1)
	}

	infra, err := app.OpenInfra(ctx, cfg, logger)
	if err != nil {
		logger.Error("open infrastructure", slog.Any("error", err))
		os.Exit(1)
	}
	defer infra.Close()
	pool, redisClient := infra.Pool, infra.Redis

	sessionManager := shared.NewSessionManager(redisClient, "inkworks_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	rbacService := rbac.NewService(pool)
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	settingsService := settings.NewService(settings.NewRepository(pool), cache.NewCache(redisClient, "settings", cfg.SettingsCacheTTL))
	pdfClient := documents.NewClient(cfg.GotenbergURL)
	if err := pdfClient.Ping(ctx); err != nil {
		logger.Warn("gotenberg ping", slog.Any("error", err))
	}
	renderer, err := documents.NewRenderer(pdfClient, settingsService)
	if err != nil {
		logger.Error("init document renderer", slog.Any("error", err))
		os.Exit(1)
	}

	authService := auth.NewService(auth.NewRepository(pool))
	usersService := users.NewService(users.NewRepository(pool))

	catalogService := catalog.NewService(catalog.NewRepository(pool))
	clientsService := clients.NewService(clients.NewRepository(pool))
	stockRepo := stock.NewRepository(pool)
	stockService := stock.NewService(stockRepo, auditLogger)

	ordersService := orders.NewService(orders.NewRepository(pool), catalogService, idempotencyStore, auditLogger)
	ordersService.Subscribe(stock.NewLedger(stockRepo))
	quotesService := quotes.NewService(quotes.NewRepository(pool), catalogService, ordersService, auditLogger)

	expensesService := expenses.NewService(expenses.NewRepository(pool))
	reportsService := reports.NewService(reports.NewRepository(pool), cache.NewCache(redisClient, "reports", cfg.ReportCacheTTL), renderer)
	notificationsService := notifications.NewService(notifications.NewRepository(pool))
	labelsService := labels.NewService(labels.NewRepository(pool), renderer)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobsClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	ordersHandler := orders.NewHandler(logger, ordersService, clientsService, renderer, rbacMiddleware)
	settingsHandler := settings.NewHandler(logger, settingsService, rbacMiddleware)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		RBAC:           rbacMiddleware,
		Metrics:        observability.NewMetrics(),
		Pool:           pool,
		Redis:          redisClient,
		Handlers: []app.Mounter{
			auth.NewHandler(logger, authService, sessionManager, rbacMiddleware),
			rbac.NewHandler(logger, rbacService, rbacMiddleware),
			users.NewHandler(logger, usersService, rbacMiddleware),
			catalog.NewHandler(logger, catalogService, stockService, rbacMiddleware),
			clients.NewHandler(logger, clientsService, rbacMiddleware),
			stock.NewHandler(logger, stockService, rbacMiddleware),
			ordersHandler,
			quotes.NewHandler(logger, quotesService, clientsService, renderer, rbacMiddleware),
			expenses.NewHandler(logger, expensesService, rbacMiddleware),
			reports.NewHandler(logger, reportsService, rbacMiddleware),
			notifications.NewHandler(logger, notificationsService, jobsClient, rbacMiddleware),
			settingsHandler,
			labels.NewHandler(logger, labelsService, rbacMiddleware),
		},
		Authenticated: []app.Mounter{
			cnpj.NewHandler(logger, cnpj.NewClient(cfg.CNPJAPIURL, cfg.CNPJTimeout)),
		},
		Public: []app.PublicMounter{ordersHandler, settingsHandler},
		Jobs:   jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
