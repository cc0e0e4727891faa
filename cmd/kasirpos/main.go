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
	"github.com/redis/go-redis/v9"

	"github.com/kasirpos/kasirpos/internal/app"
	"github.com/kasirpos/kasirpos/internal/auth"
	"github.com/kasirpos/kasirpos/internal/catalog"
	"github.com/kasirpos/kasirpos/internal/company"
	"github.com/kasirpos/kasirpos/internal/customers"
	"github.com/kasirpos/kasirpos/internal/inventory"
	"github.com/kasirpos/kasirpos/internal/platform/db"
	"github.com/kasirpos/kasirpos/internal/printlog"
	"github.com/kasirpos/kasirpos/internal/reports"
	reporthttp "github.com/kasirpos/kasirpos/internal/reports/http"
	"github.com/kasirpos/kasirpos/internal/sales"
	"github.com/kasirpos/kasirpos/internal/shared"
	"github.com/kasirpos/kasirpos/internal/users"
	"github.com/kasirpos/kasirpos/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	clock := shared.SystemClock{}
	codes := shared.NewCodeGenerator(clock)

	tokenStore := auth.NewTokenStore(redisClient, cfg.TokenTTL)
	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, tokenStore)
	authHandler := auth.NewHandler(logger, authService)

	catalogRepo := catalog.NewRepository(dbpool)
	catalogService := catalog.NewService(catalogRepo, codes, logger)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	inventoryRepo := inventory.NewRepository(dbpool)
	inventoryService := inventory.NewService(inventoryRepo, codes, logger)
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	customersRepo := customers.NewRepository(dbpool)
	customersHandler := customers.NewHandler(logger, customersRepo)

	salesRepo := sales.NewRepository(dbpool)
	salesService := sales.NewService(salesRepo, codes, clock, logger)
	salesHandler := sales.NewHandler(logger, salesService)

	companyRepo := company.NewRepository(dbpool)
	companyHandler := company.NewHandler(logger, companyRepo)

	printRepo := printlog.NewRepository(dbpool)
	printService := printlog.NewService(printRepo, salesService, companyRepo, codes, clock, logger)
	printHandler := printlog.NewHandler(logger, printService)

	jobsClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	reportsRepo := reports.NewRepository(dbpool)
	reportsHandler := reporthttp.NewHandler(logger, reportsRepo, jobsClient)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, logger)
	usersHandler := users.NewHandler(logger, usersService)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AuthService:      authService,
		AuthHandler:      authHandler,
		CatalogHandler:   catalogHandler,
		InventoryHandler: inventoryHandler,
		CustomersHandler: customersHandler,
		SalesHandler:     salesHandler,
		PrintHandler:     printHandler,
		CompanyHandler:   companyHandler,
		ReportsHandler:   reportsHandler,
		UsersHandler:     usersHandler,
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
