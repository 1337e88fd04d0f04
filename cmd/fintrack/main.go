package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)

	if err := run(logger); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

// run owns every resource so deferred closes happen before main exits.
func run(logger *applog.Logger) error {
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Alerts are always stored; publishing them is optional.
	var publisher services.AlertPublisher
	amqpClient := cli.ConnectAMQP(logger, cfg, false)
	if amqpClient != nil {
		defer amqpClient.Close()
		publisher = amqpClient
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	budgets := services.NewBudgetService(repo, publisher)
	expenses := services.NewExpenseService(repo, budgets)
	svc := apphttp.Services{
		Users:     services.NewUserService(repo, tokens),
		Accounts:  services.NewAccountService(repo),
		Catalog:   services.NewCatalogService(repo),
		Expenses:  expenses,
		Deposits:  services.NewDepositService(repo),
		Budgets:   budgets,
		Recurring: services.NewRecurringProcessor(repo, expenses),
	}

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	}, svc, tokens, repo)

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	logger.Info("Starting fintrack server", "port", cfg.Port, "db", cfg.SQLiteDBPath)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen on port %s: %w", cfg.Port, err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
	return nil
}
