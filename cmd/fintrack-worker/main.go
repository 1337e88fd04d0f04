package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/cli"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting fintrack-worker")

	if err := run(logger); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
}

// run owns every resource so deferred closes happen before main exits.
func run(logger *applog.Logger) error {
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient := cli.ConnectAMQP(logger, cfg, true)
	defer amqpClient.Close()

	// Alerts raised by recurring expenses go through the same exchange as the API's.
	budgets := services.NewBudgetService(repo, amqpClient)
	expenses := services.NewExpenseService(repo, budgets)
	recurring := services.NewRecurringProcessor(repo, expenses)

	maintenance := services.NewMaintenanceProcessor(recurring, budgets, services.MaintenanceConfig{
		RecurringInterval: cfg.RecurringInterval,
		ReconcileInterval: cfg.ReconcileInterval,
		CleanupInterval:   time.Hour,
		AlertRetention:    cfg.AlertRetention,
	})
	alerts := worker.NewAlertWorker(repo, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	g, gctx := errgroup.WithContext(ctx)

	if err := maintenance.Start(gctx); err != nil {
		return fmt.Errorf("start maintenance processor: %w", err)
	}
	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return maintenance.Stop(stopCtx)
	})

	g.Go(func() error {
		err := amqpClient.ConsumeBudgetAlerts(gctx, alerts.HandleBudgetAlert)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}

	cli.WaitForShutdown(ctx, done)
	stats := alerts.Stats()
	logger.Info("Worker stopped gracefully",
		"delivered", stats.Delivered,
		"skipped", stats.Skipped,
		"rejected", stats.Rejected)
	return nil
}
