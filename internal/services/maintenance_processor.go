package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// MaintenanceConfig holds the intervals of the background jobs.
type MaintenanceConfig struct {
	// RecurringInterval is how often due recurring expenses are materialized (default: 1h)
	RecurringInterval time.Duration

	// ReconcileInterval is how often every budget is recalculated from its expenses (default: 24h)
	ReconcileInterval time.Duration

	// CleanupInterval is how often read alerts are purged (default: 1h)
	CleanupInterval time.Duration

	// AlertRetention is how old read alerts must be before cleanup (default: 30 days)
	AlertRetention time.Duration
}

// DefaultMaintenanceConfig returns sensible defaults
func DefaultMaintenanceConfig() MaintenanceConfig {
	return MaintenanceConfig{
		RecurringInterval: 1 * time.Hour,
		ReconcileInterval: 24 * time.Hour,
		CleanupInterval:   1 * time.Hour,
		AlertRetention:    30 * 24 * time.Hour,
	}
}

// MaintenanceProcessor runs the periodic jobs of the worker: recurring
// expenses, budget reconciliation and alert retention.
type MaintenanceProcessor struct {
	recurring *RecurringProcessor
	budgets   *BudgetService
	config    MaintenanceConfig
	now       func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewMaintenanceProcessor(recurring *RecurringProcessor, budgets *BudgetService, config MaintenanceConfig) *MaintenanceProcessor {
	return &MaintenanceProcessor{
		recurring: recurring,
		budgets:   budgets,
		config:    config,
		now:       time.Now,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *MaintenanceProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("maintenance processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Maintenance processor started",
		"recurring_interval", p.config.RecurringInterval,
		"reconcile_interval", p.config.ReconcileInterval,
		"alert_retention", p.config.AlertRetention)
	return nil
}

// Stop signals the loop and waits for the running job to finish.
func (p *MaintenanceProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Maintenance processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Maintenance processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *MaintenanceProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *MaintenanceProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	recurringTicker := time.NewTicker(p.config.RecurringInterval)
	defer recurringTicker.Stop()

	reconcileTicker := time.NewTicker(p.config.ReconcileInterval)
	defer reconcileTicker.Stop()

	cleanupTicker := time.NewTicker(p.config.CleanupInterval)
	defer cleanupTicker.Stop()

	// Catch up on anything that became due while the worker was down.
	p.RunRecurring(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-recurringTicker.C:
			p.RunRecurring(ctx)
		case <-reconcileTicker.C:
			p.RunReconcile(ctx)
		case <-cleanupTicker.C:
			p.RunCleanup(ctx)
		}
	}
}

// RunRecurring processes due recurring expenses once.
func (p *MaintenanceProcessor) RunRecurring(ctx context.Context) int {
	n, err := p.recurring.ProcessDueExpenses(ctx, p.now())
	if err != nil {
		slog.ErrorContext(ctx, "Recurring expense run failed", "processed", n, "error", err)
	}
	return n
}

// RunReconcile recalculates every budget once.
func (p *MaintenanceProcessor) RunReconcile(ctx context.Context) ReconcileResult {
	res, err := p.budgets.RecalculateAll(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Budget reconciliation failed", "error", err)
		return res
	}
	for id, ferr := range res.Failed {
		slog.WarnContext(ctx, "Budget reconciliation failed for budget", "budget_id", id, "error", ferr)
	}
	return res
}

// RunCleanup purges read alerts past the retention window.
func (p *MaintenanceProcessor) RunCleanup(ctx context.Context) {
	if _, err := p.budgets.PurgeReadAlerts(ctx, p.config.AlertRetention); err != nil {
		slog.ErrorContext(ctx, "Failed to purge read alerts", "error", err)
	}
}
