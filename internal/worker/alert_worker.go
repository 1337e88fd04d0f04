// Package worker consumes budget alert messages published by the API.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

// AlertWorker turns budget alert messages into user notifications. Messages
// for alerts that no longer exist or were already read are acknowledged and dropped.
type AlertWorker struct {
	storage *storage.SQLiteRepository
	logger  *applog.Logger
	stats   *Stats
}

// Stats counts handled messages.
type Stats struct {
	Delivered int64
	Skipped   int64
	Rejected  int64
}

func NewAlertWorker(storage *storage.SQLiteRepository, logger *applog.Logger) *AlertWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &AlertWorker{
		storage: storage,
		logger:  logger.WithComponent(applog.ComponentAlert),
		stats:   &Stats{},
	}
}

// HandleBudgetAlert processes a single alert message from AMQP. A returned
// error requeues the message, so only transient storage failures are reported.
func (w *AlertWorker) HandleBudgetAlert(ctx context.Context, msg *amqp.BudgetAlertMessage) error {
	if msg.AlertID == "" || msg.BudgetID == "" || !msg.AlertType.Valid() {
		w.logger.WarnContext(ctx, "Rejecting malformed alert message",
			"alert_id", msg.AlertID,
			applog.FieldBudgetID, msg.BudgetID,
			applog.FieldAlertType, msg.AlertType)
		atomic.AddInt64(&w.stats.Rejected, 1)
		return nil
	}

	q := w.storage.Queries()
	budget, err := q.GetBudget(ctx, msg.BudgetID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			w.skip(ctx, msg, "budget deleted")
			return nil
		}
		return fmt.Errorf("load budget %s: %w", msg.BudgetID, err)
	}

	alerts, err := q.ListBudgetAlerts(ctx, budget.ID)
	if err != nil {
		return fmt.Errorf("list alerts for budget %s: %w", budget.ID, err)
	}
	var alert *core.BudgetAlert
	for i := range alerts {
		if alerts[i].ID == msg.AlertID {
			alert = &alerts[i]
			break
		}
	}
	switch {
	case alert == nil:
		w.skip(ctx, msg, "alert purged")
		return nil
	case alert.IsRead:
		w.skip(ctx, msg, "alert already read")
		return nil
	}

	fields := []any{
		applog.FieldUserID, budget.UserID,
		applog.FieldBudgetID, budget.ID,
		applog.FieldAlertType, alert.AlertType,
		applog.FieldYear, budget.Year,
		applog.FieldMonth, budget.Month,
		applog.FieldSpentCents, budget.SpentAmount.Cents,
		"message", alert.Message,
	}
	if alert.AlertType == core.AlertExceeded {
		w.logger.WarnContext(ctx, "Budget alert notification", fields...)
	} else {
		w.logger.InfoContext(ctx, "Budget alert notification", fields...)
	}
	atomic.AddInt64(&w.stats.Delivered, 1)
	return nil
}

func (w *AlertWorker) skip(ctx context.Context, msg *amqp.BudgetAlertMessage, reason string) {
	w.logger.InfoContext(ctx, "Skipping stale alert message",
		"alert_id", msg.AlertID,
		applog.FieldBudgetID, msg.BudgetID,
		"reason", reason)
	atomic.AddInt64(&w.stats.Skipped, 1)
}

// Stats returns a snapshot of the handled message counters.
func (w *AlertWorker) Stats() Stats {
	return Stats{
		Delivered: atomic.LoadInt64(&w.stats.Delivered),
		Skipped:   atomic.LoadInt64(&w.stats.Skipped),
		Rejected:  atomic.LoadInt64(&w.stats.Rejected),
	}
}
