package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
)

// AlertStore is the persistence the emitter needs. *storage.Queries satisfies it.
type AlertStore interface {
	UnreadAlertTypes(ctx context.Context, budgetID string) (map[core.AlertType]bool, error)
	InsertAlert(ctx context.Context, alert core.BudgetAlert) error
}

// AlertPublisher forwards created alerts to other processes. *amqp.Client satisfies it.
type AlertPublisher interface {
	PublishBudgetAlert(ctx context.Context, msg *amqp.BudgetAlertMessage) error
}

// AlertOutcome reports what an emission did. Err is informational: callers log
// it and never fail the surrounding mutation because of it.
type AlertOutcome struct {
	Created []core.BudgetAlert
	Err     error
}

var hundred = decimal.NewFromInt(100)

// ThresholdAmount is limit * pct / 100 without truncation.
func ThresholdAmount(limit core.Money, pct int) decimal.Decimal {
	return limit.Decimal().Mul(decimal.NewFromInt(int64(pct))).Div(hundred)
}

// EvaluateAlerts decides which alert kinds to create for b given the kinds that
// already have an unread alert. The threshold and exceeded checks are independent,
// so a budget that jumps past its limit gets only an EXCEEDED alert.
func EvaluateAlerts(b core.Budget, unread map[core.AlertType]bool) []core.AlertType {
	spent := b.SpentAmount.Decimal()
	var out []core.AlertType

	if spent.GreaterThanOrEqual(ThresholdAmount(b.AmountLimit, b.ThresholdPercentage)) &&
		b.SpentAmount.Cents < b.AmountLimit.Cents &&
		!unread[core.AlertThresholdReached] {
		out = append(out, core.AlertThresholdReached)
	}
	if b.SpentAmount.Cents >= b.AmountLimit.Cents && !unread[core.AlertExceeded] {
		out = append(out, core.AlertExceeded)
	}
	return out
}

// AlertMessage renders the user-facing text for an alert kind.
func AlertMessage(t core.AlertType, b core.Budget) string {
	switch t {
	case core.AlertThresholdReached:
		return fmt.Sprintf("You've reached %d%% of your budget limit. You've spent %s out of %s.",
			b.ThresholdPercentage, b.SpentAmount.Dollars(), b.AmountLimit.Dollars())
	case core.AlertExceeded:
		return fmt.Sprintf("You've exceeded your budget limit! You've spent %s out of %s.",
			b.SpentAmount.Dollars(), b.AmountLimit.Dollars())
	}
	return ""
}

// AlertEmitter creates at most one unread alert per (budget, kind).
type AlertEmitter struct {
	store     AlertStore
	publisher AlertPublisher
	now       func() time.Time
}

// NewAlertEmitter returns an emitter; publisher may be nil.
func NewAlertEmitter(store AlertStore, publisher AlertPublisher) *AlertEmitter {
	return &AlertEmitter{store: store, publisher: publisher, now: time.Now}
}

// Emit evaluates b, which must carry its current spent amount, and stores any new alerts.
func (e *AlertEmitter) Emit(ctx context.Context, b core.Budget) AlertOutcome {
	unread, err := e.store.UnreadAlertTypes(ctx, b.ID)
	if err != nil {
		return AlertOutcome{Err: fmt.Errorf("load unread alerts for budget %s: %w", b.ID, err)}
	}

	var outcome AlertOutcome
	for _, kind := range EvaluateAlerts(b, unread) {
		alert := core.BudgetAlert{
			ID:        uuid.NewString(),
			BudgetID:  b.ID,
			AlertType: kind,
			Message:   AlertMessage(kind, b),
			CreatedAt: e.now().UTC(),
		}
		if err := e.store.InsertAlert(ctx, alert); err != nil {
			outcome.Err = fmt.Errorf("insert %s alert for budget %s: %w", kind, b.ID, err)
			return outcome
		}
		outcome.Created = append(outcome.Created, alert)

		slog.InfoContext(ctx, "Budget alert created",
			"budget_id", b.ID,
			"alert_type", kind,
			"spent_cents", b.SpentAmount.Cents,
			"limit_cents", b.AmountLimit.Cents)

		e.publish(ctx, alert, b)
	}
	return outcome
}

func (e *AlertEmitter) publish(ctx context.Context, alert core.BudgetAlert, b core.Budget) {
	if e.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping alert message", "alert_id", alert.ID)
		return
	}
	if err := e.publisher.PublishBudgetAlert(ctx, amqp.NewBudgetAlertMessage(alert, b)); err != nil {
		// The alert row is already stored.
		slog.WarnContext(ctx, "Failed to publish budget alert message",
			"alert_id", alert.ID, "error", err)
	}
}
