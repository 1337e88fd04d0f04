package services

import (
	"context"
	"errors"
	"log/slog"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

// Balance deltas for each ledger mutation. Expenses debit the account and
// deposits credit it; updates apply the signed difference and deletes reverse
// the original amount.
func expenseCreateDelta(amount core.Money) int64         { return -amount.Cents }
func expenseUpdateDelta(oldAmt, newAmt core.Money) int64 { return -(newAmt.Cents - oldAmt.Cents) }
func expenseDeleteDelta(amount core.Money) int64         { return amount.Cents }
func depositCreateDelta(amount core.Money) int64         { return amount.Cents }
func depositUpdateDelta(oldAmt, newAmt core.Money) int64 { return newAmt.Cents - oldAmt.Cents }
func depositDeleteDelta(amount core.Money) int64         { return -amount.Cents }

// applyDelta adjusts the account balance inside the mutation's transaction.
// A zero delta is a no-op.
func applyDelta(ctx context.Context, q *storage.Queries, accountID string, deltaCents int64) error {
	if deltaCents == 0 {
		return nil
	}
	if err := q.ApplyBalanceDelta(ctx, accountID, deltaCents); err != nil {
		return &core.ConsistencyError{Step: "balance update", Err: err}
	}
	return nil
}

// balanceChange is one delta applied to one account.
type balanceChange struct {
	accountID  string
	deltaCents int64
}

// applyChanges applies each change in order. An update that switches accounts
// reverses the old amount on the old account and applies the new amount on the new one.
func applyChanges(ctx context.Context, q *storage.Queries, changes []balanceChange) error {
	for _, c := range changes {
		if err := applyDelta(ctx, q, c.accountID, c.deltaCents); err != nil {
			return err
		}
	}
	return nil
}

// logLedgerFailure reports failed mutations; consistency failures are logged at error level.
func logLedgerFailure(ctx context.Context, op, kind, entryID string, err error) {
	var ce *core.ConsistencyError
	if errors.As(err, &ce) {
		slog.ErrorContext(ctx, "Ledger mutation rolled back",
			applog.FieldComponent, applog.ComponentLedger,
			applog.FieldOperation, op,
			applog.FieldEntryKind, kind,
			applog.FieldEntryID, entryID,
			applog.FieldErrorType, applog.ErrorTypeConsistency,
			applog.FieldError, err)
		return
	}
	slog.DebugContext(ctx, "Ledger mutation rejected",
		applog.FieldOperation, op,
		applog.FieldEntryKind, kind,
		applog.FieldEntryID, entryID,
		applog.FieldError, err)
}

// logLedgerMutation records an applied delta on the request-scoped logger.
func logLedgerMutation(ctx context.Context, op, kind, entryID, accountID string, deltaCents int64) {
	if deltaCents == 0 {
		return
	}
	applog.NewStructuredLogger(applog.FromContext(ctx)).
		LogLedgerMutation(ctx, op, kind, entryID, accountID, deltaCents)
}
