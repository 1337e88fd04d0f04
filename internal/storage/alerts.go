package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
)

func (q *Queries) InsertAlert(ctx context.Context, a core.BudgetAlert) error {
	_, err := q.db.ExecContext(ctx, `
INSERT INTO budget_alerts (id, budget_id, alert_type, message, is_read, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.BudgetID, string(a.AlertType), a.Message, boolInt(a.IsRead), formatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert budget alert: %w", mapError(err))
	}
	return nil
}

// UnreadAlertTypes reports which alert kinds already have an unread alert for the budget.
func (q *Queries) UnreadAlertTypes(ctx context.Context, budgetID string) (map[core.AlertType]bool, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT DISTINCT alert_type FROM budget_alerts WHERE budget_id = ? AND is_read = 0`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("unread alert types: %w", err)
	}
	defer rows.Close()

	out := make(map[core.AlertType]bool, 2)
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan alert type: %w", err)
		}
		out[core.AlertType(t)] = true
	}
	return out, rows.Err()
}

const alertSelect = `
SELECT al.id, al.budget_id, al.alert_type, al.message, al.is_read, al.created_at,
       b.id, b.user_id, b.month, b.year, b.amount_limit_cents, b.threshold_percentage, b.spent_cents, b.created_at, b.updated_at
FROM budget_alerts al
JOIN budgets b ON b.id = al.budget_id`

func scanAlert(row rowScanner, withBudget bool) (core.BudgetAlert, error) {
	var (
		a                            core.BudgetAlert
		b                            core.Budget
		alertType, created           string
		budgetCreated, budgetUpdated string
	)
	err := row.Scan(&a.ID, &a.BudgetID, &alertType, &a.Message, &a.IsRead, &created,
		&b.ID, &b.UserID, &b.Month, &b.Year, &b.AmountLimit.Cents, &b.ThresholdPercentage, &b.SpentAmount.Cents,
		&budgetCreated, &budgetUpdated)
	if err != nil {
		return core.BudgetAlert{}, err
	}
	a.AlertType = core.AlertType(alertType)
	if a.CreatedAt, err = parseTime(created); err != nil {
		return core.BudgetAlert{}, err
	}
	if withBudget {
		if b.CreatedAt, err = parseTime(budgetCreated); err != nil {
			return core.BudgetAlert{}, err
		}
		if b.UpdatedAt, err = parseTime(budgetUpdated); err != nil {
			return core.BudgetAlert{}, err
		}
		a.Budget = &b
	}
	return a, nil
}

func (q *Queries) listAlerts(ctx context.Context, withBudget bool, where string, args ...any) ([]core.BudgetAlert, error) {
	rows, err := q.db.QueryContext(ctx, alertSelect+where+` ORDER BY al.created_at DESC, al.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list budget alerts: %w", err)
	}
	defer rows.Close()

	var out []core.BudgetAlert
	for rows.Next() {
		a, err := scanAlert(rows, withBudget)
		if err != nil {
			return nil, fmt.Errorf("scan budget alert: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListUserAlerts returns the user's alerts newest first with their budget attached.
// A nil isRead returns both read and unread alerts.
func (q *Queries) ListUserAlerts(ctx context.Context, userID string, isRead *bool) ([]core.BudgetAlert, error) {
	clauses := []string{"b.user_id = ?"}
	args := []any{userID}
	if isRead != nil {
		clauses = append(clauses, "al.is_read = ?")
		args = append(args, boolInt(*isRead))
	}
	return q.listAlerts(ctx, true, " WHERE "+strings.Join(clauses, " AND "), args...)
}

// ListBudgetAlerts returns one budget's alerts newest first.
func (q *Queries) ListBudgetAlerts(ctx context.Context, budgetID string) ([]core.BudgetAlert, error) {
	return q.listAlerts(ctx, false, " WHERE al.budget_id = ?", budgetID)
}

// MarkAlertRead flags an alert owned by userID as read.
func (q *Queries) MarkAlertRead(ctx context.Context, userID, id string) error {
	res, err := q.db.ExecContext(ctx, `
UPDATE budget_alerts SET is_read = 1
WHERE id = ? AND budget_id IN (SELECT id FROM budgets WHERE user_id = ?)`, id, userID)
	if err != nil {
		return fmt.Errorf("mark alert read: %w", err)
	}
	return requireRow(res, "budget alert", id)
}

// PurgeReadAlerts deletes read alerts created before cutoff and returns how many were removed.
func (q *Queries) PurgeReadAlerts(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM budget_alerts WHERE is_read = 1 AND created_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("purge read alerts: %w", err)
	}
	return res.RowsAffected()
}
