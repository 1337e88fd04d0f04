package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fintrack/internal/core"
)

const recurringColumns = `id, user_id, category_id, amount_cents, note, frequency, start_date, end_date, next_due_date, is_active`

func scanRecurring(row rowScanner) (core.RecurringExpense, error) {
	var (
		re                core.RecurringExpense
		freq, start, next string
		end               sql.NullString
	)
	if err := row.Scan(&re.ID, &re.UserID, &re.CategoryID, &re.Amount.Cents, &re.Note, &freq,
		&start, &end, &next, &re.IsActive); err != nil {
		return core.RecurringExpense{}, err
	}
	re.Frequency = core.Frequency(freq)
	var err error
	if re.StartDate, err = parseTime(start); err != nil {
		return core.RecurringExpense{}, err
	}
	if re.NextDueDate, err = parseTime(next); err != nil {
		return core.RecurringExpense{}, err
	}
	if re.EndDate, err = parseNullTime(end); err != nil {
		return core.RecurringExpense{}, err
	}
	return re, nil
}

func (q *Queries) listRecurring(ctx context.Context, query string, args ...any) ([]core.RecurringExpense, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recurring expenses: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringExpense
	for rows.Next() {
		re, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring expense: %w", err)
		}
		out = append(out, re)
	}
	return out, rows.Err()
}

func (q *Queries) CreateRecurring(ctx context.Context, re core.RecurringExpense, now time.Time) error {
	_, err := q.db.ExecContext(ctx, `
INSERT INTO recurring_expenses (`+recurringColumns+`, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		re.ID, re.UserID, re.CategoryID, re.Amount.Cents, re.Note, string(re.Frequency),
		formatTime(re.StartDate), formatNullTime(re.EndDate), formatTime(re.NextDueDate),
		boolInt(re.IsActive), formatTime(now))
	if err != nil {
		return fmt.Errorf("insert recurring expense: %w", mapError(err))
	}
	return nil
}

func (q *Queries) GetRecurring(ctx context.Context, userID, id string) (core.RecurringExpense, error) {
	re, err := scanRecurring(q.db.QueryRowContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_expenses WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return core.RecurringExpense{}, getError(err, "recurring expense", id)
	}
	return re, nil
}

// ListActiveRecurring returns the user's active templates by next due date.
func (q *Queries) ListActiveRecurring(ctx context.Context, userID string) ([]core.RecurringExpense, error) {
	return q.listRecurring(ctx,
		`SELECT `+recurringColumns+` FROM recurring_expenses WHERE user_id = ? AND is_active = 1 ORDER BY next_due_date`,
		userID)
}

// ListDueRecurring returns active templates of every user due at or before now.
func (q *Queries) ListDueRecurring(ctx context.Context, now time.Time) ([]core.RecurringExpense, error) {
	return q.listRecurring(ctx,
		`SELECT `+recurringColumns+` FROM recurring_expenses WHERE is_active = 1 AND next_due_date <= ? ORDER BY next_due_date`,
		formatTime(now))
}

// AdvanceRecurring moves a template to its next occurrence, deactivating it past its end date.
func (q *Queries) AdvanceRecurring(ctx context.Context, id string, next time.Time, active bool) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE recurring_expenses SET next_due_date = ?, is_active = ? WHERE id = ?`,
		formatTime(next), boolInt(active), id)
	if err != nil {
		return fmt.Errorf("advance recurring expense: %w", err)
	}
	return requireRow(res, "recurring expense", id)
}
