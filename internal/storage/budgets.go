package storage

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"
)

const budgetColumns = `id, user_id, month, year, amount_limit_cents, threshold_percentage, spent_cents, created_at, updated_at`

func scanBudget(row rowScanner) (core.Budget, error) {
	var (
		b                core.Budget
		created, updated string
	)
	if err := row.Scan(&b.ID, &b.UserID, &b.Month, &b.Year, &b.AmountLimit.Cents,
		&b.ThresholdPercentage, &b.SpentAmount.Cents, &created, &updated); err != nil {
		return core.Budget{}, err
	}
	var err error
	if b.CreatedAt, err = parseTime(created); err != nil {
		return core.Budget{}, err
	}
	if b.UpdatedAt, err = parseTime(updated); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

func (q *Queries) listBudgets(ctx context.Context, query string, args ...any) ([]core.Budget, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// CreateBudget fails with core.ErrConflict when the user already has a budget for the month.
func (q *Queries) CreateBudget(ctx context.Context, b core.Budget) error {
	_, err := q.db.ExecContext(ctx, `INSERT INTO budgets (`+budgetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.Month, b.Year, b.AmountLimit.Cents, b.ThresholdPercentage, b.SpentAmount.Cents,
		formatTime(b.CreatedAt), formatTime(b.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert budget: %w", mapError(err))
	}
	return nil
}

func (q *Queries) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	b, err := scanBudget(q.db.QueryRowContext(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id))
	if err != nil {
		return core.Budget{}, getError(err, "budget", id)
	}
	return b, nil
}

func (q *Queries) GetUserBudget(ctx context.Context, userID, id string) (core.Budget, error) {
	b, err := scanBudget(q.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return core.Budget{}, getError(err, "budget", id)
	}
	return b, nil
}

// FindBudgetForMonth returns the user's budget for month/year or core.ErrNotFound.
func (q *Queries) FindBudgetForMonth(ctx context.Context, userID string, month, year int) (core.Budget, error) {
	b, err := scanBudget(q.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE user_id = ? AND month = ? AND year = ?`, userID, month, year))
	if err != nil {
		return core.Budget{}, getError(err, "budget", fmt.Sprintf("%04d-%02d", year, month))
	}
	return b, nil
}

// ListBudgets returns the user's budgets ordered by period, optionally limited to one year.
func (q *Queries) ListBudgets(ctx context.Context, userID string, year *int) ([]core.Budget, error) {
	if year != nil {
		return q.listBudgets(ctx,
			`SELECT `+budgetColumns+` FROM budgets WHERE user_id = ? AND year = ? ORDER BY month`, userID, *year)
	}
	return q.listBudgets(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE user_id = ? ORDER BY year DESC, month DESC`, userID)
}

// ListAllBudgets is used by the reconciliation sweep.
func (q *Queries) ListAllBudgets(ctx context.Context) ([]core.Budget, error) {
	return q.listBudgets(ctx, `SELECT `+budgetColumns+` FROM budgets ORDER BY year, month, user_id`)
}

func (q *Queries) UpdateBudgetLimits(ctx context.Context, b core.Budget) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE budgets SET amount_limit_cents = ?, threshold_percentage = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		b.AmountLimit.Cents, b.ThresholdPercentage, formatTime(b.UpdatedAt), b.ID, b.UserID)
	if err != nil {
		return fmt.Errorf("update budget: %w", mapError(err))
	}
	return requireRow(res, "budget", b.ID)
}

// DeleteBudget removes the budget; its alerts cascade.
func (q *Queries) DeleteBudget(ctx context.Context, userID, id string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return requireRow(res, "budget", id)
}

// AddBudgetSpent adds deltaCents to spent_cents in a single statement.
func (q *Queries) AddBudgetSpent(ctx context.Context, id string, deltaCents int64, now time.Time) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE budgets SET spent_cents = spent_cents + ?, updated_at = ? WHERE id = ?`,
		deltaCents, formatTime(now), id)
	if err != nil {
		return fmt.Errorf("add budget spent: %w", err)
	}
	return requireRow(res, "budget", id)
}

// SetBudgetSpent overwrites spent_cents with a recomputed total.
func (q *Queries) SetBudgetSpent(ctx context.Context, id string, cents int64, now time.Time) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE budgets SET spent_cents = ?, updated_at = ? WHERE id = ?`, cents, formatTime(now), id)
	if err != nil {
		return fmt.Errorf("set budget spent: %w", err)
	}
	return requireRow(res, "budget", id)
}
