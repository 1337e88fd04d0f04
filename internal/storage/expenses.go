package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
)

const expenseSelect = `
SELECT e.id, e.user_id, e.bank_account_id, e.category_id, e.amount_cents, e.note, e.date,
       e.is_recurring, e.recurring_expense_id, e.receipt_id, e.created_at,
       c.id, c.name, c.description, c.icon, c.color,
       a.id, a.user_id, a.name, a.bank_name, a.account_number, a.is_default, a.balance_cents, a.created_at, a.updated_at
FROM expenses e
JOIN expense_categories c ON c.id = e.category_id
JOIN bank_accounts a ON a.id = e.bank_account_id`

func scanExpense(row rowScanner, inc core.Include) (core.Expense, error) {
	var (
		e                      core.Expense
		c                      core.ExpenseCategory
		a                      core.BankAccount
		date, created          string
		recurringID            sql.NullString
		accCreated, accUpdated string
	)
	err := row.Scan(&e.ID, &e.UserID, &e.BankAccountID, &e.CategoryID, &e.Amount.Cents, &e.Note, &date,
		&e.IsRecurring, &recurringID, &e.ReceiptID, &created,
		&c.ID, &c.Name, &c.Description, &c.Icon, &c.Color,
		&a.ID, &a.UserID, &a.Name, &a.BankName, &a.AccountNumber, &a.IsDefault, &a.Balance.Cents, &accCreated, &accUpdated)
	if err != nil {
		return core.Expense{}, err
	}
	e.RecurringExpenseID = recurringID.String
	if e.Date, err = parseTime(date); err != nil {
		return core.Expense{}, err
	}
	if e.CreatedAt, err = parseTime(created); err != nil {
		return core.Expense{}, err
	}
	if inc.Category {
		e.Category = &c
	}
	if inc.BankAccount {
		if a.CreatedAt, err = parseTime(accCreated); err != nil {
			return core.Expense{}, err
		}
		if a.UpdatedAt, err = parseTime(accUpdated); err != nil {
			return core.Expense{}, err
		}
		e.BankAccount = &a
	}
	return e, nil
}

func (q *Queries) InsertExpense(ctx context.Context, e core.Expense) error {
	_, err := q.db.ExecContext(ctx, `
INSERT INTO expenses (id, user_id, bank_account_id, category_id, amount_cents, note, date,
                      is_recurring, recurring_expense_id, receipt_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.BankAccountID, e.CategoryID, e.Amount.Cents, e.Note, formatTime(e.Date),
		boolInt(e.IsRecurring), nullString(e.RecurringExpenseID), e.ReceiptID, formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert expense: %w", mapError(err))
	}
	return nil
}

// GetExpense loads an expense owned by userID together with its category and account.
func (q *Queries) GetExpense(ctx context.Context, userID, id string) (core.Expense, error) {
	e, err := scanExpense(q.db.QueryRowContext(ctx, expenseSelect+` WHERE e.id = ? AND e.user_id = ?`, id, userID), core.IncludeAll)
	if err != nil {
		return core.Expense{}, getError(err, "expense", id)
	}
	return e, nil
}

func (q *Queries) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := q.db.ExecContext(ctx, `
UPDATE expenses
SET bank_account_id = ?, category_id = ?, amount_cents = ?, note = ?, date = ?,
    is_recurring = ?, recurring_expense_id = ?, receipt_id = ?
WHERE id = ? AND user_id = ?`,
		e.BankAccountID, e.CategoryID, e.Amount.Cents, e.Note, formatTime(e.Date),
		boolInt(e.IsRecurring), nullString(e.RecurringExpenseID), e.ReceiptID, e.ID, e.UserID)
	if err != nil {
		return fmt.Errorf("update expense: %w", mapError(err))
	}
	return requireRow(res, "expense", e.ID)
}

func (q *Queries) DeleteExpense(ctx context.Context, userID, id string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return requireRow(res, "expense", id)
}

func expenseWhere(f core.ExpenseFilter) (string, []any) {
	clauses := []string{"e.user_id = ?"}
	args := []any{f.UserID}
	if f.From != nil {
		clauses = append(clauses, "e.date >= ?")
		args = append(args, formatTime(*f.From))
	}
	if f.To != nil {
		clauses = append(clauses, "e.date < ?")
		args = append(args, formatTime(*f.To))
	}
	if f.BankAccountID != "" {
		clauses = append(clauses, "e.bank_account_id = ?")
		args = append(args, f.BankAccountID)
	}
	if f.CategoryID != "" {
		clauses = append(clauses, "e.category_id = ?")
		args = append(args, f.CategoryID)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ListExpenses returns matching expenses, newest first.
func (q *Queries) ListExpenses(ctx context.Context, f core.ExpenseFilter) ([]core.Expense, error) {
	where, args := expenseWhere(f)
	rows, err := q.db.QueryContext(ctx, expenseSelect+where+` ORDER BY e.date DESC, e.created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows, f.Include)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SumExpenses totals the user's expenses dated in [from, to).
func (q *Queries) SumExpenses(ctx context.Context, userID string, from, to time.Time) (int64, error) {
	var total int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM expenses WHERE user_id = ? AND date >= ? AND date < ?`,
		userID, formatTime(from), formatTime(to)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum expenses: %w", err)
	}
	return total, nil
}

// ExpenseTotalsByCategory aggregates matching expenses per category name.
func (q *Queries) ExpenseTotalsByCategory(ctx context.Context, f core.ExpenseFilter) ([]core.CategoryAmount, error) {
	where, args := expenseWhere(f)
	rows, err := q.db.QueryContext(ctx, `
SELECT c.name, SUM(e.amount_cents), COUNT(*)
FROM expenses e
JOIN expense_categories c ON c.id = e.category_id`+where+`
GROUP BY c.name
ORDER BY SUM(e.amount_cents) DESC, c.name`, args...)
	if err != nil {
		return nil, fmt.Errorf("expense totals by category: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryAmount
	for rows.Next() {
		var ca core.CategoryAmount
		if err := rows.Scan(&ca.Name, &ca.Amount.Cents, &ca.Count); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		out = append(out, ca)
	}
	return out, rows.Err()
}
