package storage

import (
	"context"
	"fmt"

	"fintrack/internal/core"
)

const accountColumns = `id, user_id, name, bank_name, account_number, is_default, balance_cents, created_at, updated_at`

func scanAccount(row rowScanner) (core.BankAccount, error) {
	var (
		a                core.BankAccount
		created, updated string
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.BankName, &a.AccountNumber,
		&a.IsDefault, &a.Balance.Cents, &created, &updated); err != nil {
		return core.BankAccount{}, err
	}
	var err error
	if a.CreatedAt, err = parseTime(created); err != nil {
		return core.BankAccount{}, err
	}
	if a.UpdatedAt, err = parseTime(updated); err != nil {
		return core.BankAccount{}, err
	}
	return a, nil
}

func (q *Queries) CreateAccount(ctx context.Context, a core.BankAccount) error {
	_, err := q.db.ExecContext(ctx, `
INSERT INTO bank_accounts (`+accountColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Name, a.BankName, a.AccountNumber, boolInt(a.IsDefault),
		a.Balance.Cents, formatTime(a.CreatedAt), formatTime(a.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert bank account: %w", mapError(err))
	}
	return nil
}

func (q *Queries) GetAccount(ctx context.Context, id string) (core.BankAccount, error) {
	a, err := scanAccount(q.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM bank_accounts WHERE id = ?`, id))
	if err != nil {
		return core.BankAccount{}, getError(err, "bank account", id)
	}
	return a, nil
}

// GetUserAccount is GetAccount restricted to accounts owned by userID.
func (q *Queries) GetUserAccount(ctx context.Context, userID, id string) (core.BankAccount, error) {
	a, err := scanAccount(q.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM bank_accounts WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return core.BankAccount{}, getError(err, "bank account", id)
	}
	return a, nil
}

func (q *Queries) GetDefaultAccount(ctx context.Context, userID string) (core.BankAccount, error) {
	a, err := scanAccount(q.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM bank_accounts WHERE user_id = ? AND is_default = 1
		 ORDER BY created_at LIMIT 1`, userID))
	if err != nil {
		return core.BankAccount{}, getError(err, "default bank account for user", userID)
	}
	return a, nil
}

func (q *Queries) ListAccounts(ctx context.Context, userID string) ([]core.BankAccount, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM bank_accounts WHERE user_id = ? ORDER BY is_default DESC, name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list bank accounts: %w", err)
	}
	defer rows.Close()

	var out []core.BankAccount
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bank account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateAccountDetails changes descriptive fields only. The balance column is
// owned by ApplyBalanceDelta.
func (q *Queries) UpdateAccountDetails(ctx context.Context, a core.BankAccount) error {
	res, err := q.db.ExecContext(ctx, `
UPDATE bank_accounts
SET name = ?, bank_name = ?, account_number = ?, is_default = ?, updated_at = ?
WHERE id = ? AND user_id = ?`,
		a.Name, a.BankName, a.AccountNumber, boolInt(a.IsDefault), formatTime(a.UpdatedAt), a.ID, a.UserID)
	if err != nil {
		return fmt.Errorf("update bank account: %w", mapError(err))
	}
	return requireRow(res, "bank account", a.ID)
}

// ClearDefaultAccount unsets the default flag on every account of userID except keepID.
func (q *Queries) ClearDefaultAccount(ctx context.Context, userID, keepID string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE bank_accounts SET is_default = 0 WHERE user_id = ? AND id <> ? AND is_default = 1`,
		userID, keepID)
	if err != nil {
		return fmt.Errorf("clear default bank account: %w", err)
	}
	return nil
}

// ApplyBalanceDelta adds deltaCents to the account balance in a single statement.
func (q *Queries) ApplyBalanceDelta(ctx context.Context, accountID string, deltaCents int64) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE bank_accounts SET balance_cents = balance_cents + ? WHERE id = ?`, deltaCents, accountID)
	if err != nil {
		return fmt.Errorf("apply balance delta: %w", err)
	}
	return requireRow(res, "bank account", accountID)
}
