package storage

import (
	"context"
	"fmt"
	"strings"

	"fintrack/internal/core"
)

const depositSelect = `
SELECT d.id, d.user_id, d.bank_account_id, d.deposit_type_id, d.amount_cents, d.note, d.date, d.created_at,
       t.id, t.name, t.description, t.icon, t.color,
       a.id, a.user_id, a.name, a.bank_name, a.account_number, a.is_default, a.balance_cents, a.created_at, a.updated_at
FROM deposits d
JOIN deposit_types t ON t.id = d.deposit_type_id
JOIN bank_accounts a ON a.id = d.bank_account_id`

func scanDeposit(row rowScanner, inc core.Include) (core.Deposit, error) {
	var (
		d                      core.Deposit
		t                      core.DepositType
		a                      core.BankAccount
		date, created          string
		accCreated, accUpdated string
	)
	err := row.Scan(&d.ID, &d.UserID, &d.BankAccountID, &d.DepositTypeID, &d.Amount.Cents, &d.Note, &date, &created,
		&t.ID, &t.Name, &t.Description, &t.Icon, &t.Color,
		&a.ID, &a.UserID, &a.Name, &a.BankName, &a.AccountNumber, &a.IsDefault, &a.Balance.Cents, &accCreated, &accUpdated)
	if err != nil {
		return core.Deposit{}, err
	}
	if d.Date, err = parseTime(date); err != nil {
		return core.Deposit{}, err
	}
	if d.CreatedAt, err = parseTime(created); err != nil {
		return core.Deposit{}, err
	}
	if inc.DepositType {
		d.DepositType = &t
	}
	if inc.BankAccount {
		if a.CreatedAt, err = parseTime(accCreated); err != nil {
			return core.Deposit{}, err
		}
		if a.UpdatedAt, err = parseTime(accUpdated); err != nil {
			return core.Deposit{}, err
		}
		d.BankAccount = &a
	}
	return d, nil
}

func (q *Queries) InsertDeposit(ctx context.Context, d core.Deposit) error {
	_, err := q.db.ExecContext(ctx, `
INSERT INTO deposits (id, user_id, bank_account_id, deposit_type_id, amount_cents, note, date, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.UserID, d.BankAccountID, d.DepositTypeID, d.Amount.Cents, d.Note,
		formatTime(d.Date), formatTime(d.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert deposit: %w", mapError(err))
	}
	return nil
}

func (q *Queries) GetDeposit(ctx context.Context, userID, id string) (core.Deposit, error) {
	d, err := scanDeposit(q.db.QueryRowContext(ctx, depositSelect+` WHERE d.id = ? AND d.user_id = ?`, id, userID), core.IncludeAll)
	if err != nil {
		return core.Deposit{}, getError(err, "deposit", id)
	}
	return d, nil
}

func (q *Queries) UpdateDeposit(ctx context.Context, d core.Deposit) error {
	res, err := q.db.ExecContext(ctx, `
UPDATE deposits
SET bank_account_id = ?, deposit_type_id = ?, amount_cents = ?, note = ?, date = ?
WHERE id = ? AND user_id = ?`,
		d.BankAccountID, d.DepositTypeID, d.Amount.Cents, d.Note, formatTime(d.Date), d.ID, d.UserID)
	if err != nil {
		return fmt.Errorf("update deposit: %w", mapError(err))
	}
	return requireRow(res, "deposit", d.ID)
}

func (q *Queries) DeleteDeposit(ctx context.Context, userID, id string) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM deposits WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete deposit: %w", err)
	}
	return requireRow(res, "deposit", id)
}

func depositWhere(f core.DepositFilter) (string, []any) {
	clauses := []string{"d.user_id = ?"}
	args := []any{f.UserID}
	if f.From != nil {
		clauses = append(clauses, "d.date >= ?")
		args = append(args, formatTime(*f.From))
	}
	if f.To != nil {
		clauses = append(clauses, "d.date < ?")
		args = append(args, formatTime(*f.To))
	}
	if f.BankAccountID != "" {
		clauses = append(clauses, "d.bank_account_id = ?")
		args = append(args, f.BankAccountID)
	}
	if f.DepositTypeID != "" {
		clauses = append(clauses, "d.deposit_type_id = ?")
		args = append(args, f.DepositTypeID)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (q *Queries) ListDeposits(ctx context.Context, f core.DepositFilter) ([]core.Deposit, error) {
	where, args := depositWhere(f)
	rows, err := q.db.QueryContext(ctx, depositSelect+where+` ORDER BY d.date DESC, d.created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list deposits: %w", err)
	}
	defer rows.Close()

	var out []core.Deposit
	for rows.Next() {
		d, err := scanDeposit(rows, f.Include)
		if err != nil {
			return nil, fmt.Errorf("scan deposit: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (q *Queries) DepositTotalsByType(ctx context.Context, f core.DepositFilter) ([]core.CategoryAmount, error) {
	where, args := depositWhere(f)
	rows, err := q.db.QueryContext(ctx, `
SELECT t.name, SUM(d.amount_cents), COUNT(*)
FROM deposits d
JOIN deposit_types t ON t.id = d.deposit_type_id`+where+`
GROUP BY t.name
ORDER BY SUM(d.amount_cents) DESC, t.name`, args...)
	if err != nil {
		return nil, fmt.Errorf("deposit totals by type: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryAmount
	for rows.Next() {
		var ca core.CategoryAmount
		if err := rows.Scan(&ca.Name, &ca.Amount.Cents, &ca.Count); err != nil {
			return nil, fmt.Errorf("scan deposit type total: %w", err)
		}
		out = append(out, ca)
	}
	return out, rows.Err()
}
