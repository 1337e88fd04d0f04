package storage

import (
	"context"
	"fmt"

	"fintrack/internal/core"
)

// Expense categories and deposit types share one shape: id, name, description, icon, color.

const lookupColumns = `id, name, description, icon, color`

func (q *Queries) CreateCategory(ctx context.Context, c core.ExpenseCategory) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO expense_categories (`+lookupColumns+`) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Description, c.Icon, c.Color)
	if err != nil {
		return fmt.Errorf("insert expense category: %w", mapError(err))
	}
	return nil
}

func (q *Queries) GetCategory(ctx context.Context, id string) (core.ExpenseCategory, error) {
	var c core.ExpenseCategory
	err := q.db.QueryRowContext(ctx,
		`SELECT `+lookupColumns+` FROM expense_categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Description, &c.Icon, &c.Color)
	if err != nil {
		return core.ExpenseCategory{}, getError(err, "expense category", id)
	}
	return c, nil
}

func (q *Queries) ListCategories(ctx context.Context) ([]core.ExpenseCategory, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+lookupColumns+` FROM expense_categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list expense categories: %w", err)
	}
	defer rows.Close()

	var out []core.ExpenseCategory
	for rows.Next() {
		var c core.ExpenseCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Icon, &c.Color); err != nil {
			return nil, fmt.Errorf("scan expense category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (q *Queries) UpdateCategory(ctx context.Context, c core.ExpenseCategory) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE expense_categories SET name = ?, description = ?, icon = ?, color = ? WHERE id = ?`,
		c.Name, c.Description, c.Icon, c.Color, c.ID)
	if err != nil {
		return fmt.Errorf("update expense category: %w", mapError(err))
	}
	return requireRow(res, "expense category", c.ID)
}

// DeleteCategory fails with core.ErrConflict while expenses still reference it.
func (q *Queries) DeleteCategory(ctx context.Context, id string) error {
	var used int
	if err := q.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM expenses WHERE category_id = ?) +
		        (SELECT COUNT(*) FROM recurring_expenses WHERE category_id = ?)`, id, id).Scan(&used); err != nil {
		return fmt.Errorf("count category usage: %w", err)
	}
	if used > 0 {
		return fmt.Errorf("expense category %s is in use: %w", id, core.ErrConflict)
	}
	res, err := q.db.ExecContext(ctx, `DELETE FROM expense_categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense category: %w", mapError(err))
	}
	return requireRow(res, "expense category", id)
}

func (q *Queries) CreateDepositType(ctx context.Context, d core.DepositType) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO deposit_types (`+lookupColumns+`) VALUES (?, ?, ?, ?, ?)`,
		d.ID, d.Name, d.Description, d.Icon, d.Color)
	if err != nil {
		return fmt.Errorf("insert deposit type: %w", mapError(err))
	}
	return nil
}

func (q *Queries) GetDepositType(ctx context.Context, id string) (core.DepositType, error) {
	var d core.DepositType
	err := q.db.QueryRowContext(ctx,
		`SELECT `+lookupColumns+` FROM deposit_types WHERE id = ?`, id).
		Scan(&d.ID, &d.Name, &d.Description, &d.Icon, &d.Color)
	if err != nil {
		return core.DepositType{}, getError(err, "deposit type", id)
	}
	return d, nil
}

func (q *Queries) ListDepositTypes(ctx context.Context) ([]core.DepositType, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+lookupColumns+` FROM deposit_types ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list deposit types: %w", err)
	}
	defer rows.Close()

	var out []core.DepositType
	for rows.Next() {
		var d core.DepositType
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.Icon, &d.Color); err != nil {
			return nil, fmt.Errorf("scan deposit type: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
