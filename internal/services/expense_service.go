package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

// ExpenseUpdate carries optional expense changes; nil fields are left untouched.
type ExpenseUpdate struct {
	BankAccountID      *string
	CategoryID         *string
	Amount             *core.Money
	Note               *string
	Date               *time.Time
	IsRecurring        *bool
	RecurringExpenseID *string
}

// ExpenseService records expenses. Each mutation writes the expense row, the
// account balance and the month's budget spend in one transaction, then
// evaluates budget alerts after commit.
type ExpenseService struct {
	repo    *storage.SQLiteRepository
	budgets *BudgetService
	now     func() time.Time
}

func NewExpenseService(repo *storage.SQLiteRepository, budgets *BudgetService) *ExpenseService {
	return &ExpenseService{
		repo:    repo,
		budgets: budgets,
		now:     time.Now,
	}
}

// checkExpenseReferences verifies that the records e points to exist and belong to its user.
func checkExpenseReferences(ctx context.Context, q *storage.Queries, e core.Expense) error {
	if _, err := q.GetUserAccount(ctx, e.UserID, e.BankAccountID); err != nil {
		return err
	}
	if _, err := q.GetCategory(ctx, e.CategoryID); err != nil {
		return err
	}
	if e.RecurringExpenseID != "" {
		if _, err := q.GetRecurring(ctx, e.UserID, e.RecurringExpenseID); err != nil {
			return err
		}
	}
	return nil
}

// CreateExpense stores e and debits its bank account. A zero date defaults to now.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	now := s.now().UTC()
	if e.Date.IsZero() {
		e.Date = now
	}
	e.Date = e.Date.UTC()
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	e.ID = uuid.NewString()
	e.CreatedAt = now
	e.Category, e.BankAccount = nil, nil

	delta := expenseCreateDelta(e.Amount)
	var budgetID string
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		if err := checkExpenseReferences(ctx, q, e); err != nil {
			return err
		}
		if err := q.InsertExpense(ctx, e); err != nil {
			return err
		}
		if err := applyDelta(ctx, q, e.BankAccountID, delta); err != nil {
			return err
		}
		id, err := s.budgets.trackExpense(ctx, q, e.UserID, e.Date, e.Amount.Cents)
		if err != nil {
			return &core.ConsistencyError{Step: "budget spending", Err: err}
		}
		budgetID = id
		return nil
	})
	if err != nil {
		logLedgerFailure(ctx, applog.OpCreate, "expense", e.ID, err)
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	logLedgerMutation(ctx, applog.OpCreate, "expense", e.ID, e.BankAccountID, delta)

	s.budgets.evaluate(ctx, budgetID)
	return s.repo.Queries().GetExpense(ctx, e.UserID, e.ID)
}

func (s *ExpenseService) GetExpense(ctx context.Context, userID, id string) (core.Expense, error) {
	return s.repo.Queries().GetExpense(ctx, userID, id)
}

func (s *ExpenseService) ListExpenses(ctx context.Context, f core.ExpenseFilter) ([]core.Expense, error) {
	return s.repo.Queries().ListExpenses(ctx, f)
}

// UpdateExpense applies upd. The balance moves by the amount difference, or is
// transferred when the account changes; budget spend follows the expense's month.
func (s *ExpenseService) UpdateExpense(ctx context.Context, userID, id string, upd ExpenseUpdate) (core.Expense, error) {
	var (
		touched []string
		applied []balanceChange
	)
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		old, err := q.GetExpense(ctx, userID, id)
		if err != nil {
			return err
		}
		e := old
		e.Category, e.BankAccount = nil, nil
		if upd.BankAccountID != nil {
			e.BankAccountID = *upd.BankAccountID
		}
		if upd.CategoryID != nil {
			e.CategoryID = *upd.CategoryID
		}
		if upd.Amount != nil {
			e.Amount = *upd.Amount
		}
		if upd.Note != nil {
			e.Note = *upd.Note
		}
		if upd.Date != nil {
			e.Date = upd.Date.UTC()
		}
		if upd.IsRecurring != nil {
			e.IsRecurring = *upd.IsRecurring
		}
		if upd.RecurringExpenseID != nil {
			e.RecurringExpenseID = *upd.RecurringExpenseID
		}
		if err := e.Validate(); err != nil {
			return err
		}
		if err := checkExpenseReferences(ctx, q, e); err != nil {
			return err
		}
		if err := q.UpdateExpense(ctx, e); err != nil {
			return err
		}

		if e.BankAccountID == old.BankAccountID {
			applied = []balanceChange{{e.BankAccountID, expenseUpdateDelta(old.Amount, e.Amount)}}
		} else {
			applied = []balanceChange{
				{old.BankAccountID, expenseDeleteDelta(old.Amount)},
				{e.BankAccountID, expenseCreateDelta(e.Amount)},
			}
		}
		if err := applyChanges(ctx, q, applied); err != nil {
			return err
		}

		touched, err = s.moveBudgetSpend(ctx, q, old, e)
		if err != nil {
			return &core.ConsistencyError{Step: "budget spending", Err: err}
		}
		return nil
	})
	if err != nil {
		logLedgerFailure(ctx, applog.OpUpdate, "expense", id, err)
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	for _, c := range applied {
		logLedgerMutation(ctx, applog.OpUpdate, "expense", id, c.accountID, c.deltaCents)
	}

	s.budgets.evaluate(ctx, touched...)
	return s.repo.Queries().GetExpense(ctx, userID, id)
}

// moveBudgetSpend shifts spend between the budgets of old's and e's months.
func (s *ExpenseService) moveBudgetSpend(ctx context.Context, q *storage.Queries, old, e core.Expense) ([]string, error) {
	oldDate, newDate := old.Date.UTC(), e.Date.UTC()
	if oldDate.Year() == newDate.Year() && oldDate.Month() == newDate.Month() {
		id, err := s.budgets.trackExpense(ctx, q, e.UserID, newDate, e.Amount.Cents-old.Amount.Cents)
		return []string{id}, err
	}
	oldID, err := s.budgets.trackExpense(ctx, q, e.UserID, oldDate, -old.Amount.Cents)
	if err != nil {
		return nil, err
	}
	newID, err := s.budgets.trackExpense(ctx, q, e.UserID, newDate, e.Amount.Cents)
	if err != nil {
		return nil, err
	}
	return []string{oldID, newID}, nil
}

// DeleteExpense removes the expense and refunds its amount to the account.
func (s *ExpenseService) DeleteExpense(ctx context.Context, userID, id string) error {
	var (
		budgetID string
		refund   balanceChange
	)
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		old, err := q.GetExpense(ctx, userID, id)
		if err != nil {
			return err
		}
		if err := q.DeleteExpense(ctx, userID, id); err != nil {
			return err
		}
		refund = balanceChange{old.BankAccountID, expenseDeleteDelta(old.Amount)}
		if err := applyDelta(ctx, q, refund.accountID, refund.deltaCents); err != nil {
			return err
		}

		budgetID, err = s.budgets.trackExpense(ctx, q, userID, old.Date, -old.Amount.Cents)
		if err != nil {
			return &core.ConsistencyError{Step: "budget spending", Err: err}
		}
		return nil
	})
	if err != nil {
		logLedgerFailure(ctx, applog.OpDelete, "expense", id, err)
		return fmt.Errorf("delete expense: %w", err)
	}
	logLedgerMutation(ctx, applog.OpDelete, "expense", id, refund.accountID, refund.deltaCents)

	s.budgets.evaluate(ctx, budgetID)
	return nil
}

// GetExpenseSummary totals the filtered expenses per category.
func (s *ExpenseService) GetExpenseSummary(ctx context.Context, f core.ExpenseFilter) (core.LedgerSummary, error) {
	byCategory, err := s.repo.Queries().ExpenseTotalsByCategory(ctx, f)
	if err != nil {
		return core.LedgerSummary{}, err
	}
	summary := core.LedgerSummary{ByCategory: byCategory}
	if f.From != nil {
		summary.From = *f.From
	}
	if f.To != nil {
		summary.To = *f.To
	}
	summary.Total()

	slog.DebugContext(ctx, "Expense summary computed",
		"user_id", f.UserID, "count", summary.Count, "total_cents", summary.TotalAmount.Cents)
	return summary, nil
}
