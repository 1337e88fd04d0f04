package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// RecurringProcessor manages recurring expense templates and turns due
// templates into expenses.
type RecurringProcessor struct {
	repo     *storage.SQLiteRepository
	expenses *ExpenseService
	now      func() time.Time
}

func NewRecurringProcessor(repo *storage.SQLiteRepository, expenses *ExpenseService) *RecurringProcessor {
	return &RecurringProcessor{repo: repo, expenses: expenses, now: time.Now}
}

// CreateRecurring stores a template. Its first occurrence is one period after the start date.
func (p *RecurringProcessor) CreateRecurring(ctx context.Context, re core.RecurringExpense) (core.RecurringExpense, error) {
	re.StartDate = re.StartDate.UTC()
	if re.EndDate != nil {
		end := re.EndDate.UTC()
		re.EndDate = &end
	}
	if err := re.Validate(); err != nil {
		return core.RecurringExpense{}, err
	}
	next, err := NextDueDate(re.Frequency, re.StartDate, re.StartDate)
	if err != nil {
		return core.RecurringExpense{}, core.NewValidationError("frequency", err.Error())
	}
	re.ID = uuid.NewString()
	re.NextDueDate = next
	re.IsActive = true

	q := p.repo.Queries()
	if _, err := q.GetCategory(ctx, re.CategoryID); err != nil {
		return core.RecurringExpense{}, err
	}
	if err := q.CreateRecurring(ctx, re, p.now().UTC()); err != nil {
		return core.RecurringExpense{}, err
	}

	slog.InfoContext(ctx, "Recurring expense created",
		"recurring_id", re.ID, "user_id", re.UserID, "frequency", re.Frequency,
		"next_due", re.NextDueDate.Format("2006-01-02"))
	return re, nil
}

// ListRecurring returns the user's active templates by next due date.
func (p *RecurringProcessor) ListRecurring(ctx context.Context, userID string) ([]core.RecurringExpense, error) {
	return p.repo.Queries().ListActiveRecurring(ctx, userID)
}

// ProcessDueExpenses creates one expense for every template due at now, on the
// owner's default account, and advances each template by one period. Templates
// whose owner has no default account are skipped and stay due.
func (p *RecurringProcessor) ProcessDueExpenses(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()
	q := p.repo.Queries()
	due, err := q.ListDueRecurring(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list due recurring expenses: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring expenses",
		"due", len(due),
		"processing_date", now.Format("2006-01-02"))

	processed := 0
	for _, re := range due {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		if re.EndDate != nil && re.EndDate.Before(now) {
			if err := q.AdvanceRecurring(ctx, re.ID, re.NextDueDate, false); err != nil {
				slog.ErrorContext(ctx, "Failed to deactivate ended recurring expense", "recurring_id", re.ID, "error", err)
			}
			continue
		}

		account, err := q.GetDefaultAccount(ctx, re.UserID)
		if errors.Is(err, core.ErrNotFound) {
			slog.WarnContext(ctx, "No default account for recurring expense owner",
				"recurring_id", re.ID, "user_id", re.UserID)
			continue
		}
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load default account", "recurring_id", re.ID, "error", err)
			continue
		}

		_, err = p.expenses.CreateExpense(ctx, core.Expense{
			UserID:             re.UserID,
			BankAccountID:      account.ID,
			CategoryID:         re.CategoryID,
			Amount:             re.Amount,
			Note:               re.Note,
			Date:               now,
			IsRecurring:        true,
			RecurringExpenseID: re.ID,
		})
		if err != nil {
			slog.ErrorContext(ctx, "Failed to create expense from recurring template",
				"recurring_id", re.ID, "error", err)
			continue
		}

		next, err := NextDueDate(re.Frequency, re.NextDueDate, re.StartDate)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to compute next due date", "recurring_id", re.ID, "error", err)
			continue
		}
		active := re.EndDate == nil || !next.After(*re.EndDate)
		if next.Year() > core.MaxYear {
			next, active = re.NextDueDate, false
		}
		if err := q.AdvanceRecurring(ctx, re.ID, next, active); err != nil {
			// The expense exists; the template stays due and is picked up again next run.
			slog.ErrorContext(ctx, "Failed to advance recurring expense", "recurring_id", re.ID, "error", err)
		}

		processed++
		slog.InfoContext(ctx, "Created expense from recurring template",
			"recurring_id", re.ID,
			"amount_cents", re.Amount.Cents,
			"frequency", re.Frequency,
			"next_due", next.Format("2006-01-02"))
	}

	slog.InfoContext(ctx, "Recurring expense processing complete",
		"processed", processed,
		"total_checked", len(due))
	return processed, nil
}
