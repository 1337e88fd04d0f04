package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// BudgetInput carries the fields accepted when creating a budget.
type BudgetInput struct {
	Month               int
	Year                int
	AmountLimit         core.Money
	ThresholdPercentage int
}

// BudgetUpdate carries optional budget changes; nil fields are left untouched.
type BudgetUpdate struct {
	AmountLimit         *core.Money
	ThresholdPercentage *int
}

// ReconcileResult summarizes a RecalculateAll sweep.
type ReconcileResult struct {
	Checked int
	Failed  map[string]error
}

// BudgetService maintains budgets, their cached spent amounts and their alerts.
type BudgetService struct {
	repo   *storage.SQLiteRepository
	alerts *AlertEmitter
	now    func() time.Time
}

func NewBudgetService(repo *storage.SQLiteRepository, publisher AlertPublisher) *BudgetService {
	return &BudgetService{
		repo:   repo,
		alerts: NewAlertEmitter(repo.Queries(), publisher),
		now:    time.Now,
	}
}

func (s *BudgetService) CreateBudget(ctx context.Context, userID string, in BudgetInput) (core.Budget, error) {
	threshold := in.ThresholdPercentage
	if threshold == 0 {
		threshold = core.DefaultThresholdPercentage
	}
	now := s.now().UTC()
	b := core.Budget{
		ID:                  uuid.NewString(),
		UserID:              userID,
		Month:               in.Month,
		Year:                in.Year,
		AmountLimit:         in.AmountLimit,
		ThresholdPercentage: threshold,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	if err := s.repo.Queries().CreateBudget(ctx, b); err != nil {
		if errors.Is(err, core.ErrConflict) {
			return core.Budget{}, fmt.Errorf("budget for %04d-%02d already exists: %w", b.Year, b.Month, core.ErrConflict)
		}
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget created",
		"budget_id", b.ID, "user_id", userID, "month", b.Month, "year", b.Year,
		"limit_cents", b.AmountLimit.Cents)

	// Expenses may already exist for the month.
	spent, err := s.RecalculateBudgetSpending(ctx, b.ID)
	if err != nil {
		slog.WarnContext(ctx, "Initial budget recalculation failed", "budget_id", b.ID, "error", err)
	} else {
		b.SpentAmount = spent
	}
	return b, nil
}

// GetBudget returns a budget owned by userID together with its alerts.
func (s *BudgetService) GetBudget(ctx context.Context, userID, id string) (core.Budget, error) {
	q := s.repo.Queries()
	b, err := q.GetUserBudget(ctx, userID, id)
	if err != nil {
		return core.Budget{}, err
	}
	if b.Alerts, err = q.ListBudgetAlerts(ctx, b.ID); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

// ListBudgets returns the user's budgets with alerts, optionally for one year.
func (s *BudgetService) ListBudgets(ctx context.Context, userID string, year *int) ([]core.Budget, error) {
	q := s.repo.Queries()
	budgets, err := q.ListBudgets(ctx, userID, year)
	if err != nil {
		return nil, err
	}
	for i := range budgets {
		if budgets[i].Alerts, err = q.ListBudgetAlerts(ctx, budgets[i].ID); err != nil {
			return nil, err
		}
	}
	return budgets, nil
}

// GetCurrentBudget returns the budget for the current UTC month.
func (s *BudgetService) GetCurrentBudget(ctx context.Context, userID string) (core.Budget, error) {
	now := s.now().UTC()
	b, err := s.repo.Queries().FindBudgetForMonth(ctx, userID, int(now.Month()), now.Year())
	if err != nil {
		return core.Budget{}, err
	}
	return s.GetBudget(ctx, userID, b.ID)
}

// UpdateBudget changes the limit or threshold and re-evaluates alerts.
func (s *BudgetService) UpdateBudget(ctx context.Context, userID, id string, upd BudgetUpdate) (core.Budget, error) {
	q := s.repo.Queries()
	b, err := q.GetUserBudget(ctx, userID, id)
	if err != nil {
		return core.Budget{}, err
	}
	if upd.AmountLimit != nil {
		b.AmountLimit = *upd.AmountLimit
	}
	if upd.ThresholdPercentage != nil {
		b.ThresholdPercentage = *upd.ThresholdPercentage
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	b.UpdatedAt = s.now().UTC()
	if err := q.UpdateBudgetLimits(ctx, b); err != nil {
		return core.Budget{}, err
	}

	s.logOutcome(ctx, b, s.alerts.Emit(ctx, b))
	return s.GetBudget(ctx, userID, id)
}

func (s *BudgetService) DeleteBudget(ctx context.Context, userID, id string) error {
	if err := s.repo.Queries().DeleteBudget(ctx, userID, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Budget deleted", "budget_id", id, "user_id", userID)
	return nil
}

// RecalculateBudgetSpending recomputes spent from the month's expenses,
// overwrites the cached value and evaluates alerts. Repeated calls are idempotent.
func (s *BudgetService) RecalculateBudgetSpending(ctx context.Context, budgetID string) (core.Money, error) {
	q := s.repo.Queries()
	b, err := q.GetBudget(ctx, budgetID)
	if err != nil {
		return core.Money{}, err
	}

	start, end := core.MonthRange(b.Year, b.Month)
	total, err := q.SumExpenses(ctx, b.UserID, start, end)
	if err != nil {
		return core.Money{}, fmt.Errorf("recalculate budget %s: %w", budgetID, err)
	}
	if err := q.SetBudgetSpent(ctx, budgetID, total, s.now().UTC()); err != nil {
		return core.Money{}, fmt.Errorf("recalculate budget %s: %w", budgetID, err)
	}
	b.SpentAmount = core.Cents(total)

	slog.InfoContext(ctx, "Budget spending recalculated",
		"budget_id", budgetID, "spent_cents", total)

	s.logOutcome(ctx, b, s.alerts.Emit(ctx, b))
	return b.SpentAmount, nil
}

// RecalculateUserBudget is RecalculateBudgetSpending restricted to the owner.
func (s *BudgetService) RecalculateUserBudget(ctx context.Context, userID, budgetID string) (core.Money, error) {
	if _, err := s.repo.Queries().GetUserBudget(ctx, userID, budgetID); err != nil {
		return core.Money{}, err
	}
	return s.RecalculateBudgetSpending(ctx, budgetID)
}

// UpdateBudgetSpending adds deltaCents to the cached spent amount and evaluates
// alerts. It fails with core.ErrNotFound for an unknown budget.
func (s *BudgetService) UpdateBudgetSpending(ctx context.Context, budgetID string, deltaCents int64) error {
	if err := s.addSpent(ctx, s.repo.Queries(), budgetID, deltaCents); err != nil {
		return err
	}
	s.evaluate(ctx, budgetID)
	return nil
}

// addSpent is the incremental step shared with the expense write path, which
// runs it inside the mutation's transaction and evaluates alerts after commit.
func (s *BudgetService) addSpent(ctx context.Context, q *storage.Queries, budgetID string, deltaCents int64) error {
	if deltaCents == 0 {
		_, err := q.GetBudget(ctx, budgetID)
		return err
	}
	return q.AddBudgetSpent(ctx, budgetID, deltaCents, s.now().UTC())
}

// RecalculateAll recalculates every budget. Per-budget failures are collected
// in the result rather than aborting the sweep.
func (s *BudgetService) RecalculateAll(ctx context.Context) (ReconcileResult, error) {
	budgets, err := s.repo.Queries().ListAllBudgets(ctx)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("list budgets: %w", err)
	}

	res := ReconcileResult{Checked: len(budgets), Failed: map[string]error{}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, b := range budgets {
		g.Go(func() error {
			if _, err := s.RecalculateBudgetSpending(gctx, b.ID); err != nil {
				mu.Lock()
				res.Failed[b.ID] = err
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	slog.InfoContext(ctx, "Budget reconciliation complete",
		"checked", res.Checked, "failed", len(res.Failed))
	return res, nil
}

// GetBudgetSummary aggregates the user's budgets for year.
func (s *BudgetService) GetBudgetSummary(ctx context.Context, userID string, year int) (core.BudgetSummary, error) {
	budgets, err := s.repo.Queries().ListBudgets(ctx, userID, &year)
	if err != nil {
		return core.BudgetSummary{}, err
	}
	return core.SummarizeBudgets(year, budgets), nil
}

// GetBudgetAlerts lists the user's alerts newest first. A nil isRead lists all.
func (s *BudgetService) GetBudgetAlerts(ctx context.Context, userID string, isRead *bool) ([]core.BudgetAlert, error) {
	return s.repo.Queries().ListUserAlerts(ctx, userID, isRead)
}

// MarkAlertAsRead fails with core.ErrNotFound when the alert is missing or owned by another user.
func (s *BudgetService) MarkAlertAsRead(ctx context.Context, userID, alertID string) error {
	return s.repo.Queries().MarkAlertRead(ctx, userID, alertID)
}

// PurgeReadAlerts deletes read alerts older than retention.
func (s *BudgetService) PurgeReadAlerts(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := s.repo.Queries().PurgeReadAlerts(ctx, s.now().UTC().Add(-retention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.InfoContext(ctx, "Purged read budget alerts", "count", n)
	}
	return n, nil
}

// trackExpense applies deltaCents to the budget covering date, if the user has one.
// It runs inside the caller's transaction and returns the touched budget id.
func (s *BudgetService) trackExpense(ctx context.Context, q *storage.Queries, userID string, date time.Time, deltaCents int64) (string, error) {
	date = date.UTC()
	b, err := q.FindBudgetForMonth(ctx, userID, int(date.Month()), date.Year())
	if errors.Is(err, core.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if err := s.addSpent(ctx, q, b.ID, deltaCents); err != nil {
		return "", err
	}
	return b.ID, nil
}

// evaluate runs the alert emitter for each budget after a committed mutation.
func (s *BudgetService) evaluate(ctx context.Context, budgetIDs ...string) {
	seen := make(map[string]bool, len(budgetIDs))
	for _, id := range budgetIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		b, err := s.repo.Queries().GetBudget(ctx, id)
		if err != nil {
			slog.WarnContext(ctx, "Budget alert evaluation skipped", "budget_id", id, "error", err)
			continue
		}
		s.logOutcome(ctx, b, s.alerts.Emit(ctx, b))
	}
}

func (s *BudgetService) logOutcome(ctx context.Context, b core.Budget, outcome AlertOutcome) {
	if outcome.Err != nil {
		slog.ErrorContext(ctx, "Budget alert evaluation failed",
			"budget_id", b.ID, "created", len(outcome.Created), "error", outcome.Err)
	}
}
