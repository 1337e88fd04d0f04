package services

import (
	"context"
	"testing"
	"time"

	"fintrack/internal/core"
)

func TestCreateRecurring_FirstDueIsOnePeriodAfterStart(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	re, err := env.recurring.CreateRecurring(ctx, core.RecurringExpense{
		UserID:     env.userID,
		CategoryID: housingID,
		Amount:     core.Cents(120000),
		Note:       "Rent",
		Frequency:  core.Monthly,
		StartDate:  time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create recurring: %v", err)
	}
	if want := time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC); !re.NextDueDate.Equal(want) {
		t.Errorf("next due = %v, want %v", re.NextDueDate, want)
	}
	if !re.IsActive {
		t.Error("new template should be active")
	}

	list, err := env.recurring.ListRecurring(ctx, env.userID)
	if err != nil {
		t.Fatalf("list recurring: %v", err)
	}
	if len(list) != 1 || list[0].ID != re.ID {
		t.Fatalf("list = %+v, want the created template", list)
	}
}

func TestCreateRecurring_Validation(t *testing.T) {
	env := newTestEnv(t)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	before := start.AddDate(0, 0, -1)

	tests := []struct {
		name string
		re   core.RecurringExpense
	}{
		{"unknown frequency", core.RecurringExpense{UserID: env.userID, CategoryID: housingID, Amount: core.Cents(100), Frequency: "HOURLY", StartDate: start}},
		{"missing start", core.RecurringExpense{UserID: env.userID, CategoryID: housingID, Amount: core.Cents(100), Frequency: core.Daily}},
		{"end before start", core.RecurringExpense{UserID: env.userID, CategoryID: housingID, Amount: core.Cents(100), Frequency: core.Daily, StartDate: start, EndDate: &before}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.recurring.CreateRecurring(context.Background(), tt.re); !core.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestProcessDueExpenses(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	b := env.createBudget(t, 200000, 3, 2025)

	re, err := env.recurring.CreateRecurring(ctx, core.RecurringExpense{
		UserID:     env.userID,
		CategoryID: housingID,
		Amount:     core.Cents(120000),
		Frequency:  core.Monthly,
		StartDate:  time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create recurring: %v", err)
	}

	n, err := env.recurring.ProcessDueExpenses(ctx, testNow)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if n != 1 {
		t.Fatalf("processed = %d, want 1", n)
	}

	expenses, err := env.expenses.ListExpenses(ctx, core.ExpenseFilter{UserID: env.userID})
	if err != nil {
		t.Fatalf("list expenses: %v", err)
	}
	if len(expenses) != 1 {
		t.Fatalf("expected 1 expense, got %d", len(expenses))
	}
	exp := expenses[0]
	if !exp.IsRecurring || exp.RecurringExpenseID != re.ID || exp.BankAccountID != env.accountID {
		t.Errorf("unexpected generated expense %+v", exp)
	}
	if got := env.balance(t, env.accountID); got != -120000 {
		t.Errorf("balance = %d, want -120000", got)
	}
	if got := env.budget(t, b.ID).SpentAmount.Cents; got != 120000 {
		t.Errorf("budget spent = %d, want 120000", got)
	}

	tmpl, err := env.repo.Queries().GetRecurring(ctx, env.userID, re.ID)
	if err != nil {
		t.Fatalf("get recurring: %v", err)
	}
	if want := time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC); !tmpl.NextDueDate.Equal(want) {
		t.Errorf("next due = %v, want %v", tmpl.NextDueDate, want)
	}

	n, err = env.recurring.ProcessDueExpenses(ctx, testNow)
	if err != nil || n != 0 {
		t.Fatalf("second run processed %d (err=%v), want 0", n, err)
	}
}

func TestProcessDueExpenses_DeactivatesAfterEndDate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	end := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)

	re, err := env.recurring.CreateRecurring(ctx, core.RecurringExpense{
		UserID:     env.userID,
		CategoryID: diningID,
		Amount:     core.Cents(1500),
		Frequency:  core.Weekly,
		StartDate:  time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC),
		EndDate:    &end,
	})
	if err != nil {
		t.Fatalf("create recurring: %v", err)
	}

	if n, err := env.recurring.ProcessDueExpenses(ctx, testNow); err != nil || n != 1 {
		t.Fatalf("processed %d (err=%v), want 1", n, err)
	}

	tmpl, err := env.repo.Queries().GetRecurring(ctx, env.userID, re.ID)
	if err != nil {
		t.Fatalf("get recurring: %v", err)
	}
	if tmpl.IsActive {
		t.Errorf("template past its end date should be inactive, next due %v", tmpl.NextDueDate)
	}
}

func TestProcessDueExpenses_SkipsUserWithoutDefaultAccount(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	bob := env.createUser(t, "bob")

	re, err := env.recurring.CreateRecurring(ctx, core.RecurringExpense{
		UserID:     bob,
		CategoryID: diningID,
		Amount:     core.Cents(999),
		Frequency:  core.Daily,
		StartDate:  time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create recurring: %v", err)
	}

	n, err := env.recurring.ProcessDueExpenses(ctx, testNow)
	if err != nil || n != 0 {
		t.Fatalf("processed %d (err=%v), want 0", n, err)
	}
	tmpl, err := env.repo.Queries().GetRecurring(ctx, bob, re.ID)
	if err != nil {
		t.Fatalf("get recurring: %v", err)
	}
	if !tmpl.NextDueDate.Equal(re.NextDueDate) {
		t.Errorf("skipped template must stay due, next due moved to %v", tmpl.NextDueDate)
	}
}

func TestProcessDueExpenses_StopsAtLastStorableYear(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	re, err := env.recurring.CreateRecurring(ctx, core.RecurringExpense{
		UserID:     env.userID,
		CategoryID: housingID,
		Amount:     core.Cents(1000),
		Frequency:  core.Monthly,
		StartDate:  time.Date(9999, 11, 30, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create recurring: %v", err)
	}

	n, err := env.recurring.ProcessDueExpenses(ctx, time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC))
	if err != nil || n != 1 {
		t.Fatalf("processed %d (err=%v), want 1", n, err)
	}

	tmpl, err := env.repo.Queries().GetRecurring(ctx, env.userID, re.ID)
	if err != nil {
		t.Fatalf("get recurring: %v", err)
	}
	if tmpl.IsActive {
		t.Error("template should be deactivated once its next occurrence is past year 9999")
	}
	if _, err := env.expenses.ListExpenses(ctx, core.ExpenseFilter{UserID: env.userID}); err != nil {
		t.Errorf("ListExpenses() error = %v", err)
	}
}
