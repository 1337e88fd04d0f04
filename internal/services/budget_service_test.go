package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
)

func (e *testEnv) createBudget(t *testing.T, limitCents int64, month, year int) core.Budget {
	t.Helper()
	b, err := e.budgets.CreateBudget(context.Background(), e.userID, BudgetInput{
		Month:       month,
		Year:        year,
		AmountLimit: core.Cents(limitCents),
	})
	if err != nil {
		t.Fatalf("create budget: %v", err)
	}
	return b
}

func (e *testEnv) budget(t *testing.T, id string) core.Budget {
	t.Helper()
	b, err := e.budgets.GetBudget(context.Background(), e.userID, id)
	if err != nil {
		t.Fatalf("get budget: %v", err)
	}
	return b
}

func alertTypes(alerts []core.BudgetAlert) []core.AlertType {
	out := make([]core.AlertType, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, a.AlertType)
	}
	return out
}

func TestCreateBudget_DefaultsAndValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	b := env.createBudget(t, 100000, 3, 2025)
	if b.ThresholdPercentage != core.DefaultThresholdPercentage {
		t.Errorf("threshold = %d, want %d", b.ThresholdPercentage, core.DefaultThresholdPercentage)
	}

	_, err := env.budgets.CreateBudget(ctx, env.userID, BudgetInput{Month: 3, Year: 2025, AmountLimit: core.Cents(5000)})
	if !errors.Is(err, core.ErrConflict) {
		t.Errorf("duplicate month: expected ErrConflict, got %v", err)
	}

	tests := []struct {
		name string
		in   BudgetInput
	}{
		{"month 13", BudgetInput{Month: 13, Year: 2025, AmountLimit: core.Cents(100)}},
		{"zero limit", BudgetInput{Month: 4, Year: 2025}},
		{"negative limit", BudgetInput{Month: 4, Year: 2025, AmountLimit: core.Cents(-100)}},
		{"threshold over 100", BudgetInput{Month: 4, Year: 2025, AmountLimit: core.Cents(100), ThresholdPercentage: 101}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.budgets.CreateBudget(ctx, env.userID, tt.in); !core.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateBudget_PicksUpExistingExpenses(t *testing.T) {
	env := newTestEnv(t)
	env.spend(t, 30000, testNow)
	env.spend(t, 5000, testNow.AddDate(0, 1, 0))

	b := env.createBudget(t, 100000, 3, 2025)
	if got := env.budget(t, b.ID).SpentAmount.Cents; got != 30000 {
		t.Fatalf("initial spent = %d, want 30000", got)
	}
}

func TestBudgetAlerts_ThresholdThenExceeded(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	b := env.createBudget(t, 100000, 3, 2025)

	steps := []struct {
		cents      int64
		wantSpent  int64
		wantAlerts []core.AlertType
	}{
		{79900, 79900, nil},
		{100, 80000, []core.AlertType{core.AlertThresholdReached}},
		{15000, 95000, []core.AlertType{core.AlertThresholdReached}},
		{5000, 100000, []core.AlertType{core.AlertThresholdReached, core.AlertExceeded}},
	}

	for i, step := range steps {
		env.spend(t, step.cents, testNow)
		got := env.budget(t, b.ID)
		if got.SpentAmount.Cents != step.wantSpent {
			t.Fatalf("step %d: spent = %d, want %d", i, got.SpentAmount.Cents, step.wantSpent)
		}
		types := alertTypes(got.Alerts)
		if len(types) != len(step.wantAlerts) {
			t.Fatalf("step %d: alerts = %v, want %v", i, types, step.wantAlerts)
		}
		for _, want := range step.wantAlerts {
			found := false
			for _, at := range types {
				found = found || at == want
			}
			if !found {
				t.Fatalf("step %d: missing %s alert in %v", i, want, types)
			}
		}
	}

	alerts, err := env.budgets.GetBudgetAlerts(ctx, env.userID, nil)
	if err != nil {
		t.Fatalf("list alerts: %v", err)
	}
	for _, a := range alerts {
		switch a.AlertType {
		case core.AlertThresholdReached:
			want := "You've reached 80% of your budget limit. You've spent $800.00 out of $1000.00."
			if a.Message != want {
				t.Errorf("threshold message = %q, want %q", a.Message, want)
			}
		case core.AlertExceeded:
			want := "You've exceeded your budget limit! You've spent $1000.00 out of $1000.00."
			if a.Message != want {
				t.Errorf("exceeded message = %q, want %q", a.Message, want)
			}
		}
	}
}

func TestBudgetAlerts_JumpPastLimitOnlyExceeded(t *testing.T) {
	env := newTestEnv(t)
	b := env.createBudget(t, 100000, 3, 2025)

	env.spend(t, 120000, testNow)

	types := alertTypes(env.budget(t, b.ID).Alerts)
	if len(types) != 1 || types[0] != core.AlertExceeded {
		t.Fatalf("alerts = %v, want only EXCEEDED", types)
	}
}

func TestBudgetAlerts_ReemittedAfterMarkRead(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	b := env.createBudget(t, 10000, 3, 2025)

	env.spend(t, 12000, testNow)
	got := env.budget(t, b.ID)
	if len(got.Alerts) != 1 {
		t.Fatalf("expected one alert, got %v", alertTypes(got.Alerts))
	}

	env.spend(t, 100, testNow)
	if n := len(env.budget(t, b.ID).Alerts); n != 1 {
		t.Fatalf("unread EXCEEDED should suppress duplicates, got %d alerts", n)
	}

	if err := env.budgets.MarkAlertAsRead(ctx, env.userID, got.Alerts[0].ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	env.spend(t, 100, testNow)

	unread := false
	alerts, err := env.budgets.GetBudgetAlerts(ctx, env.userID, &unread)
	if err != nil {
		t.Fatalf("list unread alerts: %v", err)
	}
	if len(alerts) != 1 || alerts[0].AlertType != core.AlertExceeded {
		t.Fatalf("expected a fresh unread EXCEEDED alert, got %v", alertTypes(alerts))
	}
}

func TestMarkAlertAsRead_OtherUser(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	b := env.createBudget(t, 1000, 3, 2025)
	env.spend(t, 2000, testNow)

	alerts := env.budget(t, b.ID).Alerts
	if len(alerts) == 0 {
		t.Fatal("expected an alert")
	}
	bob := env.createUser(t, "bob")
	if err := env.budgets.MarkAlertAsRead(ctx, bob, alerts[0].ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another user's alert, got %v", err)
	}
}

func TestRecalculateBudgetSpending_Idempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	b := env.createBudget(t, 100000, 3, 2025)

	env.spend(t, 2500, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	env.spend(t, 7500, time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC))
	env.spend(t, 9900, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))

	// Drift the cached value so recalculation has something to repair.
	if err := env.repo.Queries().SetBudgetSpent(ctx, b.ID, 1, testNow); err != nil {
		t.Fatalf("set spent: %v", err)
	}

	for i := 0; i < 2; i++ {
		spent, err := env.budgets.RecalculateUserBudget(ctx, env.userID, b.ID)
		if err != nil {
			t.Fatalf("recalculate #%d: %v", i+1, err)
		}
		if spent.Cents != 10000 {
			t.Fatalf("recalculate #%d: spent = %d, want 10000", i+1, spent.Cents)
		}
	}
	if got := env.budget(t, b.ID).SpentAmount.Cents; got != 10000 {
		t.Errorf("stored spent = %d, want 10000", got)
	}
}

func TestRecalculateAll(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	march := env.createBudget(t, 50000, 3, 2025)
	april := env.createBudget(t, 50000, 4, 2025)
	env.spend(t, 1000, testNow)
	env.spend(t, 2000, testNow.AddDate(0, 1, 0))

	q := env.repo.Queries()
	for _, id := range []string{march.ID, april.ID} {
		if err := q.SetBudgetSpent(ctx, id, 0, testNow); err != nil {
			t.Fatalf("reset spent: %v", err)
		}
	}

	res, err := env.budgets.RecalculateAll(ctx)
	if err != nil {
		t.Fatalf("recalculate all: %v", err)
	}
	if res.Checked != 2 || len(res.Failed) != 0 {
		t.Fatalf("result = %+v, want 2 checked and none failed", res)
	}
	if got := env.budget(t, march.ID).SpentAmount.Cents; got != 1000 {
		t.Errorf("march spent = %d, want 1000", got)
	}
	if got := env.budget(t, april.ID).SpentAmount.Cents; got != 2000 {
		t.Errorf("april spent = %d, want 2000", got)
	}
}

func TestUpdateExpense_MovesSpendBetweenMonths(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	march := env.createBudget(t, 50000, 3, 2025)
	april := env.createBudget(t, 50000, 4, 2025)

	exp := env.spend(t, 4000, testNow)
	moved := testNow.AddDate(0, 1, 0)
	if _, err := env.expenses.UpdateExpense(ctx, env.userID, exp.ID, ExpenseUpdate{Date: &moved}); err != nil {
		t.Fatalf("update expense: %v", err)
	}

	if got := env.budget(t, march.ID).SpentAmount.Cents; got != 0 {
		t.Errorf("march spent = %d, want 0", got)
	}
	if got := env.budget(t, april.ID).SpentAmount.Cents; got != 4000 {
		t.Errorf("april spent = %d, want 4000", got)
	}

	if err := env.expenses.DeleteExpense(ctx, env.userID, exp.ID); err != nil {
		t.Fatalf("delete expense: %v", err)
	}
	if got := env.budget(t, april.ID).SpentAmount.Cents; got != 0 {
		t.Errorf("april spent after delete = %d, want 0", got)
	}
}

func TestUpdateBudget_ReevaluatesAlerts(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	b := env.createBudget(t, 100000, 3, 2025)
	env.spend(t, 60000, testNow)

	lower := core.Cents(50000)
	updated, err := env.budgets.UpdateBudget(ctx, env.userID, b.ID, BudgetUpdate{AmountLimit: &lower})
	if err != nil {
		t.Fatalf("update budget: %v", err)
	}
	if updated.AmountLimit.Cents != 50000 {
		t.Errorf("limit = %d, want 50000", updated.AmountLimit.Cents)
	}
	types := alertTypes(env.budget(t, b.ID).Alerts)
	if len(types) != 1 || types[0] != core.AlertExceeded {
		t.Fatalf("alerts = %v, want only EXCEEDED", types)
	}
}

func TestGetBudgetSummary(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.createBudget(t, 60000, 1, 2025)
	env.createBudget(t, 40000, 2, 2025)
	env.createBudget(t, 99900, 1, 2024)
	env.spend(t, 15000, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))
	env.spend(t, 5000, time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC))

	s, err := env.budgets.GetBudgetSummary(ctx, env.userID, 2025)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if s.TotalBudget.Cents != 100000 || s.TotalSpent.Cents != 20000 || s.TotalRemaining.Cents != 80000 {
		t.Fatalf("totals = %s/%s/%s, want 1000.00/200.00/800.00", s.TotalBudget, s.TotalSpent, s.TotalRemaining)
	}
	if s.AverageSpentPercentage.String() != "20" {
		t.Errorf("average percentage = %s, want 20", s.AverageSpentPercentage)
	}
	if len(s.Months) != 2 || s.Months[0].Month != 1 || s.Months[1].Month != 2 {
		t.Fatalf("months = %+v, want January and February", s.Months)
	}
	if s.Months[0].Percentage.String() != "25" {
		t.Errorf("january percentage = %s, want 25", s.Months[0].Percentage)
	}
}

func TestDeleteBudget(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	b := env.createBudget(t, 100, 3, 2025)
	env.spend(t, 500, testNow)

	if err := env.budgets.DeleteBudget(ctx, env.userID, b.ID); err != nil {
		t.Fatalf("delete budget: %v", err)
	}
	if _, err := env.budgets.GetBudget(ctx, env.userID, b.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	alerts, err := env.budgets.GetBudgetAlerts(ctx, env.userID, nil)
	if err != nil {
		t.Fatalf("list alerts: %v", err)
	}
	if len(alerts) != 0 {
		t.Errorf("expected alerts to be removed with the budget, got %d", len(alerts))
	}
}

type failingAlertStore struct{}

func (failingAlertStore) UnreadAlertTypes(context.Context, string) (map[core.AlertType]bool, error) {
	return nil, errors.New("alert store unavailable")
}

func (failingAlertStore) InsertAlert(context.Context, core.BudgetAlert) error {
	return errors.New("alert store unavailable")
}

func TestAlertFailure_DoesNotFailExpense(t *testing.T) {
	env := newTestEnv(t)
	b := env.createBudget(t, 1000, 3, 2025)
	env.budgets.alerts = NewAlertEmitter(failingAlertStore{}, nil)

	exp := env.spend(t, 5000, testNow)
	if exp.ID == "" {
		t.Fatal("expected the expense to be created")
	}
	if got := env.balance(t, env.accountID); got != -5000 {
		t.Errorf("balance = %d, want -5000", got)
	}
	got := env.budget(t, b.ID)
	if got.SpentAmount.Cents != 5000 {
		t.Errorf("spent = %d, want 5000", got.SpentAmount.Cents)
	}
	if len(got.Alerts) != 0 {
		t.Errorf("expected no stored alerts, got %d", len(got.Alerts))
	}
}

type recordingPublisher struct {
	messages []*amqp.BudgetAlertMessage
	err      error
}

func (p *recordingPublisher) PublishBudgetAlert(_ context.Context, msg *amqp.BudgetAlertMessage) error {
	p.messages = append(p.messages, msg)
	return p.err
}

func TestAlertEmitter_PublishesCreatedAlerts(t *testing.T) {
	env := newTestEnv(t)
	pub := &recordingPublisher{err: errors.New("broker down")}
	env.budgets.alerts = NewAlertEmitter(env.repo.Queries(), pub)
	b := env.createBudget(t, 1000, 3, 2025)

	env.spend(t, 900, testNow)

	if len(pub.messages) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.messages))
	}
	msg := pub.messages[0]
	if msg.BudgetID != b.ID || msg.AlertType != core.AlertThresholdReached || msg.SpentCents != 900 {
		t.Errorf("unexpected message %+v", msg)
	}
	if n := len(env.budget(t, b.ID).Alerts); n != 1 {
		t.Errorf("a failed publish must keep the stored alert, got %d alerts", n)
	}
}

func TestEvaluateAlerts(t *testing.T) {
	budget := func(spent, limit int64, pct int) core.Budget {
		return core.Budget{SpentAmount: core.Cents(spent), AmountLimit: core.Cents(limit), ThresholdPercentage: pct}
	}

	tests := []struct {
		name   string
		b      core.Budget
		unread map[core.AlertType]bool
		want   []core.AlertType
	}{
		{"below threshold", budget(799, 1000, 80), nil, nil},
		{"at threshold", budget(800, 1000, 80), nil, []core.AlertType{core.AlertThresholdReached}},
		{"fractional threshold", budget(667, 1000, 67), nil, nil},
		{"fractional threshold reached", budget(670, 1000, 67), nil, []core.AlertType{core.AlertThresholdReached}},
		{"threshold already unread", budget(900, 1000, 80), map[core.AlertType]bool{core.AlertThresholdReached: true}, nil},
		{"at limit", budget(1000, 1000, 80), nil, []core.AlertType{core.AlertExceeded}},
		{"over limit already unread", budget(1500, 1000, 80), map[core.AlertType]bool{core.AlertExceeded: true}, nil},
		{"100 percent threshold at limit", budget(1000, 1000, 100), nil, []core.AlertType{core.AlertExceeded}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateAlerts(tt.b, tt.unread)
			if len(got) != len(tt.want) {
				t.Fatalf("EvaluateAlerts() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("EvaluateAlerts()[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestUpdateBudgetSpending(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	b := env.createBudget(t, 100000, 3, 2025)

	if err := env.budgets.UpdateBudgetSpending(ctx, "missing", 100); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("unknown budget error = %v, want ErrNotFound", err)
	}
	if err := env.budgets.UpdateBudgetSpending(ctx, "missing", 0); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("unknown budget with zero delta error = %v, want ErrNotFound", err)
	}

	steps := []struct {
		delta      int64
		wantSpent  int64
		wantAlerts int
	}{
		{70000, 70000, 0},
		{15000, 85000, 1},
		{5000, 90000, 1},
		{0, 90000, 1},
	}
	for i, step := range steps {
		if err := env.budgets.UpdateBudgetSpending(ctx, b.ID, step.delta); err != nil {
			t.Fatalf("step %d: UpdateBudgetSpending() error = %v", i, err)
		}
		got := env.budget(t, b.ID)
		if got.SpentAmount.Cents != step.wantSpent {
			t.Fatalf("step %d: spent = %d, want %d", i, got.SpentAmount.Cents, step.wantSpent)
		}
		types := alertTypes(got.Alerts)
		if len(types) != step.wantAlerts {
			t.Fatalf("step %d: alerts = %v, want %d", i, types, step.wantAlerts)
		}
		for _, at := range types {
			if at != core.AlertThresholdReached {
				t.Fatalf("step %d: unexpected %s alert", i, at)
			}
		}
	}
}
