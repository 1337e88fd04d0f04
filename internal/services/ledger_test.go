package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

const (
	housingID = "6f1f7d2e-1a1c-4b1e-9a51-000000000001"
	diningID  = "6f1f7d2e-1a1c-4b1e-9a51-000000000004"
	salaryID  = "8a3c5b1d-2e4f-4c6a-8b7d-000000000001"
)

var testNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	repo      *storage.SQLiteRepository
	accounts  *AccountService
	budgets   *BudgetService
	expenses  *ExpenseService
	deposits  *DepositService
	recurring *RecurringProcessor
	userID    string
	accountID string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "fintrack.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	clock := func() time.Time { return testNow }
	env := &testEnv{
		repo:     repo,
		accounts: NewAccountService(repo),
		budgets:  NewBudgetService(repo, nil),
		deposits: NewDepositService(repo),
	}
	env.accounts.now = clock
	env.budgets.now = clock
	env.budgets.alerts.now = clock
	env.deposits.now = clock
	env.expenses = NewExpenseService(repo, env.budgets)
	env.expenses.now = clock
	env.recurring = NewRecurringProcessor(repo, env.expenses)
	env.recurring.now = clock

	env.userID = env.createUser(t, "alice")
	env.accountID = env.createAccount(t, env.userID, "Checking")
	return env
}

func (e *testEnv) createUser(t *testing.T, name string) string {
	t.Helper()
	u := core.User{ID: name + "-id", Email: name + "@example.com", Name: name, PasswordHash: "x", CreatedAt: testNow}
	if err := e.repo.Queries().CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.ID
}

func (e *testEnv) createAccount(t *testing.T, userID, name string) string {
	t.Helper()
	a, err := e.accounts.CreateAccount(context.Background(), core.BankAccount{UserID: userID, Name: name})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return a.ID
}

func (e *testEnv) balance(t *testing.T, accountID string) int64 {
	t.Helper()
	a, err := e.repo.Queries().GetAccount(context.Background(), accountID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	return a.Balance.Cents
}

func (e *testEnv) spend(t *testing.T, cents int64, date time.Time) core.Expense {
	t.Helper()
	exp, err := e.expenses.CreateExpense(context.Background(), core.Expense{
		UserID:        e.userID,
		BankAccountID: e.accountID,
		CategoryID:    diningID,
		Amount:        core.Cents(cents),
		Date:          date,
	})
	if err != nil {
		t.Fatalf("create expense of %d: %v", cents, err)
	}
	return exp
}

func TestExpenseLifecycle_BalanceFollowsLedger(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	if _, err := env.deposits.CreateDeposit(ctx, core.Deposit{
		UserID: env.userID, BankAccountID: env.accountID, DepositTypeID: salaryID,
		Amount: core.Cents(500000), Date: testNow,
	}); err != nil {
		t.Fatalf("create deposit: %v", err)
	}

	exp := env.spend(t, 12050, testNow)
	if got := env.balance(t, env.accountID); got != 487950 {
		t.Fatalf("balance after expense = %d, want 487950", got)
	}
	if exp.Category == nil || exp.Category.Name != "Dining" {
		t.Errorf("expected category to be attached, got %+v", exp.Category)
	}

	newAmt := core.Cents(10000)
	if _, err := env.expenses.UpdateExpense(ctx, env.userID, exp.ID, ExpenseUpdate{Amount: &newAmt}); err != nil {
		t.Fatalf("update expense: %v", err)
	}
	if got := env.balance(t, env.accountID); got != 490000 {
		t.Fatalf("balance after lowering expense = %d, want 490000", got)
	}

	if err := env.expenses.DeleteExpense(ctx, env.userID, exp.ID); err != nil {
		t.Fatalf("delete expense: %v", err)
	}
	if got := env.balance(t, env.accountID); got != 500000 {
		t.Fatalf("balance after delete = %d, want 500000", got)
	}
	if _, err := env.expenses.GetExpense(ctx, env.userID, exp.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestDepositLifecycle_BalanceFollowsLedger(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	dep, err := env.deposits.CreateDeposit(ctx, core.Deposit{
		UserID: env.userID, BankAccountID: env.accountID, DepositTypeID: salaryID,
		Amount: core.Cents(250000), Date: testNow,
	})
	if err != nil {
		t.Fatalf("create deposit: %v", err)
	}

	higher := core.Cents(300000)
	if _, err := env.deposits.UpdateDeposit(ctx, env.userID, dep.ID, DepositUpdate{Amount: &higher}); err != nil {
		t.Fatalf("update deposit: %v", err)
	}
	if got := env.balance(t, env.accountID); got != 300000 {
		t.Fatalf("balance after raising deposit = %d, want 300000", got)
	}

	if err := env.deposits.DeleteDeposit(ctx, env.userID, dep.ID); err != nil {
		t.Fatalf("delete deposit: %v", err)
	}
	if got := env.balance(t, env.accountID); got != 0 {
		t.Fatalf("balance after delete = %d, want 0", got)
	}
}

func TestUpdateExpense_MovesBalanceBetweenAccounts(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	savings := env.createAccount(t, env.userID, "Savings")

	exp := env.spend(t, 4000, testNow)
	newAmt := core.Cents(4500)
	if _, err := env.expenses.UpdateExpense(ctx, env.userID, exp.ID, ExpenseUpdate{
		BankAccountID: &savings,
		Amount:        &newAmt,
	}); err != nil {
		t.Fatalf("update expense: %v", err)
	}

	if got := env.balance(t, env.accountID); got != 0 {
		t.Errorf("original account balance = %d, want 0", got)
	}
	if got := env.balance(t, savings); got != -4500 {
		t.Errorf("new account balance = %d, want -4500", got)
	}
}

func TestCreateExpense_RejectsForeignAccount(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	bob := env.createUser(t, "bob")
	bobAccount := env.createAccount(t, bob, "Bob's")

	_, err := env.expenses.CreateExpense(ctx, core.Expense{
		UserID: env.userID, BankAccountID: bobAccount, CategoryID: diningID,
		Amount: core.Cents(100), Date: testNow,
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another user's account, got %v", err)
	}
	if got := env.balance(t, bobAccount); got != 0 {
		t.Errorf("foreign account balance changed to %d", got)
	}
}

func TestCreateExpense_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		e    core.Expense
	}{
		{
			name: "zero amount",
			e:    core.Expense{UserID: env.userID, BankAccountID: env.accountID, CategoryID: diningID},
		},
		{
			name: "missing category",
			e:    core.Expense{UserID: env.userID, BankAccountID: env.accountID, Amount: core.Cents(100)},
		},
		{
			name: "recurring without template",
			e: core.Expense{UserID: env.userID, BankAccountID: env.accountID, CategoryID: diningID,
				Amount: core.Cents(100), IsRecurring: true},
		},
		{
			name: "date past year 9999 in UTC",
			e: core.Expense{UserID: env.userID, BankAccountID: env.accountID, CategoryID: diningID,
				Amount: core.Cents(500), Date: time.Date(9999, 12, 31, 23, 30, 0, 0, time.FixedZone("UTC-5", -5*60*60))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.expenses.CreateExpense(context.Background(), tt.e)
			if !core.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
	if got := env.balance(t, env.accountID); got != 0 {
		t.Errorf("balance changed to %d after rejected expenses", got)
	}
	if _, err := env.expenses.ListExpenses(context.Background(), core.ExpenseFilter{UserID: env.userID}); err != nil {
		t.Errorf("ListExpenses() after rejected expenses error = %v", err)
	}
}

func TestExpenseSummary_GroupsByCategory(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	env.spend(t, 1500, testNow)
	env.spend(t, 2500, testNow.AddDate(0, 0, 1))
	if _, err := env.expenses.CreateExpense(ctx, core.Expense{
		UserID: env.userID, BankAccountID: env.accountID, CategoryID: housingID,
		Amount: core.Cents(90000), Date: testNow,
	}); err != nil {
		t.Fatalf("create expense: %v", err)
	}

	summary, err := env.expenses.GetExpenseSummary(ctx, core.ExpenseFilter{UserID: env.userID})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.TotalAmount.Cents != 94000 || summary.Count != 3 {
		t.Fatalf("summary total = %d count = %d, want 94000 and 3", summary.TotalAmount.Cents, summary.Count)
	}

	byName := map[string]core.CategoryAmount{}
	for _, c := range summary.ByCategory {
		byName[c.Name] = c
	}
	if d := byName["Dining"]; d.Amount.Cents != 4000 || d.Count != 2 {
		t.Errorf("Dining = %+v, want 4000 over 2 expenses", d)
	}
	if h := byName["Housing"]; h.Amount.Cents != 90000 || h.Count != 1 {
		t.Errorf("Housing = %+v, want 90000 over 1 expense", h)
	}
}

func TestLedgerDeltas(t *testing.T) {
	tests := []struct {
		name string
		got  int64
		want int64
	}{
		{"expense create", expenseCreateDelta(core.Cents(500)), -500},
		{"expense update up", expenseUpdateDelta(core.Cents(500), core.Cents(800)), -300},
		{"expense update down", expenseUpdateDelta(core.Cents(800), core.Cents(500)), 300},
		{"expense delete", expenseDeleteDelta(core.Cents(500)), 500},
		{"deposit create", depositCreateDelta(core.Cents(500)), 500},
		{"deposit update", depositUpdateDelta(core.Cents(500), core.Cents(800)), 300},
		{"deposit delete", depositDeleteDelta(core.Cents(500)), -500},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: delta = %d, want %d", tt.name, tt.got, tt.want)
		}
	}
}
