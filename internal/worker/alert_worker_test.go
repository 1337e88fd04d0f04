package worker

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

func setupAlert(t *testing.T) (*storage.SQLiteRepository, core.Budget, core.BudgetAlert) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "fintrack.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	ctx := context.Background()
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	q := repo.Queries()
	if err := q.CreateUser(ctx, core.User{ID: "u1", Email: "u1@example.com", Name: "U", PasswordHash: "x", CreatedAt: now}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	b := core.Budget{
		ID: "b1", UserID: "u1", Month: 3, Year: 2025,
		AmountLimit: core.Cents(100000), ThresholdPercentage: 80, SpentAmount: core.Cents(85000),
		CreatedAt: now, UpdatedAt: now,
	}
	if err := q.CreateBudget(ctx, b); err != nil {
		t.Fatalf("create budget: %v", err)
	}
	a := core.BudgetAlert{
		ID: "a1", BudgetID: b.ID, AlertType: core.AlertThresholdReached,
		Message: "You've reached 80% of your budget limit.", CreatedAt: now,
	}
	if err := q.InsertAlert(ctx, a); err != nil {
		t.Fatalf("insert alert: %v", err)
	}
	return repo, b, a
}

func TestAlertWorker_HandleBudgetAlert(t *testing.T) {
	repo, b, a := setupAlert(t)
	w := NewAlertWorker(repo, applog.New(applog.Config{Output: io.Discard}))
	ctx := context.Background()

	tests := []struct {
		name string
		msg  *amqp.BudgetAlertMessage
		want Stats
	}{
		{"delivered", amqp.NewBudgetAlertMessage(a, b), Stats{Delivered: 1}},
		{"malformed", &amqp.BudgetAlertMessage{AlertID: "a1"}, Stats{Delivered: 1, Rejected: 1}},
		{"unknown budget", &amqp.BudgetAlertMessage{AlertID: "a1", BudgetID: "gone", AlertType: core.AlertExceeded}, Stats{Delivered: 1, Skipped: 1, Rejected: 1}},
		{"unknown alert", &amqp.BudgetAlertMessage{AlertID: "purged", BudgetID: b.ID, AlertType: core.AlertExceeded}, Stats{Delivered: 1, Skipped: 2, Rejected: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := w.HandleBudgetAlert(ctx, tt.msg); err != nil {
				t.Fatalf("HandleBudgetAlert() error = %v", err)
			}
			if got := w.Stats(); got != tt.want {
				t.Errorf("Stats() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAlertWorker_SkipsReadAlerts(t *testing.T) {
	repo, b, a := setupAlert(t)
	w := NewAlertWorker(repo, applog.New(applog.Config{Output: io.Discard}))
	ctx := context.Background()

	if err := repo.Queries().MarkAlertRead(ctx, b.UserID, a.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if err := w.HandleBudgetAlert(ctx, amqp.NewBudgetAlertMessage(a, b)); err != nil {
		t.Fatalf("HandleBudgetAlert() error = %v", err)
	}
	if got := w.Stats(); got.Delivered != 0 || got.Skipped != 1 {
		t.Errorf("Stats() = %+v, want one skipped", got)
	}
}

func TestAlertWorker_StorageFailureRequeues(t *testing.T) {
	repo, b, a := setupAlert(t)
	w := NewAlertWorker(repo, applog.New(applog.Config{Output: io.Discard}))
	repo.Close()

	if err := w.HandleBudgetAlert(context.Background(), amqp.NewBudgetAlertMessage(a, b)); err == nil {
		t.Fatal("expected an error from a closed database")
	}
}
