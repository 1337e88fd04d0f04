package services

import (
	"context"
	"errors"
	"testing"

	"fintrack/internal/core"
)

func TestCatalogService_CategoryLifecycle(t *testing.T) {
	env := newTestEnv(t)
	catalog := NewCatalogService(env.repo)
	ctx := context.Background()

	seeded, err := catalog.ListCategories(ctx)
	if err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}
	if len(seeded) == 0 {
		t.Fatal("expected seeded categories")
	}
	pets, err := catalog.CreateCategory(ctx, core.ExpenseCategory{Name: "  Pets "})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	if pets.Name != "Pets" {
		t.Errorf("Name = %q, want trimmed", pets.Name)
	}
	list, _ := catalog.ListCategories(ctx)
	if len(list) != len(seeded)+1 {
		t.Errorf("len(ListCategories) = %d, want %d", len(list), len(seeded)+1)
	}

	if _, err := catalog.GetCategory(ctx, pets.ID); err != nil {
		t.Fatalf("GetCategory() error = %v", err)
	}
	pets.Name = "Animals"
	if _, err := catalog.UpdateCategory(ctx, pets); err != nil {
		t.Fatalf("UpdateCategory() error = %v", err)
	}
	got, _ := catalog.GetCategory(ctx, pets.ID)
	if got.Name != "Animals" {
		t.Errorf("GetCategory() after update = %q, want Animals", got.Name)
	}

	if err := catalog.DeleteCategory(ctx, pets.ID); err != nil {
		t.Fatalf("DeleteCategory() error = %v", err)
	}
	if _, err := catalog.GetCategory(ctx, pets.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetCategory() after delete error = %v, want ErrNotFound", err)
	}
}

func TestCatalogService_DepositTypes(t *testing.T) {
	env := newTestEnv(t)
	catalog := NewCatalogService(env.repo)
	ctx := context.Background()

	before, err := catalog.ListDepositTypes(ctx)
	if err != nil {
		t.Fatalf("ListDepositTypes() error = %v", err)
	}
	if _, err := catalog.CreateDepositType(ctx, core.DepositType{Name: "Refund"}); err != nil {
		t.Fatalf("CreateDepositType() error = %v", err)
	}
	after, _ := catalog.ListDepositTypes(ctx)
	if len(after) != len(before)+1 {
		t.Errorf("len(ListDepositTypes) = %d, want %d", len(after), len(before)+1)
	}

	if _, err := catalog.CreateDepositType(ctx, core.DepositType{Name: "Refund"}); !errors.Is(err, core.ErrConflict) {
		t.Errorf("duplicate CreateDepositType() error = %v, want ErrConflict", err)
	}
	if _, err := catalog.CreateDepositType(ctx, core.DepositType{Name: "   "}); !core.IsValidation(err) {
		t.Errorf("blank CreateDepositType() error = %v, want validation error", err)
	}
}
