package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// CatalogService manages the shared expense categories and deposit types.
type CatalogService struct {
	repo *storage.SQLiteRepository
}

func NewCatalogService(repo *storage.SQLiteRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

func validateLookupName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.NewValidationError("name", "is required")
	}
	if len(name) > 100 {
		return core.NewValidationError("name", "too long (max 100 characters)")
	}
	return nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]core.ExpenseCategory, error) {
	return s.repo.Queries().ListCategories(ctx)
}

func (s *CatalogService) GetCategory(ctx context.Context, id string) (core.ExpenseCategory, error) {
	return s.repo.Queries().GetCategory(ctx, id)
}

// CreateCategory fails with core.ErrConflict on a duplicate name.
func (s *CatalogService) CreateCategory(ctx context.Context, c core.ExpenseCategory) (core.ExpenseCategory, error) {
	if err := validateLookupName(c.Name); err != nil {
		return core.ExpenseCategory{}, err
	}
	c.ID = uuid.NewString()
	c.Name = strings.TrimSpace(c.Name)
	if err := s.repo.Queries().CreateCategory(ctx, c); err != nil {
		return core.ExpenseCategory{}, err
	}
	return c, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, c core.ExpenseCategory) (core.ExpenseCategory, error) {
	if err := validateLookupName(c.Name); err != nil {
		return core.ExpenseCategory{}, err
	}
	c.Name = strings.TrimSpace(c.Name)
	if err := s.repo.Queries().UpdateCategory(ctx, c); err != nil {
		return core.ExpenseCategory{}, err
	}
	return c, nil
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id string) error {
	return s.repo.Queries().DeleteCategory(ctx, id)
}

func (s *CatalogService) ListDepositTypes(ctx context.Context) ([]core.DepositType, error) {
	return s.repo.Queries().ListDepositTypes(ctx)
}

func (s *CatalogService) CreateDepositType(ctx context.Context, d core.DepositType) (core.DepositType, error) {
	if err := validateLookupName(d.Name); err != nil {
		return core.DepositType{}, err
	}
	d.ID = uuid.NewString()
	d.Name = strings.TrimSpace(d.Name)
	if err := s.repo.Queries().CreateDepositType(ctx, d); err != nil {
		return core.DepositType{}, err
	}
	return d, nil
}
