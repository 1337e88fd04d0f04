package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// AccountUpdate carries optional metadata changes. Balances cannot be edited.
type AccountUpdate struct {
	Name          *string
	BankName      *string
	AccountNumber *string
	IsDefault     *bool
}

type AccountService struct {
	repo *storage.SQLiteRepository
	now  func() time.Time
}

func NewAccountService(repo *storage.SQLiteRepository) *AccountService {
	return &AccountService{repo: repo, now: time.Now}
}

// CreateAccount opens an account with a zero balance. A user's first account
// becomes the default; marking another account default clears the previous one.
func (s *AccountService) CreateAccount(ctx context.Context, a core.BankAccount) (core.BankAccount, error) {
	if err := a.Validate(); err != nil {
		return core.BankAccount{}, err
	}
	now := s.now().UTC()
	a.ID = uuid.NewString()
	a.Balance = core.Money{}
	a.CreatedAt, a.UpdatedAt = now, now

	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		existing, err := q.ListAccounts(ctx, a.UserID)
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			a.IsDefault = true
		}
		if err := q.CreateAccount(ctx, a); err != nil {
			return err
		}
		if a.IsDefault {
			return q.ClearDefaultAccount(ctx, a.UserID, a.ID)
		}
		return nil
	})
	if err != nil {
		return core.BankAccount{}, fmt.Errorf("create bank account: %w", err)
	}

	slog.InfoContext(ctx, "Bank account created", "bank_account_id", a.ID, "user_id", a.UserID, "default", a.IsDefault)
	return a, nil
}

func (s *AccountService) GetAccount(ctx context.Context, userID, id string) (core.BankAccount, error) {
	return s.repo.Queries().GetUserAccount(ctx, userID, id)
}

func (s *AccountService) ListAccounts(ctx context.Context, userID string) ([]core.BankAccount, error) {
	return s.repo.Queries().ListAccounts(ctx, userID)
}

func (s *AccountService) UpdateAccount(ctx context.Context, userID, id string, upd AccountUpdate) (core.BankAccount, error) {
	var updated core.BankAccount
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		a, err := q.GetUserAccount(ctx, userID, id)
		if err != nil {
			return err
		}
		if upd.Name != nil {
			a.Name = *upd.Name
		}
		if upd.BankName != nil {
			a.BankName = *upd.BankName
		}
		if upd.AccountNumber != nil {
			a.AccountNumber = *upd.AccountNumber
		}
		if upd.IsDefault != nil {
			a.IsDefault = *upd.IsDefault
		}
		if err := a.Validate(); err != nil {
			return err
		}
		a.UpdatedAt = s.now().UTC()
		if err := q.UpdateAccountDetails(ctx, a); err != nil {
			return err
		}
		if a.IsDefault {
			if err := q.ClearDefaultAccount(ctx, userID, a.ID); err != nil {
				return err
			}
		}
		updated = a
		return nil
	})
	if err != nil {
		return core.BankAccount{}, fmt.Errorf("update bank account: %w", err)
	}
	return updated, nil
}
