package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

// DepositUpdate carries optional deposit changes; nil fields are left untouched.
type DepositUpdate struct {
	BankAccountID *string
	DepositTypeID *string
	Amount        *core.Money
	Note          *string
	Date          *time.Time
}

// DepositService records deposits and credits their bank accounts.
type DepositService struct {
	repo *storage.SQLiteRepository
	now  func() time.Time
}

func NewDepositService(repo *storage.SQLiteRepository) *DepositService {
	return &DepositService{repo: repo, now: time.Now}
}

func checkDepositReferences(ctx context.Context, q *storage.Queries, d core.Deposit) error {
	if _, err := q.GetUserAccount(ctx, d.UserID, d.BankAccountID); err != nil {
		return err
	}
	if _, err := q.GetDepositType(ctx, d.DepositTypeID); err != nil {
		return err
	}
	return nil
}

func (s *DepositService) CreateDeposit(ctx context.Context, d core.Deposit) (core.Deposit, error) {
	now := s.now().UTC()
	if d.Date.IsZero() {
		d.Date = now
	}
	d.Date = d.Date.UTC()
	if err := d.Validate(); err != nil {
		return core.Deposit{}, err
	}
	d.ID = uuid.NewString()
	d.CreatedAt = now
	d.DepositType, d.BankAccount = nil, nil

	delta := depositCreateDelta(d.Amount)
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		if err := checkDepositReferences(ctx, q, d); err != nil {
			return err
		}
		if err := q.InsertDeposit(ctx, d); err != nil {
			return err
		}
		return applyDelta(ctx, q, d.BankAccountID, delta)
	})
	if err != nil {
		logLedgerFailure(ctx, applog.OpCreate, "deposit", d.ID, err)
		return core.Deposit{}, fmt.Errorf("create deposit: %w", err)
	}
	logLedgerMutation(ctx, applog.OpCreate, "deposit", d.ID, d.BankAccountID, delta)

	return s.repo.Queries().GetDeposit(ctx, d.UserID, d.ID)
}

func (s *DepositService) GetDeposit(ctx context.Context, userID, id string) (core.Deposit, error) {
	return s.repo.Queries().GetDeposit(ctx, userID, id)
}

func (s *DepositService) ListDeposits(ctx context.Context, f core.DepositFilter) ([]core.Deposit, error) {
	return s.repo.Queries().ListDeposits(ctx, f)
}

func (s *DepositService) UpdateDeposit(ctx context.Context, userID, id string, upd DepositUpdate) (core.Deposit, error) {
	var applied []balanceChange
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		old, err := q.GetDeposit(ctx, userID, id)
		if err != nil {
			return err
		}
		d := old
		d.DepositType, d.BankAccount = nil, nil
		if upd.BankAccountID != nil {
			d.BankAccountID = *upd.BankAccountID
		}
		if upd.DepositTypeID != nil {
			d.DepositTypeID = *upd.DepositTypeID
		}
		if upd.Amount != nil {
			d.Amount = *upd.Amount
		}
		if upd.Note != nil {
			d.Note = *upd.Note
		}
		if upd.Date != nil {
			d.Date = upd.Date.UTC()
		}
		if err := d.Validate(); err != nil {
			return err
		}
		if err := checkDepositReferences(ctx, q, d); err != nil {
			return err
		}
		if err := q.UpdateDeposit(ctx, d); err != nil {
			return err
		}

		if d.BankAccountID == old.BankAccountID {
			applied = []balanceChange{{d.BankAccountID, depositUpdateDelta(old.Amount, d.Amount)}}
		} else {
			applied = []balanceChange{
				{old.BankAccountID, depositDeleteDelta(old.Amount)},
				{d.BankAccountID, depositCreateDelta(d.Amount)},
			}
		}
		return applyChanges(ctx, q, applied)
	})
	if err != nil {
		logLedgerFailure(ctx, applog.OpUpdate, "deposit", id, err)
		return core.Deposit{}, fmt.Errorf("update deposit: %w", err)
	}
	for _, c := range applied {
		logLedgerMutation(ctx, applog.OpUpdate, "deposit", id, c.accountID, c.deltaCents)
	}

	return s.repo.Queries().GetDeposit(ctx, userID, id)
}

// DeleteDeposit removes the deposit and withdraws its amount from the account.
func (s *DepositService) DeleteDeposit(ctx context.Context, userID, id string) error {
	var reversal balanceChange
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		old, err := q.GetDeposit(ctx, userID, id)
		if err != nil {
			return err
		}
		if err := q.DeleteDeposit(ctx, userID, id); err != nil {
			return err
		}
		reversal = balanceChange{old.BankAccountID, depositDeleteDelta(old.Amount)}
		return applyDelta(ctx, q, reversal.accountID, reversal.deltaCents)
	})
	if err != nil {
		logLedgerFailure(ctx, applog.OpDelete, "deposit", id, err)
		return fmt.Errorf("delete deposit: %w", err)
	}
	logLedgerMutation(ctx, applog.OpDelete, "deposit", id, reversal.accountID, reversal.deltaCents)
	return nil
}

// GetDepositSummary totals the filtered deposits per deposit type.
func (s *DepositService) GetDepositSummary(ctx context.Context, f core.DepositFilter) (core.LedgerSummary, error) {
	byType, err := s.repo.Queries().DepositTotalsByType(ctx, f)
	if err != nil {
		return core.LedgerSummary{}, err
	}
	summary := core.LedgerSummary{ByCategory: byType}
	if f.From != nil {
		summary.From = *f.From
	}
	if f.To != nil {
		summary.To = *f.To
	}
	summary.Total()
	return summary, nil
}
