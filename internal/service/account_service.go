package service

import (
	"context"
	"time"

	"securebank/internal/model"
	"securebank/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AccountService serves the read side: account listings, per-account
// transaction history and dashboard aggregates. All queries are scoped to
// the calling owner.
type AccountService struct {
	accountRepo     *repository.AccountRepository
	transactionRepo *repository.TransactionRepository
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{
		accountRepo:     repository.NewAccountRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
	}
}

func (s *AccountService) ListAccounts(ctx context.Context, ownerID int64) ([]*model.Account, error) {
	return s.accountRepo.ListByOwner(ctx, ownerID)
}

// Transactions returns the latest ledger entries touching one of the
// owner's accounts. The ownership check happens here, not in the handler,
// so an account id belonging to someone else reads as not found.
func (s *AccountService) Transactions(ctx context.Context, ownerID, accountID int64, limit int) ([]*model.Transaction, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.UserID != ownerID {
		return nil, repository.ErrAccountNotFound
	}

	if limit <= 0 || limit > 50 {
		limit = 50
	}
	return s.transactionRepo.ListForAccount(ctx, accountID, limit)
}

// Stats is the dashboard summary for one owner.
type Stats struct {
	TotalBalance      decimal.Decimal `json:"total_balance"`
	TransactionCount  int64           `json:"transaction_count"`
	TotalOutgoing     decimal.Decimal `json:"total_outgoing"`
	TotalIncoming     decimal.Decimal `json:"total_incoming"`
}

// GetStats aggregates the owner's balances and their last 30 days of
// activity.
func (s *AccountService) GetStats(ctx context.Context, ownerID int64) (*Stats, error) {
	total, err := s.accountRepo.SumBalancesByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	accounts, err := s.accountRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	accountIDs := make([]int64, 0, len(accounts))
	for _, a := range accounts {
		accountIDs = append(accountIDs, a.ID)
	}

	totals, err := s.transactionRepo.TotalsForAccounts(ctx, accountIDs, time.Now().AddDate(0, 0, -30))
	if err != nil {
		return nil, err
	}

	return &Stats{
		TotalBalance:     total,
		TransactionCount: totals.Count,
		TotalOutgoing:    totals.Outgoing,
		TotalIncoming:    totals.Incoming,
	}, nil
}
