package repository

import (
	"context"
	"time"

	"securebank/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionRepository is the append-only ledger. It exposes no update or
// delete for transaction rows; once written, a row is permanent.
type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Append writes one ledger row. Business validation is the caller's
// responsibility; the ledger records what it is given.
func (r *TransactionRepository) Append(ctx context.Context, txn *model.Transaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

// ListForAccount returns transactions where the account is source or
// destination, newest first, capped at limit.
func (r *TransactionRepository) ListForAccount(ctx context.Context, accountID int64, limit int) ([]*model.Transaction, error) {
	var transactions []*model.Transaction
	err := r.db.WithContext(ctx).
		Where("source_account_id = ? OR dest_account_id = ?", accountID, accountID).
		Order("created_at DESC").
		Limit(limit).
		Find(&transactions).Error
	return transactions, err
}

// AccountTotals aggregates a set of accounts' activity since a point in
// time: transaction count, money sent and money received.
type AccountTotals struct {
	Count    int64
	Outgoing decimal.Decimal
	Incoming decimal.Decimal
}

func (r *TransactionRepository) TotalsForAccounts(ctx context.Context, accountIDs []int64, since time.Time) (*AccountTotals, error) {
	totals := &AccountTotals{
		Outgoing: decimal.Zero,
		Incoming: decimal.Zero,
	}
	if len(accountIDs) == 0 {
		return totals, nil
	}

	var row struct {
		Count    int64
		Outgoing decimal.NullDecimal
		Incoming decimal.NullDecimal
	}
	err := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Select(
			"COUNT(*) AS count, "+
				"SUM(CASE WHEN source_account_id IN (?) THEN amount ELSE 0 END) AS outgoing, "+
				"SUM(CASE WHEN dest_account_id IN (?) THEN amount ELSE 0 END) AS incoming",
			accountIDs, accountIDs,
		).
		Where("(source_account_id IN (?) OR dest_account_id IN (?)) AND created_at >= ?",
			accountIDs, accountIDs, since).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	totals.Count = row.Count
	if row.Outgoing.Valid {
		totals.Outgoing = row.Outgoing.Decimal
	}
	if row.Incoming.Valid {
		totals.Incoming = row.Incoming.Decimal
	}
	return totals, nil
}
