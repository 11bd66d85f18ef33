package repository

import (
	"context"
	"errors"

	"securebank/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// AccountRepository is the account store. Construct it from a transaction
// handle and call ForUpdate to get a view whose reads take row locks.
type AccountRepository struct {
	db      *gorm.DB
	locking bool
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// ForUpdate returns a view whose point reads add SELECT ... FOR UPDATE.
// Only meaningful when the repository wraps an open transaction.
func (r *AccountRepository) ForUpdate() *AccountRepository {
	return &AccountRepository{db: r.db, locking: true}
}

func (r *AccountRepository) query(ctx context.Context) *gorm.DB {
	q := r.db.WithContext(ctx)
	if r.locking {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func (r *AccountRepository) Create(ctx context.Context, account *model.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	var account model.Account
	err := r.query(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) GetByIBAN(ctx context.Context, iban string) (*model.Account, error) {
	var account model.Account
	err := r.query(ctx).Where("iban = ?", model.NormalizeIBAN(iban)).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// ListByOwner returns the owner's accounts, most recently opened first.
func (r *AccountRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*model.Account, error) {
	var accounts []*model.Account
	err := r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Find(&accounts).Error
	return accounts, err
}

// AdjustBalance applies delta to the account balance and returns the new
// balance. The WHERE guard makes the non-negativity check part of the
// update itself, so a concurrent writer can never drive the balance below
// zero.
func (r *AccountRepository) AdjustBalance(ctx context.Context, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("id = ? AND balance + ? >= 0", id, delta).
		UpdateColumn("balance", gorm.Expr("balance + ?", delta))

	if result.Error != nil {
		return decimal.Zero, result.Error
	}

	if result.RowsAffected == 0 {
		// distinguish a missing account from a guard failure
		if _, err := r.GetByID(ctx, id); err != nil {
			return decimal.Zero, err
		}
		return decimal.Zero, ErrInsufficientBalance
	}

	account, err := r.GetByID(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

// SumBalancesByOwner totals all of the owner's account balances.
func (r *AccountRepository) SumBalancesByOwner(ctx context.Context, ownerID int64) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("user_id = ?", ownerID).
		Select("SUM(balance)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
