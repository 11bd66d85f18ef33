package service

import (
	"context"

	"securebank/internal/repository"

	"gorm.io/gorm"
)

// storageUnitOfWork backs UnitOfWork with a database transaction. The
// account handle passed to fn reads with SELECT ... FOR UPDATE, so the
// row stays locked from the re-validation read to the commit.
type storageUnitOfWork struct {
	db *gorm.DB
}

func NewStorageUnitOfWork(db *gorm.DB) UnitOfWork {
	return &storageUnitOfWork{db: db}
}

func (u *storageUnitOfWork) Do(ctx context.Context, fn func(accounts AccountStore, ledger Ledger) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(
			repository.NewAccountRepository(tx).ForUpdate(),
			repository.NewTransactionRepository(tx),
		)
	})
}
