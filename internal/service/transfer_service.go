package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"securebank/internal/infrastructure/lock"
	"securebank/internal/model"
	"securebank/internal/repository"
	"securebank/pkg/idgen"

	"github.com/shopspring/decimal"
)

// AccountStore is the transfer engine's view of account storage.
// Implementations return repository.ErrAccountNotFound for missing
// accounts and repository.ErrInsufficientBalance when an adjustment would
// drive a balance negative.
type AccountStore interface {
	GetByID(ctx context.Context, id int64) (*model.Account, error)
	GetByIBAN(ctx context.Context, iban string) (*model.Account, error)
	AdjustBalance(ctx context.Context, id int64, delta decimal.Decimal) (decimal.Decimal, error)
}

// Ledger is the transfer engine's view of the append-only transaction log.
type Ledger interface {
	Append(ctx context.Context, txn *model.Transaction) error
}

// UnitOfWork runs fn atomically: every store call made through the passed
// handles commits together or not at all. Reads through the transactional
// AccountStore take row locks.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(accounts AccountStore, ledger Ledger) error) error
}

// Event notification types.
const (
	EventTransferCompleted = "transfer_completed"
	EventTransferReceived  = "transfer_received"
)

// Event is a domain event handed to the notification sink.
type Event struct {
	Type    string          `json:"type"`
	Title   string          `json:"title"`
	Message string          `json:"message"`
	Amount  decimal.Decimal `json:"amount"`
}

// Notifier delivers events to account holders. Emit is fire-and-forget:
// implementations must swallow their own failures, since a committed
// transfer can no longer be rolled back by the time events go out.
type Notifier interface {
	Emit(ownerID int64, event Event)
}

// TransferService executes internal transfers between two accounts as one
// atomic unit: debit, credit and ledger append all commit together. It is
// the only component that mutates balances.
//
// Concurrency is controlled by per-account locks taken in ascending id
// order, so transfers on disjoint accounts run in parallel and crossing
// transfers on the same pair cannot deadlock. The database row locks taken
// inside the unit of work back this up at the storage level.
type TransferService struct {
	accounts    AccountStore
	uow         UnitOfWork
	locks       *lock.AccountLocks
	notifier    Notifier
	lockTimeout time.Duration
}

func NewTransferService(accounts AccountStore, uow UnitOfWork, locks *lock.AccountLocks, notifier Notifier, lockTimeout time.Duration) *TransferService {
	return &TransferService{
		accounts:    accounts,
		uow:         uow,
		locks:       locks,
		notifier:    notifier,
		lockTimeout: lockTimeout,
	}
}

// TransferResult reports a committed transfer back to the caller.
type TransferResult struct {
	TransactionNo string          `json:"transaction_no"`
	NewBalance    decimal.Decimal `json:"new_balance"`
}

// Transfer moves amount from the caller's source account to the account
// addressed by destIBAN.
//
// Preconditions are checked in a fixed order so each failure maps to one
// rejection reason: amount validity, source existence and ownership,
// source status, destination existence, sufficient balance. The balance
// check before the lock is only advisory; the authoritative check happens
// again inside the unit of work, after the row is locked.
func (s *TransferService) Transfer(ctx context.Context, ownerID, sourceAccountID int64, destIBAN string, amount decimal.Decimal, memo string) (*TransferResult, error) {
	if !amount.IsPositive() || !amount.Equal(amount.Truncate(2)) {
		return nil, ErrInvalidAmount
	}

	src, err := s.accounts.GetByID(ctx, sourceAccountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrSourceNotFound
		}
		return nil, s.storageFault("load source", err)
	}
	if src.UserID != ownerID {
		// an account that is not yours looks the same as one that
		// does not exist
		return nil, ErrSourceNotFound
	}
	if src.Status != model.AccountStatusActive {
		return nil, ErrAccountBlocked
	}

	dest, err := s.accounts.GetByIBAN(ctx, model.NormalizeIBAN(destIBAN))
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrDestinationNotFound
		}
		return nil, s.storageFault("load destination", err)
	}
	if dest.ID == src.ID {
		return nil, ErrSameAccount
	}
	if src.Balance.LessThan(amount) {
		return nil, ErrInsufficientFunds
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	unlock, err := s.locks.LockPair(lockCtx, src.ID, dest.ID)
	if err != nil {
		// a caller that gave up is not the same as contended accounts
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, ErrBusy
	}
	defer unlock()

	var balanceBefore, balanceAfter decimal.Decimal
	transactionNo := idgen.GenerateTransactionNo()

	err = s.uow.Do(ctx, func(accounts AccountStore, ledger Ledger) error {
		// authoritative re-validation under lock
		current, err := accounts.GetByID(ctx, src.ID)
		if err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				return ErrSourceNotFound
			}
			return err
		}
		if current.Status != model.AccountStatusActive {
			return ErrAccountBlocked
		}
		if current.Balance.LessThan(amount) {
			return ErrInsufficientFunds
		}
		balanceBefore = current.Balance

		balanceAfter, err = accounts.AdjustBalance(ctx, src.ID, amount.Neg())
		if err != nil {
			if errors.Is(err, repository.ErrInsufficientBalance) {
				return ErrInsufficientFunds
			}
			return err
		}

		if _, err := accounts.AdjustBalance(ctx, dest.ID, amount); err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				return ErrDestinationNotFound
			}
			return err
		}

		destID := dest.ID
		return ledger.Append(ctx, &model.Transaction{
			TransactionNo:   transactionNo,
			SourceAccountID: src.ID,
			DestAccountID:   &destID,
			Kind:            model.TransactionKindTransfer,
			Amount:          amount,
			Memo:            memo,
			Status:          model.TransactionStatusCompleted,
			BalanceBefore:   balanceBefore,
			BalanceAfter:    balanceAfter,
		})
	})
	if err != nil {
		if IsRejection(err) {
			return nil, err
		}
		return nil, s.storageFault("commit transfer", err)
	}

	// events go out only after the unit of work is durable, and their
	// delivery can no longer affect it
	s.notifier.Emit(ownerID, Event{
		Type:    EventTransferCompleted,
		Title:   "Transfer sent",
		Message: fmt.Sprintf("You sent %s %s to %s", amount.StringFixed(2), src.Currency, dest.IBAN),
		Amount:  amount,
	})
	if dest.UserID != ownerID {
		s.notifier.Emit(dest.UserID, Event{
			Type:    EventTransferReceived,
			Title:   "Transfer received",
			Message: fmt.Sprintf("You received %s %s", amount.StringFixed(2), dest.Currency),
			Amount:  amount,
		})
	}

	return &TransferResult{
		TransactionNo: transactionNo,
		NewBalance:    balanceAfter,
	}, nil
}

func (s *TransferService) storageFault(op string, err error) error {
	log.Printf("[TransferService] %s: %v", op, err)
	return ErrStorageFault
}
