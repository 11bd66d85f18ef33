package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransactionKindTransfer    = "transfer"
	TransactionKindDeposit     = "deposit"
	TransactionKindWithdrawal  = "withdrawal"
	TransactionKindCardPayment = "card_payment"
)

const (
	TransactionStatusCompleted = "completed"
	TransactionStatusRejected  = "rejected"
)

// Transaction is one row of the append-only ledger. Rows are never updated
// or deleted once written; together with the balance_before/balance_after
// snapshots of the source account they form the audit trail against which
// balances can be reconciled.
//
// DestAccountID is null for deposits and withdrawals, which have no
// counterpart account.
type Transaction struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionNo   string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_no"`
	SourceAccountID int64           `gorm:"index;not null" json:"source_account_id"`
	DestAccountID   *int64          `gorm:"index" json:"dest_account_id,omitempty"`
	Kind            string          `gorm:"type:varchar(20);not null" json:"kind"`
	Amount          decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Memo            string          `gorm:"type:varchar(256)" json:"memo"`
	Status          string          `gorm:"type:varchar(20);not null;default:completed" json:"status"`
	BalanceBefore   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"balance_before"`
	BalanceAfter    decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"balance_after"`
	CreatedAt       time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}
