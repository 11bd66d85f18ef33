package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	CardTypeVisa       = "visa"
	CardTypeMastercard = "mastercard"
)

const (
	CardStatusActive  = "active"
	CardStatusBlocked = "blocked"
)

// Card is a payment card attached to an account. The CVV is kept out of
// JSON responses.
type Card struct {
	ID         int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID  int64           `gorm:"index;not null" json:"account_id"`
	CardNumber string          `gorm:"type:varchar(19);uniqueIndex;not null" json:"card_number"`
	CardType   string          `gorm:"type:varchar(20);not null;default:visa" json:"card_type"`
	Holder     string          `gorm:"type:varchar(100);not null" json:"holder"`
	ExpiresAt  time.Time       `gorm:"not null" json:"expires_at"`
	CVV        string          `gorm:"type:varchar(3);not null" json:"-"`
	DailyLimit decimal.Decimal `gorm:"type:decimal(10,2);not null;default:500" json:"daily_limit"`
	Status     string          `gorm:"type:varchar(20);not null;default:active" json:"status"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (Card) TableName() string {
	return "cards"
}
