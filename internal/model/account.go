package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	AccountTypeChecking = "checking"
	AccountTypeSavings  = "savings"
)

const (
	AccountStatusActive  = "active"
	AccountStatusBlocked = "blocked"
)

// Account holds a customer balance. The balance is mutated only through
// AccountRepository.AdjustBalance inside a transfer transaction and can
// never go negative. The IBAN is assigned at creation and immutable.
type Account struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        int64           `gorm:"index;not null" json:"user_id"`
	AccountNumber string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"account_number"`
	IBAN          string          `gorm:"type:varchar(34);uniqueIndex;not null" json:"iban"`
	AccountType   string          `gorm:"type:varchar(20);not null;default:checking" json:"account_type"`
	Balance       decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"balance"`
	Currency      string          `gorm:"type:varchar(3);not null;default:EUR" json:"currency"`
	InterestRate  decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"interest_rate"`
	Status        string          `gorm:"type:varchar(20);not null;default:active" json:"status"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"opened_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string {
	return "accounts"
}

// NormalizeIBAN strips spaces and upper-cases an IBAN so that lookups do not
// depend on how the caller grouped the digits.
func NormalizeIBAN(iban string) string {
	return strings.ToUpper(strings.ReplaceAll(iban, " ", ""))
}
