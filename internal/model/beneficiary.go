package model

import (
	"time"
)

// Beneficiary is a saved transfer destination for a user.
type Beneficiary struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"index;not null" json:"user_id"`
	LastName  string    `gorm:"type:varchar(100);not null" json:"last_name"`
	FirstName string    `gorm:"type:varchar(100)" json:"first_name"`
	IBAN      string    `gorm:"type:varchar(34);not null" json:"iban"`
	Favorite  bool      `gorm:"not null;default:false" json:"favorite"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Beneficiary) TableName() string {
	return "beneficiaries"
}
