package model

import (
	"time"
)

const (
	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"
)

// User is an account holder. The password is stored as a bcrypt hash and is
// never serialized.
type User struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"type:varchar(255);not null" json:"-"`
	LastName     string     `gorm:"type:varchar(100);not null" json:"last_name"`
	FirstName    string     `gorm:"type:varchar(100);not null" json:"first_name"`
	Phone        string     `gorm:"type:varchar(20)" json:"phone"`
	BirthDate    *time.Time `json:"birth_date,omitempty"`
	Address      string     `gorm:"type:text" json:"address"`
	Status       string     `gorm:"type:varchar(20);not null;default:active" json:"status"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
