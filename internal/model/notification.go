package model

import (
	"time"
)

const (
	NotificationTypeInfo     = "info"
	NotificationTypeAlert    = "alert"
	NotificationTypeTransfer = "transfer"
	NotificationTypeSecurity = "security"
)

// Notification is a message for a user, persisted so it survives
// disconnects; live delivery goes through the outbox and Kafka.
type Notification struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"index;not null" json:"user_id"`
	Title     string    `gorm:"type:varchar(200);not null" json:"title"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Type      string    `gorm:"type:varchar(20);not null;default:info" json:"type"`
	Read      bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
