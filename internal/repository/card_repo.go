package repository

import (
	"context"
	"errors"

	"securebank/internal/model"

	"gorm.io/gorm"
)

var ErrCardNotFound = errors.New("card not found")

type CardRepository struct {
	db *gorm.DB
}

func NewCardRepository(db *gorm.DB) *CardRepository {
	return &CardRepository{db: db}
}

func (r *CardRepository) Create(ctx context.Context, card *model.Card) error {
	return r.db.WithContext(ctx).Create(card).Error
}

// ListByOwner returns every card attached to one of the owner's accounts.
func (r *CardRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*model.Card, error) {
	var cards []*model.Card
	err := r.db.WithContext(ctx).
		Joins("JOIN accounts ON accounts.id = cards.account_id").
		Where("accounts.user_id = ?", ownerID).
		Find(&cards).Error
	return cards, err
}

// UpdateStatus flips a card between active and blocked. The subquery scopes
// the update to the owner's accounts so a user cannot touch someone else's
// card by guessing ids.
func (r *CardRepository) UpdateStatus(ctx context.Context, cardID, ownerID int64, status string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Card{}).
		Where("id = ? AND account_id IN (?)",
			cardID,
			r.db.Model(&model.Account{}).Select("id").Where("user_id = ?", ownerID),
		).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCardNotFound
	}
	return nil
}
