package service

import (
	"context"

	"securebank/internal/model"
	"securebank/internal/repository"

	"gorm.io/gorm"
)

type CardService struct {
	cardRepo *repository.CardRepository
}

func NewCardService(db *gorm.DB) *CardService {
	return &CardService{
		cardRepo: repository.NewCardRepository(db),
	}
}

func (s *CardService) ListCards(ctx context.Context, ownerID int64) ([]*model.Card, error) {
	return s.cardRepo.ListByOwner(ctx, ownerID)
}

func (s *CardService) BlockCard(ctx context.Context, cardID, ownerID int64) error {
	return s.cardRepo.UpdateStatus(ctx, cardID, ownerID, model.CardStatusBlocked)
}

func (s *CardService) UnblockCard(ctx context.Context, cardID, ownerID int64) error {
	return s.cardRepo.UpdateStatus(ctx, cardID, ownerID, model.CardStatusActive)
}
