package service

import (
	"context"
	"errors"

	"securebank/internal/model"
	"securebank/internal/repository"

	"gorm.io/gorm"
)

type BeneficiaryService struct {
	beneficiaryRepo *repository.BeneficiaryRepository
}

func NewBeneficiaryService(db *gorm.DB) *BeneficiaryService {
	return &BeneficiaryService{
		beneficiaryRepo: repository.NewBeneficiaryRepository(db),
	}
}

func (s *BeneficiaryService) List(ctx context.Context, userID int64) ([]*model.Beneficiary, error) {
	return s.beneficiaryRepo.ListByUser(ctx, userID)
}

func (s *BeneficiaryService) Add(ctx context.Context, userID int64, lastName, firstName, iban string, favorite bool) (*model.Beneficiary, error) {
	iban = model.NormalizeIBAN(iban)
	if iban == "" {
		return nil, errors.New("iban is required")
	}

	beneficiary := &model.Beneficiary{
		UserID:    userID,
		LastName:  lastName,
		FirstName: firstName,
		IBAN:      iban,
		Favorite:  favorite,
	}
	if err := s.beneficiaryRepo.Create(ctx, beneficiary); err != nil {
		return nil, err
	}
	return beneficiary, nil
}

func (s *BeneficiaryService) Delete(ctx context.Context, id, userID int64) error {
	return s.beneficiaryRepo.Delete(ctx, id, userID)
}
