package repository

import (
	"context"
	"errors"

	"securebank/internal/model"

	"gorm.io/gorm"
)

var ErrBeneficiaryNotFound = errors.New("beneficiary not found")

type BeneficiaryRepository struct {
	db *gorm.DB
}

func NewBeneficiaryRepository(db *gorm.DB) *BeneficiaryRepository {
	return &BeneficiaryRepository{db: db}
}

func (r *BeneficiaryRepository) Create(ctx context.Context, b *model.Beneficiary) error {
	return r.db.WithContext(ctx).Create(b).Error
}

// ListByUser returns the user's beneficiaries, favorites first.
func (r *BeneficiaryRepository) ListByUser(ctx context.Context, userID int64) ([]*model.Beneficiary, error) {
	var beneficiaries []*model.Beneficiary
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("favorite DESC, last_name ASC").
		Find(&beneficiaries).Error
	return beneficiaries, err
}

func (r *BeneficiaryRepository) Delete(ctx context.Context, id, userID int64) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.Beneficiary{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBeneficiaryNotFound
	}
	return nil
}
