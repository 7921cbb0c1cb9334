package repository

import (
	"context"

	"taxdesk/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TransactionTypeRepository interface {
	Create(ctx context.Context, txType *model.TransactionType) error
	Update(ctx context.Context, txType *model.TransactionType) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.TransactionType, error)
	FindByName(ctx context.Context, category, name string) (*model.TransactionType, error)
	List(ctx context.Context, category string, activeOnly bool) ([]model.TransactionType, error)
}

type transactionTypeRepository struct {
	db *gorm.DB
}

func NewTransactionTypeRepository(db *gorm.DB) TransactionTypeRepository {
	return &transactionTypeRepository{db: db}
}

func (r *transactionTypeRepository) Create(ctx context.Context, txType *model.TransactionType) error {
	return GetDB(ctx, r.db).Create(txType).Error
}

func (r *transactionTypeRepository) Update(ctx context.Context, txType *model.TransactionType) error {
	return GetDB(ctx, r.db).Save(txType).Error
}

func (r *transactionTypeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.TransactionType{}).Error
}

func (r *transactionTypeRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.TransactionType, error) {
	var txType model.TransactionType
	if err := GetDB(ctx, r.db).First(&txType, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &txType, nil
}

func (r *transactionTypeRepository) FindByName(ctx context.Context, category, name string) (*model.TransactionType, error) {
	var txType model.TransactionType
	if err := GetDB(ctx, r.db).
		Where("taxpayer_category = ? AND name = ?", category, name).
		First(&txType).Error; err != nil {
		return nil, err
	}
	return &txType, nil
}

func (r *transactionTypeRepository) List(ctx context.Context, category string, activeOnly bool) ([]model.TransactionType, error) {
	var types []model.TransactionType
	query := GetDB(ctx, r.db)
	if category != "" {
		query = query.Where("taxpayer_category = ?", category)
	}
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Order("taxpayer_category asc, sort_order asc, name asc").Find(&types).Error; err != nil {
		return nil, err
	}
	return types, nil
}
