package repository

import (
	"context"

	"erp-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MovementRepository interface {
	Create(ctx context.Context, movement *model.StockMovement) error
	ListByProduct(ctx context.Context, productID uuid.UUID, page, limit int) ([]model.StockMovement, int64, error)
	// ListChronological returns every movement for a product oldest-first,
	// for replaying the ledger against the balance.
	ListChronological(ctx context.Context, productID uuid.UUID) ([]model.StockMovement, error)
	CountByProduct(ctx context.Context, productID uuid.UUID) (int64, error)
	SumByProduct(ctx context.Context, productID uuid.UUID) (int64, error)
	DeleteByProduct(ctx context.Context, productID uuid.UUID) error
}

type movementRepository struct {
	db *gorm.DB
}

func NewMovementRepository(db *gorm.DB) MovementRepository {
	return &movementRepository{db: db}
}

func (r *movementRepository) Create(ctx context.Context, movement *model.StockMovement) error {
	return GetDB(ctx, r.db).Create(movement).Error
}

func (r *movementRepository) ListByProduct(ctx context.Context, productID uuid.UUID, page, limit int) ([]model.StockMovement, int64, error) {
	var movements []model.StockMovement
	var total int64

	db := GetDB(ctx, r.db).Model(&model.StockMovement{}).Where("product_id = ?", productID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("movement_date desc").
		Offset(offset).Limit(limit).Find(&movements).Error; err != nil {
		return nil, 0, err
	}
	return movements, total, nil
}

func (r *movementRepository) ListChronological(ctx context.Context, productID uuid.UUID) ([]model.StockMovement, error) {
	var movements []model.StockMovement
	if err := GetDB(ctx, r.db).Where("product_id = ?", productID).
		Order("movement_date asc").Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

func (r *movementRepository) CountByProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.StockMovement{}).
		Where("product_id = ?", productID).Count(&count).Error
	return count, err
}

func (r *movementRepository) SumByProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	var sum int64
	err := GetDB(ctx, r.db).Model(&model.StockMovement{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(quantity), 0)").Scan(&sum).Error
	return sum, err
}

func (r *movementRepository) DeleteByProduct(ctx context.Context, productID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("product_id = ?", productID).
		Delete(&model.StockMovement{}).Error
}
