package repository

import (
	"context"

	"erp-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductFilter narrows List queries. Zero values mean "no filter".
type ProductFilter struct {
	CategoryID   *uuid.UUID
	ActiveOnly   bool
	Search       string // matches name or SKU
	LowStockOnly bool
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	Save(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindBySKU(ctx context.Context, sku string) (*model.Product, error)
	// FindByIDForUpdate locks the product row for the rest of the enclosing
	// transaction. This is the serialization point for all balance writes.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error)
	UpdateStock(ctx context.Context, id uuid.UUID, stock int) error
	List(ctx context.Context, filter ProductFilter, page, limit int) ([]model.Product, int64, error)
	ListLowStock(ctx context.Context) ([]model.Product, error)
	ListActive(ctx context.Context) ([]model.Product, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Create(product).Error
}

func (r *productRepository) Save(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Save(product).Error
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Product{}).Error
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).Preload("Category").First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindBySKU(ctx context.Context, sku string) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).Where("sku = ?", sku).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) UpdateStock(ctx context.Context, id uuid.UUID, stock int) error {
	return GetDB(ctx, r.db).Model(&model.Product{}).Where("id = ?", id).
		Update("current_stock", stock).Error
}

func (r *productRepository) applyFilter(db *gorm.DB, filter ProductFilter) *gorm.DB {
	if filter.CategoryID != nil {
		db = db.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.ActiveOnly {
		db = db.Where("is_active = ?", true)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		db = db.Where("name ILIKE ? OR sku ILIKE ?", pattern, pattern)
	}
	if filter.LowStockOnly {
		db = db.Where("current_stock <= min_stock_level")
	}
	return db
}

func (r *productRepository) List(ctx context.Context, filter ProductFilter, page, limit int) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	db := r.applyFilter(GetDB(ctx, r.db).Model(&model.Product{}), filter)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Category").Order("name asc").
		Offset(offset).Limit(limit).Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *productRepository) ListLowStock(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if err := GetDB(ctx, r.db).
		Where("is_active = ? AND current_stock <= min_stock_level", true).
		Order("name asc").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) ListActive(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if err := GetDB(ctx, r.db).Where("is_active = ?", true).
		Order("name asc").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}
