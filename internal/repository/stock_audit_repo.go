package repository

import (
	"context"

	"erp-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StockAuditRepository interface {
	Create(ctx context.Context, audit *model.StockAudit) error
	Save(ctx context.Context, audit *model.StockAudit) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.StockAudit, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.StockAudit, error)
	List(ctx context.Context, status string, page, limit int) ([]model.StockAudit, int64, error)

	CreateItems(ctx context.Context, items []model.StockAuditItem) error
	SaveItem(ctx context.Context, item *model.StockAuditItem) error
	FindItem(ctx context.Context, auditID, productID uuid.UUID) (*model.StockAuditItem, error)
	ListItems(ctx context.Context, auditID uuid.UUID, varianceOnly bool, page, limit int) ([]model.StockAuditItem, int64, error)
	ListAllItems(ctx context.Context, auditID uuid.UUID) ([]model.StockAuditItem, error)
	CountUncounted(ctx context.Context, auditID uuid.UUID) (int64, error)
	DeleteItems(ctx context.Context, auditID uuid.UUID) error
}

type stockAuditRepository struct {
	db *gorm.DB
}

func NewStockAuditRepository(db *gorm.DB) StockAuditRepository {
	return &stockAuditRepository{db: db}
}

func (r *stockAuditRepository) Create(ctx context.Context, audit *model.StockAudit) error {
	return GetDB(ctx, r.db).Create(audit).Error
}

func (r *stockAuditRepository) Save(ctx context.Context, audit *model.StockAudit) error {
	return GetDB(ctx, r.db).Omit("Items").Save(audit).Error
}

func (r *stockAuditRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.StockAudit{}).Error
}

func (r *stockAuditRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.StockAudit, error) {
	var audit model.StockAudit
	if err := GetDB(ctx, r.db).First(&audit, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &audit, nil
}

func (r *stockAuditRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.StockAudit, error) {
	var audit model.StockAudit
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&audit, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &audit, nil
}

func (r *stockAuditRepository) List(ctx context.Context, status string, page, limit int) ([]model.StockAudit, int64, error) {
	var audits []model.StockAudit
	var total int64

	db := GetDB(ctx, r.db).Model(&model.StockAudit{})
	if status != "" {
		db = db.Where("status = ?", status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("audit_date desc").Offset(offset).Limit(limit).
		Find(&audits).Error; err != nil {
		return nil, 0, err
	}
	return audits, total, nil
}

func (r *stockAuditRepository) CreateItems(ctx context.Context, items []model.StockAuditItem) error {
	if len(items) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&items).Error
}

func (r *stockAuditRepository) SaveItem(ctx context.Context, item *model.StockAuditItem) error {
	return GetDB(ctx, r.db).Omit("Product").Save(item).Error
}

func (r *stockAuditRepository) FindItem(ctx context.Context, auditID, productID uuid.UUID) (*model.StockAuditItem, error) {
	var item model.StockAuditItem
	if err := GetDB(ctx, r.db).
		Where("audit_id = ? AND product_id = ?", auditID, productID).
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *stockAuditRepository) ListItems(ctx context.Context, auditID uuid.UUID, varianceOnly bool, page, limit int) ([]model.StockAuditItem, int64, error) {
	var items []model.StockAuditItem
	var total int64

	db := GetDB(ctx, r.db).Model(&model.StockAuditItem{}).Where("audit_id = ?", auditID)
	if varianceOnly {
		db = db.Where("variance IS NOT NULL AND variance <> 0")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Product").
		Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *stockAuditRepository) ListAllItems(ctx context.Context, auditID uuid.UUID) ([]model.StockAuditItem, error) {
	var items []model.StockAuditItem
	if err := GetDB(ctx, r.db).Where("audit_id = ?", auditID).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *stockAuditRepository) CountUncounted(ctx context.Context, auditID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.StockAuditItem{}).
		Where("audit_id = ? AND actual_quantity IS NULL", auditID).
		Count(&count).Error
	return count, err
}

func (r *stockAuditRepository) DeleteItems(ctx context.Context, auditID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("audit_id = ?", auditID).
		Delete(&model.StockAuditItem{}).Error
}
