package repository

import (
	"context"
	"fmt"

	"erp-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// POFilter narrows purchase-order listings.
type POFilter struct {
	Status     string
	SupplierID *uuid.UUID
	Search     string // PO number substring
}

type PurchaseOrderRepository interface {
	Create(ctx context.Context, po *model.PurchaseOrder) error
	CreateItem(ctx context.Context, item *model.PurchaseItem) error
	Save(ctx context.Context, po *model.PurchaseOrder) error
	SaveItem(ctx context.Context, item *model.PurchaseItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error)
	FindByNumber(ctx context.Context, poNumber string) (*model.PurchaseOrder, error)
	FindItemByID(ctx context.Context, itemID uuid.UUID) (*model.PurchaseItem, error)
	CountUnreceivedItems(ctx context.Context, poID uuid.UUID) (int64, error)
	CountReceipts(ctx context.Context, poID uuid.UUID) (int64, error)
	List(ctx context.Context, filter POFilter, page, limit int) ([]model.PurchaseOrder, int64, error)
	// NextPONumber issues the next number for the given date prefix. The
	// prefix counter is serialized with a transaction-scoped advisory lock,
	// so concurrent creations cannot draw the same sequence.
	NextPONumber(ctx context.Context, prefix string) (string, error)
}

type purchaseOrderRepository struct {
	db *gorm.DB
}

func NewPurchaseOrderRepository(db *gorm.DB) PurchaseOrderRepository {
	return &purchaseOrderRepository{db: db}
}

func (r *purchaseOrderRepository) Create(ctx context.Context, po *model.PurchaseOrder) error {
	return GetDB(ctx, r.db).Create(po).Error
}

func (r *purchaseOrderRepository) CreateItem(ctx context.Context, item *model.PurchaseItem) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *purchaseOrderRepository) Save(ctx context.Context, po *model.PurchaseOrder) error {
	return GetDB(ctx, r.db).Omit("Items", "Supplier").Save(po).Error
}

func (r *purchaseOrderRepository) SaveItem(ctx context.Context, item *model.PurchaseItem) error {
	return GetDB(ctx, r.db).Omit("Product").Save(item).Error
}

func (r *purchaseOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	if err := GetDB(ctx, r.db).
		Preload("Supplier").
		Preload("Items").
		Preload("Items.Product").
		First(&po, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *purchaseOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&po, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *purchaseOrderRepository) FindByNumber(ctx context.Context, poNumber string) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	if err := GetDB(ctx, r.db).
		Preload("Supplier").
		Preload("Items").
		Preload("Items.Product").
		Where("po_number = ?", poNumber).First(&po).Error; err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *purchaseOrderRepository) FindItemByID(ctx context.Context, itemID uuid.UUID) (*model.PurchaseItem, error) {
	var item model.PurchaseItem
	if err := GetDB(ctx, r.db).First(&item, "id = ?", itemID).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *purchaseOrderRepository) CountUnreceivedItems(ctx context.Context, poID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.PurchaseItem{}).
		Where("po_id = ? AND status <> ?", poID, model.ItemReceived).
		Count(&count).Error
	return count, err
}

func (r *purchaseOrderRepository) CountReceipts(ctx context.Context, poID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.PurchaseItem{}).
		Where("po_id = ? AND received_quantity > 0", poID).
		Count(&count).Error
	return count, err
}

func (r *purchaseOrderRepository) List(ctx context.Context, filter POFilter, page, limit int) ([]model.PurchaseOrder, int64, error) {
	var orders []model.PurchaseOrder
	var total int64

	db := GetDB(ctx, r.db).Model(&model.PurchaseOrder{})
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.SupplierID != nil {
		db = db.Where("supplier_id = ?", *filter.SupplierID)
	}
	if filter.Search != "" {
		db = db.Where("po_number ILIKE ?", "%"+filter.Search+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Supplier").Preload("Items").
		Order("created_at desc").
		Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *purchaseOrderRepository) NextPONumber(ctx context.Context, prefix string) (string, error) {
	db := GetDB(ctx, r.db)

	if err := db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", prefix).Error; err != nil {
		return "", err
	}

	var count int64
	if err := db.Model(&model.PurchaseOrder{}).
		Where("po_number LIKE ?", prefix+"%").
		Count(&count).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}
