package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category groups products for catalog filtering
type Category struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Description string     `gorm:"type:text" json:"description"`
	ParentID    *uuid.UUID `gorm:"type:uuid;index" json:"parent_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Product is a catalog entry. CurrentStock is authoritative and is only
// written through the stock ledger.
type Product struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SKU           string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"sku"`
	Name          string          `gorm:"type:varchar(255);not null" json:"name"`
	Description   *string         `gorm:"type:text" json:"description"`
	CategoryID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"category_id"`
	Category      *Category       `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Price         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	CostPrice     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"cost_price"`
	CurrentStock  int             `gorm:"type:int;default:0;not null" json:"current_stock"`
	MinStockLevel int             `gorm:"type:int;default:0;not null" json:"min_stock_level"`
	MaxStockLevel *int            `gorm:"type:int" json:"max_stock_level"`
	Unit          string          `gorm:"type:varchar(20);not null" json:"unit"`
	Barcode       *string         `gorm:"type:varchar(100)" json:"barcode"`
	IsActive      bool            `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// MovementType constants, persisted as lower-snake strings
const (
	MovementIn         = "in"
	MovementOut        = "out"
	MovementAdjustment = "adjustment"
)

// Reference types linking a movement back to the operation that caused it
const (
	RefInitialStock    = "initial_stock"
	RefPurchaseOrder   = "purchase_order"
	RefAuditAdjustment = "audit_adjustment"
)

// StockMovement is one row of the append-only ledger. Quantity is a signed
// delta; rows are never updated or deleted (except product force-delete).
type StockMovement struct {
	ID            uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID     uuid.UUID        `gorm:"type:uuid;not null;index" json:"product_id"`
	Product       *Product         `gorm:"foreignKey:ProductID" json:"-"`
	MovementType  string           `gorm:"type:varchar(20);not null" json:"movement_type"` // in, out, adjustment
	Quantity      int              `gorm:"type:int;not null" json:"quantity"`
	UnitCost      *decimal.Decimal `gorm:"type:decimal(12,2)" json:"unit_cost"`
	ReferenceType *string          `gorm:"type:varchar(50);index" json:"reference_type"`
	ReferenceID   *uuid.UUID       `gorm:"type:uuid;index" json:"reference_id"`
	Notes         *string          `gorm:"type:text" json:"notes"`
	MovedBy       *uuid.UUID       `gorm:"type:uuid" json:"moved_by"`
	MovementDate  time.Time        `gorm:"not null;index" json:"movement_date"`
}
