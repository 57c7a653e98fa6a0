package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SupplierStatus constants
const (
	SupplierActive   = "active"
	SupplierInactive = "inactive"
)

// Supplier is a vendor purchase orders are placed with
type Supplier struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SupplierCode  string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"supplier_code"`
	Name          string    `gorm:"type:varchar(200);not null" json:"name"`
	ContactPerson string    `gorm:"type:varchar(255)" json:"contact_person"`
	Email         string    `gorm:"type:varchar(255)" json:"email"`
	Phone         string    `gorm:"type:varchar(50)" json:"phone"`
	Address       string    `gorm:"type:text" json:"address"`
	PaymentTerms  string    `gorm:"type:varchar(100)" json:"payment_terms"`
	Status        string    `gorm:"type:varchar(20);default:'active';not null" json:"status"` // active, inactive
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PurchaseOrderStatus constants, persisted lower-snake
const (
	POPending   = "pending"
	POApproved  = "approved"
	POSent      = "sent"
	POReceived  = "received"
	POCancelled = "cancelled"
)

// PurchaseItemStatus constants
const (
	ItemPending  = "pending"
	ItemPartial  = "partial"
	ItemReceived = "received"
)

// PurchaseOrder owns its PurchaseItem rows. Status walks
// pending -> approved -> (sent) -> received, or pending/approved/sent -> cancelled.
type PurchaseOrder struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PONumber     string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"po_number"`
	SupplierID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"supplier_id"`
	Supplier     *Supplier       `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	OrderDate    time.Time       `gorm:"type:date;not null" json:"order_date"`
	ExpectedDate *time.Time      `gorm:"type:date" json:"expected_date"`
	Status       string          `gorm:"type:varchar(20);default:'pending';not null;index" json:"status"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total_amount"`
	Notes        *string         `gorm:"type:text" json:"notes"`
	CreatedBy    *uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	ApprovedBy   *uuid.UUID      `gorm:"type:uuid" json:"approved_by"`
	ApprovedAt   *time.Time      `json:"approved_at"`
	Items        []PurchaseItem  `gorm:"foreignKey:POID" json:"items"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// PurchaseItem is one ordered line. ReceivedQuantity only grows and never
// exceeds Quantity.
type PurchaseItem struct {
	ID               uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	POID             uuid.UUID       `gorm:"type:uuid;not null;index" json:"po_id"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product          *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity         int             `gorm:"type:int;not null" json:"quantity"`
	UnitCost         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_cost"`
	TotalCost        decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total_cost"`
	ReceivedQuantity int             `gorm:"type:int;default:0;not null" json:"received_quantity"`
	Status           string          `gorm:"type:varchar(20);default:'pending';not null" json:"status"` // pending, partial, received
}
