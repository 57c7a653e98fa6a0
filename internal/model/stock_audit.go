package model

import (
	"time"

	"github.com/google/uuid"
)

// StockAuditStatus constants
const (
	AuditPending    = "pending"
	AuditInProgress = "in_progress"
	AuditCompleted  = "completed"
	AuditCancelled  = "cancelled"
)

// StockAudit is a physical stock count. Items are created when the audit
// starts, one per active product, snapshotting the expected quantity.
type StockAudit struct {
	ID          uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AuditName   string           `gorm:"type:varchar(255);not null" json:"audit_name"`
	AuditDate   time.Time        `gorm:"type:date;not null" json:"audit_date"`
	Status      string           `gorm:"type:varchar(20);default:'pending';not null;index" json:"status"`
	ConductedBy *uuid.UUID       `gorm:"type:uuid" json:"conducted_by"`
	Notes       *string          `gorm:"type:text" json:"notes"`
	Items       []StockAuditItem `gorm:"foreignKey:AuditID" json:"items,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// StockAuditItem holds the snapshot and the count for one product.
// ActualQuantity stays nil until counted; Variance = actual - expected.
type StockAuditItem struct {
	ID               uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AuditID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"audit_id"`
	ProductID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"product_id"`
	Product          *Product   `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	ExpectedQuantity int        `gorm:"type:int;not null" json:"expected_quantity"`
	ActualQuantity   *int       `gorm:"type:int" json:"actual_quantity"`
	Variance         *int       `gorm:"type:int" json:"variance"`
	Notes            *string    `gorm:"type:text" json:"notes"`
	AuditedAt        *time.Time `json:"audited_at"`
}
