package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateProduct  = "CREATE_PRODUCT"
	ActionUpdateProduct  = "UPDATE_PRODUCT"
	ActionDeleteProduct  = "DELETE_PRODUCT"
	ActionApplyMovement  = "APPLY_STOCK_MOVEMENT"
	ActionCreatePO       = "CREATE_PURCHASE_ORDER"
	ActionApprovePO      = "APPROVE_PURCHASE_ORDER"
	ActionSendPO         = "SEND_PURCHASE_ORDER"
	ActionReceivePOItems = "RECEIVE_PURCHASE_ITEMS"
	ActionCancelPO       = "CANCEL_PURCHASE_ORDER"
	ActionCompleteAudit  = "COMPLETE_STOCK_AUDIT"
	ActionCancelAudit    = "CANCEL_STOCK_AUDIT"
)

// ActivityLog tracks who did what for mutating operations. Written inside
// the same transaction as the change it describes.
type ActivityLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ActorID    *uuid.UUID `gorm:"type:uuid;index" json:"actor_id"` // nil for unattributed/system changes
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
