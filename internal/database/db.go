package database

import (
	"log"

	"erp-backend/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	// TranslateError surfaces unique-index violations as gorm.ErrDuplicatedKey
	// so services can map them onto the business-rule kind.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.Category{},
		&model.Product{},
		&model.StockMovement{},
		&model.Supplier{},
		&model.PurchaseOrder{},
		&model.PurchaseItem{},
		&model.StockAudit{},
		&model.StockAuditItem{},
		&model.ActivityLog{},
	)
	if err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}
