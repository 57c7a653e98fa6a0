package service

import (
	"context"
	"testing"

	"erp-backend/internal/apperr"
	"erp-backend/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func intPtr(n int) *int { return &n }

func TestValidateProductFields(t *testing.T) {
	tests := []struct {
		name     string
		sku      string
		prodName string
		unit     string
		price    float64
		cost     float64
		minStock int
		maxStock *int
		wantErr  bool
	}{
		{"valid", "SKU-1", "Widget", "pcs", 10, 5, 2, nil, false},
		{"valid with max", "SKU-1", "Widget", "pcs", 10, 5, 2, intPtr(100), false},
		{"blank sku", "  ", "Widget", "pcs", 10, 5, 0, nil, true},
		{"blank name", "SKU-1", "", "pcs", 10, 5, 0, nil, true},
		{"blank unit", "SKU-1", "Widget", " ", 10, 5, 0, nil, true},
		{"negative price", "SKU-1", "Widget", "pcs", -1, 5, 0, nil, true},
		{"negative cost", "SKU-1", "Widget", "pcs", 10, -1, 0, nil, true},
		{"negative min stock", "SKU-1", "Widget", "pcs", 10, 5, -1, nil, true},
		{"max below min", "SKU-1", "Widget", "pcs", 10, 5, 10, intPtr(5), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateProductFields(tt.sku, tt.prodName, tt.unit, tt.price, tt.cost, tt.minStock, tt.maxStock)
			if tt.wantErr {
				assert.True(t, apperr.IsValidation(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateProductRejectsNegativeInitialStock(t *testing.T) {
	s := &productService{}

	_, err := s.CreateProduct(context.Background(), "", CreateProductRequest{
		SKU:          "SKU-1",
		Name:         "Widget",
		Unit:         "pcs",
		CategoryID:   "0b9fba9f-8f36-4a0e-b6f1-444444444444",
		InitialStock: -1,
	})
	assert.True(t, apperr.IsValidation(err))
}

func TestCreateProductRejectsBadCategoryID(t *testing.T) {
	s := &productService{}

	_, err := s.CreateProduct(context.Background(), "", CreateProductRequest{
		SKU:        "SKU-1",
		Name:       "Widget",
		Unit:       "pcs",
		CategoryID: "not-a-uuid",
	})
	assert.True(t, apperr.IsValidation(err))
}

// A concurrent create can pass the SKU pre-check and hit the unique index
// instead; the violation must still surface as a business-rule conflict.
func TestCreateProductDuplicateSKUConflict(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	svc := NewProductService(
		repository.NewProductRepository(db),
		repository.NewCategoryRepository(db),
		repository.NewMovementRepository(db),
		repository.NewActivityRepository(db),
		nil,
		repository.NewTransactionManager(db),
	)

	categoryID := uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "categories" WHERE id = \$1`).
		WithArgs(categoryID, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(categoryID.String(), "Widgets"))
	mock.ExpectQuery(`SELECT \* FROM "products" WHERE sku = \$1`).
		WithArgs("SKU-1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "products"`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: `duplicate key value violates unique constraint "idx_products_sku"`})
	mock.ExpectRollback()

	_, err = svc.CreateProduct(context.Background(), "", CreateProductRequest{
		SKU:        "SKU-1",
		Name:       "Widget",
		Unit:       "pcs",
		CategoryID: categoryID.String(),
		Price:      10,
		CostPrice:  5,
	})
	assert.True(t, apperr.IsBusinessRule(err))
	assert.Contains(t, err.Error(), "already in use")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCategoryValidation(t *testing.T) {
	s := &productService{}

	_, err := s.UpdateCategory(context.Background(), "not-a-uuid", CreateCategoryRequest{Name: "Tools"})
	assert.True(t, apperr.IsValidation(err))

	_, err = s.UpdateCategory(context.Background(), "0b9fba9f-8f36-4a0e-b6f1-444444444444", CreateCategoryRequest{Name: "  "})
	assert.True(t, apperr.IsValidation(err))
}

func TestDeleteCategoryRejectsBadID(t *testing.T) {
	s := &productService{}

	err := s.DeleteCategory(context.Background(), "not-a-uuid")
	assert.True(t, apperr.IsValidation(err))
}
