package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)

	return db, mock
}

func TestProductRepositoryFindBySKU(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	id := uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "products" WHERE sku = \$1`).
		WithArgs("SKU-1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "sku", "name", "current_stock", "min_stock_level", "price", "cost_price", "is_active"}).
			AddRow(id.String(), "SKU-1", "Widget", 12, 5, "10.00", "6.50", true))

	product, err := repo.FindBySKU(context.Background(), "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, id, product.ID)
	assert.Equal(t, "Widget", product.Name)
	assert.Equal(t, 12, product.CurrentStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepositoryFindBySKUNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "products" WHERE sku = \$1`).
		WithArgs("MISSING", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindBySKU(context.Background(), "MISSING")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepositoryUpdateStock(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "products" SET "current_stock"=\$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdateStock(context.Background(), id, 42)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepositoryFindByIDForUpdateLocksRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)
	id := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "products" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "sku", "name", "current_stock"}).
			AddRow(id.String(), "SKU-1", "Widget", 3))

	product, err := repo.FindByIDForUpdate(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 3, product.CurrentStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepositoryListLowStock(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProductRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "products" WHERE is_active = \$1 AND current_stock <= min_stock_level`).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "sku", "name", "current_stock", "min_stock_level"}).
			AddRow(uuid.New().String(), "SKU-1", "Widget", 2, 5).
			AddRow(uuid.New().String(), "SKU-2", "Gadget", 0, 1))

	products, err := repo.ListLowStock(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityRepositoryListByEntity(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewActivityRepository(db)
	entityID := uuid.New()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "activity_logs" WHERE entity_id = \$1`).
		WithArgs(entityID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT \* FROM "activity_logs" WHERE entity_id = \$1 ORDER BY created_at desc LIMIT \$2`).
		WithArgs(entityID, 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "action", "entity_id"}).
			AddRow(uuid.New().String(), "APPLY_STOCK_MOVEMENT", entityID.String()).
			AddRow(uuid.New().String(), "CREATE_PRODUCT", entityID.String()))

	entries, total, err := repo.ListByEntity(context.Background(), entityID, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, entries, 2)
	assert.Equal(t, "APPLY_STOCK_MOVEMENT", entries[0].Action)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMovementRepositorySumByProduct(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMovementRepository(db)
	id := uuid.New()

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(quantity\), 0\) FROM "stock_movements" WHERE product_id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(37))

	sum, err := repo.SumByProduct(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(37), sum)
	assert.NoError(t, mock.ExpectationsWereMet())
}
