package service_test

import (
	"context"
	"os"
	"testing"

	"erp-backend/internal/apperr"
	"erp-backend/internal/model"
	"erp-backend/internal/repository"
	"erp-backend/internal/service"
	ws "erp-backend/internal/websocket"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// The suite runs against a real PostgreSQL set through TEST_DATABASE_DSN,
// e.g. "host=localhost user=postgres password=postgres dbname=erp_test port=5432 sslmode=disable".
// Without it every test here is skipped.

type testEnv struct {
	db        *gorm.DB
	products  service.ProductService
	stock     service.StockService
	po        service.PurchaseOrderService
	audits    service.StockAuditService
	supplier  service.SupplierService
	activity  service.ActivityService
	movements repository.MovementRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set, skipping integration tests")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.Category{},
		&model.Product{},
		&model.StockMovement{},
		&model.Supplier{},
		&model.PurchaseOrder{},
		&model.PurchaseItem{},
		&model.StockAudit{},
		&model.StockAuditItem{},
		&model.ActivityLog{},
	))
	db.Exec("TRUNCATE categories, products, stock_movements, suppliers, purchase_orders, purchase_items, stock_audits, stock_audit_items, activity_logs CASCADE")

	txManager := repository.NewTransactionManager(db)
	productRepo := repository.NewProductRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	movementRepo := repository.NewMovementRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	poRepo := repository.NewPurchaseOrderRepository(db)
	auditRepo := repository.NewStockAuditRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	hub := ws.NewHub()

	stockSvc := service.NewStockService(productRepo, movementRepo, activityRepo, txManager, hub)
	return &testEnv{
		db:        db,
		stock:     stockSvc,
		products:  service.NewProductService(productRepo, categoryRepo, movementRepo, activityRepo, stockSvc, txManager),
		supplier:  service.NewSupplierService(supplierRepo),
		po:        service.NewPurchaseOrderService(poRepo, supplierRepo, productRepo, activityRepo, stockSvc, txManager, hub),
		audits:    service.NewStockAuditService(auditRepo, productRepo, activityRepo, stockSvc, txManager, hub),
		activity:  service.NewActivityService(activityRepo),
		movements: movementRepo,
	}
}

func (e *testEnv) createCategory(t *testing.T, name string) service.CategoryResponse {
	t.Helper()
	cat, err := e.products.CreateCategory(context.Background(), service.CreateCategoryRequest{Name: name})
	require.NoError(t, err)
	return cat
}

func (e *testEnv) createProduct(t *testing.T, sku string, categoryID string, initialStock int) service.ProductResponse {
	t.Helper()
	product, err := e.products.CreateProduct(context.Background(), "", service.CreateProductRequest{
		SKU:           sku,
		Name:          "Product " + sku,
		CategoryID:    categoryID,
		Price:         19.99,
		CostPrice:     12.50,
		InitialStock:  initialStock,
		MinStockLevel: 5,
		Unit:          "pcs",
	})
	require.NoError(t, err)
	return product
}

// replayBalance recomputes the balance by replaying the ledger oldest-first.
// The running sum of signed quantities must always land on the stored
// current stock.
func (e *testEnv) replayBalance(t *testing.T, productID string) int {
	t.Helper()
	id, err := uuid.Parse(productID)
	require.NoError(t, err)

	movements, err := e.movements.ListChronological(context.Background(), id)
	require.NoError(t, err)

	balance := 0
	for _, m := range movements {
		balance += m.Quantity
	}
	return balance
}

func (e *testEnv) currentStock(t *testing.T, productID string) int {
	t.Helper()
	balance, err := e.stock.GetBalance(context.Background(), productID)
	require.NoError(t, err)
	return balance.CurrentStock
}

func TestLedgerFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cat := env.createCategory(t, "Ledger Flow")
	product := env.createProduct(t, "LF-001", cat.ID, 10)

	t.Run("initial stock is booked through the ledger", func(t *testing.T) {
		assert.Equal(t, 10, env.currentStock(t, product.ID))
		assert.Equal(t, 10, env.replayBalance(t, product.ID))
	})

	t.Run("outbound movement reduces the balance", func(t *testing.T) {
		_, err := env.stock.ApplyMovement(ctx, "", service.ApplyMovementRequest{
			ProductID:    product.ID,
			MovementType: model.MovementOut,
			Quantity:     4,
		})
		require.NoError(t, err)
		assert.Equal(t, 6, env.currentStock(t, product.ID))
	})

	t.Run("adjustment applies a signed delta", func(t *testing.T) {
		_, err := env.stock.ApplyMovement(ctx, "", service.ApplyMovementRequest{
			ProductID:    product.ID,
			MovementType: model.MovementAdjustment,
			Quantity:     -2,
		})
		require.NoError(t, err)
		assert.Equal(t, 4, env.currentStock(t, product.ID))
	})

	t.Run("overdraw is rejected and leaves no trace", func(t *testing.T) {
		movementsBefore, _, err := env.stock.ListMovements(ctx, product.ID, 1, 100)
		require.NoError(t, err)

		_, err = env.stock.ApplyMovement(ctx, "", service.ApplyMovementRequest{
			ProductID:    product.ID,
			MovementType: model.MovementOut,
			Quantity:     100,
		})
		require.Error(t, err)
		assert.True(t, apperr.IsBusinessRule(err))

		movementsAfter, _, err := env.stock.ListMovements(ctx, product.ID, 1, 100)
		require.NoError(t, err)
		assert.Len(t, movementsAfter, len(movementsBefore))
		assert.Equal(t, 4, env.currentStock(t, product.ID))
	})

	t.Run("ledger replay matches the stored balance", func(t *testing.T) {
		assert.Equal(t, env.currentStock(t, product.ID), env.replayBalance(t, product.ID))
	})

	t.Run("mutations leave an activity trail", func(t *testing.T) {
		entries, total, err := env.activity.ListByEntity(ctx, product.ID, 1, 50)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, total, int64(3)) // create + two applied movements
		require.NotEmpty(t, entries)
		assert.Equal(t, model.ActionApplyMovement, entries[0].Action) // newest first
	})
}

func TestPurchaseOrderLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cat := env.createCategory(t, "Purchasing")
	productA := env.createProduct(t, "PO-A", cat.ID, 0)
	productB := env.createProduct(t, "PO-B", cat.ID, 0)

	sup, err := env.supplier.CreateSupplier(ctx, service.CreateSupplierRequest{
		SupplierCode: "SUP-001",
		Name:         "Acme Components",
		Email:        "orders@acme.test",
	})
	require.NoError(t, err)

	po, err := env.po.CreatePurchaseOrder(ctx, "", service.CreatePORequest{
		SupplierID: sup.ID,
		OrderDate:  "2026-08-26",
		Items: []service.POItemRequest{
			{ProductID: productA.ID, Quantity: 10, UnitCost: 2.50},
			{ProductID: productB.ID, Quantity: 4, UnitCost: 7.00},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, model.POPending, po.Status)
	assert.Equal(t, "53.00", po.TotalAmount)
	assert.Regexp(t, `^PO\d{8}-\d{4}$`, po.PONumber)

	t.Run("orders resolve by po number too", func(t *testing.T) {
		byNumber, err := env.po.GetPurchaseOrder(ctx, po.PONumber)
		require.NoError(t, err)
		assert.Equal(t, po.ID, byNumber.ID)
		assert.Equal(t, "Acme Components", byNumber.SupplierName)
	})

	t.Run("receiving before approval is rejected", func(t *testing.T) {
		_, err := env.po.ReceiveItems(ctx, "", po.ID, service.ReceiveItemsRequest{
			Items: []service.ReceiveLine{{ItemID: po.Items[0].ID, Quantity: 1}},
		})
		assert.True(t, apperr.IsBusinessRule(err))
	})

	po, err = env.po.ApprovePurchaseOrder(ctx, "", po.ID)
	require.NoError(t, err)
	assert.Equal(t, model.POApproved, po.Status)

	t.Run("double approval is rejected", func(t *testing.T) {
		_, err := env.po.ApprovePurchaseOrder(ctx, "", po.ID)
		assert.True(t, apperr.IsBusinessRule(err))
	})

	po, err = env.po.SendPurchaseOrder(ctx, "", po.ID)
	require.NoError(t, err)
	assert.Equal(t, model.POSent, po.Status)

	t.Run("partial receipt books stock and marks the line partial", func(t *testing.T) {
		po, err = env.po.ReceiveItems(ctx, "", po.ID, service.ReceiveItemsRequest{
			Items: []service.ReceiveLine{{ItemID: po.Items[0].ID, Quantity: 6}},
		})
		require.NoError(t, err)
		assert.Equal(t, model.POSent, po.Status)
		assert.Equal(t, 6, env.currentStock(t, productA.ID))

		var line service.POItemResponse
		for _, item := range po.Items {
			if item.ProductID == productA.ID {
				line = item
			}
		}
		assert.Equal(t, model.ItemPartial, line.Status)
		assert.Equal(t, 6, line.ReceivedQuantity)
	})

	t.Run("over-receipt is rejected", func(t *testing.T) {
		var itemA string
		for _, item := range po.Items {
			if item.ProductID == productA.ID {
				itemA = item.ID
			}
		}
		_, err := env.po.ReceiveItems(ctx, "", po.ID, service.ReceiveItemsRequest{
			Items: []service.ReceiveLine{{ItemID: itemA, Quantity: 5}}, // only 4 outstanding
		})
		assert.True(t, apperr.IsBusinessRule(err))
		assert.Equal(t, 6, env.currentStock(t, productA.ID))
	})

	t.Run("cancel after receipts is rejected", func(t *testing.T) {
		_, err := env.po.CancelPurchaseOrder(ctx, "", po.ID)
		assert.True(t, apperr.IsBusinessRule(err))
	})

	t.Run("full receipt closes the order", func(t *testing.T) {
		var itemA, itemB string
		for _, item := range po.Items {
			if item.ProductID == productA.ID {
				itemA = item.ID
			} else {
				itemB = item.ID
			}
		}
		po, err = env.po.ReceiveItems(ctx, "", po.ID, service.ReceiveItemsRequest{
			Items: []service.ReceiveLine{
				{ItemID: itemA, Quantity: 4},
				{ItemID: itemB, Quantity: 4},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, model.POReceived, po.Status)
		assert.Equal(t, 10, env.currentStock(t, productA.ID))
		assert.Equal(t, 4, env.currentStock(t, productB.ID))
	})

	t.Run("ledger replay matches after receipts", func(t *testing.T) {
		assert.Equal(t, env.currentStock(t, productA.ID), env.replayBalance(t, productA.ID))
		assert.Equal(t, env.currentStock(t, productB.ID), env.replayBalance(t, productB.ID))
	})

	t.Run("untouched order can be cancelled", func(t *testing.T) {
		other, err := env.po.CreatePurchaseOrder(ctx, "", service.CreatePORequest{
			SupplierID: sup.ID,
			OrderDate:  "2026-08-26",
			Items:      []service.POItemRequest{{ProductID: productA.ID, Quantity: 1, UnitCost: 1}},
		})
		require.NoError(t, err)

		cancelled, err := env.po.CancelPurchaseOrder(ctx, "", other.ID)
		require.NoError(t, err)
		assert.Equal(t, model.POCancelled, cancelled.Status)
	})

	t.Run("inactive supplier cannot take new orders", func(t *testing.T) {
		_, err := env.supplier.DeactivateSupplier(ctx, sup.ID)
		require.NoError(t, err)

		_, err = env.po.CreatePurchaseOrder(ctx, "", service.CreatePORequest{
			SupplierID: sup.ID,
			OrderDate:  "2026-08-26",
			Items:      []service.POItemRequest{{ProductID: productA.ID, Quantity: 1, UnitCost: 1}},
		})
		assert.True(t, apperr.IsBusinessRule(err))
	})
}

func TestStockAuditLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cat := env.createCategory(t, "Audits")
	productA := env.createProduct(t, "AU-A", cat.ID, 20)
	productB := env.createProduct(t, "AU-B", cat.ID, 8)

	audit, err := env.audits.CreateAudit(ctx, "", service.CreateAuditRequest{
		AuditName: "Quarterly count",
		AuditDate: "2026-08-26",
	})
	require.NoError(t, err)
	assert.Equal(t, model.AuditPending, audit.Status)

	t.Run("counts before start are rejected", func(t *testing.T) {
		_, err := env.audits.RecordCount(ctx, "", audit.ID, service.RecordCountRequest{
			ProductID:      productA.ID,
			ActualQuantity: 20,
		})
		assert.True(t, apperr.IsBusinessRule(err))
	})

	audit, err = env.audits.StartAudit(ctx, "", audit.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AuditInProgress, audit.Status)

	t.Run("snapshot covers every active product", func(t *testing.T) {
		items, total, err := env.audits.ListAuditItems(ctx, audit.ID, false, 1, 100)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		for _, item := range items {
			assert.Nil(t, item.ActualQuantity)
		}
	})

	t.Run("completion with uncounted items is rejected", func(t *testing.T) {
		_, err := env.audits.CompleteAudit(ctx, "", audit.ID, service.CompleteAuditRequest{})
		assert.True(t, apperr.IsBusinessRule(err))
	})

	t.Run("recount overwrites the previous value", func(t *testing.T) {
		_, err := env.audits.RecordCount(ctx, "", audit.ID, service.RecordCountRequest{
			ProductID:      productA.ID,
			ActualQuantity: 15,
		})
		require.NoError(t, err)

		item, err := env.audits.RecordCount(ctx, "", audit.ID, service.RecordCountRequest{
			ProductID:      productA.ID,
			ActualQuantity: 17,
		})
		require.NoError(t, err)
		require.NotNil(t, item.ActualQuantity)
		assert.Equal(t, 17, *item.ActualQuantity)
		require.NotNil(t, item.Variance)
		assert.Equal(t, -3, *item.Variance) // 17 counted vs 20 expected
	})

	_, err = env.audits.RecordCount(ctx, "", audit.ID, service.RecordCountRequest{
		ProductID:      productB.ID,
		ActualQuantity: 8,
	})
	require.NoError(t, err)

	t.Run("completion reconciles variances through the ledger", func(t *testing.T) {
		summary, err := env.audits.CompleteAudit(ctx, "", audit.ID, service.CompleteAuditRequest{ApplyAdjustments: true})
		require.NoError(t, err)
		assert.Equal(t, 2, summary.TotalItems)
		assert.Equal(t, 1, summary.ItemsWithVariance)
		assert.Equal(t, -3, summary.TotalVariance)
		assert.Equal(t, 1, summary.AdjustmentsApplied)

		assert.Equal(t, 17, env.currentStock(t, productA.ID))
		assert.Equal(t, 8, env.currentStock(t, productB.ID))
		assert.Equal(t, env.currentStock(t, productA.ID), env.replayBalance(t, productA.ID))
	})

	t.Run("in-progress audit needs force to delete", func(t *testing.T) {
		other, err := env.audits.CreateAudit(ctx, "", service.CreateAuditRequest{
			AuditName: "Spot check",
			AuditDate: "2026-08-27",
		})
		require.NoError(t, err)
		_, err = env.audits.StartAudit(ctx, "", other.ID)
		require.NoError(t, err)

		err = env.audits.DeleteAudit(ctx, "", other.ID, false)
		assert.True(t, apperr.IsBusinessRule(err))

		require.NoError(t, env.audits.DeleteAudit(ctx, "", other.ID, true))
		_, err = env.audits.GetAudit(ctx, other.ID)
		assert.True(t, apperr.IsNotFound(err))
	})
}

func TestConcurrentMovementsKeepLedgerConsistent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cat := env.createCategory(t, "Concurrency")
	product := env.createProduct(t, "CC-001", cat.ID, 100)

	const workers = 8
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			_, err := env.stock.ApplyMovement(ctx, "", service.ApplyMovementRequest{
				ProductID:    product.ID,
				MovementType: model.MovementOut,
				Quantity:     5,
			})
			errs <- err
		}()
	}
	for i := 0; i < workers; i++ {
		require.NoError(t, <-errs)
	}

	assert.Equal(t, 60, env.currentStock(t, product.ID))
	assert.Equal(t, 60, env.replayBalance(t, product.ID))
}

func TestProductDeleteGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cat := env.createCategory(t, "Deletion")
	product := env.createProduct(t, "DEL-001", cat.ID, 5)

	t.Run("delete with history is rejected without force", func(t *testing.T) {
		err := env.products.DeleteProduct(ctx, "", product.ID, false)
		assert.True(t, apperr.IsBusinessRule(err))
	})

	t.Run("category with products cannot be deleted", func(t *testing.T) {
		err := env.products.DeleteCategory(ctx, cat.ID)
		assert.True(t, apperr.IsBusinessRule(err))
	})

	t.Run("force delete removes the product and its ledger", func(t *testing.T) {
		require.NoError(t, env.products.DeleteProduct(ctx, "", product.ID, true))

		_, err := env.products.GetProduct(ctx, product.ID)
		assert.True(t, apperr.IsNotFound(err))

		var count int64
		env.db.Model(&model.StockMovement{}).Where("product_id = ?", product.ID).Count(&count)
		assert.Equal(t, int64(0), count)
	})

	t.Run("empty category can be renamed and deleted", func(t *testing.T) {
		renamed, err := env.products.UpdateCategory(ctx, cat.ID, service.CreateCategoryRequest{Name: "Archived"})
		require.NoError(t, err)
		assert.Equal(t, "Archived", renamed.Name)

		require.NoError(t, env.products.DeleteCategory(ctx, cat.ID))

		_, err = env.products.UpdateCategory(ctx, cat.ID, service.CreateCategoryRequest{Name: "Gone"})
		assert.True(t, apperr.IsNotFound(err))
	})
}
