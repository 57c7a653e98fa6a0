package service

import (
	"context"
	"testing"

	"erp-backend/internal/apperr"
	"erp-backend/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestValidatePOItems(t *testing.T) {
	valid := POItemRequest{ProductID: "a", Quantity: 5, UnitCost: 2.50}

	assert.NoError(t, validatePOItems([]POItemRequest{valid}))

	err := validatePOItems(nil)
	assert.True(t, apperr.IsValidation(err))

	err = validatePOItems([]POItemRequest{{ProductID: "a", Quantity: 0, UnitCost: 1}})
	assert.True(t, apperr.IsValidation(err))

	err = validatePOItems([]POItemRequest{{ProductID: "a", Quantity: 1, UnitCost: -0.01}})
	assert.True(t, apperr.IsValidation(err))

	err = validatePOItems([]POItemRequest{valid, valid})
	assert.True(t, apperr.IsValidation(err))
	assert.Contains(t, err.Error(), "duplicate")
}

func TestDeriveItemStatus(t *testing.T) {
	assert.Equal(t, model.ItemPending, deriveItemStatus(0, 10))
	assert.Equal(t, model.ItemPartial, deriveItemStatus(3, 10))
	assert.Equal(t, model.ItemReceived, deriveItemStatus(10, 10))
}

func TestCreatePurchaseOrderRejectsBadDates(t *testing.T) {
	s := &purchaseOrderService{}
	items := []POItemRequest{{ProductID: "a", Quantity: 1, UnitCost: 1}}
	supplierID := "0b9fba9f-8f36-4a0e-b6f1-222222222222"

	_, err := s.CreatePurchaseOrder(context.Background(), "", CreatePORequest{
		SupplierID: supplierID,
		OrderDate:  "26-08-2026",
		Items:      items,
	})
	assert.True(t, apperr.IsValidation(err))

	early := "2026-08-01"
	_, err = s.CreatePurchaseOrder(context.Background(), "", CreatePORequest{
		SupplierID:   supplierID,
		OrderDate:    "2026-08-26",
		ExpectedDate: &early,
		Items:        items,
	})
	assert.True(t, apperr.IsValidation(err))
	assert.Contains(t, err.Error(), "expected date")

	_, err = s.CreatePurchaseOrder(context.Background(), "", CreatePORequest{
		SupplierID: "nope",
		OrderDate:  "2026-08-26",
		Items:      items,
	})
	assert.True(t, apperr.IsValidation(err))
}

func TestReceiveItemsRejectsBadLines(t *testing.T) {
	s := &purchaseOrderService{}
	poID := "0b9fba9f-8f36-4a0e-b6f1-333333333333"

	_, err := s.ReceiveItems(context.Background(), "", poID, ReceiveItemsRequest{})
	assert.True(t, apperr.IsValidation(err))

	_, err = s.ReceiveItems(context.Background(), "", poID, ReceiveItemsRequest{
		Items: []ReceiveLine{{ItemID: "x", Quantity: 0}},
	})
	assert.True(t, apperr.IsValidation(err))
}
