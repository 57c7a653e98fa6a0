package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"erp-backend/internal/apperr"
	"erp-backend/internal/model"
	"erp-backend/internal/repository"
	ws "erp-backend/internal/websocket"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const poDateLayout = "2006-01-02"

// DTOs
type POItemRequest struct {
	ProductID string  `json:"product_id" binding:"required"`
	Quantity  int     `json:"quantity" binding:"required,gt=0"`
	UnitCost  float64 `json:"unit_cost" binding:"min=0"`
}

type CreatePORequest struct {
	SupplierID   string          `json:"supplier_id" binding:"required"`
	OrderDate    string          `json:"order_date" binding:"required"`
	ExpectedDate *string         `json:"expected_date"`
	Notes        *string         `json:"notes"`
	Items        []POItemRequest `json:"items" binding:"required,min=1,dive"`
}

type ReceiveLine struct {
	ItemID   string `json:"item_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

type ReceiveItemsRequest struct {
	Items []ReceiveLine `json:"items" binding:"required,min=1,dive"`
}

type POItemResponse struct {
	ID               string `json:"id"`
	ProductID        string `json:"product_id"`
	ProductSKU       string `json:"product_sku,omitempty"`
	ProductName      string `json:"product_name,omitempty"`
	Quantity         int    `json:"quantity"`
	UnitCost         string `json:"unit_cost"`
	TotalCost        string `json:"total_cost"`
	ReceivedQuantity int    `json:"received_quantity"`
	Status           string `json:"status"`
}

type POResponse struct {
	ID           string           `json:"id"`
	PONumber     string           `json:"po_number"`
	SupplierID   string           `json:"supplier_id"`
	SupplierName string           `json:"supplier_name,omitempty"`
	OrderDate    string           `json:"order_date"`
	ExpectedDate *string          `json:"expected_date,omitempty"`
	Status       string           `json:"status"`
	TotalAmount  string           `json:"total_amount"`
	Notes        *string          `json:"notes,omitempty"`
	ApprovedBy   *string          `json:"approved_by,omitempty"`
	ApprovedAt   *time.Time       `json:"approved_at,omitempty"`
	Items        []POItemResponse `json:"items,omitempty"`
}

type POListQuery struct {
	Status     string
	SupplierID string
	Search     string
}

type PurchaseOrderService interface {
	CreatePurchaseOrder(ctx context.Context, userID string, req CreatePORequest) (POResponse, error)
	ApprovePurchaseOrder(ctx context.Context, userID string, id string) (POResponse, error)
	SendPurchaseOrder(ctx context.Context, userID string, id string) (POResponse, error)
	// ReceiveItems books partial or full deliveries. Every received line lands
	// in the stock ledger within the same transaction.
	ReceiveItems(ctx context.Context, userID string, id string, req ReceiveItemsRequest) (POResponse, error)
	CancelPurchaseOrder(ctx context.Context, userID string, id string) (POResponse, error)
	GetPurchaseOrder(ctx context.Context, id string) (POResponse, error)
	ListPurchaseOrders(ctx context.Context, q POListQuery, page, limit int) ([]POResponse, int64, error)
}

type purchaseOrderService struct {
	poRepo       repository.PurchaseOrderRepository
	supplierRepo repository.SupplierRepository
	productRepo  repository.ProductRepository
	activityRepo repository.ActivityRepository
	stockSvc     StockService
	txManager    repository.TransactionManager
	hub          *ws.Hub
}

func NewPurchaseOrderService(
	poRepo repository.PurchaseOrderRepository,
	supplierRepo repository.SupplierRepository,
	productRepo repository.ProductRepository,
	activityRepo repository.ActivityRepository,
	stockSvc StockService,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) PurchaseOrderService {
	return &purchaseOrderService{
		poRepo:       poRepo,
		supplierRepo: supplierRepo,
		productRepo:  productRepo,
		activityRepo: activityRepo,
		stockSvc:     stockSvc,
		txManager:    txManager,
		hub:          hub,
	}
}

// validatePOItems rejects malformed lines before anything touches the database
func validatePOItems(items []POItemRequest) error {
	if len(items) == 0 {
		return apperr.Validationf("purchase order needs at least one item")
	}
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return apperr.Validationf("item quantity must be positive, got %d", item.Quantity)
		}
		if item.UnitCost < 0 {
			return apperr.Validationf("item unit cost must not be negative")
		}
		if seen[item.ProductID] {
			return apperr.Validationf("duplicate product %s in order items", item.ProductID)
		}
		seen[item.ProductID] = true
	}
	return nil
}

// deriveItemStatus maps the received count onto the line status
func deriveItemStatus(received, ordered int) string {
	switch {
	case received >= ordered:
		return model.ItemReceived
	case received > 0:
		return model.ItemPartial
	default:
		return model.ItemPending
	}
}

func (s *purchaseOrderService) CreatePurchaseOrder(ctx context.Context, userID string, req CreatePORequest) (POResponse, error) {
	if err := validatePOItems(req.Items); err != nil {
		return POResponse{}, err
	}

	supplierID, err := uuid.Parse(req.SupplierID)
	if err != nil {
		return POResponse{}, apperr.Validationf("invalid supplier id: %s", req.SupplierID)
	}

	orderDate, err := time.Parse(poDateLayout, req.OrderDate)
	if err != nil {
		return POResponse{}, apperr.Validationf("invalid order date %q, want YYYY-MM-DD", req.OrderDate)
	}
	var expectedDate *time.Time
	if req.ExpectedDate != nil {
		d, err := time.Parse(poDateLayout, *req.ExpectedDate)
		if err != nil {
			return POResponse{}, apperr.Validationf("invalid expected date %q, want YYYY-MM-DD", *req.ExpectedDate)
		}
		if d.Before(orderDate) {
			return POResponse{}, apperr.Validationf("expected date must not be before order date")
		}
		expectedDate = &d
	}

	supplier, err := s.supplierRepo.FindByID(ctx, supplierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return POResponse{}, apperr.NotFoundf("supplier %s not found", req.SupplierID)
		}
		return POResponse{}, apperr.Persistence(err, "failed to load supplier")
	}
	if supplier.Status != model.SupplierActive {
		return POResponse{}, apperr.BusinessRulef("supplier %s is inactive", supplier.SupplierCode)
	}

	var uid *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		uid = &parsed
	}

	po := model.PurchaseOrder{
		SupplierID:   supplierID,
		OrderDate:    orderDate,
		ExpectedDate: expectedDate,
		Status:       model.POPending,
		Notes:        req.Notes,
		CreatedBy:    uid,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		total := decimal.Zero
		type line struct {
			productID uuid.UUID
			quantity  int
			unitCost  decimal.Decimal
			totalCost decimal.Decimal
		}
		lines := make([]line, 0, len(req.Items))

		for _, item := range req.Items {
			productID, parseErr := uuid.Parse(item.ProductID)
			if parseErr != nil {
				return apperr.Validationf("invalid product id: %s", item.ProductID)
			}
			product, findErr := s.productRepo.FindByID(txCtx, productID)
			if findErr != nil {
				if errors.Is(findErr, gorm.ErrRecordNotFound) {
					return apperr.NotFoundf("product %s not found", item.ProductID)
				}
				return apperr.Persistence(findErr, "failed to load product")
			}
			if !product.IsActive {
				return apperr.BusinessRulef("product %s is inactive and cannot be ordered", product.SKU)
			}

			unitCost := decimal.NewFromFloat(item.UnitCost)
			totalCost := unitCost.Mul(decimal.NewFromInt(int64(item.Quantity)))
			total = total.Add(totalCost)
			lines = append(lines, line{productID: productID, quantity: item.Quantity, unitCost: unitCost, totalCost: totalCost})
		}

		// The prefix counter holds an advisory lock for the rest of this
		// transaction, so the drawn number is committed or discarded with it.
		prefix := "PO" + orderDate.Format("20060102") + "-"
		poNumber, numErr := s.poRepo.NextPONumber(txCtx, prefix)
		if numErr != nil {
			return apperr.Persistence(numErr, "failed to generate po number")
		}
		po.PONumber = poNumber
		po.TotalAmount = total

		if err := s.poRepo.Create(txCtx, &po); err != nil {
			return apperr.Persistence(err, "failed to create purchase order")
		}

		for _, l := range lines {
			item := &model.PurchaseItem{
				POID:      po.ID,
				ProductID: l.productID,
				Quantity:  l.quantity,
				UnitCost:  l.unitCost,
				TotalCost: l.totalCost,
				Status:    model.ItemPending,
			}
			if err := s.poRepo.CreateItem(txCtx, item); err != nil {
				return apperr.Persistence(err, "failed to create purchase item")
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"po_number":    po.PONumber,
			"supplier_id":  po.SupplierID.String(),
			"total_amount": po.TotalAmount.StringFixed(2),
			"item_count":   len(lines),
		})
		entry := &model.ActivityLog{
			ActorID:    uid,
			Action:     model.ActionCreatePO,
			EntityID:   po.ID.String(),
			EntityName: po.PONumber,
			Details:    string(details),
		}
		if err := s.activityRepo.Log(txCtx, entry); err != nil {
			return apperr.Persistence(err, "failed to write activity log")
		}
		return nil
	})
	if err != nil {
		return POResponse{}, err
	}

	log.Info().
		Str("po_number", po.PONumber).
		Str("supplier_id", po.SupplierID.String()).
		Str("total_amount", po.TotalAmount.StringFixed(2)).
		Msg("purchase order created")

	return s.GetPurchaseOrder(ctx, po.ID.String())
}

func (s *purchaseOrderService) ApprovePurchaseOrder(ctx context.Context, userID string, id string) (POResponse, error) {
	poID, err := uuid.Parse(id)
	if err != nil {
		return POResponse{}, apperr.Validationf("invalid purchase order id: %s", id)
	}

	var uid *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		uid = &parsed
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		po, err := s.lockPO(txCtx, poID)
		if err != nil {
			return err
		}
		if po.Status != model.POPending {
			return apperr.InvalidTransition("purchase order", po.Status, model.POApproved)
		}

		now := time.Now().UTC()
		po.Status = model.POApproved
		po.ApprovedBy = uid
		po.ApprovedAt = &now
		if err := s.poRepo.Save(txCtx, po); err != nil {
			return apperr.Persistence(err, "failed to approve purchase order")
		}

		return s.logPOAction(txCtx, uid, model.ActionApprovePO, po, nil)
	})
	if err != nil {
		return POResponse{}, err
	}

	log.Info().Str("po_id", id).Msg("purchase order approved")

	return s.GetPurchaseOrder(ctx, id)
}

func (s *purchaseOrderService) SendPurchaseOrder(ctx context.Context, userID string, id string) (POResponse, error) {
	poID, err := uuid.Parse(id)
	if err != nil {
		return POResponse{}, apperr.Validationf("invalid purchase order id: %s", id)
	}

	var uid *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		uid = &parsed
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		po, err := s.lockPO(txCtx, poID)
		if err != nil {
			return err
		}
		if po.Status != model.POApproved {
			return apperr.InvalidTransition("purchase order", po.Status, model.POSent)
		}

		po.Status = model.POSent
		if err := s.poRepo.Save(txCtx, po); err != nil {
			return apperr.Persistence(err, "failed to mark purchase order sent")
		}

		return s.logPOAction(txCtx, uid, model.ActionSendPO, po, nil)
	})
	if err != nil {
		return POResponse{}, err
	}

	log.Info().Str("po_id", id).Msg("purchase order sent to supplier")

	return s.GetPurchaseOrder(ctx, id)
}

func (s *purchaseOrderService) ReceiveItems(ctx context.Context, userID string, id string, req ReceiveItemsRequest) (POResponse, error) {
	poID, err := uuid.Parse(id)
	if err != nil {
		return POResponse{}, apperr.Validationf("invalid purchase order id: %s", id)
	}
	if len(req.Items) == 0 {
		return POResponse{}, apperr.Validationf("receipt needs at least one line")
	}
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return POResponse{}, apperr.Validationf("receipt quantity must be positive, got %d", line.Quantity)
		}
	}

	var uid *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		uid = &parsed
	}

	var events []StockEventPayload
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		po, err := s.lockPO(txCtx, poID)
		if err != nil {
			return err
		}
		if po.Status != model.POApproved && po.Status != model.POSent {
			return apperr.BusinessRulef("purchase order %s is %s and cannot receive items", po.PONumber, po.Status)
		}

		refType := model.RefPurchaseOrder
		received := make([]map[string]interface{}, 0, len(req.Items))

		for _, line := range req.Items {
			itemID, parseErr := uuid.Parse(line.ItemID)
			if parseErr != nil {
				return apperr.Validationf("invalid item id: %s", line.ItemID)
			}
			item, findErr := s.poRepo.FindItemByID(txCtx, itemID)
			if findErr != nil {
				if errors.Is(findErr, gorm.ErrRecordNotFound) {
					return apperr.NotFoundf("purchase item %s not found", line.ItemID)
				}
				return apperr.Persistence(findErr, "failed to load purchase item")
			}
			if item.POID != po.ID {
				return apperr.Validationf("item %s does not belong to purchase order %s", line.ItemID, po.PONumber)
			}

			remaining := item.Quantity - item.ReceivedQuantity
			if line.Quantity > remaining {
				return apperr.BusinessRulef("receipt of %d exceeds outstanding %d on item %s", line.Quantity, remaining, line.ItemID)
			}

			item.ReceivedQuantity += line.Quantity
			item.Status = deriveItemStatus(item.ReceivedQuantity, item.Quantity)
			if err := s.poRepo.SaveItem(txCtx, item); err != nil {
				return apperr.Persistence(err, "failed to update purchase item")
			}

			cost := item.UnitCost
			refID := po.ID
			movement, product, err := s.stockSvc.RecordMovement(txCtx, MovementRecord{
				ProductID:     item.ProductID,
				MovementType:  model.MovementIn,
				Quantity:      line.Quantity,
				UnitCost:      &cost,
				ReferenceType: &refType,
				ReferenceID:   &refID,
				MovedBy:       uid,
			})
			if err != nil {
				return err
			}

			events = append(events, StockEventPayload{
				ProductID:    product.ID.String(),
				SKU:          product.SKU,
				MovementType: movement.MovementType,
				Quantity:     movement.Quantity,
				CurrentStock: product.CurrentStock,
				LowStock:     product.CurrentStock <= product.MinStockLevel,
			})
			received = append(received, map[string]interface{}{
				"item_id":  item.ID.String(),
				"quantity": line.Quantity,
			})
		}

		outstanding, err := s.poRepo.CountUnreceivedItems(txCtx, po.ID)
		if err != nil {
			return apperr.Persistence(err, "failed to count outstanding items")
		}
		if outstanding == 0 {
			po.Status = model.POReceived
			if err := s.poRepo.Save(txCtx, po); err != nil {
				return apperr.Persistence(err, "failed to close purchase order")
			}
		}

		return s.logPOAction(txCtx, uid, model.ActionReceivePOItems, po, map[string]interface{}{"lines": received})
	})
	if err != nil {
		return POResponse{}, err
	}

	for _, event := range events {
		s.hub.Publish("stock.updated", event)
	}

	log.Info().Str("po_id", id).Int("lines", len(req.Items)).Msg("purchase items received")

	return s.GetPurchaseOrder(ctx, id)
}

func (s *purchaseOrderService) CancelPurchaseOrder(ctx context.Context, userID string, id string) (POResponse, error) {
	poID, err := uuid.Parse(id)
	if err != nil {
		return POResponse{}, apperr.Validationf("invalid purchase order id: %s", id)
	}

	var uid *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		uid = &parsed
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		po, err := s.lockPO(txCtx, poID)
		if err != nil {
			return err
		}
		if po.Status != model.POPending && po.Status != model.POApproved && po.Status != model.POSent {
			return apperr.InvalidTransition("purchase order", po.Status, model.POCancelled)
		}

		// A cancelled order must leave the ledger untouched, so any prior
		// receipt blocks cancellation.
		receipts, err := s.poRepo.CountReceipts(txCtx, po.ID)
		if err != nil {
			return apperr.Persistence(err, "failed to count receipts")
		}
		if receipts > 0 {
			return apperr.BusinessRulef("purchase order %s has received items and cannot be cancelled", po.PONumber)
		}

		po.Status = model.POCancelled
		if err := s.poRepo.Save(txCtx, po); err != nil {
			return apperr.Persistence(err, "failed to cancel purchase order")
		}

		return s.logPOAction(txCtx, uid, model.ActionCancelPO, po, nil)
	})
	if err != nil {
		return POResponse{}, err
	}

	log.Info().Str("po_id", id).Msg("purchase order cancelled")

	return s.GetPurchaseOrder(ctx, id)
}

// GetPurchaseOrder resolves either the row id or the human-facing PO number.
func (s *purchaseOrderService) GetPurchaseOrder(ctx context.Context, id string) (POResponse, error) {
	var po *model.PurchaseOrder
	var err error

	if poID, parseErr := uuid.Parse(id); parseErr == nil {
		po, err = s.poRepo.FindByID(ctx, poID)
	} else {
		po, err = s.poRepo.FindByNumber(ctx, id)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return POResponse{}, apperr.NotFoundf("purchase order %s not found", id)
		}
		return POResponse{}, apperr.Persistence(err, "failed to load purchase order")
	}

	return toPOResponse(po), nil
}

func (s *purchaseOrderService) ListPurchaseOrders(ctx context.Context, q POListQuery, page, limit int) ([]POResponse, int64, error) {
	filter := repository.POFilter{Status: q.Status, Search: q.Search}
	if q.SupplierID != "" {
		supplierID, err := uuid.Parse(q.SupplierID)
		if err != nil {
			return nil, 0, apperr.Validationf("invalid supplier id: %s", q.SupplierID)
		}
		filter.SupplierID = &supplierID
	}

	orders, total, err := s.poRepo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, apperr.Persistence(err, "failed to list purchase orders")
	}

	res := make([]POResponse, 0, len(orders))
	for i := range orders {
		res = append(res, toPOResponse(&orders[i]))
	}
	return res, total, nil
}

func (s *purchaseOrderService) lockPO(txCtx context.Context, poID uuid.UUID) (*model.PurchaseOrder, error) {
	po, err := s.poRepo.FindByIDForUpdate(txCtx, poID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("purchase order %s not found", poID)
		}
		return nil, apperr.Persistence(err, "failed to lock purchase order")
	}
	return po, nil
}

func (s *purchaseOrderService) logPOAction(txCtx context.Context, uid *uuid.UUID, action string, po *model.PurchaseOrder, extra map[string]interface{}) error {
	payload := map[string]interface{}{
		"po_number": po.PONumber,
		"status":    po.Status,
	}
	for k, v := range extra {
		payload[k] = v
	}
	details, _ := json.Marshal(payload)

	entry := &model.ActivityLog{
		ActorID:    uid,
		Action:     action,
		EntityID:   po.ID.String(),
		EntityName: po.PONumber,
		Details:    string(details),
	}
	if err := s.activityRepo.Log(txCtx, entry); err != nil {
		return apperr.Persistence(err, "failed to write activity log")
	}
	return nil
}

func toPOResponse(po *model.PurchaseOrder) POResponse {
	res := POResponse{
		ID:          po.ID.String(),
		PONumber:    po.PONumber,
		SupplierID:  po.SupplierID.String(),
		OrderDate:   po.OrderDate.Format(poDateLayout),
		Status:      po.Status,
		TotalAmount: po.TotalAmount.StringFixed(2),
		Notes:       po.Notes,
		ApprovedAt:  po.ApprovedAt,
	}
	if po.Supplier != nil {
		res.SupplierName = po.Supplier.Name
	}
	if po.ExpectedDate != nil {
		d := po.ExpectedDate.Format(poDateLayout)
		res.ExpectedDate = &d
	}
	if po.ApprovedBy != nil {
		by := po.ApprovedBy.String()
		res.ApprovedBy = &by
	}
	for i := range po.Items {
		item := &po.Items[i]
		itemRes := POItemResponse{
			ID:               item.ID.String(),
			ProductID:        item.ProductID.String(),
			Quantity:         item.Quantity,
			UnitCost:         item.UnitCost.StringFixed(2),
			TotalCost:        item.TotalCost.StringFixed(2),
			ReceivedQuantity: item.ReceivedQuantity,
			Status:           item.Status,
		}
		if item.Product != nil {
			itemRes.ProductSKU = item.Product.SKU
			itemRes.ProductName = item.Product.Name
		}
		res.Items = append(res.Items, itemRes)
	}
	return res
}
