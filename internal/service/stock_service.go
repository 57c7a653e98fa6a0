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

// DTOs
type ApplyMovementRequest struct {
	ProductID    string   `json:"product_id" binding:"required"`
	MovementType string   `json:"movement_type" binding:"required,oneof=in out adjustment"`
	Quantity     int      `json:"quantity" binding:"required"`
	UnitCost     *float64 `json:"unit_cost"`
	Notes        *string  `json:"notes"`
}

type MovementResponse struct {
	ID            string    `json:"id"`
	ProductID     string    `json:"product_id"`
	MovementType  string    `json:"movement_type"`
	Quantity      int       `json:"quantity"`
	UnitCost      *string   `json:"unit_cost,omitempty"`
	ReferenceType *string   `json:"reference_type,omitempty"`
	ReferenceID   *string   `json:"reference_id,omitempty"`
	Notes         *string   `json:"notes,omitempty"`
	MovedBy       *string   `json:"moved_by,omitempty"`
	MovementDate  time.Time `json:"movement_date"`
}

type StockBalanceResponse struct {
	ProductID     string `json:"product_id"`
	SKU           string `json:"sku"`
	Name          string `json:"name"`
	CurrentStock  int    `json:"current_stock"`
	MinStockLevel int    `json:"min_stock_level"`
	LowStock      bool   `json:"low_stock"`
}

// MovementRecord is the internal ledger entry other services pass to
// RecordMovement from inside their own transactions.
type MovementRecord struct {
	ProductID     uuid.UUID
	MovementType  string
	Quantity      int // in/out take a positive count; adjustment takes a signed delta
	UnitCost      *decimal.Decimal
	ReferenceType *string
	ReferenceID   *uuid.UUID
	Notes         *string
	MovedBy       *uuid.UUID
}

// StockEventPayload is broadcast over the hub after a committed balance change
type StockEventPayload struct {
	ProductID    string `json:"product_id"`
	SKU          string `json:"sku"`
	MovementType string `json:"movement_type"`
	Quantity     int    `json:"quantity"`
	CurrentStock int    `json:"current_stock"`
	LowStock     bool   `json:"low_stock"`
}

type StockService interface {
	ApplyMovement(ctx context.Context, userID string, req ApplyMovementRequest) (MovementResponse, error)
	// RecordMovement appends a ledger row and updates the balance inside the
	// caller's open transaction. All stock writes in the system funnel here.
	RecordMovement(txCtx context.Context, rec MovementRecord) (*model.StockMovement, *model.Product, error)
	GetBalance(ctx context.Context, productID string) (StockBalanceResponse, error)
	ListMovements(ctx context.Context, productID string, page, limit int) ([]MovementResponse, int64, error)
	LowStockProducts(ctx context.Context) ([]StockBalanceResponse, error)
}

type stockService struct {
	productRepo  repository.ProductRepository
	movementRepo repository.MovementRepository
	activityRepo repository.ActivityRepository
	txManager    repository.TransactionManager
	hub          *ws.Hub
}

func NewStockService(
	productRepo repository.ProductRepository,
	movementRepo repository.MovementRepository,
	activityRepo repository.ActivityRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) StockService {
	return &stockService{
		productRepo:  productRepo,
		movementRepo: movementRepo,
		activityRepo: activityRepo,
		txManager:    txManager,
		hub:          hub,
	}
}

// signedDelta normalizes the request quantity into the signed delta stored in
// the ledger. Returns a validation error for quantities the type disallows.
func signedDelta(movementType string, quantity int) (int, error) {
	switch movementType {
	case model.MovementIn:
		if quantity <= 0 {
			return 0, apperr.Validationf("inbound movement quantity must be positive, got %d", quantity)
		}
		return quantity, nil
	case model.MovementOut:
		if quantity <= 0 {
			return 0, apperr.Validationf("outbound movement quantity must be positive, got %d", quantity)
		}
		return -quantity, nil
	case model.MovementAdjustment:
		if quantity == 0 {
			return 0, apperr.Validationf("adjustment delta must be non-zero")
		}
		return quantity, nil
	default:
		return 0, apperr.Validationf("unknown movement type %q", movementType)
	}
}

func (s *stockService) RecordMovement(txCtx context.Context, rec MovementRecord) (*model.StockMovement, *model.Product, error) {
	delta, err := signedDelta(rec.MovementType, rec.Quantity)
	if err != nil {
		return nil, nil, err
	}

	product, err := s.productRepo.FindByIDForUpdate(txCtx, rec.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.NotFoundf("product %s not found", rec.ProductID)
		}
		return nil, nil, apperr.Persistence(err, "failed to lock product")
	}

	newStock := product.CurrentStock + delta
	if newStock < 0 {
		return nil, nil, apperr.InsufficientStock(product.Name, product.CurrentStock, -delta)
	}

	movement := &model.StockMovement{
		ProductID:     product.ID,
		MovementType:  rec.MovementType,
		Quantity:      delta,
		UnitCost:      rec.UnitCost,
		ReferenceType: rec.ReferenceType,
		ReferenceID:   rec.ReferenceID,
		Notes:         rec.Notes,
		MovedBy:       rec.MovedBy,
		MovementDate:  time.Now().UTC(),
	}
	if err := s.movementRepo.Create(txCtx, movement); err != nil {
		return nil, nil, apperr.Persistence(err, "failed to append stock movement")
	}

	if err := s.productRepo.UpdateStock(txCtx, product.ID, newStock); err != nil {
		return nil, nil, apperr.Persistence(err, "failed to update product stock")
	}
	product.CurrentStock = newStock

	return movement, product, nil
}

func (s *stockService) ApplyMovement(ctx context.Context, userID string, req ApplyMovementRequest) (MovementResponse, error) {
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return MovementResponse{}, apperr.Validationf("invalid product id: %s", req.ProductID)
	}

	var unitCost *decimal.Decimal
	if req.UnitCost != nil {
		if *req.UnitCost < 0 {
			return MovementResponse{}, apperr.Validationf("unit cost must not be negative")
		}
		c := decimal.NewFromFloat(*req.UnitCost)
		unitCost = &c
	}

	var uid *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		uid = &parsed
	}

	var movement *model.StockMovement
	var product *model.Product
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		movement, product, err = s.RecordMovement(txCtx, MovementRecord{
			ProductID:    productID,
			MovementType: req.MovementType,
			Quantity:     req.Quantity,
			UnitCost:     unitCost,
			Notes:        req.Notes,
			MovedBy:      uid,
		})
		if err != nil {
			return err
		}

		details, _ := json.Marshal(map[string]interface{}{
			"movement_type": req.MovementType,
			"quantity":      req.Quantity,
			"new_stock":     product.CurrentStock,
		})
		entry := &model.ActivityLog{
			ActorID:    uid,
			Action:     model.ActionApplyMovement,
			EntityID:   product.ID.String(),
			EntityName: product.Name,
			Details:    string(details),
		}
		if err := s.activityRepo.Log(txCtx, entry); err != nil {
			return apperr.Persistence(err, "failed to write activity log")
		}
		return nil
	})
	if err != nil {
		return MovementResponse{}, err
	}

	log.Info().
		Str("product_id", product.ID.String()).
		Str("movement_type", movement.MovementType).
		Int("quantity", movement.Quantity).
		Int("current_stock", product.CurrentStock).
		Msg("stock movement applied")

	s.hub.Publish("stock.updated", StockEventPayload{
		ProductID:    product.ID.String(),
		SKU:          product.SKU,
		MovementType: movement.MovementType,
		Quantity:     movement.Quantity,
		CurrentStock: product.CurrentStock,
		LowStock:     product.CurrentStock <= product.MinStockLevel,
	})

	return toMovementResponse(movement), nil
}

func (s *stockService) GetBalance(ctx context.Context, productID string) (StockBalanceResponse, error) {
	id, err := uuid.Parse(productID)
	if err != nil {
		return StockBalanceResponse{}, apperr.Validationf("invalid product id: %s", productID)
	}

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return StockBalanceResponse{}, apperr.NotFoundf("product %s not found", productID)
		}
		return StockBalanceResponse{}, apperr.Persistence(err, "failed to load product")
	}

	return toBalanceResponse(product), nil
}

func (s *stockService) ListMovements(ctx context.Context, productID string, page, limit int) ([]MovementResponse, int64, error) {
	id, err := uuid.Parse(productID)
	if err != nil {
		return nil, 0, apperr.Validationf("invalid product id: %s", productID)
	}

	if _, err := s.productRepo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, apperr.NotFoundf("product %s not found", productID)
		}
		return nil, 0, apperr.Persistence(err, "failed to load product")
	}

	movements, total, err := s.movementRepo.ListByProduct(ctx, id, page, limit)
	if err != nil {
		return nil, 0, apperr.Persistence(err, "failed to list movements")
	}

	res := make([]MovementResponse, 0, len(movements))
	for i := range movements {
		res = append(res, toMovementResponse(&movements[i]))
	}
	return res, total, nil
}

func (s *stockService) LowStockProducts(ctx context.Context) ([]StockBalanceResponse, error) {
	products, err := s.productRepo.ListLowStock(ctx)
	if err != nil {
		return nil, apperr.Persistence(err, "failed to list low-stock products")
	}

	res := make([]StockBalanceResponse, 0, len(products))
	for i := range products {
		res = append(res, toBalanceResponse(&products[i]))
	}
	return res, nil
}

func toMovementResponse(m *model.StockMovement) MovementResponse {
	res := MovementResponse{
		ID:            m.ID.String(),
		ProductID:     m.ProductID.String(),
		MovementType:  m.MovementType,
		Quantity:      m.Quantity,
		ReferenceType: m.ReferenceType,
		Notes:         m.Notes,
		MovementDate:  m.MovementDate,
	}
	if m.UnitCost != nil {
		cost := m.UnitCost.StringFixed(2)
		res.UnitCost = &cost
	}
	if m.ReferenceID != nil {
		ref := m.ReferenceID.String()
		res.ReferenceID = &ref
	}
	if m.MovedBy != nil {
		by := m.MovedBy.String()
		res.MovedBy = &by
	}
	return res
}

func toBalanceResponse(p *model.Product) StockBalanceResponse {
	return StockBalanceResponse{
		ProductID:     p.ID.String(),
		SKU:           p.SKU,
		Name:          p.Name,
		CurrentStock:  p.CurrentStock,
		MinStockLevel: p.MinStockLevel,
		LowStock:      p.CurrentStock <= p.MinStockLevel,
	}
}
