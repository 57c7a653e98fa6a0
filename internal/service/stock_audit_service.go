package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"erp-backend/internal/apperr"
	"erp-backend/internal/model"
	"erp-backend/internal/repository"
	ws "erp-backend/internal/websocket"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// DTOs
type CreateAuditRequest struct {
	AuditName string  `json:"audit_name" binding:"required"`
	AuditDate string  `json:"audit_date" binding:"required"`
	Notes     *string `json:"notes"`
}

type RecordCountRequest struct {
	ProductID      string  `json:"product_id" binding:"required"`
	ActualQuantity int     `json:"actual_quantity" binding:"min=0"`
	Notes          *string `json:"notes"`
}

type CompleteAuditRequest struct {
	ApplyAdjustments bool `json:"apply_adjustments"`
}

type AuditResponse struct {
	ID          string  `json:"id"`
	AuditName   string  `json:"audit_name"`
	AuditDate   string  `json:"audit_date"`
	Status      string  `json:"status"`
	ConductedBy *string `json:"conducted_by,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

type AuditItemResponse struct {
	ID               string     `json:"id"`
	ProductID        string     `json:"product_id"`
	ProductSKU       string     `json:"product_sku,omitempty"`
	ProductName      string     `json:"product_name,omitempty"`
	ExpectedQuantity int        `json:"expected_quantity"`
	ActualQuantity   *int       `json:"actual_quantity,omitempty"`
	Variance         *int       `json:"variance,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
	AuditedAt        *time.Time `json:"audited_at,omitempty"`
}

// AuditSummary reports the outcome of a completed audit
type AuditSummary struct {
	AuditID            string `json:"audit_id"`
	TotalItems         int    `json:"total_items"`
	ItemsWithVariance  int    `json:"items_with_variance"`
	TotalVariance      int    `json:"total_variance"`
	AdjustmentsApplied int    `json:"adjustments_applied"`
}

type StockAuditService interface {
	CreateAudit(ctx context.Context, userID string, req CreateAuditRequest) (AuditResponse, error)
	// StartAudit freezes the expected quantities: one item per active product,
	// snapshotted inside a single transaction.
	StartAudit(ctx context.Context, userID string, id string) (AuditResponse, error)
	// RecordCount stores a physical count. Recounting a product overwrites the
	// previous value; the last count wins.
	RecordCount(ctx context.Context, userID string, id string, req RecordCountRequest) (AuditItemResponse, error)
	// CompleteAudit closes the audit and, when requested, writes one ledger
	// adjustment per non-zero variance in the same transaction.
	CompleteAudit(ctx context.Context, userID string, id string, req CompleteAuditRequest) (AuditSummary, error)
	// CancelAudit abandons the audit and discards its snapshot items.
	CancelAudit(ctx context.Context, userID string, id string) (AuditResponse, error)
	// DeleteAudit hard-deletes an audit; an in-progress one needs force.
	DeleteAudit(ctx context.Context, userID string, id string, force bool) error
	GetAudit(ctx context.Context, id string) (AuditResponse, error)
	ListAudits(ctx context.Context, status string, page, limit int) ([]AuditResponse, int64, error)
	ListAuditItems(ctx context.Context, id string, varianceOnly bool, page, limit int) ([]AuditItemResponse, int64, error)
}

type stockAuditService struct {
	auditRepo    repository.StockAuditRepository
	productRepo  repository.ProductRepository
	activityRepo repository.ActivityRepository
	stockSvc     StockService
	txManager    repository.TransactionManager
	hub          *ws.Hub
}

func NewStockAuditService(
	auditRepo repository.StockAuditRepository,
	productRepo repository.ProductRepository,
	activityRepo repository.ActivityRepository,
	stockSvc StockService,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) StockAuditService {
	return &stockAuditService{
		auditRepo:    auditRepo,
		productRepo:  productRepo,
		activityRepo: activityRepo,
		stockSvc:     stockSvc,
		txManager:    txManager,
		hub:          hub,
	}
}

func (s *stockAuditService) CreateAudit(ctx context.Context, userID string, req CreateAuditRequest) (AuditResponse, error) {
	if strings.TrimSpace(req.AuditName) == "" {
		return AuditResponse{}, apperr.Validationf("audit name must not be blank")
	}
	auditDate, err := time.Parse(poDateLayout, req.AuditDate)
	if err != nil {
		return AuditResponse{}, apperr.Validationf("invalid audit date %q, want YYYY-MM-DD", req.AuditDate)
	}

	var uid *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		uid = &parsed
	}

	audit := model.StockAudit{
		AuditName:   req.AuditName,
		AuditDate:   auditDate,
		Status:      model.AuditPending,
		ConductedBy: uid,
		Notes:       req.Notes,
	}
	if err := s.auditRepo.Create(ctx, &audit); err != nil {
		return AuditResponse{}, apperr.Persistence(err, "failed to create stock audit")
	}

	return toAuditResponse(&audit), nil
}

func (s *stockAuditService) StartAudit(ctx context.Context, userID string, id string) (AuditResponse, error) {
	auditID, err := uuid.Parse(id)
	if err != nil {
		return AuditResponse{}, apperr.Validationf("invalid audit id: %s", id)
	}

	var audit *model.StockAudit
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		audit, err = s.lockAudit(txCtx, auditID)
		if err != nil {
			return err
		}
		if audit.Status != model.AuditPending {
			return apperr.InvalidTransition("stock audit", audit.Status, model.AuditInProgress)
		}

		products, err := s.productRepo.ListActive(txCtx)
		if err != nil {
			return apperr.Persistence(err, "failed to snapshot products")
		}
		if len(products) == 0 {
			return apperr.BusinessRulef("no active products to audit")
		}

		items := make([]model.StockAuditItem, 0, len(products))
		for i := range products {
			items = append(items, model.StockAuditItem{
				AuditID:          audit.ID,
				ProductID:        products[i].ID,
				ExpectedQuantity: products[i].CurrentStock,
			})
		}
		if err := s.auditRepo.CreateItems(txCtx, items); err != nil {
			return apperr.Persistence(err, "failed to create audit items")
		}

		audit.Status = model.AuditInProgress
		if err := s.auditRepo.Save(txCtx, audit); err != nil {
			return apperr.Persistence(err, "failed to start stock audit")
		}
		return nil
	})
	if err != nil {
		return AuditResponse{}, err
	}

	log.Info().Str("audit_id", id).Str("audit_name", audit.AuditName).Msg("stock audit started")

	return toAuditResponse(audit), nil
}

func (s *stockAuditService) RecordCount(ctx context.Context, userID string, id string, req RecordCountRequest) (AuditItemResponse, error) {
	auditID, err := uuid.Parse(id)
	if err != nil {
		return AuditItemResponse{}, apperr.Validationf("invalid audit id: %s", id)
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return AuditItemResponse{}, apperr.Validationf("invalid product id: %s", req.ProductID)
	}
	if req.ActualQuantity < 0 {
		return AuditItemResponse{}, apperr.Validationf("actual quantity must not be negative")
	}

	var item *model.StockAuditItem
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		audit, err := s.lockAudit(txCtx, auditID)
		if err != nil {
			return err
		}
		if audit.Status != model.AuditInProgress {
			return apperr.BusinessRulef("stock audit %s is %s, counts are only accepted while in progress", audit.AuditName, audit.Status)
		}

		item, err = s.auditRepo.FindItem(txCtx, auditID, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("product %s is not part of this audit", req.ProductID)
			}
			return apperr.Persistence(err, "failed to load audit item")
		}

		now := time.Now().UTC()
		actual := req.ActualQuantity
		variance := actual - item.ExpectedQuantity
		item.ActualQuantity = &actual
		item.Variance = &variance
		item.Notes = req.Notes
		item.AuditedAt = &now

		if err := s.auditRepo.SaveItem(txCtx, item); err != nil {
			return apperr.Persistence(err, "failed to save count")
		}
		return nil
	})
	if err != nil {
		return AuditItemResponse{}, err
	}

	return toAuditItemResponse(item), nil
}

func (s *stockAuditService) CompleteAudit(ctx context.Context, userID string, id string, req CompleteAuditRequest) (AuditSummary, error) {
	auditID, err := uuid.Parse(id)
	if err != nil {
		return AuditSummary{}, apperr.Validationf("invalid audit id: %s", id)
	}

	var uid *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		uid = &parsed
	}

	var summary AuditSummary
	var events []StockEventPayload
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		audit, err := s.lockAudit(txCtx, auditID)
		if err != nil {
			return err
		}
		if audit.Status != model.AuditInProgress {
			return apperr.InvalidTransition("stock audit", audit.Status, model.AuditCompleted)
		}

		uncounted, err := s.auditRepo.CountUncounted(txCtx, auditID)
		if err != nil {
			return apperr.Persistence(err, "failed to count remaining items")
		}
		if uncounted > 0 {
			return apperr.BusinessRulef("%d products are still uncounted", uncounted)
		}

		items, err := s.auditRepo.ListAllItems(txCtx, auditID)
		if err != nil {
			return apperr.Persistence(err, "failed to load audit items")
		}

		summary = AuditSummary{AuditID: audit.ID.String(), TotalItems: len(items)}
		refType := model.RefAuditAdjustment
		for i := range items {
			item := &items[i]
			if item.Variance == nil || *item.Variance == 0 {
				continue
			}
			summary.ItemsWithVariance++
			summary.TotalVariance += *item.Variance

			if !req.ApplyAdjustments {
				continue
			}

			// Shortfalls leave as Out, surpluses come in as In; either way the
			// balance lands on the counted quantity.
			movementType := model.MovementIn
			quantity := *item.Variance
			if quantity < 0 {
				movementType = model.MovementOut
				quantity = -quantity
			}

			refID := audit.ID
			notes := audit.AuditName
			movement, product, err := s.stockSvc.RecordMovement(txCtx, MovementRecord{
				ProductID:     item.ProductID,
				MovementType:  movementType,
				Quantity:      quantity,
				ReferenceType: &refType,
				ReferenceID:   &refID,
				Notes:         &notes,
				MovedBy:       uid,
			})
			if err != nil {
				return err
			}
			summary.AdjustmentsApplied++

			events = append(events, StockEventPayload{
				ProductID:    product.ID.String(),
				SKU:          product.SKU,
				MovementType: movement.MovementType,
				Quantity:     movement.Quantity,
				CurrentStock: product.CurrentStock,
				LowStock:     product.CurrentStock <= product.MinStockLevel,
			})
		}

		audit.Status = model.AuditCompleted
		if err := s.auditRepo.Save(txCtx, audit); err != nil {
			return apperr.Persistence(err, "failed to complete stock audit")
		}

		details, _ := json.Marshal(summary)
		entry := &model.ActivityLog{
			ActorID:    uid,
			Action:     model.ActionCompleteAudit,
			EntityID:   audit.ID.String(),
			EntityName: audit.AuditName,
			Details:    string(details),
		}
		if err := s.activityRepo.Log(txCtx, entry); err != nil {
			return apperr.Persistence(err, "failed to write activity log")
		}
		return nil
	})
	if err != nil {
		return AuditSummary{}, err
	}

	for _, event := range events {
		s.hub.Publish("stock.updated", event)
	}

	log.Info().
		Str("audit_id", id).
		Int("items_with_variance", summary.ItemsWithVariance).
		Int("adjustments_applied", summary.AdjustmentsApplied).
		Msg("stock audit completed")

	return summary, nil
}

func (s *stockAuditService) CancelAudit(ctx context.Context, userID string, id string) (AuditResponse, error) {
	auditID, err := uuid.Parse(id)
	if err != nil {
		return AuditResponse{}, apperr.Validationf("invalid audit id: %s", id)
	}

	var uid *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		uid = &parsed
	}

	var audit *model.StockAudit
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		audit, err = s.lockAudit(txCtx, auditID)
		if err != nil {
			return err
		}
		if audit.Status != model.AuditPending && audit.Status != model.AuditInProgress {
			return apperr.InvalidTransition("stock audit", audit.Status, model.AuditCancelled)
		}

		// Cancelling discards the snapshot entirely
		if err := s.auditRepo.DeleteItems(txCtx, auditID); err != nil {
			return apperr.Persistence(err, "failed to delete audit items")
		}

		audit.Status = model.AuditCancelled
		if err := s.auditRepo.Save(txCtx, audit); err != nil {
			return apperr.Persistence(err, "failed to cancel stock audit")
		}

		entry := &model.ActivityLog{
			ActorID:    uid,
			Action:     model.ActionCancelAudit,
			EntityID:   audit.ID.String(),
			EntityName: audit.AuditName,
			Details:    `{"cancelled": true}`,
		}
		if err := s.activityRepo.Log(txCtx, entry); err != nil {
			return apperr.Persistence(err, "failed to write activity log")
		}
		return nil
	})
	if err != nil {
		return AuditResponse{}, err
	}

	return toAuditResponse(audit), nil
}

func (s *stockAuditService) DeleteAudit(ctx context.Context, userID string, id string, force bool) error {
	auditID, err := uuid.Parse(id)
	if err != nil {
		return apperr.Validationf("invalid audit id: %s", id)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		audit, err := s.lockAudit(txCtx, auditID)
		if err != nil {
			return err
		}
		if audit.Status == model.AuditInProgress && !force {
			return apperr.BusinessRulef("audit %s is in progress; cancel it or delete with force", audit.AuditName)
		}

		if err := s.auditRepo.DeleteItems(txCtx, auditID); err != nil {
			return apperr.Persistence(err, "failed to delete audit items")
		}
		if err := s.auditRepo.Delete(txCtx, auditID); err != nil {
			return apperr.Persistence(err, "failed to delete stock audit")
		}
		return nil
	})
}

func (s *stockAuditService) GetAudit(ctx context.Context, id string) (AuditResponse, error) {
	auditID, err := uuid.Parse(id)
	if err != nil {
		return AuditResponse{}, apperr.Validationf("invalid audit id: %s", id)
	}

	audit, err := s.auditRepo.FindByID(ctx, auditID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AuditResponse{}, apperr.NotFoundf("stock audit %s not found", id)
		}
		return AuditResponse{}, apperr.Persistence(err, "failed to load stock audit")
	}

	return toAuditResponse(audit), nil
}

func (s *stockAuditService) ListAudits(ctx context.Context, status string, page, limit int) ([]AuditResponse, int64, error) {
	audits, total, err := s.auditRepo.List(ctx, status, page, limit)
	if err != nil {
		return nil, 0, apperr.Persistence(err, "failed to list stock audits")
	}

	res := make([]AuditResponse, 0, len(audits))
	for i := range audits {
		res = append(res, toAuditResponse(&audits[i]))
	}
	return res, total, nil
}

func (s *stockAuditService) ListAuditItems(ctx context.Context, id string, varianceOnly bool, page, limit int) ([]AuditItemResponse, int64, error) {
	auditID, err := uuid.Parse(id)
	if err != nil {
		return nil, 0, apperr.Validationf("invalid audit id: %s", id)
	}

	if _, err := s.auditRepo.FindByID(ctx, auditID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, apperr.NotFoundf("stock audit %s not found", id)
		}
		return nil, 0, apperr.Persistence(err, "failed to load stock audit")
	}

	items, total, err := s.auditRepo.ListItems(ctx, auditID, varianceOnly, page, limit)
	if err != nil {
		return nil, 0, apperr.Persistence(err, "failed to list audit items")
	}

	res := make([]AuditItemResponse, 0, len(items))
	for i := range items {
		res = append(res, toAuditItemResponse(&items[i]))
	}
	return res, total, nil
}

func (s *stockAuditService) lockAudit(txCtx context.Context, auditID uuid.UUID) (*model.StockAudit, error) {
	audit, err := s.auditRepo.FindByIDForUpdate(txCtx, auditID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("stock audit %s not found", auditID)
		}
		return nil, apperr.Persistence(err, "failed to lock stock audit")
	}
	return audit, nil
}

func toAuditResponse(a *model.StockAudit) AuditResponse {
	res := AuditResponse{
		ID:        a.ID.String(),
		AuditName: a.AuditName,
		AuditDate: a.AuditDate.Format(poDateLayout),
		Status:    a.Status,
		Notes:     a.Notes,
	}
	if a.ConductedBy != nil {
		by := a.ConductedBy.String()
		res.ConductedBy = &by
	}
	return res
}

func toAuditItemResponse(item *model.StockAuditItem) AuditItemResponse {
	res := AuditItemResponse{
		ID:               item.ID.String(),
		ProductID:        item.ProductID.String(),
		ExpectedQuantity: item.ExpectedQuantity,
		ActualQuantity:   item.ActualQuantity,
		Variance:         item.Variance,
		Notes:            item.Notes,
		AuditedAt:        item.AuditedAt,
	}
	if item.Product != nil {
		res.ProductSKU = item.Product.SKU
		res.ProductName = item.Product.Name
	}
	return res
}
