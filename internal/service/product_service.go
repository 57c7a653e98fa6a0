package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"erp-backend/internal/apperr"
	"erp-backend/internal/model"
	"erp-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DTOs
type CreateProductRequest struct {
	SKU           string  `json:"sku" binding:"required"`
	Name          string  `json:"name" binding:"required"`
	Description   *string `json:"description"`
	CategoryID    string  `json:"category_id" binding:"required"`
	Price         float64 `json:"price" binding:"min=0"`
	CostPrice     float64 `json:"cost_price" binding:"min=0"`
	InitialStock  int     `json:"initial_stock"`
	MinStockLevel int     `json:"min_stock_level"`
	MaxStockLevel *int    `json:"max_stock_level"`
	Unit          string  `json:"unit" binding:"required"`
	Barcode       *string `json:"barcode"`
}

type UpdateProductRequest struct {
	SKU           string  `json:"sku" binding:"required"`
	Name          string  `json:"name" binding:"required"`
	Description   *string `json:"description"`
	CategoryID    string  `json:"category_id" binding:"required"`
	Price         float64 `json:"price" binding:"min=0"`
	CostPrice     float64 `json:"cost_price" binding:"min=0"`
	MinStockLevel int     `json:"min_stock_level"`
	MaxStockLevel *int    `json:"max_stock_level"`
	Unit          string  `json:"unit" binding:"required"`
	Barcode       *string `json:"barcode"`
	IsActive      *bool   `json:"is_active"`
}

type ProductResponse struct {
	ID            string  `json:"id"`
	SKU           string  `json:"sku"`
	Name          string  `json:"name"`
	Description   *string `json:"description,omitempty"`
	CategoryID    string  `json:"category_id"`
	CategoryName  string  `json:"category_name,omitempty"`
	Price         string  `json:"price"`
	CostPrice     string  `json:"cost_price"`
	CurrentStock  int     `json:"current_stock"`
	MinStockLevel int     `json:"min_stock_level"`
	MaxStockLevel *int    `json:"max_stock_level,omitempty"`
	Unit          string  `json:"unit"`
	Barcode       *string `json:"barcode,omitempty"`
	IsActive      bool    `json:"is_active"`
	LowStock      bool    `json:"low_stock"`
}

type ProductListQuery struct {
	CategoryID   string
	ActiveOnly   bool
	Search       string
	LowStockOnly bool
}

type CreateCategoryRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	ParentID    *string `json:"parent_id"`
}

type CategoryResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	ParentID    *string `json:"parent_id,omitempty"`
}

type ProductService interface {
	CreateProduct(ctx context.Context, userID string, req CreateProductRequest) (ProductResponse, error)
	UpdateProduct(ctx context.Context, userID string, id string, req UpdateProductRequest) (ProductResponse, error)
	// DeleteProduct refuses to remove a product carrying ledger history unless
	// force is set, in which case the history goes with it.
	DeleteProduct(ctx context.Context, userID string, id string, force bool) error
	GetProduct(ctx context.Context, id string) (ProductResponse, error)
	ListProducts(ctx context.Context, q ProductListQuery, page, limit int) ([]ProductResponse, int64, error)

	CreateCategory(ctx context.Context, req CreateCategoryRequest) (CategoryResponse, error)
	UpdateCategory(ctx context.Context, id string, req CreateCategoryRequest) (CategoryResponse, error)
	// DeleteCategory refuses while any product still references the category.
	DeleteCategory(ctx context.Context, id string) error
	ListCategories(ctx context.Context) ([]CategoryResponse, error)
}

type productService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	movementRepo repository.MovementRepository
	activityRepo repository.ActivityRepository
	stockSvc     StockService
	txManager    repository.TransactionManager
}

func NewProductService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	movementRepo repository.MovementRepository,
	activityRepo repository.ActivityRepository,
	stockSvc StockService,
	txManager repository.TransactionManager,
) ProductService {
	return &productService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		movementRepo: movementRepo,
		activityRepo: activityRepo,
		stockSvc:     stockSvc,
		txManager:    txManager,
	}
}

// validateProductFields enforces the field rules shared by create and update
func validateProductFields(sku, name, unit string, price, costPrice float64, minStock int, maxStock *int) error {
	if strings.TrimSpace(sku) == "" {
		return apperr.Validationf("sku must not be blank")
	}
	if strings.TrimSpace(name) == "" {
		return apperr.Validationf("product name must not be blank")
	}
	if strings.TrimSpace(unit) == "" {
		return apperr.Validationf("unit must not be blank")
	}
	if price < 0 {
		return apperr.Validationf("price must not be negative")
	}
	if costPrice < 0 {
		return apperr.Validationf("cost price must not be negative")
	}
	if minStock < 0 {
		return apperr.Validationf("min stock level must not be negative")
	}
	if maxStock != nil && *maxStock < minStock {
		return apperr.Validationf("max stock level %d is below min stock level %d", *maxStock, minStock)
	}
	return nil
}

func (s *productService) CreateProduct(ctx context.Context, userID string, req CreateProductRequest) (ProductResponse, error) {
	if err := validateProductFields(req.SKU, req.Name, req.Unit, req.Price, req.CostPrice, req.MinStockLevel, req.MaxStockLevel); err != nil {
		return ProductResponse{}, err
	}
	if req.InitialStock < 0 {
		return ProductResponse{}, apperr.Validationf("initial stock must not be negative")
	}

	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		return ProductResponse{}, apperr.Validationf("invalid category id: %s", req.CategoryID)
	}
	if _, err := s.categoryRepo.FindByID(ctx, categoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProductResponse{}, apperr.NotFoundf("category %s not found", req.CategoryID)
		}
		return ProductResponse{}, apperr.Persistence(err, "failed to load category")
	}

	if _, err := s.productRepo.FindBySKU(ctx, req.SKU); err == nil {
		return ProductResponse{}, apperr.BusinessRulef("sku %s is already in use", req.SKU)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return ProductResponse{}, apperr.Persistence(err, "failed to check sku")
	}

	var uid *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		uid = &parsed
	}

	product := model.Product{
		SKU:           req.SKU,
		Name:          req.Name,
		Description:   req.Description,
		CategoryID:    categoryID,
		Price:         decimal.NewFromFloat(req.Price),
		CostPrice:     decimal.NewFromFloat(req.CostPrice),
		CurrentStock:  0,
		MinStockLevel: req.MinStockLevel,
		MaxStockLevel: req.MaxStockLevel,
		Unit:          req.Unit,
		Barcode:       req.Barcode,
		IsActive:      true,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Create(txCtx, &product); err != nil {
			// A concurrent create can slip past the pre-check; the unique
			// index has the final say.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.BusinessRulef("sku %s is already in use", req.SKU)
			}
			return apperr.Persistence(err, "failed to create product")
		}

		// Opening stock goes through the ledger like every other balance write
		if req.InitialStock > 0 {
			refType := model.RefInitialStock
			refID := product.ID
			cost := product.CostPrice
			_, updated, err := s.stockSvc.RecordMovement(txCtx, MovementRecord{
				ProductID:     product.ID,
				MovementType:  model.MovementIn,
				Quantity:      req.InitialStock,
				UnitCost:      &cost,
				ReferenceType: &refType,
				ReferenceID:   &refID,
				MovedBy:       uid,
			})
			if err != nil {
				return err
			}
			product.CurrentStock = updated.CurrentStock
		}

		details, _ := json.Marshal(req)
		entry := &model.ActivityLog{
			ActorID:    uid,
			Action:     model.ActionCreateProduct,
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
		return ProductResponse{}, err
	}

	return toProductResponse(&product), nil
}

func (s *productService) UpdateProduct(ctx context.Context, userID string, id string, req UpdateProductRequest) (ProductResponse, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return ProductResponse{}, apperr.Validationf("invalid product id: %s", id)
	}
	if err := validateProductFields(req.SKU, req.Name, req.Unit, req.Price, req.CostPrice, req.MinStockLevel, req.MaxStockLevel); err != nil {
		return ProductResponse{}, err
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProductResponse{}, apperr.NotFoundf("product %s not found", id)
		}
		return ProductResponse{}, apperr.Persistence(err, "failed to load product")
	}

	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		return ProductResponse{}, apperr.Validationf("invalid category id: %s", req.CategoryID)
	}
	if _, err := s.categoryRepo.FindByID(ctx, categoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProductResponse{}, apperr.NotFoundf("category %s not found", req.CategoryID)
		}
		return ProductResponse{}, apperr.Persistence(err, "failed to load category")
	}

	if req.SKU != product.SKU {
		if existing, err := s.productRepo.FindBySKU(ctx, req.SKU); err == nil && existing.ID != product.ID {
			return ProductResponse{}, apperr.BusinessRulef("sku %s is already in use", req.SKU)
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return ProductResponse{}, apperr.Persistence(err, "failed to check sku")
		}
	}

	product.SKU = req.SKU
	product.Name = req.Name
	product.Description = req.Description
	product.CategoryID = categoryID
	product.Category = nil
	product.Price = decimal.NewFromFloat(req.Price)
	product.CostPrice = decimal.NewFromFloat(req.CostPrice)
	product.MinStockLevel = req.MinStockLevel
	product.MaxStockLevel = req.MaxStockLevel
	product.Unit = req.Unit
	product.Barcode = req.Barcode
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	var uid *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		uid = &parsed
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Save(txCtx, product); err != nil {
			return apperr.Persistence(err, "failed to update product")
		}

		details, _ := json.Marshal(req)
		entry := &model.ActivityLog{
			ActorID:    uid,
			Action:     model.ActionUpdateProduct,
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
		return ProductResponse{}, err
	}

	return toProductResponse(product), nil
}

func (s *productService) DeleteProduct(ctx context.Context, userID string, id string, force bool) error {
	productID, err := uuid.Parse(id)
	if err != nil {
		return apperr.Validationf("invalid product id: %s", id)
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("product %s not found", id)
		}
		return apperr.Persistence(err, "failed to load product")
	}

	count, err := s.movementRepo.CountByProduct(ctx, productID)
	if err != nil {
		return apperr.Persistence(err, "failed to count movements")
	}
	if count > 0 && !force {
		return apperr.BusinessRulef("product %s has %d stock movements; deactivate it or delete with force", product.SKU, count)
	}

	var uid *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		uid = &parsed
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if count > 0 {
			if err := s.movementRepo.DeleteByProduct(txCtx, productID); err != nil {
				return apperr.Persistence(err, "failed to delete movements")
			}
		}
		if err := s.productRepo.Delete(txCtx, productID); err != nil {
			return apperr.Persistence(err, "failed to delete product")
		}

		details, _ := json.Marshal(map[string]interface{}{"force": force, "movements_removed": count})
		entry := &model.ActivityLog{
			ActorID:    uid,
			Action:     model.ActionDeleteProduct,
			EntityID:   product.ID.String(),
			EntityName: product.Name,
			Details:    string(details),
		}
		if err := s.activityRepo.Log(txCtx, entry); err != nil {
			return apperr.Persistence(err, "failed to write activity log")
		}
		return nil
	})
}

func (s *productService) GetProduct(ctx context.Context, id string) (ProductResponse, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return ProductResponse{}, apperr.Validationf("invalid product id: %s", id)
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProductResponse{}, apperr.NotFoundf("product %s not found", id)
		}
		return ProductResponse{}, apperr.Persistence(err, "failed to load product")
	}

	return toProductResponse(product), nil
}

func (s *productService) ListProducts(ctx context.Context, q ProductListQuery, page, limit int) ([]ProductResponse, int64, error) {
	filter := repository.ProductFilter{
		ActiveOnly:   q.ActiveOnly,
		Search:       q.Search,
		LowStockOnly: q.LowStockOnly,
	}
	if q.CategoryID != "" {
		categoryID, err := uuid.Parse(q.CategoryID)
		if err != nil {
			return nil, 0, apperr.Validationf("invalid category id: %s", q.CategoryID)
		}
		filter.CategoryID = &categoryID
	}

	products, total, err := s.productRepo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, apperr.Persistence(err, "failed to list products")
	}

	res := make([]ProductResponse, 0, len(products))
	for i := range products {
		res = append(res, toProductResponse(&products[i]))
	}
	return res, total, nil
}

func (s *productService) CreateCategory(ctx context.Context, req CreateCategoryRequest) (CategoryResponse, error) {
	if strings.TrimSpace(req.Name) == "" {
		return CategoryResponse{}, apperr.Validationf("category name must not be blank")
	}

	category := model.Category{
		Name:        req.Name,
		Description: req.Description,
	}
	if req.ParentID != nil {
		parentID, err := uuid.Parse(*req.ParentID)
		if err != nil {
			return CategoryResponse{}, apperr.Validationf("invalid parent category id: %s", *req.ParentID)
		}
		if _, err := s.categoryRepo.FindByID(ctx, parentID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return CategoryResponse{}, apperr.NotFoundf("parent category %s not found", *req.ParentID)
			}
			return CategoryResponse{}, apperr.Persistence(err, "failed to load parent category")
		}
		category.ParentID = &parentID
	}

	if err := s.categoryRepo.Create(ctx, &category); err != nil {
		return CategoryResponse{}, apperr.Persistence(err, "failed to create category")
	}

	return toCategoryResponse(&category), nil
}

func (s *productService) UpdateCategory(ctx context.Context, id string, req CreateCategoryRequest) (CategoryResponse, error) {
	categoryID, err := uuid.Parse(id)
	if err != nil {
		return CategoryResponse{}, apperr.Validationf("invalid category id: %s", id)
	}
	if strings.TrimSpace(req.Name) == "" {
		return CategoryResponse{}, apperr.Validationf("category name must not be blank")
	}

	category, err := s.categoryRepo.FindByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CategoryResponse{}, apperr.NotFoundf("category %s not found", id)
		}
		return CategoryResponse{}, apperr.Persistence(err, "failed to load category")
	}

	category.Name = req.Name
	category.Description = req.Description
	category.ParentID = nil
	if req.ParentID != nil {
		parentID, err := uuid.Parse(*req.ParentID)
		if err != nil {
			return CategoryResponse{}, apperr.Validationf("invalid parent category id: %s", *req.ParentID)
		}
		if parentID == categoryID {
			return CategoryResponse{}, apperr.Validationf("category cannot be its own parent")
		}
		if _, err := s.categoryRepo.FindByID(ctx, parentID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return CategoryResponse{}, apperr.NotFoundf("parent category %s not found", *req.ParentID)
			}
			return CategoryResponse{}, apperr.Persistence(err, "failed to load parent category")
		}
		category.ParentID = &parentID
	}

	if err := s.categoryRepo.Save(ctx, category); err != nil {
		return CategoryResponse{}, apperr.Persistence(err, "failed to update category")
	}

	return toCategoryResponse(category), nil
}

func (s *productService) DeleteCategory(ctx context.Context, id string) error {
	categoryID, err := uuid.Parse(id)
	if err != nil {
		return apperr.Validationf("invalid category id: %s", id)
	}

	category, err := s.categoryRepo.FindByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("category %s not found", id)
		}
		return apperr.Persistence(err, "failed to load category")
	}

	count, err := s.categoryRepo.CountProducts(ctx, categoryID)
	if err != nil {
		return apperr.Persistence(err, "failed to count category products")
	}
	if count > 0 {
		return apperr.BusinessRulef("category %s still has %d products", category.Name, count)
	}

	if err := s.categoryRepo.Delete(ctx, categoryID); err != nil {
		return apperr.Persistence(err, "failed to delete category")
	}
	return nil
}

func (s *productService) ListCategories(ctx context.Context) ([]CategoryResponse, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, apperr.Persistence(err, "failed to list categories")
	}

	res := make([]CategoryResponse, 0, len(categories))
	for i := range categories {
		res = append(res, toCategoryResponse(&categories[i]))
	}
	return res, nil
}

func toProductResponse(p *model.Product) ProductResponse {
	res := ProductResponse{
		ID:            p.ID.String(),
		SKU:           p.SKU,
		Name:          p.Name,
		Description:   p.Description,
		CategoryID:    p.CategoryID.String(),
		Price:         p.Price.StringFixed(2),
		CostPrice:     p.CostPrice.StringFixed(2),
		CurrentStock:  p.CurrentStock,
		MinStockLevel: p.MinStockLevel,
		MaxStockLevel: p.MaxStockLevel,
		Unit:          p.Unit,
		Barcode:       p.Barcode,
		IsActive:      p.IsActive,
		LowStock:      p.CurrentStock <= p.MinStockLevel,
	}
	if p.Category != nil {
		res.CategoryName = p.Category.Name
	}
	return res
}

func toCategoryResponse(c *model.Category) CategoryResponse {
	res := CategoryResponse{
		ID:          c.ID.String(),
		Name:        c.Name,
		Description: c.Description,
	}
	if c.ParentID != nil {
		parent := c.ParentID.String()
		res.ParentID = &parent
	}
	return res
}
