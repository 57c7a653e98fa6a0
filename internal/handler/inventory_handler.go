package handler

import (
	"net/http"

	"erp-backend/internal/service"
	"erp-backend/pkg/pagination"
	"erp-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct {
	productService service.ProductService
	stockService   service.StockService
}

func NewInventoryHandler(productService service.ProductService, stockService service.StockService) *InventoryHandler {
	return &InventoryHandler{productService: productService, stockService: stockService}
}

func (h *InventoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")
	{
		api.GET("/products", h.ListProducts)
		api.POST("/products", h.CreateProduct)
		api.GET("/products/:id", h.GetProduct)
		api.PUT("/products/:id", h.UpdateProduct)
		api.DELETE("/products/:id", h.DeleteProduct)
		api.GET("/products/:id/stock", h.GetBalance)
		api.GET("/products/:id/movements", h.ListMovements)
		api.POST("/stock/movements", h.ApplyMovement)
		api.GET("/stock/low", h.LowStock)
		api.GET("/categories", h.ListCategories)
		api.POST("/categories", h.CreateCategory)
		api.PUT("/categories/:id", h.UpdateCategory)
		api.DELETE("/categories/:id", h.DeleteCategory)
	}
}

// ListProducts returns a filtered catalog page
// @Summary      List products
// @Description  Retrieves a paginated list of products with current stock
// @Tags         catalog
// @Produce      json
// @Param        page         query  int     false  "Page number (default 1)"
// @Param        limit        query  int     false  "Items per page (default 20)"
// @Param        search       query  string  false  "Search by name or SKU"
// @Param        category_id  query  string  false  "Filter by category"
// @Param        active       query  bool    false  "Active products only"
// @Param        low_stock    query  bool    false  "Low-stock products only"
// @Success      200  {object}  response.Response{data=pagination.Paged}
// @Failure      500  {object}  response.Response
// @Router       /api/products [get]
func (h *InventoryHandler) ListProducts(c *gin.Context) {
	p := pagination.Parse(c)
	q := service.ProductListQuery{
		CategoryID:   c.Query("category_id"),
		ActiveOnly:   c.Query("active") == "true",
		Search:       c.Query("search"),
		LowStockOnly: c.Query("low_stock") == "true",
	}

	products, total, err := h.productService.ListProducts(c.Request.Context(), q, p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewPaged(products, total, p)))
}

// CreateProduct creates a catalog entry, booking any opening stock through the ledger
// @Summary      Create product
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateProductRequest  true  "Create Product Payload"
// @Success      201      {object}  response.Response{data=service.ProductResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/products [post]
func (h *InventoryHandler) CreateProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), actorID(c), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, product))
}

// GetProduct returns a single product by ID
// @Summary      Get product
// @Tags         catalog
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response{data=service.ProductResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id} [get]
func (h *InventoryHandler) GetProduct(c *gin.Context) {
	product, err := h.productService.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// UpdateProduct updates catalog fields; stock is never writable here
// @Summary      Update product
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Product ID"
// @Param        payload  body      service.UpdateProductRequest  true  "Update Product Payload"
// @Success      200      {object}  response.Response{data=service.ProductResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/products/{id} [put]
func (h *InventoryHandler) UpdateProduct(c *gin.Context) {
	var req service.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), actorID(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// DeleteProduct removes a product; force=true also removes its ledger history
// @Summary      Delete product
// @Tags         catalog
// @Produce      json
// @Param        id     path   string  true   "Product ID"
// @Param        force  query  bool    false  "Delete even with movement history"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/products/{id} [delete]
func (h *InventoryHandler) DeleteProduct(c *gin.Context) {
	force := c.Query("force") == "true"

	if err := h.productService.DeleteProduct(c.Request.Context(), actorID(c), c.Param("id"), force); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Product deleted successfully"))
}

// GetBalance returns the authoritative stock balance for a product
// @Summary      Get stock balance
// @Tags         stock
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response{data=service.StockBalanceResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id}/stock [get]
func (h *InventoryHandler) GetBalance(c *gin.Context) {
	balance, err := h.stockService.GetBalance(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, balance))
}

// ListMovements returns a product's ledger history, newest first
// @Summary      List stock movements
// @Tags         stock
// @Produce      json
// @Param        id     path   string  true   "Product ID"
// @Param        page   query  int     false  "Page number (default 1)"
// @Param        limit  query  int     false  "Items per page (default 20)"
// @Success      200  {object}  response.Response{data=pagination.Paged}
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id}/movements [get]
func (h *InventoryHandler) ListMovements(c *gin.Context) {
	p := pagination.Parse(c)

	movements, total, err := h.stockService.ListMovements(c.Request.Context(), c.Param("id"), p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewPaged(movements, total, p)))
}

// ApplyMovement appends a manual in/out/adjustment movement to the ledger
// @Summary      Apply stock movement
// @Description  Appends a ledger entry and updates the balance atomically, broadcasting WS updates
// @Tags         stock
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ApplyMovementRequest  true  "Movement Payload"
// @Success      201      {object}  response.Response{data=service.MovementResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/stock/movements [post]
func (h *InventoryHandler) ApplyMovement(c *gin.Context) {
	var req service.ApplyMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	movement, err := h.stockService.ApplyMovement(c.Request.Context(), actorID(c), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, movement))
}

// LowStock lists active products at or below their minimum level
// @Summary      List low-stock products
// @Tags         stock
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.StockBalanceResponse}
// @Failure      500  {object}  response.Response
// @Router       /api/stock/low [get]
func (h *InventoryHandler) LowStock(c *gin.Context) {
	products, err := h.stockService.LowStockProducts(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, products))
}

// ListCategories returns all categories
// @Summary      List categories
// @Tags         catalog
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.CategoryResponse}
// @Failure      500  {object}  response.Response
// @Router       /api/categories [get]
func (h *InventoryHandler) ListCategories(c *gin.Context) {
	categories, err := h.productService.ListCategories(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, categories))
}

// CreateCategory creates a category, optionally nested under a parent
// @Summary      Create category
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateCategoryRequest  true  "Create Category Payload"
// @Success      201      {object}  response.Response{data=service.CategoryResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/categories [post]
func (h *InventoryHandler) CreateCategory(c *gin.Context) {
	var req service.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	category, err := h.productService.CreateCategory(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, category))
}

// UpdateCategory renames a category or moves it under another parent
// @Summary      Update category
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Category ID"
// @Param        payload  body      service.CreateCategoryRequest  true  "Update Category Payload"
// @Success      200      {object}  response.Response{data=service.CategoryResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/categories/{id} [put]
func (h *InventoryHandler) UpdateCategory(c *gin.Context) {
	var req service.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	category, err := h.productService.UpdateCategory(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, category))
}

// DeleteCategory removes an empty category
// @Summary      Delete category
// @Tags         catalog
// @Produce      json
// @Param        id   path      string  true  "Category ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/categories/{id} [delete]
func (h *InventoryHandler) DeleteCategory(c *gin.Context) {
	if err := h.productService.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Category deleted successfully"))
}
