package handler

import (
	"net/http"

	"erp-backend/internal/service"
	"erp-backend/pkg/pagination"
	"erp-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type SupplierHandler struct {
	supplierService service.SupplierService
}

func NewSupplierHandler(supplierService service.SupplierService) *SupplierHandler {
	return &SupplierHandler{supplierService: supplierService}
}

func (h *SupplierHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")
	{
		api.GET("/suppliers", h.ListSuppliers)
		api.POST("/suppliers", h.CreateSupplier)
		api.GET("/suppliers/:id", h.GetSupplier)
		api.PUT("/suppliers/:id", h.UpdateSupplier)
		api.DELETE("/suppliers/:id", h.DeactivateSupplier)
	}
}

// ListSuppliers returns a searchable supplier page
// @Summary      List suppliers
// @Tags         suppliers
// @Produce      json
// @Param        page    query  int     false  "Page number (default 1)"
// @Param        limit   query  int     false  "Items per page (default 20)"
// @Param        search  query  string  false  "Search by name, code or contact"
// @Param        status  query  string  false  "Filter by status (active, inactive)"
// @Success      200  {object}  response.Response{data=pagination.Paged}
// @Failure      500  {object}  response.Response
// @Router       /api/suppliers [get]
func (h *SupplierHandler) ListSuppliers(c *gin.Context) {
	p := pagination.Parse(c)

	suppliers, total, err := h.supplierService.ListSuppliers(c.Request.Context(), c.Query("search"), c.Query("status"), p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewPaged(suppliers, total, p)))
}

// CreateSupplier registers a vendor
// @Summary      Create supplier
// @Tags         suppliers
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateSupplierRequest  true  "Create Supplier Payload"
// @Success      201      {object}  response.Response{data=service.SupplierResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/suppliers [post]
func (h *SupplierHandler) CreateSupplier(c *gin.Context) {
	var req service.CreateSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	supplier, err := h.supplierService.CreateSupplier(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, supplier))
}

// GetSupplier returns one supplier by ID
// @Summary      Get supplier
// @Tags         suppliers
// @Produce      json
// @Param        id   path      string  true  "Supplier ID"
// @Success      200  {object}  response.Response{data=service.SupplierResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/suppliers/{id} [get]
func (h *SupplierHandler) GetSupplier(c *gin.Context) {
	supplier, err := h.supplierService.GetSupplier(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, supplier))
}

// UpdateSupplier updates supplier details; the code itself is immutable
// @Summary      Update supplier
// @Tags         suppliers
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Supplier ID"
// @Param        payload  body      service.UpdateSupplierRequest  true  "Update Supplier Payload"
// @Success      200      {object}  response.Response{data=service.SupplierResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/suppliers/{id} [put]
func (h *SupplierHandler) UpdateSupplier(c *gin.Context) {
	var req service.UpdateSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	supplier, err := h.supplierService.UpdateSupplier(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, supplier))
}

// DeactivateSupplier retires a supplier; historic orders keep their reference
// @Summary      Deactivate supplier
// @Tags         suppliers
// @Produce      json
// @Param        id   path      string  true  "Supplier ID"
// @Success      200  {object}  response.Response{data=service.SupplierResponse}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/suppliers/{id} [delete]
func (h *SupplierHandler) DeactivateSupplier(c *gin.Context) {
	supplier, err := h.supplierService.DeactivateSupplier(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, supplier))
}
