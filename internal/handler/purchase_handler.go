package handler

import (
	"net/http"

	"erp-backend/internal/service"
	"erp-backend/pkg/pagination"
	"erp-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type PurchaseHandler struct {
	poService service.PurchaseOrderService
}

func NewPurchaseHandler(poService service.PurchaseOrderService) *PurchaseHandler {
	return &PurchaseHandler{poService: poService}
}

func (h *PurchaseHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")
	{
		api.GET("/purchase-orders", h.ListPurchaseOrders)
		api.POST("/purchase-orders", h.CreatePurchaseOrder)
		api.GET("/purchase-orders/:id", h.GetPurchaseOrder)
		api.POST("/purchase-orders/:id/approve", h.ApprovePurchaseOrder)
		api.POST("/purchase-orders/:id/send", h.SendPurchaseOrder)
		api.POST("/purchase-orders/:id/receive", h.ReceiveItems)
		api.POST("/purchase-orders/:id/cancel", h.CancelPurchaseOrder)
	}
}

// ListPurchaseOrders returns a filtered order page
// @Summary      List purchase orders
// @Tags         purchasing
// @Produce      json
// @Param        page         query  int     false  "Page number (default 1)"
// @Param        limit        query  int     false  "Items per page (default 20)"
// @Param        status       query  string  false  "Filter by status"
// @Param        supplier_id  query  string  false  "Filter by supplier"
// @Param        search       query  string  false  "Search by PO number"
// @Success      200  {object}  response.Response{data=pagination.Paged}
// @Failure      500  {object}  response.Response
// @Router       /api/purchase-orders [get]
func (h *PurchaseHandler) ListPurchaseOrders(c *gin.Context) {
	p := pagination.Parse(c)
	q := service.POListQuery{
		Status:     c.Query("status"),
		SupplierID: c.Query("supplier_id"),
		Search:     c.Query("search"),
	}

	orders, total, err := h.poService.ListPurchaseOrders(c.Request.Context(), q, p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewPaged(orders, total, p)))
}

// CreatePurchaseOrder creates a pending order with a generated PO number
// @Summary      Create purchase order
// @Description  Creates a pending order, validating supplier and products and computing the total
// @Tags         purchasing
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreatePORequest  true  "Create Purchase Order Payload"
// @Success      201      {object}  response.Response{data=service.POResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/purchase-orders [post]
func (h *PurchaseHandler) CreatePurchaseOrder(c *gin.Context) {
	var req service.CreatePORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	po, err := h.poService.CreatePurchaseOrder(c.Request.Context(), actorID(c), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, po))
}

// GetPurchaseOrder returns one order with its items
// @Summary      Get purchase order
// @Tags         purchasing
// @Produce      json
// @Param        id   path      string  true  "Purchase Order ID"
// @Success      200  {object}  response.Response{data=service.POResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/purchase-orders/{id} [get]
func (h *PurchaseHandler) GetPurchaseOrder(c *gin.Context) {
	po, err := h.poService.GetPurchaseOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}

// ApprovePurchaseOrder moves a pending order to approved
// @Summary      Approve purchase order
// @Tags         purchasing
// @Produce      json
// @Param        id   path      string  true  "Purchase Order ID"
// @Success      200  {object}  response.Response{data=service.POResponse}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/purchase-orders/{id}/approve [post]
func (h *PurchaseHandler) ApprovePurchaseOrder(c *gin.Context) {
	po, err := h.poService.ApprovePurchaseOrder(c.Request.Context(), actorID(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}

// SendPurchaseOrder marks an approved order as sent to the supplier
// @Summary      Send purchase order
// @Tags         purchasing
// @Produce      json
// @Param        id   path      string  true  "Purchase Order ID"
// @Success      200  {object}  response.Response{data=service.POResponse}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/purchase-orders/{id}/send [post]
func (h *PurchaseHandler) SendPurchaseOrder(c *gin.Context) {
	po, err := h.poService.SendPurchaseOrder(c.Request.Context(), actorID(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}

// ReceiveItems books a partial or full delivery against an order
// @Summary      Receive purchase order items
// @Description  Books deliveries, writing one inbound ledger entry per line in a single transaction
// @Tags         purchasing
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Purchase Order ID"
// @Param        payload  body      service.ReceiveItemsRequest  true  "Receipt Payload"
// @Success      200      {object}  response.Response{data=service.POResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/purchase-orders/{id}/receive [post]
func (h *PurchaseHandler) ReceiveItems(c *gin.Context) {
	var req service.ReceiveItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	po, err := h.poService.ReceiveItems(c.Request.Context(), actorID(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}

// CancelPurchaseOrder cancels an order that has not received any items
// @Summary      Cancel purchase order
// @Tags         purchasing
// @Produce      json
// @Param        id   path      string  true  "Purchase Order ID"
// @Success      200  {object}  response.Response{data=service.POResponse}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/purchase-orders/{id}/cancel [post]
func (h *PurchaseHandler) CancelPurchaseOrder(c *gin.Context) {
	po, err := h.poService.CancelPurchaseOrder(c.Request.Context(), actorID(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}
