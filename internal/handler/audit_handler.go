package handler

import (
	"net/http"

	"erp-backend/internal/service"
	"erp-backend/pkg/pagination"
	"erp-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.StockAuditService
}

func NewAuditHandler(auditService service.StockAuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")
	{
		api.GET("/audits", h.ListAudits)
		api.POST("/audits", h.CreateAudit)
		api.GET("/audits/:id", h.GetAudit)
		api.POST("/audits/:id/start", h.StartAudit)
		api.POST("/audits/:id/counts", h.RecordCount)
		api.GET("/audits/:id/items", h.ListAuditItems)
		api.POST("/audits/:id/complete", h.CompleteAudit)
		api.POST("/audits/:id/cancel", h.CancelAudit)
		api.DELETE("/audits/:id", h.DeleteAudit)
	}
}

// ListAudits returns stock audits, optionally filtered by status
// @Summary      List stock audits
// @Tags         audits
// @Produce      json
// @Param        page    query  int     false  "Page number (default 1)"
// @Param        limit   query  int     false  "Items per page (default 20)"
// @Param        status  query  string  false  "Filter by status"
// @Success      200  {object}  response.Response{data=pagination.Paged}
// @Failure      500  {object}  response.Response
// @Router       /api/audits [get]
func (h *AuditHandler) ListAudits(c *gin.Context) {
	p := pagination.Parse(c)

	audits, total, err := h.auditService.ListAudits(c.Request.Context(), c.Query("status"), p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewPaged(audits, total, p)))
}

// CreateAudit creates a pending stock audit
// @Summary      Create stock audit
// @Tags         audits
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateAuditRequest  true  "Create Audit Payload"
// @Success      201      {object}  response.Response{data=service.AuditResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/audits [post]
func (h *AuditHandler) CreateAudit(c *gin.Context) {
	var req service.CreateAuditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	audit, err := h.auditService.CreateAudit(c.Request.Context(), actorID(c), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, audit))
}

// GetAudit returns one audit by ID
// @Summary      Get stock audit
// @Tags         audits
// @Produce      json
// @Param        id   path      string  true  "Audit ID"
// @Success      200  {object}  response.Response{data=service.AuditResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/audits/{id} [get]
func (h *AuditHandler) GetAudit(c *gin.Context) {
	audit, err := h.auditService.GetAudit(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, audit))
}

// StartAudit snapshots expected quantities for every active product
// @Summary      Start stock audit
// @Description  Moves the audit to in_progress and freezes expected quantities in one transaction
// @Tags         audits
// @Produce      json
// @Param        id   path      string  true  "Audit ID"
// @Success      200  {object}  response.Response{data=service.AuditResponse}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/audits/{id}/start [post]
func (h *AuditHandler) StartAudit(c *gin.Context) {
	audit, err := h.auditService.StartAudit(c.Request.Context(), actorID(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, audit))
}

// RecordCount stores a physical count; recounting overwrites
// @Summary      Record audit count
// @Tags         audits
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Audit ID"
// @Param        payload  body      service.RecordCountRequest  true  "Count Payload"
// @Success      200      {object}  response.Response{data=service.AuditItemResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/audits/{id}/counts [post]
func (h *AuditHandler) RecordCount(c *gin.Context) {
	var req service.RecordCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	item, err := h.auditService.RecordCount(c.Request.Context(), actorID(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// ListAuditItems returns audit lines, optionally only those with variances
// @Summary      List audit items
// @Tags         audits
// @Produce      json
// @Param        id             path   string  true   "Audit ID"
// @Param        page           query  int     false  "Page number (default 1)"
// @Param        limit          query  int     false  "Items per page (default 20)"
// @Param        variance_only  query  bool    false  "Only items with non-zero variance"
// @Success      200  {object}  response.Response{data=pagination.Paged}
// @Failure      404  {object}  response.Response
// @Router       /api/audits/{id}/items [get]
func (h *AuditHandler) ListAuditItems(c *gin.Context) {
	p := pagination.Parse(c)
	varianceOnly := c.Query("variance_only") == "true"

	items, total, err := h.auditService.ListAuditItems(c.Request.Context(), c.Param("id"), varianceOnly, p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewPaged(items, total, p)))
}

// CompleteAudit closes the audit, optionally reconciling the ledger
// @Summary      Complete stock audit
// @Description  Closes a fully counted audit; apply_adjustments writes one ledger adjustment per variance
// @Tags         audits
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Audit ID"
// @Param        payload  body      service.CompleteAuditRequest  true  "Complete Audit Payload"
// @Success      200      {object}  response.Response{data=service.AuditSummary}
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/audits/{id}/complete [post]
func (h *AuditHandler) CompleteAudit(c *gin.Context) {
	var req service.CompleteAuditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	summary, err := h.auditService.CompleteAudit(c.Request.Context(), actorID(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// CancelAudit abandons a pending or in-progress audit
// @Summary      Cancel stock audit
// @Tags         audits
// @Produce      json
// @Param        id   path      string  true  "Audit ID"
// @Success      200  {object}  response.Response{data=service.AuditResponse}
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/audits/{id}/cancel [post]
func (h *AuditHandler) CancelAudit(c *gin.Context) {
	audit, err := h.auditService.CancelAudit(c.Request.Context(), actorID(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, audit))
}

// DeleteAudit hard-deletes an audit and its items; force overrides the in-progress guard
// @Summary      Delete stock audit
// @Tags         audits
// @Produce      json
// @Param        id     path   string  true   "Audit ID"
// @Param        force  query  bool    false  "Delete even while in progress"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/audits/{id} [delete]
func (h *AuditHandler) DeleteAudit(c *gin.Context) {
	force := c.Query("force") == "true"

	if err := h.auditService.DeleteAudit(c.Request.Context(), actorID(c), c.Param("id"), force); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Audit deleted successfully"))
}
