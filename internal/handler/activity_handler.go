package handler

import (
	"net/http"

	"erp-backend/internal/service"
	"erp-backend/pkg/pagination"
	"erp-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type ActivityHandler struct {
	activityService service.ActivityService
}

func NewActivityHandler(activityService service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activityService: activityService}
}

func (h *ActivityHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")
	{
		api.GET("/activity/:entity_id", h.ListByEntity)
	}
}

// ListByEntity returns the activity trail for a product, order or audit
// @Summary      List entity activity
// @Tags         activity
// @Produce      json
// @Param        entity_id  path   string  true   "Entity ID"
// @Param        page       query  int     false  "Page number (default 1)"
// @Param        limit      query  int     false  "Items per page (default 20)"
// @Success      200  {object}  response.Response{data=pagination.Paged}
// @Failure      400  {object}  response.Response
// @Router       /api/activity/{entity_id} [get]
func (h *ActivityHandler) ListByEntity(c *gin.Context) {
	p := pagination.Parse(c)

	entries, total, err := h.activityService.ListByEntity(c.Request.Context(), c.Param("entity_id"), p.Page, p.Limit)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewPaged(entries, total, p)))
}
