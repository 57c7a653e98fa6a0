package handler

import (
	"net/http"

	"erp-backend/internal/apperr"
	"erp-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// statusFor maps the service error taxonomy onto HTTP statuses
func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindBusinessRule:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	status := statusFor(err)
	c.JSON(status, response.Error(status, err.Error()))
}

// actorID pulls the acting user from the request header. Attribution is
// optional; an empty value records the change as unattributed.
func actorID(c *gin.Context) string {
	return c.GetHeader("X-User-ID")
}
