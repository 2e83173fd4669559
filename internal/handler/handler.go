package handler

import (
	"net/http"

	"github.com/edukita/examly-backend/internal/response"
	"github.com/edukita/examly-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// failDomain translates a business-layer error into the API error envelope.
// Unknown errors are treated as internal and never leak their message.
func failDomain(c *gin.Context, err error) {
	kind, ok := service.KindOf(err)
	if !ok {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	switch kind {
	case service.KindNotFound:
		response.FailWithMessage(c, http.StatusNotFound, response.ErrNotFound, err.Error())
	case service.KindValidation:
		response.FailWithMessage(c, http.StatusBadRequest, response.ErrValidation, err.Error())
	case service.KindInvalidState:
		response.FailWithMessage(c, http.StatusConflict, response.ErrInvalidState, err.Error())
	case service.KindConflict:
		response.FailWithMessage(c, http.StatusConflict, response.ErrConflict, err.Error())
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
