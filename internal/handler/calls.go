package handlers

import (
	"errors"
	"net/http"

	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetCall returns one call record by its external id
func (h *Handlers) GetCall(c *gin.Context) {
	rec, err := h.calls.GetCallRecord(c.Request.Context(), c.Param("externalCallId"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		response.AbortWithStatusJSON(c, http.StatusNotFound, errors.New("call not found"))
		return
	}
	if err != nil {
		response.AbortWithStatusJSON(c, http.StatusServiceUnavailable, errors.New("call store unavailable"))
		return
	}
	response.Success(c, "get call success", rec)
}
