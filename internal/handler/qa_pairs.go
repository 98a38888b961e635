package handlers

import (
	"errors"
	"strconv"

	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/internal/models"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/logger"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type qaPairRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Priority int    `json:"priority"`
}

// ListQAPairs lists an assistant's QA pairs in match order
func (h *Handlers) ListQAPairs(c *gin.Context) {
	pairs, err := models.ListQAPairs(h.db.WithContext(c.Request.Context()), c.Param("assistantId"))
	if err != nil {
		response.Fail(c, "list qa pairs failed", err)
		return
	}
	response.Success(c, "list qa pairs success", pairs)
}

// CreateQAPair creates a QA pair
func (h *Handlers) CreateQAPair(c *gin.Context) {
	assistantID := c.Param("assistantId")
	var req qaPairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "Invalid request", err)
		return
	}

	pair, err := models.CreateQAPair(h.db.WithContext(c.Request.Context()), assistantID, req.Question, req.Answer, req.Priority)
	if err != nil {
		response.Fail(c, "create qa pair failed", err)
		return
	}
	h.invalidateQACache(c, assistantID)
	response.Success(c, "create qa pair success", pair)
}

// DeleteQAPair deletes a QA pair of the assistant
func (h *Handlers) DeleteQAPair(c *gin.Context) {
	assistantID := c.Param("assistantId")
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Fail(c, "Invalid qa pair ID", err)
		return
	}

	err = models.DeleteQAPair(h.db.WithContext(c.Request.Context()), assistantID, uint(id))
	if errors.Is(err, models.ErrQAPairNotFound) {
		response.Fail(c, "qa pair not found", err)
		return
	}
	if err != nil {
		response.Fail(c, "delete qa pair failed", err)
		return
	}
	h.invalidateQACache(c, assistantID)
	response.Success(c, "delete qa pair success", nil)
}

func (h *Handlers) invalidateQACache(c *gin.Context, assistantID string) {
	if h.qaCache == nil {
		return
	}
	if err := h.qaCache.Invalidate(c.Request.Context(), assistantID); err != nil {
		logger.Warn("invalidate qa cache failed",
			zap.String("assistantId", assistantID),
			zap.Error(err))
	}
}
