package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/logger"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type resolveRequest struct {
	Query string `json:"query"`
}

// ResolveQuery answers a caller query from the assistant's QA pairs and
// knowledge base, or returns an escalation.
func (h *Handlers) ResolveQuery(c *gin.Context) {
	if h.resolver == nil {
		response.AbortWithStatusJSON(c, http.StatusServiceUnavailable, errors.New("resolver not configured"))
		return
	}
	assistantID := c.Param("assistantId")

	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "Invalid request", err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		response.Fail(c, "query is required", nil)
		return
	}

	res := h.resolver.Resolve(c.Request.Context(), assistantID, req.Query)
	if res.Escalated() {
		logger.Info("query escalated",
			zap.String("assistantId", assistantID),
			zap.String("requestId", c.GetString("requestId")))
	}
	response.Success(c, "resolve success", res)
}
