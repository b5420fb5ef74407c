package handler

import (
	"net/http"
	"strings"

	"omniops/internal/inference"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AIHandler struct {
	ai     inference.Generator
	logger *zap.Logger
}

func NewAIHandler(ai inference.Generator, logger *zap.Logger) *AIHandler {
	return &AIHandler{ai: ai, logger: logger}
}

// Generate handles POST /api/ai/generate
// 总是返回 200：失败时 fallback=true，文本来自离线模板
func (h *AIHandler) Generate(c *gin.Context) {
	var req struct {
		Prompt  string `json:"prompt"`
		Context string `json:"context"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		badRequest(c, "prompt required")
		return
	}

	res := h.ai.Generate(c.Request.Context(), req.Prompt, req.Context)
	if res.Fallback {
		h.logger.Info("Generate: served fallback", zap.String("reason", res.Reason))
	}
	c.JSON(http.StatusOK, res)
}
