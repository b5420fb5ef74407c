package handler

import (
	"net/http"
	"strconv"

	"omniops/internal/model"
	"omniops/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ItemHandler struct {
	items  *service.ItemService
	logger *zap.Logger
}

func NewItemHandler(items *service.ItemService, logger *zap.Logger) *ItemHandler {
	return &ItemHandler{items: items, logger: logger}
}

// ListItems handles GET /api/items?category=&refresh=
func (h *ItemHandler) ListItems(c *gin.Context) {
	category := model.Category(c.Query("category"))
	refresh, _ := strconv.ParseBool(c.Query("refresh"))

	items, err := h.items.List(c.Request.Context(), category, refresh)
	if err != nil {
		writeError(c, h.logger, "ListItems", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// CreateItem handles POST /api/items
func (h *ItemHandler) CreateItem(c *gin.Context) {
	var req struct {
		Title    string `json:"title"`
		Category string `json:"category"`
		WithAI   bool   `json:"with_ai"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	h.logger.Info("CreateItem request received",
		zap.String("category", req.Category),
		zap.Bool("with_ai", req.WithAI),
	)

	res, err := h.items.Create(c.Request.Context(), service.CreateItemInput{
		Title:    req.Title,
		Category: model.Category(req.Category),
		WithAI:   req.WithAI,
	})
	if err != nil {
		writeError(c, h.logger, "CreateItem", err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// ToggleTask handles POST /api/items/:id/toggle
func (h *ItemHandler) ToggleTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.items.ToggleTask(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, "ToggleTask", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// MoveLead handles POST /api/items/:id/move
func (h *ItemHandler) MoveLead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Direction string `json:"direction" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "direction required")
		return
	}

	res, err := h.items.MoveLead(c.Request.Context(), id, req.Direction)
	if err != nil {
		writeError(c, h.logger, "MoveLead", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DeleteItem handles DELETE /api/items/:id
func (h *ItemHandler) DeleteItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	mut, err := h.items.Delete(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, "DeleteItem", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mutation": mut})
}

// Mutations handles GET /api/items/:id/mutations
func (h *ItemHandler) Mutations(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"mutations": h.items.Mutations(id)})
}

// Pipeline handles GET /api/pipeline
func (h *ItemHandler) Pipeline(c *gin.Context) {
	board, err := h.items.Board(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "Pipeline", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"columns": board})
}
