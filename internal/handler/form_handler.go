package handler

import (
	"net/http"

	"omniops/internal/formbuilder"
	"omniops/internal/model"
	"omniops/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type FormHandler struct {
	forms  *service.FormService
	logger *zap.Logger
}

func NewFormHandler(forms *service.FormService, logger *zap.Logger) *FormHandler {
	return &FormHandler{forms: forms, logger: logger}
}

func draftJSON(b *formbuilder.Builder) gin.H {
	return gin.H{"id": b.ID, "fields": b.Snapshot()}
}

// CreateDraft handles POST /api/forms/drafts
func (h *FormHandler) CreateDraft(c *gin.Context) {
	b, err := h.forms.CreateDraft(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "CreateDraft", err)
		return
	}
	c.JSON(http.StatusCreated, draftJSON(b))
}

// GetDraft handles GET /api/forms/drafts/:id
func (h *FormHandler) GetDraft(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	b, err := h.forms.GetDraft(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, "GetDraft", err)
		return
	}
	c.JSON(http.StatusOK, draftJSON(b))
}

// AddField handles POST /api/forms/drafts/:id/fields
func (h *FormHandler) AddField(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Type string `json:"type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "type required")
		return
	}

	b, err := h.forms.AddField(c.Request.Context(), id, model.FieldType(req.Type))
	if err != nil {
		writeError(c, h.logger, "AddField", err)
		return
	}
	c.JSON(http.StatusOK, draftJSON(b))
}

// UpdateLabel handles PATCH /api/forms/drafts/:id/fields/:fieldId
func (h *FormHandler) UpdateLabel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	fieldID, ok := pathID(c, "fieldId")
	if !ok {
		return
	}
	var req struct {
		Label string `json:"label"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	b, err := h.forms.UpdateLabel(c.Request.Context(), id, fieldID, req.Label)
	if err != nil {
		writeError(c, h.logger, "UpdateLabel", err)
		return
	}
	c.JSON(http.StatusOK, draftJSON(b))
}

// RemoveField handles DELETE /api/forms/drafts/:id/fields/:fieldId
func (h *FormHandler) RemoveField(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	fieldID, ok := pathID(c, "fieldId")
	if !ok {
		return
	}
	b, err := h.forms.RemoveField(c.Request.Context(), id, fieldID)
	if err != nil {
		writeError(c, h.logger, "RemoveField", err)
		return
	}
	c.JSON(http.StatusOK, draftJSON(b))
}

// SaveDraft handles POST /api/forms/drafts/:id/save
func (h *FormHandler) SaveDraft(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}

	form, err := h.forms.SaveDraft(c.Request.Context(), id, req.Title)
	if err != nil {
		writeError(c, h.logger, "SaveDraft", err)
		return
	}

	h.logger.Info("SaveDraft: success",
		zap.String("form_id", form.ID),
		zap.Int("field_count", len(form.Fields)),
	)
	c.JSON(http.StatusCreated, gin.H{
		"form":       form,
		"share_path": "/forms/" + form.ID,
		"message":    "Form saved successfully!",
	})
}

// ListForms handles GET /api/forms
func (h *FormHandler) ListForms(c *gin.Context) {
	forms, err := h.forms.List(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "ListForms", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"forms": forms})
}
