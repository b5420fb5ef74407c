package handler

import (
	"net/http"

	"omniops/internal/render"
	"omniops/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const IdempotencyHeader = "Idempotency-Key"

type SubmissionHandler struct {
	submissions *service.SubmissionService
	forms       *service.FormService
	logger      *zap.Logger
}

func NewSubmissionHandler(submissions *service.SubmissionService, forms *service.FormService, logger *zap.Logger) *SubmissionHandler {
	return &SubmissionHandler{submissions: submissions, forms: forms, logger: logger}
}

// Inbox handles GET /api/submissions
func (h *SubmissionHandler) Inbox(c *gin.Context) {
	subs, err := h.submissions.Inbox(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "Inbox", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": subs})
}

// View handles GET /api/submissions/:id
func (h *SubmissionHandler) View(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := h.submissions.View(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, "ViewSubmission", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// PublicForm handles GET /forms/:id
func (h *SubmissionHandler) PublicForm(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	form, err := h.forms.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, "PublicForm", err)
		return
	}
	c.JSON(http.StatusOK, render.Form(form))
}

// Submit handles POST /forms/:id/submissions
func (h *SubmissionHandler) Submit(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var data map[string]any
	if err := c.ShouldBindJSON(&data); err != nil || data == nil {
		badRequest(c, "answers must be a JSON object")
		return
	}

	h.logger.Info("Submit request received",
		zap.String("form_id", id),
		zap.Int("answer_count", len(data)),
		zap.String("client_ip", c.ClientIP()),
	)

	sub, dup, err := h.submissions.Submit(c.Request.Context(), id, data, c.GetHeader(IdempotencyHeader))
	if err != nil {
		writeError(c, h.logger, "Submit", err)
		return
	}
	if dup {
		c.JSON(http.StatusOK, gin.H{"duplicate": true, "message": "Thank you! Your response has been recorded."})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"submission": sub, "message": "Thank you! Your response has been recorded."})
}
