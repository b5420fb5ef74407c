package handler

import (
	"net/http"
	"strconv"

	"omniops/internal/activity"
	"omniops/pkg/apperr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultActivityLimit = 20

type ActivityHandler struct {
	feed   activity.Reader
	logger *zap.Logger
}

func NewActivityHandler(feed activity.Reader, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{feed: feed, logger: logger}
}

// Recent handles GET /api/activity?limit=
// 动态流读不到不影响仪表盘，返回空列表并标记 degraded
func (h *ActivityHandler) Recent(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultActivityLimit)))
	if err != nil || limit <= 0 {
		badRequest(c, "limit must be a positive integer")
		return
	}

	entries, err := h.feed.Recent(c.Request.Context(), limit)
	if err != nil {
		appErr := apperr.Recoverable("activity_unavailable", "activity feed unavailable", err)
		h.logger.Warn("Activity feed read failed", zap.Error(err))
		c.JSON(appErr.HTTPStatus(), gin.H{
			"activity": []activity.Entry{},
			"degraded": true,
			"notify":   appErr.Notify(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"activity": entries})
}
