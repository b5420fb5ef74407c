package handler

import (
	"net/http"

	"omniops/pkg/apperr"
	"omniops/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// writeError 把错误统一成 {"error", "code", "notify"}
func writeError(c *gin.Context, log *zap.Logger, op string, err error) {
	appErr := apperr.Classify(err)
	status := appErr.HTTPStatus()

	l := logger.WithTrace(c.Request.Context(), log)
	if status >= http.StatusInternalServerError {
		l.Error(op+": failed", zap.String("code", appErr.Code), zap.Error(err))
	} else {
		l.Warn(op+": rejected", zap.String("code", appErr.Code), zap.String("reason", appErr.Message))
	}

	c.JSON(status, gin.H{
		"error":  appErr.Message,
		"code":   appErr.Code,
		"notify": appErr.Notify(),
	})
}

// pathID 校验路径中的 uuid；格式不对直接按不存在处理
func pathID(c *gin.Context, name string) (string, bool) {
	raw := c.Param(name)
	if _, err := uuid.Parse(raw); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": name + " not found", "code": "not_found", "notify": true})
		return "", false
	}
	return raw, true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": "invalid_request", "notify": true})
}
