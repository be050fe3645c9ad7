// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"

	"dead-inside-go/internal/apperr"

	"github.com/gin-gonic/gin"
)

// statusFromError 将业务错误翻译为 HTTP 状态码。
func statusFromError(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrAudioNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrGenerationFailure),
		errors.Is(err, apperr.ErrEngineFailure),
		errors.Is(err, apperr.ErrTranscriptionFailure),
		errors.Is(err, apperr.ErrSynthesisFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError 按统一的响应信封返回业务错误。
func respondError(c *gin.Context, err error) {
	status := statusFromError(err)
	c.JSON(status, gin.H{"code": status, "message": err.Error(), "data": nil})
}

// respondOK 按统一的响应信封返回成功数据。
func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": data})
}
