// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"crypto/subtle"
	"net/http"

	"dead-inside-go/internal/config"
	"dead-inside-go/pkg/log"
	"dead-inside-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// AuthHandler 负责处理管理端认证相关的 API 请求。
type AuthHandler struct {
	jwtManager *token.JWTManager
}

// NewAuthHandler 创建一个新的 AuthHandler 实例。
func NewAuthHandler(jwtManager *token.JWTManager) *AuthHandler {
	return &AuthHandler{jwtManager: jwtManager}
}

// TokenRequest 定义了换取管理端 token API 的请求体结构。
type TokenRequest struct {
	Secret string `json:"secret" binding:"required"`
}

// Token 处理用管理端共享密钥换取 JWT 的请求。
func (h *AuthHandler) Token(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Token: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载：secret 不能为空", "data": nil})
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(config.Conf.Admin.Secret)) != 1 {
		log.Warnf("Token: Admin secret mismatch from %s", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效的管理密钥", "data": nil})
		return
	}

	tokenString, err := h.jwtManager.GenerateToken("ADMIN")
	if err != nil {
		log.Errorf("Token: Failed to generate token, error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "生成 token 失败", "data": nil})
		return
	}

	respondOK(c, gin.H{"token": tokenString})
}
