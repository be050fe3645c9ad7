// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"

	"dead-inside-go/internal/service"
	"dead-inside-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// ConversationHandler 处理与会话相关的 API 请求。
type ConversationHandler struct {
	conversationService service.ConversationService
	sessionService      service.SessionService
}

// NewConversationHandler 创建一个新的 ConversationHandler。
func NewConversationHandler(conversationService service.ConversationService, sessionService service.SessionService) *ConversationHandler {
	return &ConversationHandler{
		conversationService: conversationService,
		sessionService:      sessionService,
	}
}

// TurnRequest 定义了推进一轮回合 API 的请求体结构。
// message 为空表示开场回合，conversation_id 为空表示开始新会话。
type TurnRequest struct {
	CharacterID    string `json:"character_id" binding:"required"`
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

// CreateTurn 处理推进一轮回合的请求。
func (h *ConversationHandler) CreateTurn(c *gin.Context) {
	var req TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("CreateTurn: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载：character_id 不能为空", "data": nil})
		return
	}

	result, err := h.sessionService.Advance(c.Request.Context(), req.CharacterID, req.ConversationID, req.Message)
	if err != nil {
		log.Errorf("CreateTurn: Failed to advance conversation, error: %v", err)
		respondError(c, err)
		return
	}
	respondOK(c, result)
}

// List 处理获取全部会话摘要的请求。
func (h *ConversationHandler) List(c *gin.Context) {
	summaries, err := h.conversationService.List(c.Request.Context())
	if err != nil {
		log.Errorf("List: Failed to list conversations, error: %v", err)
		respondError(c, err)
		return
	}
	respondOK(c, summaries)
}

// Get 处理获取单个会话完整内容的请求。
func (h *ConversationHandler) Get(c *gin.Context) {
	conversation, err := h.conversationService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, conversation)
}

// Delete 处理删除单个会话的请求。
func (h *ConversationHandler) Delete(c *gin.Context) {
	if err := h.conversationService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}
