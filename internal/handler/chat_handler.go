// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"encoding/json"
	"net/http"

	"dead-inside-go/internal/service"
	"dead-inside-go/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// ChatHandler 负责处理 WebSocket 实时会话连接。
// 客户端发送一条发言，服务端回写一条回合结果。
type ChatHandler struct {
	conversationService service.ConversationService
	sessionService      service.SessionService
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(conversationService service.ConversationService, sessionService service.SessionService) *ChatHandler {
	return &ChatHandler{
		conversationService: conversationService,
		sessionService:      sessionService,
	}
}

// wsError 是回写给客户端的错误消息结构。
type wsError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// Handle 处理一个传入的 WebSocket 连接。
// 路径参数指定会话，连接期间每条文本消息推进一轮回合。
func (h *ChatHandler) Handle(c *gin.Context) {
	conversationID := c.Param("conversationId")
	conversation, err := h.conversationService.Get(c.Request.Context(), conversationID)
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("WebSocket 会话连接已建立: %s", conversationID)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warnf("从 WebSocket 读取消息失败: %v", err)
			break
		}

		result, err := h.sessionService.Advance(c.Request.Context(), conversation.CharacterID, conversationID, string(message))
		if err != nil {
			log.Errorf("WebSocket 回合推进失败: conversation=%s, error: %v", conversationID, err)
			b, _ := json.Marshal(wsError{Type: "error", Error: err.Error()})
			_ = conn.WriteMessage(websocket.TextMessage, b)
			continue
		}

		b, err := json.Marshal(result)
		if err != nil {
			log.Errorf("序列化回合结果失败: %v", err)
			break
		}
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Warnf("向 WebSocket 写入消息失败: %v", err)
			break
		}

		// 会话触及端点后不再接受新回合，关闭连接
		if result.SessionEnded {
			log.Infof("会话已结束，关闭 WebSocket 连接: %s", conversationID)
			break
		}
	}
}
