// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"

	"dead-inside-go/internal/service"
	"dead-inside-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// InteractHandler 负责处理语音驱动的回合交互请求。
// 把转写与回合推进合并为一次调用。
type InteractHandler struct {
	audioService   service.AudioService
	sessionService service.SessionService
}

// NewInteractHandler 创建一个新的 InteractHandler 实例。
func NewInteractHandler(audioService service.AudioService, sessionService service.SessionService) *InteractHandler {
	return &InteractHandler{
		audioService:   audioService,
		sessionService: sessionService,
	}
}

// InteractRequest 定义了语音交互 API 的请求体结构。
// audio_file_path 为空表示没有用户语音，走开场回合。
type InteractRequest struct {
	CharacterID    string `json:"character_id" binding:"required"`
	ConversationID string `json:"conversation_id"`
	AudioFilePath  string `json:"audio_file_path"`
}

// InteractResponse 是语音交互的完整结果。
type InteractResponse struct {
	Transcription string              `json:"transcription"`
	Turn          *service.TurnResult `json:"turn"`
}

// Interact 处理一轮语音回合：先转写用户语音，再推进会话。
func (h *InteractHandler) Interact(c *gin.Context) {
	var req InteractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Interact: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载：character_id 不能为空", "data": nil})
		return
	}

	transcription := ""
	if req.AudioFilePath != "" {
		text, err := h.audioService.Transcribe(c.Request.Context(), req.AudioFilePath)
		if err != nil {
			log.Errorf("Interact: Failed to transcribe audio, error: %v", err)
			respondError(c, err)
			return
		}
		transcription = text
	}

	result, err := h.sessionService.Advance(c.Request.Context(), req.CharacterID, req.ConversationID, transcription)
	if err != nil {
		log.Errorf("Interact: Failed to advance conversation, error: %v", err)
		respondError(c, err)
		return
	}

	respondOK(c, InteractResponse{Transcription: transcription, Turn: result})
}
