// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"

	"dead-inside-go/internal/service"
	"dead-inside-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// AudioHandler 负责处理语音转写与合成的 API 请求。
type AudioHandler struct {
	audioService service.AudioService
}

// NewAudioHandler 创建一个新的 AudioHandler 实例。
func NewAudioHandler(audioService service.AudioService) *AudioHandler {
	return &AudioHandler{audioService: audioService}
}

// TranscribeRequest 定义了语音转写 API 的请求体结构。
type TranscribeRequest struct {
	Filepath string `json:"filepath" binding:"required"`
}

// Transcribe 处理语音转文字的请求。
func (h *AudioHandler) Transcribe(c *gin.Context) {
	var req TranscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Transcribe: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载：filepath 不能为空", "data": nil})
		return
	}

	text, err := h.audioService.Transcribe(c.Request.Context(), req.Filepath)
	if err != nil {
		log.Errorf("Transcribe: Failed to transcribe audio, error: %v", err)
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"transcription": text})
}

// SynthesizeRequest 定义了语音合成 API 的请求体结构。
type SynthesizeRequest struct {
	Text           string `json:"text" binding:"required"`
	CharacterID    string `json:"character_id" binding:"required"`
	StoredFilePath string `json:"stored_file_path" binding:"required"`
}

// Synthesize 处理文字转语音的请求，以角色的语音设定合成。
func (h *AudioHandler) Synthesize(c *gin.Context) {
	var req SynthesizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Synthesize: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载", "data": nil})
		return
	}

	path, err := h.audioService.Synthesize(c.Request.Context(), req.Text, req.CharacterID, req.StoredFilePath)
	if err != nil {
		log.Errorf("Synthesize: Failed to synthesize speech, error: %v", err)
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"audio_path": path})
}
