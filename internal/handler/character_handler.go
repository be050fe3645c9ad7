// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"

	"dead-inside-go/internal/repository"
	"dead-inside-go/internal/service"
	"dead-inside-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// CharacterHandler 负责处理角色相关的 API 请求。
type CharacterHandler struct {
	characterService service.CharacterService
	characterRepo    repository.CharacterRepository
}

// NewCharacterHandler 创建一个新的 CharacterHandler 实例。
func NewCharacterHandler(characterService service.CharacterService, characterRepo repository.CharacterRepository) *CharacterHandler {
	return &CharacterHandler{
		characterService: characterService,
		characterRepo:    characterRepo,
	}
}

// GenerateCharactersRequest 定义了角色生成 API 的请求体结构。
type GenerateCharactersRequest struct {
	Theme         string `json:"theme" binding:"required"`
	NumCharacters int    `json:"num_characters"`
}

// Generate 处理生成一批新角色的请求，生成成功后逐个持久化。
func (h *CharacterHandler) Generate(c *gin.Context) {
	var req GenerateCharactersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Generate: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载：theme 不能为空", "data": nil})
		return
	}

	characters, err := h.characterService.Generate(c.Request.Context(), req.Theme, req.NumCharacters)
	if err != nil {
		log.Errorf("Generate: Failed to generate characters, error: %v", err)
		respondError(c, err)
		return
	}

	for i := range characters {
		if err := h.characterRepo.Save(c.Request.Context(), &characters[i]); err != nil {
			log.Errorf("Generate: Failed to persist character %s, error: %v", characters[i].ID, err)
			respondError(c, err)
			return
		}
	}

	log.Infof("Generated %d characters for theme %q", len(characters), req.Theme)
	respondOK(c, characters)
}

// List 处理获取全部角色列表的请求。
func (h *CharacterHandler) List(c *gin.Context) {
	characters, err := h.characterRepo.List(c.Request.Context())
	if err != nil {
		log.Errorf("List: Failed to list characters, error: %v", err)
		respondError(c, err)
		return
	}
	respondOK(c, characters)
}

// Get 处理获取单个角色的请求。
func (h *CharacterHandler) Get(c *gin.Context) {
	character, err := h.characterRepo.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, character)
}

// Delete 处理删除单个角色的请求。
func (h *CharacterHandler) Delete(c *gin.Context) {
	if err := h.characterRepo.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}
