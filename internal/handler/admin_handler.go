// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"
	"strconv"

	"dead-inside-go/internal/service"
	"dead-inside-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// AdminHandler 负责处理所有与管理员相关的 API 请求。
type AdminHandler struct {
	conversationService service.ConversationService
	archiveService      service.ArchiveService
}

// NewAdminHandler 创建一个新的 AdminHandler 实例。
func NewAdminHandler(conversationService service.ConversationService, archiveService service.ArchiveService) *AdminHandler {
	return &AdminHandler{
		conversationService: conversationService,
		archiveService:      archiveService,
	}
}

// Cleanup 处理批量删除全部会话的请求。
func (h *AdminHandler) Cleanup(c *gin.Context) {
	deleted, err := h.conversationService.DeleteAll(c.Request.Context())
	if err != nil {
		log.Errorf("Cleanup: Failed to delete conversations, error: %v", err)
		respondError(c, err)
		return
	}
	log.Infof("Admin cleanup removed %d conversations", deleted)
	respondOK(c, gin.H{"deleted": deleted})
}

// SearchArchive 处理在归档索引中检索已结束会话的请求。
func (h *AdminHandler) SearchArchive(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "query 参数不能为空", "data": nil})
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))

	hits, err := h.archiveService.Search(c.Request.Context(), query, size)
	if err != nil {
		log.Errorf("SearchArchive: Failed to search archive, error: %v", err)
		respondError(c, err)
		return
	}
	respondOK(c, hits)
}
