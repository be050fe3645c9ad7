// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"time"

	"dead-inside-go/internal/model"
	"dead-inside-go/internal/repository"
	"dead-inside-go/pkg/log"
)

// ConversationService 定义了会话查询与清理的业务接口。
type ConversationService interface {
	List(ctx context.Context) ([]model.ConversationSummary, error)
	Get(ctx context.Context, conversationID string) (*model.Conversation, error)
	Delete(ctx context.Context, conversationID string) error
	DeleteAll(ctx context.Context) (int64, error)
	// CleanupEnded 删除已结束且超过保留时长的会话，返回删除数量。
	CleanupEnded(ctx context.Context, retention time.Duration) (int, error)
}

type conversationService struct {
	repo repository.ConversationRepository
}

// NewConversationService 创建一个新的 ConversationService。
func NewConversationService(repo repository.ConversationRepository) ConversationService {
	return &conversationService{repo: repo}
}

// List 返回全部会话摘要，按更新时间倒序。
func (s *conversationService) List(ctx context.Context) ([]model.ConversationSummary, error) {
	return s.repo.List(ctx)
}

// Get 获取单个会话的完整状态。
func (s *conversationService) Get(ctx context.Context, conversationID string) (*model.Conversation, error) {
	return s.repo.Get(ctx, conversationID)
}

// Delete 删除单个会话。
func (s *conversationService) Delete(ctx context.Context, conversationID string) error {
	return s.repo.Delete(ctx, conversationID)
}

// DeleteAll 批量删除全部会话，管理端操作。
func (s *conversationService) DeleteAll(ctx context.Context) (int64, error) {
	return s.repo.DeleteAll(ctx)
}

// CleanupEnded 由定时任务调用：扫描摘要，删除过期的已结束会话。
func (s *conversationService) CleanupEnded(ctx context.Context, retention time.Duration) (int, error) {
	summaries, err := s.repo.List(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-retention)
	deleted := 0
	for _, summary := range summaries {
		if !summary.SessionEnded || summary.UpdatedAt.After(cutoff) {
			continue
		}
		if err := s.repo.Delete(ctx, summary.ID); err != nil {
			log.Warnf("清理过期会话失败: %s, err=%v", summary.ID, err)
			continue
		}
		deleted++
	}
	return deleted, nil
}
