// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"dead-inside-go/internal/apperr"
	"dead-inside-go/internal/model"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	conversationKeyPrefix = "conversation:"
	turnLockKeyPrefix     = "conversation:lock:"
	turnLockTTL           = 2 * time.Minute
)

// ConversationRepository 定义了会话存储的操作接口。
// AppendTurn 将一轮消息与情绪状态作为单次原子写提交；
// 配合 AcquireTurnLock，保证每个会话同一时刻至多一轮在途。
type ConversationRepository interface {
	Create(ctx context.Context, characterID string) (*model.Conversation, error)
	Get(ctx context.Context, conversationID string) (*model.Conversation, error)
	List(ctx context.Context) ([]model.ConversationSummary, error)
	AppendTurn(ctx context.Context, conversationID string, messages []model.ChatMessage, emotionalState int, ended bool) (*model.Conversation, error)
	Delete(ctx context.Context, conversationID string) error
	DeleteAll(ctx context.Context) (int64, error)
	AcquireTurnLock(ctx context.Context, conversationID string) (release func(), err error)
}

type redisConversationRepository struct {
	redisClient *redis.Client
}

// NewConversationRepository 创建一个新的 ConversationRepository 实例。
func NewConversationRepository(redisClient *redis.Client) ConversationRepository {
	return &redisConversationRepository{redisClient: redisClient}
}

func conversationKey(conversationID string) string {
	return conversationKeyPrefix + conversationID
}

// Create 为指定角色初始化一个新的会话：情绪状态 50，未结束，空消息序列。
func (r *redisConversationRepository) Create(ctx context.Context, characterID string) (*model.Conversation, error) {
	now := time.Now().UTC()
	conv := &model.Conversation{
		ID:             uuid.NewString(),
		CharacterID:    characterID,
		Messages:       []model.ChatMessage{},
		EmotionalState: model.EmotionalStateNeutral,
		SessionEnded:   false,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := r.save(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// Get 从 Redis 获取完整的会话状态。
func (r *redisConversationRepository) Get(ctx context.Context, conversationID string) (*model.Conversation, error) {
	jsonData, err := r.redisClient.Get(ctx, conversationKey(conversationID)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: conversation %s", apperr.ErrNotFound, conversationID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	var conv model.Conversation
	if err := json.Unmarshal([]byte(jsonData), &conv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation: %w", err)
	}
	return &conv, nil
}

// List 返回全部会话的摘要，按更新时间倒序。
func (r *redisConversationRepository) List(ctx context.Context) ([]model.ConversationSummary, error) {
	keys, err := r.redisClient.Keys(ctx, conversationKeyPrefix+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to scan conversation keys: %w", err)
	}
	summaries := make([]model.ConversationSummary, 0, len(keys))
	for _, k := range keys {
		jsonData, getErr := r.redisClient.Get(ctx, k).Result()
		if getErr != nil {
			continue
		}
		var conv model.Conversation
		if err := json.Unmarshal([]byte(jsonData), &conv); err != nil {
			continue
		}
		summaries = append(summaries, conv.Summary())
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}

// AppendTurn 以单次 SET 提交一轮回合：追加消息并替换情绪状态与结束标志。
// 会话不存在返回 ErrNotFound；已结束返回 ErrInvalidState。
func (r *redisConversationRepository) AppendTurn(ctx context.Context, conversationID string, messages []model.ChatMessage, emotionalState int, ended bool) (*model.Conversation, error) {
	conv, err := r.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.SessionEnded {
		return nil, fmt.Errorf("%w: conversation %s already ended", apperr.ErrInvalidState, conversationID)
	}

	conv.Messages = append(conv.Messages, messages...)
	conv.EmotionalState = emotionalState
	conv.SessionEnded = ended
	conv.UpdatedAt = time.Now().UTC()
	if conv.Title == "" {
		for _, m := range conv.Messages {
			if m.Role == model.RoleUser {
				title := m.Content
				if len(title) > 30 {
					title = title[:30] + "..."
				}
				conv.Title = "Therapy Session: " + title
				break
			}
		}
	}

	if err := r.save(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// Delete 删除指定的会话。
func (r *redisConversationRepository) Delete(ctx context.Context, conversationID string) error {
	n, err := r.redisClient.Del(ctx, conversationKey(conversationID)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: conversation %s", apperr.ErrNotFound, conversationID)
	}
	return nil
}

// DeleteAll 批量删除全部会话，返回删除数量。管理端清理操作。
func (r *redisConversationRepository) DeleteAll(ctx context.Context) (int64, error) {
	keys, err := r.redisClient.Keys(ctx, conversationKeyPrefix+"*").Result()
	if err != nil {
		return 0, fmt.Errorf("failed to scan conversation keys: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	deleted, err := r.redisClient.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to delete conversations: %w", err)
	}
	return deleted, nil
}

// AcquireTurnLock 以 SETNX 获取会话级回合锁，保证单会话回合串行。
// 已有回合在途时返回 ErrInvalidState。
func (r *redisConversationRepository) AcquireTurnLock(ctx context.Context, conversationID string) (func(), error) {
	lockKey := turnLockKeyPrefix + conversationID
	ok, err := r.redisClient.SetNX(ctx, lockKey, 1, turnLockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire turn lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: another turn is in flight for conversation %s", apperr.ErrInvalidState, conversationID)
	}
	release := func() {
		_ = r.redisClient.Del(context.Background(), lockKey).Err()
	}
	return release, nil
}

func (r *redisConversationRepository) save(ctx context.Context, conv *model.Conversation) error {
	jsonData, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}
	if err := r.redisClient.Set(ctx, conversationKey(conv.ID), jsonData, 0).Err(); err != nil {
		return fmt.Errorf("failed to set conversation: %w", err)
	}
	return nil
}
