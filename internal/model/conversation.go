// Package model 包含了应用的数据模型定义。
package model

import "time"

// 对话消息的角色取值。
const (
	RoleUser      = "user"
	RoleCharacter = "character"
)

// 情绪状态的取值边界，50 为会话创建时的中性基线。
const (
	EmotionalStateMin     = 0
	EmotionalStateMax     = 100
	EmotionalStateNeutral = 50
)

// ChatMessage 代表存储在 Redis 中的单条对话消息。
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // "user" 或 "character"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation 代表一次治疗会话的完整状态。
// Messages 只增不减；EmotionalState 仅由会话引擎更新，每轮一次。
type Conversation struct {
	ID             string        `json:"id"`
	CharacterID    string        `json:"character_id"`
	Title          string        `json:"title"`
	Messages       []ChatMessage `json:"messages"`
	EmotionalState int           `json:"emotional_state"`
	SessionEnded   bool          `json:"session_ended"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// ConversationSummary 是会话列表接口返回的摘要视图。
type ConversationSummary struct {
	ID             string    `json:"id"`
	CharacterID    string    `json:"character_id"`
	Title          string    `json:"title"`
	MessageCount   int       `json:"message_count"`
	EmotionalState int       `json:"emotional_state"`
	SessionEnded   bool      `json:"session_ended"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Summary 生成会话的摘要视图。
func (c *Conversation) Summary() ConversationSummary {
	return ConversationSummary{
		ID:             c.ID,
		CharacterID:    c.CharacterID,
		Title:          c.Title,
		MessageCount:   len(c.Messages),
		EmotionalState: c.EmotionalState,
		SessionEnded:   c.SessionEnded,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}
