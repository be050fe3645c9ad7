// Package model 包含了应用的数据模型定义。
package model

import "time"

// ArchiveDocument 代表归档到 Elasticsearch 的已结束会话文档。
type ArchiveDocument struct {
	ConversationID string    `json:"conversation_id"`
	CharacterID    string    `json:"character_id"`
	CharacterName  string    `json:"character_name"`
	Title          string    `json:"title"`
	Transcript     string    `json:"transcript"`
	MessageCount   int       `json:"message_count"`
	FinalState     int       `json:"final_state"`
	EndedAt        time.Time `json:"ended_at"`
}

// ArchiveSearchHit 定义了归档检索返回给前端的结果结构。
type ArchiveSearchHit struct {
	ConversationID string  `json:"conversationId"`
	CharacterName  string  `json:"characterName"`
	Title          string  `json:"title"`
	Snippet        string  `json:"snippet"`
	FinalState     int     `json:"finalState"`
	Score          float64 `json:"score"`
}
