// Package tasks defines the structure for events that are sent to Kafka.
package tasks

import "time"

// 会话事件类型。
const (
	EventTurnCompleted = "turn_completed"
	EventSessionEnded  = "session_ended"
)

// SessionEvent represents one conversation turn outcome published to Kafka.
type SessionEvent struct {
	Type            string    `json:"type"`
	ConversationID  string    `json:"conversation_id"`
	CharacterID     string    `json:"character_id"`
	EmotionalChange int       `json:"emotional_change"`
	EmotionalState  int       `json:"emotional_state"`
	Timestamp       time.Time `json:"timestamp"`
}
