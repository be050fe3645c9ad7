// Package pipeline 定义了会话归档的后台处理流程。
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"dead-inside-go/internal/config"
	"dead-inside-go/internal/model"
	"dead-inside-go/internal/repository"
	"dead-inside-go/pkg/es"
	"dead-inside-go/pkg/log"
	"dead-inside-go/pkg/tasks"
)

// Processor 消费会话事件：会话结束时将完整对话归档到 Elasticsearch。
type Processor struct {
	conversationRepo repository.ConversationRepository
	characterRepo    repository.CharacterRepository
	esCfg            config.ElasticsearchConfig
}

// NewProcessor 创建一个新的 Processor。
func NewProcessor(conversationRepo repository.ConversationRepository, characterRepo repository.CharacterRepository, esCfg config.ElasticsearchConfig) *Processor {
	return &Processor{
		conversationRepo: conversationRepo,
		characterRepo:    characterRepo,
		esCfg:            esCfg,
	}
}

// Process 实现 kafka.EventProcessor。只处理 session_ended 事件。
func (p *Processor) Process(ctx context.Context, event tasks.SessionEvent) error {
	if event.Type != tasks.EventSessionEnded {
		return nil
	}

	conv, err := p.conversationRepo.Get(ctx, event.ConversationID)
	if err != nil {
		return fmt.Errorf("加载待归档会话失败: %w", err)
	}

	characterName := ""
	if character, err := p.characterRepo.Get(ctx, conv.CharacterID); err == nil {
		characterName = character.Name
	} else {
		// 角色可能已被删除，归档仍然继续
		log.Warnf("归档时角色已不可用: %s, err=%v", conv.CharacterID, err)
	}

	doc := model.ArchiveDocument{
		ConversationID: conv.ID,
		CharacterID:    conv.CharacterID,
		CharacterName:  characterName,
		Title:          conv.Title,
		Transcript:     buildTranscript(conv.Messages),
		MessageCount:   len(conv.Messages),
		FinalState:     conv.EmotionalState,
		EndedAt:        conv.UpdatedAt,
	}

	if err := es.IndexArchive(ctx, p.esCfg.IndexName, doc); err != nil {
		return fmt.Errorf("归档会话到 Elasticsearch 失败: %w", err)
	}
	log.Infof("会话已归档: %s (final_state=%d)", conv.ID, conv.EmotionalState)
	return nil
}

// buildTranscript 将消息序列拼接为可检索的纯文本记录。
func buildTranscript(messages []model.ChatMessage) string {
	var sb strings.Builder
	for _, m := range messages {
		sb.WriteString(m.Role)
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}
