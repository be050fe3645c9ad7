// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"dead-inside-go/internal/apperr"
	"dead-inside-go/internal/config"
	"dead-inside-go/internal/model"
	"dead-inside-go/internal/repository"
	"dead-inside-go/pkg/llm"
	"dead-inside-go/pkg/log"
	"dead-inside-go/pkg/tasks"

	"github.com/google/uuid"
)

// 单轮情绪增量的约束区间，模型输出越界时收敛到边界。
const (
	MinEmotionalChange = -10
	MaxEmotionalChange = 10
)

// TurnResult 是一轮回合推进后的完整结果。
type TurnResult struct {
	ConversationID  string    `json:"conversation_id"`
	MessageID       string    `json:"message_id"`
	Response        string    `json:"response"`
	Timestamp       time.Time `json:"timestamp"`
	EmotionalChange int       `json:"emotional_change"`
	EmotionalState  int       `json:"emotional_state"`
	SessionEnded    bool      `json:"session_ended"`
}

// EventPublisher 将回合事件发布到消息队列，失败不影响回合结果。
type EventPublisher func(event tasks.SessionEvent) error

// SessionService 定义了会话回合引擎的接口。
type SessionService interface {
	// Advance 推进一轮回合。utterance 为空表示开场回合：
	// 角色主动开口，不追加用户消息，情绪增量固定为 0。
	// conversationID 为空时为该角色惰性创建新会话。
	Advance(ctx context.Context, characterID, conversationID, utterance string) (*TurnResult, error)
}

type sessionService struct {
	characterRepo    repository.CharacterRepository
	conversationRepo repository.ConversationRepository
	llmClient        llm.Client
	publish          EventPublisher
}

// NewSessionService 创建一个新的 SessionService 实例。
func NewSessionService(characterRepo repository.CharacterRepository, conversationRepo repository.ConversationRepository, llmClient llm.Client, publish EventPublisher) SessionService {
	return &sessionService{
		characterRepo:    characterRepo,
		conversationRepo: conversationRepo,
		llmClient:        llmClient,
		publish:          publish,
	}
}

// turnPayload 是模型单轮输出的结构。
type turnPayload struct {
	Response        string `json:"response"`
	EmotionalChange *int   `json:"emotional_change"`
}

// Advance 实现回合状态机：校验状态、构建提示词、单次模型调用、
// 收敛情绪增量、原子提交。任何失败都不落盘。
func (s *sessionService) Advance(ctx context.Context, characterID, conversationID, utterance string) (*TurnResult, error) {
	character, err := s.characterRepo.Get(ctx, characterID)
	if err != nil {
		return nil, err
	}

	var conv *model.Conversation
	if conversationID == "" {
		conv, err = s.conversationRepo.Create(ctx, character.ID)
	} else {
		conv, err = s.conversationRepo.Get(ctx, conversationID)
	}
	if err != nil {
		return nil, err
	}

	// 单会话回合串行：拿不到锁说明已有回合在途
	release, err := s.conversationRepo.AcquireTurnLock(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	if conv.SessionEnded {
		return nil, fmt.Errorf("%w: conversation %s already ended", apperr.ErrInvalidState, conv.ID)
	}

	openingMove := strings.TrimSpace(utterance) == ""
	messages := s.composeMessages(character, conv, utterance, openingMove)

	content, err := s.llmClient.ChatJSON(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrEngineFailure, err)
	}

	var payload turnPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("%w: unparseable model output: %v", apperr.ErrEngineFailure, err)
	}
	if payload.Response == "" {
		return nil, fmt.Errorf("%w: model returned empty response", apperr.ErrEngineFailure)
	}
	if payload.EmotionalChange == nil {
		return nil, fmt.Errorf("%w: model returned no emotional_change", apperr.ErrEngineFailure)
	}

	// 开场回合尚无用户动作，增量固定为 0
	change := clampChange(*payload.EmotionalChange)
	if openingMove {
		change = 0
	}
	newState, ended := ClampAndSeal(conv.EmotionalState, change)

	now := time.Now().UTC()
	var turnMessages []model.ChatMessage
	if !openingMove {
		turnMessages = append(turnMessages, model.ChatMessage{
			ID:        uuid.NewString(),
			Role:      model.RoleUser,
			Content:   utterance,
			Timestamp: now,
		})
	}
	characterMessage := model.ChatMessage{
		ID:        uuid.NewString(),
		Role:      model.RoleCharacter,
		Content:   payload.Response,
		Timestamp: now,
	}
	turnMessages = append(turnMessages, characterMessage)

	// 消息与情绪状态在仓储层单次原子写提交
	conv, err = s.conversationRepo.AppendTurn(ctx, conv.ID, turnMessages, newState, ended)
	if err != nil {
		return nil, err
	}

	s.publishEvent(conv, change)

	return &TurnResult{
		ConversationID:  conv.ID,
		MessageID:       characterMessage.ID,
		Response:        payload.Response,
		Timestamp:       characterMessage.Timestamp,
		EmotionalChange: change,
		EmotionalState:  conv.EmotionalState,
		SessionEnded:    conv.SessionEnded,
	}, nil
}

// publishEvent 尽力而为地发布回合事件，失败只记录日志。
func (s *sessionService) publishEvent(conv *model.Conversation, change int) {
	if s.publish == nil {
		return
	}
	eventType := tasks.EventTurnCompleted
	if conv.SessionEnded {
		eventType = tasks.EventSessionEnded
	}
	event := tasks.SessionEvent{
		Type:            eventType,
		ConversationID:  conv.ID,
		CharacterID:     conv.CharacterID,
		EmotionalChange: change,
		EmotionalState:  conv.EmotionalState,
		Timestamp:       time.Now().UTC(),
	}
	if err := s.publish(event); err != nil {
		log.Errorf("发布会话事件失败: conversation=%s, error: %v", conv.ID, err)
	}
}

// composeMessages 编码角色设定与最近历史，末尾附上本轮指令。
func (s *sessionService) composeMessages(character *model.Character, conv *model.Conversation, utterance string, openingMove bool) []llm.Message {
	window := config.Conf.Session.HistoryWindow
	if window <= 0 {
		window = 20
	}
	history := conv.Messages
	if len(history) > window {
		history = history[len(history)-window:]
	}

	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{Role: "system", Content: buildPersonaPrompt(character, conv.EmotionalState)})
	for _, m := range history {
		role := "assistant"
		if m.Role == model.RoleUser {
			role = "user"
		}
		msgs = append(msgs, llm.Message{Role: role, Content: m.Content})
	}
	if openingMove {
		msgs = append(msgs, llm.Message{Role: "user", Content: openingMoveInstruction})
	} else {
		msgs = append(msgs, llm.Message{Role: "user", Content: utterance})
	}
	return msgs
}

// buildPersonaPrompt 将角色档案与当前情绪状态编码为 system 提示词。
func buildPersonaPrompt(character *model.Character, emotionalState int) string {
	var sb strings.Builder
	sb.WriteString("You are role-playing a character in a therapy session. Stay in character.\n\n")
	sb.WriteString(fmt.Sprintf("Name: %s\n", character.Name))
	sb.WriteString(fmt.Sprintf("Background: %s\n", character.Background))
	sb.WriteString(fmt.Sprintf("Problem: %s\n", character.Problem))
	if character.ProblemDescription != "" {
		sb.WriteString(fmt.Sprintf("Problem description: %s\n", character.ProblemDescription))
	}
	sb.WriteString(fmt.Sprintf("Mental state: %s\n", character.MentalState))
	sb.WriteString(fmt.Sprintf("Interaction warning: %s\n", character.InteractionWarning))
	if character.VoiceInstructions != "" {
		sb.WriteString(fmt.Sprintf("Speaking tone: %s\n", character.VoiceInstructions))
	}
	sb.WriteString(fmt.Sprintf("\nCurrent emotional state: %d/100 (0 = completely enraged, 100 = fully satisfied).\n", emotionalState))
	sb.WriteString(fmt.Sprintf(`
The user is your therapist. Respond in character, then judge how their last
message affected you: supportive moves raise your disposition, distressing or
harmful ones lower it. Respond with a JSON object:
{"response": "<what you say>", "emotional_change": <integer %d..%d>}`,
		MinEmotionalChange, MaxEmotionalChange))
	return sb.String()
}

const openingMoveInstruction = "(The session is just starting. Open the conversation with your unprompted first statement, in character. There is no therapist message to react to, so report emotional_change as 0.)"

// clampChange 将模型给出的情绪增量收敛到允许区间。
func clampChange(change int) int {
	if change < MinEmotionalChange {
		return MinEmotionalChange
	}
	if change > MaxEmotionalChange {
		return MaxEmotionalChange
	}
	return change
}

// ClampAndSeal 对情绪状态应用增量：结果收敛到 [0,100]，
// 触及任一端点即判定会话结束。所有回合路径共用此函数。
func ClampAndSeal(state, change int) (newState int, ended bool) {
	newState = state + change
	if newState < model.EmotionalStateMin {
		newState = model.EmotionalStateMin
	}
	if newState > model.EmotionalStateMax {
		newState = model.EmotionalStateMax
	}
	ended = newState == model.EmotionalStateMin || newState == model.EmotionalStateMax
	return newState, ended
}
