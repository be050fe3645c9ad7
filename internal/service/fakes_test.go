package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"dead-inside-go/internal/apperr"
	"dead-inside-go/internal/model"
	"dead-inside-go/pkg/llm"

	"github.com/google/uuid"
)

// fakeLLM 是 llm.Client 的内存实现，按序吐出预设应答并记录调用。
type fakeLLM struct {
	chatReplies      []string
	chatErr          error
	chatCalls        [][]llm.Message
	transcript       string
	transcribeErr    error
	speech           []byte
	speechErr        error
	lastVoice        string
	lastInstructions string
}

func (f *fakeLLM) ChatJSON(ctx context.Context, messages []llm.Message) (string, error) {
	f.chatCalls = append(f.chatCalls, messages)
	if f.chatErr != nil {
		return "", f.chatErr
	}
	if len(f.chatReplies) == 0 {
		return "", fmt.Errorf("fakeLLM: no reply configured")
	}
	reply := f.chatReplies[0]
	if len(f.chatReplies) > 1 {
		f.chatReplies = f.chatReplies[1:]
	}
	return reply, nil
}

func (f *fakeLLM) Transcribe(ctx context.Context, filePath string) (string, error) {
	if f.transcribeErr != nil {
		return "", f.transcribeErr
	}
	return f.transcript, nil
}

func (f *fakeLLM) Speech(ctx context.Context, text, voice, instructions string) ([]byte, error) {
	f.lastVoice = voice
	f.lastInstructions = instructions
	if f.speechErr != nil {
		return nil, f.speechErr
	}
	return f.speech, nil
}

// fakeCharacterRepo 是 CharacterRepository 的内存实现。
type fakeCharacterRepo struct {
	characters map[string]*model.Character
}

func newFakeCharacterRepo(characters ...*model.Character) *fakeCharacterRepo {
	repo := &fakeCharacterRepo{characters: make(map[string]*model.Character)}
	for _, c := range characters {
		repo.characters[c.ID] = c
	}
	return repo
}

func (r *fakeCharacterRepo) Save(ctx context.Context, character *model.Character) error {
	r.characters[character.ID] = character
	return nil
}

func (r *fakeCharacterRepo) Get(ctx context.Context, characterID string) (*model.Character, error) {
	c, ok := r.characters[characterID]
	if !ok {
		return nil, fmt.Errorf("%w: character %s", apperr.ErrNotFound, characterID)
	}
	copied := *c
	return &copied, nil
}

func (r *fakeCharacterRepo) List(ctx context.Context) ([]model.Character, error) {
	out := make([]model.Character, 0, len(r.characters))
	for _, c := range r.characters {
		out = append(out, *c)
	}
	return out, nil
}

func (r *fakeCharacterRepo) Delete(ctx context.Context, characterID string) error {
	if _, ok := r.characters[characterID]; !ok {
		return fmt.Errorf("%w: character %s", apperr.ErrNotFound, characterID)
	}
	delete(r.characters, characterID)
	return nil
}

// fakeConversationRepo 是 ConversationRepository 的内存实现，
// 行为与 Redis 实现对齐：快照语义、回合锁、结束后拒写。
type fakeConversationRepo struct {
	conversations map[string]*model.Conversation
	locks         map[string]bool
}

func newFakeConversationRepo(conversations ...*model.Conversation) *fakeConversationRepo {
	repo := &fakeConversationRepo{
		conversations: make(map[string]*model.Conversation),
		locks:         make(map[string]bool),
	}
	for _, c := range conversations {
		repo.conversations[c.ID] = c
	}
	return repo
}

func (r *fakeConversationRepo) Create(ctx context.Context, characterID string) (*model.Conversation, error) {
	now := time.Now().UTC()
	conv := &model.Conversation{
		ID:             uuid.NewString(),
		CharacterID:    characterID,
		Messages:       []model.ChatMessage{},
		EmotionalState: model.EmotionalStateNeutral,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.conversations[conv.ID] = conv
	return conv, nil
}

func (r *fakeConversationRepo) Get(ctx context.Context, conversationID string) (*model.Conversation, error) {
	conv, ok := r.conversations[conversationID]
	if !ok {
		return nil, fmt.Errorf("%w: conversation %s", apperr.ErrNotFound, conversationID)
	}
	copied := *conv
	copied.Messages = append([]model.ChatMessage{}, conv.Messages...)
	return &copied, nil
}

func (r *fakeConversationRepo) List(ctx context.Context) ([]model.ConversationSummary, error) {
	summaries := make([]model.ConversationSummary, 0, len(r.conversations))
	for _, conv := range r.conversations {
		summaries = append(summaries, conv.Summary())
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}

func (r *fakeConversationRepo) AppendTurn(ctx context.Context, conversationID string, messages []model.ChatMessage, emotionalState int, ended bool) (*model.Conversation, error) {
	conv, ok := r.conversations[conversationID]
	if !ok {
		return nil, fmt.Errorf("%w: conversation %s", apperr.ErrNotFound, conversationID)
	}
	if conv.SessionEnded {
		return nil, fmt.Errorf("%w: conversation %s already ended", apperr.ErrInvalidState, conversationID)
	}
	conv.Messages = append(conv.Messages, messages...)
	conv.EmotionalState = emotionalState
	conv.SessionEnded = ended
	conv.UpdatedAt = time.Now().UTC()
	return r.Get(ctx, conversationID)
}

func (r *fakeConversationRepo) Delete(ctx context.Context, conversationID string) error {
	if _, ok := r.conversations[conversationID]; !ok {
		return fmt.Errorf("%w: conversation %s", apperr.ErrNotFound, conversationID)
	}
	delete(r.conversations, conversationID)
	return nil
}

func (r *fakeConversationRepo) DeleteAll(ctx context.Context) (int64, error) {
	n := int64(len(r.conversations))
	r.conversations = make(map[string]*model.Conversation)
	return n, nil
}

func (r *fakeConversationRepo) AcquireTurnLock(ctx context.Context, conversationID string) (func(), error) {
	if r.locks[conversationID] {
		return nil, fmt.Errorf("%w: another turn is in flight for conversation %s", apperr.ErrInvalidState, conversationID)
	}
	r.locks[conversationID] = true
	return func() { delete(r.locks, conversationID) }, nil
}
