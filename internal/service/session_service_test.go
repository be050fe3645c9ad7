package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"dead-inside-go/internal/apperr"
	"dead-inside-go/internal/model"
	"dead-inside-go/pkg/tasks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCharacter() *model.Character {
	return &model.Character{
		ID:                 "char-1",
		Name:               "Mara",
		Background:         "retired lighthouse keeper",
		Problem:            "isolation",
		MentalState:        "withdrawn",
		InteractionWarning: "avoid sudden topic changes",
		Gender:             model.GenderFemale,
		VoiceSelection:     "coral",
	}
}

func seedConversation(repo *fakeConversationRepo, state int, ended bool, messages ...model.ChatMessage) *model.Conversation {
	now := time.Now().UTC()
	conv := &model.Conversation{
		ID:             "conv-1",
		CharacterID:    "char-1",
		Messages:       messages,
		EmotionalState: state,
		SessionEnded:   ended,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	repo.conversations[conv.ID] = conv
	return conv
}

func turnReply(response string, change int) string {
	return fmt.Sprintf(`{"response": %q, "emotional_change": %d}`, response, change)
}

func TestAdvanceLazilyCreatesConversation(t *testing.T) {
	characterRepo := newFakeCharacterRepo(testCharacter())
	conversationRepo := newFakeConversationRepo()
	client := &fakeLLM{chatReplies: []string{turnReply("I see.", -3)}}
	svc := NewSessionService(characterRepo, conversationRepo, client, nil)

	result, err := svc.Advance(context.Background(), "char-1", "", "How are you feeling today?")
	require.NoError(t, err)

	assert.NotEmpty(t, result.ConversationID)
	assert.Equal(t, -3, result.EmotionalChange)
	assert.Equal(t, 47, result.EmotionalState)
	assert.False(t, result.SessionEnded)

	conv, err := conversationRepo.Get(context.Background(), result.ConversationID)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, model.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, "How are you feeling today?", conv.Messages[0].Content)
	assert.Equal(t, model.RoleCharacter, conv.Messages[1].Role)
	assert.Equal(t, "I see.", conv.Messages[1].Content)
}

func TestAdvanceOpeningMove(t *testing.T) {
	characterRepo := newFakeCharacterRepo(testCharacter())
	conversationRepo := newFakeConversationRepo()
	// 模型即便给了非零增量，开场回合也必须归零
	client := &fakeLLM{chatReplies: []string{turnReply("So... you wanted to talk.", 7)}}
	svc := NewSessionService(characterRepo, conversationRepo, client, nil)

	result, err := svc.Advance(context.Background(), "char-1", "", "   ")
	require.NoError(t, err)

	assert.Equal(t, 0, result.EmotionalChange)
	assert.Equal(t, model.EmotionalStateNeutral, result.EmotionalState)
	assert.False(t, result.SessionEnded)

	conv, err := conversationRepo.Get(context.Background(), result.ConversationID)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, model.RoleCharacter, conv.Messages[0].Role)
}

func TestAdvanceSealsAtLowerBound(t *testing.T) {
	characterRepo := newFakeCharacterRepo(testCharacter())
	conversationRepo := newFakeConversationRepo()
	seedConversation(conversationRepo, 5, false)
	client := &fakeLLM{chatReplies: []string{turnReply("Get out.", -10)}}
	svc := NewSessionService(characterRepo, conversationRepo, client, nil)

	result, err := svc.Advance(context.Background(), "char-1", "conv-1", "You brought this on yourself.")
	require.NoError(t, err)

	assert.Equal(t, 0, result.EmotionalState)
	assert.True(t, result.SessionEnded)

	// 结束后的会话拒绝新回合，且不留任何痕迹
	conv, _ := conversationRepo.Get(context.Background(), "conv-1")
	before := len(conv.Messages)

	_, err = svc.Advance(context.Background(), "char-1", "conv-1", "Wait, come back.")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrInvalidState))

	conv, _ = conversationRepo.Get(context.Background(), "conv-1")
	assert.Len(t, conv.Messages, before)
	assert.Equal(t, 0, conv.EmotionalState)
}

func TestAdvanceClampsChangeAndSealsAtUpperBound(t *testing.T) {
	characterRepo := newFakeCharacterRepo(testCharacter())
	conversationRepo := newFakeConversationRepo()
	seedConversation(conversationRepo, 95, false)
	// 越界增量 +15 收敛为 +10，95+10 触顶 100
	client := &fakeLLM{chatReplies: []string{turnReply("That means everything to me.", 15)}}
	svc := NewSessionService(characterRepo, conversationRepo, client, nil)

	result, err := svc.Advance(context.Background(), "char-1", "conv-1", "You matter.")
	require.NoError(t, err)

	assert.Equal(t, MaxEmotionalChange, result.EmotionalChange)
	assert.Equal(t, model.EmotionalStateMax, result.EmotionalState)
	assert.True(t, result.SessionEnded)
}

func TestAdvanceProviderFailureLeavesStateIntact(t *testing.T) {
	characterRepo := newFakeCharacterRepo(testCharacter())
	conversationRepo := newFakeConversationRepo()
	seedConversation(conversationRepo, 40, false, model.ChatMessage{
		ID: "m1", Role: model.RoleCharacter, Content: "hello", Timestamp: time.Now().UTC(),
	})
	client := &fakeLLM{chatErr: errors.New("upstream timeout")}
	svc := NewSessionService(characterRepo, conversationRepo, client, nil)

	_, err := svc.Advance(context.Background(), "char-1", "conv-1", "Tell me more.")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrEngineFailure))

	conv, _ := conversationRepo.Get(context.Background(), "conv-1")
	assert.Len(t, conv.Messages, 1)
	assert.Equal(t, 40, conv.EmotionalState)
	assert.False(t, conv.SessionEnded)
}

func TestAdvanceRejectsUnparseableModelOutput(t *testing.T) {
	characterRepo := newFakeCharacterRepo(testCharacter())
	conversationRepo := newFakeConversationRepo()
	seedConversation(conversationRepo, 50, false)
	svc := NewSessionService(characterRepo, conversationRepo, &fakeLLM{chatReplies: []string{"not json"}}, nil)

	_, err := svc.Advance(context.Background(), "char-1", "conv-1", "hi")
	assert.True(t, errors.Is(err, apperr.ErrEngineFailure))

	// 缺失 emotional_change 同样拒绝
	svc = NewSessionService(characterRepo, conversationRepo, &fakeLLM{chatReplies: []string{`{"response": "ok"}`}}, nil)
	_, err = svc.Advance(context.Background(), "char-1", "conv-1", "hi")
	assert.True(t, errors.Is(err, apperr.ErrEngineFailure))

	conv, _ := conversationRepo.Get(context.Background(), "conv-1")
	assert.Empty(t, conv.Messages)
}

func TestAdvanceUnknownCharacter(t *testing.T) {
	svc := NewSessionService(newFakeCharacterRepo(), newFakeConversationRepo(), &fakeLLM{}, nil)

	_, err := svc.Advance(context.Background(), "missing", "", "hi")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestAdvanceRunsSessionToTermination(t *testing.T) {
	characterRepo := newFakeCharacterRepo(testCharacter())
	conversationRepo := newFakeConversationRepo()
	client := &fakeLLM{chatReplies: []string{
		turnReply("I don't want to talk about it.", -10),
		turnReply("Stop pushing me.", -10),
		turnReply("You sound just like the others.", -10),
		turnReply("I knew this was a mistake.", -10),
		turnReply("We're done here.", -10),
	}}
	svc := NewSessionService(characterRepo, conversationRepo, client, nil)

	first, err := svc.Advance(context.Background(), "char-1", "", "turn 1")
	require.NoError(t, err)
	conversationID := first.ConversationID

	states := []int{first.EmotionalState}
	for i := 2; i <= 5; i++ {
		result, err := svc.Advance(context.Background(), "char-1", conversationID, fmt.Sprintf("turn %d", i))
		require.NoError(t, err)
		states = append(states, result.EmotionalState)
		if i == 5 {
			assert.True(t, result.SessionEnded)
		} else {
			assert.False(t, result.SessionEnded)
		}
	}
	assert.Equal(t, []int{40, 30, 20, 10, 0}, states)
}

func TestAdvancePublishesSessionEvents(t *testing.T) {
	characterRepo := newFakeCharacterRepo(testCharacter())
	conversationRepo := newFakeConversationRepo()
	seedConversation(conversationRepo, 10, false)
	client := &fakeLLM{chatReplies: []string{turnReply("Leave.", -10)}}

	var events []tasks.SessionEvent
	publish := func(event tasks.SessionEvent) error {
		events = append(events, event)
		return nil
	}
	svc := NewSessionService(characterRepo, conversationRepo, client, publish)

	_, err := svc.Advance(context.Background(), "char-1", "conv-1", "whatever")
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, tasks.EventSessionEnded, events[0].Type)
	assert.Equal(t, "conv-1", events[0].ConversationID)
	assert.Equal(t, 0, events[0].EmotionalState)
}

func TestAdvancePublishFailureDoesNotFailTurn(t *testing.T) {
	characterRepo := newFakeCharacterRepo(testCharacter())
	conversationRepo := newFakeConversationRepo()
	seedConversation(conversationRepo, 50, false)
	client := &fakeLLM{chatReplies: []string{turnReply("Hm.", 2)}}
	publish := func(event tasks.SessionEvent) error { return errors.New("broker down") }
	svc := NewSessionService(characterRepo, conversationRepo, client, publish)

	result, err := svc.Advance(context.Background(), "char-1", "conv-1", "hi")
	require.NoError(t, err)
	assert.Equal(t, 52, result.EmotionalState)
}

func TestClampAndSeal(t *testing.T) {
	cases := []struct {
		state, change int
		wantState     int
		wantEnded     bool
	}{
		{50, 0, 50, false},
		{50, 10, 60, false},
		{50, -10, 40, false},
		{5, -10, 0, true},
		{0, 0, 0, true},
		{95, 10, 100, true},
		{100, 0, 100, true},
		{1, -1, 0, true},
		{99, 1, 100, true},
		{3, -100, 0, true},
		{98, 100, 100, true},
	}
	for _, tc := range cases {
		gotState, gotEnded := ClampAndSeal(tc.state, tc.change)
		assert.Equal(t, tc.wantState, gotState, "state %d change %d", tc.state, tc.change)
		assert.Equal(t, tc.wantEnded, gotEnded, "state %d change %d", tc.state, tc.change)
	}
}
