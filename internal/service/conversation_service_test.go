package service

import (
	"context"
	"testing"
	"time"

	"dead-inside-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupEnded(t *testing.T) {
	repo := newFakeConversationRepo()
	now := time.Now().UTC()

	// 已结束且过期，应被清理
	repo.conversations["stale"] = &model.Conversation{
		ID: "stale", CharacterID: "c1", SessionEnded: true,
		EmotionalState: 0, UpdatedAt: now.Add(-100 * time.Hour),
	}
	// 已结束但仍在保留期内
	repo.conversations["recent-ended"] = &model.Conversation{
		ID: "recent-ended", CharacterID: "c1", SessionEnded: true,
		EmotionalState: 100, UpdatedAt: now.Add(-1 * time.Hour),
	}
	// 进行中的会话，无论多旧都保留
	repo.conversations["old-active"] = &model.Conversation{
		ID: "old-active", CharacterID: "c1", SessionEnded: false,
		EmotionalState: 42, UpdatedAt: now.Add(-200 * time.Hour),
	}

	svc := NewConversationService(repo)
	deleted, err := svc.CleanupEnded(context.Background(), 72*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = repo.Get(context.Background(), "stale")
	assert.Error(t, err)
	_, err = repo.Get(context.Background(), "recent-ended")
	assert.NoError(t, err)
	_, err = repo.Get(context.Background(), "old-active")
	assert.NoError(t, err)
}

func TestDeleteAll(t *testing.T) {
	repo := newFakeConversationRepo()
	repo.conversations["a"] = &model.Conversation{ID: "a"}
	repo.conversations["b"] = &model.Conversation{ID: "b"}

	svc := NewConversationService(repo)
	deleted, err := svc.DeleteAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	summaries, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summaries)
}
