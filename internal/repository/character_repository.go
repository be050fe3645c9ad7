// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"dead-inside-go/internal/apperr"
	"dead-inside-go/internal/model"

	"github.com/go-redis/redis/v8"
)

const (
	characterKeyPrefix = "character:"
	characterListKey   = "characters:list"
)

// CharacterRepository 定义了角色存储的操作接口。
type CharacterRepository interface {
	Save(ctx context.Context, character *model.Character) error
	Get(ctx context.Context, characterID string) (*model.Character, error)
	List(ctx context.Context) ([]model.Character, error)
	Delete(ctx context.Context, characterID string) error
}

type redisCharacterRepository struct {
	redisClient *redis.Client
}

// NewCharacterRepository 创建一个新的 CharacterRepository 实例。
func NewCharacterRepository(redisClient *redis.Client) CharacterRepository {
	return &redisCharacterRepository{redisClient: redisClient}
}

func characterKey(characterID string) string {
	return characterKeyPrefix + characterID
}

// Save 持久化角色并将其 id 加入集合索引。
func (r *redisCharacterRepository) Save(ctx context.Context, character *model.Character) error {
	jsonData, err := json.Marshal(character)
	if err != nil {
		return fmt.Errorf("failed to marshal character: %w", err)
	}
	if err := r.redisClient.Set(ctx, characterKey(character.ID), jsonData, 0).Err(); err != nil {
		return fmt.Errorf("failed to set character: %w", err)
	}
	if err := r.redisClient.SAdd(ctx, characterListKey, character.ID).Err(); err != nil {
		return fmt.Errorf("failed to index character id: %w", err)
	}
	return nil
}

// Get 按 id 获取角色。
func (r *redisCharacterRepository) Get(ctx context.Context, characterID string) (*model.Character, error) {
	jsonData, err := r.redisClient.Get(ctx, characterKey(characterID)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: character %s", apperr.ErrNotFound, characterID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get character: %w", err)
	}
	var character model.Character
	if err := json.Unmarshal([]byte(jsonData), &character); err != nil {
		return nil, fmt.Errorf("failed to unmarshal character: %w", err)
	}
	return &character, nil
}

// List 返回集合索引中的全部角色。
func (r *redisCharacterRepository) List(ctx context.Context) ([]model.Character, error) {
	ids, err := r.redisClient.SMembers(ctx, characterListKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list character ids: %w", err)
	}
	characters := make([]model.Character, 0, len(ids))
	for _, id := range ids {
		character, getErr := r.Get(ctx, id)
		if getErr != nil {
			// 索引里可能残留已删除的 id，跳过
			continue
		}
		characters = append(characters, *character)
	}
	return characters, nil
}

// Delete 删除角色并从集合索引中移除其 id。
func (r *redisCharacterRepository) Delete(ctx context.Context, characterID string) error {
	n, err := r.redisClient.Del(ctx, characterKey(characterID)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete character: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: character %s", apperr.ErrNotFound, characterID)
	}
	if err := r.redisClient.SRem(ctx, characterListKey, characterID).Err(); err != nil {
		return fmt.Errorf("failed to unindex character id: %w", err)
	}
	return nil
}
