// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"dead-inside-go/internal/apperr"
	"dead-inside-go/internal/model"
	"dead-inside-go/internal/voice"
	"dead-inside-go/pkg/llm"

	"github.com/google/uuid"
)

// 生成数量的约束区间，越界取值会被收敛到边界。
const (
	MinCharacterCount     = 3
	MaxCharacterCount     = 5
	DefaultCharacterCount = 3
)

// CharacterService 定义了角色生成与管理的业务接口。
type CharacterService interface {
	// Generate 依据主题生成 count 个结构化角色并返回，不负责持久化。
	Generate(ctx context.Context, theme string, count int) ([]model.Character, error)
}

type characterService struct {
	llmClient llm.Client
}

// NewCharacterService 创建一个新的 CharacterService 实例。
func NewCharacterService(llmClient llm.Client) CharacterService {
	return &characterService{llmClient: llmClient}
}

// rawCharacter 是模型输出的宽松视图：所有字段可缺失，解析后统一修复。
type rawCharacter struct {
	Name               string   `json:"name"`
	Background         string   `json:"background"`
	Problem            string   `json:"problem"`
	ProblemDescription string   `json:"problem_description"`
	MentalState        string   `json:"mental_state"`
	InteractionWarning string   `json:"interaction_warning"`
	Gender             string   `json:"gender"`
	VoiceInstructions  string   `json:"voice_instructions"`
	VoiceSelection     string   `json:"voice_selection"`
	Shirt              string   `json:"shirt"`
	Pants              string   `json:"pants"`
	BodyType           string   `json:"body_type"`
	Accessories        []string `json:"accessories"`
}

type generationPayload struct {
	Characters []rawCharacter `json:"characters"`
}

// Generate 构建单次生成提示词，解析并修复模型输出。
func (s *characterService) Generate(ctx context.Context, theme string, count int) ([]model.Character, error) {
	theme = strings.TrimSpace(theme)
	if theme == "" {
		return nil, fmt.Errorf("%w: theme must not be empty", apperr.ErrGenerationFailure)
	}
	count = clampCount(count)

	messages := []llm.Message{
		{Role: "system", Content: generationSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Theme: %s\nGenerate exactly %d characters.", theme, count)},
	}

	content, err := s.llmClient.ChatJSON(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrGenerationFailure, err)
	}

	var payload generationPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("%w: unparseable model output: %v", apperr.ErrGenerationFailure, err)
	}
	if len(payload.Characters) == 0 {
		return nil, fmt.Errorf("%w: model returned no characters", apperr.ErrGenerationFailure)
	}
	if len(payload.Characters) > count {
		payload.Characters = payload.Characters[:count]
	}

	characters := make([]model.Character, 0, len(payload.Characters))
	for _, raw := range payload.Characters {
		characters = append(characters, repairCharacter(raw))
	}
	return characters, nil
}

// clampCount 将请求数量收敛到允许区间；零值取默认。
func clampCount(count int) int {
	if count == 0 {
		return DefaultCharacterCount
	}
	if count < MinCharacterCount {
		return MinCharacterCount
	}
	if count > MaxCharacterCount {
		return MaxCharacterCount
	}
	return count
}

// repairCharacter 将模型的宽松输出修复为满足不变式的 Character：
// 未识别的性别归一为空、非法 voice_selection 由语音映射重算、配饰去重。
func repairCharacter(raw rawCharacter) model.Character {
	gender := model.Gender(strings.ToLower(strings.TrimSpace(raw.Gender)))
	if !model.ValidGender(gender) {
		gender = ""
	}

	voiceSelection := strings.ToLower(strings.TrimSpace(raw.VoiceSelection))
	if !voice.InFixedSet(voiceSelection) {
		voiceSelection = voice.Select(gender, raw.Name+raw.Background)
	}

	seen := make(map[string]bool, len(raw.Accessories))
	accessories := make([]string, 0, len(raw.Accessories))
	for _, a := range raw.Accessories {
		a = strings.TrimSpace(a)
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		accessories = append(accessories, a)
	}

	return model.Character{
		ID:                 uuid.NewString(),
		Name:               raw.Name,
		Background:         raw.Background,
		Problem:            raw.Problem,
		ProblemDescription: raw.ProblemDescription,
		MentalState:        raw.MentalState,
		InteractionWarning: raw.InteractionWarning,
		Gender:             gender,
		VoiceInstructions:  raw.VoiceInstructions,
		VoiceSelection:     voiceSelection,
		Shirt:              raw.Shirt,
		Pants:              raw.Pants,
		BodyType:           raw.BodyType,
		Accessories:        accessories,
		CreatedAt:          time.Now().UTC().Format(time.RFC3339),
	}
}

const generationSystemPrompt = `You are a character designer for a therapy simulation game.
Create fictional characters seeking therapy, consistent with the given theme.
Respond with a JSON object of the form:
{"characters": [{"name": "...", "background": "...", "problem": "...",
"problem_description": "...", "mental_state": "...", "interaction_warning": "...",
"gender": "male|female|nonbinary", "voice_instructions": "...",
"voice_selection": "ash|ballad|fable|coral|onyx|nova|shimmer|verse",
"shirt": "...", "pants": "...", "body_type": "...", "accessories": ["..."]}]}
Every field is required. voice_instructions describes the speaking tone for
speech synthesis. interaction_warning tells the therapist what to avoid.`
