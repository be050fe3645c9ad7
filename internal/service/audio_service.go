// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"dead-inside-go/internal/apperr"
	"dead-inside-go/internal/config"
	"dead-inside-go/internal/repository"
	"dead-inside-go/internal/voice"
	"dead-inside-go/pkg/llm"
	"dead-inside-go/pkg/log"
	"dead-inside-go/pkg/storage"
)

// 合成文本的长度上限。
const maxSynthesisTextLen = 4000

// AudioService 定义了语音透传适配的业务接口。
// 无状态、单次调用委托，仅负责错误翻译与语音选取。
type AudioService interface {
	// Transcribe 将指定路径的音频转写为文本。
	Transcribe(ctx context.Context, audioPath string) (string, error)
	// Synthesize 以角色的语音设定合成文本，写入 outputPath 并返回该路径。
	Synthesize(ctx context.Context, text, characterID, outputPath string) (string, error)
}

type audioService struct {
	characterRepo repository.CharacterRepository
	llmClient     llm.Client
	archiveAudio  bool
}

// NewAudioService 创建一个新的 AudioService 实例。
// archiveAudio 开启时，成功合成的音频会尽力归档到 MinIO。
func NewAudioService(characterRepo repository.CharacterRepository, llmClient llm.Client, archiveAudio bool) AudioService {
	return &audioService{
		characterRepo: characterRepo,
		llmClient:     llmClient,
		archiveAudio:  archiveAudio,
	}
}

// Transcribe 校验路径后委托转写能力。
func (s *audioService) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return "", fmt.Errorf("%w: %s", apperr.ErrAudioNotFound, audioPath)
	}
	text, err := s.llmClient.Transcribe(ctx, audioPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrTranscriptionFailure, err)
	}
	return text, nil
}

// Synthesize 取出角色的语音设定，必要时用语音映射修复，再委托合成能力。
func (s *audioService) Synthesize(ctx context.Context, text, characterID, outputPath string) (string, error) {
	if text == "" {
		return "", fmt.Errorf("%w: text must not be empty", apperr.ErrSynthesisFailure)
	}
	if len(text) > maxSynthesisTextLen {
		return "", fmt.Errorf("%w: text too long (max %d characters)", apperr.ErrSynthesisFailure, maxSynthesisTextLen)
	}

	character, err := s.characterRepo.Get(ctx, characterID)
	if err != nil {
		return "", err
	}
	voiceSelection := character.VoiceSelection
	if !voice.InFixedSet(voiceSelection) {
		// 存量角色可能缺失或带有非法语音标识，此处修复
		voiceSelection = voice.Select(character.Gender, character.Name+character.Background)
	}

	audio, err := s.llmClient.Speech(ctx, text, voiceSelection, character.VoiceInstructions)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrSynthesisFailure, err)
	}

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return "", fmt.Errorf("%w: cannot create output directory: %v", apperr.ErrSynthesisFailure, err)
		}
	}
	if err := os.WriteFile(outputPath, audio, 0o644); err != nil {
		return "", fmt.Errorf("%w: cannot write output file: %v", apperr.ErrSynthesisFailure, err)
	}

	if s.archiveAudio {
		objectName := fmt.Sprintf("%s/%s", characterID, filepath.Base(outputPath))
		if err := storage.PutAudio(ctx, config.Conf.MinIO.BucketName, objectName, audio); err != nil {
			// 归档属于尽力而为，失败不影响合成结果
			log.Warnf("归档合成音频失败: %s, err=%v", objectName, err)
		}
	}

	return outputPath, nil
}
