// Package apperr 定义了各组件边界统一使用的错误分类。
// 外部能力（模型、音频、存储）的失败在组件边界被翻译为这些哨兵值，
// 并通过 fmt.Errorf("%w: ...") 附带原始错误详情。
package apperr

import "errors"

var (
	// ErrNotFound 表示角色或会话不存在。
	ErrNotFound = errors.New("not found")
	// ErrInvalidState 表示在已结束的会话上执行了新的回合。
	ErrInvalidState = errors.New("invalid state")
	// ErrGenerationFailure 表示角色生成时模型调用或解析失败。
	ErrGenerationFailure = errors.New("generation failure")
	// ErrEngineFailure 表示会话回合推进时模型调用或解析失败。
	ErrEngineFailure = errors.New("engine failure")
	// ErrAudioNotFound 表示给定的音频路径无效。
	ErrAudioNotFound = errors.New("audio not found")
	// ErrTranscriptionFailure 表示语音转写失败。
	ErrTranscriptionFailure = errors.New("transcription failure")
	// ErrSynthesisFailure 表示语音合成或写出失败。
	ErrSynthesisFailure = errors.New("synthesis failure")
)
