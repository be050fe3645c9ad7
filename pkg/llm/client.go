// Package llm provides a client for interacting with Large Language Models.
package llm

import (
	"context"
	"fmt"
	"io"

	"dead-inside-go/internal/config"

	"github.com/sashabaranov/go-openai"
)

// Message 表示一条角色消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client defines the interface for an LLM client.
type Client interface {
	// ChatJSON 以 role-based 消息调用聊天接口，并要求模型返回 JSON 对象文本。
	ChatJSON(ctx context.Context, messages []Message) (string, error)
	// Transcribe 将音频文件转写为文本。
	Transcribe(ctx context.Context, filePath string) (string, error)
	// Speech 将文本合成为音频字节，voice 必须是合法的语音标识。
	Speech(ctx context.Context, text, voice, instructions string) ([]byte, error)
}

type openaiClient struct {
	cfg    config.OpenAIConfig
	client *openai.Client
}

// NewClient creates a new LLM client based on the config.
func NewClient(cfg config.OpenAIConfig) Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &openaiClient{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientCfg),
	}
}

// ChatJSON 调用聊天补全接口并强制 JSON 输出格式。
func (c *openaiClient) ChatJSON(ctx context.Context, messages []Message) (string, error) {
	oaMsgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		oaMsgs = append(oaMsgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.cfg.ChatModel,
		Messages: oaMsgs,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Transcribe 调用语音转写接口。
func (c *openaiClient) Transcribe(ctx context.Context, filePath string) (string, error) {
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.cfg.SpeechToTextModel,
		FilePath: filePath,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create transcription: %w", err)
	}
	return resp.Text, nil
}

// Speech 调用语音合成接口并返回完整音频字节。
func (c *openaiClient) Speech(ctx context.Context, text, voice, instructions string) ([]byte, error) {
	resp, err := c.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:        openai.SpeechModel(c.cfg.TextToSpeechModel),
		Input:        text,
		Voice:        openai.SpeechVoice(voice),
		Instructions: instructions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create speech: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read speech response: %w", err)
	}
	return audio, nil
}
