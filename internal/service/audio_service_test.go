package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dead-inside-go/internal/apperr"
	"dead-inside-go/internal/voice"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscribeMissingFile(t *testing.T) {
	svc := NewAudioService(newFakeCharacterRepo(), &fakeLLM{}, false)

	_, err := svc.Transcribe(context.Background(), "/nonexistent/audio.wav")
	assert.True(t, errors.Is(err, apperr.ErrAudioNotFound))
}

func TestTranscribe(t *testing.T) {
	audioPath := filepath.Join(t.TempDir(), "utterance.wav")
	require.NoError(t, os.WriteFile(audioPath, []byte("fake-audio"), 0o644))

	svc := NewAudioService(newFakeCharacterRepo(), &fakeLLM{transcript: "hello there"}, false)
	text, err := svc.Transcribe(context.Background(), audioPath)
	require.NoError(t, err)
	assert.Equal(t, "hello there", text)
}

func TestTranscribeProviderFailure(t *testing.T) {
	audioPath := filepath.Join(t.TempDir(), "utterance.wav")
	require.NoError(t, os.WriteFile(audioPath, []byte("fake-audio"), 0o644))

	svc := NewAudioService(newFakeCharacterRepo(), &fakeLLM{transcribeErr: errors.New("boom")}, false)
	_, err := svc.Transcribe(context.Background(), audioPath)
	assert.True(t, errors.Is(err, apperr.ErrTranscriptionFailure))
}

func TestSynthesizeWritesAudioWithCharacterVoice(t *testing.T) {
	character := testCharacter()
	client := &fakeLLM{speech: []byte("mp3-bytes")}
	svc := NewAudioService(newFakeCharacterRepo(character), client, false)

	outputPath := filepath.Join(t.TempDir(), "out", "reply.mp3")
	path, err := svc.Synthesize(context.Background(), "I hear you.", character.ID, outputPath)
	require.NoError(t, err)
	assert.Equal(t, outputPath, path)
	assert.Equal(t, character.VoiceSelection, client.lastVoice)

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3-bytes"), data)
}

func TestSynthesizeRepairsInvalidVoice(t *testing.T) {
	character := testCharacter()
	character.VoiceSelection = "not-a-voice"
	client := &fakeLLM{speech: []byte("mp3-bytes")}
	svc := NewAudioService(newFakeCharacterRepo(character), client, false)

	outputPath := filepath.Join(t.TempDir(), "reply.mp3")
	_, err := svc.Synthesize(context.Background(), "I hear you.", character.ID, outputPath)
	require.NoError(t, err)
	assert.True(t, voice.InFixedSet(client.lastVoice))
}

func TestSynthesizeRejectsBadInput(t *testing.T) {
	character := testCharacter()
	svc := NewAudioService(newFakeCharacterRepo(character), &fakeLLM{}, false)

	_, err := svc.Synthesize(context.Background(), "", character.ID, "out.mp3")
	assert.True(t, errors.Is(err, apperr.ErrSynthesisFailure))

	_, err = svc.Synthesize(context.Background(), strings.Repeat("a", maxSynthesisTextLen+1), character.ID, "out.mp3")
	assert.True(t, errors.Is(err, apperr.ErrSynthesisFailure))
}

func TestSynthesizeUnknownCharacter(t *testing.T) {
	svc := NewAudioService(newFakeCharacterRepo(), &fakeLLM{}, false)

	_, err := svc.Synthesize(context.Background(), "hi", "missing", "out.mp3")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestSynthesizeProviderFailure(t *testing.T) {
	character := testCharacter()
	svc := NewAudioService(newFakeCharacterRepo(character), &fakeLLM{speechErr: errors.New("boom")}, false)

	_, err := svc.Synthesize(context.Background(), "hi", character.ID, filepath.Join(t.TempDir(), "out.mp3"))
	assert.True(t, errors.Is(err, apperr.ErrSynthesisFailure))
}
