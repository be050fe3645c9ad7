package pipeline

import (
	"testing"

	"dead-inside-go/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestBuildTranscript(t *testing.T) {
	messages := []model.ChatMessage{
		{Role: model.RoleCharacter, Content: "I don't know where to start."},
		{Role: model.RoleUser, Content: "Take your time."},
		{Role: model.RoleCharacter, Content: "It began last winter."},
	}

	transcript := buildTranscript(messages)
	assert.Equal(t,
		"character: I don't know where to start.\n"+
			"user: Take your time.\n"+
			"character: It began last winter.\n",
		transcript)
}

func TestBuildTranscriptEmpty(t *testing.T) {
	assert.Equal(t, "", buildTranscript(nil))
}
