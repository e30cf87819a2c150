package conversation

import (
	"fmt"
	"strings"
	"testing"

	"github.com/questhive/questhive/types"
	"github.com/stretchr/testify/assert"
)

func TestPromptBuilder_SystemPrompt(t *testing.T) {
	b := NewPromptBuilder(0, nil)

	t.Run("explicit system prompt wins", func(t *testing.T) {
		a := &types.Agent{Name: "Loretta", Role: "bard", SystemPrompt: "custom prompt"}
		assert.Equal(t, "custom prompt", b.SystemPrompt(a))
	})

	t.Run("persona fields are rendered", func(t *testing.T) {
		a := &types.Agent{
			Name: "Loretta", Role: "bard",
			Persona: types.Persona{
				Personality: "wry",
				Goals:       []string{"earn coin"},
				Specialties: []string{"songs", "rumors"},
			},
		}
		p := b.SystemPrompt(a)
		assert.Contains(t, p, "You are Loretta, a bard.")
		assert.Contains(t, p, "Personality: wry")
		assert.Contains(t, p, "Specialties: songs, rumors")
		assert.Contains(t, p, EndMarker)
	})
}

func TestPromptBuilder_TurnPrompt(t *testing.T) {
	t.Run("history window keeps the last five messages", func(t *testing.T) {
		b := NewPromptBuilder(0, nil)
		var history []types.Message
		for i := 1; i <= 8; i++ {
			history = append(history, types.Message{Round: i, AgentName: "A", Content: fmt.Sprintf("line %d", i)})
		}

		p := b.TurnPrompt("Scene text.", history)
		assert.NotContains(t, p, "line 3")
		assert.Contains(t, p, "line 4")
		assert.Contains(t, p, "line 8")
	})

	t.Run("token budget drops oldest messages first", func(t *testing.T) {
		b := NewPromptBuilder(40, nil)
		long := strings.Repeat("many words of filler dialogue ", 10)
		history := []types.Message{
			{Round: 1, AgentName: "A", Content: long},
			{Round: 2, AgentName: "B", Content: "short closing line"},
		}

		p := b.TurnPrompt("Scene.", history)
		assert.NotContains(t, p, long)
		assert.Contains(t, p, "short closing line")
	})

	t.Run("empty history still renders the scene", func(t *testing.T) {
		b := NewPromptBuilder(0, nil)
		p := b.TurnPrompt("Opening scene.", nil)
		assert.Contains(t, p, "Opening scene.")
		assert.NotContains(t, p, "Recent conversation")
	})
}

func TestPromptBuilder_CountTokens(t *testing.T) {
	b := NewPromptBuilder(0, nil)
	assert.Greater(t, b.CountTokens("a few words of english text"), 0)
	assert.Zero(t, b.CountTokens(""))
}
