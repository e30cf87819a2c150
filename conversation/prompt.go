package conversation

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	"github.com/questhive/questhive/types"
	"go.uber.org/zap"
)

// historyWindow is how many trailing messages a turn prompt includes.
const historyWindow = 5

// PromptBuilder renders turn prompts under a token budget. Token counting
// uses tiktoken when the encoding is available and falls back to a
// bytes/4 estimate otherwise.
type PromptBuilder struct {
	encoding  *tiktoken.Tiktoken
	maxTokens int
	logger    *zap.Logger
}

// NewPromptBuilder creates a builder with the given prompt token budget
// (0 disables trimming).
func NewPromptBuilder(maxTokens int, logger *zap.Logger) *PromptBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &PromptBuilder{maxTokens: maxTokens, logger: logger.With(zap.String("component", "prompt_builder"))}

	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		b.logger.Warn("tiktoken encoding unavailable, using byte estimate", zap.Error(err))
	} else {
		b.encoding = enc
	}
	return b
}

// CountTokens returns the token count of text, estimated when no encoding
// is loaded.
func (b *PromptBuilder) CountTokens(text string) int {
	if b.encoding == nil {
		return len(text) / 4
	}
	return len(b.encoding.Encode(text, nil, nil))
}

// SystemPrompt renders the persona-bound system prompt for an agent.
func (b *PromptBuilder) SystemPrompt(a *types.Agent) string {
	if a.SystemPrompt != "" {
		return a.SystemPrompt
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s, a %s.\n", a.Name, a.Role)
	if a.Persona.Personality != "" {
		fmt.Fprintf(&sb, "Personality: %s\n", a.Persona.Personality)
	}
	if a.Persona.Background != "" {
		fmt.Fprintf(&sb, "Background: %s\n", a.Persona.Background)
	}
	if len(a.Persona.Goals) > 0 {
		fmt.Fprintf(&sb, "Goals: %s\n", strings.Join(a.Persona.Goals, "; "))
	}
	if len(a.Persona.Specialties) > 0 {
		fmt.Fprintf(&sb, "Specialties: %s\n", strings.Join(a.Persona.Specialties, ", "))
	}
	sb.WriteString("Stay in character. Respond with your next line of dialogue or narration.\n")
	fmt.Fprintf(&sb, "If the scene has reached a natural conclusion, include %s.\n", EndMarker)
	sb.WriteString("If another character should take over, include [HANDOFF: reason].\n")
	return sb.String()
}

// TurnPrompt renders the prompt for one conversation turn: the current
// context plus the last messages of the shared history. When a token budget
// is set, the oldest window messages are dropped first to fit.
func (b *PromptBuilder) TurnPrompt(contextText string, history []types.Message) string {
	window := history
	if len(window) > historyWindow {
		window = window[len(window)-historyWindow:]
	}

	prompt := b.render(contextText, window)
	if b.maxTokens <= 0 {
		return prompt
	}

	for len(window) > 0 && b.CountTokens(prompt) > b.maxTokens {
		window = window[1:]
		prompt = b.render(contextText, window)
	}
	return prompt
}

func (b *PromptBuilder) render(contextText string, window []types.Message) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Scene: %s\n", contextText)
	if len(window) > 0 {
		sb.WriteString("\nRecent conversation:\n")
		for _, m := range window {
			fmt.Fprintf(&sb, "%s: %s\n", m.AgentName, m.Content)
		}
	}
	sb.WriteString("\nYour turn.")
	return sb.String()
}
