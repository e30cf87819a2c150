package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/questhive/questhive/llm"
	"github.com/questhive/questhive/registry"
	"github.com/questhive/questhive/types"
	"go.uber.org/zap"
)

// ContentType selects the emergent-content synthesis strategy.
type ContentType string

const (
	TypeRelationship ContentType = "relationship"
	TypeLore         ContentType = "lore"
	TypeDialogue     ContentType = "dialogue"
	TypeQuest        ContentType = "quest"
)

// Relationship is the classified dynamic between an unordered agent pair.
type Relationship struct {
	AgentA   string `json:"agent_a"`
	AgentB   string `json:"agent_b"`
	Kind     string `json:"kind"` // friendly | conflicted | neutral
	Positive int    `json:"positive"`
	Negative int    `json:"negative"`
	Neutral  int    `json:"neutral"`
}

// LoreFragment is a message flagged as world lore, tagged with its speaker.
type LoreFragment struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// DialogueNode is one node of the synthesized dialogue tree. The current
// stage emits a single linear chain; Next is empty on the last node.
type DialogueNode struct {
	ID      string `json:"id"`
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Next    string `json:"next,omitempty"`
}

// Quest is a structured quest skeleton synthesized from a transcript.
type Quest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Objectives  []string `json:"objectives"`
	Rewards     []string `json:"rewards,omitempty"`
	NPCs        []string `json:"npcs,omitempty"`
}

// EmergentContent is the union of synthesis outputs; exactly the field for
// the requested type is populated.
type EmergentContent struct {
	Type          ContentType    `json:"type"`
	Relationships []Relationship `json:"relationships,omitempty"`
	Lore          []LoreFragment `json:"lore,omitempty"`
	Dialogue      []DialogueNode `json:"dialogue,omitempty"`
	Quest         *Quest         `json:"quest,omitempty"`
}

// Synthesizer derives emergent content from a finished transcript.
// Dispatch is a strategy table keyed by ContentType.
type Synthesizer struct {
	reg        *registry.Registry
	gen        llm.Generator
	logger     *zap.Logger
	strategies map[ContentType]func(ctx context.Context, msgs []types.Message) (*EmergentContent, error)
}

// NewSynthesizer creates a synthesizer over the session registry.
func NewSynthesizer(reg *registry.Registry, gen llm.Generator, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Synthesizer{
		reg:    reg,
		gen:    gen,
		logger: logger.With(zap.String("component", "synthesizer")),
	}
	s.strategies = map[ContentType]func(ctx context.Context, msgs []types.Message) (*EmergentContent, error){
		TypeRelationship: s.synthesizeRelationships,
		TypeLore:         s.synthesizeLore,
		TypeDialogue:     s.synthesizeDialogue,
		TypeQuest:        s.synthesizeQuest,
	}
	return s
}

// Synthesize runs the strategy for the requested type. Unknown types fall
// back to dialogue.
func (s *Synthesizer) Synthesize(ctx context.Context, t ContentType, msgs []types.Message) (*EmergentContent, error) {
	strategy, ok := s.strategies[t]
	if !ok {
		strategy = s.synthesizeDialogue
	}
	return strategy(ctx, msgs)
}

// Sentiment keyword lists for relationship voting.
var (
	positiveWords = []string{"agree", "yes", "wonderful", "friend", "thank", "glad", "love", "great", "together", "trust", "help"}
	negativeWords = []string{"no", "never", "fool", "enemy", "hate", "wrong", "refuse", "liar", "fight", "betray", "curse"}
)

// synthesizeRelationships classifies each adjacent message pair by keyword
// sentiment of the responding message and accumulates per unordered-pair
// counters. friendly: positive > negative and positive > 40% of total.
// conflicted: negative > positive and negative > 30% of total. else neutral.
func (s *Synthesizer) synthesizeRelationships(_ context.Context, msgs []types.Message) (*EmergentContent, error) {
	type counts struct{ pos, neg, neu int }
	pairs := map[[2]string]*counts{}

	for i := 1; i < len(msgs); i++ {
		a, b := msgs[i-1].AgentName, msgs[i].AgentName
		if a == b {
			continue
		}
		key := [2]string{a, b}
		if key[0] > key[1] {
			key[0], key[1] = key[1], key[0]
		}
		c, ok := pairs[key]
		if !ok {
			c = &counts{}
			pairs[key] = c
		}
		switch classifySentiment(msgs[i].Content) {
		case 1:
			c.pos++
		case -1:
			c.neg++
		default:
			c.neu++
		}
	}

	keys := make([][2]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})

	out := &EmergentContent{Type: TypeRelationship}
	for _, k := range keys {
		c := pairs[k]
		total := c.pos + c.neg + c.neu
		kind := "neutral"
		switch {
		case c.pos > c.neg && float64(c.pos) > 0.4*float64(total):
			kind = "friendly"
		case c.neg > c.pos && float64(c.neg) > 0.3*float64(total):
			kind = "conflicted"
		}
		out.Relationships = append(out.Relationships, Relationship{
			AgentA: k[0], AgentB: k[1], Kind: kind,
			Positive: c.pos, Negative: c.neg, Neutral: c.neu,
		})
	}
	return out, nil
}

// classifySentiment votes a message positive (1), negative (-1) or
// neutral (0) by keyword majority.
func classifySentiment(text string) int {
	lower := strings.ToLower(text)
	var pos, neg int
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			pos++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			neg++
		}
	}
	switch {
	case pos > neg:
		return 1
	case neg > pos:
		return -1
	}
	return 0
}

var loreRe = regexp.MustCompile(`(?i)\b(ago|once|legend|history|ancient)\b|\d+\s+years`)

// synthesizeLore flags messages matching temporal/historical patterns as
// lore fragments tagged with their speaker.
func (s *Synthesizer) synthesizeLore(_ context.Context, msgs []types.Message) (*EmergentContent, error) {
	out := &EmergentContent{Type: TypeLore}
	for _, m := range msgs {
		if loreRe.MatchString(m.Content) {
			out.Lore = append(out.Lore, LoreFragment{Speaker: m.AgentName, Text: m.Content})
		}
	}
	return out, nil
}

// synthesizeDialogue converts the linear message sequence into a chain of
// dialogue-tree nodes. No branching is synthesized at this stage.
func (s *Synthesizer) synthesizeDialogue(_ context.Context, msgs []types.Message) (*EmergentContent, error) {
	out := &EmergentContent{Type: TypeDialogue}
	for i, m := range msgs {
		node := DialogueNode{
			ID:      fmt.Sprintf("node_%d", i+1),
			Speaker: m.AgentName,
			Text:    m.Content,
		}
		if i < len(msgs)-1 {
			node.Next = fmt.Sprintf("node_%d", i+2)
		}
		out.Dialogue = append(out.Dialogue, node)
	}
	return out, nil
}

const questPrompt = `Below is a conversation between game characters. Synthesize a quest from it.

%s

Respond with ONLY a JSON object:
{"title": "...", "description": "...", "objectives": ["..."], "rewards": ["..."], "npcs": ["..."]}`

// synthesizeQuest issues one extra Generator call asking the first
// registered agent to produce a structured quest. Malformed output falls
// back to a minimal synthetic quest built from the raw messages.
func (s *Synthesizer) synthesizeQuest(ctx context.Context, msgs []types.Message) (*EmergentContent, error) {
	out := &EmergentContent{Type: TypeQuest}

	agents := s.reg.Agents()
	if len(agents) > 0 {
		req := &llm.Request{
			Prompt:       fmt.Sprintf(questPrompt, transcript(msgs)),
			SystemPrompt: agents[0].SystemPrompt,
			Temperature:  0.4,
		}
		text, err := s.gen.Generate(ctx, req)
		if err == nil {
			if q := parseQuest(text); q != nil {
				out.Quest = q
				return out, nil
			}
			s.logger.Debug("quest output malformed, using fallback")
		} else {
			s.logger.Warn("quest synthesis call failed", zap.Error(llm.WrapFailure(err)))
		}
	}

	out.Quest = fallbackQuest(msgs)
	return out, nil
}

func parseQuest(text string) *Quest {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil
	}
	var q Quest
	if err := json.Unmarshal([]byte(text[start:end+1]), &q); err != nil {
		return nil
	}
	if q.Title == "" {
		return nil
	}
	return &q
}

// fallbackQuest builds a minimal quest straight from the message list.
func fallbackQuest(msgs []types.Message) *Quest {
	q := &Quest{Title: "An Unexpected Errand", Description: "A task that emerged from conversation."}
	seen := map[string]bool{}
	for _, m := range msgs {
		if !seen[m.AgentName] {
			seen[m.AgentName] = true
			q.NPCs = append(q.NPCs, m.AgentName)
		}
	}
	if len(msgs) > 0 {
		q.Description = truncate(msgs[0].Content, 200)
		q.Objectives = append(q.Objectives, fmt.Sprintf("Speak with %s", msgs[0].AgentName))
	}
	return q
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
