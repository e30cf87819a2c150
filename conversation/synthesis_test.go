package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/questhive/questhive/llm"
	"github.com/questhive/questhive/registry"
	"github.com/questhive/questhive/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msgs(turns ...[2]string) []types.Message {
	out := make([]types.Message, len(turns))
	for i, t := range turns {
		out[i] = types.Message{Round: i + 1, AgentID: t[0], AgentName: t[0], Content: t[1]}
	}
	return out
}

func TestSynthesizer_Relationships(t *testing.T) {
	s := NewSynthesizer(registry.New(nil), &mockGenerator{}, nil)

	t.Run("friendly pair", func(t *testing.T) {
		history := msgs(
			[2]string{"A", "Shall we team up?"},
			[2]string{"B", "Yes, I agree, together we are stronger. You are a true friend."},
			[2]string{"A", "Wonderful! I trust you completely."},
			[2]string{"B", "Glad to hear it, friend."},
		)
		out, err := s.Synthesize(context.Background(), TypeRelationship, history)
		require.NoError(t, err)
		require.Len(t, out.Relationships, 1)
		rel := out.Relationships[0]
		assert.Equal(t, "friendly", rel.Kind)
		assert.Equal(t, 3, rel.Positive)
	})

	t.Run("conflicted pair", func(t *testing.T) {
		history := msgs(
			[2]string{"A", "Hand over the ledger."},
			[2]string{"B", "Never! You are a liar and a fool."},
			[2]string{"A", "I refuse to listen to this. You betray us all."},
		)
		out, err := s.Synthesize(context.Background(), TypeRelationship, history)
		require.NoError(t, err)
		require.Len(t, out.Relationships, 1)
		assert.Equal(t, "conflicted", out.Relationships[0].Kind)
	})

	t.Run("neutral by default", func(t *testing.T) {
		history := msgs(
			[2]string{"A", "The road east is muddy."},
			[2]string{"B", "The bridge was repaired last week."},
		)
		out, err := s.Synthesize(context.Background(), TypeRelationship, history)
		require.NoError(t, err)
		require.Len(t, out.Relationships, 1)
		assert.Equal(t, "neutral", out.Relationships[0].Kind)
	})

	t.Run("pair key is unordered", func(t *testing.T) {
		history := msgs(
			[2]string{"A", "morning"},
			[2]string{"B", "morning"},
			[2]string{"B", "still here"},
			[2]string{"A", "indeed"},
		)
		out, err := s.Synthesize(context.Background(), TypeRelationship, history)
		require.NoError(t, err)
		assert.Len(t, out.Relationships, 1)
	})
}

func TestSynthesizer_Lore(t *testing.T) {
	s := NewSynthesizer(registry.New(nil), &mockGenerator{}, nil)

	history := msgs(
		[2]string{"Elder", "Long ago, this valley burned for a month."},
		[2]string{"Guard", "Mind the step."},
		[2]string{"Elder", "The legend says a king sleeps under the lake."},
		[2]string{"Scribe", "It was 300 years past, by my records."},
		[2]string{"Guard", "It happened 40 years ago, not 300."},
	)
	out, err := s.Synthesize(context.Background(), TypeLore, history)
	require.NoError(t, err)
	require.Len(t, out.Lore, 4)
	assert.Equal(t, "Elder", out.Lore[0].Speaker)
	assert.Contains(t, out.Lore[1].Text, "legend")
	assert.Equal(t, "Guard", out.Lore[3].Speaker)
}

func TestSynthesizer_Dialogue(t *testing.T) {
	s := NewSynthesizer(registry.New(nil), &mockGenerator{}, nil)

	history := msgs(
		[2]string{"A", "one"},
		[2]string{"B", "two"},
		[2]string{"C", "three"},
	)
	out, err := s.Synthesize(context.Background(), TypeDialogue, history)
	require.NoError(t, err)
	require.Len(t, out.Dialogue, 3)
	assert.Equal(t, "node_1", out.Dialogue[0].ID)
	assert.Equal(t, "node_2", out.Dialogue[0].Next)
	assert.Equal(t, "node_3", out.Dialogue[1].Next)
	assert.Empty(t, out.Dialogue[2].Next, "linear chain ends without a next link")
}

func TestSynthesizer_Quest(t *testing.T) {
	reg := registry.New(nil)
	reg.Register(&types.Agent{ID: "gm", Name: "Narrator", Role: "narrator"})

	history := msgs(
		[2]string{"Narrator", "The caravan needs an escort."},
		[2]string{"Guard", "I can arrange papers."},
	)

	t.Run("well-formed generator output", func(t *testing.T) {
		gen := &mockGenerator{generateFn: func(ctx context.Context, req *llm.Request) (string, error) {
			return `Here you go: {"title":"Escort the Caravan","description":"Guard the salt caravan east.","objectives":["Reach the pass"],"rewards":["50 gold"],"npcs":["Narrator"]}`, nil
		}}
		s := NewSynthesizer(reg, gen, nil)

		out, err := s.Synthesize(context.Background(), TypeQuest, history)
		require.NoError(t, err)
		require.NotNil(t, out.Quest)
		assert.Equal(t, "Escort the Caravan", out.Quest.Title)
		assert.Equal(t, []string{"Reach the pass"}, out.Quest.Objectives)
	})

	t.Run("malformed output falls back to synthetic quest", func(t *testing.T) {
		gen := &mockGenerator{generateFn: func(ctx context.Context, req *llm.Request) (string, error) {
			return "I would rather describe it in prose, no JSON today.", nil
		}}
		s := NewSynthesizer(reg, gen, nil)

		out, err := s.Synthesize(context.Background(), TypeQuest, history)
		require.NoError(t, err)
		require.NotNil(t, out.Quest)
		assert.NotEmpty(t, out.Quest.Title)
		assert.Contains(t, out.Quest.NPCs, "Narrator")
	})

	t.Run("generator failure falls back too", func(t *testing.T) {
		gen := &mockGenerator{generateFn: func(ctx context.Context, req *llm.Request) (string, error) {
			return "", errors.New("down")
		}}
		s := NewSynthesizer(reg, gen, nil)

		out, err := s.Synthesize(context.Background(), TypeQuest, history)
		require.NoError(t, err)
		require.NotNil(t, out.Quest)
	})

	t.Run("fallback description never splits a rune", func(t *testing.T) {
		gen := &mockGenerator{generateFn: func(ctx context.Context, req *llm.Request) (string, error) {
			return "no json", nil
		}}
		s := NewSynthesizer(reg, gen, nil)

		// three-byte runes guarantee the 200-byte truncation point falls
		// mid-rune (200 % 3 != 0)
		long := strings.Repeat("界", 80)
		out, err := s.Synthesize(context.Background(), TypeQuest, msgs(
			[2]string{"Narrator", long},
		))
		require.NoError(t, err)
		require.NotNil(t, out.Quest)
		assert.True(t, utf8.ValidString(out.Quest.Description))
		assert.LessOrEqual(t, len(out.Quest.Description), 200)
	})
}
