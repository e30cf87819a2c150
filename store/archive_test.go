package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/questhive/questhive/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(filepath.Join(t.TempDir(), "archive.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestArchive_Conversations(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()

	transcript := []types.Message{
		{Round: 1, AgentID: "bard", AgentName: "Loretta", Content: "A song, then."},
		{Round: 2, AgentID: "guard", AgentName: "Bruk", Content: "Keep it short."},
	}

	id, err := a.SaveConversation(ctx, ConversationArchive{
		Topic:       "tavern evening",
		RoundCount:  2,
		ContentType: "dialogue",
		Transcript:  transcript,
		Validated:   true,
		Confidence:  0.86,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	recs, err := a.Conversations(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, id, recs[0].ID)
	assert.Equal(t, 2, recs[0].Rounds)
	assert.Contains(t, recs[0].Transcript, "Keep it short.")
	assert.True(t, recs[0].Validated)
}

func TestArchive_Playtests(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()

	id, err := a.SavePlaytest(ctx, PlaytestArchive{
		TestCount: 5,
		Grade:     "B",
		Score:     84,
		Consensus: "pass_with_changes",
		Report:    map[string]any{"test_count": 5},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	recs, err := a.Playtests(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "B", recs[0].Grade)
	assert.Equal(t, 5, recs[0].TestCount)
}

func TestArchive_NewestFirst(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()

	var last string
	for i := 0; i < 3; i++ {
		time.Sleep(2 * time.Millisecond) // distinct created_at ordering
		id, err := a.SavePlaytest(ctx, PlaytestArchive{TestCount: i + 1, Grade: "A", Report: nil})
		require.NoError(t, err)
		last = id
	}

	recs, err := a.Playtests(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, last, recs[0].ID)
}

func TestArchive_MarshalFailure(t *testing.T) {
	a := openTestArchive(t)

	_, err := a.SaveConversation(context.Background(), ConversationArchive{
		Transcript: make(chan int), // not JSON-serializable
	})
	assert.Error(t, err)
}
