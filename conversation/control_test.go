package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseControl(t *testing.T) {
	t.Run("plain text has no control", func(t *testing.T) {
		c := ParseControl("Just a line of dialogue.")
		assert.False(t, c.End)
		assert.False(t, c.Handoff)
	})

	t.Run("end marker", func(t *testing.T) {
		c := ParseControl("Farewell, travelers. [END_CONVERSATION]")
		assert.True(t, c.End)
	})

	t.Run("handoff with reason", func(t *testing.T) {
		c := ParseControl("I know nothing of herbs. [HANDOFF: ask the apothecary]")
		assert.True(t, c.Handoff)
		assert.Equal(t, "ask the apothecary", c.Reason)
	})

	t.Run("handoff without reason", func(t *testing.T) {
		c := ParseControl("[HANDOFF]")
		assert.True(t, c.Handoff)
		assert.Empty(t, c.Reason)
	})

	t.Run("both markers", func(t *testing.T) {
		c := ParseControl("[HANDOFF: done here] [END_CONVERSATION]")
		assert.True(t, c.End)
		assert.True(t, c.Handoff)
	})

	// The scan is a plain substring match: dialogue that literally quotes a
	// marker triggers it. Pinned here so a change of the grammar is a
	// conscious decision.
	t.Run("in-character marker still triggers", func(t *testing.T) {
		c := ParseControl(`The sign reads "[END_CONVERSATION]", oddly enough.`)
		assert.True(t, c.End)
	})
}

func TestStripControl(t *testing.T) {
	assert.Equal(t, "Farewell.", StripControl("Farewell. [END_CONVERSATION]"))
	assert.Equal(t, "I must go.", StripControl("I must go. [HANDOFF: tired]"))
	assert.Equal(t, "", StripControl("[HANDOFF][END_CONVERSATION]"))
}
