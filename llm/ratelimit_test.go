package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitedGenerator(t *testing.T) {
	t.Run("burst admits calls immediately", func(t *testing.T) {
		calls, inner := countingGenerator("ok")
		g := NewRateLimitedGenerator(inner, 1, 3, nil)

		for i := 0; i < 3; i++ {
			_, err := g.Generate(context.Background(), &Request{Prompt: "p"})
			require.NoError(t, err)
		}
		assert.Equal(t, 3, *calls)
	})

	t.Run("cancelled context aborts the wait", func(t *testing.T) {
		calls, inner := countingGenerator("ok")
		// 1 rps with burst 1: the second call must wait ~1s
		g := NewRateLimitedGenerator(inner, 1, 1, nil)

		_, err := g.Generate(context.Background(), &Request{Prompt: "p"})
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err = g.Generate(ctx, &Request{Prompt: "p"})
		require.Error(t, err)
		assert.Equal(t, 1, *calls)
	})
}
