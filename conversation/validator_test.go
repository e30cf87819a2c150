package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/questhive/questhive/llm"
	"github.com/questhive/questhive/registry"
	"github.com/questhive/questhive/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrossValidator_Validate(t *testing.T) {
	t.Run("fewer than two agents skips validation", func(t *testing.T) {
		reg := registry.New(nil)
		reg.Register(&types.Agent{ID: "solo", Name: "Hermit", Role: "hermit"})
		gen := &mockGenerator{}
		v := NewCrossValidator(reg, gen, nil)

		res := v.Validate(context.Background(), "some dialogue")
		require.NotNil(t, res)
		assert.True(t, res.Validated)
		assert.Equal(t, 1.0, res.Confidence)
		assert.Zero(t, gen.calls(), "skip must not touch the generator")
	})

	t.Run("averages scores across validators", func(t *testing.T) {
		gen := &mockGenerator{}
		gen.generateFn = func(ctx context.Context, req *llm.Request) (string, error) {
			return "SCORES: 8/10, 9/10, 7/10\nReads well.", nil
		}
		v := NewCrossValidator(threeAgents(), gen, nil)

		res := v.Validate(context.Background(), "a tavern scene")
		require.NotNil(t, res)
		assert.True(t, res.Validated)
		assert.Equal(t, 3, res.ValidatorCount)
		assert.InDelta(t, 8.0, res.Scores.Consistency, 1e-9)
		assert.InDelta(t, 9.0, res.Scores.Authenticity, 1e-9)
		assert.InDelta(t, 7.0, res.Scores.Quality, 1e-9)
		assert.InDelta(t, 24.0/30.0, res.Confidence, 1e-9)
	})

	t.Run("low consistency rejects even with high quality", func(t *testing.T) {
		gen := &mockGenerator{}
		gen.generateFn = func(ctx context.Context, req *llm.Request) (string, error) {
			return "SCORES: 4/10, 9/10, 10/10", nil
		}
		v := NewCrossValidator(threeAgents(), gen, nil)

		res := v.Validate(context.Background(), "a contradictory scene")
		assert.False(t, res.Validated)
		assert.Equal(t, 3, res.ValidatorCount)
	})

	t.Run("unparseable reviews are discarded", func(t *testing.T) {
		reg := registry.New(nil)
		reg.Register(&types.Agent{ID: "a", Name: "A", Role: "critic", SystemPrompt: "rambler"})
		reg.Register(&types.Agent{ID: "b", Name: "B", Role: "critic", SystemPrompt: "scorer"})
		reg.Register(&types.Agent{ID: "c", Name: "C", Role: "critic", SystemPrompt: "scorer"})
		gen := &mockGenerator{}
		gen.generateFn = func(ctx context.Context, req *llm.Request) (string, error) {
			if req.SystemPrompt == "rambler" {
				return "I simply loved it, ten out of ten!", nil
			}
			return "SCORES: 8/10, 8/10, 8/10", nil
		}
		v := NewCrossValidator(reg, gen, nil)

		res := v.Validate(context.Background(), "a scene")
		assert.True(t, res.Validated)
		assert.Equal(t, 2, res.ValidatorCount)
	})

	t.Run("all validators failing is inconclusive, not an error", func(t *testing.T) {
		gen := &mockGenerator{}
		gen.generateFn = func(ctx context.Context, req *llm.Request) (string, error) {
			return "", errors.New("provider down")
		}
		v := NewCrossValidator(threeAgents(), gen, nil)

		res := v.Validate(context.Background(), "a scene")
		require.NotNil(t, res)
		assert.False(t, res.Validated)
		assert.Zero(t, res.Confidence)
		assert.NotEmpty(t, res.Note)
	})

	t.Run("at most three validators are consulted", func(t *testing.T) {
		reg := threeAgents()
		reg.Register(&types.Agent{ID: "extra1", Name: "Extra One", Role: "extra"})
		reg.Register(&types.Agent{ID: "extra2", Name: "Extra Two", Role: "extra"})
		gen := &mockGenerator{}
		gen.generateFn = func(ctx context.Context, req *llm.Request) (string, error) {
			return "SCORES: 7/10, 7/10, 7/10", nil
		}
		v := NewCrossValidator(reg, gen, nil)

		res := v.Validate(context.Background(), "a scene")
		assert.Equal(t, 3, res.ValidatorCount)
		assert.Equal(t, 3, gen.calls())
	})
}
