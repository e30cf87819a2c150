package registry

import (
	"strings"

	"github.com/questhive/questhive/types"
	"go.uber.org/zap"
)

// Router scores registered agents against the current conversation context
// and picks the next speaker.
//
// Scoring, deterministic given identical inputs:
//
//	+10  the lowercase context contains the agent's lowercase role name
//	 -5  per occurrence of the agent in the last 3 history messages
//	 +5  per specialty keyword found (case-insensitively) in the context
//
// Ties break by registration order: the first registered agent wins. Tests
// rely on this.
type Router struct {
	reg    *Registry
	logger *zap.Logger
}

const (
	roleMatchBonus   = 10
	recencyPenalty   = 5
	specialtyBonus   = 5
	recencyWindowLen = 3
)

// NewRouter creates a router over the given registry.
func NewRouter(reg *Registry, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		reg:    reg,
		logger: logger.With(zap.String("component", "router")),
	}
}

// Route selects exactly one agent from the registry minus excluded ids.
// Zero candidates is a NO_AVAILABLE_AGENT error; a single candidate
// short-circuits without scoring.
func (r *Router) Route(contextText string, history []types.Message, exclude map[string]bool) (*types.Agent, error) {
	candidates := make([]*types.Agent, 0, r.reg.AgentCount())
	for _, a := range r.reg.Agents() {
		if exclude[a.ID] {
			continue
		}
		candidates = append(candidates, a)
	}

	if len(candidates) == 0 {
		return nil, types.NewError(types.ErrNoAvailableAgent, "routing exhausted all candidates")
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}

	lowerCtx := strings.ToLower(contextText)
	recent := history
	if len(recent) > recencyWindowLen {
		recent = recent[len(recent)-recencyWindowLen:]
	}

	best := candidates[0]
	bestScore := r.score(candidates[0], lowerCtx, recent)
	for _, a := range candidates[1:] {
		// strict > keeps the earliest-registered agent on ties
		if s := r.score(a, lowerCtx, recent); s > bestScore {
			best, bestScore = a, s
		}
	}

	r.logger.Debug("routed to agent",
		zap.String("agent_id", best.ID),
		zap.Int("score", bestScore),
	)
	return best, nil
}

func (r *Router) score(a *types.Agent, lowerCtx string, recent []types.Message) int {
	score := 0

	if a.Role != "" && strings.Contains(lowerCtx, strings.ToLower(a.Role)) {
		score += roleMatchBonus
	}

	for _, m := range recent {
		if m.AgentID == a.ID {
			score -= recencyPenalty
		}
	}

	for _, specialty := range a.Persona.Specialties {
		if specialty != "" && strings.Contains(lowerCtx, strings.ToLower(specialty)) {
			score += specialtyBonus
		}
	}

	return score
}
