// Package registry holds the agents and testers of one orchestration
// session and selects the next speaker for a conversation round. The
// registry is an explicit value owned by the session; it is never shared as
// ambient global state, so concurrent sessions cannot interfere.
package registry

import (
	"sync"
	"time"

	"github.com/questhive/questhive/types"
	"go.uber.org/zap"
)

// Registry stores agents and testers keyed by id. Registration order is
// preserved: routing ties and "first registered agent" lookups resolve in
// insertion order, which keeps sessions deterministic under test.
type Registry struct {
	mu          sync.RWMutex
	agents      map[string]*types.Agent
	agentOrder  []string
	testers     map[string]*types.Tester
	testerOrder []string
	logger      *zap.Logger
}

// New creates an empty registry.
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		agents:  make(map[string]*types.Agent),
		testers: make(map[string]*types.Tester),
		logger:  logger.With(zap.String("component", "registry")),
	}
}

// Register inserts or overwrites an agent by id. Overwriting keeps the
// original insertion position.
func (r *Registry) Register(a *types.Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[a.ID]; !exists {
		r.agentOrder = append(r.agentOrder, a.ID)
	}
	r.agents[a.ID] = a
	r.logger.Debug("registered agent", zap.String("id", a.ID), zap.String("role", a.Role))
}

// RegisterTester inserts or overwrites a tester by id.
func (r *Registry) RegisterTester(t *types.Tester) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.testers[t.ID]; !exists {
		r.testerOrder = append(r.testerOrder, t.ID)
	}
	r.testers[t.ID] = t
	r.logger.Debug("registered tester", zap.String("id", t.ID), zap.String("archetype", t.Archetype))
}

// Agent returns the agent with the given id, or nil.
func (r *Registry) Agent(id string) *types.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.agents[id]
}

// Agents returns all agents in registration order.
func (r *Registry) Agents() []*types.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*types.Agent, 0, len(r.agentOrder))
	for _, id := range r.agentOrder {
		out = append(out, r.agents[id])
	}
	return out
}

// Testers returns all testers in registration order.
func (r *Registry) Testers() []*types.Tester {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*types.Tester, 0, len(r.testerOrder))
	for _, id := range r.testerOrder {
		out = append(out, r.testers[id])
	}
	return out
}

// AgentCount returns the number of registered agents.
func (r *Registry) AgentCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// TesterCount returns the number of registered testers.
func (r *Registry) TesterCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.testers)
}

// RecordTurn updates an agent's running stats after a completed turn.
// Only the round executor calls this, after its single suspension point, so
// a stat is never read concurrently with its write.
func (r *Registry) RecordTurn(agentID string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.agents[agentID]
	if !ok {
		return
	}
	a.MessageCount++
	a.LastActive = at
}

// RecordTest updates a tester's running stats after one swarm test:
// completed count, bugs found, and a running engagement average.
func (r *Registry) RecordTest(testerID string, bugs, engagement int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.testers[testerID]
	if !ok {
		return
	}
	prev := float64(t.TestsCompleted)
	t.TestsCompleted++
	t.BugsFound += bugs
	t.AvgEngagement = (t.AvgEngagement*prev + float64(engagement)) / float64(t.TestsCompleted)
}
