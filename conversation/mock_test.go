package conversation

import (
	"context"
	"sync"

	"github.com/questhive/questhive/llm"
)

// mockGenerator implements llm.Generator for testing.
type mockGenerator struct {
	mu         sync.Mutex
	generateFn func(ctx context.Context, req *llm.Request) (string, error)
	callCount  int
	requests   []*llm.Request
}

func (m *mockGenerator) Generate(ctx context.Context, req *llm.Request) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.generateFn != nil {
		return m.generateFn(ctx, req)
	}
	return "a perfectly ordinary line of dialogue", nil
}

func (m *mockGenerator) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}
