package llm

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitedGenerator throttles generation calls with a token bucket.
// Swarm fan-out can otherwise issue one call per tester simultaneously.
type RateLimitedGenerator struct {
	inner   Generator
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewRateLimitedGenerator creates a throttling wrapper allowing rps calls
// per second with the given burst.
func NewRateLimitedGenerator(inner Generator, rps float64, burst int, logger *zap.Logger) *RateLimitedGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedGenerator{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger.With(zap.String("component", "ratelimited_generator")),
	}
}

// Generate implements Generator. It blocks until the limiter admits the
// call or the context is cancelled.
func (g *RateLimitedGenerator) Generate(ctx context.Context, req *Request) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", WrapFailure(err)
	}
	return g.inner.Generate(ctx, req)
}
