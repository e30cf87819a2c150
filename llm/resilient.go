package llm

import (
	"context"
	"errors"
	"time"

	"github.com/questhive/questhive/types"
	"go.uber.org/zap"
)

// RetryPolicy defines retry behavior for transient generator failures.
type RetryPolicy struct {
	MaxRetries     int           `json:"max_retries" yaml:"max_retries"`
	InitialBackoff time.Duration `json:"initial_backoff" yaml:"initial_backoff"`
	MaxBackoff     time.Duration `json:"max_backoff" yaml:"max_backoff"`
	Multiplier     float64       `json:"multiplier" yaml:"multiplier"`
}

// DefaultRetryPolicy returns sensible defaults.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
	}
}

// RetryGenerator wraps a Generator with bounded exponential backoff.
// A types.Error marked non-retryable aborts immediately; everything else is
// considered transient.
type RetryGenerator struct {
	inner  Generator
	policy *RetryPolicy
	logger *zap.Logger
}

// NewRetryGenerator creates a retrying wrapper. A nil policy or logger gets
// defaults.
func NewRetryGenerator(inner Generator, policy *RetryPolicy, logger *zap.Logger) *RetryGenerator {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryGenerator{
		inner:  inner,
		policy: policy,
		logger: logger.With(zap.String("component", "retry_generator")),
	}
}

// Generate implements Generator.
func (g *RetryGenerator) Generate(ctx context.Context, req *Request) (string, error) {
	backoff := g.policy.InitialBackoff
	var lastErr error

	for attempt := 0; attempt <= g.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", WrapFailure(ctx.Err())
			case <-time.After(backoff):
			}
			backoff = time.Duration(float64(backoff) * g.policy.Multiplier)
			if backoff > g.policy.MaxBackoff {
				backoff = g.policy.MaxBackoff
			}
		}

		text, err := g.inner.Generate(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err

		var typed *types.Error
		if errors.As(err, &typed) && !typed.Retryable && typed.Code != types.ErrGeneratorFailure {
			break
		}

		g.logger.Warn("generation attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)

		if ctx.Err() != nil {
			break
		}
	}

	return "", WrapFailure(lastErr)
}
