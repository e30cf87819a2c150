// Package questhive coordinates LLM-backed agents for two game-content
// workloads sharing one orchestration core: collaborative NPC
// dialogue/quest/lore improvisation, and a synthetic playtester swarm that
// scores content and recommends a release decision.
//
// Usage:
//
//	sess, err := questhive.NewSession(myGenerator, nil)
//	sess.RegisterAgent(&types.Agent{ID: "bard", Name: "Loretta", Role: "bard"})
//	result, err := sess.RunConversationRound(ctx, "A storm traps everyone in the tavern.")
//
// The text-generation capability itself is supplied by the caller as an
// llm.Generator; questhive never resolves models or providers.
package questhive

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/questhive/questhive/config"
	"github.com/questhive/questhive/conversation"
	"github.com/questhive/questhive/internal/metrics"
	"github.com/questhive/questhive/llm"
	"github.com/questhive/questhive/playtest"
	"github.com/questhive/questhive/registry"
	"github.com/questhive/questhive/store"
	"github.com/questhive/questhive/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Session owns one orchestration run's registry, generator stack and
// configuration. Sessions are independent: agents and testers registered on
// one session never leak into another.
type Session struct {
	id      string
	cfg     *config.Config
	reg     *registry.Registry
	gen     llm.Generator
	archive *store.Archive
	metrics *metrics.Collector
	logger  *zap.Logger
}

// Option customizes a Session.
type Option func(*Session)

// WithLogger sets a custom zap logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithArchive enables write-behind archiving of finished runs.
func WithArchive(a *store.Archive) Option {
	return func(s *Session) { s.archive = a }
}

// WithMetrics enables the internal Prometheus collectors.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Session) { s.metrics = c }
}

// NewSession creates a session around the caller's Generator. A nil config
// uses config.Default(). The generator is wrapped with the retry, rate-limit
// and cache decorators the config enables.
func NewSession(gen llm.Generator, cfg *config.Config, opts ...Option) (*Session, error) {
	if gen == nil {
		return nil, fmt.Errorf("questhive: generator is required")
	}
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Session{
		id:  uuid.New().String(),
		cfg: cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.With(zap.String("session_id", s.id))
	s.reg = registry.New(s.logger)
	s.gen = s.buildGeneratorStack(gen)

	return s, nil
}

// buildGeneratorStack layers the configured decorators innermost-first:
// retry, then rate limit, then cache.
func (s *Session) buildGeneratorStack(gen llm.Generator) llm.Generator {
	gc := s.cfg.Generator

	if gc.MaxRetries > 0 {
		gen = llm.NewRetryGenerator(gen, &llm.RetryPolicy{
			MaxRetries:     gc.MaxRetries,
			InitialBackoff: gc.InitialBackoff,
			MaxBackoff:     gc.MaxBackoff,
			Multiplier:     2.0,
		}, s.logger)
	}
	if gc.RatePerSecond > 0 {
		gen = llm.NewRateLimitedGenerator(gen, gc.RatePerSecond, gc.RateBurst, s.logger)
	}
	if gc.EnableCache {
		var rdb *redis.Client
		if s.cfg.Redis.Enabled {
			rdb = redis.NewClient(&redis.Options{
				Addr:     s.cfg.Redis.Addr,
				Password: s.cfg.Redis.Password,
				DB:       s.cfg.Redis.DB,
			})
		}
		cacheCfg := llm.DefaultCacheConfig()
		cacheCfg.EnableRedis = rdb != nil
		cacheCfg.RedisTTL = gc.CacheTTL
		cached := llm.NewCachedGenerator(gen, rdb, cacheCfg, s.logger)
		if s.metrics != nil {
			cached.SetCallbacks(s.metrics.CacheHit, s.metrics.CacheMiss)
		}
		gen = cached
	}
	if s.metrics != nil {
		gen = s.instrument(gen)
	}
	return gen
}

// instrument wraps the stack with per-call metrics.
func (s *Session) instrument(gen llm.Generator) llm.Generator {
	return llm.GeneratorFunc(func(ctx context.Context, req *llm.Request) (string, error) {
		start := time.Now()
		text, err := gen.Generate(ctx, req)
		s.metrics.RecordGeneratorCall("generate", time.Since(start), err)
		return text, err
	})
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Registry exposes the session's registry for stats inspection.
func (s *Session) Registry() *registry.Registry { return s.reg }

// RegisterAgent adds or replaces a collaboration agent.
func (s *Session) RegisterAgent(a *types.Agent) { s.reg.Register(a) }

// RegisterTester adds or replaces a playtester.
func (s *Session) RegisterTester(t *types.Tester) { s.reg.RegisterTester(t) }

// RunConversationRound executes one bounded collaboration round using the
// session's conversation defaults.
func (s *Session) RunConversationRound(ctx context.Context, initialPrompt string) (*conversation.Result, error) {
	return s.RunConversationRoundWith(ctx, initialPrompt, s.conversationConfig())
}

// RunConversationRoundWith executes one bounded collaboration round with an
// explicit config.
func (s *Session) RunConversationRoundWith(ctx context.Context, initialPrompt string, cfg conversation.Config) (*conversation.Result, error) {
	start := time.Now()
	exec := conversation.NewExecutor(s.reg, s.gen, cfg, s.logger)
	result, err := exec.Run(ctx, initialPrompt)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordConversation(len(result.Rounds), result.Termination, time.Since(start))
	}
	s.archiveConversation(ctx, initialPrompt, cfg, result)
	return result, nil
}

// RunSwarmPlaytest fans content out to every registered tester using the
// session's playtest defaults.
func (s *Session) RunSwarmPlaytest(ctx context.Context, content string) (*playtest.Report, error) {
	return s.RunSwarmPlaytestWith(ctx, content, s.playtestConfig())
}

// RunSwarmPlaytestWith fans content out with an explicit config.
func (s *Session) RunSwarmPlaytestWith(ctx context.Context, content string, cfg playtest.Config) (*playtest.Report, error) {
	start := time.Now()
	exec := playtest.NewExecutor(s.reg, s.gen, cfg, s.logger)
	report, err := exec.Run(ctx, content)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		var ok, failed int
		for _, r := range report.Results {
			if r.Success {
				ok++
			} else {
				failed++
			}
		}
		s.metrics.RecordSwarm(ok, failed, time.Since(start))
	}
	s.archivePlaytest(ctx, report)
	return report, nil
}

func (s *Session) conversationConfig() conversation.Config {
	c := s.cfg.Conversation
	return conversation.Config{
		MaxRounds:             c.MaxRounds,
		Temperature:           float32(c.Temperature),
		MaxTokens:             c.MaxTokens,
		PromptBudget:          c.PromptBudget,
		EnableCrossValidation: c.EnableCrossValidation,
	}
}

func (s *Session) playtestConfig() playtest.Config {
	c := s.cfg.Playtest
	return playtest.Config{
		Parallel:       c.Parallel,
		MaxConcurrency: c.MaxConcurrency,
		Temperature:    float32(c.Temperature),
		MaxTokens:      c.MaxTokens,
	}
}

// archiveConversation is write-behind: failures are logged, never surfaced.
func (s *Session) archiveConversation(ctx context.Context, topic string, cfg conversation.Config, result *conversation.Result) {
	if s.archive == nil {
		return
	}
	rec := store.ConversationArchive{
		Topic:       topic,
		RoundCount:  len(result.Rounds),
		ContentType: string(cfg.Type),
		Transcript:  result.Rounds,
		Emergent:    result.Emergent,
	}
	if result.Validation != nil {
		rec.Validated = result.Validation.Validated
		rec.Confidence = result.Validation.Confidence
	}
	if _, err := s.archive.SaveConversation(ctx, rec); err != nil {
		s.logger.Warn("conversation archive failed", zap.Error(err))
	}
}

func (s *Session) archivePlaytest(ctx context.Context, report *playtest.Report) {
	if s.archive == nil {
		return
	}
	_, err := s.archive.SavePlaytest(ctx, store.PlaytestArchive{
		TestCount: report.TestCount,
		Grade:     report.Grade.Letter,
		Score:     report.Grade.Score,
		Consensus: string(report.Consensus.Recommendation),
		Report:    report,
	})
	if err != nil {
		s.logger.Warn("playtest archive failed", zap.Error(err))
	}
}
