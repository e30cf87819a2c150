package playtest

import (
	"context"

	"github.com/questhive/questhive/extract"
	"github.com/questhive/questhive/llm"
	"github.com/questhive/questhive/registry"
	"github.com/questhive/questhive/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Config controls one swarm run.
type Config struct {
	// Parallel issues all tester calls concurrently; sequential mode is
	// kept for deterministic replay and debugging.
	Parallel bool `json:"parallel" yaml:"parallel"`
	// MaxConcurrency caps in-flight calls in parallel mode; 0 means no cap.
	MaxConcurrency int `json:"max_concurrency" yaml:"max_concurrency"`
	// Temperature for tester generation.
	Temperature float32 `json:"temperature" yaml:"temperature"`
	// MaxTokens per tester response.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Parallel:       true,
		MaxConcurrency: 8,
		Temperature:    0.8,
		MaxTokens:      800,
	}
}

// Report is the terminal output of one swarm run.
type Report struct {
	TestCount       int                      `json:"test_count"`
	Results         []types.TestResult       `json:"individual_results"`
	Metrics         *types.AggregatedMetrics `json:"aggregated_metrics"`
	Consensus       *types.Consensus         `json:"consensus"`
	Grade           types.Grade              `json:"grade"`
	Recommendations []types.Recommendation   `json:"recommendations"`
}

// Executor fans one playtest out across every registered tester. Tester
// invocations are independent: parallel execution uses settle-all semantics
// where one failure never cancels a sibling, and a failed Generator call
// degrades to a synthetic failed TestResult instead of failing the swarm.
type Executor struct {
	reg    *registry.Registry
	gen    llm.Generator
	config Config
	logger *zap.Logger
}

// NewExecutor creates a swarm executor. Zero Temperature and MaxTokens get
// defaults; Parallel and MaxConcurrency are taken as given, so an explicit
// sequential config is honored.
func NewExecutor(reg *registry.Registry, gen llm.Generator, config Config, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Temperature == 0 {
		config.Temperature = DefaultConfig().Temperature
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultConfig().MaxTokens
	}
	return &Executor{
		reg:    reg,
		gen:    gen,
		config: config,
		logger: logger.With(zap.String("component", "swarm_executor")),
	}
}

// Run executes one test per registered tester and aggregates the results.
// The result slice is indexed by registration order regardless of completion
// order, keeping reports deterministic even in parallel mode.
func (e *Executor) Run(ctx context.Context, content string) (*Report, error) {
	testers := e.reg.Testers()
	e.logger.Info("swarm playtest started",
		zap.Int("testers", len(testers)),
		zap.Bool("parallel", e.config.Parallel),
	)

	results := make([]types.TestResult, len(testers))

	if e.config.Parallel {
		g := new(errgroup.Group)
		if e.config.MaxConcurrency > 0 {
			g.SetLimit(e.config.MaxConcurrency)
		}
		for i, t := range testers {
			g.Go(func() error {
				results[i] = e.runOne(ctx, t, content)
				return nil
			})
		}
		_ = g.Wait() // workers never return errors; failures settle into results
	} else {
		for i, t := range testers {
			results[i] = e.runOne(ctx, t, content)
		}
	}

	// Stats are updated after collection, by this executor only.
	for _, r := range results {
		e.reg.RecordTest(r.TesterID, len(r.Bugs), r.Engagement)
	}

	metrics := Aggregate(results)
	report := &Report{
		TestCount:       len(results),
		Results:         results,
		Metrics:         metrics,
		Consensus:       BuildConsensus(results),
		Grade:           GradeMetrics(metrics),
		Recommendations: BuildRecommendations(metrics),
	}

	e.logger.Info("swarm playtest finished",
		zap.Int("tests", report.TestCount),
		zap.String("consensus", string(report.Consensus.Recommendation)),
		zap.String("grade", report.Grade.Letter),
	)
	return report, nil
}

// runOne performs a single tester invocation. Any Generator error becomes a
// synthetic failed result.
func (e *Executor) runOne(ctx context.Context, t *types.Tester, content string) types.TestResult {
	req := &llm.Request{
		Prompt:      BuildPrompt(t, content),
		Temperature: e.config.Temperature,
		MaxTokens:   e.config.MaxTokens,
	}

	text, err := e.gen.Generate(ctx, req)
	if err != nil {
		e.logger.Warn("tester call failed",
			zap.String("tester", t.Name),
			zap.Error(llm.WrapFailure(err)),
		)
		return failedResult(t)
	}

	f := extract.Parse(text)
	for i := range f.Bugs {
		f.Bugs[i].Reporter = t.Name
		f.Bugs[i].Archetype = t.Archetype
		f.Bugs[i].Reporters = []string{t.Name}
	}

	return types.TestResult{
		TesterID:        t.ID,
		Archetype:       t.Archetype,
		KnowledgeLevel:  t.KnowledgeLevel,
		Success:         true,
		Completed:       f.Completed,
		Difficulty:      f.Difficulty,
		Engagement:      f.Engagement,
		Pacing:          f.Pacing,
		Bugs:            f.Bugs,
		ConfusionPoints: f.ConfusionPoints,
		Feedback:        f.Feedback,
		Recommendation:  f.Recommendation,
		RawResponse:     text,
	}
}

// failedResult is the sentinel record for a tester whose call failed:
// not completed, zero engagement, fail verdict, no bugs.
func failedResult(t *types.Tester) types.TestResult {
	return types.TestResult{
		TesterID:       t.ID,
		Archetype:      t.Archetype,
		KnowledgeLevel: t.KnowledgeLevel,
		Success:        false,
		Pacing:         types.PacingUnknown,
		Bugs:           []types.BugReport{},
		Recommendation: types.VerdictFail,
	}
}
