package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/questhive/questhive/llm"
	"github.com/questhive/questhive/registry"
	"github.com/questhive/questhive/types"
	"go.uber.org/zap"
)

// Config bounds one conversation round.
type Config struct {
	// MaxRounds is the hard iteration cap. Default 6.
	MaxRounds int `json:"max_rounds" yaml:"max_rounds"`
	// Temperature for turn generation.
	Temperature float32 `json:"temperature" yaml:"temperature"`
	// MaxTokens per generated turn.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`
	// PromptBudget caps turn prompt tokens; 0 disables trimming.
	PromptBudget int `json:"prompt_budget" yaml:"prompt_budget"`
	// Type selects the emergent-content synthesis strategy.
	Type ContentType `json:"type" yaml:"type"`
	// EnableCrossValidation runs the review pass after synthesis.
	EnableCrossValidation bool `json:"enable_cross_validation" yaml:"enable_cross_validation"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxRounds:   6,
		Temperature: 0.9,
		MaxTokens:   600,
		Type:        TypeDialogue,
	}
}

// Termination states of a conversation round.
const (
	TerminationMaxRounds = "max_rounds"
	TerminationEndMarker = "end_marker"
	TerminationNoAgent   = "no_agent"
)

// Result is the terminal output of one conversation round.
type Result struct {
	Rounds     []types.Message         `json:"rounds"`
	Emergent   *EmergentContent        `json:"emergent_content,omitempty"`
	Validation *types.ValidationResult `json:"validation,omitempty"`
	// Termination records why the round loop stopped.
	Termination string `json:"termination"`
}

// Executor drives the bounded conversation state machine:
//
//	ROUTING -> GENERATING -> RECORDED -> (CONTINUE | HANDOFF | END)
//
// Execution is strictly sequential: each turn's prompt depends on the
// previous turn's recorded output, and the Generator call is the sole
// suspension point per turn.
type Executor struct {
	reg       *registry.Registry
	router    *registry.Router
	gen       llm.Generator
	prompts   *PromptBuilder
	synth     *Synthesizer
	validator *CrossValidator
	config    Config
	logger    *zap.Logger
}

// NewExecutor creates a round executor. A zero-valued config gets defaults.
func NewExecutor(reg *registry.Registry, gen llm.Generator, config Config, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxRounds <= 0 {
		config.MaxRounds = DefaultConfig().MaxRounds
	}
	if config.Type == "" {
		config.Type = TypeDialogue
	}

	return &Executor{
		reg:       reg,
		router:    registry.NewRouter(reg, logger),
		gen:       gen,
		prompts:   NewPromptBuilder(config.PromptBudget, logger),
		synth:     NewSynthesizer(reg, gen, logger),
		validator: NewCrossValidator(reg, gen, logger),
		config:    config,
		logger:    logger.With(zap.String("component", "round_executor")),
	}
}

// Run executes at most MaxRounds turns starting from initialPrompt. The
// loop ends early on the end marker or when no agent remains to route to;
// per-turn Generator failures degrade to a sentinel message and the round
// continues. Run never fails outright: partial results are still returned.
func (e *Executor) Run(ctx context.Context, initialPrompt string) (*Result, error) {
	e.logger.Info("conversation round started",
		zap.Int("max_rounds", e.config.MaxRounds),
		zap.Int("agents", e.reg.AgentCount()),
		zap.String("type", string(e.config.Type)),
	)

	history := make([]types.Message, 0, e.config.MaxRounds)
	var prevSpeaker string
	termination := TerminationMaxRounds

	for round := 1; round <= e.config.MaxRounds; round++ {
		// Exclude only the immediately-previous speaker; the router's
		// recency penalty stays a soft signal for everyone else.
		exclude := map[string]bool{}
		if prevSpeaker != "" {
			exclude[prevSpeaker] = true
		}

		agent, err := e.router.Route(e.routingContext(initialPrompt, history), history, exclude)
		if err != nil {
			e.logger.Warn("round terminated early", zap.Int("round", round), zap.Error(err))
			termination = TerminationNoAgent
			break
		}

		content := e.generateTurn(ctx, agent, initialPrompt, history)
		control := ParseControl(content)

		msg := types.NewMessage(round, agent.ID, agent.Name, StripControl(content))
		if msg.Content == "" {
			msg.Content = content
		}
		history = append(history, msg)
		prevSpeaker = agent.ID

		if control.Handoff {
			e.logger.Debug("handoff signalled",
				zap.Int("round", round),
				zap.String("agent", agent.Name),
				zap.String("reason", control.Reason),
			)
		}
		if control.End {
			e.logger.Info("end marker seen", zap.Int("round", round))
			termination = TerminationEndMarker
			break
		}
	}

	result := &Result{Rounds: history, Termination: termination}

	emergent, err := e.synth.Synthesize(ctx, e.config.Type, history)
	if err != nil {
		e.logger.Warn("emergent content synthesis degraded", zap.Error(err))
	}
	result.Emergent = emergent

	if e.config.EnableCrossValidation {
		result.Validation = e.validator.Validate(ctx, transcript(history))
	}

	e.logger.Info("conversation round finished",
		zap.Int("rounds", len(history)),
		zap.String("termination", termination),
	)
	return result, nil
}

// generateTurn performs the single suspension point of one turn. A
// Generator failure yields the sentinel turn text instead of an error.
func (e *Executor) generateTurn(ctx context.Context, agent *types.Agent, initialPrompt string, history []types.Message) string {
	req := &llm.Request{
		Prompt:       e.prompts.TurnPrompt(initialPrompt, history),
		SystemPrompt: e.prompts.SystemPrompt(agent),
		Temperature:  e.config.Temperature,
		MaxTokens:    e.config.MaxTokens,
	}

	text, err := e.gen.Generate(ctx, req)
	if err != nil {
		e.logger.Warn("turn generation failed",
			zap.String("agent", agent.Name),
			zap.Error(llm.WrapFailure(err)),
		)
		return fmt.Sprintf("[%s is momentarily silent]", agent.Name)
	}

	e.reg.RecordTurn(agent.ID, time.Now())
	return text
}

// routingContext is the text the router scores against: the scene prompt
// plus the latest recorded turn.
func (e *Executor) routingContext(initialPrompt string, history []types.Message) string {
	if len(history) == 0 {
		return initialPrompt
	}
	return initialPrompt + "\n" + history[len(history)-1].Content
}

func transcript(history []types.Message) string {
	var sb strings.Builder
	for _, m := range history {
		fmt.Fprintf(&sb, "%s: %s\n", m.AgentName, m.Content)
	}
	return sb.String()
}
