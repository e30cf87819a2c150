package conversation

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"sync"

	"github.com/questhive/questhive/llm"
	"github.com/questhive/questhive/registry"
	"github.com/questhive/questhive/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxValidators caps how many agents review a transcript.
const maxValidators = 3

// scoresRe matches the fixed validator output line: SCORES: a/10, b/10, c/10
var scoresRe = regexp.MustCompile(`(?i)SCORES:\s*(\d+(?:\.\d+)?)\s*/\s*10\s*,\s*(\d+(?:\.\d+)?)\s*/\s*10\s*,\s*(\d+(?:\.\d+)?)\s*/\s*10`)

const validatorPrompt = `Review the following generated game content for problems.

%s

Score it on three dimensions from 1 to 10:
- consistency: does it contradict itself or the established scene?
- authenticity: do the characters stay true to their personas?
- quality: is the writing usable as game content?

Reply with exactly one line in the form
SCORES: <consistency>/10, <authenticity>/10, <quality>/10
followed by brief free-text feedback.`

// CrossValidator samples registered agents to critique already-generated
// content and produces a confidence score. It is intended to catch
// ungrounded or hallucinated content before it reaches the caller.
type CrossValidator struct {
	reg    *registry.Registry
	gen    llm.Generator
	logger *zap.Logger
}

// NewCrossValidator creates a validator over the session registry.
func NewCrossValidator(reg *registry.Registry, gen llm.Generator, logger *zap.Logger) *CrossValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CrossValidator{
		reg:    reg,
		gen:    gen,
		logger: logger.With(zap.String("component", "cross_validator")),
	}
}

// Validate reviews content with up to three validator agents, one
// low-temperature Generator call each, issued concurrently. Validators whose
// response does not match the SCORES pattern are discarded.
//
// With fewer than two registered agents validation is skipped entirely —
// no Generator call is made — and reported as validated with full
// confidence. All validator calls failing is reported as inconclusive, not
// as an error.
func (v *CrossValidator) Validate(ctx context.Context, content string) *types.ValidationResult {
	agents := v.reg.Agents()
	if len(agents) < 2 {
		return &types.ValidationResult{
			Validated:  true,
			Confidence: 1.0,
			Note:       "validation skipped: fewer than 2 agents registered",
		}
	}

	validators := agents
	if len(validators) > maxValidators {
		validators = validators[:maxValidators]
	}

	type review struct {
		consistency, authenticity, quality float64
		detail                             string
	}

	var mu sync.Mutex
	var reviews []review

	g, gctx := errgroup.WithContext(ctx)
	for _, a := range validators {
		g.Go(func() error {
			req := &llm.Request{
				Prompt:       fmt.Sprintf(validatorPrompt, content),
				SystemPrompt: a.SystemPrompt,
				Temperature:  0.2,
			}
			text, err := v.gen.Generate(gctx, req)
			if err != nil {
				v.logger.Warn("validator call failed",
					zap.String("agent", a.Name),
					zap.Error(llm.WrapFailure(err)),
				)
				return nil
			}

			m := scoresRe.FindStringSubmatch(text)
			if m == nil {
				v.logger.Debug("validator response unparseable, discarding",
					zap.String("agent", a.Name),
				)
				return nil
			}
			c, _ := strconv.ParseFloat(m[1], 64)
			au, _ := strconv.ParseFloat(m[2], 64)
			q, _ := strconv.ParseFloat(m[3], 64)

			mu.Lock()
			reviews = append(reviews, review{
				consistency:  c,
				authenticity: au,
				quality:      q,
				detail:       fmt.Sprintf("%s: %s", a.Name, text),
			})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures degrade to fewer reviews

	if len(reviews) == 0 {
		return &types.ValidationResult{
			Validated:  false,
			Confidence: 0,
			Note:       "validation inconclusive: no validator produced a parseable review",
		}
	}

	var sumC, sumA, sumQ float64
	details := make([]string, 0, len(reviews))
	for _, r := range reviews {
		sumC += r.consistency
		sumA += r.authenticity
		sumQ += r.quality
		details = append(details, r.detail)
	}
	n := float64(len(reviews))
	avgC, avgA, avgQ := sumC/n, sumA/n, sumQ/n

	return &types.ValidationResult{
		Validated:      avgC >= 7 && avgA >= 7,
		Confidence:     (avgC + avgA + avgQ) / 30,
		Scores:         types.ValidationScores{Consistency: avgC, Authenticity: avgA, Quality: avgQ},
		ValidatorCount: len(reviews),
		Details:        details,
	}
}
