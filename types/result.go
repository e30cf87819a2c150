package types

// Pacing is a tester's judgment of content pacing.
type Pacing string

const (
	PacingTooFast   Pacing = "too_fast"
	PacingJustRight Pacing = "just_right"
	PacingTooSlow   Pacing = "too_slow"
	PacingUnknown   Pacing = "unknown"
)

// Verdict is a pass/fail judgment, either from a single tester or as the
// swarm-wide consensus.
type Verdict string

const (
	VerdictPass            Verdict = "pass"
	VerdictPassWithChanges Verdict = "pass_with_changes"
	VerdictFail            Verdict = "fail"
)

// Severity classifies a bug report. Ordering is critical > major > minor.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
)

// Rank returns the severity's position in the escalation order; higher is
// more severe. Unknown severities rank below minor.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityMajor:
		return 2
	case SeverityMinor:
		return 1
	}
	return 0
}

// MaxSeverity returns the more severe of a and b. Merged bug reports only
// ever escalate, never downgrade.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// BugReport is a single reported issue. After deduplication a report may
// represent several raw reports; ReportCount and Reporters track the merge.
type BugReport struct {
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Reporter    string   `json:"reporter,omitempty"`
	Archetype   string   `json:"archetype,omitempty"`
	ReportCount int      `json:"report_count"`
	Reporters   []string `json:"reporters,omitempty"`
}

// TestResult is one tester's structured verdict for one swarm run.
// Success is false when the Generator call itself failed; such results carry
// zeroed scores and a fail verdict but still occupy a slot in the result set.
// Immutable after creation.
type TestResult struct {
	TesterID        string         `json:"tester_id"`
	Archetype       string         `json:"archetype"`
	KnowledgeLevel  KnowledgeLevel `json:"knowledge_level"`
	Success         bool           `json:"success"`
	Completed       bool           `json:"completed"`
	Difficulty      int            `json:"difficulty"`
	Engagement      int            `json:"engagement"`
	Pacing          Pacing         `json:"pacing"`
	Bugs            []BugReport    `json:"bugs"`
	ConfusionPoints []string       `json:"confusion_points,omitempty"`
	Feedback        string         `json:"feedback,omitempty"`
	Recommendation  Verdict        `json:"recommendation"`
	RawResponse     string         `json:"raw_response,omitempty"`
}

// GroupMetrics are per-group averages inside an aggregation breakdown.
type GroupMetrics struct {
	Count          int     `json:"count"`
	CompletionRate float64 `json:"completion_rate"`
	AvgDifficulty  float64 `json:"avg_difficulty"`
	AvgEngagement  float64 `json:"avg_engagement"`
}

// AggregatedMetrics is the swarm-wide view derived from a TestResult set.
// It is always recomputed from its inputs and never mutated in place.
type AggregatedMetrics struct {
	TotalTests       int                             `json:"total_tests"`
	CompletionRate   float64                         `json:"completion_rate"`
	AvgDifficulty    float64                         `json:"avg_difficulty"`
	AvgEngagement    float64                         `json:"avg_engagement"`
	ByKnowledgeLevel map[KnowledgeLevel]GroupMetrics `json:"by_knowledge_level"`
	ByArchetype      map[string]GroupMetrics         `json:"by_archetype"`
	PacingBreakdown  map[Pacing]int                  `json:"pacing_breakdown"`
	Bugs             []BugReport                     `json:"bugs"`
	BugsBySeverity   map[Severity]int                `json:"bugs_by_severity"`
	ConfusionPoints  []string                        `json:"confusion_points,omitempty"`
	VerdictHistogram map[Verdict]int                 `json:"verdict_histogram"`
}

// Agreement qualifies how decisively the swarm converged.
type Agreement string

const (
	AgreementStrong   Agreement = "strong"
	AgreementModerate Agreement = "moderate"
)

// Consensus is the swarm-wide majority judgment.
type Consensus struct {
	Recommendation Verdict   `json:"recommendation"`
	Confidence     float64   `json:"confidence"`
	Agreement      Agreement `json:"agreement"`
	Summary        string    `json:"summary"`
}

// Grade is the letter grade computed from aggregated metrics.
type Grade struct {
	Letter string  `json:"letter"`
	Score  float64 `json:"score"`
}

// Recommendation is one prioritized action item derived from aggregated
// metrics. The recommendation list produced for a swarm run is never empty.
type Recommendation struct {
	Priority string `json:"priority"`
	Category string `json:"category"`
	Message  string `json:"message"`
	Action   string `json:"action"`
}

// ValidationScores are the three averaged 1-10 dimensions of a
// cross-validation pass.
type ValidationScores struct {
	Consistency  float64 `json:"consistency"`
	Authenticity float64 `json:"authenticity"`
	Quality      float64 `json:"quality"`
}

// ValidationResult is the outcome of the cross-validation review pass.
type ValidationResult struct {
	Validated      bool             `json:"validated"`
	Confidence     float64          `json:"confidence"`
	Scores         ValidationScores `json:"scores"`
	ValidatorCount int              `json:"validator_count"`
	Details        []string         `json:"details,omitempty"`
	Note           string           `json:"note,omitempty"`
}
