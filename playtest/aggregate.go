package playtest

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/questhive/questhive/types"
)

// Aggregate merges per-tester results into swarm-wide metrics. Metrics are
// a pure function of the result set; nothing here mutates its inputs.
//
// The completion rate is computed over all results, so a failed tester
// counts as not completed. Difficulty and engagement averages skip zero
// scores, so a failed tester never drags score averages down.
func Aggregate(results []types.TestResult) *types.AggregatedMetrics {
	m := &types.AggregatedMetrics{
		TotalTests:       len(results),
		ByKnowledgeLevel: map[types.KnowledgeLevel]types.GroupMetrics{},
		ByArchetype:      map[string]types.GroupMetrics{},
		PacingBreakdown: map[types.Pacing]int{
			types.PacingTooFast:   0,
			types.PacingJustRight: 0,
			types.PacingTooSlow:   0,
			types.PacingUnknown:   0,
		},
		BugsBySeverity:   map[types.Severity]int{},
		VerdictHistogram: map[types.Verdict]int{},
	}
	if len(results) == 0 {
		return m
	}

	var completed int
	var rawBugs []types.BugReport
	for _, r := range results {
		if r.Completed {
			completed++
		}
		m.PacingBreakdown[r.Pacing]++
		m.VerdictHistogram[r.Recommendation]++
		rawBugs = append(rawBugs, r.Bugs...)
		m.ConfusionPoints = append(m.ConfusionPoints, r.ConfusionPoints...)
	}

	m.CompletionRate = float64(completed) / float64(len(results)) * 100
	m.AvgDifficulty = nonzeroAvg(results, func(r types.TestResult) int { return r.Difficulty })
	m.AvgEngagement = nonzeroAvg(results, func(r types.TestResult) int { return r.Engagement })

	for level := range groupKeys(results, func(r types.TestResult) types.KnowledgeLevel { return r.KnowledgeLevel }) {
		m.ByKnowledgeLevel[level] = groupMetrics(results, func(r types.TestResult) bool { return r.KnowledgeLevel == level })
	}
	for arch := range groupKeys(results, func(r types.TestResult) string { return r.Archetype }) {
		m.ByArchetype[arch] = groupMetrics(results, func(r types.TestResult) bool { return r.Archetype == arch })
	}

	m.Bugs = DeduplicateBugs(rawBugs)
	for _, b := range m.Bugs {
		m.BugsBySeverity[b.Severity]++
	}

	return m
}

func groupKeys[K comparable](results []types.TestResult, key func(types.TestResult) K) map[K]struct{} {
	keys := map[K]struct{}{}
	for _, r := range results {
		keys[key(r)] = struct{}{}
	}
	return keys
}

func groupMetrics(results []types.TestResult, in func(types.TestResult) bool) types.GroupMetrics {
	var group []types.TestResult
	var completed int
	for _, r := range results {
		if in(r) {
			group = append(group, r)
			if r.Completed {
				completed++
			}
		}
	}
	if len(group) == 0 {
		return types.GroupMetrics{}
	}
	return types.GroupMetrics{
		Count:          len(group),
		CompletionRate: float64(completed) / float64(len(group)) * 100,
		AvgDifficulty:  nonzeroAvg(group, func(r types.TestResult) int { return r.Difficulty }),
		AvgEngagement:  nonzeroAvg(group, func(r types.TestResult) int { return r.Engagement }),
	}
}

func nonzeroAvg(results []types.TestResult, score func(types.TestResult) int) float64 {
	var sum, n int
	for _, r := range results {
		if s := score(r); s > 0 {
			sum += s
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

// dedupPrefixLen is how many lowercase characters of a bug description must
// match for two raw bugs to merge. Prefix matching is a heuristic; true
// semantic deduplication is out of scope.
const dedupPrefixLen = 50

// DeduplicateBugs merges raw bugs whose lowercase description prefixes are
// identical. A merged report tracks its report count and reporter set, and
// severity only ever escalates to the highest observed. The output is
// sorted by report count descending, ties broken by severity descending.
func DeduplicateBugs(raw []types.BugReport) []types.BugReport {
	merged := map[string]*types.BugReport{}
	var order []string

	for _, bug := range raw {
		key := strings.ToLower(bug.Description)
		if len(key) > dedupPrefixLen {
			key = key[:dedupPrefixLen]
		}

		existing, ok := merged[key]
		if !ok {
			b := bug
			if b.ReportCount == 0 {
				b.ReportCount = 1
			}
			if len(b.Reporters) == 0 && b.Reporter != "" {
				b.Reporters = []string{b.Reporter}
			}
			merged[key] = &b
			order = append(order, key)
			continue
		}

		existing.ReportCount++
		existing.Severity = types.MaxSeverity(existing.Severity, bug.Severity)
		if bug.Reporter != "" && !contains(existing.Reporters, bug.Reporter) {
			existing.Reporters = append(existing.Reporters, bug.Reporter)
		}
	}

	out := make([]types.BugReport, 0, len(merged))
	for _, key := range order {
		out = append(out, *merged[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ReportCount != out[j].ReportCount {
			return out[i].ReportCount > out[j].ReportCount
		}
		return out[i].Severity.Rank() > out[j].Severity.Rank()
	})
	return out
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// BuildConsensus derives the swarm-wide majority judgment from individual
// recommendations: passRate >= 0.7 is a pass, else failRate >= 0.5 is a
// fail, else pass_with_changes. Confidence is max(passRate, failRate);
// agreement is strong iff one of the thresholds fired.
func BuildConsensus(results []types.TestResult) *types.Consensus {
	if len(results) == 0 {
		return &types.Consensus{
			Recommendation: types.VerdictPassWithChanges,
			Agreement:      types.AgreementModerate,
			Summary:        "no test results",
		}
	}

	var pass, fail int
	for _, r := range results {
		switch r.Recommendation {
		case types.VerdictPass:
			pass++
		case types.VerdictFail:
			fail++
		}
	}
	total := float64(len(results))
	passRate := float64(pass) / total
	failRate := float64(fail) / total

	c := &types.Consensus{
		Confidence: math.Max(passRate, failRate),
		Agreement:  types.AgreementModerate,
	}
	switch {
	case passRate >= 0.7:
		c.Recommendation = types.VerdictPass
		c.Agreement = types.AgreementStrong
	case failRate >= 0.5:
		c.Recommendation = types.VerdictFail
		c.Agreement = types.AgreementStrong
	default:
		c.Recommendation = types.VerdictPassWithChanges
	}
	c.Summary = fmt.Sprintf("%d/%d pass, %d/%d fail (%s agreement)",
		pass, len(results), fail, len(results), c.Agreement)
	return c
}

// GradeMetrics maps aggregated metrics to a letter grade. Any critical bug
// short-circuits to an F with score max(0, 50 - 10 per critical). Otherwise
// the score starts at 100 and takes fixed deductions for major/minor bugs,
// low completion, low engagement and difficulty far from the 5.5 target.
func GradeMetrics(m *types.AggregatedMetrics) types.Grade {
	critical := m.BugsBySeverity[types.SeverityCritical]
	if critical > 0 {
		return types.Grade{Letter: "F", Score: math.Max(0, 50-10*float64(critical))}
	}

	score := 100.0
	score -= 10 * float64(m.BugsBySeverity[types.SeverityMajor])
	score -= 2 * float64(m.BugsBySeverity[types.SeverityMinor])
	if m.CompletionRate < 70 {
		score -= (70 - m.CompletionRate) / 2
	}
	if m.AvgEngagement < 5 {
		score -= (5 - m.AvgEngagement) * 5
	}
	if dev := math.Abs(m.AvgDifficulty - 5.5); dev > 2 {
		score -= (dev - 2) * 3
	}

	score = math.Max(0, math.Min(100, score))

	letter := "F"
	switch {
	case score >= 90:
		letter = "A"
	case score >= 80:
		letter = "B"
	case score >= 70:
		letter = "C"
	case score >= 60:
		letter = "D"
	}
	return types.Grade{Letter: letter, Score: score}
}

// BuildRecommendations emits an ordered list of prioritized action items
// from fixed threshold rules over the metrics. The list is never empty: when
// no rule fires, a single informational entry confirms quality.
func BuildRecommendations(m *types.AggregatedMetrics) []types.Recommendation {
	var recs []types.Recommendation

	if n := m.BugsBySeverity[types.SeverityCritical]; n > 0 {
		recs = append(recs, types.Recommendation{
			Priority: "critical",
			Category: "stability",
			Message:  fmt.Sprintf("%d critical bug(s) reported by the swarm", n),
			Action:   "Fix all critical bugs before release",
		})
	}
	if m.CompletionRate < 50 {
		recs = append(recs, types.Recommendation{
			Priority: "high",
			Category: "completion",
			Message:  fmt.Sprintf("only %.0f%% of testers completed the content", m.CompletionRate),
			Action:   "Investigate blockers preventing completion",
		})
	}
	if m.AvgDifficulty > 7.5 {
		recs = append(recs, types.Recommendation{
			Priority: "high",
			Category: "difficulty",
			Message:  fmt.Sprintf("average difficulty %.1f/10 is punishing", m.AvgDifficulty),
			Action:   "Tune down difficulty or add assists",
		})
	} else if m.AvgDifficulty > 0 && m.AvgDifficulty < 3.5 {
		recs = append(recs, types.Recommendation{
			Priority: "medium",
			Category: "difficulty",
			Message:  fmt.Sprintf("average difficulty %.1f/10 is trivial", m.AvgDifficulty),
			Action:   "Add challenge for experienced players",
		})
	}
	if m.AvgEngagement > 0 && m.AvgEngagement < 5 {
		recs = append(recs, types.Recommendation{
			Priority: "high",
			Category: "engagement",
			Message:  fmt.Sprintf("average engagement %.1f/10 is low", m.AvgEngagement),
			Action:   "Rework pacing, stakes or rewards to hold attention",
		})
	}
	if skewed, p := pacingSkew(m.PacingBreakdown); skewed {
		recs = append(recs, types.Recommendation{
			Priority: "medium",
			Category: "pacing",
			Message:  fmt.Sprintf("testers lean %s", p),
			Action:   "Rebalance pacing toward just_right",
		})
	}

	if len(recs) == 0 {
		recs = append(recs, types.Recommendation{
			Priority: "info",
			Category: "quality",
			Message:  "content meets quality standards across the swarm",
			Action:   "Ready for release",
		})
	}
	return recs
}

// pacingSkew fires when either extreme outvotes just_right.
func pacingSkew(hist map[types.Pacing]int) (bool, types.Pacing) {
	right := hist[types.PacingJustRight]
	if hist[types.PacingTooFast] > right {
		return true, types.PacingTooFast
	}
	if hist[types.PacingTooSlow] > right {
		return true, types.PacingTooSlow
	}
	return false, types.PacingUnknown
}
