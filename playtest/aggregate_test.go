package playtest

import (
	"strings"
	"testing"

	"github.com/questhive/questhive/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(verdict types.Verdict, completed bool, difficulty, engagement int) types.TestResult {
	return types.TestResult{
		Success:        true,
		Completed:      completed,
		Difficulty:     difficulty,
		Engagement:     engagement,
		Pacing:         types.PacingJustRight,
		Recommendation: verdict,
	}
}

func TestDeduplicateBugs(t *testing.T) {
	t.Run("same prefix merges with max severity", func(t *testing.T) {
		raw := []types.BugReport{
			{Description: "The drawbridge lever can be pulled twice, softlocking the gate mechanism", Severity: types.SeverityMinor, Reporter: "Ava", Reporters: []string{"Ava"}},
			{Description: "The drawbridge lever can be pulled twice, softlocking everything forever", Severity: types.SeverityCritical, Reporter: "Bo", Reporters: []string{"Bo"}},
		}
		out := DeduplicateBugs(raw)
		require.Len(t, out, 1)
		assert.Equal(t, 2, out[0].ReportCount)
		assert.Equal(t, types.SeverityCritical, out[0].Severity)
		assert.ElementsMatch(t, []string{"Ava", "Bo"}, out[0].Reporters)
	})

	t.Run("severity never de-escalates", func(t *testing.T) {
		raw := []types.BugReport{
			{Description: "inventory icons overlap on the crafting screen when sorting", Severity: types.SeverityMajor},
			{Description: "inventory icons overlap on the crafting screen when sorting", Severity: types.SeverityMinor},
		}
		out := DeduplicateBugs(raw)
		require.Len(t, out, 1)
		assert.Equal(t, types.SeverityMajor, out[0].Severity)
	})

	t.Run("prefix comparison is case-insensitive and bounded", func(t *testing.T) {
		base := "a bug description that is exactly long enough to hit the fifty char boundary"
		raw := []types.BugReport{
			{Description: base, Severity: types.SeverityMinor},
			{Description: strings.ToUpper(base[:50]) + " with a totally different tail", Severity: types.SeverityMinor},
		}
		out := DeduplicateBugs(raw)
		require.Len(t, out, 1)
		assert.Equal(t, 2, out[0].ReportCount)
	})

	t.Run("sorted by report count then severity", func(t *testing.T) {
		raw := []types.BugReport{
			{Description: "minor once", Severity: types.SeverityMinor},
			{Description: "critical once", Severity: types.SeverityCritical},
			{Description: "seen twice by the swarm in the same place", Severity: types.SeverityMinor},
			{Description: "seen twice by the swarm in the same place", Severity: types.SeverityMinor},
		}
		out := DeduplicateBugs(raw)
		require.Len(t, out, 3)
		assert.Equal(t, 2, out[0].ReportCount)
		assert.Equal(t, types.SeverityCritical, out[1].Severity)
		assert.Equal(t, types.SeverityMinor, out[2].Severity)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, DeduplicateBugs(nil))
	})
}

func TestBuildConsensus(t *testing.T) {
	t.Run("four of five passing is a strong pass", func(t *testing.T) {
		results := []types.TestResult{
			result(types.VerdictPass, true, 5, 7),
			result(types.VerdictPass, true, 5, 7),
			result(types.VerdictPass, true, 5, 7),
			result(types.VerdictPass, true, 5, 7),
			result(types.VerdictFail, false, 5, 2),
		}
		c := BuildConsensus(results)
		assert.Equal(t, types.VerdictPass, c.Recommendation)
		assert.InDelta(t, 0.8, c.Confidence, 1e-9)
		assert.Equal(t, types.AgreementStrong, c.Agreement)
	})

	t.Run("half failing is a strong fail", func(t *testing.T) {
		results := []types.TestResult{
			result(types.VerdictFail, false, 8, 3),
			result(types.VerdictFail, false, 8, 3),
			result(types.VerdictPass, true, 5, 7),
			result(types.VerdictPassWithChanges, true, 5, 6),
		}
		c := BuildConsensus(results)
		assert.Equal(t, types.VerdictFail, c.Recommendation)
		assert.Equal(t, types.AgreementStrong, c.Agreement)
	})

	t.Run("no threshold fired is moderate pass_with_changes", func(t *testing.T) {
		results := []types.TestResult{
			result(types.VerdictPass, true, 5, 7),
			result(types.VerdictPassWithChanges, true, 5, 6),
			result(types.VerdictFail, false, 5, 3),
		}
		c := BuildConsensus(results)
		assert.Equal(t, types.VerdictPassWithChanges, c.Recommendation)
		assert.Equal(t, types.AgreementModerate, c.Agreement)
		assert.InDelta(t, 1.0/3.0, c.Confidence, 1e-9)
	})

	t.Run("empty results", func(t *testing.T) {
		c := BuildConsensus(nil)
		assert.Equal(t, types.VerdictPassWithChanges, c.Recommendation)
	})
}

func TestGradeMetrics(t *testing.T) {
	t.Run("critical bugs short-circuit to F", func(t *testing.T) {
		m := &types.AggregatedMetrics{
			CompletionRate: 100, AvgDifficulty: 5.5, AvgEngagement: 9,
			BugsBySeverity: map[types.Severity]int{types.SeverityCritical: 2},
		}
		g := GradeMetrics(m)
		assert.Equal(t, "F", g.Letter)
		assert.Equal(t, 30.0, g.Score)
	})

	t.Run("critical floor never goes negative", func(t *testing.T) {
		m := &types.AggregatedMetrics{
			BugsBySeverity: map[types.Severity]int{types.SeverityCritical: 9},
		}
		g := GradeMetrics(m)
		assert.Equal(t, 0.0, g.Score)
	})

	t.Run("clean run is an A", func(t *testing.T) {
		m := &types.AggregatedMetrics{
			CompletionRate: 100, AvgDifficulty: 5.5, AvgEngagement: 8,
			BugsBySeverity: map[types.Severity]int{},
		}
		g := GradeMetrics(m)
		assert.Equal(t, "A", g.Letter)
		assert.Equal(t, 100.0, g.Score)
	})

	t.Run("major bugs deduct ten each", func(t *testing.T) {
		m := &types.AggregatedMetrics{
			CompletionRate: 100, AvgDifficulty: 5.5, AvgEngagement: 8,
			BugsBySeverity: map[types.Severity]int{types.SeverityMajor: 3},
		}
		g := GradeMetrics(m)
		assert.Equal(t, 70.0, g.Score)
		assert.Equal(t, "C", g.Letter)
	})

	t.Run("low completion and engagement deduct", func(t *testing.T) {
		m := &types.AggregatedMetrics{
			CompletionRate: 40, AvgDifficulty: 5.5, AvgEngagement: 3,
			BugsBySeverity: map[types.Severity]int{},
		}
		// 100 - (70-40)/2 - (5-3)*5 = 75
		g := GradeMetrics(m)
		assert.Equal(t, 75.0, g.Score)
		assert.Equal(t, "C", g.Letter)
	})
}

func TestBuildRecommendations(t *testing.T) {
	t.Run("clean metrics produce a single informational entry", func(t *testing.T) {
		m := &types.AggregatedMetrics{
			CompletionRate: 95, AvgDifficulty: 5.0, AvgEngagement: 8,
			BugsBySeverity: map[types.Severity]int{},
			PacingBreakdown: map[types.Pacing]int{
				types.PacingJustRight: 5,
			},
		}
		recs := BuildRecommendations(m)
		require.Len(t, recs, 1)
		assert.Equal(t, "info", recs[0].Priority)
	})

	t.Run("each firing rule contributes an entry", func(t *testing.T) {
		m := &types.AggregatedMetrics{
			CompletionRate: 30, AvgDifficulty: 8.5, AvgEngagement: 3,
			BugsBySeverity: map[types.Severity]int{types.SeverityCritical: 1},
			PacingBreakdown: map[types.Pacing]int{
				types.PacingTooFast:   4,
				types.PacingJustRight: 1,
			},
		}
		recs := BuildRecommendations(m)
		require.Len(t, recs, 5)
		assert.Equal(t, "critical", recs[0].Priority)
		cats := make([]string, 0, len(recs))
		for _, r := range recs {
			cats = append(cats, r.Category)
		}
		assert.ElementsMatch(t, []string{"stability", "completion", "difficulty", "engagement", "pacing"}, cats)
	})

	t.Run("trivial difficulty is flagged at medium priority", func(t *testing.T) {
		m := &types.AggregatedMetrics{
			CompletionRate: 100, AvgDifficulty: 2.0, AvgEngagement: 8,
			BugsBySeverity:  map[types.Severity]int{},
			PacingBreakdown: map[types.Pacing]int{types.PacingJustRight: 3},
		}
		recs := BuildRecommendations(m)
		require.Len(t, recs, 1)
		assert.Equal(t, "difficulty", recs[0].Category)
		assert.Equal(t, "medium", recs[0].Priority)
	})
}

func TestAggregate(t *testing.T) {
	t.Run("completion counts failed testers in the denominator", func(t *testing.T) {
		results := []types.TestResult{
			result(types.VerdictPass, true, 5, 7),
			result(types.VerdictPass, true, 6, 8),
			{Success: false, Pacing: types.PacingUnknown, Recommendation: types.VerdictFail},
			result(types.VerdictPass, true, 4, 6),
		}
		m := Aggregate(results)
		assert.Equal(t, 4, m.TotalTests)
		assert.InDelta(t, 75.0, m.CompletionRate, 1e-9)
	})

	t.Run("averages skip zero scores", func(t *testing.T) {
		results := []types.TestResult{
			result(types.VerdictPass, true, 6, 8),
			result(types.VerdictPass, true, 4, 6),
			{Success: false, Pacing: types.PacingUnknown, Recommendation: types.VerdictFail},
		}
		m := Aggregate(results)
		assert.InDelta(t, 5.0, m.AvgDifficulty, 1e-9)
		assert.InDelta(t, 7.0, m.AvgEngagement, 1e-9)
	})

	t.Run("pacing breakdown always carries all four keys", func(t *testing.T) {
		m := Aggregate(nil)
		assert.Len(t, m.PacingBreakdown, 4)
	})

	t.Run("groups by knowledge level and archetype", func(t *testing.T) {
		results := []types.TestResult{
			{Success: true, Completed: true, Difficulty: 8, Engagement: 6, Pacing: types.PacingJustRight, KnowledgeLevel: types.KnowledgeBeginner, Archetype: "casual", Recommendation: types.VerdictPass},
			{Success: true, Completed: false, Difficulty: 4, Engagement: 7, Pacing: types.PacingJustRight, KnowledgeLevel: types.KnowledgeExpert, Archetype: "breaker", Recommendation: types.VerdictPass},
			{Success: true, Completed: true, Difficulty: 6, Engagement: 9, Pacing: types.PacingJustRight, KnowledgeLevel: types.KnowledgeExpert, Archetype: "breaker", Recommendation: types.VerdictPass},
		}
		m := Aggregate(results)

		beginner := m.ByKnowledgeLevel[types.KnowledgeBeginner]
		assert.Equal(t, 1, beginner.Count)
		assert.InDelta(t, 100.0, beginner.CompletionRate, 1e-9)

		breaker := m.ByArchetype["breaker"]
		assert.Equal(t, 2, breaker.Count)
		assert.InDelta(t, 50.0, breaker.CompletionRate, 1e-9)
		assert.InDelta(t, 5.0, breaker.AvgDifficulty, 1e-9)
	})

	t.Run("bugs are deduplicated across testers", func(t *testing.T) {
		r1 := result(types.VerdictPass, true, 5, 7)
		r1.Bugs = []types.BugReport{{Description: "door clips through the east wall of the keep", Severity: types.SeverityMinor, Reporter: "Ava"}}
		r2 := result(types.VerdictPass, true, 5, 7)
		r2.Bugs = []types.BugReport{{Description: "Door clips through the east wall of the keep", Severity: types.SeverityMajor, Reporter: "Bo"}}

		m := Aggregate([]types.TestResult{r1, r2})
		require.Len(t, m.Bugs, 1)
		assert.Equal(t, 2, m.Bugs[0].ReportCount)
		assert.Equal(t, 1, m.BugsBySeverity[types.SeverityMajor])
		assert.Zero(t, m.BugsBySeverity[types.SeverityMinor])
	})
}
