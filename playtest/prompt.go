// Package playtest runs a synthetic playtester swarm over game content and
// aggregates the per-tester verdicts into swarm-wide metrics, deduplicated
// bug reports, a consensus, a letter grade and prioritized recommendations.
package playtest

import (
	"fmt"
	"strings"

	"github.com/questhive/questhive/types"
)

// archetypeInstructions steer how each tester archetype plays.
var archetypeInstructions = map[string]string{
	"speedrunner":   "Rush through as fast as possible. Note anything that blocks or slows an optimal route.",
	"completionist": "Attempt every objective and optional path. Note anything missable or inconsistent.",
	"casual":        "Play at a relaxed pace. Note anything confusing or frustrating.",
	"breaker":       "Actively try to break the content: sequence-break, exploit, do things out of order.",
	"roleplayer":    "Stay immersed in the fiction. Note anything that breaks immersion or tone.",
}

// knowledgeContext frames the tester's familiarity with the genre.
var knowledgeContext = map[types.KnowledgeLevel]string{
	types.KnowledgeBeginner:     "You are new to this genre; unexplained mechanics will genuinely confuse you.",
	types.KnowledgeIntermediate: "You know the genre's conventions and notice when they are violated.",
	types.KnowledgeExpert:       "You are a veteran; judge balance and design against the best of the genre.",
}

// outputFormat is the structured reply the response extractor understands.
const outputFormat = `Report your playtest in exactly this format:

COMPLETED: YES or NO
DIFFICULTY: <1-10>
ENGAGEMENT: <1-10>
PACING: too_fast or just_right or too_slow
BUGS:
- [critical|major|minor] <description>   (or "None")
CONFUSION:
- <anything unclear>   (or "None")
FEEDBACK: <one or two sentences>
RECOMMENDATION: pass or pass_with_changes or fail`

// BuildPrompt renders the persona-specific playtest prompt for one tester.
func BuildPrompt(t *types.Tester, content string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are %s, a %s playtester.\n", t.Name, t.Archetype)
	if instr, ok := archetypeInstructions[strings.ToLower(t.Archetype)]; ok {
		sb.WriteString(instr)
		sb.WriteString("\n")
	}
	if kc, ok := knowledgeContext[t.KnowledgeLevel]; ok {
		sb.WriteString(kc)
		sb.WriteString("\n")
	}
	if t.Personality != "" {
		fmt.Fprintf(&sb, "Personality: %s\n", t.Personality)
	}
	if len(t.Expectations) > 0 {
		fmt.Fprintf(&sb, "You expect: %s\n", strings.Join(t.Expectations, "; "))
	}

	sb.WriteString("\n--- CONTENT UNDER TEST ---\n")
	sb.WriteString(content)
	sb.WriteString("\n--- END CONTENT ---\n\n")
	sb.WriteString(outputFormat)

	return sb.String()
}
