// Package extract parses free-text agent and tester responses into
// structured fields. Every field is extracted independently with ordered,
// case-insensitive pattern matching; a missing or malformed field yields its
// documented default instead of aborting the parse. The same decoder serves
// playtest tester responses and collaboration-mode synthesis prompts.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/questhive/questhive/types"
)

// Field defaults, applied whenever a pattern does not match:
//
//	Completed       false
//	Difficulty      5 (clamped to [1,10] when present)
//	Engagement      5 (clamped to [1,10] when present)
//	Pacing          unknown
//	Bugs            empty
//	ConfusionPoints empty
//	Feedback        ""
//	Recommendation  pass_with_changes
const (
	DefaultDifficulty = 5
	DefaultEngagement = 5
)

// Fields is the structured record decoded from one response.
type Fields struct {
	Completed       bool
	Difficulty      int
	Engagement      int
	Pacing          types.Pacing
	Bugs            []types.BugReport
	ConfusionPoints []string
	Feedback        string
	Recommendation  types.Verdict
}

var (
	completedRe  = regexp.MustCompile(`(?i)completed?\s*:\s*(yes|no)`)
	difficultyRe = regexp.MustCompile(`(?i)difficulty\s*:\s*(\d+)`)
	engagementRe = regexp.MustCompile(`(?i)engagement\s*:\s*(\d+)`)
	pacingRe     = regexp.MustCompile(`(?i)pacing\s*:\s*(too[_ ]fast|just[_ ]right|too[_ ]slow)`)
	feedbackRe   = regexp.MustCompile(`(?i)feedback\s*:\s*(.+)`)
	verdictRe    = regexp.MustCompile(`(?i)recommendation\s*:\s*(pass[_ ]with[_ ]changes|pass|fail)`)
	severityRe   = regexp.MustCompile(`(?i)\b(critical|major|minor)\b`)
)

// sectionHeaders delimit list sections inside a response. A bug or confusion
// section ends at the next known header or end of text.
var sectionHeaders = []string{"BUGS", "CONFUSION", "FEEDBACK", "RECOMMENDATION"}

// Parse decodes a free-text response. It never fails; see the package
// documentation for per-field defaults.
func Parse(text string) Fields {
	f := Fields{
		Difficulty:     DefaultDifficulty,
		Engagement:     DefaultEngagement,
		Pacing:         types.PacingUnknown,
		Bugs:           []types.BugReport{},
		Recommendation: types.VerdictPassWithChanges,
	}

	f.Completed = ParseCompleted(text)
	f.Difficulty = ParseScore(text, difficultyRe, DefaultDifficulty)
	f.Engagement = ParseScore(text, engagementRe, DefaultEngagement)
	f.Pacing = ParsePacing(text)
	f.Bugs = ParseBugs(text)
	f.ConfusionPoints = ParseList(text, "CONFUSION")
	f.Feedback = ParseFeedback(text)
	f.Recommendation = ParseVerdict(text)

	return f
}

// ParseCompleted extracts the YES/NO completion flag. Default false.
func ParseCompleted(text string) bool {
	m := completedRe.FindStringSubmatch(text)
	return m != nil && strings.EqualFold(m[1], "yes")
}

// ParseScore extracts a numeric 1-10 score, clamping out-of-range values.
func ParseScore(text string, re *regexp.Regexp, def int) int {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return def
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return def
	}
	if n < 1 {
		return 1
	}
	if n > 10 {
		return 10
	}
	return n
}

// ParsePacing extracts the pacing enum. Default unknown.
func ParsePacing(text string) types.Pacing {
	m := pacingRe.FindStringSubmatch(text)
	if m == nil {
		return types.PacingUnknown
	}
	switch strings.ReplaceAll(strings.ToLower(m[1]), " ", "_") {
	case "too_fast":
		return types.PacingTooFast
	case "just_right":
		return types.PacingJustRight
	case "too_slow":
		return types.PacingTooSlow
	}
	return types.PacingUnknown
}

// ParseBugs extracts the bug list from the BUGS section. Each `-` line is
// one bug; a severity keyword anywhere on the line sets severity, default
// minor. A section containing the literal word "None" yields an empty list.
func ParseBugs(text string) []types.BugReport {
	lines := ParseList(text, "BUGS")
	bugs := make([]types.BugReport, 0, len(lines))
	for _, line := range lines {
		severity := types.SeverityMinor
		if m := severityRe.FindString(line); m != "" {
			severity = types.Severity(strings.ToLower(m))
		}
		desc := cleanBugDescription(line)
		if desc == "" {
			continue
		}
		bugs = append(bugs, types.BugReport{
			Description: desc,
			Severity:    severity,
			ReportCount: 1,
		})
	}
	return bugs
}

var severityMarkerRe = regexp.MustCompile(`(?i)^[\[(]?\s*(critical|major|minor)\s*[\])]?\s*[:-]?\s*`)

func cleanBugDescription(line string) string {
	return strings.TrimSpace(severityMarkerRe.ReplaceAllString(line, ""))
}

// ParseList slices the text between the named section header and the next
// known header, returning each `-` bullet line. "None" empties the list.
func ParseList(text, header string) []string {
	section := sectionBody(text, header)
	if section == "" {
		return nil
	}
	if strings.Contains(strings.ToLower(section), "none") && !strings.Contains(section, "-") {
		return nil
	}

	var items []string
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "-") {
			continue
		}
		item := strings.TrimSpace(strings.TrimPrefix(line, "-"))
		if item == "" || strings.EqualFold(item, "none") {
			continue
		}
		items = append(items, item)
	}
	return items
}

// sectionBody returns the raw text between header and the next section
// header (or end of text). Empty string when the header is absent.
func sectionBody(text, header string) string {
	upper := strings.ToUpper(text)
	start := strings.Index(upper, strings.ToUpper(header))
	if start < 0 {
		return ""
	}
	body := text[start+len(header):]
	bodyUpper := upper[start+len(header):]

	end := len(body)
	for _, h := range sectionHeaders {
		if strings.EqualFold(h, header) {
			continue
		}
		if idx := strings.Index(bodyUpper, h); idx >= 0 && idx < end {
			end = idx
		}
	}
	return body[:end]
}

// ParseFeedback extracts the free-text feedback line. Default empty.
func ParseFeedback(text string) string {
	m := feedbackRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// ParseVerdict extracts the recommendation enum. Default pass_with_changes.
func ParseVerdict(text string) types.Verdict {
	m := verdictRe.FindStringSubmatch(text)
	if m == nil {
		return types.VerdictPassWithChanges
	}
	switch strings.ReplaceAll(strings.ToLower(m[1]), " ", "_") {
	case "pass":
		return types.VerdictPass
	case "fail":
		return types.VerdictFail
	default:
		return types.VerdictPassWithChanges
	}
}
