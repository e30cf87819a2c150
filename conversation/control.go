package conversation

import (
	"regexp"
	"strings"
)

// In-band control tokens agents embed in generated text. This is a minimal
// sub-protocol isolated here so the grammar can be swapped for structured
// output later.
const (
	EndMarker    = "[END_CONVERSATION]"
	handoffToken = "HANDOFF"
)

var handoffRe = regexp.MustCompile(`\[` + handoffToken + `(?::\s*([^\]]*))?\]`)

// Control is the parsed control state of one generated turn.
type Control struct {
	// End terminates the round loop immediately.
	End bool
	// Handoff suggests a conversational transition. It is informational
	// only: the router always chooses the next speaker dynamically.
	Handoff bool
	// Reason is the optional free-text handoff reason.
	Reason string
}

// ParseControl scans generated text for the end and handoff markers.
//
// The scan is a plain substring match, so in-character dialogue that
// literally contains a marker will trigger it. Intentional until the token
// grammar moves to structured output.
func ParseControl(text string) Control {
	var c Control

	if strings.Contains(text, EndMarker) {
		c.End = true
	}
	if m := handoffRe.FindStringSubmatch(text); m != nil {
		c.Handoff = true
		c.Reason = strings.TrimSpace(m[1])
	}
	return c
}

// StripControl removes control tokens from text, leaving the in-character
// content for history and synthesis.
func StripControl(text string) string {
	text = strings.ReplaceAll(text, EndMarker, "")
	text = handoffRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
