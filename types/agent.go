package types

import "time"

// Persona describes the character an agent plays during a session.
type Persona struct {
	Personality string   `json:"personality"`
	Goals       []string `json:"goals,omitempty"`
	Specialties []string `json:"specialties,omitempty"`
	Background  string   `json:"background,omitempty"`
}

// Agent is a persona-bound participant in a collaboration session.
// An Agent is owned by the session's registry for the lifetime of that
// session; its running stats are mutated only by the round executor.
type Agent struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Persona      Persona   `json:"persona"`
	MessageCount int       `json:"message_count"`
	LastActive   time.Time `json:"last_active,omitempty"`
}

// KnowledgeLevel is a tester's familiarity with the genre under test.
type KnowledgeLevel string

const (
	KnowledgeBeginner     KnowledgeLevel = "beginner"
	KnowledgeIntermediate KnowledgeLevel = "intermediate"
	KnowledgeExpert       KnowledgeLevel = "expert"
)

// Tester is an agent specialized for playtesting. It carries an archetype
// (speedrunner, completionist, ...) and running swarm statistics.
type Tester struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Archetype      string         `json:"archetype"`
	KnowledgeLevel KnowledgeLevel `json:"knowledge_level"`
	Personality    string         `json:"personality,omitempty"`
	Expectations   []string       `json:"expectations,omitempty"`
	TestsCompleted int            `json:"tests_completed"`
	BugsFound      int            `json:"bugs_found"`
	AvgEngagement  float64        `json:"avg_engagement"`
}
