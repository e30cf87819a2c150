package types

import "time"

// Message is one agent turn in a conversation. Messages are immutable once
// appended; the history they form is append-only and single-writer.
type Message struct {
	Round     int       `json:"round"`
	AgentID   string    `json:"agent_id"`
	AgentName string    `json:"agent_name"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a message stamped with the current time.
func NewMessage(round int, agentID, agentName, content string) Message {
	return Message{
		Round:     round,
		AgentID:   agentID,
		AgentName: agentName,
		Content:   content,
		Timestamp: time.Now(),
	}
}
