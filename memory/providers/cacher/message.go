package cacher

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one conversational turn. Immutable once appended.
type Message struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ContextMessage is the reduced shape handed to prompt assembly.
type ContextMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
