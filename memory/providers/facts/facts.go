package facts

import (
	"context"
	"time"
)

// Source records how a fact entered the store.
type Source string

const (
	SourceExplicit  Source = "explicit"
	SourceInferred  Source = "inferred"
	SourceCorrected Source = "corrected"
)

// Fact is a keyed piece of durable user knowledge. At most one active fact
// exists per (user, key, category); writes to an existing triple update in
// place. Deletion is a soft delete: the row stays, flagged inactive.
type Fact struct {
	Id         string         `json:"id"`
	UserId     string         `json:"user_id"`
	Key        string         `json:"key"`
	Value      string         `json:"value"`
	Category   string         `json:"category"`
	Confidence int            `json:"confidence"`
	Source     Source         `json:"source"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Active     bool           `json:"active"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Summary is an archived conversation summary. Created once per archived
// session, never mutated.
type Summary struct {
	Id           string    `json:"id"`
	UserId       string    `json:"user_id"`
	SessionId    string    `json:"session_id"`
	Summary      string    `json:"summary"`
	Topics       []string  `json:"topics"`
	ActionItems  []string  `json:"action_items"`
	Sentiment    string    `json:"sentiment"`
	MessageCount int       `json:"message_count"`
	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// Storer is the durable fact tier. All reads filter inactive rows.
type Storer interface {
	Store(ctx context.Context, userId string, key string, value string, category string, confidence int, source Source, metadata map[string]any) (string, error)
	Get(ctx context.Context, userId string, key string, category string) (*Fact, error)
	GetByCategory(ctx context.Context, userId string, category string) ([]Fact, error)
	GetAll(ctx context.Context, userId string) ([]Fact, error)
	Search(ctx context.Context, userId string, query string, category string) ([]Fact, error)
	Delete(ctx context.Context, userId string, key string, category string) (bool, error)
}

// SummaryStorer persists archived conversation summaries. Backends that
// implement Storer on a durable database implement this too.
type SummaryStorer interface {
	StoreSummary(ctx context.Context, summary Summary) (string, error)
	ListSummaries(ctx context.Context, userId string) ([]Summary, error)
}

// ClampConfidence bounds confidence to the 0-100 scale shared by backends.
func ClampConfidence(confidence int) int {
	if confidence < 0 {
		return 0
	}
	if confidence > 100 {
		return 100
	}
	return confidence
}
