package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Journal entry kinds.
const (
	JournalCreated   = "created"
	JournalAccepted  = "accepted"
	JournalGaveUp    = "gave_up"
	JournalCompleted = "completed"
)

// JournalEntry is one confirmed quest transition.
type JournalEntry struct {
	ID        string    `json:"id" yaml:"id"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Kind      string    `json:"kind" yaml:"kind"`
	QuestID   string    `json:"quest_id,omitempty" yaml:"quest_id,omitempty"`
	Title     string    `json:"title" yaml:"title"`
	Reward    int       `json:"reward" yaml:"reward"`
	TotalXP   *int      `json:"total_xp,omitempty" yaml:"total_xp,omitempty"` // set for completions
}

// Draft is quest text waiting to be corrected and submitted.
type Draft struct {
	ID        string    `json:"id" yaml:"id"`
	Text      string    `json:"text" yaml:"text"`
	Source    string    `json:"source" yaml:"source"` // "generated" or "pasted"
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

type storedCookie struct {
	Name      string
	Value     string
	Path      string
	Domain    string // empty for host-only cookies
	Secure    bool
	HttpOnly  bool
	ExpiresAt *time.Time
}
