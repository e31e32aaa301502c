package quest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultIcon is shown for quests that carry no icon of their own.
const DefaultIcon = "📜"

// Status is the lifecycle state of a quest. Values are the labels the
// persistence backend stores and returns.
type Status string

const (
	StatusPending    Status = "Yet to Embark"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

// ParseStatus maps a backend or user supplied label onto a Status.
// Matching ignores case, spaces, dashes and underscores, so "InProgress",
// "in_progress" and "In Progress" are equivalent.
func ParseStatus(s string) (Status, error) {
	key := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))

	switch key {
	case "yettoembark", "pending", "":
		return StatusPending, nil
	case "inprogress":
		return StatusInProgress, nil
	case "completed", "complete", "done":
		return StatusCompleted, nil
	}
	return "", fmt.Errorf("unknown quest status %q", s)
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("quest status: %w", err)
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ID is the opaque identifier assigned by the persistence backend. The zero
// value means the quest has never been persisted.
type ID string

// IsZero reports whether the quest has no backend identifier yet.
func (id ID) IsZero() bool { return id == "" }

func (id ID) String() string { return string(id) }

// UnmarshalJSON accepts both numeric and string identifiers.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("quest id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON emits numeric identifiers as JSON numbers so they round-trip
// with backends that use integer keys.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Quest is a task framed as a fantasy mission.
type Quest struct {
	ID        ID     `json:"id,omitempty"`
	Title     string `json:"title"`
	Backstory string `json:"backstory"`
	Objective string `json:"objective"`
	Reward    int    `json:"reward"`
	Icon      string `json:"icon,omitempty"`
	Status    Status `json:"status"`
}

// Persisted reports whether the backend has acknowledged the quest.
func (q Quest) Persisted() bool { return !q.ID.IsZero() }

// DisplayIcon returns the quest icon or DefaultIcon.
func (q Quest) DisplayIcon() string {
	if strings.TrimSpace(q.Icon) == "" {
		return DefaultIcon
	}
	return q.Icon
}

// Action is a lifecycle operation on an existing quest.
type Action string

const (
	ActionAccept   Action = "accept"
	ActionGiveUp   Action = "giveup"
	ActionComplete Action = "complete"
)

// ErrInvalidTransition is returned when an action is not allowed from the
// quest's current status.
var ErrInvalidTransition = errors.New("invalid quest transition")

// Removed is the pseudo-status of a quest that has left the active collection.
const Removed Status = ""

var transitions = map[Status]map[Action]Status{
	StatusPending: {
		ActionAccept: StatusInProgress,
	},
	StatusInProgress: {
		ActionGiveUp:   Removed,
		ActionComplete: StatusCompleted,
	},
}

// Next returns the status reached by applying a to a quest in status from.
// Give-up yields Removed.
func Next(from Status, a Action) (Status, error) {
	to, ok := transitions[from][a]
	if !ok {
		return "", fmt.Errorf("%w: cannot %s a quest that is %q", ErrInvalidTransition, a, from)
	}
	return to, nil
}

// Actions lists the actions available for a quest in status s, in the order
// the detail view offers them.
func Actions(s Status) []Action {
	switch s {
	case StatusPending:
		return []Action{ActionAccept}
	case StatusInProgress:
		return []Action{ActionGiveUp, ActionComplete}
	}
	return nil
}

// Starter returns the quests a fresh local session begins with.
func Starter() []Quest {
	return []Quest{
		{
			Title:     "The Scrolls of Wisdom",
			Backstory: "The ancient tomes await, heavy with knowledge...",
			Objective: "study",
			Reward:    1000,
			Icon:      "📖",
			Status:    StatusPending,
		},
		{
			Title:     "Sanity Run",
			Backstory: "Madness brews like a storm in your skull...",
			Objective: "jog",
			Reward:    900,
			Icon:      "🏃‍♀️",
			Status:    StatusPending,
		},
		{
			Title:     "Brew of Awakening",
			Backstory: "The morning fog clings to your mind...",
			Objective: "make a cup of coffee.",
			Reward:    850,
			Icon:      "🔮",
			Status:    StatusPending,
		},
	}
}
