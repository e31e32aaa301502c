package session

import (
	"time"

	"github.com/kalambet/lifexp/internal/backend"
	"github.com/kalambet/lifexp/internal/quest"
)

// NoSelection is the Selected value when the detail view is closed.
const NoSelection = -1

// Notice is the transient reward notification shown after a completion.
type Notice struct {
	Reward  int
	Expires time.Time
}

// State is a point-in-time copy of the session.
type State struct {
	User     *backend.User
	Quests   []quest.Quest
	TotalXP  int
	Selected int
	Notice   *Notice
	Draft    string
}

// SelectedQuest returns the quest open in the detail view.
func (s State) SelectedQuest() (quest.Quest, bool) {
	if s.Selected < 0 || s.Selected >= len(s.Quests) {
		return quest.Quest{}, false
	}
	return s.Quests[s.Selected], true
}

// state is the mutable session held by Manager. Callers hold Manager.mu.
type state struct {
	user      *backend.User
	quests    []quest.Quest
	totalXP   int
	selected  int
	notice    *Notice
	draft     string
	completed []quest.Quest // local mode only

	// reported is the last total the backend stated outright, in a list or
	// a completion answer. A list without a total keeps it.
	reported *int
}

func newState() state {
	return state{selected: NoSelection}
}

func (s *state) indexOf(id quest.ID) int {
	for i, q := range s.quests {
		if q.ID == id {
			return i
		}
	}
	return -1
}

// remove drops quests[i] and closes the detail view.
func (s *state) remove(i int) {
	s.quests = append(s.quests[:i:i], s.quests[i+1:]...)
	s.selected = NoSelection
}

// ingest maps a quest list response onto the session. Completed quests leave
// the active collection. The total comes from the list when present, then
// from the last total the backend reported, then from the completed rewards
// in the list. The user record's total is not consulted; it is only as fresh
// as the last /me or /login.
func (s *state) ingest(list backend.QuestList) {
	var selectedID quest.ID
	if s.selected >= 0 && s.selected < len(s.quests) {
		selectedID = s.quests[s.selected].ID
	}

	active := make([]quest.Quest, 0, len(list.Quests))
	for _, q := range list.Quests {
		if q.Status == quest.StatusCompleted {
			continue
		}
		active = append(active, q)
	}
	s.quests = active

	switch {
	case list.TotalXP != nil:
		s.setTotal(*list.TotalXP)
	case s.reported != nil:
		s.totalXP = *s.reported
	default:
		s.totalXP = backend.CompletedXP(list.Quests)
	}

	s.selected = NoSelection
	if !selectedID.IsZero() {
		s.selected = s.indexOf(selectedID)
	}
}

// setTotal records a total the backend reported and keeps the user record in
// step with it.
func (s *state) setTotal(xp int) {
	s.totalXP = xp
	r := xp
	s.reported = &r
	if s.user != nil {
		u := *s.user
		t := xp
		u.TotalXP = &t
		s.user = &u
	}
}

func (s *state) snapshot(now time.Time) State {
	out := State{
		Quests:   append([]quest.Quest(nil), s.quests...),
		TotalXP:  s.totalXP,
		Selected: s.selected,
		Draft:    s.draft,
	}
	if s.user != nil {
		u := *s.user
		out.User = &u
	}
	if n := s.activeNotice(now); n != nil {
		c := *n
		out.Notice = &c
	}
	return out
}

func (s *state) activeNotice(now time.Time) *Notice {
	if s.notice == nil {
		return nil
	}
	if !now.Before(s.notice.Expires) {
		s.notice = nil
		return nil
	}
	return s.notice
}
