package quest

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"Yet to Embark", StatusPending},
		{"pending", StatusPending},
		{"", StatusPending},
		{"In Progress", StatusInProgress},
		{"InProgress", StatusInProgress},
		{"in_progress", StatusInProgress},
		{"Completed", StatusCompleted},
		{"COMPLETE", StatusCompleted},
	}
	for _, tt := range tests {
		got, err := ParseStatus(tt.in)
		if err != nil {
			t.Errorf("ParseStatus(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := ParseStatus("abandoned"); err == nil {
		t.Error("ParseStatus(abandoned) should fail")
	}
}

func TestQuestJSON(t *testing.T) {
	raw := `{"id":7,"title":"Sanity Run","backstory":"b","objective":"jog","reward":900,"icon":"🏃","status":"In Progress"}`

	var q Quest
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if q.ID != "7" {
		t.Errorf("ID = %q, want 7", q.ID)
	}
	if q.Status != StatusInProgress {
		t.Errorf("Status = %q, want %q", q.Status, StatusInProgress)
	}
	if !q.Persisted() {
		t.Error("quest with id should be persisted")
	}

	out, err := json.Marshal(q)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back map[string]any
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("unmarshal back: %v", err)
	}
	if back["id"] != float64(7) {
		t.Errorf("id = %v, want numeric 7", back["id"])
	}
	if back["status"] != "In Progress" {
		t.Errorf("status = %v, want In Progress", back["status"])
	}
}

func TestQuestJSON_StringAndMissingID(t *testing.T) {
	var q Quest
	if err := json.Unmarshal([]byte(`{"id":"q-abc","title":"t","status":"Yet to Embark"}`), &q); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if q.ID != "q-abc" {
		t.Errorf("ID = %q, want q-abc", q.ID)
	}

	var unsaved Quest
	if err := json.Unmarshal([]byte(`{"title":"t"}`), &unsaved); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if unsaved.Persisted() {
		t.Error("quest without id must not be persisted")
	}

	out, _ := json.Marshal(Quest{Title: "t", Status: StatusPending})
	var m map[string]any
	json.Unmarshal(out, &m)
	if _, ok := m["id"]; ok {
		t.Errorf("unsaved quest should omit id, got %s", out)
	}
}

func TestNext(t *testing.T) {
	tests := []struct {
		from    Status
		action  Action
		want    Status
		wantErr bool
	}{
		{StatusPending, ActionAccept, StatusInProgress, false},
		{StatusInProgress, ActionComplete, StatusCompleted, false},
		{StatusInProgress, ActionGiveUp, Removed, false},
		{StatusPending, ActionComplete, "", true},
		{StatusPending, ActionGiveUp, "", true},
		{StatusInProgress, ActionAccept, "", true},
		{StatusCompleted, ActionAccept, "", true},
		{StatusCompleted, ActionGiveUp, "", true},
	}
	for _, tt := range tests {
		got, err := Next(tt.from, tt.action)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("Next(%q, %s) err = %v, want ErrInvalidTransition", tt.from, tt.action, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Next(%q, %s) unexpected error: %v", tt.from, tt.action, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Next(%q, %s) = %q, want %q", tt.from, tt.action, got, tt.want)
		}
	}
}

func TestActions(t *testing.T) {
	if got := Actions(StatusPending); len(got) != 1 || got[0] != ActionAccept {
		t.Errorf("Actions(pending) = %v", got)
	}
	if got := Actions(StatusInProgress); len(got) != 2 || got[0] != ActionGiveUp || got[1] != ActionComplete {
		t.Errorf("Actions(in progress) = %v", got)
	}
	if got := Actions(StatusCompleted); got != nil {
		t.Errorf("Actions(completed) = %v, want none", got)
	}
}

func TestDisplayIcon(t *testing.T) {
	if got := (Quest{}).DisplayIcon(); got != DefaultIcon {
		t.Errorf("DisplayIcon() = %q, want %q", got, DefaultIcon)
	}
	if got := (Quest{Icon: "🧹"}).DisplayIcon(); got != "🧹" {
		t.Errorf("DisplayIcon() = %q", got)
	}
}

func TestStarterQuestsAreAcceptable(t *testing.T) {
	for _, q := range Starter() {
		if err := Validate(q); err != nil {
			t.Errorf("starter quest %q rejected: %v", q.Title, err)
		}
		if q.Status != StatusPending {
			t.Errorf("starter quest %q status = %q", q.Title, q.Status)
		}
	}
}
