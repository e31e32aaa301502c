package backend

import "github.com/kalambet/lifexp/internal/quest"

// User is the authenticated account as reported by /me and /login.
type User struct {
	ID       quest.ID `json:"id"`
	Username string   `json:"username"`
	TotalXP  *int     `json:"totalXP,omitempty"`
}

// QuestList is a normalized GET /quests response. TotalXP is nil when the
// backend did not report a total.
type QuestList struct {
	Quests  []quest.Quest
	TotalXP *int
}

// AcceptResult mirrors PATCH /quests/{id}/accept.
type AcceptResult struct {
	ID     quest.ID     `json:"id"`
	Status quest.Status `json:"status"`
}

// CompleteResult mirrors PATCH /quests/{id}. TotalXP is the authoritative
// new total; nil when the backend omitted it.
type CompleteResult struct {
	Message string `json:"message"`
	TotalXP *int   `json:"totalXP"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userEnvelope struct {
	User *User `json:"user"`
}

type generateRequest struct {
	Task string `json:"task"`
}

type completeRequest struct {
	Status quest.Status `json:"status"`
}

// createRequest carries the quest fields without an id.
type createRequest struct {
	Title     string       `json:"title"`
	Backstory string       `json:"backstory"`
	Objective string       `json:"objective"`
	Reward    int          `json:"reward"`
	Icon      string       `json:"icon"`
	Status    quest.Status `json:"status"`
}
