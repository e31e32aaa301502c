package backend

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/kalambet/lifexp/internal/quest"
)

// DecodeQuestList accepts both list shapes the backend has served:
// a bare JSON array of quests, or {"quests": [...], "totalXP": n}.
func DecodeQuestList(raw []byte) (QuestList, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return QuestList{}, fmt.Errorf("%w: empty quest list", ErrMalformedResponse)
	}

	switch raw[0] {
	case '[':
		var quests []quest.Quest
		if err := json.Unmarshal(raw, &quests); err != nil {
			return QuestList{}, fmt.Errorf("%w: decoding quest array: %v", ErrMalformedResponse, err)
		}
		return QuestList{Quests: quests}, nil

	case '{':
		var wrapped struct {
			Quests  []quest.Quest `json:"quests"`
			TotalXP *int          `json:"totalXP"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return QuestList{}, fmt.Errorf("%w: decoding quest object: %v", ErrMalformedResponse, err)
		}
		return QuestList{Quests: wrapped.Quests, TotalXP: wrapped.TotalXP}, nil
	}

	return QuestList{}, fmt.Errorf("%w: unexpected quest list payload", ErrMalformedResponse)
}

// CompletedXP sums the rewards of completed quests. It is the fallback total
// when the backend reports none.
func CompletedXP(quests []quest.Quest) int {
	total := 0
	for _, q := range quests {
		if q.Status == quest.StatusCompleted {
			total += q.Reward
		}
	}
	return total
}
