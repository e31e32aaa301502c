package generate

import (
	"github.com/kalambet/lifexp/internal/ollama"
)

const systemPrompt = `You turn a task into a quest.

Rules:
- Title: give the task a cool, epic, medieval quest name.
- Backstory: one short paragraph of 3 sentences, 50 words at most. Address the user as "You", never a third party. If the task contains a name or a deadline, include it.
- Objective: write the task exactly as given. Do not add time, deadlines or characters that the task does not mention.
- Reward: a number of coins suited to the difficulty of the task. It must be greater than zero. Give only the number.
- Icon: a single emoji that suits the quest.
- Do not put symbols such as ** in any field.
- Order the fields: Title, Backstory, Objective, Reward, Icon.

When asked for plain text, write each field on its own line as "Title: X", "Backstory: X", "Objective: X", "Reward: X coins", "Icon: X".`

// BuildPrompt constructs the chat messages for quest generation.
func BuildPrompt(task string) []ollama.Message {
	return []ollama.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: task},
	}
}

func questSchema() *ollama.Schema {
	return &ollama.Schema{
		Type: "object",
		Properties: map[string]ollama.SchemaProperty{
			"title":     {Type: "string", Description: "Epic medieval quest name"},
			"backstory": {Type: "string", Description: "Three sentences, 50 words max, second person"},
			"objective": {Type: "string", Description: "The task exactly as given"},
			"reward":    {Type: "integer", Description: "Coins earned, greater than zero"},
			"icon":      {Type: "string", Description: "One emoji"},
		},
		Required: []string{"title", "backstory", "objective", "reward", "icon"},
	}
}
