// Package generate turns a task description into quest fields, either through
// the backend's /generate endpoint or a local Ollama model.
package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/kalambet/lifexp/internal/ollama"
	"github.com/kalambet/lifexp/internal/quest"
)

// Provider names accepted by the generate.provider setting.
const (
	ProviderRemote = "remote"
	ProviderOllama = "ollama"
)

// QuestGenerator is the backend's generation call.
type QuestGenerator interface {
	GenerateQuest(ctx context.Context, task string) (quest.Generated, error)
}

// Remote generates quests through the backend.
type Remote struct {
	client QuestGenerator
}

// NewRemote creates a Remote backed by client.
func NewRemote(client QuestGenerator) *Remote {
	return &Remote{client: client}
}

// Generate implements session.Generator.
func (r *Remote) Generate(ctx context.Context, task string) (quest.Generated, error) {
	g, err := r.client.GenerateQuest(ctx, task)
	if err != nil {
		return quest.Generated{}, err
	}
	return sanitize(g), nil
}

// OllamaChatter is the interface for chat completion via Ollama.
type OllamaChatter interface {
	Chat(ctx context.Context, model string, messages []ollama.Message, jsonSchema *ollama.Schema) (string, error)
}

// Ollama generates quests with a local model.
type Ollama struct {
	client  OllamaChatter
	model   string
	timeout time.Duration
}

// NewOllama creates an Ollama generator. A zero timeout means no limit
// beyond ctx.
func NewOllama(client OllamaChatter, model string, timeout time.Duration) *Ollama {
	return &Ollama{client: client, model: model, timeout: timeout}
}

// Generate implements session.Generator. The model is asked for JSON; when
// it answers with prose instead, the fields are read from the text.
func (o *Ollama) Generate(ctx context.Context, task string) (quest.Generated, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	raw, err := o.client.Chat(ctx, o.model, BuildPrompt(task), questSchema())
	if err != nil {
		return quest.Generated{}, fmt.Errorf("generating quest with %s: %w", o.model, err)
	}

	var g quest.Generated
	if err := json.Unmarshal([]byte(raw), &g); err != nil || g == (quest.Generated{}) {
		slog.Debug("quest generation returned no JSON, reading text", "model", o.model)
		return ParseText(raw), nil
	}
	return sanitize(g), nil
}
