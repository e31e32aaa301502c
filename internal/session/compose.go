package session

import (
	"context"
	"strings"

	"github.com/kalambet/lifexp/internal/quest"
	"github.com/kalambet/lifexp/internal/storage"
)

// Draft sources.
const (
	SourceGenerated = "generated"
	SourcePasted    = "pasted"
)

// Generate asks the generator for a quest for task, assembles the five-field
// text and runs the format gate on it. The text is kept as the draft and
// returned even when it fails the gate, so it can be corrected.
func (m *Manager) Generate(ctx context.Context, task string) (string, error) {
	task = strings.TrimSpace(task)
	if task == "" {
		return "", ErrEmptyTask
	}
	if m.generator == nil {
		return "", ErrNoGenerator
	}
	done, err := m.flights.begin(OpGenerate, "")
	if err != nil {
		return "", err
	}
	defer done()

	g, err := m.generator.Generate(ctx, task)
	if err != nil {
		return "", m.fail("generating quest", err)
	}

	text := quest.Format(g)
	m.keepDraft(ctx, text, SourceGenerated)
	return text, quest.CheckFormat(text)
}

// AddQuest runs both gates on text and then adds the quest: in local mode it
// is appended as is, otherwise the backend's record (with its id) is
// appended. Text that fails either gate, or that the backend refuses, is kept
// as the draft.
func (m *Manager) AddQuest(ctx context.Context, text string) (quest.Quest, error) {
	q, err := quest.Accept(text)
	if err != nil {
		m.keepDraft(ctx, text, SourcePasted)
		return quest.Quest{}, err
	}

	if m.Local() {
		m.mu.Lock()
		m.st.quests = append(m.st.quests, q)
		m.mu.Unlock()
		m.dropDraft(ctx)
		m.record(ctx, storage.JournalCreated, q, nil)
		return q, nil
	}

	done, err := m.flights.begin(OpCreate, "")
	if err != nil {
		return quest.Quest{}, err
	}
	defer done()

	created, err := m.backend.CreateQuest(ctx, q)
	if err != nil {
		m.keepDraft(ctx, text, SourcePasted)
		return quest.Quest{}, m.fail("creating quest", err)
	}

	m.mu.Lock()
	m.st.quests = append(m.st.quests, created)
	m.mu.Unlock()
	m.dropDraft(ctx)
	m.record(ctx, storage.JournalCreated, created, nil)
	return created, nil
}

// SetDraft replaces the in-session draft without validating it.
func (m *Manager) SetDraft(text string) {
	m.mu.Lock()
	m.st.draft = text
	m.mu.Unlock()
}

func (m *Manager) keepDraft(ctx context.Context, text, source string) {
	m.SetDraft(text)
	if m.drafts == nil {
		return
	}
	if _, err := m.drafts.SaveDraft(ctx, text, source); err != nil {
		m.logger.Warn("saving draft", "error", err)
	}
}

func (m *Manager) dropDraft(ctx context.Context) {
	m.SetDraft("")
	if m.drafts == nil {
		return
	}
	if err := m.drafts.DiscardDraft(ctx); err != nil {
		m.logger.Warn("discarding draft", "error", err)
	}
}
