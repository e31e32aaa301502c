package session

import (
	"context"
	"fmt"

	"github.com/kalambet/lifexp/internal/backend"
	"github.com/kalambet/lifexp/internal/quest"
	"github.com/kalambet/lifexp/internal/storage"
)

// applyLocal runs a transition in local mode, where the collection is the
// only record.
func (m *Manager) applyLocal(ctx context.Context, id quest.ID, action quest.Action, confirm ConfirmFunc) error {
	if id.IsZero() {
		return ErrNotPersisted
	}
	m.mu.Lock()
	i := m.st.indexOf(id)
	if i < 0 {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	q := m.st.quests[i]
	m.mu.Unlock()

	if action == quest.ActionGiveUp && (confirm == nil || !confirm(q)) {
		return ErrCancelled
	}
	return m.applyLocalAt(ctx, i, q, action)
}

// applyLocalAt applies action to quests[i], provided it still holds q.
func (m *Manager) applyLocalAt(ctx context.Context, i int, q quest.Quest, action quest.Action) error {
	next, err := quest.Next(q.Status, action)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if i >= len(m.st.quests) || m.st.quests[i] != q {
		m.mu.Unlock()
		return fmt.Errorf("%w: %q changed", ErrNotFound, q.Title)
	}

	var (
		kind  string
		total *int
	)
	switch next {
	case quest.StatusInProgress:
		m.st.quests[i].Status = next
		kind = storage.JournalAccepted
	case quest.Removed:
		m.st.remove(i)
		kind = storage.JournalGaveUp
	case quest.StatusCompleted:
		m.st.remove(i)
		q.Status = next
		m.st.completed = append(m.st.completed, q)
		m.st.totalXP = backend.CompletedXP(m.st.completed)
		m.st.notice = &Notice{Reward: q.Reward, Expires: m.now().Add(m.noticeFor)}
		t := m.st.totalXP
		total = &t
		kind = storage.JournalCompleted
	}
	m.mu.Unlock()

	m.record(ctx, kind, q, total)
	return nil
}
