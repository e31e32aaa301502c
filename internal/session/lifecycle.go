package session

import (
	"context"
	"fmt"

	"github.com/kalambet/lifexp/internal/quest"
	"github.com/kalambet/lifexp/internal/storage"
)

// ConfirmFunc asks the user to confirm giving up q.
type ConfirmFunc func(q quest.Quest) bool

// Always confirms without asking.
func Always(quest.Quest) bool { return true }

// dispatch checks that action applies to quest id, marks it in flight and
// returns the quest as it was at dispatch time.
func (m *Manager) dispatch(op Op, id quest.ID, action quest.Action) (quest.Quest, func(), error) {
	if id.IsZero() {
		return quest.Quest{}, nil, ErrNotPersisted
	}
	m.mu.Lock()
	i := m.st.indexOf(id)
	if i < 0 {
		m.mu.Unlock()
		return quest.Quest{}, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	q := m.st.quests[i]
	m.mu.Unlock()

	if _, err := quest.Next(q.Status, action); err != nil {
		return quest.Quest{}, nil, err
	}
	done, err := m.flights.begin(op, id)
	if err != nil {
		return quest.Quest{}, nil, err
	}
	return q, done, nil
}

// Accept moves a pending quest to in-progress once the backend confirms. Only
// the status of that quest changes. A failure leaves the session untouched
// and is logged; it is also returned so callers can show a diagnostic.
func (m *Manager) Accept(ctx context.Context, id quest.ID) error {
	if m.Local() {
		return m.applyLocal(ctx, id, quest.ActionAccept, nil)
	}
	q, done, err := m.dispatch(OpAccept, id, quest.ActionAccept)
	if err != nil {
		return err
	}
	defer done()

	res, err := m.backend.AcceptQuest(ctx, id)
	if err != nil {
		return m.fail("accepting quest "+id.String(), err)
	}

	m.mu.Lock()
	if i := m.st.indexOf(id); i >= 0 {
		m.st.quests[i].Status = res.Status
		q = m.st.quests[i]
	}
	m.mu.Unlock()

	m.record(ctx, storage.JournalAccepted, q, nil)
	return nil
}

// GiveUp abandons an in-progress quest. confirm runs before any request is
// sent; a nil confirm or a declined one returns ErrCancelled. The quest is
// removed only after the backend agrees.
func (m *Manager) GiveUp(ctx context.Context, id quest.ID, confirm ConfirmFunc) error {
	if m.Local() {
		return m.applyLocal(ctx, id, quest.ActionGiveUp, confirm)
	}

	q, done, err := m.dispatch(OpGiveUp, id, quest.ActionGiveUp)
	if err != nil {
		return err
	}
	defer done()

	if confirm == nil || !confirm(q) {
		return ErrCancelled
	}

	if err := m.backend.GiveUpQuest(ctx, id); err != nil {
		return m.fail("giving up quest "+id.String(), err)
	}

	m.mu.Lock()
	if i := m.st.indexOf(id); i >= 0 {
		m.st.remove(i)
	}
	m.mu.Unlock()

	m.record(ctx, storage.JournalGaveUp, q, nil)
	return nil
}

// Complete finishes an in-progress quest. The XP total is replaced by the
// backend's figure, the quest leaves the collection and a reward notice is
// raised. When the backend omits the total it is re-read from the backend.
func (m *Manager) Complete(ctx context.Context, id quest.ID) error {
	if m.Local() {
		return m.applyLocal(ctx, id, quest.ActionComplete, nil)
	}
	q, done, err := m.dispatch(OpComplete, id, quest.ActionComplete)
	if err != nil {
		return err
	}
	defer done()

	res, err := m.backend.CompleteQuest(ctx, id)
	if err != nil {
		return m.fail("completing quest "+id.String(), err)
	}

	m.mu.Lock()
	if i := m.st.indexOf(id); i >= 0 {
		m.st.remove(i)
	}
	if res.TotalXP != nil {
		m.st.setTotal(*res.TotalXP)
	} else {
		// The ledger moved without saying where to.
		m.st.reported = nil
	}
	m.st.notice = &Notice{Reward: q.Reward, Expires: m.now().Add(m.noticeFor)}
	m.mu.Unlock()

	total := res.TotalXP
	if total == nil {
		total = m.syncTotal(ctx)
	}
	m.record(ctx, storage.JournalCompleted, q, total)
	return nil
}

// syncTotal re-reads the XP total after a completion response without one.
// On failure the previous total stays.
func (m *Manager) syncTotal(ctx context.Context) *int {
	u, err := m.backend.WhoAmI(ctx)
	if err == nil && u.TotalXP != nil {
		m.mu.Lock()
		m.st.user = &u
		m.st.setTotal(*u.TotalXP)
		m.mu.Unlock()
		return u.TotalXP
	}
	if err != nil {
		m.logger.Warn("re-reading XP total", "error", err)
		return nil
	}

	list, err := m.backend.ListQuests(ctx)
	if err != nil {
		m.logger.Warn("re-reading XP total", "error", err)
		return nil
	}
	m.mu.Lock()
	m.st.user = &u
	m.st.ingest(list)
	total := m.st.totalXP
	m.mu.Unlock()
	return &total
}

// Apply runs action on q, which the caller captured at position i of a
// snapshot. Persisted quests are addressed by id; in local mode a quest
// without one is applied at i only if that slot still holds q. Nothing here
// reads the detail view, so concurrent callers cannot act on each other's
// selection. confirm is consulted for ActionGiveUp only.
func (m *Manager) Apply(ctx context.Context, i int, q quest.Quest, action quest.Action, confirm ConfirmFunc) error {
	if q.Persisted() {
		switch action {
		case quest.ActionAccept:
			return m.Accept(ctx, q.ID)
		case quest.ActionGiveUp:
			return m.GiveUp(ctx, q.ID, confirm)
		case quest.ActionComplete:
			return m.Complete(ctx, q.ID)
		}
		return fmt.Errorf("%w: unknown action %q", quest.ErrInvalidTransition, action)
	}
	if !m.Local() {
		return ErrNotPersisted
	}
	if action == quest.ActionGiveUp && (confirm == nil || !confirm(q)) {
		return ErrCancelled
	}
	return m.applyLocalAt(ctx, i, q, action)
}

// AcceptSelected accepts the quest open in the detail view.
func (m *Manager) AcceptSelected(ctx context.Context) error {
	q, i, err := m.resolveSelected()
	if err != nil {
		return err
	}
	return m.Apply(ctx, i, q, quest.ActionAccept, nil)
}

// GiveUpSelected gives up the quest open in the detail view.
func (m *Manager) GiveUpSelected(ctx context.Context, confirm ConfirmFunc) error {
	q, i, err := m.resolveSelected()
	if err != nil {
		return err
	}
	return m.Apply(ctx, i, q, quest.ActionGiveUp, confirm)
}

// CompleteSelected completes the quest open in the detail view.
func (m *Manager) CompleteSelected(ctx context.Context) error {
	q, i, err := m.resolveSelected()
	if err != nil {
		return err
	}
	return m.Apply(ctx, i, q, quest.ActionComplete, nil)
}

// resolveSelected captures the selected quest before any request is
// dispatched; the index may be stale once the response arrives.
func (m *Manager) resolveSelected() (quest.Quest, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.st.selected
	if s < 0 || s >= len(m.st.quests) {
		return quest.Quest{}, 0, ErrNoSelection
	}
	q := m.st.quests[s]
	if q.ID.IsZero() && !m.Local() {
		return quest.Quest{}, 0, ErrNotPersisted
	}
	return q, s, nil
}
