// Package session holds the quest lifecycle manager: the per-user collection
// of quests, the XP total and the detail-view selection, kept in step with
// the backend's responses.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kalambet/lifexp/internal/backend"
	"github.com/kalambet/lifexp/internal/quest"
	"github.com/kalambet/lifexp/internal/storage"
)

// DefaultNoticeDuration is how long a reward notice stays visible.
const DefaultNoticeDuration = time.Second

// Backend is the persistence and authentication collaborator.
type Backend interface {
	WhoAmI(ctx context.Context) (backend.User, error)
	ListQuests(ctx context.Context) (backend.QuestList, error)
	CreateQuest(ctx context.Context, q quest.Quest) (quest.Quest, error)
	AcceptQuest(ctx context.Context, id quest.ID) (backend.AcceptResult, error)
	GiveUpQuest(ctx context.Context, id quest.ID) error
	CompleteQuest(ctx context.Context, id quest.ID) (backend.CompleteResult, error)
	Login(ctx context.Context, username, password string) (backend.User, error)
	Register(ctx context.Context, username, password string) error
	Logout(ctx context.Context) error
}

// Generator turns a task description into quest fields.
type Generator interface {
	Generate(ctx context.Context, task string) (quest.Generated, error)
}

// Journal records confirmed transitions.
type Journal interface {
	AppendJournal(ctx context.Context, e storage.JournalEntry) error
}

// Drafts keeps quest text that has not been accepted yet.
type Drafts interface {
	SaveDraft(ctx context.Context, text, source string) (storage.Draft, error)
	DiscardDraft(ctx context.Context) error
}

// Manager is the quest lifecycle manager for one user session. It is safe for
// concurrent use; state changes are applied only after the backend confirms.
type Manager struct {
	backend   Backend
	generator Generator
	journal   Journal
	drafts    Drafts
	logger    *slog.Logger
	noticeFor time.Duration
	now       func() time.Time

	flights inflight

	mu sync.Mutex
	st state
}

// Option configures a Manager.
type Option func(*Manager)

// WithGenerator sets the quest generation collaborator.
func WithGenerator(g Generator) Option { return func(m *Manager) { m.generator = g } }

// WithJournal records every confirmed transition.
func WithJournal(j Journal) Option { return func(m *Manager) { m.journal = j } }

// WithDrafts persists unaccepted quest text.
func WithDrafts(d Drafts) Option { return func(m *Manager) { m.drafts = d } }

// WithLogger sets the diagnostics logger.
func WithLogger(l *slog.Logger) Option { return func(m *Manager) { m.logger = l } }

// WithNoticeDuration overrides how long reward notices last.
func WithNoticeDuration(d time.Duration) Option { return func(m *Manager) { m.noticeFor = d } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

// WithQuests seeds the collection, for local mode.
func WithQuests(qs []quest.Quest) Option {
	return func(m *Manager) { m.st.quests = append([]quest.Quest(nil), qs...) }
}

// New creates a Manager. A nil Backend selects local mode: quests live only in
// memory and transitions apply immediately.
func New(b Backend, opts ...Option) *Manager {
	m := &Manager{
		backend:   b,
		logger:    slog.Default(),
		noticeFor: DefaultNoticeDuration,
		now:       time.Now,
		st:        newState(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Local reports whether the manager runs without a backend.
func (m *Manager) Local() bool { return m.backend == nil }

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.snapshot(m.now())
}

// Notice returns the reward notice, or nil once it has expired.
func (m *Manager) Notice() *Notice {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.st.activeNotice(m.now())
	if n == nil {
		return nil
	}
	c := *n
	return &c
}

// Busy reports whether op on id is waiting for the backend. Use the zero id
// for OpCreate and OpGenerate.
func (m *Manager) Busy(op Op, id quest.ID) bool {
	return m.flights.has(op, id)
}

// Reset clears the session.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.st = newState()
	m.mu.Unlock()
}

// Start resolves the current user and then loads their quests. The user
// check always finishes before the list is requested.
func (m *Manager) Start(ctx context.Context) error {
	if m.Local() {
		return nil
	}
	u, err := m.backend.WhoAmI(ctx)
	if err != nil {
		return m.fail("resolving session", err)
	}
	m.mu.Lock()
	m.st.user = &u
	m.mu.Unlock()
	return m.Refresh(ctx)
}

// Refresh reloads the quest list from the backend.
func (m *Manager) Refresh(ctx context.Context) error {
	if m.Local() {
		return nil
	}
	list, err := m.backend.ListQuests(ctx)
	if err != nil {
		return m.fail("listing quests", err)
	}
	m.mu.Lock()
	m.st.ingest(list)
	m.mu.Unlock()
	return nil
}

// Login authenticates and loads the user's quests.
func (m *Manager) Login(ctx context.Context, username, password string) (backend.User, error) {
	if m.Local() {
		return backend.User{}, errors.New("login requires a backend")
	}
	u, err := m.backend.Login(ctx, username, password)
	if err != nil {
		m.logger.Warn("login failed", "username", username, "error", err)
		return backend.User{}, err
	}
	m.mu.Lock()
	m.st = newState()
	m.st.user = &u
	m.mu.Unlock()
	if err := m.Refresh(ctx); err != nil {
		return u, err
	}
	return u, nil
}

// Register creates an account. It does not log in.
func (m *Manager) Register(ctx context.Context, username, password string) error {
	if m.Local() {
		return errors.New("register requires a backend")
	}
	if err := m.backend.Register(ctx, username, password); err != nil {
		m.logger.Warn("register failed", "username", username, "error", err)
		return err
	}
	return nil
}

// Logout ends the session. The local state is cleared whatever the backend
// answers.
func (m *Manager) Logout(ctx context.Context) error {
	defer m.Reset()
	if m.Local() {
		return nil
	}
	if err := m.backend.Logout(ctx); err != nil {
		m.logger.Warn("logout failed", "error", err)
		return err
	}
	return nil
}

// Select opens quest i in the detail view.
func (m *Manager) Select(i int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.st.quests) {
		return fmt.Errorf("%w: index %d out of range", ErrNoSelection, i)
	}
	m.st.selected = i
	return nil
}

// CloseDetail closes the detail view.
func (m *Manager) CloseDetail() {
	m.mu.Lock()
	m.st.selected = NoSelection
	m.mu.Unlock()
}

// Selected returns the quest open in the detail view.
func (m *Manager) Selected() (quest.Quest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.snapshot(m.now()).SelectedQuest()
}

// fail logs a backend failure and resets the session when the backend no
// longer recognizes it.
func (m *Manager) fail(what string, err error) error {
	if errors.Is(err, backend.ErrUnauthenticated) {
		m.logger.Info("session not authenticated", "during", what)
		m.Reset()
		return err
	}
	m.logger.Warn(what+" failed", "error", err)
	return err
}

func (m *Manager) record(ctx context.Context, kind string, q quest.Quest, total *int) {
	if m.journal == nil {
		return
	}
	e := storage.JournalEntry{
		Kind:    kind,
		QuestID: q.ID.String(),
		Title:   q.Title,
		Reward:  q.Reward,
		TotalXP: total,
	}
	if err := m.journal.AppendJournal(ctx, e); err != nil {
		m.logger.Warn("writing journal", "kind", kind, "error", err)
	}
}
