package storage

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"
)

var ctx = context.Background()

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestMigrationsOrdered(t *testing.T) {
	s := openTestStore(t)

	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(versions) < 2 {
		t.Fatalf("expected at least two applied migrations, got %v", versions)
	}
	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Errorf("migrations not in ascending order: %v", versions)
			break
		}
	}
}

func TestIndexesExist(t *testing.T) {
	s := openTestStore(t)

	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", "idx_journal_created").Scan(&count)
	if err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}
	if count != 1 {
		t.Error("index idx_journal_created not found")
	}
}

func TestJournal_NewestFirst(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	total := 950

	entries := []JournalEntry{
		{CreatedAt: base, Kind: JournalCreated, QuestID: "3", Title: "Slay the Inbox", Reward: 150},
		{CreatedAt: base.Add(time.Minute), Kind: JournalAccepted, QuestID: "3", Title: "Slay the Inbox", Reward: 150},
		{CreatedAt: base.Add(2 * time.Minute), Kind: JournalCompleted, QuestID: "3", Title: "Slay the Inbox", Reward: 150, TotalXP: &total},
	}
	for _, e := range entries {
		if err := s.AppendJournal(ctx, e); err != nil {
			t.Fatalf("AppendJournal: %v", err)
		}
	}

	got, err := s.ListJournal(ctx, 0)
	if err != nil {
		t.Fatalf("ListJournal: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}
	if got[0].Kind != JournalCompleted || got[2].Kind != JournalCreated {
		t.Errorf("order = %s, %s, %s", got[0].Kind, got[1].Kind, got[2].Kind)
	}
	if got[0].TotalXP == nil || *got[0].TotalXP != 950 {
		t.Errorf("TotalXP = %v, want 950", got[0].TotalXP)
	}
	if got[1].TotalXP != nil {
		t.Errorf("accepted entry TotalXP = %d, want nil", *got[1].TotalXP)
	}
	if got[0].ID == "" || !got[0].CreatedAt.Equal(base.Add(2*time.Minute)) {
		t.Errorf("entry = %+v", got[0])
	}

	limited, err := s.ListJournal(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("ListJournal(2) returned %d entries", len(limited))
	}
}

func TestJournal_SubSecondOrdering(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 5, 100_000_000, time.UTC)

	s.AppendJournal(ctx, JournalEntry{CreatedAt: base, Kind: "first"})
	s.AppendJournal(ctx, JournalEntry{CreatedAt: base.Add(20 * time.Millisecond), Kind: "second"})

	got, err := s.ListJournal(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Kind != "second" {
		t.Errorf("newest = %+v, want second", got)
	}
}

func TestDrafts(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.CurrentDraft(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("CurrentDraft on empty store = %v, want ErrNotFound", err)
	}

	if _, err := s.SaveDraft(ctx, "Title: A", "generated"); err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	second, err := s.SaveDraft(ctx, "Title: B", "pasted")
	if err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}

	got, err := s.CurrentDraft(ctx)
	if err != nil {
		t.Fatalf("CurrentDraft: %v", err)
	}
	if got.ID != second.ID || got.Text != "Title: B" || got.Source != "pasted" {
		t.Errorf("CurrentDraft = %+v", got)
	}

	var n int
	s.db.QueryRow("SELECT COUNT(*) FROM drafts").Scan(&n)
	if n != 1 {
		t.Errorf("drafts table holds %d rows, want 1", n)
	}

	if err := s.DiscardDraft(ctx); err != nil {
		t.Fatalf("DiscardDraft: %v", err)
	}
	if _, err := s.CurrentDraft(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("CurrentDraft after discard = %v, want ErrNotFound", err)
	}
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestJar_PersistsAcrossInstances(t *testing.T) {
	s := openTestStore(t)
	base := mustURL(t, "http://localhost:5050")

	j1, err := s.NewJar(base)
	if err != nil {
		t.Fatalf("NewJar: %v", err)
	}
	j1.SetCookies(mustURL(t, "http://localhost:5050/login"), []*http.Cookie{
		{Name: "session", Value: "abc", Path: "/"},
	})

	j2, err := s.NewJar(base)
	if err != nil {
		t.Fatalf("NewJar: %v", err)
	}
	got := j2.Cookies(mustURL(t, "http://localhost:5050/quests"))
	if len(got) != 1 || got[0].Name != "session" || got[0].Value != "abc" {
		t.Errorf("Cookies = %v", got)
	}
}

func TestJar_RestoresCookieAttributes(t *testing.T) {
	s := openTestStore(t)
	base := mustURL(t, "https://api.example.test")

	j1, err := s.NewJar(base)
	if err != nil {
		t.Fatalf("NewJar: %v", err)
	}
	j1.SetCookies(mustURL(t, "https://api.example.test/login"), []*http.Cookie{
		{Name: "session", Value: "abc", Path: "/", Secure: true, HttpOnly: true},
		{Name: "region", Value: "eu", Path: "/", Domain: "example.test"},
	})

	stored, err := s.loadCookies(scopeOf(base))
	if err != nil {
		t.Fatal(err)
	}
	want := []storedCookie{
		{Name: "region", Value: "eu", Path: "/", Domain: "example.test"},
		{Name: "session", Value: "abc", Path: "/", Secure: true, HttpOnly: true},
	}
	if len(stored) != len(want) {
		t.Fatalf("stored cookies = %+v", stored)
	}
	for i := range want {
		if stored[i] != want[i] {
			t.Errorf("stored[%d] = %+v, want %+v", i, stored[i], want[i])
		}
	}

	j2, err := s.NewJar(base)
	if err != nil {
		t.Fatalf("NewJar: %v", err)
	}
	if got := names(j2.Cookies(mustURL(t, "https://api.example.test/quests"))); got != "region,session" {
		t.Errorf("https cookies = %q", got)
	}
	if got := names(j2.Cookies(mustURL(t, "http://api.example.test/quests"))); got != "region" {
		t.Errorf("secure cookie sent over http: %q", got)
	}
	if got := names(j2.Cookies(mustURL(t, "https://www.example.test/"))); got != "region" {
		t.Errorf("domain cookie not restored: %q", got)
	}
}

func names(cookies []*http.Cookie) string {
	out := make([]string, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, c.Name)
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}

func TestJar_ScopedToBackend(t *testing.T) {
	s := openTestStore(t)

	a, _ := s.NewJar(mustURL(t, "http://localhost:5050"))
	a.SetCookies(mustURL(t, "http://localhost:5050/login"), []*http.Cookie{{Name: "session", Value: "a"}})

	b, _ := s.NewJar(mustURL(t, "http://example.test:8080"))
	if got := b.Cookies(mustURL(t, "http://example.test:8080/")); len(got) != 0 {
		t.Errorf("other backend sees cookies: %v", got)
	}
}

func TestJar_ExpiryAndDeletion(t *testing.T) {
	s := openTestStore(t)
	base := mustURL(t, "http://localhost:5050")
	j, _ := s.NewJar(base)

	j.SetCookies(base, []*http.Cookie{
		{Name: "session", Value: "abc", Path: "/"},
		{Name: "short", Value: "x", Path: "/", Expires: time.Now().Add(-time.Hour)},
	})
	j.SetCookies(base, []*http.Cookie{{Name: "session", Value: "", Path: "/", MaxAge: -1}})

	stored, err := s.loadCookies(scopeOf(base))
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 0 {
		t.Errorf("stored cookies = %+v, want none", stored)
	}
}

func TestJar_Forget(t *testing.T) {
	s := openTestStore(t)
	base := mustURL(t, "http://localhost:5050")
	j, _ := s.NewJar(base)
	j.SetCookies(base, []*http.Cookie{{Name: "session", Value: "abc", Path: "/"}})

	if err := j.Forget(base); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if got := j.Cookies(base); len(got) != 0 {
		t.Errorf("in-memory cookies after Forget = %v", got)
	}
	j2, _ := s.NewJar(base)
	if got := j2.Cookies(base); len(got) != 0 {
		t.Errorf("persisted cookies after Forget = %v", got)
	}
}
