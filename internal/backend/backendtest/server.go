// Package backendtest provides an in-memory LifeXP backend for tests.
package backendtest

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/lifexp/internal/quest"
)

// SessionCookie is the cookie the fake backend issues on login.
const SessionCookie = "session"

// ListShape selects how GET /quests is encoded.
type ListShape int

const (
	// ShapeObject returns {"quests": [...], "totalXP": n}.
	ShapeObject ListShape = iota
	// ShapeArray returns a bare array of quests.
	ShapeArray
	// ShapeObjectNoTotal returns {"quests": [...]}.
	ShapeObjectNoTotal
)

// Request is a request the fake backend received.
type Request struct {
	Method    string
	Path      string
	Route     string
	Body      string
	RequestID string
}

type account struct {
	id       int
	password string
	totalXP  int
	quests   []*quest.Quest
}

type failure struct {
	status int
	body   string
}

// Server is a fake backend implementing the LifeXP HTTP contract.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	accounts  map[string]*account
	sessions  map[string]string
	nextID    int
	shape     ListShape
	omitMe    bool
	omitTotal bool
	generated quest.Generated
	failures  map[string]failure
	gates     map[string]chan struct{}
	requests  []Request
}

// New starts a fake backend that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		accounts: make(map[string]*account),
		sessions: make(map[string]string),
		failures: make(map[string]failure),
		gates:    make(map[string]chan struct{}),
		nextID:   1,
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Server.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/me", s.wrap("GET /me", s.handleMe))
	r.Post("/login", s.wrap("POST /login", s.handleLogin))
	r.Post("/register", s.wrap("POST /register", s.handleRegister))
	r.Post("/logout", s.wrap("POST /logout", s.handleLogout))
	r.Post("/generate", s.wrap("POST /generate", s.handleGenerate))

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)
		r.Get("/quests", s.wrap("GET /quests", s.handleList))
		r.Post("/quests", s.wrap("POST /quests", s.handleCreate))
		r.Patch("/quests/{id}/accept", s.wrap("PATCH /quests/{id}/accept", s.handleAccept))
		r.Delete("/quests/{id}/giveup", s.wrap("DELETE /quests/{id}/giveup", s.handleGiveUp))
		r.Patch("/quests/{id}", s.wrap("PATCH /quests/{id}", s.handleComplete))
	})
	return r
}

// --- test controls ---

// AddUser registers an account directly.
func (s *Server) AddUser(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addUserLocked(username, password)
}

func (s *Server) addUserLocked(username, password string) *account {
	a := &account{id: len(s.accounts) + 1, password: password}
	s.accounts[username] = a
	return a
}

// Seed stores quests for username, assigning ids, and returns the stored copies.
func (s *Server) Seed(username string, quests ...quest.Quest) []quest.Quest {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accounts[username]
	if a == nil {
		a = s.addUserLocked(username, "")
	}
	out := make([]quest.Quest, 0, len(quests))
	for _, q := range quests {
		q := q
		if q.ID.IsZero() {
			q.ID = quest.ID(strconv.Itoa(s.nextID))
			s.nextID++
		}
		if q.Status == "" {
			q.Status = quest.StatusPending
		}
		a.quests = append(a.quests, &q)
		out = append(out, q)
	}
	return out
}

// Login returns a session cookie for username without an HTTP round trip.
func (s *Server) Login(username string) *http.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accounts[username] == nil {
		s.addUserLocked(username, "")
	}
	return &http.Cookie{Name: SessionCookie, Value: s.newSessionLocked(username), Path: "/"}
}

// SetTotalXP sets the server-side XP total of username.
func (s *Server) SetTotalXP(username string, xp int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.accounts[username]; a != nil {
		a.totalXP = xp
	}
}

// TotalXP returns the server-side XP total of username.
func (s *Server) TotalXP(username string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.accounts[username]; a != nil {
		return a.totalXP
	}
	return 0
}

// Quests returns the stored quests of username, completed ones included.
func (s *Server) Quests(username string) []quest.Quest {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accounts[username]
	if a == nil {
		return nil
	}
	out := make([]quest.Quest, len(a.quests))
	for i, q := range a.quests {
		out[i] = *q
	}
	return out
}

// SetListShape selects the GET /quests encoding.
func (s *Server) SetListShape(shape ListShape) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shape = shape
}

// OmitTotals makes /me and quest completion responses leave out totalXP.
func (s *Server) OmitTotals(omit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.omitMe = omit
	s.omitTotal = omit
}

// SetGenerated sets the fields POST /generate answers with.
func (s *Server) SetGenerated(g quest.Generated) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generated = g
}

// FailNext makes the next request to route (e.g. "PATCH /quests/{id}/accept")
// answer with status and body.
func (s *Server) FailNext(route string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = failure{status: status, body: body}
}

// Block holds requests to route until the returned release func is called.
func (s *Server) Block(route string) (release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{})
	s.gates[route] = ch
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.gates, route)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many requests hit route.
func (s *Server) Count(route string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Route == route {
			n++
		}
	}
	return n
}

// --- plumbing ---

type handler func(w http.ResponseWriter, r *http.Request, body []byte)

func (s *Server) wrap(route string, h handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			var raw json.RawMessage
			if err := json.NewDecoder(r.Body).Decode(&raw); err == nil {
				body = raw
			}
		}

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:    r.Method,
			Path:      r.URL.Path,
			Route:     route,
			Body:      string(body),
			RequestID: r.Header.Get("X-Request-ID"),
		})
		gate := s.gates[route]
		f, failing := s.failures[route]
		if failing {
			delete(s.failures, route)
		}
		s.mu.Unlock()

		if gate != nil {
			select {
			case <-gate:
			case <-r.Context().Done():
				return
			}
		}

		if failing {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			w.Write([]byte(f.body))
			return
		}

		h(w, r, body)
	}
}

func (s *Server) sessionUser(r *http.Request) (string, *account) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return "", nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	name, ok := s.sessions[c.Value]
	if !ok {
		return "", nil
	}
	return name, s.accounts[name]
}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, a := s.sessionUser(r); a == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) newSessionLocked(username string) string {
	var b [16]byte
	rand.Read(b[:])
	token := hex.EncodeToString(b[:])
	s.sessions[token] = username
	return token
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
