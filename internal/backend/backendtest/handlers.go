package backendtest

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/lifexp/internal/quest"
)

type userJSON struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	TotalXP  *int   `json:"totalXP,omitempty"`
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, _ []byte) {
	name, a := s.sessionUser(r)
	if a == nil {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	s.mu.Lock()
	u := userJSON{ID: a.id, Username: name}
	if !s.omitMe {
		xp := a.totalXP
		u.TotalXP = &xp
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request, body []byte) {
	var c credentials
	if err := json.Unmarshal(body, &c); err != nil || c.Username == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username and password are required"})
		return
	}

	s.mu.Lock()
	a := s.accounts[c.Username]
	if a == nil || a.password != c.Password {
		s.mu.Unlock()
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		return
	}
	token := s.newSessionLocked(c.Username)
	xp := a.totalXP
	u := userJSON{ID: a.id, Username: c.Username, TotalXP: &xp}
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: token, Path: "/", HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request, body []byte) {
	var c credentials
	if err := json.Unmarshal(body, &c); err != nil || c.Username == "" || c.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username and password are required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[c.Username]; exists {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "Username already taken"})
		return
	}
	s.addUserLocked(c.Username, c.Password)
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Registered"})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, _ []byte) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		s.mu.Lock()
		delete(s.sessions, c.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request, body []byte) {
	var req struct {
		Task string `json:"task"`
	}
	if err := json.Unmarshal(body, &req); err != nil || strings.TrimSpace(req.Task) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No task provided"})
		return
	}
	s.mu.Lock()
	g := s.generated
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request, _ []byte) {
	_, a := s.sessionUser(r)

	s.mu.Lock()
	quests := make([]quest.Quest, len(a.quests))
	for i, q := range a.quests {
		quests[i] = *q
	}
	xp := a.totalXP
	shape := s.shape
	s.mu.Unlock()

	switch shape {
	case ShapeArray:
		writeJSON(w, http.StatusOK, quests)
	case ShapeObjectNoTotal:
		writeJSON(w, http.StatusOK, map[string]any{"quests": quests})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"quests": quests, "totalXP": xp})
	}
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request, body []byte) {
	var q quest.Quest
	if err := json.Unmarshal(body, &q); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid quest"})
		return
	}
	if q.Title == "" || q.Objective == "" || q.Reward <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title, objective and reward are required"})
		return
	}

	_, a := s.sessionUser(r)
	s.mu.Lock()
	q.ID = quest.ID(strconv.Itoa(s.nextID))
	s.nextID++
	if q.Status == "" {
		q.Status = quest.StatusPending
	}
	a.quests = append(a.quests, &q)
	created := q
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, created)
}

// find returns the index of quest id in a, or -1. Callers hold s.mu.
func find(a *account, id string) int {
	for i, q := range a.quests {
		if q.ID.String() == id {
			return i
		}
	}
	return -1
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request, _ []byte) {
	id := chi.URLParam(r, "id")
	_, a := s.sessionUser(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	i := find(a, id)
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Quest not found"})
		return
	}
	q := a.quests[i]
	next, err := quest.Next(q.Status, quest.ActionAccept)
	if err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "Quest cannot be accepted"})
		return
	}
	q.Status = next
	writeJSON(w, http.StatusOK, map[string]any{"id": q.ID, "status": q.Status})
}

func (s *Server) handleGiveUp(w http.ResponseWriter, r *http.Request, _ []byte) {
	id := chi.URLParam(r, "id")
	_, a := s.sessionUser(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	i := find(a, id)
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Quest not found"})
		return
	}
	if _, err := quest.Next(a.quests[i].Status, quest.ActionGiveUp); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "Quest is not in progress"})
		return
	}
	a.quests = append(a.quests[:i], a.quests[i+1:]...)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Quest abandoned"})
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request, body []byte) {
	id := chi.URLParam(r, "id")
	var req struct {
		Status quest.Status `json:"status"`
	}
	if err := json.Unmarshal(body, &req); err != nil || req.Status != quest.StatusCompleted {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported status"})
		return
	}
	_, a := s.sessionUser(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	i := find(a, id)
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Quest not found"})
		return
	}
	q := a.quests[i]
	next, err := quest.Next(q.Status, quest.ActionComplete)
	if err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "Quest is not in progress"})
		return
	}
	q.Status = next
	a.totalXP += q.Reward

	if s.omitTotal {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Quest completed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Quest completed", "totalXP": a.totalXP})
}
