package backend_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kalambet/lifexp/internal/backend"
	"github.com/kalambet/lifexp/internal/backend/backendtest"
	"github.com/kalambet/lifexp/internal/quest"
)

var ctx = context.Background()

func newClient(t *testing.T, srv *backendtest.Server) *backend.Client {
	t.Helper()
	c, err := backend.New(srv.URL)
	if err != nil {
		t.Fatalf("backend.New: %v", err)
	}
	return c
}

func login(t *testing.T, srv *backendtest.Server, c *backend.Client) {
	t.Helper()
	srv.AddUser("ada", "secret")
	if _, err := c.Login(ctx, "ada", "secret"); err != nil {
		t.Fatalf("Login: %v", err)
	}
}

func TestNew_RejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:5050", "ftp://example.com"} {
		if _, err := backend.New(raw); err == nil {
			t.Errorf("New(%q) succeeded, want error", raw)
		}
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c, err := backend.New("http://localhost:5050/")
	if err != nil {
		t.Fatal(err)
	}
	if got := c.BaseURL().String(); got != "http://localhost:5050" {
		t.Errorf("BaseURL = %q", got)
	}
}

func TestWhoAmI_NoSession(t *testing.T) {
	srv := backendtest.New(t)
	c := newClient(t, srv)

	_, err := c.WhoAmI(ctx)
	if !errors.Is(err, backend.ErrUnauthenticated) {
		t.Fatalf("WhoAmI error = %v, want ErrUnauthenticated", err)
	}
}

func TestLogin_SessionCarriedByCookie(t *testing.T) {
	srv := backendtest.New(t)
	c := newClient(t, srv)
	login(t, srv, c)
	srv.SetTotalXP("ada", 120)

	u, err := c.WhoAmI(ctx)
	if err != nil {
		t.Fatalf("WhoAmI: %v", err)
	}
	if u.Username != "ada" {
		t.Errorf("Username = %q", u.Username)
	}
	if u.TotalXP == nil || *u.TotalXP != 120 {
		t.Errorf("TotalXP = %v, want 120", u.TotalXP)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	srv := backendtest.New(t)
	srv.AddUser("ada", "secret")
	c := newClient(t, srv)

	_, err := c.Login(ctx, "ada", "wrong")
	var apiErr *backend.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Message != "Invalid credentials" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if !errors.Is(err, backend.ErrUnauthenticated) {
		t.Error("401 should unwrap to ErrUnauthenticated")
	}
}

func TestRegister_Conflict(t *testing.T) {
	srv := backendtest.New(t)
	c := newClient(t, srv)

	if err := c.Register(ctx, "ada", "secret"); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	err := c.Register(ctx, "ada", "secret")
	if !backend.IsRejected(err) {
		t.Fatalf("second Register error = %v, want rejection", err)
	}
	if !strings.Contains(err.Error(), "already taken") {
		t.Errorf("error = %q", err)
	}
}

func TestLogout_ForgetsSession(t *testing.T) {
	srv := backendtest.New(t)
	c := newClient(t, srv)
	login(t, srv, c)

	if err := c.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := c.WhoAmI(ctx); !errors.Is(err, backend.ErrUnauthenticated) {
		t.Errorf("WhoAmI after logout = %v, want ErrUnauthenticated", err)
	}
}

func TestLogout_ForgetsSessionEvenOnFailure(t *testing.T) {
	srv := backendtest.New(t)
	c := newClient(t, srv)
	login(t, srv, c)
	srv.FailNext("POST /logout", http.StatusInternalServerError, `{"error":"boom"}`)

	if err := c.Logout(ctx); err == nil {
		t.Fatal("Logout should report the backend failure")
	}
	if _, err := c.WhoAmI(ctx); !errors.Is(err, backend.ErrUnauthenticated) {
		t.Errorf("WhoAmI after failed logout = %v, want ErrUnauthenticated", err)
	}
}

func TestListQuests_BothShapes(t *testing.T) {
	for _, tc := range []struct {
		name   string
		shape  backendtest.ListShape
		wantXP bool
	}{
		{"object", backendtest.ShapeObject, true},
		{"array", backendtest.ShapeArray, false},
		{"object without total", backendtest.ShapeObjectNoTotal, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			srv := backendtest.New(t)
			c := newClient(t, srv)
			login(t, srv, c)
			srv.Seed("ada", quest.Quest{Title: "A", Objective: "a", Reward: 10})
			srv.SetListShape(tc.shape)

			list, err := c.ListQuests(ctx)
			if err != nil {
				t.Fatalf("ListQuests: %v", err)
			}
			if len(list.Quests) != 1 || list.Quests[0].ID != "1" {
				t.Fatalf("Quests = %+v", list.Quests)
			}
			if (list.TotalXP != nil) != tc.wantXP {
				t.Errorf("TotalXP = %v, want present=%v", list.TotalXP, tc.wantXP)
			}
		})
	}
}

func TestListQuests_Unauthenticated(t *testing.T) {
	srv := backendtest.New(t)
	c := newClient(t, srv)

	_, err := c.ListQuests(ctx)
	if !errors.Is(err, backend.ErrUnauthenticated) {
		t.Fatalf("error = %v, want ErrUnauthenticated", err)
	}
}

func TestCreateQuest_AssignsID(t *testing.T) {
	srv := backendtest.New(t)
	c := newClient(t, srv)
	login(t, srv, c)

	created, err := c.CreateQuest(ctx, quest.Quest{
		Title:     "Sweep the Hall",
		Backstory: "Dust gathers.",
		Objective: "Sweep the floor",
		Reward:    50,
	})
	if err != nil {
		t.Fatalf("CreateQuest: %v", err)
	}
	if !created.Persisted() {
		t.Fatal("created quest has no id")
	}
	if created.Status != quest.StatusPending {
		t.Errorf("Status = %q", created.Status)
	}
	if created.Icon != quest.DefaultIcon {
		t.Errorf("Icon = %q, want default", created.Icon)
	}

	reqs := srv.Requests()
	last := reqs[len(reqs)-1]
	if strings.Contains(last.Body, `"id"`) {
		t.Errorf("create request should not carry an id: %s", last.Body)
	}
}

func TestCreateQuest_MissingIDIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"title":"A"}`))
	}))
	defer srv.Close()

	c, _ := backend.New(srv.URL)
	_, err := c.CreateQuest(ctx, quest.Quest{Title: "A", Objective: "a", Reward: 1})
	if !errors.Is(err, backend.ErrMalformedResponse) {
		t.Fatalf("error = %v, want ErrMalformedResponse", err)
	}
}

func TestAcceptGiveUpComplete(t *testing.T) {
	srv := backendtest.New(t)
	c := newClient(t, srv)
	login(t, srv, c)
	srv.SetTotalXP("ada", 800)
	seeded := srv.Seed("ada",
		quest.Quest{Title: "A", Objective: "a", Reward: 150},
		quest.Quest{Title: "B", Objective: "b", Reward: 20},
	)

	res, err := c.AcceptQuest(ctx, seeded[0].ID)
	if err != nil {
		t.Fatalf("AcceptQuest: %v", err)
	}
	if res.ID != seeded[0].ID || res.Status != quest.StatusInProgress {
		t.Errorf("AcceptResult = %+v", res)
	}

	done, err := c.CompleteQuest(ctx, seeded[0].ID)
	if err != nil {
		t.Fatalf("CompleteQuest: %v", err)
	}
	if done.TotalXP == nil || *done.TotalXP != 950 {
		t.Errorf("TotalXP = %v, want 950", done.TotalXP)
	}

	if _, err := c.AcceptQuest(ctx, seeded[1].ID); err != nil {
		t.Fatal(err)
	}
	if err := c.GiveUpQuest(ctx, seeded[1].ID); err != nil {
		t.Fatalf("GiveUpQuest: %v", err)
	}
	if n := len(srv.Quests("ada")); n != 1 {
		t.Errorf("server holds %d quests, want 1", n)
	}
}

func TestAccept_RejectionCarriesMessage(t *testing.T) {
	srv := backendtest.New(t)
	c := newClient(t, srv)
	login(t, srv, c)
	srv.FailNext("PATCH /quests/{id}/accept", http.StatusInternalServerError, `{"message":"database locked"}`)

	_, err := c.AcceptQuest(ctx, "7")
	var apiErr *backend.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != 500 || apiErr.Message != "database locked" {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestErrorFieldOn2xxIsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"Failed to generate quest"}`))
	}))
	defer srv.Close()

	c, _ := backend.New(srv.URL)
	_, err := c.GenerateQuest(ctx, "clean room")
	if !backend.IsRejected(err) {
		t.Fatalf("error = %v, want rejection", err)
	}
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, _ := backend.New(url)
	_, err := c.ListQuests(ctx)
	if !errors.Is(err, backend.ErrTransport) {
		t.Fatalf("error = %v, want ErrTransport", err)
	}
	if backend.IsRejected(err) {
		t.Error("transport failure must not look like a rejection")
	}
}

func TestGenerateQuest(t *testing.T) {
	srv := backendtest.New(t)
	srv.SetGenerated(quest.Generated{Title: "The Dust Wars", Objective: "Clean", Reward: 40, Icon: "🧹"})
	c := newClient(t, srv)

	g, err := c.GenerateQuest(ctx, "clean my room")
	if err != nil {
		t.Fatalf("GenerateQuest: %v", err)
	}
	if g.Title != "The Dust Wars" || g.Reward != 40 {
		t.Errorf("Generated = %+v", g)
	}

	if _, err := c.GenerateQuest(ctx, "  "); !backend.IsRejected(err) {
		t.Errorf("empty task error = %v, want rejection", err)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv := backendtest.New(t)
	c := newClient(t, srv)
	c.WhoAmI(ctx)
	c.WhoAmI(ctx)

	reqs := srv.Requests()
	if len(reqs) != 2 {
		t.Fatalf("got %d requests", len(reqs))
	}
	if reqs[0].RequestID == "" || reqs[0].RequestID == reqs[1].RequestID {
		t.Errorf("request ids = %q, %q; want distinct non-empty", reqs[0].RequestID, reqs[1].RequestID)
	}
}
