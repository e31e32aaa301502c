package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"

	"github.com/kalambet/lifexp/internal/quest"
)

const maxResponseSize = 1 << 20

// Forgetter is implemented by cookie jars that can drop the session for a
// base URL, such as the persistent jar in internal/storage.
type Forgetter interface {
	Forget(u *url.URL) error
}

// Client talks to the LifeXP backend: authentication, quest persistence and
// quest generation. Every request carries the session cookies from its jar.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its Jar is kept unless
// WithJar is also given.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		jar := c.httpClient.Jar
		c.httpClient = hc
		if c.httpClient.Jar == nil {
			c.httpClient.Jar = jar
		}
	}
}

// WithJar sets the cookie jar that carries the session.
func WithJar(jar http.CookieJar) Option {
	return func(c *Client) { c.httpClient.Jar = jar }
}

// WithTimeout bounds every request, body included.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.ParseRequestURI(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 15 * time.Second, Jar: newMemoryJar()},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func newMemoryJar() http.CookieJar {
	// cookiejar.New never returns a non-nil error.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return jar
}

// BaseURL returns the backend root URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// do sends one request and decodes a successful JSON body into out (when
// out is non-nil). It never retries.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshalling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	reqID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", reqID)

	log := c.logger.With("method", method, "path", path, "request_id", reqID)
	log.Debug("backend request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("backend request failed", "error", err)
		return fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		log.Warn("reading backend response failed", "status", resp.StatusCode, "error", err)
		return fmt.Errorf("%w: reading %s %s response: %w", ErrTransport, method, path, err)
	}
	log.Debug("backend response", "status", resp.StatusCode, "bytes", len(data))

	if apiErr := rejection(resp.StatusCode, data); apiErr != nil {
		log.Warn("backend rejected request", "status", resp.StatusCode, "message", apiErr.Message)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if raw, ok := out.(*[]byte); ok {
		*raw = data
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decoding %s %s: %v", ErrMalformedResponse, method, path, err)
	}
	return nil
}

func questPath(id quest.ID, suffix string) string {
	return "/quests/" + url.PathEscape(id.String()) + suffix
}

// WhoAmI returns the user behind the current session. A response without a
// user yields ErrUnauthenticated.
func (c *Client) WhoAmI(ctx context.Context) (User, error) {
	var env userEnvelope
	if err := c.do(ctx, http.MethodGet, "/me", nil, &env); err != nil {
		return User{}, err
	}
	if env.User == nil {
		return User{}, ErrUnauthenticated
	}
	return *env.User, nil
}

// ListQuests fetches the user's quests in either backend shape.
func (c *Client) ListQuests(ctx context.Context) (QuestList, error) {
	var raw []byte
	if err := c.do(ctx, http.MethodGet, "/quests", nil, &raw); err != nil {
		return QuestList{}, err
	}
	return DecodeQuestList(raw)
}

// CreateQuest submits a new quest and returns the persisted record.
func (c *Client) CreateQuest(ctx context.Context, q quest.Quest) (quest.Quest, error) {
	status := q.Status
	if status == "" {
		status = quest.StatusPending
	}
	req := createRequest{
		Title:     q.Title,
		Backstory: q.Backstory,
		Objective: q.Objective,
		Reward:    q.Reward,
		Icon:      q.DisplayIcon(),
		Status:    status,
	}

	var created quest.Quest
	if err := c.do(ctx, http.MethodPost, "/quests", req, &created); err != nil {
		return quest.Quest{}, err
	}
	if !created.Persisted() {
		return quest.Quest{}, fmt.Errorf("%w: created quest has no id", ErrMalformedResponse)
	}
	return created, nil
}

// AcceptQuest moves a pending quest to in-progress.
func (c *Client) AcceptQuest(ctx context.Context, id quest.ID) (AcceptResult, error) {
	var res AcceptResult
	if err := c.do(ctx, http.MethodPatch, questPath(id, "/accept"), nil, &res); err != nil {
		return AcceptResult{}, err
	}
	if res.ID.IsZero() {
		res.ID = id
	}
	if res.Status == "" {
		return AcceptResult{}, fmt.Errorf("%w: accept response has no status", ErrMalformedResponse)
	}
	return res, nil
}

// GiveUpQuest asks the backend to drop an in-progress quest.
func (c *Client) GiveUpQuest(ctx context.Context, id quest.ID) error {
	return c.do(ctx, http.MethodDelete, questPath(id, "/giveup"), nil, nil)
}

// CompleteQuest marks a quest completed and returns the new XP total.
func (c *Client) CompleteQuest(ctx context.Context, id quest.ID) (CompleteResult, error) {
	var res CompleteResult
	err := c.do(ctx, http.MethodPatch, questPath(id, ""), completeRequest{Status: quest.StatusCompleted}, &res)
	if err != nil {
		return CompleteResult{}, err
	}
	return res, nil
}

// Login starts a session; the backend sets the session cookie.
func (c *Client) Login(ctx context.Context, username, password string) (User, error) {
	var env userEnvelope
	if err := c.do(ctx, http.MethodPost, "/login", credentials{Username: username, Password: password}, &env); err != nil {
		return User{}, err
	}
	if env.User == nil {
		return User{}, fmt.Errorf("%w: login response has no user", ErrMalformedResponse)
	}
	return *env.User, nil
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, username, password string) error {
	return c.do(ctx, http.MethodPost, "/register", credentials{Username: username, Password: password}, nil)
}

// Logout ends the session. Local cookies are dropped whatever the backend
// answers; the backend error, if any, is still returned.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/logout", nil, nil)
	if ferr := c.forgetSession(); ferr != nil {
		err = errors.Join(err, ferr)
	}
	return err
}

func (c *Client) forgetSession() error {
	if f, ok := c.httpClient.Jar.(Forgetter); ok {
		return f.Forget(c.baseURL)
	}
	c.httpClient.Jar = newMemoryJar()
	return nil
}

// GenerateQuest asks the generation service to turn a task into quest fields.
func (c *Client) GenerateQuest(ctx context.Context, task string) (quest.Generated, error) {
	var g quest.Generated
	if err := c.do(ctx, http.MethodPost, "/generate", generateRequest{Task: task}, &g); err != nil {
		return quest.Generated{}, err
	}
	return g, nil
}
