package storage

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

// Jar is an http.CookieJar for one backend whose cookies survive between
// runs. Only cookies set by that backend are persisted.
type Jar struct {
	store *Store
	base  *url.URL
	scope string

	mu  sync.Mutex
	mem *cookiejar.Jar
}

// NewJar returns a Jar for the backend at base, preloaded with its stored
// cookies. Expired cookies are dropped on load.
func (s *Store) NewJar(base *url.URL) (*Jar, error) {
	j := &Jar{store: s, base: base, scope: scopeOf(base), mem: newMemJar()}

	stored, err := s.loadCookies(j.scope)
	if err != nil {
		return nil, fmt.Errorf("loading cookies: %w", err)
	}
	now := time.Now()
	cookies := make([]*http.Cookie, 0, len(stored))
	for _, c := range stored {
		if c.ExpiresAt != nil && !c.ExpiresAt.After(now) {
			if err := s.deleteCookie(j.scope, c.Name); err != nil {
				return nil, err
			}
			continue
		}
		hc := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		}
		if c.ExpiresAt != nil {
			hc.Expires = *c.ExpiresAt
		}
		cookies = append(cookies, hc)
	}
	j.mem.SetCookies(base, cookies)
	return j, nil
}

func newMemJar() *cookiejar.Jar {
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return jar
}

func scopeOf(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}

// SetCookies implements http.CookieJar.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.mem.SetCookies(u, cookies)
	if scopeOf(u) != j.scope {
		return
	}

	now := time.Now()
	for _, c := range cookies {
		var err error
		switch {
		case c.MaxAge < 0, !c.Expires.IsZero() && !c.Expires.After(now):
			err = j.store.deleteCookie(j.scope, c.Name)
		default:
			sc := storedCookie{
				Name:     c.Name,
				Value:    c.Value,
				Path:     c.Path,
				Domain:   c.Domain,
				Secure:   c.Secure,
				HttpOnly: c.HttpOnly,
			}
			if sc.Path == "" {
				sc.Path = "/"
			}
			if c.MaxAge > 0 {
				t := now.Add(time.Duration(c.MaxAge) * time.Second)
				sc.ExpiresAt = &t
			} else if !c.Expires.IsZero() {
				t := c.Expires
				sc.ExpiresAt = &t
			}
			err = j.store.putCookie(j.scope, sc)
		}
		if err != nil {
			slog.Warn("persisting session cookie", "name", c.Name, "error", err)
		}
	}
}

// Cookies implements http.CookieJar.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.mem.Cookies(u)
}

// Forget drops every cookie for u, in memory and on disk.
func (j *Jar) Forget(u *url.URL) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.mem = newMemJar()
	return j.store.deleteCookies(scopeOf(u))
}
