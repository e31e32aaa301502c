package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/kalambet/lifexp/internal/backend"
	"github.com/kalambet/lifexp/internal/config"
	"github.com/kalambet/lifexp/internal/generate"
	"github.com/kalambet/lifexp/internal/ollama"
	"github.com/kalambet/lifexp/internal/quest"
	"github.com/kalambet/lifexp/internal/session"
	"github.com/kalambet/lifexp/internal/storage"
)

// app is the wiring shared by every command that talks to the backend.
type app struct {
	cfg    config.Config
	store  *storage.Store
	client *backend.Client
	ollama *ollama.Client
	mgr    *session.Manager
}

type appOptions struct {
	local bool
}

func openApp(opts appOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	setupLogging(cfg.Log.Level)

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	a := &app{cfg: cfg, store: store, ollama: ollama.New(cfg.Ollama.BaseURL)}

	sessOpts := []session.Option{
		session.WithJournal(store),
		session.WithDrafts(store),
		session.WithLogger(slog.Default()),
		session.WithNoticeDuration(cfg.Notice.Duration),
	}

	if opts.local {
		if cfg.Generate.Provider == generate.ProviderOllama {
			sessOpts = append(sessOpts, session.WithGenerator(generate.NewOllama(a.ollama, cfg.Ollama.Model, cfg.Generate.Timeout)))
		}
		sessOpts = append(sessOpts, session.WithQuests(quest.Starter()))
		a.mgr = session.New(nil, sessOpts...)
		return a, nil
	}

	base, err := url.Parse(cfg.Server.BaseURL)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("parsing server.base_url: %w", err)
	}
	jar, err := store.NewJar(base)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("loading session cookies: %w", err)
	}

	a.client, err = backend.New(cfg.Server.BaseURL,
		backend.WithJar(jar),
		backend.WithTimeout(cfg.Server.Timeout),
		backend.WithLogger(slog.Default()),
	)
	if err != nil {
		store.Close()
		return nil, err
	}

	var gen session.Generator = generate.NewRemote(a.client)
	if cfg.Generate.Provider == generate.ProviderOllama {
		gen = generate.NewOllama(a.ollama, cfg.Ollama.Model, cfg.Generate.Timeout)
	}
	sessOpts = append(sessOpts, session.WithGenerator(gen))

	a.mgr = session.New(a.client, sessOpts...)
	return a, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// start resumes the stored session. Commands that need a logged-in user
// call it before anything else.
func (a *app) start(ctx context.Context) error {
	if err := a.mgr.Start(ctx); err != nil {
		if errors.Is(err, backend.ErrUnauthenticated) {
			return errors.New("not logged in; run: lifexp login <username>")
		}
		return err
	}
	return nil
}

// withApp opens the app, runs fn and closes the app again.
func withApp(opts appOptions, fn func(a *app) error) error {
	a, err := openApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
