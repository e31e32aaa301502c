package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/lifexp/internal/backend"
	"github.com/kalambet/lifexp/internal/generate"
	"github.com/kalambet/lifexp/internal/storage"
)

const probeTimeout = 3 * time.Second

type statusReport struct {
	Server   string `json:"server" yaml:"server"`
	Session  string `json:"session" yaml:"session"`
	Provider string `json:"provider" yaml:"provider"`
	Ollama   string `json:"ollama" yaml:"ollama"`
	Draft    string `json:"draft" yaml:"draft"`
	DataDir  string `json:"data_dir" yaml:"data_dir"`
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session, backend and generator status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(appOptions{}, func(a *app) error {
				r := a.probe(cmd.Context())
				return render(r, func() {
					printStatus("Server", "%s", r.Server)
					printStatus("Session", "%s", r.Session)
					printStatus("Generator", "%s", r.Provider)
					printStatus("Ollama", "%s", r.Ollama)
					printStatus("Draft", "%s", r.Draft)
					printStatus("Data dir", "%s", r.DataDir)
				})
			})
		},
	}
}

// probe checks the backend session, Ollama and the saved draft concurrently.
// Each probe records its own outcome, so none of them fails the group.
func (a *app) probe(ctx context.Context) statusReport {
	r := statusReport{
		Server:   a.cfg.Server.BaseURL,
		Provider: a.cfg.Generate.Provider,
		DataDir:  a.cfg.Storage.DataDir,
	}
	if a.cfg.Generate.Provider == generate.ProviderOllama {
		r.Provider = fmt.Sprintf("%s (%s)", a.cfg.Generate.Provider, a.cfg.Ollama.Model)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		pctx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()
		u, err := a.client.WhoAmI(pctx)
		switch {
		case err == nil && u.TotalXP != nil:
			r.Session = fmt.Sprintf("logged in as %s (%d XP)", u.Username, *u.TotalXP)
		case err == nil:
			r.Session = "logged in as " + u.Username
		case errors.Is(err, backend.ErrUnauthenticated):
			r.Session = "not logged in"
		default:
			r.Session = fmt.Sprintf("unreachable (%v)", err)
		}
		return nil
	})

	g.Go(func() error {
		pctx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()
		v, err := a.ollama.Version(pctx)
		if err != nil {
			r.Ollama = "not running at " + a.ollama.BaseURL()
			return nil
		}
		r.Ollama = fmt.Sprintf("running %s at %s", v, a.ollama.BaseURL())
		return nil
	})

	g.Go(func() error {
		d, err := a.store.CurrentDraft(ctx)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			r.Draft = "none"
		case err != nil:
			r.Draft = fmt.Sprintf("unreadable (%v)", err)
		default:
			r.Draft = fmt.Sprintf("%s, saved %s", d.Source, d.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}
		return nil
	})

	g.Wait()
	return r
}
