package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kalambet/lifexp/internal/storage"
)

var journalVerbs = map[string]string{
	storage.JournalCreated:   "created",
	storage.JournalAccepted:  "accepted",
	storage.JournalGaveUp:    "gave up",
	storage.JournalCompleted: "completed",
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent quest activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			return withApp(appOptions{local: true}, func(a *app) error {
				entries, err := a.store.ListJournal(cmd.Context(), limit)
				if err != nil {
					return fmt.Errorf("reading journal: %w", err)
				}
				if entries == nil {
					entries = []storage.JournalEntry{}
				}
				return render(entries, func() {
					if len(entries) == 0 {
						fmt.Fprintln(out, "No quest activity yet.")
						return
					}
					for _, e := range entries {
						verb := journalVerbs[e.Kind]
						if verb == "" {
							verb = e.Kind
						}
						line := fmt.Sprintf("%s  %-9s  %s",
							colorize(styleDim, e.CreatedAt.Local().Format("2006-01-02 15:04")), verb, e.Title)
						if e.Kind == storage.JournalCompleted {
							line += "  " + colorize(styleXP, fmt.Sprintf("+%d XP", e.Reward))
							if e.TotalXP != nil {
								line += colorize(styleDim, fmt.Sprintf(" (total %d)", *e.TotalXP))
							}
						}
						fmt.Fprintln(out, line)
					}
				})
			})
		},
	}
	cmd.Flags().Int("limit", 20, "maximum number of entries to show")
	return cmd
}
