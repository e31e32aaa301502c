package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/lifexp/internal/backend"
	"github.com/kalambet/lifexp/internal/quest"
	"github.com/kalambet/lifexp/internal/session"
	"github.com/kalambet/lifexp/internal/storage"
)

func newQuestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "quest",
		Aliases: []string{"quests"},
		Short:   "List and act on quests",
	}
	cmd.AddCommand(
		newQuestListCmd(),
		newQuestShowCmd(),
		newQuestAcceptCmd(),
		newQuestGiveUpCmd(),
		newQuestCompleteCmd(),
		newQuestAddCmd(),
	)
	return cmd
}

type questRow struct {
	Index     int      `json:"index,omitempty" yaml:"index,omitempty"`
	ID        string   `json:"id,omitempty" yaml:"id,omitempty"`
	Title     string   `json:"title" yaml:"title"`
	Backstory string   `json:"backstory" yaml:"backstory"`
	Objective string   `json:"objective" yaml:"objective"`
	Reward    int      `json:"reward" yaml:"reward"`
	Icon      string   `json:"icon" yaml:"icon"`
	Status    string   `json:"status" yaml:"status"`
	Actions   []string `json:"actions" yaml:"actions"`
}

func rowOf(i int, q quest.Quest) questRow {
	var acts []string
	for _, a := range quest.Actions(q.Status) {
		acts = append(acts, string(a))
	}
	return questRow{
		Index:     i + 1,
		ID:        q.ID.String(),
		Title:     q.Title,
		Backstory: q.Backstory,
		Objective: q.Objective,
		Reward:    q.Reward,
		Icon:      q.DisplayIcon(),
		Status:    string(q.Status),
		Actions:   acts,
	}
}

func statusLabel(s quest.Status) string {
	switch s {
	case quest.StatusInProgress:
		return colorize(styleStep, string(s))
	case quest.StatusPending:
		return colorize(styleDim, string(s))
	}
	return string(s)
}

func newQuestListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active quests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(appOptions{}, func(a *app) error {
				if err := a.start(cmd.Context()); err != nil {
					return err
				}
				st := a.mgr.Snapshot()
				rows := make([]questRow, len(st.Quests))
				for i, q := range st.Quests {
					rows[i] = rowOf(i, q)
				}
				view := struct {
					TotalXP int        `json:"totalXP" yaml:"totalXP"`
					Quests  []questRow `json:"quests" yaml:"quests"`
				}{st.TotalXP, rows}

				return render(view, func() {
					fmt.Fprintf(out, "%s %s\n", colorize(styleBold, "Total XP:"), colorize(styleXP, fmt.Sprint(st.TotalXP)))
					if len(rows) == 0 {
						fmt.Fprintln(out, "No active quests. Create one with: lifexp generate <task>")
						return
					}
					for _, r := range rows {
						id := ""
						if r.ID != "" {
							id = colorize(styleDim, "#"+r.ID)
						}
						fmt.Fprintf(out, "%2d. %s %s  %s  %d XP %s\n",
							r.Index, r.Icon, colorize(styleBold, r.Title), statusLabel(quest.Status(r.Status)), r.Reward, id)
					}
				})
			})
		},
	}
}

func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("index", "n", 0, "1-based position in 'quest list' (for quests without an id)")
}

// resolveTarget finds the quest named by the id argument or --index. With
// --index the quest is opened in the detail view so the *Selected operations
// act on it; byID reports which form was used.
func resolveTarget(cmd *cobra.Command, args []string, mgr *session.Manager) (q quest.Quest, byID bool, err error) {
	index, _ := cmd.Flags().GetInt("index")
	st := mgr.Snapshot()
	switch {
	case index > 0:
		if err := mgr.Select(index - 1); err != nil {
			return quest.Quest{}, false, err
		}
		sel, _ := mgr.Selected()
		return sel, false, nil
	case len(args) == 1:
		id := quest.ID(strings.TrimPrefix(args[0], "#"))
		for _, q := range st.Quests {
			if q.ID == id {
				return q, true, nil
			}
		}
		return quest.Quest{}, false, fmt.Errorf("%w: %s", session.ErrNotFound, id)
	}
	return quest.Quest{}, false, errors.New("give a quest id or --index")
}

func newQuestShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Show a quest and the actions available for it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(appOptions{}, func(a *app) error {
				if err := a.start(cmd.Context()); err != nil {
					return err
				}
				q, _, err := resolveTarget(cmd, args, a.mgr)
				if err != nil {
					return err
				}
				row := rowOf(0, q)
				row.Index = 0
				return render(row, func() {
					body := fmt.Sprintf("%s %s\n\n%s\n\n%s %s\n%s %s\n%s %s",
						q.DisplayIcon(), colorize(styleBold, q.Title),
						q.Backstory,
						colorize(styleBold, "Objective:"), q.Objective,
						colorize(styleBold, "Reward:"), colorize(styleXP, fmt.Sprintf("%d XP", q.Reward)),
						colorize(styleBold, "Status:"), statusLabel(q.Status))
					fmt.Fprintln(out, card(body))
					if len(row.Actions) > 0 {
						fmt.Fprintf(out, "Actions: %s\n", strings.Join(row.Actions, ", "))
					}
				})
			})
		},
	}
	addTargetFlags(cmd)
	return cmd
}

func newQuestAcceptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accept [id]",
		Short: "Accept a pending quest",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(appOptions{}, func(a *app) error {
				if err := a.start(cmd.Context()); err != nil {
					return err
				}
				q, byID, err := resolveTarget(cmd, args, a.mgr)
				if err != nil {
					return err
				}
				if byID {
					err = a.mgr.Accept(cmd.Context(), q.ID)
				} else {
					err = a.mgr.AcceptSelected(cmd.Context())
				}
				if isBackendFailure(err) {
					printWarning("could not accept %q: %v", q.Title, err)
					return nil
				}
				if err != nil {
					return err
				}
				printSuccess("Accepted %q. The quest is now %s.", q.Title, quest.StatusInProgress)
				return nil
			})
		},
	}
	addTargetFlags(cmd)
	return cmd
}

// isBackendFailure reports whether err came from talking to the backend
// rather than from a local check.
func isBackendFailure(err error) bool {
	return backend.IsRejected(err) ||
		errors.Is(err, backend.ErrTransport) ||
		errors.Is(err, backend.ErrMalformedResponse)
}

// promptConfirm asks a yes/no question on stderr and reads the answer from
// stdin. Anything but y or yes declines.
func promptConfirm(question string) bool {
	fmt.Fprintf(errOut, "%s [y/N] ", question)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func newQuestGiveUpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "giveup [id]",
		Short: "Give up an in-progress quest (deletes it)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			confirm := func(q quest.Quest) bool {
				return yes || promptConfirm(fmt.Sprintf("Give up %q? The quest will be deleted.", q.Title))
			}
			return withApp(appOptions{}, func(a *app) error {
				if err := a.start(cmd.Context()); err != nil {
					return err
				}
				q, byID, err := resolveTarget(cmd, args, a.mgr)
				if err != nil {
					return err
				}
				if byID {
					err = a.mgr.GiveUp(cmd.Context(), q.ID, confirm)
				} else {
					err = a.mgr.GiveUpSelected(cmd.Context(), confirm)
				}
				if errors.Is(err, session.ErrCancelled) {
					printWarning("Kept %q", q.Title)
					return nil
				}
				if err != nil {
					return fmt.Errorf("could not give up %q: %w", q.Title, err)
				}
				printSuccess("Gave up %q", q.Title)
				return nil
			})
		},
	}
	addTargetFlags(cmd)
	cmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newQuestCompleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete [id]",
		Short: "Complete an in-progress quest and collect its reward",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(appOptions{}, func(a *app) error {
				if err := a.start(cmd.Context()); err != nil {
					return err
				}
				q, byID, err := resolveTarget(cmd, args, a.mgr)
				if err != nil {
					return err
				}
				if byID {
					err = a.mgr.Complete(cmd.Context(), q.ID)
				} else {
					err = a.mgr.CompleteSelected(cmd.Context())
				}
				if err != nil {
					return fmt.Errorf("could not complete %q: %w", q.Title, err)
				}
				reward := q.Reward
				if n := a.mgr.Notice(); n != nil {
					reward = n.Reward
				}
				printSuccess("Quest complete! +%d XP", reward)
				printStatus("Total XP", "%s", colorize(styleXP, fmt.Sprint(a.mgr.Snapshot().TotalXP)))
				return nil
			})
		},
	}
	addTargetFlags(cmd)
	return cmd
}

func newQuestAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a quest from its text block",
		Long: `Add a quest from its text block, read from --file, the saved draft, or stdin.

The block has one field per line:

  Title: Slay the Inbox
  Backstory: The unread scrolls pile up to the ceiling.
  Objective: reach inbox zero
  Reward: 150 XP
  Icon: 📬

Text that is not accepted is saved as the draft; fix it with 'lifexp draft edit'
and retry with 'lifexp quest add --draft'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			useDraft, _ := cmd.Flags().GetBool("draft")

			return withApp(appOptions{}, func(a *app) error {
				var text string
				switch {
				case useDraft:
					d, err := a.store.CurrentDraft(cmd.Context())
					if errors.Is(err, storage.ErrNotFound) {
						return errors.New("no saved draft")
					}
					if err != nil {
						return err
					}
					text = d.Text
				case file != "":
					data, err := os.ReadFile(file)
					if err != nil {
						return fmt.Errorf("reading file: %w", err)
					}
					text = string(data)
				default:
					data, err := io.ReadAll(in)
					if err != nil {
						return fmt.Errorf("reading stdin: %w", err)
					}
					text = string(data)
				}

				if err := a.start(cmd.Context()); err != nil {
					return err
				}
				q, err := a.mgr.AddQuest(cmd.Context(), text)
				if err != nil {
					printStep("Saved as draft. Fix it with: lifexp draft edit")
					return fmt.Errorf("quest not added: %w", err)
				}
				printSuccess("Added %q (#%s, %d XP)", q.Title, q.ID, q.Reward)
				return nil
			})
		},
	}
	cmd.Flags().String("file", "", "read the quest text from a file")
	cmd.Flags().Bool("draft", false, "submit the saved draft")
	cmd.MarkFlagsMutuallyExclusive("file", "draft")
	return cmd
}
