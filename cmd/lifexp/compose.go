package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/lifexp/internal/generate"
	"github.com/kalambet/lifexp/internal/ollama"
	"github.com/kalambet/lifexp/internal/quest"
	"github.com/kalambet/lifexp/internal/session"
	"github.com/kalambet/lifexp/internal/storage"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <task>",
		Short: "Turn an everyday task into quest text",
		Long: `Turn an everyday task into quest text.

The text is saved as the draft. Review it with 'lifexp draft show', then add it
with 'lifexp quest add --draft', or pass --add to add it right away.

Examples:
  lifexp generate wash the dishes
  lifexp generate --add "answer the emails from Monday"`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			task := strings.Join(args, " ")
			addNow, _ := cmd.Flags().GetBool("add")

			return withApp(appOptions{}, func(a *app) error {
				ctx := cmd.Context()
				if strings.TrimSpace(task) == "" {
					return session.ErrEmptyTask
				}
				if a.cfg.Generate.Provider == generate.ProviderOllama {
					if err := ollama.EnsureReady(ctx, a.ollama, a.cfg.Ollama.Model, errOut); err != nil {
						return err
					}
				}

				printStep("Consulting the quest giver...")
				text, err := a.mgr.Generate(ctx, task)
				if text == "" {
					return fmt.Errorf("generation failed: %w", err)
				}
				fmt.Fprintln(out, card(text))
				if err != nil {
					printWarning("The generated text is incomplete: %v", err)
					printStep("Fix it with: lifexp draft edit")
					return nil
				}

				if !addNow {
					printStep("Add it with: lifexp quest add --draft")
					return nil
				}
				if err := a.start(ctx); err != nil {
					return err
				}
				q, err := a.mgr.AddQuest(ctx, text)
				if err != nil {
					printStep("Kept as draft. Fix it with: lifexp draft edit")
					return fmt.Errorf("quest not added: %w", err)
				}
				printSuccess("Added %q (#%s, %d XP)", q.Title, q.ID, q.Reward)
				return nil
			})
		},
	}
	cmd.Flags().Bool("add", false, "add the quest when the text is valid")
	return cmd
}

func newDraftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Show, edit or discard the saved quest draft",
	}
	cmd.AddCommand(newDraftShowCmd(), newDraftEditCmd(), newDraftDiscardCmd())
	return cmd
}

func newDraftShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the saved draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(appOptions{local: true}, func(a *app) error {
				d, err := a.store.CurrentDraft(cmd.Context())
				if errors.Is(err, storage.ErrNotFound) {
					fmt.Fprintln(out, "No draft.")
					return nil
				}
				if err != nil {
					return err
				}
				return render(d, func() {
					fmt.Fprintln(out, card(d.Text))
					fmt.Fprintf(out, "%s\n", colorize(styleDim, fmt.Sprintf("%s, saved %s", d.Source, d.UpdatedAt.Local().Format("2006-01-02 15:04"))))
					reportDraft(d.Text)
				})
			})
		},
	}
}

// reportDraft tells whether text would pass both quest gates.
func reportDraft(text string) {
	if _, err := quest.Accept(text); err != nil {
		printWarning("Draft is not valid yet: %v", err)
		return
	}
	printSuccess("Draft is valid. Add it with: lifexp quest add --draft")
}

func newDraftEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Open the draft in $EDITOR",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			editor := os.Getenv("EDITOR")
			if editor == "" {
				editor = "vi"
			}

			return withApp(appOptions{local: true}, func(a *app) error {
				ctx := cmd.Context()
				d, err := a.store.CurrentDraft(ctx)
				if err != nil && !errors.Is(err, storage.ErrNotFound) {
					return err
				}
				initial := d.Text
				if initial == "" {
					initial = quest.Format(quest.Generated{})
				}

				tmpFile, err := os.CreateTemp("", "lifexp-draft-*.txt")
				if err != nil {
					return fmt.Errorf("creating temp file: %w", err)
				}
				tmpPath := tmpFile.Name()
				defer os.Remove(tmpPath)

				if _, err := tmpFile.WriteString(initial); err != nil {
					tmpFile.Close()
					return err
				}
				tmpFile.Close()

				editorCmd := exec.Command(editor, tmpPath)
				editorCmd.Stdin = os.Stdin
				editorCmd.Stdout = os.Stdout
				editorCmd.Stderr = os.Stderr
				if err := editorCmd.Run(); err != nil {
					return fmt.Errorf("editor exited with error: %w", err)
				}

				edited, err := os.ReadFile(tmpPath)
				if err != nil {
					return err
				}
				text := strings.TrimSpace(string(edited))
				if _, err := a.store.SaveDraft(ctx, text, session.SourcePasted); err != nil {
					return fmt.Errorf("saving draft: %w", err)
				}
				printSuccess("Draft saved")
				reportDraft(text)
				return nil
			})
		},
	}
}

func newDraftDiscardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discard",
		Short: "Delete the saved draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(appOptions{local: true}, func(a *app) error {
				if err := a.store.DiscardDraft(cmd.Context()); err != nil {
					return err
				}
				printSuccess("Draft discarded")
				return nil
			})
		},
	}
}
