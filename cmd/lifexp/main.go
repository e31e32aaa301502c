package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	noColor      bool
	outputFormat string

	out    io.Writer = os.Stdout
	errOut io.Writer = os.Stderr
	in     io.Reader = os.Stdin
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lifexp",
		Short:         "Turn everyday tasks into quests and earn XP for finishing them",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch outputFormat {
			case "text", "json", "yaml":
				return nil
			}
			return fmt.Errorf("unknown --output %q (want text, json or yaml)", outputFormat)
		},
	}
	root.PersistentFlags().BoolVar(&noColor, "no-color", os.Getenv("NO_COLOR") != "", "disable colored output")
	root.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format: text, json or yaml")

	root.AddCommand(
		newLoginCmd(),
		newRegisterCmd(),
		newLogoutCmd(),
		newWhoAmICmd(),
		newQuestCmd(),
		newGenerateCmd(),
		newDraftCmd(),
		newHistoryCmd(),
		newStatusCmd(),
		newConfigCmd(),
		newMCPCmd(),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		printError("%v", err)
		stop()
		os.Exit(1)
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: lvl})))
}
