package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/lifexp/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or update configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			keys := config.ShowAll(cfg)
			return render(keys, func() {
				printStep("Stored in %s; LIFEXP_* variables override it", config.Location())
				for _, k := range keys {
					fmt.Fprintf(out, "  %s = %s\n", colorize(styleBold, k.Key), k.Value)
				}
			})
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long:  "Set a configuration value. Valid keys: " + strings.Join(config.ValidKeys(), ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			if err := config.SetKey(key, value); err != nil {
				return err
			}

			printSuccess("Set %s = %s", key, value)
			return nil
		},
	}

	unset := &cobra.Command{
		Use:   "unset <key>",
		Short: "Remove a stored value and fall back to the default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.UnsetKey(args[0]); err != nil {
				return err
			}
			printSuccess("Unset %s", args[0])
			return nil
		},
	}

	cmd.AddCommand(show, set, unset)
	return cmd
}
