package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/lifexp/internal/backend"
)

func addPasswordFlags(cmd *cobra.Command) {
	cmd.Flags().String("password", "", "password (prefer --password-stdin)")
	cmd.Flags().Bool("password-stdin", false, "read the password from stdin")
}

// readPassword takes the password from --password, or reads one line from
// stdin, prompting first unless --password-stdin was given.
func readPassword(cmd *cobra.Command) (string, error) {
	if pw, _ := cmd.Flags().GetString("password"); pw != "" {
		return pw, nil
	}
	if fromStdin, _ := cmd.Flags().GetBool("password-stdin"); !fromStdin {
		fmt.Fprint(errOut, "Password: ")
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return "", errors.New("password is required")
	}
	return line, nil
}

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and keep the session for later commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			return withApp(appOptions{}, func(a *app) error {
				u, err := a.mgr.Login(cmd.Context(), args[0], password)
				if err != nil {
					return authError("login", err)
				}
				st := a.mgr.Snapshot()
				printSuccess("Logged in as %s (%d XP, %d active quests)", u.Username, st.TotalXP, len(st.Quests))
				return nil
			})
		},
	}
	addPasswordFlags(cmd)
	return cmd
}

func newRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			return withApp(appOptions{}, func(a *app) error {
				if err := a.mgr.Register(cmd.Context(), args[0], password); err != nil {
					return authError("registration", err)
				}
				printSuccess("Registered %s. Log in with: lifexp login %s", args[0], args[0])
				return nil
			})
		},
	}
	addPasswordFlags(cmd)
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(appOptions{}, func(a *app) error {
				if err := a.mgr.Logout(cmd.Context()); err != nil {
					printWarning("server did not confirm logout: %v", err)
				}
				printSuccess("Logged out")
				return nil
			})
		},
	}
}

func newWhoAmICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user and XP total",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(appOptions{}, func(a *app) error {
				if err := a.start(cmd.Context()); err != nil {
					return err
				}
				st := a.mgr.Snapshot()
				view := struct {
					ID       string `json:"id" yaml:"id"`
					Username string `json:"username" yaml:"username"`
					TotalXP  int    `json:"totalXP" yaml:"totalXP"`
				}{ID: st.User.ID.String(), Username: st.User.Username, TotalXP: st.TotalXP}
				return render(view, func() {
					fmt.Fprintf(out, "%s  %s\n", colorize(styleBold, view.Username), colorize(styleXP, fmt.Sprintf("%d XP", view.TotalXP)))
				})
			})
		},
	}
}

// authError prefers the backend's own message ("Invalid credentials",
// "Username already taken") over the wrapped chain.
func authError(what string, err error) error {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return fmt.Errorf("%s failed: %s", what, apiErr.Message)
	}
	return fmt.Errorf("%s failed: %w", what, err)
}
