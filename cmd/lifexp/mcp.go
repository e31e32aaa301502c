package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/lifexp/internal/api"
	"github.com/kalambet/lifexp/internal/config"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve quest tools over MCP (stdio, or HTTP with --http)",
		Long: `Serve quest tools over the Model Context Protocol.

By default the server speaks MCP over stdin/stdout. With --http it listens on
127.0.0.1:<mcp.port> (streamable HTTP at /mcp) and requires the bearer token
stored in the platform secret store; print it with --print-token.

With --local the server runs without a backend on the starter quests.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			useHTTP, _ := cmd.Flags().GetBool("http")
			local, _ := cmd.Flags().GetBool("local")
			printToken, _ := cmd.Flags().GetBool("print-token")

			return withApp(appOptions{local: local}, func(a *app) error {
				ctx := cmd.Context()
				if err := a.mgr.Start(ctx); err != nil {
					slog.Warn("session not started; tools will fail until you log in", "error", err)
				}

				mcpSrv := api.NewMCPServer(api.MCPDeps{Quests: a.mgr, Version: version})
				if !useHTTP {
					slog.Info("MCP server started (stdio transport)")
					err := server.NewStdioServer(mcpSrv).Listen(ctx, in, out)
					if err != nil && !errors.Is(err, context.Canceled) {
						return err
					}
					return nil
				}

				token, err := config.MCPToken(a.cfg)
				if err != nil {
					return fmt.Errorf("getting MCP token: %w", err)
				}
				if printToken {
					fmt.Fprintln(out, token)
				}
				return serveHTTP(ctx, a.cfg.MCP.Port, api.NewMCPHandler(mcpSrv, token))
			})
		},
	}
	cmd.Flags().Bool("http", false, "serve streamable HTTP instead of stdio")
	cmd.Flags().Bool("local", false, "run without a backend on the starter quests")
	cmd.Flags().Bool("print-token", false, "print the bearer token (with --http)")
	return cmd
}

func serveHTTP(ctx context.Context, port int, handler http.Handler) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		printStep("lifexp MCP listening on http://%s%s", addr, api.MCPPath)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		printStep("shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
