package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/server"
)

// MCPPath is where the streamable HTTP transport is mounted.
const MCPPath = "/mcp"

// NewMCPHandler serves s over streamable HTTP at MCPPath behind bearer auth.
// /health stays open so local tooling can probe the listener.
func NewMCPHandler(s *server.MCPServer, token string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	streamable := server.NewStreamableHTTPServer(s)
	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(token))
		r.Handle(MCPPath, streamable)
	})

	return r
}
