package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMCPHandler_RequiresBearer(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	h := NewMCPHandler(NewMCPServer(deps), "tok-123")

	tests := []struct {
		name   string
		auth   string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "Bearer nope", http.StatusUnauthorized},
		{"basic", "Basic tok-123", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, MCPPath, strings.NewReader(`{}`))
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if !strings.Contains(rec.Body.String(), "authentication_error") {
				t.Errorf("body = %s", rec.Body.String())
			}
		})
	}
}

func TestMCPHandler_Initialize(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	h := NewMCPHandler(NewMCPServer(deps), "tok-123")

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"0"}}}`
	req := httptest.NewRequest(http.MethodPost, MCPPath, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer tok-123")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"lifexp"`) {
		t.Errorf("initialize response lacks server name: %s", rec.Body.String())
	}
}

func TestMCPHandler_HealthIsOpen(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	h := NewMCPHandler(NewMCPServer(deps), "tok-123")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
