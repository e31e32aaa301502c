package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// mapBackend is an in-memory ConfigBackend.
type mapBackend struct {
	strs map[string]string
	ints map[string]int
}

func newMapBackend() *mapBackend {
	return &mapBackend{strs: map[string]string{}, ints: map[string]int{}}
}

func (b *mapBackend) GetString(key string) (string, bool, error) {
	v, ok := b.strs[key]
	return v, ok, nil
}

func (b *mapBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.ints[key]
	return v, ok, nil
}

func (b *mapBackend) SetString(key, val string) error { b.strs[key] = val; return nil }
func (b *mapBackend) SetInt(key string, val int) error { b.ints[key] = val; return nil }

func (b *mapBackend) Delete(key string) error {
	delete(b.strs, key)
	delete(b.ints, key)
	return nil
}

func (b *mapBackend) Location() string { return "memory" }

// mockKeychain is a test double for the keychain interface.
type mockKeychain struct {
	value  string
	err    error
	stored map[string]string
}

func (m *mockKeychain) Get(service, account string) (string, error) {
	if v, ok := m.stored[service+"/"+account]; ok {
		return v, nil
	}
	return m.value, m.err
}

func (m *mockKeychain) Set(service, account, value string) error {
	if m.stored == nil {
		m.stored = map[string]string{}
	}
	m.stored[service+"/"+account] = value
	return nil
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(newMapBackend(), &mockKeychain{err: errors.New("none")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.BaseURL != "http://localhost:5050" {
		t.Errorf("Server.BaseURL = %q", cfg.Server.BaseURL)
	}
	if cfg.Server.Timeout != 15*time.Second {
		t.Errorf("Server.Timeout = %v, want 15s", cfg.Server.Timeout)
	}
	if cfg.Generate.Provider != ProviderRemote {
		t.Errorf("Generate.Provider = %q, want %q", cfg.Generate.Provider, ProviderRemote)
	}
	if cfg.Ollama.BaseURL != "http://localhost:11434" {
		t.Errorf("Ollama.BaseURL = %q", cfg.Ollama.BaseURL)
	}
	if cfg.Notice.Duration != time.Second {
		t.Errorf("Notice.Duration = %v, want 1s", cfg.Notice.Duration)
	}
	if cfg.MCP.Port != 4001 {
		t.Errorf("MCP.Port = %d, want 4001", cfg.MCP.Port)
	}
	if cfg.MCP.Token != "" {
		t.Errorf("MCP.Token = %q, want empty", cfg.MCP.Token)
	}
}

func TestBackendValues(t *testing.T) {
	clearEnv(t)

	b := newMapBackend()
	b.strs["server.base_url"] = "https://quests.example.com"
	b.strs["generate.provider"] = "ollama"
	b.strs["ollama.model"] = "mistral"
	b.strs["notice.duration"] = "2500ms"
	b.strs["http.timeout"] = "30"
	b.strs["storage.data_dir"] = "/tmp/lifexp-test"
	b.ints["mcp.port"] = 5001

	cfg, err := loadWith(b, &mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.BaseURL != "https://quests.example.com" {
		t.Errorf("Server.BaseURL = %q", cfg.Server.BaseURL)
	}
	if cfg.Generate.Provider != ProviderOllama {
		t.Errorf("Generate.Provider = %q", cfg.Generate.Provider)
	}
	if cfg.Ollama.Model != "mistral" {
		t.Errorf("Ollama.Model = %q", cfg.Ollama.Model)
	}
	if cfg.Notice.Duration != 2500*time.Millisecond {
		t.Errorf("Notice.Duration = %v", cfg.Notice.Duration)
	}
	if cfg.Server.Timeout != 30*time.Second {
		t.Errorf("Server.Timeout = %v", cfg.Server.Timeout)
	}
	if cfg.Storage.DataDir != "/tmp/lifexp-test" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.MCP.Port != 5001 {
		t.Errorf("MCP.Port = %d", cfg.MCP.Port)
	}
}

func TestEnvOverride(t *testing.T) {
	clearEnv(t)

	b := newMapBackend()
	b.strs["ollama.model"] = "from-backend"
	t.Setenv("LIFEXP_OLLAMA_MODEL", "from-env")
	t.Setenv("LIFEXP_MCP_PORT", "6001")
	t.Setenv("LIFEXP_MCP_TOKEN", "env-token")

	cfg, err := loadWith(b, &mockKeychain{value: "keychain-token"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Ollama.Model != "from-env" {
		t.Errorf("Ollama.Model = %q, want from-env", cfg.Ollama.Model)
	}
	if cfg.MCP.Port != 6001 {
		t.Errorf("MCP.Port = %d, want 6001", cfg.MCP.Port)
	}
	if cfg.MCP.Token != "env-token" {
		t.Errorf("MCP.Token = %q, want env-token", cfg.MCP.Token)
	}
}

func TestUnparseableValuesKeepDefault(t *testing.T) {
	clearEnv(t)

	b := newMapBackend()
	b.strs["notice.duration"] = "soon"
	t.Setenv("LIFEXP_MCP_PORT", "not-a-port")

	cfg, err := loadWith(b, &mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Notice.Duration != time.Second {
		t.Errorf("Notice.Duration = %v, want default 1s", cfg.Notice.Duration)
	}
	if cfg.MCP.Port != 4001 {
		t.Errorf("MCP.Port = %d, want default 4001", cfg.MCP.Port)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"server.base_url", "localhost:5050", "server.base_url"},
		{"server.base_url", "ftp://example.com", "server.base_url"},
		{"ollama.base_url", "/relative", "ollama.base_url"},
		{"generate.provider", "openai", "generate.provider"},
		{"log.level", "chatty", "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			b := newMapBackend()
			b.strs[tt.key] = tt.value

			_, err := loadWith(b, &mockKeychain{})
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestKeychainFallback(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(newMapBackend(), &mockKeychain{value: "keychain-secret"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MCP.Token != "keychain-secret" {
		t.Errorf("MCP.Token = %q, want keychain-secret", cfg.MCP.Token)
	}
}

func TestMCPToken_GeneratedOnce(t *testing.T) {
	kc := &mockKeychain{err: ErrSecretNotFound}

	first, err := mcpToken(defaults(), kc)
	if err != nil {
		t.Fatalf("mcpToken: %v", err)
	}
	if first == "" {
		t.Fatal("expected a generated token")
	}
	second, err := mcpToken(defaults(), kc)
	if err != nil {
		t.Fatalf("mcpToken: %v", err)
	}
	if first != second {
		t.Errorf("token regenerated: %q then %q", first, second)
	}

	cfg := defaults()
	cfg.MCP.Token = "configured"
	if got, _ := mcpToken(cfg, kc); got != "configured" {
		t.Errorf("mcpToken = %q, want configured", got)
	}
}

func TestMCPToken_KeychainFailure(t *testing.T) {
	kc := &mockKeychain{err: errors.New("keychain locked")}

	if _, err := mcpToken(defaults(), kc); err == nil {
		t.Fatal("expected error when the secret store fails")
	}
	if len(kc.stored) != 0 {
		t.Error("token stored although the existing one could not be read")
	}
}

func TestUnsetKey(t *testing.T) {
	clearEnv(t)
	b := newMapBackend()
	b.strs["notice.duration"] = "5s"

	if err := unsetKey(b, "notice.duration"); err != nil {
		t.Fatalf("unsetKey: %v", err)
	}
	cfg, err := loadWith(b, &mockKeychain{err: ErrSecretNotFound})
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Notice.Duration != time.Second {
		t.Errorf("Notice.Duration = %v, want default 1s", cfg.Notice.Duration)
	}

	if err := unsetKey(b, "mcp.token"); err == nil {
		t.Error("unsetKey accepted a secret key")
	}
}

func TestSetKey(t *testing.T) {
	b := newMapBackend()

	if err := setKey(b, "notice.duration", "3s"); err != nil {
		t.Fatalf("setKey duration: %v", err)
	}
	if b.strs["notice.duration"] != "3s" {
		t.Errorf("stored notice.duration = %q", b.strs["notice.duration"])
	}
	if err := setKey(b, "mcp.port", "4100"); err != nil {
		t.Fatalf("setKey int: %v", err)
	}
	if b.ints["mcp.port"] != 4100 {
		t.Errorf("stored mcp.port = %d", b.ints["mcp.port"])
	}

	for _, tc := range []struct{ key, value string }{
		{"mcp.port", "many"},
		{"notice.duration", "-1s"},
		{"server.base_url", "nope"},
		{"mcp.token", "secret"},
		{"no.such.key", "x"},
	} {
		if err := setKey(b, tc.key, tc.value); err == nil {
			t.Errorf("setKey(%q, %q) succeeded, want error", tc.key, tc.value)
		}
	}
}

func TestShowAllHidesSecrets(t *testing.T) {
	cfg := defaults()
	cfg.MCP.Token = "hidden"

	infos := ShowAll(cfg)
	if len(infos) != len(ValidKeys()) {
		t.Errorf("ShowAll returned %d keys, ValidKeys %d", len(infos), len(ValidKeys()))
	}
	for _, info := range infos {
		if info.Key == "mcp.token" || info.Value == "hidden" {
			t.Errorf("secret leaked: %+v", info)
		}
		if !strings.HasPrefix(info.EnvVar, "LIFEXP_") {
			t.Errorf("env var %q lacks LIFEXP_ prefix", info.EnvVar)
		}
	}
}
