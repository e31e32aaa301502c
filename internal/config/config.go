package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Generation providers.
const (
	ProviderRemote = "remote"
	ProviderOllama = "ollama"
)

type Config struct {
	Server   ServerConfig
	Generate GenerateConfig
	Ollama   OllamaConfig
	Storage  StorageConfig
	Notice   NoticeConfig
	MCP      MCPConfig
	Log      LogConfig
}

type ServerConfig struct {
	BaseURL string
	Timeout time.Duration
}

type GenerateConfig struct {
	Provider string
	Timeout  time.Duration
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

type StorageConfig struct {
	DataDir string
}

type NoticeConfig struct {
	Duration time.Duration
}

type MCPConfig struct {
	Port  int
	Token string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			BaseURL: "http://localhost:5050",
			Timeout: 15 * time.Second,
		},
		Generate: GenerateConfig{
			Provider: ProviderRemote,
			Timeout:  60 * time.Second,
		},
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
			Model:   "llama3.2",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Notice: NoticeConfig{
			Duration: time.Second,
		},
		MCP: MCPConfig{
			Port: 4001,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.lifexp.app) and the MCP
// token lives in the Keychain. Elsewhere the backend is a JSON file at
// $XDG_CONFIG_HOME/lifexp/config.json and secrets sit next to the data dir.
//
// Environment variables (LIFEXP_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainStore{})
}

// keychain abstracts secret storage for testing.
type keychain interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
}

const keychainService = "lifexp"

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.MCP.Token == "" {
		if tok, err := kc.Get(keychainService, mcpTokenAccount); err == nil && tok != "" {
			cfg.MCP.Token = tok
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	for key, raw := range map[string]string{
		"server.base_url": c.Server.BaseURL,
		"ollama.base_url": c.Ollama.BaseURL,
	} {
		u, err := url.ParseRequestURI(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid %s %q: must be an absolute http(s) URL", key, raw)
		}
	}

	switch c.Generate.Provider {
	case ProviderRemote, ProviderOllama:
	default:
		return fmt.Errorf("invalid generate.provider %q: must be %q or %q", c.Generate.Provider, ProviderRemote, ProviderOllama)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level %q: must be debug, info, warn or error", c.Log.Level)
	}
	return nil
}

// keychainStore reads and writes the platform secret store.
type keychainStore struct{}

func (keychainStore) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (keychainStore) Set(service, account, value string) error {
	return keychainSet(service, account, value)
}
