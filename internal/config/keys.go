package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.base_url", typ: kString, env: "LIFEXP_SERVER_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Server.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.BaseURL },
	},
	{
		key: "http.timeout", typ: kDuration, env: "LIFEXP_HTTP_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Server.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Server.Timeout },
	},
	{
		key: "generate.provider", typ: kString, env: "LIFEXP_GENERATE_PROVIDER",
		apply:   func(cfg *Config, v any) { cfg.Generate.Provider = v.(string) },
		extract: func(cfg Config) any { return cfg.Generate.Provider },
	},
	{
		key: "generate.timeout", typ: kDuration, env: "LIFEXP_GENERATE_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Generate.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Generate.Timeout },
	},
	{
		key: "ollama.base_url", typ: kString, env: "LIFEXP_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
	},
	{
		key: "ollama.model", typ: kString, env: "LIFEXP_OLLAMA_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.Model },
	},
	{
		key: "storage.data_dir", typ: kString, env: "LIFEXP_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "notice.duration", typ: kDuration, env: "LIFEXP_NOTICE_DURATION",
		apply:   func(cfg *Config, v any) { cfg.Notice.Duration = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Notice.Duration },
	},
	{
		key: "mcp.port", typ: kInt, env: "LIFEXP_MCP_PORT",
		apply:   func(cfg *Config, v any) { cfg.MCP.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.MCP.Port },
	},
	{
		key: "mcp.token", typ: kString, env: "LIFEXP_MCP_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.MCP.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.MCP.Token },
	},
	{
		key: "log.level", typ: kString, env: "LIFEXP_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "[WARN] "+format+" Using default value.\n", args...)
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kDuration:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if d, err := parseDuration(v); err == nil {
					s.apply(cfg, d)
				} else {
					warnf("could not parse duration from config key %s=%q: %v.", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				warnf("could not parse integer from env var %s=%q: %v.", s.env, raw, err)
			}
		case kDuration:
			if d, err := parseDuration(raw); err == nil {
				s.apply(cfg, d)
			} else {
				warnf("could not parse duration from env var %s=%q: %v.", s.env, raw, err)
			}
		}
	}
}

// parseDuration accepts Go durations ("1500ms") and plain seconds ("15").
func parseDuration(raw string) (time.Duration, error) {
	if n, err := strconv.Atoi(raw); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative duration")
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration")
	}
	return d, nil
}
