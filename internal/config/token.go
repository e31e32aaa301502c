package config

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const mcpTokenAccount = "mcp_token"

// MCPToken returns the bearer token guarding the MCP HTTP transport. A token
// is generated and stored in the platform secret store on first use.
func MCPToken(cfg Config) (string, error) {
	return mcpToken(cfg, keychainStore{})
}

func mcpToken(cfg Config, kc keychain) (string, error) {
	if cfg.MCP.Token != "" {
		return cfg.MCP.Token, nil
	}
	tok, err := kc.Get(keychainService, mcpTokenAccount)
	switch {
	case err == nil && tok != "":
		return tok, nil
	case err != nil && !errors.Is(err, ErrSecretNotFound):
		return "", fmt.Errorf("reading MCP token: %w", err)
	}

	tok = uuid.NewString()
	if err := kc.Set(keychainService, mcpTokenAccount, tok); err != nil {
		return "", fmt.Errorf("storing MCP token: %w", err)
	}
	return tok, nil
}
