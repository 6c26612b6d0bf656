// Package config loads and saves the taichat configuration file and
// resolves API credentials with environment-first lookup.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// File locations relative to the user's home directory.
const (
	dirName  = ".taichat"
	fileName = "config.json"
)

// EnvKeys maps provider names to the environment variables consulted
// before the config file.
var EnvKeys = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"google":    "GOOGLE_API_KEY",
	"deepseek":  "DEEPSEEK_API_KEY",
	"kimi":      "KIMI_API_KEY",
	"exa":       "EXA_API_KEY",
}

// MCPServer declares one Model Context Protocol server. Command/Args/Env
// describe a stdio server; URL selects SSE transport instead.
type MCPServer struct {
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	URL     string            `json:"url,omitempty"`
}

// AppConfig is the persisted configuration.
type AppConfig struct {
	DefaultModel string               `json:"defaultModel,omitempty"`
	APIKeys      map[string]string    `json:"apiKeys,omitempty"`
	MCPServers   map[string]MCPServer `json:"mcpServers,omitempty"`
}

// Path returns the config file location, honoring TAICHAT_CONFIG_DIR
// for tests and non-standard setups.
func Path() (string, error) {
	if dir := os.Getenv("TAICHAT_CONFIG_DIR"); dir != "" {
		return filepath.Join(dir, fileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, dirName, fileName), nil
}

// Load reads the config file. A missing file yields an empty config,
// not an error; a malformed file is an error.
func Load() (*AppConfig, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &AppConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg AppConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config at %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes the config file with user-only permissions, creating the
// directory as needed.
func (c *AppConfig) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// GetAPIKey resolves the credential for a provider: environment
// variable first, config file second. Returns "" when neither is set.
func (c *AppConfig) GetAPIKey(provider string) string {
	if env, ok := EnvKeys[provider]; ok {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	if c != nil && c.APIKeys != nil {
		return c.APIKeys[provider]
	}
	return ""
}

// SetAPIKey stores a credential in the config (not the environment).
func (c *AppConfig) SetAPIKey(provider, key string) {
	if c.APIKeys == nil {
		c.APIKeys = make(map[string]string)
	}
	c.APIKeys[provider] = key
}

// HasAnyAPIKey reports whether at least one model provider credential
// resolves. The exa key alone does not count; it cannot drive a chat.
func (c *AppConfig) HasAnyAPIKey() bool {
	for provider := range EnvKeys {
		if provider == "exa" {
			continue
		}
		if c.GetAPIKey(provider) != "" {
			return true
		}
	}
	return false
}
