// Package provider resolves "<provider>:<model>" identifiers into
// configured chat provider clients.
package provider

import (
	"fmt"
	"strings"

	ai "github.com/zPy52/taichat"
	"github.com/zPy52/taichat/config"
	"github.com/zPy52/taichat/provider/anthropic"
	"github.com/zPy52/taichat/provider/google"
	"github.com/zPy52/taichat/provider/openai"
)

// OpenAI-compatible vendor endpoints.
const (
	deepseekBaseURL = "https://api.deepseek.com"
	kimiBaseURL     = "https://api.moonshot.cn/v1"
)

// DefaultModelID is used when neither the config nor the user picked a model.
const DefaultModelID = "openai:gpt-4.1"

// ErrNotConfigured indicates no API key resolves for a provider.
type ErrNotConfigured struct {
	Provider string
}

func (e *ErrNotConfigured) Error() string {
	env := config.EnvKeys[e.Provider]
	if env == "" {
		return fmt.Sprintf("no API key configured for %s", e.Provider)
	}
	return fmt.Sprintf("no API key configured for %s. Set %s or use /config.", e.Provider, env)
}

// ErrUnknownProvider indicates the model ID named a provider this build
// does not support.
type ErrUnknownProvider struct {
	Provider string
}

func (e *ErrUnknownProvider) Error() string {
	return fmt.Sprintf("unknown provider: %s", e.Provider)
}

// ModelInfo describes one entry of the model catalog.
type ModelInfo struct {
	// ID is the full "<provider>:<model>" identifier.
	ID string

	// Provider is the vendor key (openai, anthropic, google, deepseek, kimi).
	Provider string

	// Model is the vendor-side model name.
	Model string

	// Name is a human-readable label for menus.
	Name string
}

// Models returns the model catalog in menu order.
func Models() []ModelInfo {
	return []ModelInfo{
		{ID: "openai:gpt-4.1", Provider: "openai", Model: "gpt-4.1", Name: "GPT-4.1"},
		{ID: "openai:gpt-4.1-mini", Provider: "openai", Model: "gpt-4.1-mini", Name: "GPT-4.1 mini"},
		{ID: "openai:o4-mini", Provider: "openai", Model: "o4-mini", Name: "o4-mini"},
		{ID: "anthropic:claude-sonnet-4-5", Provider: "anthropic", Model: "claude-sonnet-4-5", Name: "Claude Sonnet 4.5"},
		{ID: "anthropic:claude-opus-4-1", Provider: "anthropic", Model: "claude-opus-4-1", Name: "Claude Opus 4.1"},
		{ID: "anthropic:claude-haiku-4-5", Provider: "anthropic", Model: "claude-haiku-4-5", Name: "Claude Haiku 4.5"},
		{ID: "google:gemini-2.5-pro", Provider: "google", Model: "gemini-2.5-pro", Name: "Gemini 2.5 Pro"},
		{ID: "google:gemini-2.5-flash", Provider: "google", Model: "gemini-2.5-flash", Name: "Gemini 2.5 Flash"},
		{ID: "deepseek:deepseek-chat", Provider: "deepseek", Model: "deepseek-chat", Name: "DeepSeek Chat"},
		{ID: "deepseek:deepseek-reasoner", Provider: "deepseek", Model: "deepseek-reasoner", Name: "DeepSeek Reasoner"},
		{ID: "kimi:kimi-k2-turbo-preview", Provider: "kimi", Model: "kimi-k2-turbo-preview", Name: "Kimi K2 Turbo"},
	}
}

// ParseModelID splits "<provider>:<model>". The model part may itself
// contain colons.
func ParseModelID(modelID string) (provider, model string, err error) {
	provider, model, ok := strings.Cut(modelID, ":")
	if !ok || provider == "" || model == "" {
		return "", "", fmt.Errorf("invalid model ID %q, expected <provider>:<model>", modelID)
	}
	return provider, model, nil
}

// Resolve builds a configured chat provider for the given model ID.
// Credentials resolve environment-first via the config.
func Resolve(modelID string, cfg *config.AppConfig) (ai.ChatProvider, error) {
	providerName, model, err := ParseModelID(modelID)
	if err != nil {
		return nil, err
	}

	key := cfg.GetAPIKey(providerName)
	if key == "" {
		return nil, &ErrNotConfigured{Provider: providerName}
	}

	switch providerName {
	case "openai":
		return openai.New(key, openai.WithModel(model)), nil
	case "deepseek":
		return openai.New(key, openai.WithModel(model), openai.WithBaseURL(deepseekBaseURL)), nil
	case "kimi":
		return openai.New(key, openai.WithModel(model), openai.WithBaseURL(kimiBaseURL)), nil
	case "anthropic":
		return anthropic.New(key, anthropic.WithModel(model)), nil
	case "google":
		return google.New(key, google.WithModel(model)), nil
	default:
		return nil, &ErrUnknownProvider{Provider: providerName}
	}
}
