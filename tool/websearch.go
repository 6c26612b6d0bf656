package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	ai "github.com/zPy52/taichat"
	"github.com/zPy52/taichat/retry"
)

// DefaultExaEndpoint is the Exa search API URL.
const DefaultExaEndpoint = "https://api.exa.ai/search"

// snippetMaxChars bounds the text content requested per result.
const snippetMaxChars = 1000

// WebSearchOption configures the web search tool.
type WebSearchOption func(*webSearchConfig)

type webSearchConfig struct {
	apiKey   string
	endpoint string
	client   *http.Client
	retry    retry.Config
}

// WithExaAPIKey sets the Exa API key. Without a key the handler
// reports a configuration error on every call.
func WithExaAPIKey(key string) WebSearchOption {
	return func(c *webSearchConfig) {
		c.apiKey = key
	}
}

// WithExaEndpoint overrides the search API URL. Used in tests.
func WithExaEndpoint(url string) WebSearchOption {
	return func(c *webSearchConfig) {
		c.endpoint = url
	}
}

// WithSearchHTTPClient sets a custom HTTP client.
func WithSearchHTTPClient(client *http.Client) WebSearchOption {
	return func(c *webSearchConfig) {
		c.client = client
	}
}

// WithSearchRetry sets the retry policy for transient API failures.
func WithSearchRetry(cfg retry.Config) WebSearchOption {
	return func(c *webSearchConfig) {
		c.retry = cfg
	}
}

func applyWebSearchOpts(opts []WebSearchOption) *webSearchConfig {
	cfg := &webSearchConfig{
		endpoint: DefaultExaEndpoint,
		retry:    retry.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.client == nil {
		cfg.client = &http.Client{Timeout: 30 * time.Second}
	}
	return cfg
}

type searchWebArgs struct {
	Query      string `json:"query" desc:"The search query" required:"true"`
	NumResults int    `json:"numResults" desc:"Number of results to return" min:"1" max:"10" default:"5"`
}

type exaRequest struct {
	Query      string      `json:"query"`
	NumResults int         `json:"numResults"`
	Contents   exaContents `json:"contents"`
}

type exaContents struct {
	Text exaTextOptions `json:"text"`
}

type exaTextOptions struct {
	MaxCharacters int `json:"maxCharacters"`
}

type exaResponse struct {
	Results []exaResult `json:"results"`
}

type exaResult struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Text  string `json:"text"`
}

// SearchWebTool declares the search_web tool.
func SearchWebTool() ai.Tool {
	return ai.Tool{
		Name:        "search_web",
		Description: "Search the web and return result titles, URLs, and text snippets.",
		Parameters:  ai.MustSchemaFor[searchWebArgs](),
	}
}

// SearchWebHandler returns the handler for search_web, backed by the
// Exa search API.
func SearchWebHandler(opts ...WebSearchOption) Handler {
	cfg := applyWebSearchOpts(opts)

	return Typed(func(ctx context.Context, args searchWebArgs) (string, error) {
		if cfg.apiKey == "" {
			return "", fmt.Errorf("Exa API key not configured. Set EXA_API_KEY or use /config.")
		}

		numResults := args.NumResults
		if numResults < 1 {
			numResults = 5
		}
		if numResults > 10 {
			numResults = 10
		}

		body, err := json.Marshal(exaRequest{
			Query:      args.Query,
			NumResults: numResults,
			Contents:   exaContents{Text: exaTextOptions{MaxCharacters: snippetMaxChars}},
		})
		if err != nil {
			return "", fmt.Errorf("failed to encode search request: %w", err)
		}

		var parsed exaResponse
		err = retry.Do(ctx, cfg.retry, func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.endpoint, bytes.NewReader(body))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("x-api-key", cfg.apiKey)

			resp, err := cfg.client.Do(req)
			if err != nil {
				return &ai.Error{Msg: "search request failed", Cat: ai.ErrorTransient, Cause: err}
			}
			defer resp.Body.Close()

			data, err := io.ReadAll(resp.Body)
			if err != nil {
				return &ai.Error{Msg: "failed to read search response", Cat: ai.ErrorTransient, Cause: err}
			}

			if resp.StatusCode != http.StatusOK {
				return ai.NewHTTPError(fmt.Sprintf("search API returned %d", resp.StatusCode), resp.StatusCode, nil)
			}

			if err := json.Unmarshal(data, &parsed); err != nil {
				return fmt.Errorf("failed to decode search response: %w", err)
			}
			return nil
		})
		if err != nil {
			return "", err
		}

		results := make([]map[string]string, 0, len(parsed.Results))
		for _, r := range parsed.Results {
			results = append(results, map[string]string{
				"title":   r.Title,
				"url":     r.URL,
				"snippet": r.Text,
			})
		}

		return marshalResult(map[string]any{
			"results": results,
		})
	})
}
