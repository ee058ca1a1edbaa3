// Package llm provides the model backend contract used by the
// advanced extraction and analysis strategies: a single
// text-completion call accepting a prompt and returning free text,
// plus a structured variant that appends a JSON-only instruction.
// Anthropic and OpenAI backends are provided.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Default configuration values.
const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultAnthropicModel   = "claude-3-5-sonnet-20241022"
	defaultOpenAIBaseURL    = "https://api.openai.com"
	defaultOpenAIModel      = "gpt-4o-mini"
	defaultMaxTokens        = 2048
	defaultTimeout          = 60 * time.Second
	defaultMaxRetries       = 3
	defaultBaseBackoff      = 1 * time.Second
)

// Rate limiter defaults: 50 requests per minute for both APIs.
const (
	defaultRateLimit = 50.0 / 60.0
	defaultBurst     = 5
)

// ErrNotConfigured is returned when an advanced-mode request arrives
// but no model backend is configured.
var ErrNotConfigured = errors.New("model backend not configured")

// jsonOnlyInstruction is appended by CompleteStructured.
const jsonOnlyInstruction = "\n\nRespond ONLY with valid JSON, no additional text."

// Client is the model backend contract. Callers must tolerate
// markdown code-fence wrapping in responses; StripFences removes it.
type Client interface {
	// Complete sends a prompt and returns the model's free text.
	Complete(ctx context.Context, prompt string) (string, error)

	// CompleteStructured is Complete with a JSON-only instruction
	// appended to the prompt.
	CompleteStructured(ctx context.Context, prompt string) (string, error)

	// Available reports whether the backend is configured and usable.
	Available() bool
}

// Config holds provider-specific configuration.
type Config struct {
	Provider  string `koanf:"provider"` // "disabled", "anthropic", "openai"
	Model     string `koanf:"model"`
	APIKey    string `koanf:"api_key"`
	BaseURL   string `koanf:"base_url"`
	MaxTokens int    `koanf:"max_tokens"`
	// Timeout bounds each model call, in seconds.
	Timeout int `koanf:"timeout"`
}

// NewClient creates a client for the configured provider. "disabled"
// or an empty provider yields a NoOpClient.
func NewClient(cfg Config) (Client, error) {
	switch cfg.Provider {
	case "", "disabled":
		return &NoOpClient{}, nil
	case "anthropic":
		return newAnthropicClient(cfg)
	case "openai":
		return newOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

// NoOpClient is the backend used when no provider is configured.
// Every call fails with ErrNotConfigured.
type NoOpClient struct{}

func (n *NoOpClient) Complete(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}

func (n *NoOpClient) CompleteStructured(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}

// Available returns false.
func (n *NoOpClient) Available() bool { return false }

// StripFences removes a surrounding markdown code fence from a model
// response. LLMs often wrap JSON in ```json blocks despite
// instructions not to.
func StripFences(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

// retryableError wraps an error to indicate it can be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }

func (e *retryableError) Unwrap() error { return e.err }

// isRetryableError checks if an error should be retried.
func isRetryableError(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

var _ Client = (*NoOpClient)(nil)
