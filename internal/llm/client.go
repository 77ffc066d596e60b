// Package llm provides the text-generation collaborator used to detect and
// repair stale answers.
package llm

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrUnavailable is returned when no collaborator is configured.
	ErrUnavailable = errors.New("text generation unavailable")

	// ErrParse is returned when a collaborator response cannot be decoded.
	ErrParse = errors.New("unparseable collaborator response")
)

// Provider names accepted in ClientConfig.
const (
	ProviderOpenAI  = "openai"
	ProviderCommand = "command"
	ProviderNone    = "none"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn sent to the collaborator.
type Message struct {
	Role    Role
	Content string
}

// Options tunes a single Generate call.
type Options struct {
	// MaxTokens caps the completion length. Zero leaves it to the provider.
	MaxTokens int
}

// Client generates text from a chat transcript.
type Client interface {
	// Generate returns the collaborator's reply to messages.
	Generate(ctx context.Context, messages []Message, opts Options) (string, error)

	// Available reports whether Generate can be attempted at all.
	Available() bool
}

// ClientConfig selects and configures a collaborator.
type ClientConfig struct {
	// Provider is one of "openai", "command" or "none"
	Provider string `yaml:"provider"`

	// Model is the chat model name
	Model string `yaml:"model"`

	// BaseURL overrides the OpenAI-compatible endpoint
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates against the endpoint. Empty means unavailable.
	APIKey string `yaml:"api_key"`

	// Timeout bounds each call
	Timeout time.Duration `yaml:"timeout"`

	// RequestsPerMinute throttles calls. Zero disables throttling.
	RequestsPerMinute int `yaml:"requests_per_minute"`

	// MaxRetries is the number of retries after a transient failure
	MaxRetries int `yaml:"max_retries"`

	// RetryDelay is the base backoff between retries
	RetryDelay time.Duration `yaml:"retry_delay"`

	// Command is the argv of a command-line collaborator
	Command []string `yaml:"command"`
}

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-5.1"

// DefaultConfig returns a ClientConfig with sensible defaults.
func DefaultConfig() ClientConfig {
	return ClientConfig{
		Provider:   ProviderOpenAI,
		Model:      DefaultModel,
		Timeout:    60 * time.Second,
		MaxRetries: 2,
		RetryDelay: 2 * time.Second,
	}
}

// NewClient builds the collaborator described by cfg. Unknown or disabled
// providers yield a client that is never available.
func NewClient(cfg ClientConfig, logger *zap.Logger) Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	var client Client
	switch cfg.Provider {
	case ProviderOpenAI:
		client = NewOpenAIClient(cfg, logger)
	case ProviderCommand:
		client = NewCommandClient(CommandConfig{
			Argv:    cfg.Command,
			Timeout: cfg.Timeout,
		}, logger)
	default:
		return Disabled{}
	}

	if cfg.RequestsPerMinute > 0 {
		client = NewRateLimited(client, cfg.RequestsPerMinute)
	}
	return client
}

// Disabled is a Client that is never available.
type Disabled struct{}

// Generate always fails with ErrUnavailable.
func (Disabled) Generate(context.Context, []Message, Options) (string, error) {
	return "", ErrUnavailable
}

// Available always returns false.
func (Disabled) Available() bool { return false }
