// Package provider defines the summarization-provider contract and the
// closed set of backends that implement it.
package provider

import (
	"context"
	"fmt"
	"time"
)

// Task names routed through providers. Summarize is the only task the
// pipeline issues today.
const TaskSummarize = "summarize"

// ErrorKind classifies a failed provider attempt. The router uses the
// kind for logging and usage records; every kind triggers fallback.
type ErrorKind string

const (
	KindTimeout         ErrorKind = "timeout"
	KindRateLimited     ErrorKind = "rate-limited"
	KindInvalidResponse ErrorKind = "invalid-response"
	KindTransport       ErrorKind = "transport"
)

// Error is the typed failure returned by a provider attempt.
type Error struct {
	Provider string    // Provider id the attempt was made against
	Kind     ErrorKind // Failure classification
	Err      error     // Underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Tier is the difficulty tier a provider is suited for, used by the
// optional difficulty-based routing override.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// Provider is an opaque text-summarization capability. Implementations
// must honor ctx cancellation and return *Error on failure.
type Provider interface {
	// ID returns the identifier used in routing rule lists.
	ID() string
	// Tier returns the difficulty tier this provider serves.
	Tier() Tier
	// Summarize produces a summary of text, bounded by maxOutputTokens.
	Summarize(ctx context.Context, text string, maxOutputTokens int) (string, error)
}

// Backend selects the SDK a provider configuration is built on. The set
// is closed: routing never resolves arbitrary strings.
type Backend string

const (
	BackendOpenAI    Backend = "openai"
	BackendAnthropic Backend = "anthropic"
	BackendGoogle    Backend = "google"
	BackendOllama    Backend = "ollama"
	BackendMock      Backend = "mock"
)

// ParseBackend validates a raw backend string against the closed set.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case BackendOpenAI, BackendAnthropic, BackendGoogle, BackendOllama, BackendMock:
		return Backend(s), nil
	}
	return "", fmt.Errorf("unsupported provider backend %q", s)
}

// Config describes one provider instance.
type Config struct {
	ID      string        `mapstructure:"id"`       // Identifier referenced by routing lists
	Backend string        `mapstructure:"backend"`  // openai | anthropic | google | ollama | mock
	Model   string        `mapstructure:"model"`    // Backend-specific model name
	APIKey  string        `mapstructure:"api_key"`  // Credential, usually from env
	BaseURL string        `mapstructure:"base_url"` // Override endpoint (openai-compatible, ollama)
	Timeout time.Duration `mapstructure:"timeout"`  // Per-attempt bound; 0 means no extra bound
	Tier    Tier          `mapstructure:"tier"`     // Difficulty tier, defaults to medium
}
