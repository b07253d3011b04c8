package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// summarizePromptTemplate asks for the short digest-style summary the
// renderers expect.
const summarizePromptTemplate = `Summarize the following news article in 2-3 concise sentences.
Extract only the key points so readers can quickly understand the content.

Article:
%s

Summary:`

// New builds a provider from its configuration. The backend string is
// validated against the closed set; nothing is resolved dynamically.
func New(ctx context.Context, cfg Config) (Provider, error) {
	backend, err := ParseBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}
	if cfg.ID == "" {
		return nil, fmt.Errorf("provider config needs an id")
	}

	tier := cfg.Tier
	if tier == "" {
		tier = TierMedium
	}

	if backend == BackendMock {
		return &Static{Name: cfg.ID, ProviderTier: tier, Response: "mock summary for: "}, nil
	}

	model, err := buildModel(ctx, backend, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s provider %s: %w", backend, cfg.ID, err)
	}
	return &langchainProvider{id: cfg.ID, tier: tier, timeout: cfg.Timeout, model: model}, nil
}

func buildModel(ctx context.Context, backend Backend, cfg Config) (llms.Model, error) {
	switch backend {
	case BackendOpenAI:
		opts := []openai.Option{openai.WithModel(cfg.Model)}
		if cfg.APIKey != "" {
			opts = append(opts, openai.WithToken(cfg.APIKey))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		return openai.New(opts...)
	case BackendAnthropic:
		opts := []anthropic.Option{anthropic.WithModel(cfg.Model)}
		if cfg.APIKey != "" {
			opts = append(opts, anthropic.WithToken(cfg.APIKey))
		}
		return anthropic.New(opts...)
	case BackendGoogle:
		opts := []googleai.Option{googleai.WithDefaultModel(cfg.Model)}
		if cfg.APIKey != "" {
			opts = append(opts, googleai.WithAPIKey(cfg.APIKey))
		}
		return googleai.New(ctx, opts...)
	case BackendOllama:
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		return ollama.New(opts...)
	}
	return nil, fmt.Errorf("unsupported provider backend %q", backend)
}

// langchainProvider adapts a langchaingo model to the Provider
// interface and maps SDK failures onto typed errors.
type langchainProvider struct {
	id      string
	tier    Tier
	timeout time.Duration
	model   llms.Model
}

func (p *langchainProvider) ID() string { return p.id }

func (p *langchainProvider) Tier() Tier { return p.tier }

func (p *langchainProvider) Summarize(ctx context.Context, text string, maxOutputTokens int) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", &Error{Provider: p.id, Kind: KindInvalidResponse, Err: errors.New("empty input text")}
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	prompt := fmt.Sprintf(summarizePromptTemplate, text)
	out, err := llms.GenerateFromSinglePrompt(ctx, p.model, prompt, llms.WithMaxTokens(maxOutputTokens))
	if err != nil {
		return "", &Error{Provider: p.id, Kind: classify(err), Err: err}
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return "", &Error{Provider: p.id, Kind: KindInvalidResponse, Err: errors.New("empty response from model")}
	}
	return out, nil
}

// classify maps an SDK error onto the typed error kinds.
func classify(err error) ErrorKind {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "429") || strings.Contains(msg, "quota"):
		return KindRateLimited
	case strings.Contains(msg, "unmarshal") || strings.Contains(msg, "unexpected") || strings.Contains(msg, "decode"):
		return KindInvalidResponse
	default:
		return KindTransport
	}
}

// Static is a deterministic in-process provider. It backs the "mock"
// backend for dry runs and is used directly by tests.
type Static struct {
	Name         string
	ProviderTier Tier
	Response     string // Prefix echoed with a snippet of the input
	Fail         *Error // When set, every call fails with this error
}

func (s *Static) ID() string { return s.Name }

func (s *Static) Tier() Tier {
	if s.ProviderTier == "" {
		return TierMedium
	}
	return s.ProviderTier
}

func (s *Static) Summarize(ctx context.Context, text string, maxOutputTokens int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &Error{Provider: s.Name, Kind: KindTimeout, Err: err}
	}
	if s.Fail != nil {
		f := *s.Fail
		f.Provider = s.Name
		return "", &f
	}

	snippet := []rune(text)
	if len(snippet) > 40 {
		snippet = snippet[:40]
	}
	return s.Response + string(snippet), nil
}
