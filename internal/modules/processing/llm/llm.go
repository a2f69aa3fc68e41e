// Package llm wraps the chat-completion providers used by every generation
// stage behind a single Client interface.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	openaiclient "github.com/openai/openai-go/v2"
	"github.com/trendjack/core/internal/config"
	jetapi "go.jetify.com/ai/api"
	"go.uber.org/zap"
)

var (
	// ErrNoLLMKey is returned when no API key is configured for the provider.
	ErrNoLLMKey = errors.New("llm api key is not configured")
	// ErrEmptyResponse is returned when the provider answered with no text.
	ErrEmptyResponse = errors.New("empty response from AI")
)

const (
	defaultOpenAIModel    = "gpt-4o"
	defaultAnthropicModel = "claude-haiku-4-5-20251001"
	defaultCompatModel    = "gpt-4o-mini"
	maxRetries            = 2
)

// Request is one system+user prompt exchange.
type Request struct {
	System      string
	Prompt      string
	Model       string   // overrides the configured model
	Analysis    bool     // use the configured analysis model
	MaxTokens   int      // 0 uses the configured default
	Temperature *float64 // nil uses the configured default
}

// Client completes a prompt and returns the raw model text.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Provider is the configured Client backed by OpenRouter, OpenAI, Anthropic
// or an OpenAI-compatible endpoint.
type Provider struct {
	cfg        config.LLMConfig
	logger     *zap.Logger
	httpClient *http.Client

	mu       sync.Mutex
	chat     *openaiclient.Client
	langMods map[string]jetapi.LanguageModel
}

// New builds a Provider. A missing API key is reported lazily by Complete so
// that the service can start and serve non-generation routes.
func New(cfg config.LLMConfig, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Provider{
		cfg:        cfg,
		logger:     logger.Named("LLM"),
		httpClient: &http.Client{Timeout: timeout},
		langMods:   make(map[string]jetapi.LanguageModel),
	}
}

// Configured reports whether an API key is available.
func (p *Provider) Configured() bool {
	return strings.TrimSpace(p.cfg.APIKey) != ""
}

// ProviderName returns the normalized provider type.
func (p *Provider) ProviderName() string { return p.cfg.Provider }

// Complete sends req to the configured provider.
func (p *Provider) Complete(ctx context.Context, req Request) (string, error) {
	if !p.Configured() {
		return "", ErrNoLLMKey
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return "", errors.New("llm prompt is empty")
	}
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	model := p.modelFor(req)
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.cfg.MaxTokens
	}
	temperature := p.cfg.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	started := time.Now()
	var (
		text string
		err  error
	)
	switch p.cfg.Provider {
	case config.ProviderOpenRouter, config.ProviderOpenAICompatible:
		text, err = p.completeChat(ctx, model, req.System, req.Prompt, maxTokens, temperature)
	case config.ProviderOpenAI, config.ProviderAnthropic:
		text, err = p.completeLanguageModel(ctx, model, req.System, req.Prompt, maxTokens)
	default:
		err = fmt.Errorf("unsupported llm provider %q", p.cfg.Provider)
	}
	if err != nil {
		p.logger.Warn("completion failed",
			zap.String("provider", p.cfg.Provider),
			zap.String("model", model),
			zap.Duration("latency", time.Since(started)),
			zap.Error(err))
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	p.logger.Debug("completion",
		zap.String("model", model),
		zap.Int("chars", len(text)),
		zap.Duration("latency", time.Since(started)))
	return text, nil
}

func (p *Provider) modelFor(req Request) string {
	if m := strings.TrimSpace(req.Model); m != "" {
		return m
	}
	if req.Analysis && p.cfg.AnalysisModel != "" {
		return p.cfg.AnalysisModel
	}
	if p.cfg.Model != "" {
		return p.cfg.Model
	}
	switch p.cfg.Provider {
	case config.ProviderAnthropic:
		return defaultAnthropicModel
	case config.ProviderOpenAICompatible:
		return defaultCompatModel
	default:
		return defaultOpenAIModel
	}
}
