package llm

import (
	"context"
	"fmt"
	"strings"

	anthropicclient "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaiclient "github.com/openai/openai-go/v2"
	openaioption "github.com/openai/openai-go/v2/option"
	"github.com/trendjack/core/internal/config"
	jetai "go.jetify.com/ai"
	jetapi "go.jetify.com/ai/api"
	jetanthropic "go.jetify.com/ai/provider/anthropic"
	jetopenai "go.jetify.com/ai/provider/openai"
)

// modelFactory builds a language model for the direct OpenAI and Anthropic
// providers.
type modelFactory func(p *Provider, modelID string) jetapi.LanguageModel

var modelFactories = map[string]modelFactory{
	config.ProviderOpenAI:    newOpenAIModel,
	config.ProviderAnthropic: newAnthropicModel,
}

func newOpenAIModel(p *Provider, modelID string) jetapi.LanguageModel {
	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(strings.TrimSpace(p.cfg.APIKey)),
		openaioption.WithMaxRetries(maxRetries),
		openaioption.WithHTTPClient(p.httpClient),
	}
	if base := apiBaseURL(p.cfg.Endpoint); base != "" {
		opts = append(opts, openaioption.WithBaseURL(base))
	}
	return jetopenai.NewLanguageModel(modelID, jetopenai.WithClient(openaiclient.NewClient(opts...)))
}

func newAnthropicModel(p *Provider, modelID string) jetapi.LanguageModel {
	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(strings.TrimSpace(p.cfg.APIKey)),
		anthropicoption.WithMaxRetries(maxRetries),
		anthropicoption.WithHTTPClient(p.httpClient),
	}
	if base := strings.TrimRight(strings.TrimSpace(p.cfg.Endpoint), "/"); base != "" {
		opts = append(opts, anthropicoption.WithBaseURL(base))
	}
	return jetanthropic.NewLanguageModel(modelID, jetanthropic.WithClient(anthropicclient.NewClient(opts...)))
}

// languageModel returns the cached model for modelID, building it on first use.
func (p *Provider) languageModel(modelID string) (jetapi.LanguageModel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.langMods[modelID]; ok {
		return m, nil
	}
	build, ok := modelFactories[p.cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("provider %q has no language model binding", p.cfg.Provider)
	}
	m := build(p, modelID)
	p.langMods[modelID] = m
	return m, nil
}

func (p *Provider) completeLanguageModel(ctx context.Context, modelID, systemPrompt, prompt string, maxTokens int) (string, error) {
	model, err := p.languageModel(modelID)
	if err != nil {
		return "", err
	}
	var messages []jetapi.Message
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, &jetapi.SystemMessage{Content: systemPrompt})
	}
	messages = append(messages, &jetapi.UserMessage{Content: jetapi.ContentFromText(prompt)})

	resp, err := jetai.GenerateText(ctx, messages, jetai.WithModel(model), jetai.WithMaxOutputTokens(maxTokens))
	if err != nil {
		return "", err
	}
	return responseText(resp)
}

// responseText joins the text blocks of a response.
func responseText(resp *jetapi.Response) (string, error) {
	if resp == nil {
		return "", ErrEmptyResponse
	}
	var parts []string
	for _, block := range resp.Content {
		if tb, ok := block.(*jetapi.TextBlock); ok && tb.Text != "" {
			parts = append(parts, tb.Text)
		}
	}
	text := strings.Join(parts, "")
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
