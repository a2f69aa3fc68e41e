package llm

import (
	"context"
	"errors"
	"fmt"
	neturl "net/url"
	"strings"

	openaiclient "github.com/openai/openai-go/v2"
	openaioption "github.com/openai/openai-go/v2/option"
	"github.com/trendjack/core/internal/config"
)

// OpenRouter ranks apps by these headers; they are optional.
const (
	openRouterReferer = "https://github.com/trendjack/core"
	openRouterTitle   = "Trendjack"
)

const defaultCompatBase = "https://api.openai.com/v1"

// chatClient lazily builds the chat-completions client used for OpenRouter
// and for self-hosted servers that implement the same wire format (vLLM,
// Ollama, LM Studio).
func (p *Provider) chatClient() *openaiclient.Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.chat != nil {
		return p.chat
	}

	base := apiBaseURL(p.cfg.Endpoint)
	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(strings.TrimSpace(p.cfg.APIKey)),
		openaioption.WithMaxRetries(maxRetries),
		openaioption.WithHTTPClient(p.httpClient),
	}
	switch p.cfg.Provider {
	case config.ProviderOpenRouter:
		opts = append(opts,
			openaioption.WithHeader("HTTP-Referer", openRouterReferer),
			openaioption.WithHeader("X-Title", openRouterTitle))
	case config.ProviderOpenAICompatible:
		if base == "" {
			base = defaultCompatBase
		}
	}
	if base != "" {
		opts = append(opts, openaioption.WithBaseURL(base))
	}
	client := openaiclient.NewClient(opts...)
	p.chat = &client
	return p.chat
}

func (p *Provider) completeChat(ctx context.Context, model, systemPrompt, prompt string, maxTokens int, temperature float64) (string, error) {
	messages := make([]openaiclient.ChatCompletionMessageParamUnion, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, openaiclient.SystemMessage(systemPrompt))
	}
	messages = append(messages, openaiclient.UserMessage(prompt))

	resp, err := p.chatClient().Chat.Completions.New(ctx, openaiclient.ChatCompletionNewParams{
		Model:       openaiclient.ChatModel(model),
		Messages:    messages,
		MaxTokens:   openaiclient.Int(int64(maxTokens)),
		Temperature: openaiclient.Float(temperature),
	})
	if err != nil {
		return "", describeAPIError(p.cfg.Provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// describeAPIError puts the provider's own message in front of the SDK error.
func describeAPIError(provider string, err error) error {
	var apiErr *openaiclient.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	msg := strings.TrimSpace(apiErr.Message)
	if msg == "" {
		msg = strings.TrimSpace(apiErr.RawJSON())
	}
	if msg == "" {
		return err
	}
	return fmt.Errorf("%s error (%d): %s: %w", provider, apiErr.StatusCode, msg, err)
}

// apiBaseURL makes sure an endpoint ends in /v1, the prefix the SDK expects.
// Values that do not parse as absolute URLs are only trimmed.
func apiBaseURL(raw string) string {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	if base == "" {
		return ""
	}
	u, err := neturl.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return base
	}
	if !strings.HasSuffix(u.Path, "/v1") {
		u.Path += "/v1"
	}
	return u.String()
}
