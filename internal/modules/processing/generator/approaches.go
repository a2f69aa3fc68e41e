// Package generator writes the trendjacking drafts: viral hooks, three long
// form post approaches, and ultra-concise brand-style variations.
package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/trendjack/core/internal/modules/processing/llm"
	"go.uber.org/zap"
)

// ApproachRequest describes one business topic to tie to a trend.
type ApproachRequest struct {
	TrendingTopic    string
	BusinessTopic    string
	Explanation      string
	LinkedInAngle    string
	Goal             string
	BrandPersonality string
	CompanyType      string
}

// Approach is one generated long-form post.
type Approach struct {
	Name     string `json:"name"`
	Content  string `json:"content"`
	Hashtags string `json:"hashtags"`
	Hook     string `json:"viral_hook,omitempty"`
	Fallback bool   `json:"fallback,omitempty"`
}

var approachNames = []string{"Question/Discussion", "Personal Story", "Industry Analysis"}

// Generator produces drafts from an LLM client.
type Generator struct {
	client llm.Client
	logger *zap.Logger
}

func NewGenerator(client llm.Client, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{client: client, logger: logger.Named("Generator")}
}

type hookOutput struct {
	Hook1     llm.FlexString `json:"hook_1"`
	Hook2     llm.FlexString `json:"hook_2"`
	Hook3     llm.FlexString `json:"hook_3"`
	Reasoning llm.FlexString `json:"reasoning"`
}

// Hooks returns three hooks, each built on a different viral pattern.
func (g *Generator) Hooks(ctx context.Context, trend, business, companyType string) ([]string, error) {
	if g.client == nil {
		return nil, llm.ErrNoLLMKey
	}
	var out hookOutput
	err := llm.CompleteJSON(ctx, g.client, llm.Request{
		System: hookSystemPrompt(),
		Prompt: buildHookPrompt(trend, business, companyType),
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("generate hooks: %w", err)
	}
	hooks := []string{out.Hook1.String(), out.Hook2.String(), out.Hook3.String()}
	for i, h := range hooks {
		if h == "" {
			return nil, fmt.Errorf("generate hooks: hook_%d: %w", i+1, llm.ErrEmptyResponse)
		}
	}
	return hooks, nil
}

type approachOutput struct {
	Posts []struct {
		Name     llm.FlexString  `json:"name"`
		Content  llm.FlexString  `json:"content"`
		Hashtags llm.FlexStrings `json:"hashtags"`
	} `json:"posts"`
	Reasoning llm.FlexString `json:"reasoning"`
}

// Approaches generates hooks and then three posts built around them. Any
// generation failure other than cancellation yields FallbackApproaches.
func (g *Generator) Approaches(ctx context.Context, req ApproachRequest) ([]Approach, error) {
	approaches, err := g.generateApproaches(ctx, req)
	if err == nil {
		return approaches, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	g.logger.Warn("approach generation failed, using templates",
		zap.String("topic", req.BusinessTopic), zap.Error(err))
	return FallbackApproaches(req), nil
}

func (g *Generator) generateApproaches(ctx context.Context, req ApproachRequest) ([]Approach, error) {
	hooks, err := g.Hooks(ctx, req.TrendingTopic, req.BusinessTopic, req.CompanyType)
	if err != nil {
		return nil, err
	}
	g.logger.Debug("hooks generated", zap.Strings("hooks", hooks))

	var out approachOutput
	err = llm.CompleteJSON(ctx, g.client, llm.Request{
		System: approachSystemPrompt,
		Prompt: buildApproachPrompt(req, hooks),
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("generate approaches: %w", err)
	}
	if len(out.Posts) < len(approachNames) {
		return nil, fmt.Errorf("generate approaches: got %d posts, want %d", len(out.Posts), len(approachNames))
	}

	approaches := make([]Approach, len(approachNames))
	for i := range approachNames {
		p := out.Posts[i]
		if p.Content.String() == "" {
			return nil, fmt.Errorf("generate approaches: post %d: %w", i+1, llm.ErrEmptyResponse)
		}
		name := p.Name.String()
		if name == "" {
			name = approachNames[i]
		}
		approaches[i] = Approach{
			Name:     name,
			Content:  p.Content.String(),
			Hashtags: strings.Join(p.Hashtags, " "),
			Hook:     hooks[i],
		}
	}
	return approaches, nil
}

// FallbackApproaches are template posts used when generation fails.
func FallbackApproaches(req ApproachRequest) []Approach {
	explanation := []rune(req.Explanation)
	if len(explanation) > 100 {
		explanation = explanation[:100]
	}
	return []Approach{
		{
			Name: "Thought Leadership",
			Content: fmt.Sprintf("The recent buzz around %s got me thinking about %s. %s As leaders in %s, how we approach this matters.",
				req.TrendingTopic, req.BusinessTopic, req.LinkedInAngle, strings.ToLower(req.CompanyType)),
			Hashtags: "#leadership #innovation #insights",
			Fallback: true,
		},
		{
			Name: "Personal Connection",
			Content: fmt.Sprintf("Seeing %s everywhere reminds me why %s is so crucial right now. %s... What's your take?",
				req.TrendingTopic, req.BusinessTopic, string(explanation)),
			Hashtags: "#perspective #discussion #business",
			Fallback: true,
		},
		{
			Name: "Industry Analysis",
			Content: fmt.Sprintf("While everyone's talking about %s, let's discuss its connection to %s. %s The implications for our industry are significant.",
				req.TrendingTopic, req.BusinessTopic, req.LinkedInAngle),
			Hashtags: "#analysis #industry #trends",
			Fallback: true,
		},
	}
}
