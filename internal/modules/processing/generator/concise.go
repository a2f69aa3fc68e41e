package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/trendjack/core/internal/modules/processing/brand"
	"github.com/trendjack/core/internal/modules/processing/llm"
	"go.uber.org/zap"
)

const (
	examplesPerCategory = 2
	maxPromptExamples   = 6
	maxKeywords         = 5
	conciseWordLimit    = 10
)

// Patterns groups brand examples by structure.
type Patterns struct {
	WordCounts         []int    `json:"word_counts"`
	Wordplay           []string `json:"wordplay_examples"`
	Direct             []string `json:"direct_examples"`
	ProductConnections []string `json:"product_connections"`
	CleverTwists       []string `json:"clever_twists"`
}

// AverageWords is the mean example length in words.
func (p Patterns) AverageWords() float64 {
	if len(p.WordCounts) == 0 {
		return 0
	}
	sum := 0
	for _, n := range p.WordCounts {
		sum += n
	}
	return float64(sum) / float64(len(p.WordCounts))
}

// PromptExamples returns up to two examples per category, at most six.
func (p Patterns) PromptExamples() []string {
	var out []string
	for _, group := range [][]string{p.Wordplay, p.Direct, p.ProductConnections, p.CleverTwists} {
		if len(group) > examplesPerCategory {
			group = group[:examplesPerCategory]
		}
		out = append(out, group...)
	}
	if len(out) > maxPromptExamples {
		out = out[:maxPromptExamples]
	}
	return out
}

// AnalyzePatterns sorts examples into structural categories by tactic.
func AnalyzePatterns(examples []brand.Example) Patterns {
	p := Patterns{WordCounts: []int{}}
	for _, ex := range examples {
		name := ex.Brand
		if name == "" {
			name = "Unknown"
		}
		tactic := ex.Tactic
		line := fmt.Sprintf("%s: %q", name, ex.Content)
		p.WordCounts = append(p.WordCounts, len(strings.Fields(ex.Content)))
		switch {
		case strings.Contains(tactic, "wordplay") || strings.Contains(tactic, "puns"):
			p.Wordplay = append(p.Wordplay, line)
		case strings.Contains(tactic, "direct") || strings.Contains(tactic, "statement"):
			p.Direct = append(p.Direct, line)
		case strings.Contains(tactic, "product") || strings.Contains(tactic, "integration"):
			p.ProductConnections = append(p.ProductConnections, line)
		default:
			p.CleverTwists = append(p.CleverTwists, line)
		}
	}
	return p
}

// DefaultPatterns are observed brand posts used when no examples exist.
func DefaultPatterns() Patterns {
	return Patterns{
		WordCounts: []int{7, 3, 7, 5, 8, 6, 4, 9},
		Wordplay: []string{
			`Panera: "Its a loaf story, baby, just say yeast"`,
			`SourPatchKids: "First they were sour, now theyre ENGAGED"`,
		},
		Direct: []string{
			`Starbucks: "Love is brewing"`,
			`DoorDash: "We deliver happiness faster than Swift news"`,
		},
		ProductConnections: []string{
			`Target: "Love is our favorite trend"`,
			`Nike: "Just Do It... together"`,
		},
		CleverTwists: []string{
			`Wendys: "Our Twitter engagement rate > their engagement ring"`,
		},
	}
}

// DefaultVoiceKeywords are used when the caller passes none.
var DefaultVoiceKeywords = []string{"DSPY", "structured prompting", "production systems", "AI engineering", "modular pipelines"}

// VoiceKeywords derives company keywords from a topic and company type.
func VoiceKeywords(topic, companyType string) []string {
	first := func(s, fallback string) string {
		if f := strings.Fields(s); len(f) > 0 {
			return f[0]
		}
		return fallback
	}
	return []string{first(topic, "innovation"), first(companyType, "business"), "expertise", "leadership"}
}

// ConciseRequest asks for short variations tying a business topic to a trend.
type ConciseRequest struct {
	BusinessTopic string
	PopCulture    string
	Keywords      []string
	Examples      []brand.Example
}

// Variation is one ultra-concise post.
type Variation struct {
	Key       string `json:"key"`
	Type      string `json:"type"`
	Content   string `json:"content"`
	WordCount int    `json:"word_count"`
	MaxWords  int    `json:"max_words"`
}

// ConciseMetrics summarises variation lengths.
type ConciseMetrics struct {
	AllUnder10Words  bool    `json:"all_under_10_words"`
	AverageWordCount float64 `json:"average_word_count"`
}

// ConciseResult is the outcome of Concise.
type ConciseResult struct {
	Variations           []Variation    `json:"variations"`
	BestVersionReasoning string         `json:"best_version_reasoning"`
	Hashtags             []string       `json:"hashtags"`
	Reasoning            string         `json:"generation_reasoning"`
	Keywords             []string       `json:"company_voice_keywords"`
	Patterns             Patterns       `json:"brand_patterns"`
	Metrics              ConciseMetrics `json:"success_metrics"`
	Took                 time.Duration  `json:"processing_time"`
}

type conciseOutput struct {
	Wordplay  llm.FlexString  `json:"wordplay_version"`
	Direct    llm.FlexString  `json:"direct_statement_version"`
	Product   llm.FlexString  `json:"product_connection_version"`
	Twist     llm.FlexString  `json:"clever_twist_version"`
	Best      llm.FlexString  `json:"best_version_reasoning"`
	Hashtags  llm.FlexStrings `json:"all_hashtag_suggestions"`
	Reasoning llm.FlexString  `json:"reasoning"`
}

// Concise generates the four brand-style variations.
func (g *Generator) Concise(ctx context.Context, req ConciseRequest) (ConciseResult, error) {
	if g.client == nil {
		return ConciseResult{}, llm.ErrNoLLMKey
	}
	start := time.Now()

	keywords := req.Keywords
	if len(keywords) == 0 {
		keywords = DefaultVoiceKeywords
	}
	promptKeywords := keywords
	if len(promptKeywords) > maxKeywords {
		promptKeywords = promptKeywords[:maxKeywords]
	}

	patterns := DefaultPatterns()
	if len(req.Examples) > 0 {
		patterns = AnalyzePatterns(req.Examples)
	}
	examples := patterns.PromptExamples()

	var out conciseOutput
	err := llm.CompleteJSON(ctx, g.client, llm.Request{
		System: conciseSystemPrompt,
		Prompt: buildConcisePrompt(req.BusinessTopic, req.PopCulture,
			strings.Join(promptKeywords, ", "), strings.Join(examples, "\n")),
	}, &out)
	if err != nil {
		return ConciseResult{}, fmt.Errorf("generate concise variations: %w", err)
	}

	variations := []Variation{
		newVariation("wordplay", "wordplay/pun", out.Wordplay.String(), 7),
		newVariation("direct_statement", "direct statement", out.Direct.String(), 8),
		newVariation("product_connection", "product connection", out.Product.String(), 9),
		newVariation("clever_twist", "clever twist", out.Twist.String(), 10),
	}
	for _, v := range variations {
		if v.Content == "" {
			return ConciseResult{}, fmt.Errorf("generate concise variations: %s: %w", v.Key, llm.ErrEmptyResponse)
		}
	}

	res := ConciseResult{
		Variations:           variations,
		BestVersionReasoning: out.Best.String(),
		Hashtags:             []string(out.Hashtags),
		Reasoning:            out.Reasoning.String(),
		Keywords:             keywords,
		Patterns:             patterns,
		Metrics:              metrics(variations),
		Took:                 time.Since(start),
	}
	if res.Hashtags == nil {
		res.Hashtags = []string{}
	}
	g.logger.Info("concise variations generated",
		zap.String("topic", req.BusinessTopic),
		zap.Float64("average_words", res.Metrics.AverageWordCount),
		zap.Bool("all_concise", res.Metrics.AllUnder10Words))
	return res, nil
}

func newVariation(key, kind, content string, maxWords int) Variation {
	return Variation{
		Key:       key,
		Type:      kind,
		Content:   content,
		WordCount: len(strings.Fields(content)),
		MaxWords:  maxWords,
	}
}

func metrics(variations []Variation) ConciseMetrics {
	m := ConciseMetrics{AllUnder10Words: true}
	if len(variations) == 0 {
		return m
	}
	total := 0
	for _, v := range variations {
		total += v.WordCount
		if v.WordCount > conciseWordLimit {
			m.AllUnder10Words = false
		}
	}
	m.AverageWordCount = float64(total) / float64(len(variations))
	return m
}
