package trend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/trendjack/core/internal/modules/processing/llm"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	analysisTextLimit = 2000
	previewTextLimit  = 500
	maxViralElements  = 5
)

// ContentAnalysis is the model's reading of a page's text.
type ContentAnalysis struct {
	TrendingKeywords string `json:"trending_keywords"`
	ViralPotential   string `json:"viral_potential"`
	BrandAngles      string `json:"brand_angles"`
	SentimentTone    string `json:"sentiment_tone"`
	TopicCategory    string `json:"topic_category"`
	Reasoning        string `json:"reasoning,omitempty"`
}

// VisualAnalysis is the model's reading of a page capture.
type VisualAnalysis struct {
	ViralElements     string `json:"viral_elements"`
	BrandOpportunity  string `json:"brand_opportunity"`
	KeyMessage        string `json:"key_message"`
	TrendingRelevance string `json:"trending_relevance"`
	Reasoning         string `json:"reasoning,omitempty"`
}

// ExtractedContent is the outcome for one URL.
type ExtractedContent struct {
	URL               string           `json:"url"`
	Success           bool             `json:"success"`
	ContentType       string           `json:"content_type"`
	Platform          string           `json:"platform,omitempty"`
	Media             string           `json:"media,omitempty"`
	TextContent       string           `json:"text_content,omitempty"`
	Markdown          string           `json:"markdown_content,omitempty"`
	Metadata          *PageMetadata    `json:"metadata,omitempty"`
	ScreenshotKey     string           `json:"screenshot_key,omitempty"`
	ScreenshotURL     string           `json:"screenshot_url,omitempty"`
	VisualDescription string           `json:"visual_description,omitempty"`
	KeyPhrases        []string         `json:"key_phrases"`
	ViralElements     []string         `json:"viral_elements"`
	BrandScore        float64          `json:"brand_opportunity_score"`
	Content           *ContentAnalysis `json:"content_analysis,omitempty"`
	Visual            *VisualAnalysis  `json:"visual_analysis,omitempty"`
	Error             string           `json:"error,omitempty"`
}

// ArtifactStore persists screenshots and returns a public URL.
type ArtifactStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// AnalyzerOptions wires an Analyzer. Any collaborator may be nil.
type AnalyzerOptions struct {
	Scraper     Scraper
	Capturer    Capturer
	Client      llm.Client
	Store       ArtifactStore
	Concurrency int
	Logger      *zap.Logger
}

// Analyzer runs scrape, capture and analysis for a list of URLs.
type Analyzer struct {
	scraper     Scraper
	capturer    Capturer
	client      llm.Client
	store       ArtifactStore
	concurrency int
	logger      *zap.Logger
	now         func() time.Time
}

func NewAnalyzer(opts AnalyzerOptions) *Analyzer {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Analyzer{
		scraper:     opts.Scraper,
		capturer:    opts.Capturer,
		client:      opts.Client,
		store:       opts.Store,
		concurrency: opts.Concurrency,
		logger:      opts.Logger.Named("Trend"),
		now:         time.Now,
	}
}

// AnalyzeURLs processes urls with bounded concurrency. Results keep the input
// order; a failing URL is recorded on its result. The error is non-nil only
// when ctx is cancelled.
func (a *Analyzer) AnalyzeURLs(ctx context.Context, urls []string, trendContext string) ([]ExtractedContent, error) {
	results := make([]ExtractedContent, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			res, err := a.analyzeOne(gctx, u, trendContext)
			if err != nil {
				a.logger.Warn("url analysis failed", zap.String("url", u), zap.Error(err))
				res = ExtractedContent{
					URL:           u,
					Success:       false,
					ContentType:   ContentError,
					KeyPhrases:    []string{},
					ViralElements: []string{},
					Error:         err.Error(),
				}
			}
			results[i] = res
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

var errNoContent = errors.New("no content extracted")

func (a *Analyzer) analyzeOne(ctx context.Context, rawURL, trendContext string) (ExtractedContent, error) {
	class := Classify(rawURL)
	res := ExtractedContent{
		URL:           rawURL,
		ContentType:   class.ContentType,
		Platform:      class.Platform,
		Media:         class.Media,
		KeyPhrases:    []string{},
		ViralElements: []string{},
	}

	if a.scraper != nil {
		page, err := a.scraper.Scrape(ctx, rawURL)
		switch {
		case err != nil:
			a.logger.Warn("scrape failed", zap.String("url", rawURL), zap.Error(err))
		case page != nil:
			res.TextContent = page.Markdown
			res.Markdown = page.Markdown
			meta := page.Metadata
			res.Metadata = &meta
		}
	}

	var capture *Capture
	if a.capturer != nil {
		c, err := a.capturer.Capture(ctx, rawURL)
		if err != nil {
			a.logger.Warn("capture failed", zap.String("url", rawURL), zap.Error(err))
		} else {
			capture = c
			res.VisualDescription = c.VisualDescription(rawURL)
			if strings.TrimSpace(res.TextContent) == "" {
				res.TextContent = strings.TrimSpace(c.Text)
			}
			a.storeScreenshot(ctx, &res, c.Screenshot)
		}
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}
	if strings.TrimSpace(res.TextContent) == "" && capture == nil {
		return res, errNoContent
	}

	if a.client != nil && strings.TrimSpace(res.TextContent) != "" {
		analysis, err := a.analyzeContent(ctx, rawURL, trendContext, res.TextContent)
		if err != nil {
			return res, fmt.Errorf("content analysis: %w", err)
		}
		res.Content = analysis
	}
	if a.client != nil && capture != nil {
		visual, err := a.analyzeVisual(ctx, rawURL, trendContext, res.VisualDescription, res.TextContent)
		if err != nil {
			return res, fmt.Errorf("visual analysis: %w", err)
		}
		res.Visual = visual
	}

	res.KeyPhrases = keyPhrases(res.Content)
	res.ViralElements = viralElements(res.Content, res.Visual)
	res.BrandScore = brandScore(res.Content, res.Visual)
	res.Success = true
	return res, nil
}

type contentAnalysisOutput struct {
	Reasoning        llm.FlexString `json:"reasoning"`
	TrendingKeywords llm.FlexString `json:"trending_keywords"`
	ViralPotential   llm.FlexString `json:"viral_potential"`
	BrandAngles      llm.FlexString `json:"brand_angles"`
	SentimentTone    llm.FlexString `json:"sentiment_tone"`
	TopicCategory    llm.FlexString `json:"topic_category"`
}

func (a *Analyzer) analyzeContent(ctx context.Context, rawURL, trendContext, text string) (*ContentAnalysis, error) {
	if strings.TrimSpace(trendContext) == "" {
		trendContext = "General trending content analysis"
	}
	var out contentAnalysisOutput
	err := llm.CompleteJSON(ctx, a.client, llm.Request{
		System:   contentAnalysisSystemPrompt,
		Prompt:   buildContentAnalysisPrompt(rawURL, trendContext, prefix(text, analysisTextLimit)),
		Analysis: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &ContentAnalysis{
		TrendingKeywords: out.TrendingKeywords.String(),
		ViralPotential:   out.ViralPotential.String(),
		BrandAngles:      out.BrandAngles.String(),
		SentimentTone:    out.SentimentTone.String(),
		TopicCategory:    out.TopicCategory.String(),
		Reasoning:        out.Reasoning.String(),
	}, nil
}

type visualAnalysisOutput struct {
	Reasoning         llm.FlexString `json:"reasoning"`
	ViralElements     llm.FlexString `json:"viral_elements"`
	BrandOpportunity  llm.FlexString `json:"brand_opportunity"`
	KeyMessage        llm.FlexString `json:"key_message"`
	TrendingRelevance llm.FlexString `json:"trending_relevance"`
}

func (a *Analyzer) analyzeVisual(ctx context.Context, rawURL, trendContext, visual, text string) (*VisualAnalysis, error) {
	if strings.TrimSpace(trendContext) == "" {
		trendContext = "Visual trending content"
	}
	preview := prefix(text, previewTextLimit)
	if strings.TrimSpace(preview) == "" {
		preview = "No text content available"
	}
	var out visualAnalysisOutput
	err := llm.CompleteJSON(ctx, a.client, llm.Request{
		System:   visualAnalysisSystemPrompt,
		Prompt:   buildVisualAnalysisPrompt(rawURL, trendContext, visual, preview),
		Analysis: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &VisualAnalysis{
		ViralElements:     out.ViralElements.String(),
		BrandOpportunity:  out.BrandOpportunity.String(),
		KeyMessage:        out.KeyMessage.String(),
		TrendingRelevance: out.TrendingRelevance.String(),
		Reasoning:         out.Reasoning.String(),
	}, nil
}

func (a *Analyzer) storeScreenshot(ctx context.Context, res *ExtractedContent, png []byte) {
	if a.store == nil || len(png) == 0 {
		return
	}
	sum := sha256.Sum256([]byte(res.URL))
	key := fmt.Sprintf("screenshots/%s/%s.png", a.now().UTC().Format("2006/01/02"), hex.EncodeToString(sum[:8]))
	publicURL, err := a.store.Put(ctx, key, png, "image/png")
	if err != nil {
		a.logger.Warn("screenshot upload failed", zap.String("url", res.URL), zap.Error(err))
		return
	}
	res.ScreenshotKey = key
	res.ScreenshotURL = publicURL
}

func keyPhrases(c *ContentAnalysis) []string {
	if c == nil || c.TrendingKeywords == "" {
		return []string{}
	}
	return splitComma(c.TrendingKeywords)
}

// viralElements lists content_<potential> first, then the visual elements,
// capped at five.
func viralElements(c *ContentAnalysis, v *VisualAnalysis) []string {
	out := []string{}
	if c != nil && c.ViralPotential != "" {
		out = append(out, "content_"+c.ViralPotential)
	}
	if v != nil && v.ViralElements != "" {
		out = append(out, splitComma(v.ViralElements)...)
	}
	if len(out) > maxViralElements {
		out = out[:maxViralElements]
	}
	return out
}

func brandScore(c *ContentAnalysis, v *VisualAnalysis) float64 {
	score := 0.5
	if c != nil {
		potential := strings.ToLower(c.ViralPotential)
		if strings.Contains(potential, "high") {
			score += 0.3
		} else if strings.Contains(potential, "medium") {
			score += 0.2
		}
	}
	if v != nil {
		opportunity := strings.ToLower(v.BrandOpportunity)
		if strings.Contains(opportunity, "excellent") || strings.Contains(opportunity, "high") {
			score += 0.2
		}
	}
	if score > 1 {
		score = 1
	}
	return score
}

func splitComma(s string) []string {
	parts := strings.Split(s, ", ")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
