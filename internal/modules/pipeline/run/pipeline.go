// Package run drives a full generation run: trend analysis, voice profile,
// brand simulation and per-topic post generation, plus persistence, the
// background worker and the HTTP surface around it.
package run

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/trendjack/core/internal/config"
	"github.com/trendjack/core/internal/models"
	"github.com/trendjack/core/internal/modules/pipeline/history"
	"github.com/trendjack/core/internal/modules/processing/brand"
	"github.com/trendjack/core/internal/modules/processing/generator"
	"github.com/trendjack/core/internal/modules/processing/llm"
	"github.com/trendjack/core/internal/modules/processing/refine"
	"github.com/trendjack/core/internal/modules/processing/trend"
	"github.com/trendjack/core/internal/modules/processing/voice"
	"go.uber.org/zap"
)

// Step names reported in progress events.
const (
	StepTrend      = "trend_analysis"
	StepVoice      = "voice_profile"
	StepGeneration = "post_generation"
	StepAdaptation = "voice_adaptation"
	StepComplete   = "complete"
)

// ErrInvalidInput wraps every Input validation failure.
var ErrInvalidInput = errors.New("invalid run input")

// Input is everything a run needs.
type Input struct {
	TranscriptID     string                  `json:"transcript_id"`
	Transcript       string                  `json:"-"`
	CompanyType      string                  `json:"company_type"`
	Goal             string                  `json:"goal"`
	BrandPersonality string                  `json:"brand_personality"`
	TrendContext     string                  `json:"trend_context"`
	URLs             []string                `json:"urls"`
	Topics           []models.TopicSelection `json:"topics"`
}

// Normalize trims fields and drops blank URLs and topics.
func (in *Input) Normalize() {
	in.CompanyType = strings.TrimSpace(in.CompanyType)
	in.Goal = strings.TrimSpace(in.Goal)
	in.BrandPersonality = strings.TrimSpace(in.BrandPersonality)
	in.TrendContext = strings.TrimSpace(in.TrendContext)

	urls := make([]string, 0, len(in.URLs))
	for _, u := range in.URLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	in.URLs = urls

	topics := make([]models.TopicSelection, 0, len(in.Topics))
	for _, t := range in.Topics {
		t.Topic = strings.TrimSpace(t.Topic)
		if t.Topic != "" {
			topics = append(topics, t)
		}
	}
	in.Topics = topics
}

// Validate checks a normalized input against the configured limits.
func (in Input) Validate(maxURLs int) error {
	switch {
	case strings.TrimSpace(in.Transcript) == "":
		return fmt.Errorf("%w: transcript is empty", ErrInvalidInput)
	case len(in.URLs) == 0:
		return fmt.Errorf("%w: at least one trending URL is required", ErrInvalidInput)
	case maxURLs > 0 && len(in.URLs) > maxURLs:
		return fmt.Errorf("%w: at most %d URLs are allowed", ErrInvalidInput, maxURLs)
	case in.CompanyType == "":
		return fmt.Errorf("%w: company type is required", ErrInvalidInput)
	case in.Goal == "":
		return fmt.Errorf("%w: promotional goal is required", ErrInvalidInput)
	case in.BrandPersonality == "":
		return fmt.Errorf("%w: brand personality is required", ErrInvalidInput)
	case len(in.Topics) == 0:
		return fmt.Errorf("%w: select at least one business topic", ErrInvalidInput)
	}
	for _, raw := range in.URLs {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %q is not an http(s) URL", ErrInvalidInput, raw)
		}
	}
	return nil
}

// Event reports run progress.
type Event struct {
	Step     string  `json:"step"`
	Topic    string  `json:"topic,omitempty"`
	Current  int     `json:"current"`
	Total    int     `json:"total"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message,omitempty"`
}

// TopicResult is the output for one topic plus its refinable posts.
type TopicResult struct {
	models.TopicOutput
	Contexts []*refine.PostContext `json:"-"`
}

// Result is the outcome of a completed run.
type Result struct {
	Trend    trend.Analysis   `json:"trend"`
	Profile  voice.Profile    `json:"voice_profile"`
	Brands   *brand.Responses `json:"brand_responses,omitempty"`
	Examples []brand.Example  `json:"brand_examples"`
	History  *history.History `json:"-"`
	Topics   []TopicResult    `json:"results"`
	Took     time.Duration    `json:"took"`
}

// TrendAnalyzer analyses trending URLs.
type TrendAnalyzer interface {
	AnalyzeURLs(ctx context.Context, urls []string, trendContext string) ([]trend.ExtractedContent, error)
}

// Options wires a Pipeline.
type Options struct {
	Client   llm.Client
	Analyzer TrendAnalyzer
	Config   config.PipelineConfig
	Seed     int64
	Logger   *zap.Logger
}

// Pipeline runs every generation stage in order.
type Pipeline struct {
	analyzer  TrendAnalyzer
	adapter   *voice.Adapter
	simulator *brand.Simulator
	generator *generator.Generator
	cfg       config.PipelineConfig
	logger    *zap.Logger
}

func New(opts Options) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	var sim *brand.Simulator
	if opts.Config.BrandSimulation {
		sim = brand.NewSimulator(opts.Client, opts.Config.BrandExamples, opts.Seed, opts.Logger)
	}
	return &Pipeline{
		analyzer:  opts.Analyzer,
		adapter:   voice.NewAdapter(opts.Client, opts.Config.TopicConcurrency, opts.Logger),
		simulator: sim,
		generator: generator.NewGenerator(opts.Client, opts.Logger),
		cfg:       opts.Config,
		logger:    opts.Logger.Named("Pipeline"),
	}
}

type progressTracker struct {
	total   int
	current int
	emit    func(Event)
}

func (p *progressTracker) report(step, topic, message string) {
	if p.emit == nil {
		return
	}
	p.emit(Event{
		Step:     step,
		Topic:    topic,
		Current:  p.current,
		Total:    p.total,
		Progress: float64(p.current) / float64(p.total),
		Message:  message,
	})
}

// Run executes the whole pipeline. Only cancellation and voice profile
// failure end a run early; per-topic failures are recorded on the topic.
func (p *Pipeline) Run(ctx context.Context, in Input, progress func(Event)) (*Result, error) {
	in.Normalize()
	if err := in.Validate(p.cfg.MaxURLs); err != nil {
		return nil, err
	}
	if p.analyzer == nil {
		return nil, errors.New("pipeline: no trend analyzer configured")
	}

	started := time.Now()
	tracker := &progressTracker{total: 2*len(in.Topics) + 2, emit: progress}
	h := &history.History{}

	tracker.report(StepTrend, "", fmt.Sprintf("analyzing %d URLs", len(in.URLs)))
	contents, err := p.analyzer.AnalyzeURLs(ctx, in.URLs, in.TrendContext)
	if err != nil {
		return nil, fmt.Errorf("trend analysis: %w", err)
	}
	analysis := trend.NewAnalysis(contents, in.TrendContext, in.URLs)
	h.TrendAnalysis(in.URLs, historyContents(contents), analysis.PrimaryTopic)
	tracker.current++
	p.logger.Info("trend analysis done",
		zap.String("topic", analysis.PrimaryTopic),
		zap.Int("successful", analysis.Summary.Successful),
		zap.Int("failed", analysis.Summary.Failed))

	tracker.report(StepVoice, "", "extracting company voice")
	profile, err := p.adapter.ExtractProfile(ctx, in.Transcript, voice.CompanyContext(in.CompanyType, in.Goal))
	if err != nil {
		return nil, err
	}

	var brands *brand.Responses
	if p.simulator != nil {
		resp, err := p.simulator.Simulate(ctx, analysis.PrimaryTopic, in.TrendContext)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.logger.Warn("brand simulation failed", zap.Error(err))
		} else {
			brands = &resp
		}
	}
	examples := brand.Examples(brands, p.cfg.BrandExamples)
	tracker.current++

	res := &Result{
		Trend:    analysis,
		Profile:  profile,
		Brands:   brands,
		Examples: examples,
		History:  h,
		Topics:   make([]TopicResult, 0, len(in.Topics)),
	}
	for _, sel := range in.Topics {
		tr, err := p.runTopic(ctx, in, sel, analysis.PrimaryTopic, profile, examples, h, tracker)
		if err != nil {
			return nil, err
		}
		res.Topics = append(res.Topics, tr)
	}

	tracker.current = tracker.total
	tracker.report(StepComplete, "", "")
	res.Took = time.Since(started)
	return res, nil
}

// runTopic generates, adapts and condenses posts for one topic. The returned
// error is non-nil only on cancellation.
func (p *Pipeline) runTopic(ctx context.Context, in Input, sel models.TopicSelection, primary string, profile voice.Profile, examples []brand.Example, h *history.History, tracker *progressTracker) (TopicResult, error) {
	out := TopicResult{TopicOutput: models.TopicOutput{
		Topic:      sel.Topic,
		Approaches: []generator.Approach{},
		Posts:      []voice.AdaptedPost{},
		Examples:   examples,
		PostIDs:    []string{},
	}}

	tracker.report(StepGeneration, sel.Topic, "generating approaches")
	approaches, err := p.generator.Approaches(ctx, generator.ApproachRequest{
		TrendingTopic:    primary,
		BusinessTopic:    sel.Topic,
		Explanation:      sel.Explanation,
		LinkedInAngle:    sel.LinkedInAngle,
		Goal:             in.Goal,
		BrandPersonality: in.BrandPersonality,
		CompanyType:      in.CompanyType,
	})
	if err != nil {
		return out, err
	}
	out.Approaches = approaches
	tracker.current++

	hooks := make([]string, 0, len(approaches))
	for _, a := range approaches {
		if a.Hook != "" {
			hooks = append(hooks, a.Hook)
		}
	}
	if len(hooks) > 0 {
		h.ViralHookGeneration(primary, sel.Topic, hooks)
	}
	drafts := make([]voice.Draft, len(approaches))
	for i, a := range approaches {
		h.PostGeneration(a.Name, a.Hook, a.Content, a.Hashtags)
		drafts[i] = voice.Draft{Approach: a.Name, Content: a.Content, Hashtags: a.Hashtags, Hook: a.Hook}
	}

	tracker.report(StepAdaptation, sel.Topic, "adapting posts to company voice")
	posts, err := p.adapter.Adapt(ctx, voice.AdaptRequest{
		Drafts:      drafts,
		Profile:     profile,
		Transcript:  in.Transcript,
		CoreMessage: sel.Explanation,
		Topic:       primary,
		Hooks:       hooks,
	})
	if err != nil {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		p.logger.Warn("voice adaptation failed", zap.String("topic", sel.Topic), zap.Error(err))
		out.Error = "voice adaptation: " + err.Error()
		tracker.current++
		return out, nil
	}
	out.Posts = posts
	for _, post := range posts {
		h.VoiceAdaptation(post.OriginalContent, profile, post.Content, post.Changes)
	}

	concise, err := p.generator.Concise(ctx, generator.ConciseRequest{
		BusinessTopic: sel.Topic,
		PopCulture:    primary,
		Keywords:      generator.VoiceKeywords(sel.Topic, in.CompanyType),
		Examples:      examples,
	})
	switch {
	case err == nil:
		out.Concise = &concise
	case ctx.Err() != nil:
		return out, ctx.Err()
	default:
		p.logger.Warn("concise generation failed", zap.String("topic", sel.Topic), zap.Error(err))
		out.Error = "viral posts: " + err.Error()
	}

	out.Contexts = make([]*refine.PostContext, len(posts))
	for i, post := range posts {
		hook := post.OriginalHook
		if hook == "" && i < len(approaches) {
			hook = approaches[i].Hook
		}
		out.Contexts[i] = refine.NewPostContext(primary, sel.Topic, hook, post.OriginalApproach, profile, post.Content, h.Clone())
	}
	tracker.current++
	return out, nil
}

// historyContents keeps the per-URL fields worth replaying to the refiner.
func historyContents(contents []trend.ExtractedContent) []map[string]interface{} {
	out := make([]map[string]interface{}, len(contents))
	for i, c := range contents {
		entry := map[string]interface{}{
			"url":          c.URL,
			"success":      c.Success,
			"content_type": c.ContentType,
		}
		if c.Success {
			entry["key_phrases"] = c.KeyPhrases
			entry["viral_elements"] = c.ViralElements
			entry["brand_opportunity_score"] = c.BrandScore
		} else {
			entry["error"] = c.Error
		}
		out[i] = entry
	}
	return out
}
