package transcript

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/trendjack/core/internal/config"
	"github.com/trendjack/core/internal/modules/processing/llm"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const maxCandidateTopics = 10

// Topic is a candidate topic after goal alignment review.
type Topic struct {
	Topic           string   `json:"topic"`
	Explanation     string   `json:"explanation"`
	AlignsWithGoal  bool     `json:"aligns_with_goal"`
	AlignmentReason string   `json:"alignment_reason"`
	LinkedInAngle   string   `json:"linkedin_angle"`
	Confidence      float64  `json:"confidence"`
	Reasoning       string   `json:"reasoning"`
	Evidence        []string `json:"evidence_used"`
}

// Extraction is the result of a transcript analysis.
type Extraction struct {
	Goal      string        `json:"goal"`
	Reasoning string        `json:"extraction_reasoning"`
	Topics    []Topic       `json:"evaluated_topics"`
	Mock      bool          `json:"mock,omitempty"`
	Took      time.Duration `json:"took"`
}

// Aligned returns aligned topics by descending confidence.
func (e Extraction) Aligned() []Topic {
	out := make([]Topic, 0, len(e.Topics))
	for _, t := range e.Topics {
		if t.AlignsWithGoal {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}

// AutoSelect returns the first n aligned topics.
func (e Extraction) AutoSelect(n int) []Topic {
	aligned := e.Aligned()
	if n < len(aligned) {
		return aligned[:n]
	}
	return aligned
}

// MockTopics is the demo result used when no model is configured.
func MockTopics() []Topic {
	return []Topic{
		{
			Topic:          "DSPy Framework Implementation",
			Explanation:    "Using structured prompting for production AI systems",
			LinkedInAngle:  "How DSPy transforms prototype AI into enterprise solutions",
			Confidence:     0.85,
			AlignsWithGoal: true,
		},
		{
			Topic:          "AI Engineering Best Practices",
			Explanation:    "Building scalable AI systems with proper observability",
			LinkedInAngle:  "The engineering discipline behind successful AI deployment",
			Confidence:     0.78,
			AlignsWithGoal: true,
		},
	}
}

// Extractor runs topic extraction followed by per-topic alignment review.
type Extractor struct {
	client      llm.Client
	logger      *zap.Logger
	concurrency int
}

// NewExtractor creates an Extractor. A nil client makes every call return
// the mock topics.
func NewExtractor(client llm.Client, concurrency int, logger *zap.Logger) *Extractor {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{client: client, concurrency: concurrency, logger: logger.Named("Transcript")}
}

type extractionOutput struct {
	Reasoning llm.FlexString              `json:"reasoning"`
	Topics    []map[string]llm.FlexString `json:"topics"`
	Evidence  map[string]llm.FlexStrings  `json:"evidence"`
}

type alignmentOutput struct {
	Reasoning       llm.FlexString `json:"reasoning"`
	AlignsWithGoal  llm.FlexBool   `json:"aligns_with_goal"`
	AlignmentReason llm.FlexString `json:"alignment_reason"`
	LinkedInAngle   llm.FlexString `json:"linkedin_angle"`
	Confidence      llm.FlexFloat  `json:"confidence"`
}

// Extract analyses transcript against goal. An empty goal uses the default
// promotional goal.
func (x *Extractor) Extract(ctx context.Context, transcript, goal string) (Extraction, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return Extraction{}, ErrEmptyTranscript
	}
	goal = strings.TrimSpace(goal)
	if goal == "" {
		goal = config.DefaultPromotionalGoal
	}
	if x.client == nil {
		return Extraction{Goal: goal, Topics: MockTopics(), Mock: true}, nil
	}

	started := time.Now()
	var out extractionOutput
	err := llm.CompleteJSON(ctx, x.client, llm.Request{
		System: topicExtractionSystemPrompt,
		Prompt: buildExtractionPrompt(goal, transcript),
	}, &out)
	if err != nil {
		return Extraction{}, fmt.Errorf("extract topics: %w", err)
	}

	candidates := candidatesFrom(out)
	if len(candidates) == 0 {
		return Extraction{}, errors.New("extract topics: model returned no topics")
	}
	x.logger.Info("topics extracted", zap.Int("count", len(candidates)), zap.Duration("took", time.Since(started)))

	topics := make([]Topic, len(candidates))
	failed := make([]bool, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(x.concurrency)
	for i := range candidates {
		i := i
		g.Go(func() error {
			topics[i], failed[i] = x.evaluate(gctx, goal, candidates[i])
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return Extraction{}, err
	}

	evaluated := 0
	for _, f := range failed {
		if !f {
			evaluated++
		}
	}
	if evaluated == 0 {
		return Extraction{}, errors.New("evaluate topics: every alignment review failed")
	}

	return Extraction{
		Goal:      goal,
		Reasoning: out.Reasoning.String(),
		Topics:    topics,
		Took:      time.Since(started),
	}, nil
}

// evaluate reviews one candidate. The bool reports a failed review.
func (x *Extractor) evaluate(ctx context.Context, goal string, candidate Topic) (Topic, bool) {
	var out alignmentOutput
	err := llm.CompleteJSON(ctx, x.client, llm.Request{
		System:   topicAlignmentSystemPrompt,
		Prompt:   buildAlignmentPrompt(goal, candidate.Topic, candidate.Explanation, candidate.Evidence),
		Analysis: true,
	}, &out)
	if err != nil {
		x.logger.Warn("topic alignment failed", zap.String("topic", candidate.Topic), zap.Error(err))
		candidate.AlignsWithGoal = false
		candidate.AlignmentReason = "alignment review failed: " + err.Error()
		return candidate, true
	}
	candidate.AlignsWithGoal = bool(out.AlignsWithGoal)
	candidate.AlignmentReason = out.AlignmentReason.String()
	candidate.LinkedInAngle = out.LinkedInAngle.String()
	candidate.Confidence = out.Confidence.Clamp01()
	candidate.Reasoning = out.Reasoning.String()
	return candidate, false
}

// candidatesFrom flattens the {title: explanation} list and attaches evidence.
func candidatesFrom(out extractionOutput) []Topic {
	candidates := make([]Topic, 0, len(out.Topics))
	seen := make(map[string]struct{}, len(out.Topics))
	for _, entry := range out.Topics {
		title, explanation := topicEntry(entry)
		if title == "" {
			continue
		}
		if _, dup := seen[title]; dup {
			continue
		}
		seen[title] = struct{}{}
		evidence := []string(out.Evidence[title])
		if evidence == nil {
			evidence = []string{}
		}
		candidates = append(candidates, Topic{Topic: title, Explanation: explanation, Evidence: evidence})
		if len(candidates) == maxCandidateTopics {
			break
		}
	}
	return candidates
}

// topicEntry reads either {"<title>": "<explanation>"} or
// {"topic": "...", "explanation": "..."}.
func topicEntry(entry map[string]llm.FlexString) (string, string) {
	if t, ok := entry["topic"]; ok {
		return strings.TrimSpace(t.String()), strings.TrimSpace(entry["explanation"].String())
	}
	keys := make([]string, 0, len(entry))
	for k := range entry {
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return "", ""
	}
	sort.Strings(keys)
	return strings.TrimSpace(keys[0]), strings.TrimSpace(entry[keys[0]].String())
}
