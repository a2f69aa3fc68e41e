package brand

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/trendjack/core/internal/modules/processing/llm"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Generation methods.
const (
	MethodFewShot  = "few_shot"
	MethodFallback = "fallback"
)

type Engagement struct {
	Likes    int `json:"likes"`
	Retweets int `json:"retweets"`
	Replies  int `json:"replies"`
}

// Post is one simulated brand reaction on Twitter.
type Post struct {
	Brand           string     `json:"brand_name"`
	Username        string     `json:"username"`
	Content         string     `json:"content"`
	TacticUsed      string     `json:"tactic_used"`
	Reasoning       string     `json:"generation_reasoning"`
	Personality     string     `json:"brand_personality"`
	ExamplesUsed    []string   `json:"real_examples_reference"`
	Method          string     `json:"generation_method"`
	Engagement      Engagement `json:"engagement"`
	EngagementTotal int        `json:"engagement_total"`
	Timestamp       time.Time  `json:"timestamp"`
}

type Competitive struct {
	Level             string   `json:"competition_level"`
	TotalResponses    int      `json:"total_responses"`
	UniqueTactics     []string `json:"unique_tactics"`
	DominantTactic    string   `json:"dominant_tactic,omitempty"`
	TacticalDiversity float64  `json:"tactical_diversity"`
}

type ResponseSummary struct {
	TotalPosts          int     `json:"total_posts_found"`
	HighEngagementPosts int     `json:"high_engagement_posts"`
	FewShotRate         float64 `json:"few_shot_success_rate"`
}

// Responses is the outcome of one simulation.
type Responses struct {
	TrendingTopic string          `json:"trending_topic"`
	TrendContext  string          `json:"trend_context"`
	Category      string          `json:"trend_category"`
	Likelihood    float64         `json:"response_likelihood"`
	Posts         []Post          `json:"posts"`
	Summary       ResponseSummary `json:"summary"`
	Competitive   Competitive     `json:"competitive_analysis"`
}

// Simulator generates brand posts from the built-in profiles.
type Simulator struct {
	client      llm.Client
	maxBrands   int
	concurrency int
	logger      *zap.Logger
	now         func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSimulator creates a Simulator. maxBrands <= 0 means no cap; a nil
// client uses template posts for every brand.
func NewSimulator(client llm.Client, maxBrands int, seed int64, logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		client:      client,
		maxBrands:   maxBrands,
		concurrency: 3,
		logger:      logger.Named("Brand"),
		now:         time.Now,
		rnd:         rand.New(rand.NewSource(seed)),
	}
}

type brandPostOutput struct {
	Reasoning     llm.FlexString `json:"reasoning"`
	GeneratedPost llm.FlexString `json:"generated_post"`
	TacticUsed    llm.FlexString `json:"tactic_used"`
}

// Simulate picks the brands likely to react to topic and writes their posts.
func (s *Simulator) Simulate(ctx context.Context, topic, trendContext string) (Responses, error) {
	category := Categorize(topic)
	likelihood := ResponseLikelihood(category)
	if strings.TrimSpace(trendContext) == "" {
		trendContext = DescribeTrend(topic, category)
	}

	count := int(float64(len(profiles)) * likelihood)
	if s.maxBrands > 0 && count > s.maxBrands {
		count = s.maxBrands
	}
	selected := s.pick(count)

	posts := make([]Post, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, p := range selected {
		i, p := i, p
		g.Go(func() error {
			posts[i] = s.generate(gctx, p, topic, trendContext)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return Responses{}, err
	}

	now := s.now()
	few := 0
	high := 0
	for i := range posts {
		posts[i].Timestamp = now
		s.engage(&posts[i])
		if posts[i].Method == MethodFewShot {
			few++
		}
		if posts[i].EngagementTotal > 5000 {
			high++
		}
	}

	resp := Responses{
		TrendingTopic: topic,
		TrendContext:  trendContext,
		Category:      category,
		Likelihood:    likelihood,
		Posts:         posts,
		Summary: ResponseSummary{
			TotalPosts:          len(posts),
			HighEngagementPosts: high,
		},
		Competitive: competitive(posts),
	}
	if len(posts) > 0 {
		resp.Summary.FewShotRate = float64(few) / float64(len(posts))
	}
	s.logger.Info("brand responses simulated",
		zap.String("category", category),
		zap.Int("brands", len(posts)),
		zap.Int("few_shot", few))
	return resp, nil
}

func (s *Simulator) pick(n int) []Profile {
	s.mu.Lock()
	order := s.rnd.Perm(len(profiles))
	s.mu.Unlock()
	if n > len(order) {
		n = len(order)
	}
	out := make([]Profile, 0, n)
	for _, idx := range order[:n] {
		out = append(out, profiles[idx])
	}
	return out
}

func (s *Simulator) generate(ctx context.Context, p Profile, topic, trendContext string) Post {
	if s.client != nil {
		var out brandPostOutput
		err := llm.CompleteJSON(ctx, s.client, llm.Request{
			System: brandPostSystemPrompt,
			Prompt: buildBrandPostPrompt(p, topic, trendContext),
		}, &out)
		if err == nil && out.GeneratedPost.String() != "" {
			tactic := out.TacticUsed.String()
			if tactic == "" {
				tactic = p.Tactics[0]
			}
			return newPost(p, out.GeneratedPost.String(), tactic, out.Reasoning.String(), p.Examples, MethodFewShot)
		}
		if err == nil {
			err = llm.ErrEmptyResponse
		}
		s.logger.Warn("brand post generation failed, using template", zap.String("brand", p.Name), zap.Error(err))
	}
	return newPost(p, fallbackContent(p, topic), p.Tactics[0], "Fallback generation, model unavailable", p.Examples[:2], MethodFallback)
}

func newPost(p Profile, content, tactic, reasoning string, examples []string, method string) Post {
	return Post{
		Brand:        p.Name,
		Username:     username(p.Name),
		Content:      content,
		TacticUsed:   tactic,
		Reasoning:    reasoning,
		Personality:  p.Personality,
		ExamplesUsed: append([]string(nil), examples...),
		Method:       method,
	}
}

func fallbackContent(p Profile, topic string) string {
	personality := strings.ToLower(p.Personality)
	switch {
	case strings.Contains(personality, "sassy"):
		return "Hot take: " + topic + " hits different"
	case strings.Contains(personality, "punny"):
		return "This " + topic + " news has us feeling all kinds of ways"
	case strings.Contains(personality, "enthusiastic"):
		return "OKAY BUT " + strings.ToUpper(topic) + " THO!!!!"
	default:
		return p.Name + " is here for this " + topic + " energy"
	}
}

// engage fills engagement as base(500..2000) x personality x jitter(0.7..1.5).
func (s *Simulator) engage(p *Post) {
	s.mu.Lock()
	base := 500 + s.rnd.Intn(1501)
	jitter := 0.7 + s.rnd.Float64()*0.8
	s.mu.Unlock()

	multiplier, ok := engagementMultipliers[p.Personality]
	if !ok {
		multiplier = 1.0
	}
	total := int(float64(base) * multiplier * jitter)
	p.EngagementTotal = total
	p.Engagement = Engagement{
		Likes:    int(float64(total) * 0.6),
		Retweets: int(float64(total) * 0.25),
		Replies:  int(float64(total) * 0.15),
	}
}

func competitive(posts []Post) Competitive {
	if len(posts) == 0 {
		return Competitive{Level: "none", UniqueTactics: []string{}}
	}
	counts := map[string]int{}
	unique := []string{}
	for _, p := range posts {
		if counts[p.TacticUsed] == 0 {
			unique = append(unique, p.TacticUsed)
		}
		counts[p.TacticUsed]++
	}
	dominant := unique[0]
	for _, t := range unique {
		if counts[t] > counts[dominant] {
			dominant = t
		}
	}

	level := "low"
	switch n := len(posts); {
	case n > 6:
		level = "high"
	case n > 3:
		level = "medium"
	}
	sort.Strings(unique)
	return Competitive{
		Level:             level,
		TotalResponses:    len(posts),
		UniqueTactics:     unique,
		DominantTactic:    dominant,
		TacticalDiversity: float64(len(unique)) / float64(len(posts)),
	}
}

func username(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "")
	return strings.ReplaceAll(name, "'", "")
}
