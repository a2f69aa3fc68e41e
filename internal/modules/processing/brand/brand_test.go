package brand

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trendjack/core/internal/modules/processing/llm/llmtest"
)

func TestCategorize(t *testing.T) {
	tests := map[string]string{
		"Breaking: cloud outage":            CategoryRealTime,
		"New dance challenge":               CategoryViral,
		"Taylor Swift engagement":           CategoryCultural,
		"Met Gala outfit":                   CategoryFashion,
		"Little Miss template":              CategoryMemeFormat,
		"Cracker Barrel logo backlash":      CategoryControversy,
		"An audio clip spreading on tiktok": CategoryPlatform,
		"Quarterly earnings":                CategoryViral,
	}
	for topic, want := range tests {
		assert.Equal(t, want, Categorize(topic), topic)
	}
	assert.InDelta(t, 0.95, ResponseLikelihood(CategoryRealTime), 1e-9)
	assert.InDelta(t, 0.7, ResponseLikelihood("unknown"), 1e-9)
}

func TestSimulateWithModel(t *testing.T) {
	fake := llmtest.New()
	fake.Fallback = `{"generated_post":"We saw this coming","tactic_used":"wordplay","reasoning":"fits"}`

	s := NewSimulator(fake, 0, 42, nil)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	resp, err := s.Simulate(context.Background(), "Viral dance challenge", "")
	require.NoError(t, err)

	assert.Equal(t, CategoryViral, resp.Category)
	assert.Contains(t, resp.TrendContext, "viral dance challenge is spreading rapidly")
	require.Len(t, resp.Posts, 9)
	assert.InDelta(t, 1.0, resp.Summary.FewShotRate, 1e-9)
	assert.Equal(t, "high", resp.Competitive.Level)
	assert.Equal(t, "wordplay", resp.Competitive.DominantTactic)

	seen := map[string]bool{}
	for _, p := range resp.Posts {
		assert.False(t, seen[p.Brand], "brand picked twice: %s", p.Brand)
		seen[p.Brand] = true
		assert.Equal(t, fixed, p.Timestamp)
		assert.GreaterOrEqual(t, p.EngagementTotal, 350)
		assert.LessOrEqual(t, p.EngagementTotal, 6000)
		assert.Equal(t, int(float64(p.EngagementTotal)*0.6), p.Engagement.Likes)
	}
	assert.Equal(t, 9, fake.Count("BRAND_NAME:"))
}

func TestSimulateSameSeedSameBrands(t *testing.T) {
	a, err := NewSimulator(nil, 4, 7, nil).Simulate(context.Background(), "Breaking news", "ctx")
	require.NoError(t, err)
	b, err := NewSimulator(nil, 4, 7, nil).Simulate(context.Background(), "Breaking news", "ctx")
	require.NoError(t, err)

	require.Len(t, a.Posts, 4)
	for i := range a.Posts {
		assert.Equal(t, a.Posts[i].Brand, b.Posts[i].Brand)
		assert.Equal(t, MethodFallback, a.Posts[i].Method)
	}
	assert.Equal(t, "ctx", a.TrendContext)
	assert.Equal(t, "medium", a.Competitive.Level)
}

func TestSimulateFallsBackPerBrand(t *testing.T) {
	fake := llmtest.New().Fail("BRAND_NAME: Panera", errors.New("quota"))
	fake.Fallback = `{"generated_post":"ok","tactic_used":"roasting"}`

	resp, err := NewSimulator(fake, 0, 1, nil).Simulate(context.Background(), "viral meme", "")
	require.NoError(t, err)
	for _, p := range resp.Posts {
		if p.Brand == "Panera" {
			assert.Equal(t, MethodFallback, p.Method)
			assert.Equal(t, "This viral meme news has us feeling all kinds of ways", p.Content)
			assert.Equal(t, "food_puns", p.TacticUsed)
			assert.Len(t, p.ExamplesUsed, 2)
		} else {
			assert.Equal(t, MethodFewShot, p.Method)
		}
	}
}

func TestFallbackContent(t *testing.T) {
	spk, _ := Lookup("SourPatchKids")
	assert.Equal(t, "OKAY BUT AI AGENTS THO!!!!", fallbackContent(spk, "ai agents"))
	nike, _ := Lookup("Nike")
	assert.Equal(t, "Nike is here for this ai agents energy", fallbackContent(nike, "ai agents"))
}

func TestUsername(t *testing.T) {
	assert.Equal(t, "arbys", username("Arby's"))
	assert.Equal(t, "dennys", username("Denny's"))
}

func postsWithTactics(tactics ...string) []Post {
	out := make([]Post, len(tactics))
	for i, t := range tactics {
		out[i] = Post{TacticUsed: t, Username: "brand", Content: "c", EngagementTotal: i}
	}
	return out
}

func TestLandscape(t *testing.T) {
	low := Landscape(Responses{Posts: postsWithTactics("educational_content")}, "video_content")
	assert.Equal(t, "Low", low.CompetitionLevel)
	assert.Equal(t, "good", low.OpportunityWindow)
	assert.Equal(t, "behind_scenes", low.Strategy.PrimaryTactic)
	assert.Equal(t, []string{"customer_stories", "product_demo"}, low.Strategy.AlternativeTactics)
	assert.Equal(t, "Video response or reaction content", low.Strategy.ContentFormat)
	assert.Equal(t, "low", low.Strategy.RiskLevel)
	assert.Contains(t, low.Strategy.Timing, "first mover")

	crowded := Landscape(Responses{Posts: postsWithTactics(
		"educational_content", "behind_scenes", "customer_stories", "product_demo",
		"industry_insight", "contrarian_take", "a", "b", "c")}, "web_page")
	assert.Equal(t, "Very High", crowded.CompetitionLevel)
	assert.Equal(t, "narrow", crowded.OpportunityWindow)
	assert.Equal(t, "contrarian_take", crowded.Strategy.PrimaryTactic)
	assert.False(t, crowded.Strategy.DifferentiationOpportunity)
	assert.Equal(t, "medium", crowded.Strategy.RiskLevel)
	assert.Equal(t, "Text-based thought leadership post", crowded.Strategy.ContentFormat)
}

func TestExamples(t *testing.T) {
	assert.Equal(t, FallbackExamples(), Examples(nil, 5))
	assert.Equal(t, FallbackExamples(), Examples(&Responses{}, 5))

	resp := &Responses{Posts: postsWithTactics("a", "b", "c")}
	ex := Examples(resp, 2)
	require.Len(t, ex, 2)
	assert.Equal(t, "b", ex[1].Tactic)
	assert.Len(t, Examples(resp, 10), 3)
}
