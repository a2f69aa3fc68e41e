package trend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	contents := []ExtractedContent{
		{Success: true, TextContent: "a", KeyPhrases: []string{"ai", "agents", "evals", "ignored"}, ViralElements: []string{"content_high", "meme"}, BrandScore: 0.8},
		{Success: true, TextContent: "b", KeyPhrases: []string{"agents", "ops"}, ViralElements: []string{"meme"}, BrandScore: 0.6},
		{Success: true, KeyPhrases: []string{"capture-only"}, BrandScore: 0.9},
		{Success: false, Error: "boom"},
	}
	s := Summarize(contents)
	assert.Equal(t, 3, s.Successful)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, []string{"ai", "agents", "evals", "ops", "capture-only"}, s.TrendingThemes)
	assert.Equal(t, []string{"content_high", "meme"}, s.ViralElements)
	assert.InDelta(t, 0.7, s.AverageBrandScore, 1e-9)
	assert.Equal(t, 1, s.HighOpportunityURL)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, 0, s.Total)
	assert.InDelta(t, 0.5, s.AverageBrandScore, 1e-9)
	assert.NotNil(t, s.TrendingThemes)
}

func TestPrimaryTopic(t *testing.T) {
	urls := []string{"https://knowyourmeme.com/memes/x"}

	assert.Equal(t, "Taylor Swift engagement", PrimaryTopic(nil, "  Taylor Swift engagement ", urls))

	withPhrases := []ExtractedContent{
		{Success: false, KeyPhrases: []string{"skip"}},
		{Success: true, KeyPhrases: []string{"a", "b", "c", "d", "e"}},
	}
	assert.Equal(t, "a, b, c, d", PrimaryTopic(withPhrases, "", urls))

	withText := []ExtractedContent{{Success: true, TextContent: "short\nThe headline that matters\nrest"}}
	assert.Equal(t, "The headline that matters", PrimaryTopic(withText, "", urls))

	assert.Equal(t, "Viral internet meme gaining mainstream attention", PrimaryTopic(nil, "", urls))
	assert.Equal(t, "Trending topic analysis", PrimaryTopic(nil, "", nil))
}

func TestNewAnalysis(t *testing.T) {
	a := NewAnalysis([]ExtractedContent{{Success: true, KeyPhrases: []string{"x"}}}, "", []string{"https://e.com"})
	assert.Equal(t, "x", a.PrimaryTopic)
	assert.Equal(t, 1, a.Summary.Successful)
}
