package trend

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trendjack/core/internal/modules/processing/llm/llmtest"
)

type stubScraper struct {
	pages map[string]*Page
}

func (s stubScraper) Scrape(_ context.Context, rawURL string) (*Page, error) {
	if p, ok := s.pages[rawURL]; ok {
		return p, nil
	}
	return nil, errors.New("scrape failed")
}

type stubCapturer struct {
	captures map[string]*Capture
}

func (s stubCapturer) Capture(_ context.Context, rawURL string) (*Capture, error) {
	if c, ok := s.captures[rawURL]; ok {
		return c, nil
	}
	return nil, errors.New("navigation timeout")
}

type memoryStore struct {
	mu   sync.Mutex
	puts map[string][]byte
}

func (m *memoryStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.puts == nil {
		m.puts = map[string][]byte{}
	}
	m.puts[key] = data
	return "https://cdn.example.com/" + key, nil
}

const (
	contentReplyHigh = `{"trending_keywords":"super bowl, blackout, oreo, dunk, ads","viral_potential":"High","brand_angles":"real-time","sentiment_tone":"playful","topic_category":"sports"}`
	visualReply      = `{"viral_elements":"bold text, dark frame, product shot, meme format, caption","brand_opportunity":"Excellent for snack brands","key_message":"timing","trending_relevance":"direct"}`
)

func TestAnalyzeURLs(t *testing.T) {
	fake := llmtest.New().
		On("VISUAL_DESCRIPTION: Screenshot of webpage from https://news.example.com/blackout", visualReply).
		On("https://news.example.com/blackout", contentReplyHigh)
	fake.Fallback = `{"trending_keywords":"","viral_potential":"medium"}`

	store := &memoryStore{}
	a := NewAnalyzer(AnalyzerOptions{
		Scraper: stubScraper{pages: map[string]*Page{
			"https://news.example.com/blackout": {Markdown: "Oreo dunk in the dark\nbody"},
		}},
		Capturer: stubCapturer{captures: map[string]*Capture{
			"https://news.example.com/blackout": {Screenshot: []byte("png"), Title: "Blackout"},
			"https://render-only.example.com":   {Text: "Rendered headline here\nmore"},
		}},
		Client:      fake,
		Store:       store,
		Concurrency: 2,
	})

	urls := []string{"https://news.example.com/blackout", "https://broken.example.com", "https://render-only.example.com"}
	results, err := a.AnalyzeURLs(context.Background(), urls, "Super Bowl blackout")
	require.NoError(t, err)
	require.Len(t, results, 3)

	first := results[0]
	require.True(t, first.Success, first.Error)
	assert.Equal(t, []string{"super bowl", "blackout", "oreo", "dunk", "ads"}, first.KeyPhrases)
	assert.Equal(t, []string{"content_High", "bold text", "dark frame", "product shot", "meme format"}, first.ViralElements)
	assert.InDelta(t, 1.0, first.BrandScore, 1e-9)
	assert.NotEmpty(t, first.ScreenshotKey)
	assert.Equal(t, "https://cdn.example.com/"+first.ScreenshotKey, first.ScreenshotURL)
	assert.Contains(t, first.VisualDescription, "Title: Blackout")

	second := results[1]
	assert.False(t, second.Success)
	assert.Equal(t, ContentError, second.ContentType)
	assert.Equal(t, "no content extracted", second.Error)

	third := results[2]
	require.True(t, third.Success, third.Error)
	assert.Equal(t, "Rendered headline here\nmore", third.TextContent)
	assert.InDelta(t, 0.7, third.BrandScore, 1e-9)
}

func TestAnalyzeURLsAnalysisFailureIsRecorded(t *testing.T) {
	fake := llmtest.New().Fail("URL:", errors.New("model offline"))
	a := NewAnalyzer(AnalyzerOptions{
		Scraper: stubScraper{pages: map[string]*Page{"https://a.example.com": {Markdown: "text"}}},
		Client:  fake,
	})
	results, err := a.AnalyzeURLs(context.Background(), []string{"https://a.example.com"}, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "model offline")
}

func TestAnalyzeURLsWithoutModel(t *testing.T) {
	a := NewAnalyzer(AnalyzerOptions{
		Scraper: stubScraper{pages: map[string]*Page{"https://a.example.com": {Markdown: "text"}}},
	})
	results, err := a.AnalyzeURLs(context.Background(), []string{"https://a.example.com"}, "")
	require.NoError(t, err)
	assert.True(t, results[0].Success)
	assert.InDelta(t, 0.5, results[0].BrandScore, 1e-9)
	assert.Empty(t, results[0].KeyPhrases)
}

func TestAnalyzeURLsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := NewAnalyzer(AnalyzerOptions{Scraper: stubScraper{}})
	_, err := a.AnalyzeURLs(ctx, []string{"https://a.example.com"}, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBrandScore(t *testing.T) {
	assert.InDelta(t, 0.5, brandScore(nil, nil), 1e-9)
	assert.InDelta(t, 0.7, brandScore(&ContentAnalysis{ViralPotential: "Medium"}, nil), 1e-9)
	assert.InDelta(t, 0.8, brandScore(&ContentAnalysis{ViralPotential: "high"}, &VisualAnalysis{BrandOpportunity: "limited"}), 1e-9)
	assert.InDelta(t, 0.7, brandScore(&ContentAnalysis{ViralPotential: "low"}, &VisualAnalysis{BrandOpportunity: "HIGH fit"}), 1e-9)
}
