package run

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trendjack/core/internal/models"
	"github.com/trendjack/core/internal/modules/pipeline/history"
	"go.uber.org/goleak"
)

func TestInputValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
		want   string
	}{
		{"valid", func(*Input) {}, ""},
		{"empty transcript", func(in *Input) { in.Transcript = "  " }, "transcript is empty"},
		{"no urls", func(in *Input) { in.URLs = nil }, "at least one trending URL"},
		{"too many urls", func(in *Input) { in.URLs = []string{"https://a.com", "https://b.com", "https://c.com"} }, "at most 2 URLs"},
		{"bad scheme", func(in *Input) { in.URLs = []string{"ftp://a.com/x"} }, "is not an http(s) URL"},
		{"no company", func(in *Input) { in.CompanyType = "" }, "company type"},
		{"no goal", func(in *Input) { in.Goal = "" }, "promotional goal"},
		{"no personality", func(in *Input) { in.BrandPersonality = "" }, "brand personality"},
		{"blank topics", func(in *Input) { in.Topics = []models.TopicSelection{{Topic: " "}} }, "select at least one"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := testInput()
			tt.mutate(&in)
			in.Normalize()
			err := in.Validate(2)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestPipelineRun(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	fake := newFake()
	p := New(Options{Client: fake, Analyzer: stubAnalyzer{}, Config: testPipelineConfig(), Seed: 1})

	var events []Event
	res, err := p.Run(context.Background(), testInput(), func(ev Event) { events = append(events, ev) })
	require.NoError(t, err)

	assert.Equal(t, "Super Bowl blackout", res.Trend.PrimaryTopic)
	assert.Equal(t, 1, res.Trend.Summary.Successful)
	assert.Equal(t, "direct", res.Profile.CommunicationStyle)
	assert.Nil(t, res.Brands)
	assert.Equal(t, "Nike", res.Examples[0].Brand)

	require.Len(t, res.Topics, 1)
	topic := res.Topics[0]
	assert.Empty(t, topic.Error)
	require.Len(t, topic.Approaches, 3)
	assert.Equal(t, "I watched the lights go out and thought of our evals...", topic.Approaches[1].Hook)
	assert.Equal(t, "#Story #AI", topic.Approaches[1].Hashtags)
	require.Len(t, topic.Posts, 3)
	assert.Equal(t, "Here's the thing: the blackout was an eval failure.", topic.Posts[0].Content)
	assert.InDelta(t, 0.85, topic.Posts[0].AuthenticityScore, 1e-9)
	require.NotNil(t, topic.Concise)
	assert.Len(t, topic.Concise.Variations, 4)

	// trend + hooks + 3 generated + 3 adapted
	assert.Equal(t, 8, res.History.Len())
	require.Len(t, topic.Contexts, 3)
	for i, pc := range topic.Contexts {
		assert.Equal(t, "Super Bowl blackout", pc.TrendingTopic)
		assert.Equal(t, "Eval pipelines", pc.BusinessTopic)
		assert.Equal(t, topic.Approaches[i].Hook, pc.ViralHook)
		assert.Equal(t, topic.Posts[i].Content, pc.CurrentPost)
		assert.Equal(t, 8, pc.History.Len())
		assert.NotSame(t, res.History, pc.History)
	}
	assert.Equal(t, history.StepTrendAnalysis, res.History.Steps[0].Name)
	assert.Equal(t, history.StepViralHooks, res.History.Steps[1].Name)

	steps := make([]string, len(events))
	for i, ev := range events {
		steps[i] = ev.Step
		assert.Equal(t, 4, ev.Total)
	}
	assert.Equal(t, []string{StepTrend, StepVoice, StepGeneration, StepAdaptation, StepComplete}, steps)
	assert.Equal(t, 2, events[2].Current)
	assert.Equal(t, "Eval pipelines", events[2].Topic)
	assert.InDelta(t, 1.0, events[len(events)-1].Progress, 1e-9)
}

func TestPipelineRunBrandSimulation(t *testing.T) {
	cfg := testPipelineConfig()
	cfg.BrandSimulation = true
	p := New(Options{Client: newFake(), Analyzer: stubAnalyzer{}, Config: cfg, Seed: 3})

	res, err := p.Run(context.Background(), testInput(), nil)
	require.NoError(t, err)
	require.NotNil(t, res.Brands)
	assert.Equal(t, "Super Bowl blackout", res.Brands.TrendingTopic)
	assert.NotEmpty(t, res.Examples)
}

func TestPipelineRunVoiceProfileFailureAborts(t *testing.T) {
	fake := newFake("Role: Communications analyst")
	p := New(Options{Client: fake, Analyzer: stubAnalyzer{}, Config: testPipelineConfig()})

	_, err := p.Run(context.Background(), testInput(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extract voice profile")
	assert.Zero(t, fake.Count("Role: LinkedIn content strategist"))
}

func TestPipelineRunRecordsConciseFailure(t *testing.T) {
	fake := newFake("Role: Brand social media writer")
	p := New(Options{Client: fake, Analyzer: stubAnalyzer{}, Config: testPipelineConfig()})

	res, err := p.Run(context.Background(), testInput(), nil)
	require.NoError(t, err)
	topic := res.Topics[0]
	assert.Nil(t, topic.Concise)
	assert.Contains(t, topic.Error, "viral posts")
	assert.Len(t, topic.Posts, 3)
	assert.Len(t, topic.Contexts, 3)
}

func TestPipelineRunFallsBackWhenGenerationFails(t *testing.T) {
	fake := newFake("Role: Viral copywriter")
	p := New(Options{Client: fake, Analyzer: stubAnalyzer{}, Config: testPipelineConfig()})

	res, err := p.Run(context.Background(), testInput(), nil)
	require.NoError(t, err)
	topic := res.Topics[0]
	require.Len(t, topic.Approaches, 3)
	assert.True(t, topic.Approaches[0].Fallback)
	assert.Equal(t, "Thought Leadership", topic.Approaches[0].Name)
	// no hook step, 3 generated + 3 adapted after the trend step
	assert.Equal(t, 7, res.History.Len())
}

func TestPipelineRunCancelled(t *testing.T) {
	p := New(Options{Client: newFake(), Analyzer: stubAnalyzer{}, Config: testPipelineConfig()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, testInput(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipelineRunTrendError(t *testing.T) {
	boom := errors.New("browser crashed")
	p := New(Options{Client: newFake(), Analyzer: stubAnalyzer{err: boom}, Config: testPipelineConfig()})

	_, err := p.Run(context.Background(), testInput(), nil)
	assert.ErrorIs(t, err, boom)
}
