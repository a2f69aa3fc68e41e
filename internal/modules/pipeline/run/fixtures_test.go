package run

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"github.com/trendjack/core/internal/config"
	"github.com/trendjack/core/internal/database"
	"github.com/trendjack/core/internal/models"
	"github.com/trendjack/core/internal/modules/processing/llm/llmtest"
	"github.com/trendjack/core/internal/modules/processing/refine"
	"github.com/trendjack/core/internal/modules/processing/transcript"
	"github.com/trendjack/core/internal/modules/processing/trend"
	redisc "github.com/trendjack/core/internal/pkg/redis"
	"github.com/trendjack/core/internal/pkg/taskqueue"
	"gorm.io/gorm/logger"
)

const (
	profileReply  = `{"communication_style":"direct","vocabulary_preferences":["evals","pipelines"],"sentence_structure":"short","personality_traits":["pragmatic"],"professional_tone_markers":["data"],"speaking_patterns":["here's the thing"],"expertise_demonstration":"war stories","engagement_approach":"questions","voice_analysis_reasoning":"engineer voice"}`
	hooksReply    = `{"hook_1":"Nobody talks about the blackout lesson...","hook_2":"I watched the lights go out and thought of our evals...","hook_3":"Everybody wants uptime, but...","reasoning":"three patterns"}`
	approachReply = `{"posts":[{"name":"Question/Discussion","content":"Nobody talks about the blackout lesson... What breaks your pipeline?","hashtags":"#AI #Evals"},{"name":"Personal Story","content":"I watched the lights go out and thought of our evals...","hashtags":["#Story","#AI"]},{"name":"Industry Analysis","content":"Everybody wants uptime, but...\n- monitor\n- test\n- ship","hashtags":"#Ops"}],"reasoning":"ok"}`
	adaptReply    = `{"voice_adapted_post":"Here's the thing: the blackout was an eval failure.","voice_changes_made":["shorter"],"trendjacking_preserved":"kept blackout","viral_hook_preserved":"kept","authenticity_score":0.85,"professionalism_maintained":true,"adaptation_reasoning":"voice"}`
	conciseReply  = `{"wordplay_version":"Lights out, evals in.","direct_statement_version":"Blackouts happen. Evals catch them.","product_connection_version":"Our pipelines never lose power.","clever_twist_version":"Even the Super Bowl needed observability.","best_version_reasoning":"direct wins","all_hashtag_suggestions":["#AI","#SuperBowl"],"reasoning":"short"}`
	brandReply    = `{"reasoning":"on brand","generated_post":"You can still dunk in the dark.","tactic_used":"real-time"}`
	refineReply   = `{"refined_post":"Shorter: blackout, meet evals.","changes_made":["cut length"],"preserved_elements":["hook"],"refinement_reasoning":"asked for shorter","context_references_used":["voice profile"]}`
	topicsReply   = `{"reasoning":"two themes","topics":[{"Eval pipelines":"Testing LLM systems"},{"Team lunches":"Office culture"}],"evidence":{"Eval pipelines":["we test every prompt"]}}`
)

// newFake answers every stage. Prompts containing one of failing return an
// error instead.
func newFake(failing ...string) *llmtest.Fake {
	f := llmtest.New()
	for _, match := range failing {
		f.Fail(match, errors.New("model unavailable"))
	}
	return f.
		On("Role: Communications analyst", profileReply).
		On("Role: Viral copywriter", hooksReply).
		On("Role: LinkedIn content strategist", approachReply).
		On("Role: LinkedIn ghostwriter", adaptReply).
		On("Role: Brand social media writer", conciseReply).
		On("Role: Social media manager", brandReply).
		On("Role: LinkedIn post editor", refineReply).
		On("TOPIC: Eval pipelines", `{"aligns_with_goal":true,"alignment_reason":"core","linkedin_angle":"Evals as uptime","confidence":0.9,"reasoning":"fits"}`).
		On("TOPIC: Team lunches", `{"aligns_with_goal":false,"alignment_reason":"off goal","confidence":0.2}`).
		On("Role: B2B content strategist", topicsReply)
}

type stubAnalyzer struct {
	err error
}

func (s stubAnalyzer) AnalyzeURLs(ctx context.Context, urls []string, _ string) ([]trend.ExtractedContent, error) {
	if s.err != nil {
		return nil, s.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]trend.ExtractedContent, len(urls))
	for i, u := range urls {
		out[i] = trend.ExtractedContent{
			URL:           u,
			Success:       true,
			ContentType:   trend.Classify(u).ContentType,
			TextContent:   "The lights went out during the Super Bowl",
			KeyPhrases:    []string{"super bowl", "blackout"},
			ViralElements: []string{"content_high"},
			BrandScore:    0.8,
		}
	}
	return out, nil
}

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		CompanyType:      config.DefaultCompanyType,
		PromotionalGoal:  config.DefaultPromotionalGoal,
		BrandPersonality: config.DefaultBrandPersonality,
		MaxURLs:          5,
		MaxTopics:        3,
		AutoSelect:       2,
		TopicConcurrency: 2,
		Workers:          1,
		BrandExamples:    3,
	}
}

func testInput() Input {
	return Input{
		Transcript:       "We test every prompt. Our eval pipelines catch regressions before customers do.",
		CompanyType:      "AI consultancy",
		Goal:             "Sell eval pipelines",
		BrandPersonality: "Direct",
		TrendContext:     "Super Bowl blackout",
		URLs:             []string{"https://www.bbc.com/news/blackout"},
		Topics:           []models.TopicSelection{{Topic: "Eval pipelines", Explanation: "Testing LLM systems", LinkedInAngle: "Evals as uptime"}},
	}
}

type testEnv struct {
	svc   *Service
	fake  *llmtest.Fake
	tasks *taskqueue.Service
	rc    *redisc.Client
}

func newTestEnv(t *testing.T, analyzer TrendAnalyzer) *testEnv {
	t.Helper()
	db, err := database.Open(config.DriverSQLite, filepath.Join(t.TempDir(), "run.db"), logger.Silent)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	mr := miniredis.RunT(t)
	rc, err := redisc.Connect("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })

	fake := newFake()
	cfg := testPipelineConfig()
	tasks := taskqueue.NewService(rc)
	svc := NewService(Deps{
		DB:        db,
		Tasks:     tasks,
		Redis:     rc,
		Pipeline:  New(Options{Client: fake, Analyzer: analyzer, Config: cfg, Seed: 7}),
		Extractor: transcript.NewExtractor(fake, 2, nil),
		Refiner:   refine.NewRefiner(fake, nil),
		Config:    cfg,
	})
	return &testEnv{svc: svc, fake: fake, tasks: tasks, rc: rc}
}

func (e *testEnv) storeTranscript(t *testing.T) *models.TranscriptModel {
	t.Helper()
	doc, err := transcript.FromText("call.txt", testInput().Transcript)
	require.NoError(t, err)
	m, err := e.svc.CreateTranscript(context.Background(), doc)
	require.NoError(t, err)
	return m
}
