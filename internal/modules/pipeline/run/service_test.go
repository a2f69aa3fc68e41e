package run

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trendjack/core/internal/models"
	"github.com/trendjack/core/internal/modules/pipeline/history"
	"github.com/trendjack/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

func waitForStatus(t *testing.T, svc *Service, runID string, want models.RunStatus) *models.RunModel {
	t.Helper()
	var got *models.RunModel
	require.Eventually(t, func() bool {
		r, err := svc.GetRun(runID)
		if err != nil || r == nil {
			return false
		}
		got = r
		return r.Status == want
	}, 10*time.Second, 20*time.Millisecond)
	return got
}

func startWorkers(t *testing.T, svc *Service) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)
	t.Cleanup(func() {
		cancel()
		done := make(chan struct{})
		go func() {
			svc.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("workers did not stop")
		}
	})
}

func TestEnqueueDeduplicatesActiveRuns(t *testing.T) {
	env := newTestEnv(t, stubAnalyzer{})
	tr := env.storeTranscript(t)

	in := testInput()
	in.Transcript = ""
	in.TranscriptID = tr.ID

	first, task, err := env.svc.Enqueue(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, models.RunPending, first.Status)
	assert.Equal(t, task.ID, first.TaskID)
	assert.Equal(t, TaskTypeRun, task.Type)

	second, task2, err := env.svc.Enqueue(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, task.ID, task2.ID)

	in.URLs = []string{"https://www.nytimes.com/2013/02/04/sports/football/blackout.html"}
	third, _, err := env.svc.Enqueue(context.Background(), in)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestEnqueueRejectsUnknownTranscript(t *testing.T) {
	env := newTestEnv(t, stubAnalyzer{})
	in := testInput()
	in.TranscriptID = "missing"
	_, _, err := env.svc.Enqueue(context.Background(), in)
	assert.ErrorIs(t, err, ErrTranscriptNotFound)
}

func TestWorkerCompletesQueuedRun(t *testing.T) {
	env := newTestEnv(t, stubAnalyzer{})
	tr := env.storeTranscript(t)
	in := testInput()
	in.TranscriptID = tr.ID

	r, task, err := env.svc.Enqueue(context.Background(), in)
	require.NoError(t, err)
	startWorkers(t, env.svc)

	done := waitForStatus(t, env.svc, r.ID, models.RunCompleted)
	assert.Equal(t, "Super Bowl blackout", done.PrimaryTopic)
	assert.InDelta(t, 1.0, done.Progress, 1e-9)
	assert.Equal(t, StepComplete, done.Step)
	require.NotNil(t, done.Profile)
	require.NotNil(t, done.History)
	assert.Equal(t, 8, done.History.Len())
	require.Len(t, done.Outputs, 1)
	assert.Len(t, done.Outputs[0].PostIDs, 3)
	assert.NotNil(t, done.FinishedAt)

	posts, err := env.svc.PostsForRun(r.ID)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	for i, p := range posts {
		assert.Equal(t, i+1, p.Number)
		assert.Equal(t, "Eval pipelines", p.Topic)
		assert.Equal(t, p.Content, p.OriginalContent)
		require.NotNil(t, p.Context)
		assert.Equal(t, 8, p.Context.History.Len())
	}

	assert.Eventually(t, func() bool {
		stored, err := env.tasks.GetByID(context.Background(), task.ID)
		return err == nil && stored != nil && stored.Status == taskqueue.TaskCompleted
	}, 5*time.Second, 20*time.Millisecond)
}

func TestRefineAndResetPost(t *testing.T) {
	env := newTestEnv(t, stubAnalyzer{})
	r, err := env.svc.RunNow(context.Background(), testInput(), nil)
	require.NoError(t, err)
	posts, err := env.svc.PostsForRun(r.ID)
	require.NoError(t, err)
	require.NotEmpty(t, posts)
	id := posts[0].ID
	original := posts[0].Content

	refined, res, err := env.svc.RefinePost(context.Background(), id, "make it shorter")
	require.NoError(t, err)
	assert.Equal(t, "Shorter: blackout, meet evals.", res.RefinedPost)
	assert.Equal(t, "Shorter: blackout, meet evals.", refined.Content)
	assert.Equal(t, original, refined.OriginalContent)
	assert.Equal(t, 1, refined.Refinements)

	h, err := env.svc.PostHistory(id)
	require.NoError(t, err)
	require.Equal(t, 9, h.Len())
	last := h.Steps[h.Len()-1]
	assert.Equal(t, history.StepUserRefinement, last.Name)

	reloaded, err := env.svc.GetPost(id)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.Refinements)
	assert.Len(t, reloaded.Context.Refinements, 1)

	reset, err := env.svc.ResetPost(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, original, reset.Content)
	assert.Zero(t, reset.Refinements)
	assert.Equal(t, 8, reset.Context.History.Len())
}

func TestRefinePostKeepsConcurrentRefinements(t *testing.T) {
	env := newTestEnv(t, stubAnalyzer{})
	r, err := env.svc.RunNow(context.Background(), testInput(), nil)
	require.NoError(t, err)
	posts, err := env.svc.PostsForRun(r.ID)
	require.NoError(t, err)
	id := posts[0].ID

	var g errgroup.Group
	for range 3 {
		g.Go(func() error {
			_, _, err := env.svc.RefinePost(context.Background(), id, "make it shorter")
			return err
		})
	}
	require.NoError(t, g.Wait())

	reloaded, err := env.svc.GetPost(id)
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.Refinements)
	assert.Len(t, reloaded.Context.Refinements, 3)
	assert.Equal(t, 11, reloaded.Context.History.Len())
	assert.Empty(t, env.svc.postLocks.locks)
}

func TestRefinePostErrors(t *testing.T) {
	env := newTestEnv(t, stubAnalyzer{})
	_, _, err := env.svc.RefinePost(context.Background(), "missing", "shorter")
	assert.ErrorIs(t, err, ErrPostNotFound)

	r, err := env.svc.RunNow(context.Background(), testInput(), nil)
	require.NoError(t, err)
	posts, err := env.svc.PostsForRun(r.ID)
	require.NoError(t, err)
	_, _, err = env.svc.RefinePost(context.Background(), posts[0].ID, "   ")
	assert.Error(t, err)
}

func TestRefinePostRebuildsMissingContext(t *testing.T) {
	env := newTestEnv(t, stubAnalyzer{})
	r, err := env.svc.RunNow(context.Background(), testInput(), nil)
	require.NoError(t, err)

	post := &models.PostModel{
		RunID:           r.ID,
		Topic:           "Eval pipelines",
		Number:          9,
		Approach:        "Personal Story",
		Content:         "edited by hand",
		OriginalContent: "as generated",
	}
	require.NoError(t, env.svc.db.Create(post).Error)

	h, err := env.svc.PostHistory(post.ID)
	require.NoError(t, err)
	assert.Zero(t, h.Len())

	reset, err := env.svc.ResetPost(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, "as generated", reset.Content)
	assert.Equal(t, "Super Bowl blackout", reset.Context.TrendingTopic)
}

func TestRunNowFailure(t *testing.T) {
	env := newTestEnv(t, stubAnalyzer{})
	env.svc.pipeline = New(Options{Client: newFake("Role: Communications analyst"), Analyzer: stubAnalyzer{}, Config: testPipelineConfig()})

	r, err := env.svc.RunNow(context.Background(), testInput(), nil)
	require.Error(t, err)
	require.NotNil(t, r)
	assert.Equal(t, models.RunFailed, r.Status)
	assert.Contains(t, r.Error, "voice profile")
}

func TestRunNowValidates(t *testing.T) {
	env := newTestEnv(t, stubAnalyzer{})
	in := testInput()
	in.URLs = nil
	_, err := env.svc.RunNow(context.Background(), in, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCancelPendingRun(t *testing.T) {
	env := newTestEnv(t, stubAnalyzer{})
	tr := env.storeTranscript(t)
	in := testInput()
	in.TranscriptID = tr.ID

	r, task, err := env.svc.Enqueue(context.Background(), in)
	require.NoError(t, err)
	require.NoError(t, env.svc.Cancel(context.Background(), r.ID))

	stored, err := env.svc.GetRun(r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunCancelled, stored.Status)

	tk, err := env.tasks.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, taskqueue.TaskCancelled, tk.Status)

	assert.ErrorIs(t, env.svc.Cancel(context.Background(), r.ID), ErrRunFinished)
	assert.ErrorIs(t, env.svc.Cancel(context.Background(), "missing"), ErrRunNotFound)

	// the queued job finds the run already finished
	startWorkers(t, env.svc)
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, env.fake.Count("Role: Communications analyst"))
}

func TestCancelDuringRunWins(t *testing.T) {
	env := newTestEnv(t, stubAnalyzer{})
	var once sync.Once
	r, err := env.svc.RunNow(context.Background(), testInput(), func(Event) {
		// stands in for a Cancel that lands while the pipeline is busy
		once.Do(func() {
			env.svc.db.Model(&models.RunModel{}).
				Where("status = ?", models.RunRunning).
				Update("status", models.RunCancelled)
		})
	})
	require.Error(t, err)
	require.NotNil(t, r)
	assert.Equal(t, models.RunCancelled, r.Status)

	posts, err := env.svc.PostsForRun(r.ID)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestProgressWriteFailureIsLogged(t *testing.T) {
	env := newTestEnv(t, stubAnalyzer{})
	core, logs := observer.New(zap.WarnLevel)
	env.svc.logger = zap.New(core)

	errDisk := errors.New("disk full")
	require.NoError(t, env.svc.db.Callback().Update().Before("gorm:update").Register("fail_progress", func(tx *gorm.DB) {
		if fields, ok := tx.Statement.Dest.(map[string]interface{}); ok {
			if _, ok := fields["progress"]; ok {
				_ = tx.AddError(errDisk)
			}
		}
	}))

	r, err := env.svc.RunNow(context.Background(), testInput(), nil)
	require.NoError(t, err)
	assert.Equal(t, models.RunCompleted, r.Status)

	failed := logs.FilterMessage("record run progress failed").All()
	require.NotEmpty(t, failed)
	assert.Equal(t, r.ID, failed[0].ContextMap()["run"])
	assert.Equal(t, errDisk.Error(), failed[0].ContextMap()["error"])
}

func TestStartRequeuesInterruptedRuns(t *testing.T) {
	env := newTestEnv(t, stubAnalyzer{})
	tr := env.storeTranscript(t)
	in := testInput()
	in.TranscriptID = tr.ID

	r := newRunModel("interrupted-run", in)
	r.Status = models.RunRunning
	require.NoError(t, env.svc.db.Create(r).Error)

	startWorkers(t, env.svc)
	done := waitForStatus(t, env.svc, r.ID, models.RunCompleted)
	assert.NotEmpty(t, done.Outputs)
}

func TestRedispatchRetriesCancelledRun(t *testing.T) {
	env := newTestEnv(t, stubAnalyzer{})
	tr := env.storeTranscript(t)
	in := testInput()
	in.TranscriptID = tr.ID

	r, task, err := env.svc.Enqueue(context.Background(), in)
	require.NoError(t, err)
	require.NoError(t, env.svc.Cancel(context.Background(), r.ID))

	retried, err := env.svc.Redispatch(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, taskqueue.TaskPending, retried.Status)

	startWorkers(t, env.svc)
	waitForStatus(t, env.svc, r.ID, models.RunCompleted)
}

func TestDeleteRunsBefore(t *testing.T) {
	env := newTestEnv(t, stubAnalyzer{})
	r, err := env.svc.RunNow(context.Background(), testInput(), nil)
	require.NoError(t, err)

	n, err := env.svc.DeleteRunsBefore(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = env.svc.DeleteRunsBefore(time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	gone, err := env.svc.GetRun(r.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	posts, err := env.svc.PostsForRun(r.ID)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestDeleteRun(t *testing.T) {
	env := newTestEnv(t, stubAnalyzer{})
	r, err := env.svc.RunNow(context.Background(), testInput(), nil)
	require.NoError(t, err)

	require.NoError(t, env.svc.DeleteRun(context.Background(), r.ID))
	assert.ErrorIs(t, env.svc.DeleteRun(context.Background(), r.ID), ErrRunNotFound)
}

func TestExtractTopicsReplacesStoredTopics(t *testing.T) {
	env := newTestEnv(t, stubAnalyzer{})
	tr := env.storeTranscript(t)

	rows, ex, err := env.svc.ExtractTopics(context.Background(), tr.ID, "Sell eval pipelines")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.False(t, ex.Mock)

	aligned, err := env.svc.ListTopics(tr.ID, true)
	require.NoError(t, err)
	require.Len(t, aligned, 1)
	assert.Equal(t, "Eval pipelines", aligned[0].Topic)
	assert.Equal(t, "Evals as uptime", aligned[0].LinkedInAngle)

	sel := Selections(aligned)
	assert.Equal(t, "Eval pipelines", sel[0].Topic)

	_, _, err = env.svc.ExtractTopics(context.Background(), tr.ID, "")
	require.NoError(t, err)
	all, err := env.svc.ListTopics(tr.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, _, err = env.svc.ExtractTopics(context.Background(), "missing", "")
	assert.ErrorIs(t, err, ErrTranscriptNotFound)
}

func TestDeleteTranscript(t *testing.T) {
	env := newTestEnv(t, stubAnalyzer{})
	tr := env.storeTranscript(t)
	_, _, err := env.svc.ExtractTopics(context.Background(), tr.ID, "")
	require.NoError(t, err)

	require.NoError(t, env.svc.DeleteTranscript(tr.ID))
	topics, err := env.svc.ListTopics(tr.ID, false)
	require.NoError(t, err)
	assert.Empty(t, topics)
	assert.ErrorIs(t, env.svc.DeleteTranscript(tr.ID), ErrTranscriptNotFound)
}

func TestReport(t *testing.T) {
	env := newTestEnv(t, stubAnalyzer{})
	r, err := env.svc.RunNow(context.Background(), testInput(), nil)
	require.NoError(t, err)

	rep := Report(r)
	assert.Equal(t, "Trendjacking Results: Super Bowl blackout", rep.Title)
	require.Len(t, rep.Topics, 1)
	assert.Len(t, rep.Topics[0].Posts, 3)
}
