package run

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/trendjack/core/internal/config"
	"github.com/trendjack/core/internal/models"
	"github.com/trendjack/core/internal/modules/processing/refine"
	"github.com/trendjack/core/internal/modules/processing/transcript"
	"github.com/trendjack/core/internal/pkg/pagination"
	redisc "github.com/trendjack/core/internal/pkg/redis"
	"github.com/trendjack/core/internal/pkg/response"
	"github.com/trendjack/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TaskTypeRun is the task queue type of a generation run.
const TaskTypeRun = "pipeline:run"

const jobBuffer = 64

var (
	ErrRunNotFound        = errors.New("run not found")
	ErrPostNotFound       = errors.New("post not found")
	ErrTranscriptNotFound = errors.New("transcript not found")
	ErrRunFinished        = errors.New("run has already finished")

	errRunSuperseded = errors.New("run is no longer running")
)

// RunPayload is the task payload of a queued run.
type RunPayload struct {
	RunID string `json:"run_id"`
}

type job struct {
	taskID string
	runID  string
}

// Deps wires a Service. Tasks and Redis may be nil for synchronous use.
type Deps struct {
	DB        *gorm.DB
	Tasks     *taskqueue.Service
	Redis     *redisc.Client
	Pipeline  *Pipeline
	Extractor *transcript.Extractor
	Refiner   *refine.Refiner
	Config    config.PipelineConfig
	Logger    *zap.Logger
}

// Service persists transcripts, runs and posts and executes queued runs.
type Service struct {
	db        *gorm.DB
	tasks     *taskqueue.Service
	rc        *redisc.Client
	pipeline  *Pipeline
	extractor *transcript.Extractor
	refiner   *refine.Refiner
	cfg       config.PipelineConfig
	logger    *zap.Logger
	now       func() time.Time

	jobs      chan job
	wg        sync.WaitGroup
	mu        sync.Mutex
	cancels   map[string]context.CancelFunc
	postLocks keyedMutex
}

func NewService(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Service{
		db:        d.DB,
		tasks:     d.Tasks,
		rc:        d.Redis,
		pipeline:  d.Pipeline,
		extractor: d.Extractor,
		refiner:   d.Refiner,
		cfg:       d.Config,
		logger:    d.Logger.Named("RunService"),
		now:       time.Now,
		jobs:      make(chan job, jobBuffer),
		cancels:   make(map[string]context.CancelFunc),
	}
}

// Start launches the worker goroutines and re-queues runs left pending or
// running by a previous process. Workers stop when ctx is done; Wait blocks
// until they have returned.
func (s *Service) Start(ctx context.Context) {
	workers := s.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	// A run still marked running belonged to a process that died mid-run.
	interrupted := s.db.Model(&models.RunModel{}).
		Where("status = ?", models.RunRunning).
		Updates(map[string]interface{}{"status": models.RunPending, "progress": 0, "step": ""})
	if interrupted.Error != nil {
		s.logger.Warn("requeue interrupted runs failed", zap.Error(interrupted.Error))
	} else if interrupted.RowsAffected > 0 {
		s.logger.Info("requeued interrupted runs", zap.Int64("count", interrupted.RowsAffected))
	}

	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.work(ctx)
	}

	var pending []models.RunModel
	if err := s.db.Where("status = ?", models.RunPending).Order("created_at ASC").Find(&pending).Error; err != nil {
		s.logger.Warn("resume pending runs failed", zap.Error(err))
		return
	}
	for _, r := range pending {
		s.dispatch(job{taskID: r.TaskID, runID: r.ID})
	}
	if len(pending) > 0 {
		s.logger.Info("resumed pending runs", zap.Int("count", len(pending)))
	}
}

// Wait blocks until every worker has exited.
func (s *Service) Wait() { s.wg.Wait() }

func (s *Service) work(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.jobs:
			s.execute(ctx, j)
		}
	}
}

func (s *Service) dispatch(j job) {
	select {
	case s.jobs <- j:
	default:
		s.logger.Warn("run queue full, run stays pending", zap.String("run", j.runID))
	}
}

// DedupKey identifies runs over the same transcript, URLs and topics.
func DedupKey(in Input) string {
	topics := make([]string, len(in.Topics))
	for i, t := range in.Topics {
		topics[i] = t.Topic
	}
	sum := sha256.Sum256([]byte(in.TranscriptID + "\n" + strings.Join(in.URLs, "\n") + "\n" + strings.Join(topics, "\n")))
	return hex.EncodeToString(sum[:])
}

// applyDefaults fills empty settings from the pipeline configuration.
func (s *Service) applyDefaults(in *Input) {
	in.Normalize()
	if in.CompanyType == "" {
		in.CompanyType = s.cfg.CompanyType
	}
	if in.Goal == "" {
		in.Goal = s.cfg.PromotionalGoal
	}
	if in.BrandPersonality == "" {
		in.BrandPersonality = s.cfg.BrandPersonality
	}
	if s.cfg.MaxTopics > 0 && len(in.Topics) > s.cfg.MaxTopics {
		in.Topics = in.Topics[:s.cfg.MaxTopics]
	}
}

func newRunModel(id string, in Input) *models.RunModel {
	r := &models.RunModel{
		TranscriptID:     in.TranscriptID,
		Status:           models.RunPending,
		CompanyType:      in.CompanyType,
		Goal:             in.Goal,
		BrandPersonality: in.BrandPersonality,
		TrendContext:     in.TrendContext,
		URLs:             models.StringArray(in.URLs),
		Topics:           in.Topics,
		Outputs:          []models.TopicOutput{},
	}
	r.ID = id
	return r
}

// Enqueue stores a run and queues it for a worker. A run with the same
// transcript, URLs and topics that is still queued or running is returned
// instead of a new one.
func (s *Service) Enqueue(ctx context.Context, in Input) (*models.RunModel, *taskqueue.Task, error) {
	if s.tasks == nil {
		return nil, nil, errors.New("task queue is not configured")
	}
	s.applyDefaults(&in)
	tr, err := s.GetTranscript(in.TranscriptID)
	if err != nil {
		return nil, nil, err
	}
	if tr == nil {
		return nil, nil, ErrTranscriptNotFound
	}
	in.Transcript = tr.Text
	if err := in.Validate(s.cfg.MaxURLs); err != nil {
		return nil, nil, err
	}

	runID := uuid.New().String()
	task, err := s.tasks.Enqueue(ctx, TaskTypeRun, RunPayload{RunID: runID}, DedupKey(in), in.TranscriptID)
	if err != nil {
		return nil, nil, fmt.Errorf("enqueue run: %w", err)
	}
	var payload RunPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return nil, nil, fmt.Errorf("decode run payload: %w", err)
	}
	if payload.RunID != runID {
		existing, err := s.GetRun(payload.RunID)
		if err != nil {
			return nil, nil, err
		}
		if existing != nil {
			return existing, task, nil
		}
	}

	r := newRunModel(runID, in)
	r.TaskID = task.ID
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, nil, err
	}
	s.dispatch(job{taskID: task.ID, runID: runID})
	s.logger.Info("run queued", zap.String("run", runID), zap.String("task", task.ID))
	return r, task, nil
}

// Redispatch queues a retried task again.
func (s *Service) Redispatch(ctx context.Context, taskID string) (*taskqueue.Task, error) {
	task, err := s.tasks.Retry(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Type != TaskTypeRun {
		return task, nil
	}
	var payload RunPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode run payload: %w", err)
	}
	if err := s.db.Model(&models.RunModel{}).Where("id = ?", payload.RunID).Updates(map[string]interface{}{
		"status":   models.RunPending,
		"error":    "",
		"progress": 0,
	}).Error; err != nil {
		return nil, err
	}
	s.dispatch(job{taskID: task.ID, runID: payload.RunID})
	return task, nil
}

// RunNow executes a run synchronously without the task queue. The run and
// its posts are persisted like a queued run.
func (s *Service) RunNow(ctx context.Context, in Input, progress func(Event)) (*models.RunModel, error) {
	s.applyDefaults(&in)
	if in.Transcript == "" && in.TranscriptID != "" {
		tr, err := s.GetTranscript(in.TranscriptID)
		if err != nil {
			return nil, err
		}
		if tr == nil {
			return nil, ErrTranscriptNotFound
		}
		in.Transcript = tr.Text
	}
	if err := in.Validate(s.cfg.MaxURLs); err != nil {
		return nil, err
	}
	r := newRunModel(uuid.New().String(), in)
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	s.runPipeline(ctx, r, in, "", progress)
	stored, err := s.GetRun(r.ID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrRunNotFound
	}
	if stored.Status != models.RunCompleted {
		return stored, fmt.Errorf("run %s: %s", stored.Status, stored.Error)
	}
	return stored, nil
}

func (s *Service) execute(parent context.Context, j job) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	r, err := s.GetRun(j.runID)
	if err != nil || r == nil {
		s.logger.Warn("queued run disappeared", zap.String("run", j.runID), zap.Error(err))
		s.updateTask(ctx, j.taskID, taskqueue.TaskFailed, nil, ErrRunNotFound.Error())
		return
	}
	if r.Status != models.RunPending {
		return
	}
	if j.taskID != "" && s.tasks != nil {
		task, err := s.tasks.GetByID(ctx, j.taskID)
		if err == nil && task != nil && task.Status == taskqueue.TaskCancelled {
			s.finish(ctx, r, models.RunCancelled, "cancelled before start")
			return
		}
	}

	// The cancel func is visible before the claim so Cancel never misses a
	// claimed run.
	s.mu.Lock()
	s.cancels[r.ID] = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.cancels, r.ID)
		s.mu.Unlock()
	}()

	// Claim the run so a job dispatched twice executes once.
	claim := s.db.Model(&models.RunModel{}).
		Where("id = ? AND status = ?", r.ID, models.RunPending).
		Update("status", models.RunRunning)
	if claim.Error != nil || claim.RowsAffected == 0 {
		return
	}

	in := Input{
		TranscriptID:     r.TranscriptID,
		CompanyType:      r.CompanyType,
		Goal:             r.Goal,
		BrandPersonality: r.BrandPersonality,
		TrendContext:     r.TrendContext,
		URLs:             []string(r.URLs),
		Topics:           r.Topics,
	}
	tr, err := s.GetTranscript(r.TranscriptID)
	if err != nil || tr == nil {
		s.finish(ctx, r, models.RunFailed, ErrTranscriptNotFound.Error())
		s.updateTask(ctx, j.taskID, taskqueue.TaskFailed, nil, ErrTranscriptNotFound.Error())
		return
	}
	in.Transcript = tr.Text
	s.runPipeline(ctx, r, in, j.taskID, nil)
}

// runPipeline executes the pipeline for a stored run and records the outcome.
func (s *Service) runPipeline(ctx context.Context, r *models.RunModel, in Input, taskID string, progress func(Event)) {
	started := s.now()
	r.Status = models.RunRunning
	r.StartedAt = &started
	mark := s.db.Model(&models.RunModel{}).
		Where("id = ? AND status IN ?", r.ID, []models.RunStatus{models.RunPending, models.RunRunning}).
		Updates(map[string]interface{}{"status": models.RunRunning, "started_at": started})
	if mark.Error != nil {
		s.logger.Warn("mark run running failed", zap.String("run", r.ID), zap.Error(mark.Error))
	} else if mark.RowsAffected == 0 {
		s.logger.Info("run was cancelled before it started", zap.String("run", r.ID))
		return
	}
	s.updateTask(ctx, taskID, taskqueue.TaskRunning, nil, "")
	s.publish(r.ID, Message{RunID: r.ID, Status: models.RunRunning})

	res, err := s.pipeline.Run(ctx, in, func(ev Event) {
		if err := s.db.Model(&models.RunModel{}).Where("id = ?", r.ID).Updates(map[string]interface{}{
			"progress": ev.Progress,
			"step":     ev.Step,
		}).Error; err != nil {
			s.logger.Warn("record run progress failed", zap.String("run", r.ID), zap.String("step", ev.Step), zap.Error(err))
		}
		if taskID != "" && s.tasks != nil {
			_ = s.tasks.UpdateProgress(context.Background(), taskID, ev.Progress, ev.Step)
		}
		s.publish(r.ID, Message{RunID: r.ID, Status: models.RunRunning, Event: &ev})
		if progress != nil {
			progress(ev)
		}
	})
	if err != nil {
		status, taskStatus := models.RunFailed, taskqueue.TaskFailed
		if ctx.Err() != nil {
			status, taskStatus = models.RunCancelled, taskqueue.TaskCancelled
		}
		s.logger.Warn("run failed", zap.String("run", r.ID), zap.String("status", string(status)), zap.Error(err))
		if !s.finish(context.Background(), r, status, err.Error(), models.RunRunning) {
			return
		}
		s.updateTask(context.Background(), taskID, taskStatus, nil, err.Error())
		return
	}

	if err := s.saveResult(r, res); errors.Is(err, errRunSuperseded) {
		s.logger.Info("run finished elsewhere, result dropped", zap.String("run", r.ID))
		return
	} else if err != nil {
		s.logger.Error("save run result failed", zap.String("run", r.ID), zap.Error(err))
		if s.finish(context.Background(), r, models.RunFailed, err.Error(), models.RunRunning) {
			s.updateTask(context.Background(), taskID, taskqueue.TaskFailed, nil, err.Error())
		}
		return
	}
	postCount := 0
	for _, t := range r.Outputs {
		postCount += len(t.PostIDs)
	}
	s.logger.Info("run completed",
		zap.String("run", r.ID),
		zap.Int("topics", len(r.Outputs)),
		zap.Int("posts", postCount),
		zap.Duration("took", res.Took))
	s.updateTask(context.Background(), taskID, taskqueue.TaskCompleted, map[string]interface{}{
		"run_id": r.ID,
		"posts":  postCount,
	}, "")
	s.publish(r.ID, Message{RunID: r.ID, Status: models.RunCompleted})
}

// saveResult stores the run outputs and one post row per refinable post.
// A run that left the running state meanwhile yields errRunSuperseded.
func (s *Service) saveResult(r *models.RunModel, res *Result) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		done := tx.Model(&models.RunModel{}).
			Where("id = ? AND status = ?", r.ID, models.RunRunning).
			Update("status", models.RunCompleted)
		if done.Error != nil {
			return done.Error
		}
		if done.RowsAffected == 0 {
			return errRunSuperseded
		}
		outputs := make([]models.TopicOutput, len(res.Topics))
		for i, t := range res.Topics {
			out := t.TopicOutput
			out.PostIDs = make([]string, 0, len(t.Contexts))
			for j, pc := range t.Contexts {
				post := &models.PostModel{
					RunID:    r.ID,
					Topic:    t.Topic,
					Number:   j + 1,
					Approach: pc.OriginalApproach,
					Hook:     pc.ViralHook,
					Context:  pc,
				}
				if j < len(t.Posts) {
					post.Number = t.Posts[j].Number
					post.Hashtags = t.Posts[j].OriginalHashtags
					post.AuthenticityScore = t.Posts[j].AuthenticityScore
				}
				post.Sync()
				if err := tx.Create(post).Error; err != nil {
					return err
				}
				out.PostIDs = append(out.PostIDs, post.ID)
			}
			outputs[i] = out
		}

		finished := s.now()
		trendResult := res.Trend
		profile := res.Profile
		r.Status = models.RunCompleted
		r.Progress = 1
		r.Step = StepComplete
		r.PrimaryTopic = trendResult.PrimaryTopic
		r.Trend = &trendResult
		r.Profile = &profile
		r.Brands = res.Brands
		r.History = res.History
		r.Outputs = outputs
		r.FinishedAt = &finished
		return tx.Save(r).Error
	})
}

// finish records a terminal status. With from given, only a run currently in
// one of those states is updated; the result reports whether it was.
func (s *Service) finish(ctx context.Context, r *models.RunModel, status models.RunStatus, errMsg string, from ...models.RunStatus) bool {
	finished := s.now()
	tx := s.db.WithContext(ctx).Model(&models.RunModel{}).Where("id = ?", r.ID)
	if len(from) > 0 {
		tx = tx.Where("status IN ?", from)
	}
	res := tx.Updates(map[string]interface{}{
		"status":      status,
		"error":       errMsg,
		"finished_at": finished,
	})
	if res.Error != nil {
		s.logger.Warn("update run status failed", zap.String("run", r.ID), zap.Error(res.Error))
	} else if len(from) > 0 && res.RowsAffected == 0 {
		return false
	}
	r.Status = status
	r.Error = errMsg
	r.FinishedAt = &finished
	s.publish(r.ID, Message{RunID: r.ID, Status: status, Error: errMsg})
	return true
}

func (s *Service) updateTask(ctx context.Context, taskID string, status taskqueue.TaskStatus, result interface{}, errMsg string) {
	if taskID == "" || s.tasks == nil {
		return
	}
	if err := s.tasks.UpdateStatus(ctx, taskID, status, result, errMsg); err != nil {
		s.logger.Warn("update task status failed", zap.String("task", taskID), zap.Error(err))
	}
}

// Cancel stops a queued or running run.
func (s *Service) Cancel(ctx context.Context, runID string) error {
	r, err := s.GetRun(runID)
	if err != nil {
		return err
	}
	if r == nil {
		return ErrRunNotFound
	}
	if r.Status.Finished() {
		return ErrRunFinished
	}

	if s.cancelActive(runID) {
		return nil
	}

	if s.tasks != nil && r.TaskID != "" {
		if err := s.tasks.Cancel(ctx, r.TaskID); err != nil && !errors.Is(err, taskqueue.ErrNotPending) && !errors.Is(err, taskqueue.ErrNotFound) {
			return err
		}
	}
	finished := s.finish(ctx, r, models.RunCancelled, "cancelled", models.RunPending, models.RunRunning)
	// A worker may have picked the run up after the first look.
	if s.cancelActive(runID) || finished {
		return nil
	}
	return ErrRunFinished
}

// cancelActive cancels the context of a run executing in this process.
func (s *Service) cancelActive(runID string) bool {
	s.mu.Lock()
	cancel, ok := s.cancels[runID]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// GetRun returns a run, or nil when it does not exist.
func (s *Service) GetRun(id string) (*models.RunModel, error) {
	var r models.RunModel
	err := s.db.First(&r, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListQuery filters run listings.
type ListQuery struct {
	Status       string `form:"status"`
	TranscriptID string `form:"transcript_id"`
}

func (s *Service) ListRuns(q pagination.Query, lq ListQuery) ([]models.RunModel, response.Pagination, error) {
	tx := s.db.Model(&models.RunModel{}).Omit("history")
	if lq.Status != "" {
		tx = tx.Where("status = ?", lq.Status)
	}
	if lq.TranscriptID != "" {
		tx = tx.Where("transcript_id = ?", lq.TranscriptID)
	}
	var runs []models.RunModel
	pag, err := pagination.Paginate(tx.Order("created_at DESC"), q, &runs)
	return runs, pag, err
}

// DeleteRun cancels the run if active and soft-deletes it with its posts.
func (s *Service) DeleteRun(ctx context.Context, id string) error {
	r, err := s.GetRun(id)
	if err != nil {
		return err
	}
	if r == nil {
		return ErrRunNotFound
	}
	if !r.Status.Finished() {
		if err := s.Cancel(ctx, id); err != nil && !errors.Is(err, ErrRunFinished) {
			return err
		}
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", id).Delete(&models.PostModel{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.RunModel{}, "id = ?", id).Error
	})
}

// DeleteRunsBefore soft-deletes finished runs created before cutoff and
// their posts.
func (s *Service) DeleteRunsBefore(cutoff time.Time) (int64, error) {
	var ids []string
	if err := s.db.Model(&models.RunModel{}).
		Where("created_at < ? AND status IN ?", cutoff, []models.RunStatus{models.RunCompleted, models.RunFailed, models.RunCancelled}).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	var deleted int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id IN ?", ids).Delete(&models.PostModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("id IN ?", ids).Delete(&models.RunModel{})
		deleted = res.RowsAffected
		return res.Error
	})
	return deleted, err
}
