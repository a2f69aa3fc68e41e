// Package cron runs named maintenance jobs on robfig/cron schedules and keeps
// the outcome of each job's last run for the health endpoints.
package cron

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	robfig "github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// JobStatus is the outcome of a job's most recent run.
type JobStatus string

const (
	StatusIdle    JobStatus = "idle"
	StatusRunning JobStatus = "running"
	StatusFulfill JobStatus = "fulfill"
	StatusReject  JobStatus = "reject"
)

const jobTimeout = 30 * time.Minute

// ErrUnknownJob is returned for names that were never registered.
var ErrUnknownJob = errors.New("job not found")

// Job is a scheduled task. Spec takes five-field cron expressions as well as
// descriptors such as "@daily" or "@every 6h".
type Job struct {
	Name        string
	Description string
	Spec        string
	Fn          func(ctx context.Context) error
}

// ListItem describes a registered job for the API.
type ListItem struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Spec        string        `json:"spec"`
	Status      JobStatus     `json:"status"`
	NextDate    *time.Time    `json:"nextDate"`
	LastRunAt   *time.Time    `json:"lastRunAt,omitempty"`
	LastTook    time.Duration `json:"lastTook,omitempty"`
	Runs        int64         `json:"runs"`
}

// TaskResult is the pollable state of one job.
type TaskResult struct {
	Status  JobStatus `json:"status"`
	Message string    `json:"message,omitempty"`
}

// entry is a registered job plus the record of its last run.
type entry struct {
	job     Job
	id      robfig.EntryID
	sched   *Scheduler
	busy    atomic.Bool
	runs    atomic.Int64
	mu      sync.Mutex
	status  JobStatus
	message string
	lastRun time.Time
	took    time.Duration
}

// Run satisfies robfig.Job for scheduled invocations.
func (e *entry) Run() { e.execute(e.sched.baseContext()) }

// execute runs the job unless a previous invocation is still going.
func (e *entry) execute(parent context.Context) {
	if !e.busy.CompareAndSwap(false, true) {
		e.sched.logger.Debug("job still running, skipped", zap.String("job", e.job.Name))
		return
	}
	defer e.busy.Store(false)

	started := time.Now()
	e.record(StatusRunning, "", time.Time{}, 0)

	ctx, cancel := context.WithTimeout(parent, jobTimeout)
	defer cancel()
	err := e.job.Fn(ctx)
	took := time.Since(started)
	e.runs.Add(1)

	if err != nil {
		e.record(StatusReject, err.Error(), started, took)
		e.sched.logger.Warn("job failed", zap.String("job", e.job.Name), zap.Duration("took", took), zap.Error(err))
		return
	}
	e.record(StatusFulfill, "", started, took)
	e.sched.logger.Debug("job finished", zap.String("job", e.job.Name), zap.Duration("took", took))
}

func (e *entry) record(status JobStatus, msg string, at time.Time, took time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status, e.message = status, msg
	if !at.IsZero() {
		e.lastRun, e.took = at, took
	}
}

// Scheduler owns a robfig cron runner and the jobs registered on it.
type Scheduler struct {
	cron   *robfig.Cron
	logger *zap.Logger

	mu   sync.RWMutex
	jobs map[string]*entry
	ctx  context.Context
}

// New returns an idle scheduler evaluating specs in loc (nil means local).
func New(loc *time.Location, logger *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("Cron")
	return &Scheduler{
		cron: robfig.New(
			robfig.WithLocation(loc),
			robfig.WithChain(robfig.Recover(cronLogger{logger.Sugar()})),
		),
		logger: logger,
		jobs:   make(map[string]*entry),
		ctx:    context.Background(),
	}
}

func (s *Scheduler) baseContext() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx
}

// Register schedules job. Names must be unique.
func (s *Scheduler) Register(job Job) error {
	if strings.TrimSpace(job.Name) == "" || job.Fn == nil {
		return errors.New("job needs a name and a function")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.jobs[job.Name]; dup {
		return fmt.Errorf("job %q already registered", job.Name)
	}
	e := &entry{job: job, sched: s, status: StatusIdle}
	id, err := s.cron.AddJob(job.Spec, e)
	if err != nil {
		return fmt.Errorf("schedule job %q: %w", job.Name, err)
	}
	e.id = id
	s.jobs[job.Name] = e
	return nil
}

// Start begins firing jobs and stops the runner when ctx ends. Jobs receive
// contexts derived from ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
	}()
}

func (s *Scheduler) lookup(name string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
	return e, nil
}

// Run triggers a job in the background. The run outlives the caller's
// request context.
func (s *Scheduler) Run(ctx context.Context, name string) error {
	e, err := s.lookup(name)
	if err != nil {
		return err
	}
	go e.execute(context.WithoutCancel(ctx))
	return nil
}

// GetTask reports the state of a job's latest run.
func (s *Scheduler) GetTask(name string) (*TaskResult, error) {
	e, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return &TaskResult{Status: e.status, Message: e.message}, nil
}

// List describes every job, ordered by name.
func (s *Scheduler) List() []ListItem {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.jobs))
	for _, e := range s.jobs {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	items := make([]ListItem, 0, len(entries))
	for _, e := range entries {
		item := ListItem{
			Name:        e.job.Name,
			Description: e.job.Description,
			Spec:        e.job.Spec,
			Runs:        e.runs.Load(),
		}
		e.mu.Lock()
		item.Status = e.status
		if !e.lastRun.IsZero() {
			at := e.lastRun
			item.LastRunAt, item.LastTook = &at, e.took
		}
		e.mu.Unlock()
		if next := s.cron.Entry(e.id).Next; !next.IsZero() {
			item.NextDate = &next
		}
		items = append(items, item)
	}
	slices.SortFunc(items, func(a, b ListItem) int { return strings.Compare(a.Name, b.Name) })
	return items
}

// cronLogger routes robfig's internal messages to zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
