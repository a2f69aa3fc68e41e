package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	redisc "github.com/trendjack/core/internal/pkg/redis"
)

const (
	recordPrefix = "trendjack:task:"
	indexKey     = "trendjack:tasks:index" // zset scored by created_at millis
	dedupPrefix  = "trendjack:tasks:dedup:"
	recordTTL    = 7 * 24 * time.Hour

	maxTxAttempts = 5
)

func recordKey(id string) string       { return recordPrefix + id }
func dedupHash(taskType string) string { return dedupPrefix + taskType }

// Service stores tasks as JSON records plus a creation-time index.
// Record updates run in WATCH transactions.
type Service struct {
	rc  *redisc.Client
	now func() time.Time
}

func NewService(rc *redisc.Client) *Service {
	return &Service{rc: rc, now: time.Now}
}

func (s *Service) rdb() *redis.Client { return s.rc.Raw() }

// Enqueue stores a new pending task. When dedupKey is set and an unfinished
// task of the same type already owns it, that task is returned instead.
// Ownership is claimed with HSETNX after the record is written, so a
// concurrent caller never sees an owner without a record.
func (s *Service) Enqueue(ctx context.Context, taskType string, payload interface{}, dedupKey, groupKey string) (*Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode task payload: %w", err)
	}
	now := s.now()
	task := &Task{
		ID:        uuid.NewString(),
		Type:      taskType,
		Payload:   body,
		Status:    TaskPending,
		DedupKey:  dedupKey,
		GroupKey:  groupKey,
		CreatedAt: now,
		UpdatedAt: now,
	}
	record, err := json.Marshal(task)
	if err != nil {
		return nil, err
	}

	_, err = s.rdb().TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, recordKey(task.ID), record, recordTTL)
		p.ZAdd(ctx, indexKey, redis.Z{Score: float64(now.UnixMilli()), Member: task.ID})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if dedupKey == "" {
		return task, nil
	}

	owner, err := s.claimDedup(ctx, task)
	if err != nil || owner.ID != task.ID {
		s.discard(ctx, task.ID)
	}
	return owner, err
}

// claimDedup makes task the owner of its dedup key unless an unfinished task
// already holds it, in which case that task is returned.
func (s *Service) claimDedup(ctx context.Context, task *Task) (*Task, error) {
	hash := dedupHash(task.Type)
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		claimed, err := s.rdb().HSetNX(ctx, hash, task.DedupKey, task.ID).Result()
		if err != nil {
			return nil, err
		}
		if claimed {
			s.rdb().Expire(ctx, hash, recordTTL)
			return task, nil
		}

		id, err := s.rdb().HGet(ctx, hash, task.DedupKey).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		owner, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if owner != nil && !owner.Status.Terminal() {
			return owner, nil
		}
		if err := s.releaseDedup(ctx, hash, task.DedupKey, id); err != nil {
			return nil, err
		}
	}
	return nil, ErrContention
}

// releaseDedup drops a stale owner, leaving the field alone if another task
// took it meanwhile.
func (s *Service) releaseDedup(ctx context.Context, hash, dedupKey, staleID string) error {
	err := s.rdb().Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.HGet(ctx, hash, dedupKey).Result()
		if errors.Is(err, redis.Nil) || cur != staleID {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HDel(ctx, hash, dedupKey)
			return nil
		})
		return err
	}, hash)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

// discard removes a task record that lost its dedup claim.
func (s *Service) discard(ctx context.Context, id string) {
	_, _ = s.rdb().TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, recordKey(id))
		p.ZRem(ctx, indexKey, id)
		return nil
	})
}

// GetByID loads a task. A missing task yields (nil, nil).
func (s *Service) GetByID(ctx context.Context, id string) (*Task, error) {
	raw, err := s.rdb().Get(ctx, recordKey(id)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, err
	}
	task := &Task{}
	if err := json.Unmarshal(raw, task); err != nil {
		return nil, fmt.Errorf("decode task %s: %w", id, err)
	}
	return task, nil
}

// mutate applies fn to the stored task and writes it back, retrying when the
// record changes underneath. The dedup owner is released once the task is
// terminal and re-claimed when it becomes active again.
func (s *Service) mutate(ctx context.Context, id string, fn func(*Task) error) (*Task, error) {
	key := recordKey(id)
	var out *Task

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		task := &Task{}
		if err := json.Unmarshal(raw, task); err != nil {
			return fmt.Errorf("decode task %s: %w", id, err)
		}
		if err := fn(task); err != nil {
			return err
		}
		task.UpdatedAt = s.now()
		record, err := json.Marshal(task)
		if err != nil {
			return err
		}

		var owner string
		if task.DedupKey != "" {
			owner, _ = tx.HGet(ctx, dedupHash(task.Type), task.DedupKey).Result()
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, record, recordTTL)
			if task.DedupKey == "" {
				return nil
			}
			switch {
			case task.Status.Terminal() && owner == task.ID:
				p.HDel(ctx, dedupHash(task.Type), task.DedupKey)
			case !task.Status.Terminal() && owner == "":
				p.HSet(ctx, dedupHash(task.Type), task.DedupKey, task.ID)
			}
			return nil
		})
		out = task
		return err
	}

	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := s.rdb().Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, ErrContention
}

// UpdateStatus moves a task to status with an optional result and error.
func (s *Service) UpdateStatus(ctx context.Context, id string, status TaskStatus, result interface{}, errMsg string) error {
	var encoded json.RawMessage
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("encode task result: %w", err)
		}
		encoded = b
	}
	_, err := s.mutate(ctx, id, func(t *Task) error {
		t.Status = status
		t.Error = errMsg
		if encoded != nil {
			t.Result = encoded
		}
		if status == TaskCompleted {
			t.Progress = 1
		}
		return nil
	})
	return err
}

// UpdateProgress records a fraction clamped to [0,1] and a status line.
func (s *Service) UpdateProgress(ctx context.Context, id string, progress float64, message string) error {
	_, err := s.mutate(ctx, id, func(t *Task) error {
		t.Progress = clampProgress(progress)
		t.Message = message
		return nil
	})
	return err
}

// Cancel stops a task that has not started yet.
func (s *Service) Cancel(ctx context.Context, id string) error {
	_, err := s.mutate(ctx, id, func(t *Task) error {
		if t.Status != TaskPending {
			return ErrNotPending
		}
		t.Status = TaskCancelled
		t.Error = "cancelled by user"
		return nil
	})
	return err
}

// Retry resets a failed or cancelled task to pending.
func (s *Service) Retry(ctx context.Context, id string) (*Task, error) {
	return s.mutate(ctx, id, func(t *Task) error {
		if t.Status != TaskFailed && t.Status != TaskCancelled {
			return ErrNotRetry
		}
		t.Status = TaskPending
		t.Progress = 0
		t.Message, t.Error = "", ""
		t.Result = nil
		return nil
	})
}

// List returns one page of tasks matching the optional type and status,
// newest first, together with the number of matches.
func (s *Service) List(ctx context.Context, page, size int, taskType *string, status *TaskStatus) ([]*Task, int64, error) {
	var f Filter
	if taskType != nil {
		f.Type = *taskType
	}
	if status != nil {
		f.Status = *status
	}
	matched, err := s.scan(ctx, true, f)
	if err != nil {
		return nil, 0, err
	}
	total := int64(len(matched))
	page = max(page, 1)
	if size < 1 {
		size = len(matched)
	}
	start := (page - 1) * size
	if start >= len(matched) {
		return []*Task{}, total, nil
	}
	return matched[start:min(start+size, len(matched))], total, nil
}

// ListByGroup returns every task sharing groupKey, newest first.
func (s *Service) ListByGroup(ctx context.Context, groupKey string) ([]*Task, error) {
	return s.scan(ctx, true, Filter{Group: groupKey})
}

// scan loads the indexed tasks in one MGET. Expired records are pruned from
// the index as they are found.
func (s *Service) scan(ctx context.Context, newestFirst bool, f Filter) ([]*Task, error) {
	rng := s.rdb().ZRange
	if newestFirst {
		rng = s.rdb().ZRevRange
	}
	ids, err := rng(ctx, indexKey, 0, -1).Result()
	if err != nil || len(ids) == 0 {
		return []*Task{}, err
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = recordKey(id)
	}
	values, err := s.rdb().MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	var stale []interface{}
	out := make([]*Task, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		task := &Task{}
		if json.Unmarshal([]byte(raw), task) != nil {
			continue
		}
		if f.match(task) {
			out = append(out, task)
		}
	}
	if len(stale) > 0 {
		s.rdb().ZRem(ctx, indexKey, stale...)
	}
	return out, nil
}

// DeleteByID removes a task and its index entries.
func (s *Service) DeleteByID(ctx context.Context, id string) error {
	task, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if task == nil {
		return ErrNotFound
	}
	_, err = s.rdb().TxPipelined(ctx, func(p redis.Pipeliner) error {
		s.queueDelete(ctx, p, task)
		return nil
	})
	return err
}

// DeleteCompleted removes finished tasks created before beforeMS, or every
// finished task when beforeMS is 0, and reports how many were removed.
func (s *Service) DeleteCompleted(ctx context.Context, beforeMS int64) (int, error) {
	tasks, err := s.scan(ctx, false, Filter{})
	if err != nil {
		return 0, err
	}
	var doomed []*Task
	for _, t := range tasks {
		if t.Status.Terminal() && (beforeMS <= 0 || t.CreatedAt.UnixMilli() < beforeMS) {
			doomed = append(doomed, t)
		}
	}
	if len(doomed) == 0 {
		return 0, nil
	}
	_, err = s.rdb().TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, t := range doomed {
			s.queueDelete(ctx, p, t)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(doomed), nil
}

func (s *Service) queueDelete(ctx context.Context, p redis.Pipeliner, t *Task) {
	p.Del(ctx, recordKey(t.ID))
	p.ZRem(ctx, indexKey, t.ID)
	if t.DedupKey != "" {
		p.HDel(ctx, dedupHash(t.Type), t.DedupKey)
	}
}
