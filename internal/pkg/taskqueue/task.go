// Package taskqueue keeps background task records in redis so that progress
// of long running pipeline work can be polled and retried.
package taskqueue

import (
	"encoding/json"
	"errors"
	"time"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// Terminal reports whether no further transitions are expected.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskCompleted, TaskFailed, TaskCancelled:
		return true
	}
	return false
}

var (
	ErrNotFound   = errors.New("task not found")
	ErrNotPending = errors.New("can only cancel pending tasks")
	ErrNotRetry   = errors.New("can only retry failed or cancelled tasks")
	ErrContention = errors.New("task was modified concurrently, try again")
)

// Task is one unit of background work.
type Task struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Status    TaskStatus      `json:"status"`
	Progress  float64         `json:"progress"`
	Message   string          `json:"message,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	DedupKey  string          `json:"dedup_key,omitempty"`
	GroupKey  string          `json:"group_key,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	Type   string
	Status TaskStatus
	Group  string
}

func (f Filter) match(t *Task) bool {
	return (f.Type == "" || t.Type == f.Type) &&
		(f.Status == "" || t.Status == f.Status) &&
		(f.Group == "" || t.GroupKey == f.Group)
}

func clampProgress(p float64) float64 {
	return min(max(p, 0), 1)
}
