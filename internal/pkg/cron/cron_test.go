package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRejectsBadSpecAndDuplicates(t *testing.T) {
	s := New(time.UTC, nil)
	require.NoError(t, s.Register(Job{Name: "cleanup_tasks", Spec: "@every 6h", Fn: func(context.Context) error { return nil }}))
	assert.Error(t, s.Register(Job{Name: "cleanup_tasks", Spec: "@every 1h", Fn: func(context.Context) error { return nil }}))
	assert.Error(t, s.Register(Job{Name: "broken", Spec: "every tuesday", Fn: func(context.Context) error { return nil }}))
}

func TestRunRecordsOutcome(t *testing.T) {
	s := New(time.UTC, nil)
	require.NoError(t, s.Register(Job{Name: "ok", Spec: "@daily", Fn: func(context.Context) error { return nil }}))
	require.NoError(t, s.Register(Job{Name: "bad", Spec: "@daily", Fn: func(context.Context) error { return errors.New("disk full") }}))

	require.NoError(t, s.Run(context.Background(), "ok"))
	require.NoError(t, s.Run(context.Background(), "bad"))
	assert.Error(t, s.Run(context.Background(), "missing"))

	assert.Eventually(t, func() bool {
		res, err := s.GetTask("ok")
		return err == nil && res.Status == StatusFulfill
	}, time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		res, err := s.GetTask("bad")
		return err == nil && res.Status == StatusReject && res.Message == "disk full"
	}, time.Second, 10*time.Millisecond)
}

func TestListIsSortedAndShowsNextRun(t *testing.T) {
	s := New(time.UTC, nil)
	require.NoError(t, s.Register(Job{Name: "b", Spec: "@every 1h", Fn: func(context.Context) error { return nil }}))
	require.NoError(t, s.Register(Job{Name: "a", Spec: "@every 1h", Fn: func(context.Context) error { return nil }}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	items := s.List()
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].Name)
	assert.Equal(t, StatusIdle, items[1].Status)
	require.NotNil(t, items[0].NextDate)
	assert.True(t, items[0].NextDate.After(time.Now()))
}

func TestExecuteSkipsOverlappingRuns(t *testing.T) {
	s := New(time.UTC, nil)
	release := make(chan struct{})
	var calls atomic.Int32
	require.NoError(t, s.Register(Job{Name: "slow", Spec: "@daily", Fn: func(context.Context) error {
		calls.Add(1)
		<-release
		return nil
	}}))

	require.NoError(t, s.Run(context.Background(), "slow"))
	assert.Eventually(t, func() bool {
		res, _ := s.GetTask("slow")
		return res.Status == StatusRunning
	}, time.Second, 5*time.Millisecond)
	e, err := s.lookup("slow")
	require.NoError(t, err)
	e.execute(context.Background())
	close(release)

	assert.Eventually(t, func() bool {
		items := s.List()
		return items[0].Status == StatusFulfill && items[0].Runs == 1 && items[0].LastRunAt != nil
	}, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, calls.Load())
}

func TestRegisterRequiresNameAndFn(t *testing.T) {
	s := New(time.UTC, nil)
	assert.Error(t, s.Register(Job{Spec: "@daily", Fn: func(context.Context) error { return nil }}))
	assert.Error(t, s.Register(Job{Name: "nofn", Spec: "@daily"}))
	_, err := s.GetTask("nope")
	assert.ErrorIs(t, err, ErrUnknownJob)
}
