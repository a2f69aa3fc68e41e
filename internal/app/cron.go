package app

import (
	"context"
	"time"

	"github.com/trendjack/core/internal/middleware"
	"github.com/trendjack/core/internal/modules/storage/artifact"
	"github.com/trendjack/core/internal/modules/tasks/task"
	pkgcron "github.com/trendjack/core/internal/pkg/cron"
	"go.uber.org/zap"
)

const (
	taskRetention     = 24 * time.Hour
	artifactRetention = 7 * 24 * time.Hour
)

// registerCronJobs registers all scheduled background jobs.
func (a *App) registerCronJobs() error {
	cronLogger := a.logger.Named("CronService")

	jobs := []pkgcron.Job{
		{
			Name:        "cleanup_tasks",
			Description: "Remove finished queue tasks older than a day",
			Spec:        "@every 6h",
			Fn: func(ctx context.Context) error {
				n, err := task.CleanupBefore(ctx, a.tasks, taskRetention)
				if err != nil {
					cronLogger.Warn("task cleanup failed", zap.Error(err))
					return err
				}
				cronLogger.Info("task cleanup done", zap.Int("deleted", n))
				return nil
			},
		},
		{
			Name:        "cleanup_runs",
			Description: "Remove runs past the retention window and drop cached exports",
			Spec:        "@every 24h",
			Fn: func(ctx context.Context) error {
				cutoff := time.Now().Add(-a.cfg.Pipeline.RunRetention)
				n, err := a.runs.DeleteRunsBefore(cutoff)
				if err != nil {
					cronLogger.Warn("run cleanup failed", zap.Error(err))
					return err
				}
				purged, err := middleware.PurgeResponseCache(ctx, a.rc.Raw(), "")
				if err != nil {
					cronLogger.Warn("response cache purge failed", zap.Error(err))
				}
				cronLogger.Info("run cleanup done", zap.Int64("deleted", n), zap.Int64("cache_purged", purged))
				return nil
			},
		},
	}

	if local, ok := a.store.(*artifact.Local); ok {
		jobs = append(jobs, pkgcron.Job{
			Name:        "cleanup_artifacts",
			Description: "Remove screenshots older than a week",
			Spec:        "@every 24h",
			Fn: func(ctx context.Context) error {
				n, err := local.Cleanup(time.Now().Add(-artifactRetention))
				if err != nil {
					cronLogger.Warn("artifact cleanup failed", zap.Error(err))
					return err
				}
				cronLogger.Info("artifact cleanup done", zap.Int("deleted", n))
				return nil
			},
		})
	}

	for _, job := range jobs {
		if err := a.sched.Register(job); err != nil {
			return err
		}
	}
	return nil
}
