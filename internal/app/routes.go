package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/trendjack/core/internal/middleware"
	"github.com/trendjack/core/internal/modules/pipeline/run"
	"github.com/trendjack/core/internal/modules/storage/artifact"
	"github.com/trendjack/core/internal/modules/system/health"
	"github.com/trendjack/core/internal/modules/tasks/task"
	"github.com/trendjack/core/internal/pkg/response"
)

// registerRoutes mounts all module routes under /api/v1.
func (a *App) registerRoutes() {
	r := a.router

	if local, ok := a.store.(*artifact.Local); ok {
		r.Static(artifact.PublicPrefix, local.Dir())
	}

	r.NoRoute(func(c *gin.Context) {
		response.NotFoundMsg(c, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		c.AbortWithStatus(http.StatusMethodNotAllowed)
	})

	api := r.Group("/api/v1")
	authMW := middleware.Auth(a.cfg.Auth.Enable)

	health.RegisterRoutes(api, health.Dependencies{
		DB:                  a.db,
		Redis:               a.rc,
		Scheduler:           a.sched,
		LLMProvider:         a.provider.ProviderName(),
		LLMConfigured:       a.provider.Configured(),
		FirecrawlConfigured: a.firecrawl.Configured(),
		BrowserEnabled:      a.cfg.Browser.Enable,
		StartedAt:           a.startedAt,
		LogDir:              a.cfg.LogDir(),
	}, authMW)

	run.NewHandler(a.runs).RegisterRoutes(api, authMW)
	task.NewHandler(a.tasks, a.runs).RegisterRoutes(api, authMW)
}
