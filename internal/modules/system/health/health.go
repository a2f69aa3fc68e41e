// Package health reports service status and exposes cron jobs and native
// logs to operators.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/trendjack/core/internal/pkg/cron"
	"github.com/trendjack/core/internal/pkg/nativelog"
	redisc "github.com/trendjack/core/internal/pkg/redis"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const probeTimeout = 2 * time.Second

// Dependencies are the components whose state /health reports.
type Dependencies struct {
	DB                  *gorm.DB
	Redis               *redisc.Client
	Scheduler           *cron.Scheduler
	LLMProvider         string
	LLMConfigured       bool
	FirecrawlConfigured bool
	BrowserEnabled      bool
	StartedAt           time.Time
	LogDir              string
}

type handler struct {
	deps Dependencies
}

type llmStatus struct {
	Provider   string `json:"provider"`
	Configured bool   `json:"configured"`
}

type statusBody struct {
	Status    string    `json:"status"`
	Database  bool      `json:"database"`
	Redis     bool      `json:"redis"`
	LLM       llmStatus `json:"llm"`
	Firecrawl bool      `json:"firecrawl"`
	Browser   bool      `json:"browser"`
	Uptime    string    `json:"uptime,omitempty"`
}

// RegisterRoutes mounts GET /health publicly and the cron and log routes
// behind authMW.
func RegisterRoutes(rg *gin.RouterGroup, deps Dependencies, authMW gin.HandlerFunc) {
	if deps.LogDir == "" {
		deps.LogDir = nativelog.ResolveDir()
	}
	h := &handler{deps: deps}

	rg.GET("/health", h.status)

	admin := rg.Group("/health", authMW)
	jobs := admin.Group("/cron")
	jobs.GET("", h.listJobs)
	jobs.POST("/run/:name", h.runJob)
	jobs.GET("/task/:name", h.jobState)

	logs := admin.Group("/logs")
	logs.GET("", h.listLogs)
	logs.GET("/stream", h.streamLogs)
	logs.GET("/file/:filename", h.readLog)
	logs.DELETE("/file/:filename", h.deleteLog)
}

// status GET /health
func (h *handler) status(c *gin.Context) {
	body := statusBody{
		LLM:       llmStatus{Provider: h.deps.LLMProvider, Configured: h.deps.LLMConfigured},
		Firecrawl: h.deps.FirecrawlConfigured,
		Browser:   h.deps.BrowserEnabled,
	}
	body.Database, body.Redis = h.probe(c.Request.Context())
	if !h.deps.StartedAt.IsZero() {
		body.Uptime = humanizeDuration(time.Since(h.deps.StartedAt))
	}

	code := http.StatusOK
	body.Status = "ok"
	if !body.Database || !body.Redis {
		code, body.Status = http.StatusServiceUnavailable, "degraded"
	}
	c.JSON(code, body)
}

// probe pings the database and redis in parallel.
func (h *handler) probe(parent context.Context) (dbOK, redisOK bool) {
	ctx, cancel := context.WithTimeout(parent, probeTimeout)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error {
		if h.deps.DB == nil {
			return nil
		}
		if sqlDB, err := h.deps.DB.DB(); err == nil {
			dbOK = sqlDB.PingContext(ctx) == nil
		}
		return nil
	})
	g.Go(func() error {
		redisOK = h.deps.Redis != nil && h.deps.Redis.Ping(ctx) == nil
		return nil
	})
	_ = g.Wait()
	return dbOK, redisOK
}

func humanizeDuration(d time.Duration) string {
	unit := time.Second
	switch {
	case d >= 24*time.Hour:
		unit = 24 * time.Hour
	case d >= time.Hour:
		unit = time.Hour
	case d >= time.Minute:
		unit = time.Minute
	}
	return d.Truncate(unit).String()
}
