package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/trendjack/core/internal/config"
	"github.com/trendjack/core/internal/database"
	"github.com/trendjack/core/internal/middleware"
	"github.com/trendjack/core/internal/modules/pipeline/run"
	"github.com/trendjack/core/internal/modules/processing/llm"
	"github.com/trendjack/core/internal/modules/processing/refine"
	"github.com/trendjack/core/internal/modules/processing/transcript"
	"github.com/trendjack/core/internal/modules/processing/trend"
	"github.com/trendjack/core/internal/modules/storage/artifact"
	pkgcron "github.com/trendjack/core/internal/pkg/cron"
	pkgredis "github.com/trendjack/core/internal/pkg/redis"
	"github.com/trendjack/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg       *config.AppConfig
	router    *gin.Engine
	db        *gorm.DB
	rc        *pkgredis.Client
	tasks     *taskqueue.Service
	runs      *run.Service
	provider  *llm.Provider
	firecrawl *trend.Firecrawl
	store     artifact.Store
	sched     *pkgcron.Scheduler
	logger    *zap.Logger
	cancel    context.CancelFunc
	startedAt time.Time
}

// New initializes the application: config → DB → Redis → pipeline → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	loc, err := applyRuntimeSettings(cfg, logger)
	if err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	rc, err := pkgredis.Connect(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	store, err := artifact.New(cfg, logger)
	if err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("artifacts: %w", err)
	}

	a := &App{
		cfg:       cfg,
		db:        db,
		rc:        rc,
		tasks:     taskqueue.NewService(rc),
		store:     store,
		logger:    logger,
		startedAt: time.Now(),
	}
	engine := NewEngine(cfg, db, rc, a.tasks, store, logger)
	a.provider, a.firecrawl, a.runs = engine.Provider, engine.Firecrawl, engine.Runs
	a.router = a.buildRouter()

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.sched = pkgcron.New(loc, logger)
	if err := a.registerCronJobs(); err != nil {
		cancel()
		_ = rc.Close()
		return nil, err
	}
	a.sched.Start(ctx)
	a.runs.Start(ctx)

	a.registerRoutes()
	return a, nil
}

// Engine bundles the generation components shared by the server and the CLI.
type Engine struct {
	Provider  *llm.Provider
	Firecrawl *trend.Firecrawl
	Runs      *run.Service
}

// NewEngine wires the model provider, trend analysis and the run service.
// rc, tasks and store may be nil; runs then execute only through RunNow.
func NewEngine(cfg *config.AppConfig, db *gorm.DB, rc *pkgredis.Client, tasks *taskqueue.Service, store artifact.Store, logger *zap.Logger) *Engine {
	provider := llm.New(cfg.LLM, logger)
	if !provider.Configured() {
		logger.Warn("llm api key is empty, topic extraction falls back to sample topics and generation requests will fail")
	}

	firecrawl := trend.NewFirecrawl(cfg.Firecrawl, rc, cfg.Pipeline.ScrapeCacheTTL, logger)
	opts := trend.AnalyzerOptions{
		Scraper:     firecrawl,
		Client:      provider,
		Concurrency: cfg.Pipeline.URLConcurrency,
		Logger:      logger,
	}
	if store != nil {
		opts.Store = store
	}
	if cfg.Browser.Enable {
		opts.Capturer = trend.NewBrowser(cfg.Browser, logger)
	}

	// Without a key the extractor serves sample topics instead of failing.
	var extractorClient llm.Client
	if provider.Configured() {
		extractorClient = provider
	}

	runs := run.NewService(run.Deps{
		DB:    db,
		Tasks: tasks,
		Redis: rc,
		Pipeline: run.New(run.Options{
			Client:   provider,
			Analyzer: trend.NewAnalyzer(opts),
			Config:   cfg.Pipeline,
			Logger:   logger,
		}),
		Extractor: transcript.NewExtractor(extractorClient, cfg.Pipeline.TopicConcurrency, logger),
		Refiner:   refine.NewRefiner(provider, logger),
		Config:    cfg.Pipeline,
		Logger:    logger,
	})
	return &Engine{Provider: provider, Firecrawl: firecrawl, Runs: runs}
}

func (a *App) buildRouter() *gin.Engine {
	if a.cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.OptionalAuth())
	router.Use(newCORS(a.cfg))
	if a.cfg.RateLimit.Enable {
		router.Use(middleware.RateLimit(a.rc.Raw(), a.cfg.RateLimit.PerSecond, a.logger))
	}
	router.Use(middleware.Idempotence(a.rc.Raw()))
	router.Use(middleware.ResponseCache(a.rc.Raw(), middleware.CacheOptions{PathSuffixes: []string{"/export"}}))
	return router
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown stops the scheduler and waits for in-flight runs to wind down.
func (a *App) Shutdown(ctx context.Context) {
	a.cancel()
	done := make(chan struct{})
	go func() {
		a.runs.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.logger.Warn("run workers did not stop before the shutdown deadline")
	}
	if err := a.rc.Close(); err != nil {
		a.logger.Warn("close redis failed", zap.Error(err))
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
