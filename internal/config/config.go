package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load builds the configuration in layers: defaults, then the YAML file at
// configPath, then environment variables. The file may be absent only when
// no path was given.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}

	raw, err := readRawConfig(path, explicit)
	if err != nil {
		return nil, err
	}

	cfg := defaultAppConfig()
	if err := raw.applyTo(&cfg); err != nil {
		return nil, fmt.Errorf("config file %q: %w", path, err)
	}
	applyEnvOverrides(&cfg, os.LookupEnv)
	cfg.finalize()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config file %q: %w", path, err)
	}
	return &cfg, nil
}

func readRawConfig(path string, explicit bool) (rawAppConfig, error) {
	var raw rawAppConfig
	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		return raw, nil
	}
	if err != nil {
		return raw, fmt.Errorf("read config file %q: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return raw, fmt.Errorf("parse config file %q: %w", path, err)
	}
	return raw, nil
}

// defaultAppConfig holds provider-neutral defaults. Provider specific values
// are filled by finalize once the file and environment are applied.
func defaultAppConfig() AppConfig {
	cfg := AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Database: DatabaseRuntimeConfig{
			Driver:    defaultDBDriver,
			ParseTime: true,
		},
		Redis:     RedisRuntimeConfig{DB: defaultRedisDB},
		Auth:      AuthConfig{TokenTTL: defaultTokenTTL},
		RateLimit: RateLimitConfig{Enable: true, PerSecond: defaultRateLimitMax},
		LLM: LLMConfig{
			Provider:    defaultLLMProvider,
			MaxTokens:   defaultLLMMaxTokens,
			Temperature: defaultLLMTemperature,
			Timeout:     defaultLLMTimeout,
		},
		Firecrawl: FirecrawlConfig{
			Endpoint:        defaultFirecrawlURL,
			Timeout:         defaultFirecrawlTimeout,
			OnlyMainContent: true,
		},
		Browser: BrowserConfig{
			Headless:    true,
			Width:       defaultBrowserWidth,
			Height:      defaultBrowserHeight,
			Timeout:     defaultBrowserTimeout,
			SettleDelay: defaultBrowserSettle,
		},
		Artifacts: ArtifactConfig{Driver: defaultArtifactDriver},
		Pipeline: PipelineConfig{
			CompanyType:      DefaultCompanyType,
			PromotionalGoal:  DefaultPromotionalGoal,
			BrandPersonality: DefaultBrandPersonality,
			MaxURLs:          defaultMaxURLs,
			MaxTopics:        defaultMaxTopics,
			AutoSelect:       defaultAutoSelect,
			URLConcurrency:   defaultURLConcurrency,
			TopicConcurrency: defaultTopicConcurrency,
			Workers:          defaultWorkers,
			ScrapeCacheTTL:   defaultScrapeCacheTTL,
			BrandSimulation:  true,
			BrandExamples:    defaultBrandExamples,
			RunRetention:     defaultRunRetention,
		},
	}
	return cfg
}

// overlay copies set values from the raw file onto the config. The first
// invalid duration is kept in err.
type overlay struct {
	err error
}

// str assigns the last non-blank candidate.
func (o *overlay) str(dst *string, candidates ...string) {
	for _, v := range candidates {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
}

func (o *overlay) num(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func (o *overlay) flag(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func (o *overlay) params(dst *map[string]string, v map[string]string) {
	if v != nil {
		*dst = trimmedParams(v)
	}
}

func (o *overlay) duration(dst *time.Duration, field, raw string) {
	if o.err != nil {
		return
	}
	o.err = parseDuration(raw, field, dst)
}

func (r rawAppConfig) applyTo(cfg *AppConfig) error {
	o := &overlay{}
	o.num(&cfg.Port, r.Port)
	o.str(&cfg.Env, r.Env)
	o.str(&cfg.Paths.Logs, r.Paths.Logs, r.LogDir)
	o.str(&cfg.Paths.Artifacts, r.Paths.Artifacts)
	o.str(&cfg.Timezone, r.Timezone, r.TZ)
	if r.AllowedOrigins != nil {
		cfg.AllowedOrigins = normalizeOrigins(r.AllowedOrigins)
	}

	db := &cfg.Database
	o.str(&db.Driver, r.Database.Driver)
	o.str(&db.DSN, r.Database.DSN, r.Database.URL, r.DSN)
	o.str(&db.Path, r.Database.Path)
	o.str(&db.Host, r.Database.Host)
	o.num(&db.Port, r.Database.Port)
	o.str(&db.User, r.Database.User, r.Database.Username)
	o.str(&db.Password, r.Database.Password)
	o.str(&db.Name, r.Database.Name)
	o.str(&db.Charset, r.Database.Charset)
	o.flag(&db.ParseTime, r.Database.ParseTime)
	o.str(&db.Loc, r.Database.Loc)
	o.params(&db.Params, r.Database.Params)
	o.str(&db.LogLevel, r.Database.LogLevel)

	rd := &cfg.Redis
	o.str(&rd.URL, r.Redis.URL, r.RedisURL)
	o.str(&rd.Host, r.Redis.Host)
	o.num(&rd.Port, r.Redis.Port)
	o.str(&rd.Username, r.Redis.Username)
	o.str(&rd.Password, r.Redis.Password)
	if r.Redis.DB != nil {
		rd.DB = *r.Redis.DB
	}
	o.flag(&rd.TLS, r.Redis.TLS)
	o.str(&rd.Scheme, r.Redis.Scheme)
	o.params(&rd.Params, r.Redis.Params)

	o.flag(&cfg.Auth.Enable, r.Auth.Enable)
	o.str(&cfg.Auth.JWTSecret, r.JWTSecret, r.Auth.JWTSecret)
	o.duration(&cfg.Auth.TokenTTL, "auth.token_ttl", r.Auth.TokenTTL)

	o.flag(&cfg.RateLimit.Enable, r.RateLimit.Enable)
	o.num(&cfg.RateLimit.PerSecond, r.RateLimit.PerSecond)

	llm := &cfg.LLM
	o.str(&llm.Provider, r.LLM.Provider)
	o.str(&llm.APIKey, r.LLM.APIKey)
	o.str(&llm.Endpoint, r.LLM.Endpoint)
	o.str(&llm.Model, r.LLM.Model)
	o.str(&llm.AnalysisModel, r.LLM.AnalysisModel)
	o.num(&llm.MaxTokens, r.LLM.MaxTokens)
	if r.LLM.Temperature != nil {
		llm.Temperature = *r.LLM.Temperature
	}
	o.duration(&llm.Timeout, "llm.timeout", r.LLM.Timeout)

	fc := &cfg.Firecrawl
	o.str(&fc.APIKey, r.Firecrawl.APIKey)
	o.str(&fc.Endpoint, r.Firecrawl.Endpoint)
	o.flag(&fc.OnlyMainContent, r.Firecrawl.OnlyMainContent)
	o.duration(&fc.Timeout, "firecrawl.timeout", r.Firecrawl.Timeout)

	br := &cfg.Browser
	o.flag(&br.Enable, r.Browser.Enable)
	o.flag(&br.Headless, r.Browser.Headless)
	o.num(&br.Width, r.Browser.Width)
	o.num(&br.Height, r.Browser.Height)
	o.str(&br.UserAgent, r.Browser.UserAgent)
	o.duration(&br.Timeout, "browser.timeout", r.Browser.Timeout)
	o.duration(&br.SettleDelay, "browser.settle_delay", r.Browser.SettleDelay)

	o.str(&cfg.Artifacts.Driver, r.Artifacts.Driver)
	s3 := &cfg.Artifacts.S3
	o.str(&s3.Bucket, r.Artifacts.S3.Bucket)
	o.str(&s3.Region, r.Artifacts.S3.Region)
	o.str(&s3.Endpoint, r.Artifacts.S3.Endpoint)
	o.str(&s3.AccessKeyID, r.Artifacts.S3.AccessKeyID)
	o.str(&s3.SecretAccessKey, r.Artifacts.S3.SecretAccessKey)
	o.flag(&s3.PathStyle, r.Artifacts.S3.PathStyle)
	o.str(&s3.CustomDomain, r.Artifacts.S3.CustomDomain)
	o.str(&s3.Prefix, r.Artifacts.S3.Prefix)

	p, rp := &cfg.Pipeline, r.Pipeline
	o.str(&p.CompanyType, rp.CompanyType)
	o.str(&p.PromotionalGoal, rp.PromotionalGoal)
	o.str(&p.BrandPersonality, rp.BrandPersonality)
	o.num(&p.MaxURLs, rp.MaxURLs)
	o.num(&p.MaxTopics, rp.MaxTopics)
	o.num(&p.AutoSelect, rp.AutoSelect)
	o.num(&p.URLConcurrency, rp.URLConcurrency)
	o.num(&p.TopicConcurrency, rp.TopicConcurrency)
	o.num(&p.Workers, rp.Workers)
	o.flag(&p.BrandSimulation, rp.BrandSimulation)
	o.num(&p.BrandExamples, rp.BrandExamples)
	o.duration(&p.ScrapeCacheTTL, "pipeline.scrape_cache_ttl", rp.ScrapeCacheTTL)
	o.duration(&p.RunRetention, "pipeline.run_retention", rp.RunRetention)

	return o.err
}

// finalize canonicalizes every section and derives DSN and RedisURL.
func (c *AppConfig) finalize() {
	c.Database.normalize()
	c.Redis.normalize()
	c.LLM.normalize()
	c.Artifacts.normalize()
	c.Paths.Logs = strings.TrimSpace(c.Paths.Logs)
	c.Paths.Artifacts = strings.TrimSpace(c.Paths.Artifacts)
	c.Env = strings.ToLower(orDefault(c.Env, defaultEnv))
	c.Firecrawl.Endpoint = trimEndpoint(c.Firecrawl.Endpoint)
	c.DSN = c.Database.DSNValue()
	c.RedisURL = c.Redis.URLValue()
}

func (c *AppConfig) validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(validPort(c.Port), "invalid port %d, expected 1-65535", c.Port)
	switch c.Database.Driver {
	case DriverMySQL:
		check(validPort(c.Database.Port), "invalid database.port %d, expected 1-65535", c.Database.Port)
	case DriverSQLite:
	default:
		check(false, "unsupported database.driver %q, expected mysql or sqlite", c.Database.Driver)
	}
	check(validPort(c.Redis.Port), "invalid redis.port %d, expected 1-65535", c.Redis.Port)
	check(c.Redis.DB >= 0, "invalid redis.db %d, expected >= 0", c.Redis.DB)

	switch c.LLM.Provider {
	case ProviderOpenRouter, ProviderOpenAI, ProviderAnthropic:
	case ProviderOpenAICompatible:
		check(c.LLM.Endpoint != "", "llm.endpoint is required for openai-compatible providers")
	default:
		check(false, "unsupported llm.provider %q", c.LLM.Provider)
	}
	check(c.LLM.MaxTokens > 0, "invalid llm.max_tokens %d, expected > 0", c.LLM.MaxTokens)

	switch c.Artifacts.Driver {
	case ArtifactLocal:
	case ArtifactS3:
		check(c.Artifacts.S3.Bucket != "", "artifacts.s3.bucket is required for the s3 driver")
	default:
		check(false, "unsupported artifacts.driver %q, expected local or s3", c.Artifacts.Driver)
	}
	check(c.Browser.Width > 0 && c.Browser.Height > 0, "invalid browser viewport %dx%d", c.Browser.Width, c.Browser.Height)

	p := c.Pipeline
	for name, v := range map[string]int{
		"pipeline.max_urls":          p.MaxURLs,
		"pipeline.max_topics":        p.MaxTopics,
		"pipeline.auto_select":       p.AutoSelect,
		"pipeline.url_concurrency":   p.URLConcurrency,
		"pipeline.topic_concurrency": p.TopicConcurrency,
		"pipeline.workers":           p.Workers,
	} {
		check(v > 0, "invalid %s %d, expected > 0", name, v)
	}
	if c.RateLimit.Enable {
		check(c.RateLimit.PerSecond > 0, "invalid rate_limit.per_second %d, expected > 0", c.RateLimit.PerSecond)
	}
	return errors.Join(errs...)
}

func validPort(p int) bool { return p > 0 && p <= 65535 }

func parseDuration(raw string, field string, target *time.Duration) error {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", field, v, err)
	}
	if d <= 0 {
		return fmt.Errorf("invalid %s %q, expected a positive duration", field, v)
	}
	*target = d
	return nil
}

// IsDev reports whether the service runs in development mode.
func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(c.Env, defaultEnv)
}

// LogDir is the resolved directory for daily log files.
func (c *AppConfig) LogDir() string {
	var raw string
	if c != nil {
		raw = c.Paths.Logs
	}
	return ResolveRuntimePath(raw, "logs")
}

// ArtifactDir is the resolved directory for locally stored screenshots.
func (c *AppConfig) ArtifactDir() string {
	var raw string
	if c != nil {
		raw = c.Paths.Artifacts
	}
	return ResolveRuntimePath(raw, "artifacts")
}
