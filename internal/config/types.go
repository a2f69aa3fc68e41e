package config

import "time"

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int
	DSN            string // resolved database DSN
	RedisURL       string
	Database       DatabaseRuntimeConfig
	Redis          RedisRuntimeConfig
	Env            string // "development" | "production"
	Paths          RuntimePathsConfig
	AllowedOrigins []string
	Timezone       string
	Auth           AuthConfig
	RateLimit      RateLimitConfig
	LLM            LLMConfig
	Firecrawl      FirecrawlConfig
	Browser        BrowserConfig
	Artifacts      ArtifactConfig
	Pipeline       PipelineConfig
}

type DatabaseRuntimeConfig struct {
	Driver    string
	DSN       string
	Path      string // sqlite file, ":memory:" allowed
	Host      string
	Port      int
	User      string
	Password  string
	Name      string
	Charset   string
	ParseTime bool
	Loc       string
	Params    map[string]string
	LogLevel  string
}

type RedisRuntimeConfig struct {
	URL      string
	Host     string
	Port     int
	Username string
	Password string
	DB       int
	TLS      bool
	Scheme   string
	Params   map[string]string
}

type RuntimePathsConfig struct {
	Logs      string
	Artifacts string
}

type AuthConfig struct {
	Enable    bool
	JWTSecret string
	TokenTTL  time.Duration
}

type RateLimitConfig struct {
	Enable    bool
	PerSecond int
}

// LLMConfig selects the chat-completion provider used by every pipeline stage.
type LLMConfig struct {
	Provider      string
	APIKey        string
	Endpoint      string
	Model         string
	AnalysisModel string
	MaxTokens     int
	Temperature   float64
	Timeout       time.Duration
}

type FirecrawlConfig struct {
	APIKey          string
	Endpoint        string
	Timeout         time.Duration
	OnlyMainContent bool
}

// BrowserConfig controls headless page capture.
type BrowserConfig struct {
	Enable      bool
	Headless    bool
	Width       int
	Height      int
	Timeout     time.Duration
	SettleDelay time.Duration
	UserAgent   string
}

type ArtifactConfig struct {
	Driver string
	S3     S3Config
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
	CustomDomain    string
	Prefix          string
}

// PipelineConfig holds generation defaults and limits.
type PipelineConfig struct {
	CompanyType      string
	PromotionalGoal  string
	BrandPersonality string
	MaxURLs          int
	MaxTopics        int
	AutoSelect       int
	URLConcurrency   int
	TopicConcurrency int
	Workers          int
	ScrapeCacheTTL   time.Duration
	BrandSimulation  bool
	BrandExamples    int
	RunRetention     time.Duration
}

type rawAppConfig struct {
	Port           int                `yaml:"port"`
	DSN            string             `yaml:"dsn"`
	RedisURL       string             `yaml:"redis_url"`
	Database       rawDatabaseConfig  `yaml:"database"`
	Redis          rawRedisConfig     `yaml:"redis"`
	Env            string             `yaml:"env"`
	Paths          rawPathsConfig     `yaml:"paths"`
	LogDir         string             `yaml:"log_dir"`
	AllowedOrigins []string           `yaml:"allowed_origins"`
	JWTSecret      string             `yaml:"jwt_secret"`
	Timezone       string             `yaml:"timezone"`
	TZ             string             `yaml:"tz"`
	Auth           rawAuthConfig      `yaml:"auth"`
	RateLimit      rawRateLimitConfig `yaml:"rate_limit"`
	LLM            rawLLMConfig       `yaml:"llm"`
	Firecrawl      rawFirecrawlConfig `yaml:"firecrawl"`
	Browser        rawBrowserConfig   `yaml:"browser"`
	Artifacts      rawArtifactConfig  `yaml:"artifacts"`
	Pipeline       rawPipelineConfig  `yaml:"pipeline"`
}

type rawDatabaseConfig struct {
	Driver    string            `yaml:"driver"`
	DSN       string            `yaml:"dsn"`
	URL       string            `yaml:"url"`
	Path      string            `yaml:"path"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Username  string            `yaml:"username"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	Charset   string            `yaml:"charset"`
	ParseTime *bool             `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	Params    map[string]string `yaml:"params"`
	LogLevel  string            `yaml:"log_level"`
}

type rawRedisConfig struct {
	URL      string            `yaml:"url"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	DB       *int              `yaml:"db"`
	TLS      *bool             `yaml:"tls"`
	Scheme   string            `yaml:"scheme"`
	Params   map[string]string `yaml:"params"`
}

type rawPathsConfig struct {
	Logs      string `yaml:"logs"`
	Artifacts string `yaml:"artifacts"`
}

type rawAuthConfig struct {
	Enable    *bool  `yaml:"enable"`
	JWTSecret string `yaml:"jwt_secret"`
	TokenTTL  string `yaml:"token_ttl"`
}

type rawRateLimitConfig struct {
	Enable    *bool `yaml:"enable"`
	PerSecond int   `yaml:"per_second"`
}

type rawLLMConfig struct {
	Provider      string   `yaml:"provider"`
	APIKey        string   `yaml:"api_key"`
	Endpoint      string   `yaml:"endpoint"`
	Model         string   `yaml:"model"`
	AnalysisModel string   `yaml:"analysis_model"`
	MaxTokens     int      `yaml:"max_tokens"`
	Temperature   *float64 `yaml:"temperature"`
	Timeout       string   `yaml:"timeout"`
}

type rawFirecrawlConfig struct {
	APIKey          string `yaml:"api_key"`
	Endpoint        string `yaml:"endpoint"`
	Timeout         string `yaml:"timeout"`
	OnlyMainContent *bool  `yaml:"only_main_content"`
}

type rawBrowserConfig struct {
	Enable      *bool  `yaml:"enable"`
	Headless    *bool  `yaml:"headless"`
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	Timeout     string `yaml:"timeout"`
	SettleDelay string `yaml:"settle_delay"`
	UserAgent   string `yaml:"user_agent"`
}

type rawArtifactConfig struct {
	Driver string      `yaml:"driver"`
	S3     rawS3Config `yaml:"s3"`
}

type rawS3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PathStyle       *bool  `yaml:"path_style"`
	CustomDomain    string `yaml:"custom_domain"`
	Prefix          string `yaml:"prefix"`
}

type rawPipelineConfig struct {
	CompanyType      string `yaml:"company_type"`
	PromotionalGoal  string `yaml:"promotional_goal"`
	BrandPersonality string `yaml:"brand_personality"`
	MaxURLs          int    `yaml:"max_urls"`
	MaxTopics        int    `yaml:"max_topics"`
	AutoSelect       int    `yaml:"auto_select"`
	URLConcurrency   int    `yaml:"url_concurrency"`
	TopicConcurrency int    `yaml:"topic_concurrency"`
	Workers          int    `yaml:"workers"`
	ScrapeCacheTTL   string `yaml:"scrape_cache_ttl"`
	BrandSimulation  *bool  `yaml:"brand_simulation"`
	BrandExamples    int    `yaml:"brand_examples"`
	RunRetention     string `yaml:"run_retention"`
}
