package config

import "time"

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"
	defaultPort       = 2333
	defaultEnv        = "development"

	defaultDBDriver   = "mysql"
	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 3306
	defaultDBUser     = "root"
	defaultDBPassword = "password"
	defaultDBName     = "trendjack"
	defaultDBCharset  = "utf8mb4"
	defaultDBLoc      = "Local"
	defaultSQLitePath = "trendjack.db"
	defaultRedisHost  = "localhost"
	defaultRedisPort  = 6379
	defaultRedisDB    = 0

	defaultLLMProvider      = "openrouter"
	defaultOpenRouterURL    = "https://openrouter.ai/api/v1"
	defaultLLMModel         = "openai/gpt-4o"
	defaultAnalysisModel    = "google/gemini-2.5-flash"
	defaultLLMMaxTokens     = 4000
	defaultLLMTemperature   = 0.7
	defaultLLMTimeout       = 120 * time.Second
	defaultFirecrawlURL     = "https://api.firecrawl.dev"
	defaultFirecrawlTimeout = 60 * time.Second

	defaultBrowserWidth   = 1280
	defaultBrowserHeight  = 720
	defaultBrowserTimeout = 30 * time.Second
	defaultBrowserSettle  = 3 * time.Second

	defaultArtifactDriver = "local"

	defaultTokenTTL     = 30 * 24 * time.Hour
	defaultRateLimitMax = 50

	// DefaultCompanyType is the company type used when a request leaves it empty.
	DefaultCompanyType = "AI Engineering Consultancy"
	// DefaultBrandPersonality is the brand personality used when a request leaves it empty.
	DefaultBrandPersonality = "Expert, innovative, authentic"
	// DefaultPromotionalGoal is the promotional goal used when a request leaves it empty.
	DefaultPromotionalGoal = "Showcase AI Engineering Excellence: Position ourselves as the go-to experts for enterprise AI implementation with deep technical capabilities in prompt optimization, agent training, and observability - demonstrating how we turn 'ChatGPT doesn't work for us' into production-ready AI systems with measurable results."

	defaultMaxURLs          = 10
	defaultMaxTopics        = 5
	defaultAutoSelect       = 2
	defaultURLConcurrency   = 3
	defaultTopicConcurrency = 4
	defaultWorkers          = 2
	defaultScrapeCacheTTL   = 6 * time.Hour
	defaultBrandExamples    = 5
	defaultRunRetention     = 30 * 24 * time.Hour
)

// Supported LLM provider types.
const (
	ProviderOpenRouter       = "openrouter"
	ProviderOpenAI           = "openai"
	ProviderAnthropic        = "anthropic"
	ProviderOpenAICompatible = "openai-compatible"
)

// Supported database drivers.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Supported artifact drivers.
const (
	ArtifactLocal = "local"
	ArtifactS3    = "s3"
)
