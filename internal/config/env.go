package config

import "strings"

// Environment variables that override file values.
const (
	EnvOpenRouterKey = "OPENROUTER_API_KEY"
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvAnthropicKey  = "ANTHROPIC_API_KEY"
	EnvFirecrawlKey  = "FIRECRAWL_API_KEY"
	EnvDatabaseDSN   = "TRENDJACK_DATABASE_DSN"
	EnvRedisURL      = "TRENDJACK_REDIS_URL"
	EnvJWTSecret     = "TRENDJACK_JWT_SECRET"
)

type lookupFunc func(key string) (string, bool)

func applyEnvOverrides(cfg *AppConfig, lookup lookupFunc) {
	get := func(key string) string {
		v, ok := lookup(key)
		if !ok {
			return ""
		}
		return strings.TrimSpace(v)
	}

	provider := canonicalProvider(cfg.LLM.Provider)
	var keyEnv string
	switch provider {
	case ProviderOpenRouter:
		keyEnv = EnvOpenRouterKey
	case ProviderOpenAI:
		keyEnv = EnvOpenAIKey
	case ProviderAnthropic:
		keyEnv = EnvAnthropicKey
	}
	if keyEnv != "" {
		if v := get(keyEnv); v != "" {
			cfg.LLM.APIKey = v
		}
	}
	if v := get(EnvFirecrawlKey); v != "" {
		cfg.Firecrawl.APIKey = v
	}
	if v := get(EnvDatabaseDSN); v != "" {
		cfg.Database.DSN = v
	}
	if v := get(EnvRedisURL); v != "" {
		cfg.Redis.URL = v
	}
	if v := get(EnvJWTSecret); v != "" {
		cfg.Auth.JWTSecret = v
	}
}
