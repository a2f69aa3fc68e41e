package config

import "strings"

func (c *DatabaseRuntimeConfig) normalize() {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	switch c.Driver {
	case "", "mariadb":
		c.Driver = DriverMySQL
	case "sqlite3":
		c.Driver = DriverSQLite
	}
	c.DSN = strings.TrimSpace(c.DSN)
	c.Path = strings.TrimSpace(c.Path)
	if c.Driver == DriverSQLite && c.Path == "" && c.DSN == "" {
		c.Path = defaultSQLitePath
	}
	c.Host = orDefault(c.Host, defaultDBHost)
	c.Port = orDefaultInt(c.Port, defaultDBPort)
	c.User = orDefault(c.User, defaultDBUser)
	c.Password = orDefault(c.Password, defaultDBPassword)
	c.Name = orDefault(c.Name, defaultDBName)
	c.Charset = orDefault(c.Charset, defaultDBCharset)
	c.Loc = orDefault(c.Loc, defaultDBLoc)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.Params != nil {
		c.Params = trimmedParams(c.Params)
	}
}

func (c *RedisRuntimeConfig) normalize() {
	c.URL = withRedisScheme(c.URL)
	c.Host = strings.TrimSpace(c.Host)
	if c.Host == "" && c.URL == "" {
		c.Host = defaultRedisHost
	}
	c.Port = orDefaultInt(c.Port, defaultRedisPort)
	c.Username = strings.TrimSpace(c.Username)
	c.Password = strings.TrimSpace(c.Password)
	c.Scheme = strings.ToLower(strings.TrimSpace(c.Scheme))
	if c.Scheme == "" {
		c.Scheme = "redis"
		if c.TLS {
			c.Scheme = "rediss"
		}
	}
	if c.Params != nil {
		c.Params = trimmedParams(c.Params)
	}
}

// withRedisScheme accepts bare host:port/db values.
func withRedisScheme(raw string) string {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return ""
	case strings.HasPrefix(raw, "redis://"), strings.HasPrefix(raw, "rediss://"):
		return raw
	default:
		return "redis://" + raw
	}
}

var providerAliases = map[string]string{
	"":                  ProviderOpenRouter,
	"open-router":       ProviderOpenRouter,
	"openai_compatible": ProviderOpenAICompatible,
	"openai-compat":     ProviderOpenAICompatible,
	"compatible":        ProviderOpenAICompatible,
	"claude":            ProviderAnthropic,
}

func canonicalProvider(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if alias, ok := providerAliases[name]; ok {
		return alias
	}
	return name
}

func (c *LLMConfig) normalize() {
	c.Provider = canonicalProvider(c.Provider)
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.Endpoint = trimEndpoint(c.Endpoint)
	c.Model = strings.TrimSpace(c.Model)
	c.AnalysisModel = strings.TrimSpace(c.AnalysisModel)
	if c.Provider == ProviderOpenRouter {
		c.Endpoint = orDefault(c.Endpoint, defaultOpenRouterURL)
		c.Model = orDefault(c.Model, defaultLLMModel)
		c.AnalysisModel = orDefault(c.AnalysisModel, defaultAnalysisModel)
	}
	c.AnalysisModel = orDefault(c.AnalysisModel, c.Model)
	c.Temperature = max(c.Temperature, 0)
}

func (c *ArtifactConfig) normalize() {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	s3 := &c.S3
	s3.Bucket = strings.TrimSpace(s3.Bucket)
	s3.Region = orDefault(s3.Region, "auto")
	s3.Endpoint = trimEndpoint(s3.Endpoint)
	if s3.Endpoint != "" && !strings.Contains(s3.Endpoint, "://") {
		s3.Endpoint = "https://" + s3.Endpoint
	}
	s3.CustomDomain = trimEndpoint(s3.CustomDomain)
	s3.Prefix = strings.Trim(strings.TrimSpace(s3.Prefix), "/")
}

func trimEndpoint(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	return out
}
