package trend

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/trendjack/core/internal/config"
	"github.com/trendjack/core/internal/modules/processing/llm"
	redisc "github.com/trendjack/core/internal/pkg/redis"
	"go.uber.org/zap"
)

var ErrNoFirecrawlKey = errors.New("firecrawl api key not configured")

const scrapeCachePrefix = "trendjack:scrape:"

// Page is a scraped page.
type Page struct {
	URL      string       `json:"url"`
	Markdown string       `json:"markdown"`
	Metadata PageMetadata `json:"metadata"`
}

type PageMetadata struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	SourceURL   string `json:"sourceURL,omitempty"`
	StatusCode  int    `json:"statusCode,omitempty"`
}

// Scraper fetches page text for a URL.
type Scraper interface {
	Scrape(ctx context.Context, rawURL string) (*Page, error)
}

// Firecrawl calls the hosted Firecrawl scrape API.
type Firecrawl struct {
	cfg        config.FirecrawlConfig
	httpClient *http.Client
	cache      *redisc.Client
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// NewFirecrawl creates a client. cache may be nil.
func NewFirecrawl(cfg config.FirecrawlConfig, cache *redisc.Client, cacheTTL time.Duration, logger *zap.Logger) *Firecrawl {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.firecrawl.dev"
	}
	return &Firecrawl{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     logger.Named("Firecrawl"),
	}
}

// Configured reports whether an API key is present.
func (f *Firecrawl) Configured() bool { return strings.TrimSpace(f.cfg.APIKey) != "" }

type scrapeRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
}

type scrapeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		Markdown string       `json:"markdown"`
		Metadata PageMetadata `json:"metadata"`
	} `json:"data"`
}

// Scrape returns the main content of rawURL as markdown.
func (f *Firecrawl) Scrape(ctx context.Context, rawURL string) (*Page, error) {
	if !f.Configured() {
		return nil, ErrNoFirecrawlKey
	}

	cacheKey := scrapeCacheKey(rawURL)
	if f.cache != nil && f.cacheTTL > 0 {
		var cached Page
		found, err := f.cache.GetJSON(ctx, cacheKey, &cached)
		if err != nil {
			f.logger.Warn("scrape cache read failed", zap.String("url", rawURL), zap.Error(err))
		} else if found {
			return &cached, nil
		}
	}

	body, err := json.Marshal(scrapeRequest{
		URL:             rawURL,
		Formats:         []string{"markdown"},
		OnlyMainContent: f.cfg.OnlyMainContent,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(f.cfg.Endpoint, "/")+"/v1/scrape", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.cfg.APIKey)

	started := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("firecrawl request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("firecrawl read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("firecrawl returned %d: %s", resp.StatusCode, llm.Truncate(strings.TrimSpace(string(data)), 200))
	}

	var out scrapeResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("firecrawl decode: %w", err)
	}
	if !out.Success {
		msg := out.Error
		if msg == "" {
			msg = "unknown error"
		}
		return nil, fmt.Errorf("firecrawl scrape failed: %s", msg)
	}

	page := &Page{URL: rawURL, Markdown: out.Data.Markdown, Metadata: out.Data.Metadata}
	f.logger.Debug("scraped",
		zap.String("url", rawURL),
		zap.Int("chars", len(page.Markdown)),
		zap.Duration("took", time.Since(started)))

	if f.cache != nil && f.cacheTTL > 0 && page.Markdown != "" {
		if err := f.cache.SetJSON(ctx, cacheKey, page, f.cacheTTL); err != nil {
			f.logger.Warn("scrape cache write failed", zap.String("url", rawURL), zap.Error(err))
		}
	}
	return page, nil
}

func scrapeCacheKey(rawURL string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(rawURL)))
	return scrapeCachePrefix + hex.EncodeToString(sum[:])
}
