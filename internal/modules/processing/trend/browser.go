package trend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/trendjack/core/internal/config"
	"go.uber.org/zap"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Capture is what a rendered page looked like.
type Capture struct {
	Screenshot  []byte   `json:"-"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Headings    []string `json:"headings"`
	Text        string   `json:"-"`
}

// VisualDescription summarises the capture for the visual analysis prompt.
func (c *Capture) VisualDescription(rawURL string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Screenshot of webpage from %s showing the main content area and layout", rawURL)
	if c.Title != "" {
		fmt.Fprintf(&sb, ". Title: %s", c.Title)
	}
	if c.Description != "" {
		fmt.Fprintf(&sb, ". Description: %s", c.Description)
	}
	if len(c.Headings) > 0 {
		fmt.Fprintf(&sb, ". Headings: %s", strings.Join(c.Headings, "; "))
	}
	return sb.String()
}

// Capturer renders a URL in a browser.
type Capturer interface {
	Capture(ctx context.Context, rawURL string) (*Capture, error)
}

// Browser captures pages with headless Chrome.
type Browser struct {
	cfg    config.BrowserConfig
	logger *zap.Logger
}

func NewBrowser(cfg config.BrowserConfig, logger *zap.Logger) *Browser {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Width <= 0 {
		cfg.Width = 1280
	}
	if cfg.Height <= 0 {
		cfg.Height = 720
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return &Browser{cfg: cfg, logger: logger.Named("Browser")}
}

func (b *Browser) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(b.cfg.UserAgent),
		chromedp.WindowSize(b.cfg.Width, b.cfg.Height),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)
	if b.cfg.Headless {
		opts = append(opts, chromedp.Flag("disable-gpu", true))
	}
	return opts
}

const pageSummaryJS = `(() => {
  const meta = document.querySelector('meta[name="description"]') || document.querySelector('meta[property="og:description"]');
  return {
    title: document.title || "",
    description: meta ? (meta.content || "") : "",
    headings: Array.from(document.querySelectorAll('h1, h2')).map(h => (h.innerText || "").trim()).filter(Boolean).slice(0, 3),
    text: document.body ? (document.body.innerText || "").slice(0, 20000) : ""
  };
})()`

type pageSummary struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Headings    []string `json:"headings"`
	Text        string   `json:"text"`
}

// Capture loads rawURL, waits for the settle delay and grabs a viewport PNG
// plus the page's title, description, headings and visible text.
func (b *Browser) Capture(ctx context.Context, rawURL string) (*Capture, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, b.allocatorOptions()...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	browserCtx, timeoutCancel := context.WithTimeout(browserCtx, b.cfg.Timeout+b.cfg.SettleDelay)
	defer timeoutCancel()

	var (
		summary pageSummary
		shot    []byte
	)
	started := time.Now()
	err := chromedp.Run(browserCtx,
		chromedp.EmulateViewport(int64(b.cfg.Width), int64(b.cfg.Height)),
		chromedp.Navigate(rawURL),
		chromedp.Sleep(b.cfg.SettleDelay),
		chromedp.Evaluate(pageSummaryJS, &summary),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			shot, err = page.CaptureScreenshot().WithFormat(page.CaptureScreenshotFormatPng).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("capture %s: %w", rawURL, err)
	}

	b.logger.Debug("page captured",
		zap.String("url", rawURL),
		zap.Int("bytes", len(shot)),
		zap.Duration("took", time.Since(started)))

	return &Capture{
		Screenshot:  shot,
		Title:       strings.TrimSpace(summary.Title),
		Description: strings.TrimSpace(summary.Description),
		Headings:    summary.Headings,
		Text:        summary.Text,
	}, nil
}
