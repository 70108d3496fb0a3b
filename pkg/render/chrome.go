package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/chromedp/chromedp"

	"scrapejob/pkg/content"
	"scrapejob/pkg/httpclient"
)

// Chrome renders pages in a headless Chrome process owned by this value.
type Chrome struct {
	cfg          Config
	profileDir   string
	browserCtx   context.Context
	cancelAlloc  context.CancelFunc
	cancelBrowse context.CancelFunc
}

// NewChrome starts a headless browser with a private profile directory.
// The browser lives until Close, independent of ctx cancellation after start.
func NewChrome(ctx context.Context, cfg Config) (*Chrome, error) {
	profileDir, err := os.MkdirTemp(cfg.TempDir, "scrapejob-chrome-")
	if err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}
	for _, sub := range []string{"user-data", "data-path", "cache-dir"} {
		if err := os.MkdirAll(filepath.Join(profileDir, sub), 0o755); err != nil {
			_ = os.RemoveAll(profileDir)
			return nil, fmt.Errorf("create profile dir: %w", err)
		}
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = httpclient.DefaultUserAgent
	}
	width, height := cfg.WindowWidth, cfg.WindowHeight
	if width <= 0 || height <= 0 {
		width, height = 1920, 1080
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.WindowSize(width, height),
		chromedp.UserAgent(ua),
		chromedp.UserDataDir(filepath.Join(profileDir, "user-data")),
		chromedp.Flag("incognito", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("single-process", true),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("data-path", filepath.Join(profileDir, "data-path")),
		chromedp.Flag("disk-cache-dir", filepath.Join(profileDir, "cache-dir")),
		chromedp.Flag("homedir", profileDir),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	browserCtx, cancelBrowse := chromedp.NewContext(allocCtx)

	c := &Chrome{
		cfg:          cfg,
		profileDir:   profileDir,
		browserCtx:   browserCtx,
		cancelAlloc:  cancelAlloc,
		cancelBrowse: cancelBrowse,
	}

	// an empty Run launches the browser so start-up failures surface here
	if err := chromedp.Run(browserCtx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	slog.DebugContext(ctx, "chrome started", "profile", profileDir)
	return c, nil
}

// Render navigates to url, records the title, waits the configured delay for
// client-side content and returns the document's outer HTML.
func (c *Chrome) Render(ctx context.Context, url string) (*Page, error) {
	runCtx, cancel := context.WithCancel(c.browserCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var title, html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.Title(&title),
		chromedp.Sleep(c.cfg.Wait),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", url, err)
	}

	if title == "" {
		title, _ = content.ExtractTitle(html, url)
	}

	return &Page{URL: url, Title: title, HTML: html}, nil
}

// Close quits the browser and removes its profile directory.
func (c *Chrome) Close() error {
	c.cancelBrowse()
	c.cancelAlloc()
	if err := os.RemoveAll(c.profileDir); err != nil {
		return fmt.Errorf("remove profile dir: %w", err)
	}
	return nil
}
