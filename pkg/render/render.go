// Package render turns a URL into the final HTML of the page.
package render

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Engine names accepted by Acquire.
const (
	EngineChrome = "chrome"
	EngineHTTP   = "http"
)

// Header profiles presented by the http engine.
const (
	ProfileBrowser = "browser"
	ProfileCurl    = "curl"
)

// ErrUnknownEngine is returned by Acquire for an unsupported engine name.
var ErrUnknownEngine = errors.New("unknown render engine")

// ErrUnknownProfile is returned for an unsupported http header profile.
var ErrUnknownProfile = errors.New("unknown http profile")

// Page is a rendered page.
type Page struct {
	URL   string
	Title string
	HTML  string
}

// Renderer obtains the fully rendered HTML of a page. Close releases the
// underlying browser or connection pool and must be called exactly once.
type Renderer interface {
	Render(ctx context.Context, url string) (*Page, error)
	Close() error
}

// Config selects and tunes the render engine.
type Config struct {
	Engine       string
	ExecPath     string
	UserAgent    string
	Wait         time.Duration
	WindowWidth  int
	WindowHeight int
	// HTTPProfile picks the request headers of the http engine. Sites behind
	// Cloudflare often reject browser-like headers but accept curl.
	HTTPProfile string
	// TempDir is the parent of the browser's private profile directory.
	TempDir string
}

// Factory acquires a fresh Renderer for one run.
type Factory func(ctx context.Context) (Renderer, error)

// Acquire starts a renderer for cfg.Engine. Callers own the result and must Close it.
func Acquire(ctx context.Context, cfg Config) (Renderer, error) {
	switch cfg.Engine {
	case EngineChrome, "":
		return NewChrome(ctx, cfg)
	case EngineHTTP:
		h, err := NewHTTP(cfg)
		if err != nil {
			return nil, err
		}
		return h, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, cfg.Engine)
	}
}

// NewFactory binds cfg into a Factory.
func NewFactory(cfg Config) Factory {
	return func(ctx context.Context) (Renderer, error) {
		return Acquire(ctx, cfg)
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
