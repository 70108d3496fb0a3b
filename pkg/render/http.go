package render

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"scrapejob/pkg/content"
	"scrapejob/pkg/httpclient"
)

// HTTP renders pages with a plain GET. It does not run JavaScript, so it only
// suits pages whose records are present in the served markup.
type HTTP struct {
	client *httpclient.HTTPClient
	cfg    Config
}

// NewHTTP creates an HTTP renderer presenting the headers of cfg.HTTPProfile,
// browser-like by default.
func NewHTTP(cfg Config) (*HTTP, error) {
	var clientType httpclient.ClientType
	switch cfg.HTTPProfile {
	case ProfileBrowser, "":
		clientType = httpclient.BrowserClient
	case ProfileCurl:
		clientType = httpclient.CloudflareClient
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, cfg.HTTPProfile)
	}
	return &HTTP{
		client: httpclient.NewClient(clientType, httpclient.WithUserAgent(cfg.UserAgent)),
		cfg:    cfg,
	}, nil
}

// Render fetches url, then waits the configured delay to keep the timing of
// both engines comparable.
func (h *HTTP) Render(ctx context.Context, url string) (*Page, error) {
	resp, err := h.client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("render %s: unexpected status code: %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("render %s: failed to read response body: %w", url, err)
	}

	if err := sleep(ctx, h.cfg.Wait); err != nil {
		return nil, fmt.Errorf("render %s: %w", url, err)
	}

	html := string(body)
	title, _ := content.ExtractTitle(html, url)
	return &Page{URL: url, Title: title, HTML: html}, nil
}

// Close is a no-op; idle connections are reused across renders.
func (h *HTTP) Close() error {
	return nil
}
