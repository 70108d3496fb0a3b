// Package content reads page-level metadata out of rendered HTML.
package content

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

var errNoTitle = errors.New("title not found in HTML")

// ExtractTitle returns the page title with fallback mechanisms:
// <title>, readability's article title, <h1>, then og:title and meta title.
func ExtractTitle(htmlContent, pageURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title, nil
	}

	// readability wants a base URL; a bad one only disables link resolution
	base, _ := url.Parse(pageURL)
	if article, err := readability.FromReader(strings.NewReader(htmlContent), base); err == nil {
		if title := strings.TrimSpace(article.Title); title != "" {
			return title, nil
		}
	}

	if title := strings.TrimSpace(doc.Find("h1").First().Text()); title != "" {
		return title, nil
	}

	if title, exists := doc.Find("meta[property='og:title']").Attr("content"); exists && strings.TrimSpace(title) != "" {
		return strings.TrimSpace(title), nil
	}

	if title, exists := doc.Find("meta[name='title']").Attr("content"); exists && strings.TrimSpace(title) != "" {
		return strings.TrimSpace(title), nil
	}

	return "", errNoTitle
}
