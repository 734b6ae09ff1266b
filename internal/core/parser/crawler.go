package parser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/knova-io/knova/internal/logger"
)

const maxCrawlBodyBytes = 10 << 20

// CrawlResult carries the extracted page text and, for HTML pages, the
// <title> used as the document's display name.
type CrawlResult struct {
	Text  string
	Title string
}

// Crawl fetches a URL with browser-like headers and routes the body through
// the PDF or HTML parser based on content type. HTTP 403 is surfaced as
// ErrCrawlBlocked so callers can report bot protection distinctly.
func Crawl(ctx context.Context, rawURL string, timeout time.Duration) (*CrawlResult, error) {
	client := &http.Client{Timeout: timeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return nil, ErrCrawlBlocked
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCrawlBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/pdf") || strings.HasSuffix(strings.ToLower(req.URL.Path), ".pdf") {
		text, err := ParsePDF(body)
		if err != nil {
			return nil, err
		}
		return &CrawlResult{Text: text}, nil
	}

	text, title, err := ParseHTML(body)
	if err != nil {
		return nil, err
	}
	logger.Debug("crawled page", zap.String("url", rawURL), zap.Int("chars", len(text)))
	return &CrawlResult{Text: text, Title: title}, nil
}
