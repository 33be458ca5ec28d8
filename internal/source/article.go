package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/ppiankov/trackrecord/internal/model"
	"github.com/ppiankov/trackrecord/internal/worker"
)

// ErrRobotsDisallowed indicates robots.txt forbids fetching the URL
var ErrRobotsDisallowed = fmt.Errorf("robots.txt disallows fetch")

// ArticleFetcher retrieves article pages and reduces them to plain text.
// Fetches respect robots.txt and its crawl delay.
type ArticleFetcher struct {
	httpClient *http.Client
	robots     *RobotsGate
	limiter    *worker.Limiter
	userAgent  string
	maxBytes   int64
}

// NewArticleFetcher creates an article fetcher from the HTTP config.
// limiter may be nil when the caller does not need domain throttling.
func NewArticleFetcher(cfg model.HTTPConfig, limiter *worker.Limiter) *ArticleFetcher {
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 2_000_000
	}
	return &ArticleFetcher{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		robots:    NewRobotsGate(cfg.UserAgent, cfg.Timeout),
		limiter:   limiter,
		userAgent: cfg.UserAgent,
		maxBytes:  maxBytes,
	}
}

// FetchText retrieves the URL and returns its visible text content
func (f *ArticleFetcher) FetchText(ctx context.Context, rawURL string) (string, error) {
	allowed, delay, err := f.robots.Allowed(ctx, rawURL)
	if err != nil {
		return "", err
	}
	if !allowed {
		return "", fmt.Errorf("%w: %s", ErrRobotsDisallowed, rawURL)
	}
	if f.limiter != nil {
		if err := f.limiter.WaitWithDelay(ctx, rawURL, delay); err != nil {
			return "", err
		}
	} else if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d for %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return ExtractText(string(body)), nil
}

// skipElements are containers whose text is never article prose
var skipElements = map[string]bool{
	"script": true, "style": true, "noscript": true,
	"nav": true, "header": true, "footer": true, "aside": true,
	"form": true, "iframe": true,
}

// ExtractText reduces an HTML document to its visible text, with
// whitespace collapsed. Unparseable input comes back as-is.
func ExtractText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return strings.TrimSpace(htmlContent)
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(strings.Fields(sb.String()), " ")
}
