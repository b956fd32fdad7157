package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ggorockee/partfinder/internal/config"
	"github.com/ggorockee/partfinder/pkg/models"
)

// maxPageBytes upper bound on a catalog page body
const maxPageBytes = 4 << 20

// Fetcher loads the HTML of a catalog page
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// NewFetcher builds the fetcher selected by CATALOG_FETCHER
func NewFetcher(cfg *config.CatalogConfig) (Fetcher, error) {
	switch cfg.Fetcher {
	case "", "http":
		return NewHTTPFetcher(cfg.Timeout, cfg.UserAgent), nil
	case "chromedp":
		return &ChromeFetcher{Headless: cfg.Headless, UserAgent: cfg.UserAgent, Timeout: cfg.Timeout}, nil
	default:
		return nil, fmt.Errorf("unsupported catalog fetcher %q", cfg.Fetcher)
	}
}

// HTTPFetcher plain GET with a browser User-Agent
type HTTPFetcher struct {
	httpClient *http.Client
	userAgent  string
}

// NewHTTPFetcher creates an HTTPFetcher with the given request timeout
func NewHTTPFetcher(timeout time.Duration, userAgent string) *HTTPFetcher {
	return &HTTPFetcher{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: userAgent,
	}
}

// Fetch implements Fetcher
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", models.ErrNetwork, err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: unexpected status code %d", models.ErrNetwork, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", models.ErrNetwork, err)
	}
	return string(body), nil
}

// ChromeFetcher renders the page in a headless browser before reading it
type ChromeFetcher struct {
	Headless  bool
	UserAgent string
	Timeout   time.Duration
}

// Fetch implements Fetcher
func (f *ChromeFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", f.Headless),
		chromedp.UserAgent(f.UserAgent),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(bctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("%w: render %s: %v", models.ErrNetwork, url, err)
	}
	return html, nil
}
