package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxFeedSize bounds how much of a response body is read.
const maxFeedSize = 10 << 20

// Fetcher fetches and parses one source. Failures are reported in the
// result, never panicked or returned separately.
type Fetcher interface {
	Fetch(ctx context.Context, url string) FetchResult
}

var _ Fetcher = (*HTTPFetcher)(nil)

type HTTPFetcher struct {
	httpClient *http.Client
	parser     *Parser
	userAgent  string
	timeout    time.Duration
}

func NewHTTPFetcher(httpClient *http.Client, parser *Parser, userAgent string, timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout * time.Second
	}
	return &HTTPFetcher{
		httpClient: httpClient,
		parser:     parser,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) FetchResult {
	data, err := f.fetchFeed(ctx, url)
	if err != nil {
		return FetchResult{Err: err}
	}

	title, entries, err := f.parser.Run(data)
	if err != nil {
		return FetchResult{Err: err}
	}

	return FetchResult{FeedTitle: title, Entries: entries}
}

func (f *HTTPFetcher) fetchFeed(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
