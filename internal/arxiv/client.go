// Package arxiv searches the arXiv preprint index by title.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/alps-lab/alps/internal/reconcile"
)

const (
	// BaseURL is the arXiv export API base URL.
	BaseURL = "https://export.arxiv.org/api"

	// DefaultTimeout bounds each HTTP request.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the number of entries requested per search.
	DefaultMaxResults = 50

	// DefaultRateInterval is the minimum spacing between requests that
	// arXiv asks API users to keep.
	DefaultRateInterval = 3 * time.Second

	// maxBodySize caps how much of a response is read.
	maxBodySize = 10 << 20
)

// Client is a rate-limited HTTP client for the arXiv query API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	maxResults int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithMaxResults sets how many entries each search asks for.
func WithMaxResults(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxResults = n
		}
	}
}

// WithRateInterval sets the minimum spacing between requests. Zero
// disables pacing.
func WithRateInterval(d time.Duration) ClientOption {
	return func(c *Client) {
		c.limiter = newLimiter(d)
	}
}

// NewClient creates a new arXiv client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    newLimiter(DefaultRateInterval),
		baseURL:    BaseURL,
		maxResults: DefaultMaxResults,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// Query returns the search string sent for a record title. Hyphens are
// replaced with spaces since the arXiv query parser treats them as
// operators.
func Query(title string) string {
	return strings.ReplaceAll(title, "-", " ")
}

// Search returns the entries arXiv lists for title, in feed order.
func (c *Client) Search(ctx context.Context, title string) ([]reconcile.ArXivHit, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	params := url.Values{}
	params.Set("search_query", Query(title))
	params.Set("max_results", strconv.Itoa(c.maxResults))
	reqURL := c.baseURL + "/query?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/atom+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if err := checkHTTPErrors(resp); err != nil {
		return nil, err
	}

	var feed Feed
	if err := xml.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&feed); err != nil {
		return nil, fmt.Errorf("%w: decoding feed: %v", ErrInvalidResponse, err)
	}

	hits := make([]reconcile.ArXivHit, 0, len(feed.Entries))
	for i := range feed.Entries {
		hits = append(hits, entryToHit(&feed.Entries[i]))
	}
	return hits, nil
}

// checkHTTPErrors returns an error if the HTTP response indicates a problem.
func checkHTTPErrors(resp *http.Response) error {
	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	return nil
}

// entryToHit converts a feed entry. Titles are wrapped across lines in the
// feed, so whitespace is collapsed. An unparsable published date leaves
// Published zero.
func entryToHit(e *Entry) reconcile.ArXivHit {
	hit := reconcile.ArXivHit{
		Title: strings.Join(strings.Fields(e.Title), " "),
		ID:    strings.TrimSpace(e.ID),
	}
	for _, a := range e.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			hit.Authors = append(hit.Authors, name)
		}
	}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Published)); err == nil {
		hit.Published = t
	}
	return hit
}
