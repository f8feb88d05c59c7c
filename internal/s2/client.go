// Package s2 looks papers up in the Semantic Scholar Graph API, by
// identifier or by title.
package s2

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/alps-lab/alps/internal/reconcile"
)

const (
	// BaseURL is the Graph API base URL.
	BaseURL = "https://api.semanticscholar.org/graph/v1"

	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv = "S2_API_KEY"

	// DefaultTimeout bounds each HTTP request.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the number of papers requested per title search.
	DefaultMaxResults = 3

	// DefaultRateInterval is the request spacing for unauthenticated use.
	DefaultRateInterval = time.Second

	// KeyedRateInterval is the request spacing allowed with an API key.
	KeyedRateInterval = 100 * time.Millisecond

	// paperFields are the fields requested for every paper.
	paperFields = "title,year,externalIds"

	// maxBodySize caps how much of a response is read.
	maxBodySize = 10 << 20
)

// Client is a rate-limited HTTP client for the Graph API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	apiKey     string
	baseURL    string
	maxResults int

	interval    time.Duration
	intervalSet bool
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the API key sent in the x-api-key header.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

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

// WithMaxResults sets how many papers each title search asks for.
func WithMaxResults(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxResults = n
		}
	}
}

// WithRateInterval sets the minimum spacing between requests. Zero
// disables pacing. Without this option the spacing depends on whether an
// API key is set.
func WithRateInterval(d time.Duration) ClientOption {
	return func(c *Client) {
		c.interval = d
		c.intervalSet = true
	}
}

// NewClient creates a new Semantic Scholar client. The API key defaults to
// the S2_API_KEY environment variable.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		apiKey:     os.Getenv(APIKeyEnv),
		baseURL:    BaseURL,
		maxResults: DefaultMaxResults,
	}
	for _, opt := range opts {
		opt(c)
	}
	if !c.intervalSet {
		c.interval = DefaultRateInterval
		if c.apiKey != "" {
			c.interval = KeyedRateInterval
		}
	}
	c.limiter = newLimiter(c.interval)
	return c
}

func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// Paper looks up one paper by raw ID or prefixed identifier such as
// "ARXIV:1706.03762". It returns an error matching ErrNotFound when the
// paper is not indexed.
func (c *Client) Paper(ctx context.Context, id string) (reconcile.S2Hit, error) {
	params := url.Values{}
	params.Set("fields", paperFields)

	var p Paper
	if err := c.get(ctx, "/paper/"+id, params, id, &p); err != nil {
		return reconcile.S2Hit{}, err
	}
	if p.PaperID == "" {
		return reconcile.S2Hit{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return toHit(&p), nil
}

// Search returns the papers Semantic Scholar lists for title, in
// relevance order.
func (c *Client) Search(ctx context.Context, title string) ([]reconcile.S2Hit, error) {
	params := url.Values{}
	params.Set("query", title)
	params.Set("limit", strconv.Itoa(c.maxResults))
	params.Set("fields", paperFields)

	var resp SearchResponse
	if err := c.get(ctx, "/paper/search", params, "", &resp); err != nil {
		return nil, err
	}

	hits := make([]reconcile.S2Hit, 0, len(resp.Data))
	for i := range resp.Data {
		hits = append(hits, toHit(&resp.Data[i]))
	}
	return hits, nil
}

// get performs a rate-limited GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, paperID string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if err := checkHTTPErrors(resp, paperID); err != nil {
		return err
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrInvalidResponse, err)
	}
	return nil
}

// checkHTTPErrors returns an error if the HTTP response indicates a problem.
func checkHTTPErrors(resp *http.Response, paperID string) error {
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, paperID)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: status %d (check %s)", ErrAuthError, resp.StatusCode, APIKeyEnv)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		msg := strings.TrimSpace(string(body))
		var eb errorBody
		if json.Unmarshal(body, &eb) == nil {
			if eb.Error != "" {
				msg = eb.Error
			} else if eb.Message != "" {
				msg = eb.Message
			}
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg, PaperID: paperID}
	}
	return nil
}

// toHit converts a wire paper. A malformed paper ID is dropped so it is
// never stored in a record.
func toHit(p *Paper) reconcile.S2Hit {
	hit := reconcile.S2Hit{
		Title:   strings.Join(strings.Fields(p.Title), " "),
		ArXivID: reconcile.ArXivID(p.ExternalIDs.ArXiv),
		DBLPKey: p.ExternalIDs.DBLP,
		Year:    p.Year,
	}
	if IsPaperID(p.PaperID) {
		hit.PaperID = strings.ToLower(p.PaperID)
	}
	return hit
}
