// Package dblp searches the DBLP computer-science bibliography and fetches
// BibTeX for its records.
package dblp

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/alps-lab/alps/internal/reconcile"
)

const (
	// BaseURL is the DBLP base URL.
	BaseURL = "https://dblp.org"

	// DefaultTimeout bounds each HTTP request.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the number of hits requested per search.
	DefaultMaxResults = 30

	// DefaultRateInterval is the minimum spacing between requests.
	DefaultRateInterval = time.Second

	maxBodySize = 10 << 20
)

// homonymSuffix matches the number DBLP appends to disambiguate authors
// sharing a name ("Wei Wang 0001").
var homonymSuffix = regexp.MustCompile(`\s+\d{4}$`)

// Client is a rate-limited HTTP client for the DBLP search and record APIs.
// Searches and BibTeX fetches share one limiter.
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

// WithMaxResults sets how many hits each search asks for.
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
		if d <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// NewClient creates a new DBLP client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Every(DefaultRateInterval), 1),
		baseURL:    BaseURL,
		maxResults: DefaultMaxResults,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query returns the search string sent for a record title.
func Query(title string) string {
	return strings.ReplaceAll(title, "-", " ")
}

// Search returns the publication hits DBLP lists for title, in result
// order. BibTeX is not populated; see BibTeX.
func (c *Client) Search(ctx context.Context, title string) ([]reconcile.DBLPHit, error) {
	params := url.Values{}
	params.Set("q", Query(title))
	params.Set("h", strconv.Itoa(c.maxResults))
	params.Set("format", "xml")

	body, err := c.get(ctx, c.baseURL+"/search/publ/api?"+params.Encode(), "")
	if err != nil {
		return nil, err
	}

	var result Result
	if err := xml.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: decoding search result: %v", ErrInvalidResponse, err)
	}

	hits := make([]reconcile.DBLPHit, 0, len(result.Hits.Hit))
	for i := range result.Hits.Hit {
		hits = append(hits, infoToHit(&result.Hits.Hit[i].Info))
	}
	return hits, nil
}

// BibTeX fetches the BibTeX entry for a DBLP record key such as
// "conf/nips/VaswaniSPUJGKP17".
func (c *Client) BibTeX(ctx context.Context, key string) (string, error) {
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" {
		return "", fmt.Errorf("%w: empty key", ErrNotFound)
	}

	body, err := c.get(ctx, c.baseURL+"/rec/"+key+".bib?param=0", key)
	if err != nil {
		return "", err
	}

	bib := strings.TrimSpace(string(body))
	if !strings.HasPrefix(bib, "@") {
		return "", fmt.Errorf("%w: record %s is not BibTeX", ErrInvalidResponse, key)
	}
	return bib + "\n", nil
}

// get performs a paced GET and returns the response body.
func (c *Client) get(ctx context.Context, reqURL, key string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if err := checkHTTPErrors(resp, key); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrNetworkError, err)
	}
	return body, nil
}

// checkHTTPErrors returns an error if the HTTP response indicates a problem.
func checkHTTPErrors(resp *http.Response, key string) error {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound && key != "":
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	case resp.StatusCode >= 400:
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Key:        key,
		}
	}
	return nil
}

// infoToHit converts a hit's info block. The link is the first electronic
// edition, falling back to the DBLP record page.
func infoToHit(info *Info) reconcile.DBLPHit {
	hit := reconcile.DBLPHit{
		Title: strings.TrimSpace(info.Title),
		Year:  strings.TrimSpace(info.Year),
		Key:   strings.TrimSpace(info.Key),
		URL:   strings.TrimSpace(info.URL),
	}
	for _, a := range info.Authors {
		if name := homonymSuffix.ReplaceAllString(strings.TrimSpace(a), ""); name != "" {
			hit.Authors = append(hit.Authors, name)
		}
	}
	if len(info.Venue) > 0 {
		hit.Venue = strings.TrimSpace(info.Venue[0])
	}
	if len(info.EE) > 0 {
		if ee := strings.TrimSpace(info.EE[0]); ee != "" {
			hit.URL = ee
		}
	}
	return hit
}
