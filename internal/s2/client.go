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
	"time"

	"golang.org/x/time/rate"
)

const (
	// BaseURL is the Semantic Scholar Graph API base URL.
	BaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// RateLimit is the unauthenticated allowance of one request per second.
	RateLimit = 1.0

	// SearchFields are the paper fields needed to format a citation.
	SearchFields = "title,authors,year,venue"

	// DefaultRetryBackoff is the first wait after a 429; it doubles per retry.
	DefaultRetryBackoff = 2 * time.Second

	// DefaultMaxRetries is how often a 429 is retried before giving up.
	DefaultMaxRetries = 3
)

// Client is a rate-limited HTTP client for the Graph API.
type Client struct {
	httpClient   *http.Client
	limiter      *rate.Limiter
	apiKey       string
	baseURL      string
	maxRetries   int
	retryBackoff time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the API key for authenticated requests.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		if key != "" {
			c.apiKey = key
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithRateLimit overrides the requests-per-second allowance.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithMaxRetries sets how many times a rate-limited request is retried.
// Zero disables retries.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryBackoff sets the initial wait between rate-limited retries.
func WithRetryBackoff(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryBackoff = d
	}
}

// NewClient creates a new Semantic Scholar client.
// The API key is read from S2_API_KEY unless WithAPIKey overrides it.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: DefaultTimeout},
		limiter:      rate.NewLimiter(rate.Limit(RateLimit), 1),
		baseURL:      BaseURL,
		maxRetries:   DefaultMaxRetries,
		retryBackoff: DefaultRetryBackoff,
	}

	if key := os.Getenv("S2_API_KEY"); key != "" {
		c.apiKey = key
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SearchPapers runs a relevance search and returns up to limit papers.
func (c *Client) SearchPapers(ctx context.Context, query string, limit int) (*SearchResponse, error) {
	if limit <= 0 {
		limit = 1
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("fields", SearchFields)

	var resp SearchResponse
	if err := c.get(ctx, "/paper/search?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TopMatch returns the most relevant paper for query, or ErrNotFound.
func (c *Client) TopMatch(ctx context.Context, query string) (*Paper, error) {
	resp, err := c.SearchPapers(ctx, query, 1)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, query)
	}
	return &resp.Data[0], nil
}

// get performs a GET against the API, retrying on 429 up to maxRetries times.
func (c *Client) get(ctx context.Context, path string, out any) error {
	backoff := c.retryBackoff
	for attempt := 0; ; attempt++ {
		err := c.doGet(ctx, path, out)
		if err == nil || !IsRateLimited(err) || attempt >= c.maxRetries {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

func (c *Client) doGet(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
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

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading body: %v", ErrNetworkError, err)
	}

	if err := checkHTTPErrors(resp.StatusCode, body); err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// checkHTTPErrors maps a non-2xx status to a typed error.
func checkHTTPErrors(status int, body []byte) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrAuthError, status)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ErrRateLimited, status)
	case status >= 400:
		apiErr := &APIError{StatusCode: status}
		var er errorResponse
		if json.Unmarshal(body, &er) == nil {
			apiErr.Message = er.Message
			if apiErr.Message == "" {
				apiErr.Message = er.Error
			}
		}
		return apiErr
	}
	return nil
}
