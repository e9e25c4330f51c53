// Package scholar looks up formatted citations by scraping Google Scholar
// search results through a single cookie-carrying session.
package scholar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/matsen/citecheck/internal/logger"
)

const (
	// BaseURL is the Google Scholar origin.
	BaseURL = "https://scholar.google.com"

	// DefaultRenderTimeout bounds a single page fetch.
	DefaultRenderTimeout = 10 * time.Second

	// DefaultChallengeWait is how long a verification challenge may take to clear.
	DefaultChallengeWait = 10 * time.Second

	// DefaultPollInterval is the delay between checks of a pending challenge.
	DefaultPollInterval = 2 * time.Second

	// DefaultMinInterval spaces consecutive requests.
	DefaultMinInterval = 2 * time.Second

	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

	// citationStyle is the index of the APA variant in the cite popup.
	citationStyle = 1
)

var (
	// ErrNoResults indicates the search returned nothing citable.
	ErrNoResults = errors.New("no citable Google Scholar result")

	// ErrChallengeTimeout indicates a verification challenge did not clear in time.
	ErrChallengeTimeout = errors.New("Google Scholar verification challenge did not clear")

	// ErrNoCitation indicates the cite popup lacked the expected format.
	ErrNoCitation = errors.New("Google Scholar cite popup has no APA citation")

	// ErrTransport indicates the page could not be fetched.
	ErrTransport = errors.New("fetching Google Scholar page")

	// ErrClosed is returned by a session after Close.
	ErrClosed = errors.New("scholar session is closed")
)

// Session is a stateful scraping session. It is not safe for concurrent
// lookups; calls are serialized.
type Session struct {
	collector     *colly.Collector
	limiter       *rate.Limiter
	baseURL       string
	userAgent     string
	renderTimeout time.Duration
	challengeWait time.Duration
	pollInterval  time.Duration
	transport     http.RoundTripper
	log           logger.Logger
	now           func() time.Time

	mu      sync.Mutex
	closed  bool
	lastRsp *colly.Response
	lastErr error
}

// Option configures a Session.
type Option func(*Session)

// WithBaseURL sets a custom origin (for testing).
func WithBaseURL(u string) Option {
	return func(s *Session) {
		s.baseURL = u
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *Session) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithRenderTimeout bounds each page fetch.
func WithRenderTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.renderTimeout = d
		}
	}
}

// WithChallengeWait sets how long to wait for a challenge to clear.
func WithChallengeWait(d time.Duration) Option {
	return func(s *Session) {
		s.challengeWait = d
	}
}

// WithPollInterval sets the delay between challenge checks.
func WithPollInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithMinInterval spaces requests at least d apart. Zero disables spacing.
func WithMinInterval(d time.Duration) Option {
	return func(s *Session) {
		if d <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		s.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithTransport sets the HTTP transport used by the collector.
func WithTransport(rt http.RoundTripper) Option {
	return func(s *Session) {
		s.transport = rt
	}
}

// WithLogger sets the session logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Session) {
		s.log = l
	}
}

// NewSession creates a session. Callers must Close it when done.
func NewSession(opts ...Option) *Session {
	s := &Session{
		limiter:       rate.NewLimiter(rate.Every(DefaultMinInterval), 1),
		baseURL:       BaseURL,
		userAgent:     DefaultUserAgent,
		renderTimeout: DefaultRenderTimeout,
		challengeWait: DefaultChallengeWait,
		pollInterval:  DefaultPollInterval,
		log:           logger.Nop{},
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	c := colly.NewCollector(
		colly.UserAgent(s.userAgent),
		colly.AllowURLRevisit(),
	)
	c.ParseHTTPErrorResponse = true
	c.SetRequestTimeout(s.renderTimeout)
	// Consent and challenge cookies must follow the session from the
	// search page to the cite popup.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	c.SetCookieJar(jar)
	if s.transport != nil {
		c.WithTransport(s.transport)
	}
	c.OnResponse(func(r *colly.Response) {
		s.lastRsp = r
	})
	c.OnError(func(r *colly.Response, err error) {
		s.lastErr = err
	})
	s.collector = c

	return s
}

// Cite searches for query and returns the APA citation of the top result.
func (s *Session) Cite(ctx context.Context, query string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}

	searchURL := s.baseURL + "/scholar?hl=en&q=" + url.QueryEscape(query)
	results, err := s.fetchCleared(ctx, searchURL)
	if err != nil {
		return "", err
	}

	cid, ok := firstCitableResult(results)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNoResults, query)
	}

	citeURL := s.baseURL + "/scholar?q=" + url.QueryEscape("info:"+cid+":scholar.google.com/") +
		"&output=cite&scirp=0&hl=en"
	popup, err := s.fetchCleared(ctx, citeURL)
	if err != nil {
		return "", err
	}

	citation, ok := citationVariant(popup, citationStyle)
	if !ok {
		return "", fmt.Errorf("%w (result %s)", ErrNoCitation, cid)
	}
	return citation, nil
}

// Close releases the session. Further lookups fail with ErrClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// fetchCleared fetches pageURL, waiting out a verification challenge and
// fetching again until it clears or the challenge budget is spent.
func (s *Session) fetchCleared(ctx context.Context, pageURL string) (*goquery.Document, error) {
	doc, status, err := s.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if !isChallenge(doc, status) {
		return doc, nil
	}

	s.log.Warn("verification challenge, waiting for it to clear",
		logger.Duration("budget", s.challengeWait))

	deadline := s.now().Add(s.challengeWait)
	for {
		remaining := deadline.Sub(s.now())
		if remaining <= 0 {
			return nil, ErrChallengeTimeout
		}
		wait := s.pollInterval
		if wait > remaining {
			wait = remaining
		}
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}

		doc, status, err = s.fetch(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		if !isChallenge(doc, status) {
			s.log.Info("verification challenge cleared")
			return doc, nil
		}
	}
}

// fetch performs one GET through the collector and parses the body.
func (s *Session) fetch(ctx context.Context, pageURL string) (*goquery.Document, int, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	s.lastRsp, s.lastErr = nil, nil
	if err := s.collector.Visit(pageURL); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if s.lastErr != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrTransport, s.lastErr)
	}
	if s.lastRsp == nil {
		return nil, 0, fmt.Errorf("%w: no response", ErrTransport)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(s.lastRsp.Body))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: parsing HTML: %v", ErrTransport, err)
	}
	return doc, s.lastRsp.StatusCode, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
