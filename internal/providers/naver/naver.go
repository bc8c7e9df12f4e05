// Package naver implements the news provider backed by the Naver news
// search API.
//
// Docs: https://developers.naver.com/docs/serviceapi/search/news/news.md
// Requires a client id and secret sent as X-Naver-Client-Id and
// X-Naver-Client-Secret headers.
package naver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/seenimoa/kospifeed/internal/diag"
	"github.com/seenimoa/kospifeed/internal/infra"
	"github.com/seenimoa/kospifeed/pkg/utils"
)

const (
	// DefaultBaseURL is the news search endpoint.
	DefaultBaseURL = "https://openapi.naver.com/v1/search/news.json"

	DefaultDisplay     = 50
	DefaultConcurrency = 3
	// DefaultRateLimit is the default number of upstream calls per second.
	DefaultRateLimit = 10

	// MaxKeywords caps the number of bulk queries per request.
	MaxKeywords = 5
)

// DefaultKeywords are queried when a bulk request names none.
var DefaultKeywords = []string{"코스피", "유가증권", "공시"}

var (
	// ErrCredentialsMissing is returned by Search when the client id or
	// secret is not configured.
	ErrCredentialsMissing = errors.New("naver: client id or secret not configured")

	// ErrRateLimited matches an *UpstreamError with status 429.
	ErrRateLimited = errors.New("naver: rate limited")

	// ErrBadTimestamp wraps an item whose pubDate could not be parsed.
	ErrBadTimestamp = errors.New("naver: unparseable pubDate")
)

// UpstreamError is a non-2xx response from the search API.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("naver: upstream %d: %s", e.StatusCode, e.Body)
}

// Is reports a 429 as ErrRateLimited.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == http.StatusTooManyRequests
}

// Client queries Naver news search. Safe for concurrent use.
type Client struct {
	clientID     string
	clientSecret string
	baseURL      string
	display      int
	concurrency  int
	keywords     []string
	timeout      time.Duration
	httpClient   *http.Client
	limiter      *infra.RateLimiter
	loc          *time.Location
	sink         diag.Sink
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the search endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient sets the HTTP client used for upstream calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithDisplay sets the per-keyword page size of bulk queries (1-100).
func WithDisplay(n int) Option {
	return func(c *Client) { c.display = clamp(n, 1, 100, DefaultDisplay) }
}

// WithConcurrency bounds the number of bulk queries in flight.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithDefaultKeywords replaces DefaultKeywords for this client.
func WithDefaultKeywords(kws []string) Option {
	return func(c *Client) {
		if kws := utils.CompactList(kws, MaxKeywords); len(kws) > 0 {
			c.keywords = kws
		}
	}
}

// WithRateLimit allows perSecond upstream calls per second across all
// requests. Zero or negative disables throttling.
func WithRateLimit(perSecond int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = infra.NewRateLimiter(perSecond, time.Second/time.Duration(perSecond))
	}
}

// WithTimeout bounds a single upstream call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLocation sets the zone publish times are rendered in.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithSink sets the diagnostics sink.
func WithSink(s diag.Sink) Option {
	return func(c *Client) { c.sink = diag.OrNop(s) }
}

// New creates a client. Missing credentials are not an error here: the
// bulk path skips quietly and Search returns ErrCredentialsMissing.
func New(clientID, clientSecret string, opts ...Option) *Client {
	c := &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      DefaultBaseURL,
		display:      DefaultDisplay,
		concurrency:  DefaultConcurrency,
		keywords:     DefaultKeywords,
		httpClient:   http.DefaultClient,
		limiter:      infra.NewRateLimiter(DefaultRateLimit, time.Second/DefaultRateLimit),
		loc:          utils.KST,
		sink:         diag.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HasCredentials reports whether both the client id and secret are set.
func (c *Client) HasCredentials() bool {
	return c.clientID != "" && c.clientSecret != ""
}

// NormalizeKeywords trims, drops empty entries and keeps the first
// MaxKeywords. When nothing is left, fallback is returned.
func NormalizeKeywords(kws, fallback []string) []string {
	out := utils.CompactList(kws, MaxKeywords)
	if len(out) == 0 {
		return fallback
	}
	return out
}

type query struct {
	text    string
	display int
	start   int
	sort    string
}

// search performs one upstream call and decodes the item list.
func (c *Client) search(ctx context.Context, q query) ([]Item, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("naver rate limiter: %w", err)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	v := url.Values{}
	v.Set("query", q.text)
	v.Set("display", strconv.Itoa(q.display))
	v.Set("start", strconv.Itoa(q.start))
	v.Set("sort", q.sort)

	body, status, err := infra.DoGet(ctx, c.httpClient, c.baseURL+"?"+v.Encode(), map[string]string{
		"X-Naver-Client-Id":     c.clientID,
		"X-Naver-Client-Secret": c.clientSecret,
	})
	if err != nil {
		var httpErr *infra.ErrHTTP
		if errors.As(err, &httpErr) {
			return nil, status, &UpstreamError{StatusCode: httpErr.StatusCode, Body: httpErr.Body}
		}
		return nil, status, fmt.Errorf("naver search: %w", err)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, status, fmt.Errorf("decode naver response: %w", err)
	}
	return resp.Items, status, nil
}

func clamp(n, lo, hi, def int) int {
	switch {
	case n <= 0:
		return def
	case n < lo:
		return lo
	case n > hi:
		return hi
	default:
		return n
	}
}
