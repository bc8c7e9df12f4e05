// Package dart implements the filings provider backed by the DART
// (Korea FSS electronic disclosure) list API.
//
// Docs: https://opendart.fss.or.kr/guide/detail.do?apiGrpCd=DS001&apiId=2019001
// The API only reports the receipt date, so every filing is stamped at
// 09:00 in the reference zone. Do not rely on intra-day ordering.
package dart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/seenimoa/kospifeed/internal/diag"
	"github.com/seenimoa/kospifeed/internal/infra"
	"github.com/seenimoa/kospifeed/pkg/models"
	"github.com/seenimoa/kospifeed/pkg/utils"
)

const (
	// DefaultBaseURL is the list endpoint of the Open DART API.
	DefaultBaseURL = "https://opendart.fss.or.kr/api/list.json"

	// DefaultCorpClass restricts results to KOSPI-listed companies.
	DefaultCorpClass = "Y"

	DefaultPageCount = 100
	maxPageCount     = 100

	// filingHour is the approximate publish hour assigned to a filing date.
	filingHour = 9

	viewerURL = "https://dart.fss.or.kr/dsaf001/main.do?rcpNo="

	// StatusNoData is DART's status for an empty result set.
	StatusNoData = "013"
)

// Client fetches filings from DART. The zero value is not usable; use New.
type Client struct {
	apiKey     string
	baseURL    string
	corpClass  string
	timeout    time.Duration
	httpClient *http.Client
	loc        *time.Location
	sink       diag.Sink
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the list endpoint (tests, proxies).
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

// WithCorpClass sets the corp_cls filter (Y, K, N, E).
func WithCorpClass(cls string) Option {
	return func(c *Client) {
		if cls != "" {
			c.corpClass = cls
		}
	}
}

// WithLocation sets the zone filings are stamped in.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithTimeout bounds a single upstream call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithSink sets the diagnostics sink.
func WithSink(s diag.Sink) Option {
	return func(c *Client) { c.sink = diag.OrNop(s) }
}

// New creates a DART client. An empty apiKey is allowed: the upstream
// rejects the call and Fetch degrades to an empty result.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		corpClass:  DefaultCorpClass,
		httpClient: http.DefaultClient,
		loc:        utils.KST,
		sink:       diag.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HasKey reports whether an API key is configured.
func (c *Client) HasKey() bool { return c.apiKey != "" }

// Fetch lists filings received between beginDate and endDate (yyyyMMdd,
// inclusive), newest first. It never fails: transport errors, non-2xx
// responses and malformed bodies yield an empty slice and a "dart.fetch"
// diagnostic record.
func (c *Client) Fetch(ctx context.Context, beginDate, endDate string, pageCount int) []models.Event {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	fields := map[string]any{
		"bgn_de": beginDate,
		"end_de": endDate,
		"status": 0,
		"items":  0,
	}
	defer func() { c.sink.Emit(ctx, diag.Record{At: "dart.fetch", Fields: fields}) }()

	body, status, err := infra.DoGet(ctx, c.httpClient, c.listURL(beginDate, endDate, pageCount), nil)
	fields["status"] = status
	if err != nil {
		fields["error"] = err.Error()
		return []models.Event{}
	}

	resp, err := decodeList(body)
	if err != nil {
		fields["error"] = err.Error()
		return []models.Event{}
	}
	fields["message"] = resp.Message
	fields["status_code"] = resp.Status
	fields["items"] = len(resp.Items)

	return Map(resp.Items, c.loc)
}

func (c *Client) listURL(beginDate, endDate string, pageCount int) string {
	q := url.Values{}
	q.Set("crtfc_key", c.apiKey)
	q.Set("bgn_de", beginDate)
	q.Set("end_de", endDate)
	q.Set("corp_cls", c.corpClass)
	q.Set("sort", "date")
	q.Set("sort_mth", "desc")
	q.Set("page_no", "1")
	q.Set("page_count", strconv.Itoa(ClampPageCount(pageCount)))
	return c.baseURL + "?" + q.Encode()
}

// ClampPageCount keeps n within the API's accepted [1,100] range.
func ClampPageCount(n int) int {
	switch {
	case n <= 0:
		return DefaultPageCount
	case n > maxPageCount:
		return maxPageCount
	default:
		return n
	}
}

// decodeList reads the envelope first so a non-array "list" (DART sends
// none at all on errors) does not fail the whole body.
func decodeList(body []byte) (*listResponse, error) {
	var env listEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode dart response: %w", err)
	}
	out := &listResponse{Status: env.Status, Message: env.Message}
	if len(env.List) == 0 || env.List[0] != '[' {
		return out, nil
	}
	if err := json.Unmarshal(env.List, &out.Items); err != nil {
		return nil, fmt.Errorf("decode dart list: %w", err)
	}
	return out, nil
}

// FilingURL returns the public viewer link for a receipt number.
func FilingURL(rceptNo string) string {
	return viewerURL + rceptNo
}
