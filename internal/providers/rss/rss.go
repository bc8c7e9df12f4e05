// Package rss maps configured RSS/Atom market-news feeds into NEWS events.
// It is optional: a client with no feeds returns nothing.
package rss

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/kospifeed/internal/diag"
	"github.com/seenimoa/kospifeed/internal/infra"
	"github.com/seenimoa/kospifeed/pkg/models"
	"github.com/seenimoa/kospifeed/pkg/utils"
)

// Feed is one configured source.
type Feed struct {
	Name string `mapstructure:"name" json:"name"`
	URL  string `mapstructure:"url" json:"url"`
}

// Client fetches a fixed set of feeds.
type Client struct {
	feeds      []Feed
	httpClient *http.Client
	timeout    time.Duration
	limiter    *infra.RateLimiter
	loc        *time.Location
	sink       diag.Sink
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithLocation(loc *time.Location) Option {
	return func(c *Client) {
		if loc != nil {
			c.loc = loc
		}
	}
}

func WithSink(s diag.Sink) Option {
	return func(c *Client) { c.sink = diag.OrNop(s) }
}

// New creates a client for feeds. Entries without a URL are ignored and
// a missing name defaults to the URL.
func New(feeds []Feed, opts ...Option) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		limiter:    infra.NewRateLimiter(2, time.Second),
		loc:        utils.KST,
		sink:       diag.Nop(),
	}
	for _, f := range feeds {
		f.URL = strings.TrimSpace(f.URL)
		if f.URL == "" {
			continue
		}
		if f.Name = strings.TrimSpace(f.Name); f.Name == "" {
			f.Name = f.URL
		}
		c.feeds = append(c.feeds, f)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether any feed is configured.
func (c *Client) Enabled() bool { return len(c.feeds) > 0 }

// Fetch parses every feed concurrently and returns items published at or
// after since, in feed order. When keywords are given only items whose
// title mentions one of them are kept. Failed feeds contribute nothing and
// an "rss.fetch" record.
func (c *Client) Fetch(ctx context.Context, since time.Time, keywords []string) []models.Event {
	results := make([][]models.Event, len(c.feeds))

	var g errgroup.Group
	for i, f := range c.feeds {
		g.Go(func() error {
			results[i] = c.fetchFeed(ctx, f, since, keywords)
			return nil
		})
	}
	g.Wait()

	out := []models.Event{}
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

func (c *Client) fetchFeed(ctx context.Context, f Feed, since time.Time, keywords []string) []models.Event {
	fields := map[string]any{"feed": f.Name, "items": 0}
	defer func() { c.sink.Emit(ctx, diag.Record{At: "rss.fetch", Fields: fields}) }()

	if err := c.limiter.Wait(ctx); err != nil {
		fields["error"] = err.Error()
		return nil
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	// gofeed.Parser is not safe for concurrent use.
	parser := gofeed.NewParser()
	parser.Client = c.httpClient
	parser.UserAgent = infra.DefaultUserAgent

	feed, err := parser.ParseURLWithContext(f.URL, ctx)
	if err != nil {
		fields["error"] = err.Error()
		return nil
	}
	fields["items"] = len(feed.Items)

	events := make([]models.Event, 0, len(feed.Items))
	for _, item := range feed.Items {
		ev, ok := c.mapItem(f, item)
		if !ok {
			continue
		}
		if t, set := ev.PublishedAt.Time(); set && !since.IsZero() && t.Before(since) {
			continue
		}
		if len(keywords) > 0 && !matchesAny(ev.Title, keywords) {
			continue
		}
		events = append(events, ev)
	}
	fields["kept"] = len(events)
	return events
}

func (c *Client) mapItem(f Feed, item *gofeed.Item) (models.Event, bool) {
	title := cleanHTML(item.Title)
	link := strings.TrimSpace(item.Link)
	if title == "" || link == "" {
		return models.Event{}, false
	}
	ev := models.Event{
		Type:  models.EventNews,
		Title: title,
		URL:   link,
		Tags:  []string{f.Name},
		Score: models.NewsScore,
	}
	switch {
	case item.PublishedParsed != nil:
		ev.PublishedAt = models.At(item.PublishedParsed.In(c.loc))
	case item.UpdatedParsed != nil:
		ev.PublishedAt = models.At(item.UpdatedParsed.In(c.loc))
	}
	return ev, true
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(doc.Text())
}

// matchesAny checks if text contains any of the keywords (case-insensitive).
func matchesAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" && strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
