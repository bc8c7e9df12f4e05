package feed

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/kospifeed/internal/diag"
	"github.com/seenimoa/kospifeed/internal/window"
	"github.com/seenimoa/kospifeed/pkg/models"
	"github.com/seenimoa/kospifeed/pkg/utils"
)

const (
	// MaxSymbols caps the symbols a request may name.
	MaxSymbols = 5

	// DefaultMarket is recorded when a request names none. It does not
	// change what is fetched.
	DefaultMarket = "KOSPI"

	zeroHint = "provider-delay-or-empty-window"
)

// FilingsSource lists filings for an inclusive yyyyMMdd date range.
type FilingsSource interface {
	Fetch(ctx context.Context, beginDate, endDate string, pageCount int) []models.Event
}

// KeywordNewsSource returns news for keywords, substituting its own
// defaults when keywords is empty.
type KeywordNewsSource interface {
	FetchKeywords(ctx context.Context, keywords []string) []models.Event
}

// FeedSource returns news published at or after since.
type FeedSource interface {
	Fetch(ctx context.Context, since time.Time, keywords []string) []models.Event
}

// ServiceConfig wires a Service. Filings, News and Feeds may be nil.
type ServiceConfig struct {
	Window    *window.Calculator
	Filings   FilingsSource
	News      KeywordNewsSource
	Feeds     FeedSource
	PageCount int
	Sink      diag.Sink
}

// Service builds the updates feed.
type Service struct {
	window    *window.Calculator
	filings   FilingsSource
	news      KeywordNewsSource
	feeds     FeedSource
	pageCount int
	sink      diag.Sink
}

// NewService creates a Service from cfg.
func NewService(cfg ServiceConfig) *Service {
	w := cfg.Window
	if w == nil {
		w = window.New(utils.KST)
	}
	return &Service{
		window:    w,
		filings:   cfg.Filings,
		news:      cfg.News,
		feeds:     cfg.Feeds,
		pageCount: cfg.PageCount,
		sink:      diag.OrNop(cfg.Sink),
	}
}

// Location returns the zone windows are computed in.
func (s *Service) Location() *time.Location { return s.window.Location() }

// UpdatesRequest are the inputs of one updates call.
type UpdatesRequest struct {
	Since   string
	Limit   int
	Symbols []string
	Market  string
}

// UpdatesResult is the merged feed and the window it covers.
type UpdatesResult struct {
	Items  []models.Event
	Window window.Window
}

// Updates queries every configured provider concurrently and merges the
// results. Provider failures degrade to empty contributions; the only
// error is the caller's context ending.
func (s *Service) Updates(ctx context.Context, req UpdatesRequest) (*UpdatesResult, error) {
	w := s.window.Compute(req.Since)
	if w.SinceIgnored {
		s.sink.Emit(ctx, diag.Record{At: "updates.since_ignored", Fields: map[string]any{"since": req.Since}})
	}
	market := req.Market
	if market == "" {
		market = DefaultMarket
	}
	symbols := utils.CompactList(req.Symbols, MaxSymbols)

	var filings, news, feeds []models.Event
	var g errgroup.Group
	if s.filings != nil {
		g.Go(func() error {
			filings = s.filings.Fetch(ctx, w.BeginDate(), w.EndDate(), s.pageCount)
			return nil
		})
	}
	if s.news != nil {
		g.Go(func() error {
			news = s.news.FetchKeywords(ctx, symbols)
			return nil
		})
	}
	if s.feeds != nil {
		g.Go(func() error {
			feeds = s.feeds.Fetch(ctx, w.Start, symbols)
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items := Aggregate(req.Limit, filings, news, feeds)
	s.sink.Emit(ctx, diag.Record{At: "updates.done", Fields: map[string]any{
		"filings": len(filings),
		"news":    len(news),
		"feeds":   len(feeds),
		"items":   len(items),
		"market":  market,
	}})
	if len(items) == 0 {
		fields := w.Fields()
		fields["hint"] = zeroHint
		fields["market"] = market
		s.sink.Emit(ctx, diag.Record{At: "updates.zero", Fields: fields})
	}
	return &UpdatesResult{Items: items, Window: w}, nil
}
