// Package app assembles the providers, the feed service and the HTTP
// server from a loaded configuration.
package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seenimoa/kospifeed/api"
	"github.com/seenimoa/kospifeed/internal/config"
	"github.com/seenimoa/kospifeed/internal/diag"
	"github.com/seenimoa/kospifeed/internal/feed"
	"github.com/seenimoa/kospifeed/internal/infra"
	"github.com/seenimoa/kospifeed/internal/providers/dart"
	"github.com/seenimoa/kospifeed/internal/providers/naver"
	"github.com/seenimoa/kospifeed/internal/providers/rss"
	"github.com/seenimoa/kospifeed/internal/window"
)

// App holds every long-lived component. Fields are read-only after New.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Location *time.Location
	Registry *prometheus.Registry
	Sink     diag.Sink

	DART    *dart.Client
	Naver   *naver.Client
	RSS     *rss.Client
	Updates *feed.Service
}

// New validates cfg and wires the components. A nil logger uses
// slog.Default.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promSink, err := diag.NewPromSink(reg)
	if err != nil {
		return nil, err
	}
	sink := diag.Fanout(diag.NewSlogSink(logger), promSink)

	httpClient := infra.NewHTTPClient(cfg.Upstream.Timeout)

	dartClient := dart.New(cfg.DART.APIKey,
		dart.WithBaseURL(cfg.DART.BaseURL),
		dart.WithCorpClass(cfg.DART.CorpClass),
		dart.WithHTTPClient(httpClient),
		dart.WithLocation(loc),
		dart.WithTimeout(cfg.Upstream.Timeout),
		dart.WithSink(sink),
	)

	naverClient := naver.New(cfg.Naver.ClientID, cfg.Naver.ClientSecret,
		naver.WithBaseURL(cfg.Naver.BaseURL),
		naver.WithDisplay(cfg.Naver.Display),
		naver.WithDefaultKeywords(cfg.Naver.Keywords),
		naver.WithConcurrency(cfg.Naver.Concurrency),
		naver.WithRateLimit(cfg.Naver.RateLimit),
		naver.WithHTTPClient(httpClient),
		naver.WithLocation(loc),
		naver.WithTimeout(cfg.Upstream.Timeout),
		naver.WithSink(sink),
	)

	feeds := make([]rss.Feed, 0, len(cfg.RSS.Feeds))
	for _, f := range cfg.RSS.Feeds {
		feeds = append(feeds, rss.Feed{Name: f.Name, URL: f.URL})
	}
	rssClient := rss.New(feeds,
		rss.WithHTTPClient(httpClient),
		rss.WithLocation(loc),
		rss.WithTimeout(cfg.Upstream.Timeout),
		rss.WithSink(sink),
	)

	svcCfg := feed.ServiceConfig{
		Window: window.New(loc,
			window.WithLookback(cfg.Window.Lookback),
			window.WithLookahead(cfg.Window.Lookahead),
		),
		Filings:   dartClient,
		News:      naverClient,
		PageCount: cfg.DART.PageCount,
		Sink:      sink,
	}
	if rssClient.Enabled() {
		svcCfg.Feeds = rssClient
	}

	return &App{
		Config:   cfg,
		Logger:   logger,
		Location: loc,
		Registry: reg,
		Sink:     sink,
		DART:     dartClient,
		Naver:    naverClient,
		RSS:      rssClient,
		Updates:  feed.NewService(svcCfg),
	}, nil
}

// Server returns the HTTP server backed by this App.
func (a *App) Server() *api.Server {
	return api.NewServer(a.Config, api.Options{
		Updates: a.Updates,
		News:    a.Naver,
		Logger:  a.Logger,
		Metrics: promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}),
	})
}
