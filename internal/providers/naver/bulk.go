package naver

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/kospifeed/internal/diag"
	"github.com/seenimoa/kospifeed/pkg/models"
)

// FetchKeywords runs one date-sorted query per keyword and concatenates
// the results in keyword order. It never fails: a keyword whose query
// fails contributes nothing and a "naver.fetch" record. Without
// credentials it returns an empty slice after a "naver.skip" record.
func (c *Client) FetchKeywords(ctx context.Context, keywords []string) []models.Event {
	if !c.HasCredentials() {
		c.sink.Emit(ctx, diag.Record{At: "naver.skip", Fields: map[string]any{"reason": "no-credentials"}})
		return []models.Event{}
	}

	kws := NormalizeKeywords(keywords, c.keywords)
	results := make([][]models.Event, len(kws))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, kw := range kws {
		g.Go(func() error {
			results[i] = c.fetchKeyword(ctx, kw)
			return nil
		})
	}
	g.Wait()

	var total int
	for _, r := range results {
		total += len(r)
	}
	out := make([]models.Event, 0, total)
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

func (c *Client) fetchKeyword(ctx context.Context, kw string) []models.Event {
	fields := map[string]any{"keyword": kw, "status": 0, "items": 0}
	defer func() { c.sink.Emit(ctx, diag.Record{At: "naver.fetch", Fields: fields}) }()

	items, status, err := c.search(ctx, query{text: kw, display: c.display, start: 1, sort: "date"})
	fields["status"] = status
	if err != nil {
		fields["error"] = err.Error()
		if errors.Is(err, ErrRateLimited) {
			fields["rate_limited"] = true
		}
		return nil
	}
	fields["items"] = len(items)

	events, _ := mapItems(items, c.loc, lenient)
	return events
}
