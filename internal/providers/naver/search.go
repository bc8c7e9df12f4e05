package naver

import (
	"context"
	"fmt"
	"strings"

	"github.com/seenimoa/kospifeed/internal/diag"
	"github.com/seenimoa/kospifeed/pkg/models"
)

const (
	DefaultSearchLimit = 30
	maxSearchLimit     = 100
	maxSearchStart     = 1000

	SortDate = "date"
	SortSim  = "sim"
)

// SearchParams are the inputs of a single-keyword lookup. Zero values
// select the defaults.
type SearchParams struct {
	Query string
	Limit int
	Start int
	Sort  string
}

func (p SearchParams) normalized() SearchParams {
	p.Query = strings.TrimSpace(p.Query)
	p.Limit = clamp(p.Limit, 1, maxSearchLimit, DefaultSearchLimit)
	p.Start = clamp(p.Start, 1, maxSearchStart, 1)
	if p.Sort != SortSim {
		p.Sort = SortDate
	}
	return p
}

// Search runs one query and returns its hits with summaries, in upstream
// order. Unlike FetchKeywords it surfaces failures: ErrCredentialsMissing,
// *UpstreamError (errors.Is ErrRateLimited on 429), and ErrBadTimestamp
// when any hit has an unparseable pubDate.
func (c *Client) Search(ctx context.Context, params SearchParams) ([]models.Event, error) {
	if !c.HasCredentials() {
		return nil, ErrCredentialsMissing
	}
	p := params.normalized()
	if p.Query == "" {
		return nil, fmt.Errorf("naver search: empty query")
	}

	items, status, err := c.search(ctx, query{text: p.Query, display: p.Limit, start: p.Start, sort: p.Sort})
	c.sink.Emit(ctx, diag.Record{At: "naver.search", Fields: map[string]any{
		"status": status,
		"items":  len(items),
		"sort":   p.Sort,
	}})
	if err != nil {
		return nil, err
	}
	return mapItems(items, c.loc, strict)
}
