package naver

import (
	"fmt"
	"strings"
	"time"

	"github.com/seenimoa/kospifeed/pkg/models"
	"github.com/seenimoa/kospifeed/pkg/utils"
)

// pubDateLayouts are tried in order; Naver sends RFC 1123 with a numeric zone.
var pubDateLayouts = []string{time.RFC1123Z, time.RFC1123}

// ParsePubDate parses an item pubDate and converts it to loc.
func ParsePubDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range pubDateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.In(loc), nil
		}
		lastErr = err
	}
	return time.Time{}, fmt.Errorf("%w %q: %v", ErrBadTimestamp, s, lastErr)
}

// Links returns the canonical url (original article preferred) and the
// relay link when it differs.
func Links(it Item) (canonical, relay string) {
	orig := strings.TrimSpace(it.OriginalLink)
	link := strings.TrimSpace(it.Link)
	if orig == "" {
		return link, ""
	}
	if link == orig {
		return orig, ""
	}
	return orig, link
}

type mapMode int

const (
	// lenient renders unparseable dates as null.
	lenient mapMode = iota
	// strict fails on unparseable dates and keeps descriptions.
	strict
)

// mapItems converts search hits into NEWS events. Items with no title or
// link are dropped.
func mapItems(items []Item, loc *time.Location, mode mapMode) ([]models.Event, error) {
	out := make([]models.Event, 0, len(items))
	for _, it := range items {
		title := utils.StripMarkup(it.Title)
		canonical, relay := Links(it)
		if title == "" || canonical == "" {
			continue
		}

		ev := models.Event{
			Type:      models.EventNews,
			Title:     title,
			URL:       canonical,
			SourceURL: relay,
			Tags:      []string{},
			Score:     models.NewsScore,
		}

		t, err := ParsePubDate(it.PubDate, loc)
		switch {
		case err == nil:
			ev.PublishedAt = models.At(t)
		case mode == strict:
			return nil, err
		}

		if mode == strict {
			ev.Summary = utils.StripMarkup(it.Description)
		}
		out = append(out, ev)
	}
	return out, nil
}
