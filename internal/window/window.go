// Package window computes the lookback/lookahead query window used by the
// aggregated feed, in a single fixed reference zone.
package window

import (
	"strings"
	"time"

	"github.com/seenimoa/kospifeed/pkg/utils"
)

const (
	DefaultLookback  = 48 * time.Hour
	DefaultLookahead = 12 * time.Hour
)

// sinceLayouts are tried in order when parsing a caller-supplied since value.
var sinceLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Window is a query range. Start and End are expressed in the fixed zone.
type Window struct {
	Start time.Time
	End   time.Time

	// SinceIgnored is set when a since value was supplied but could not be
	// parsed and the default lookback was used instead.
	SinceIgnored bool
}

// StartISO returns Start as ISO-8601 with offset.
func (w Window) StartISO() string { return w.Start.Format(utils.ISOLayout) }

// EndISO returns End as ISO-8601 with offset.
func (w Window) EndISO() string { return w.End.Format(utils.ISOLayout) }

// BeginDate returns the yyyyMMdd date of Start.
func (w Window) BeginDate() string { return w.Start.Format(utils.CompactDateLayout) }

// EndDate returns the yyyyMMdd date of End.
func (w Window) EndDate() string { return w.End.Format(utils.CompactDateLayout) }

// Fields renders the window for diagnostics.
func (w Window) Fields() map[string]any {
	return map[string]any{
		"start_iso": w.StartISO(),
		"end_iso":   w.EndISO(),
		"bgn_de":    w.BeginDate(),
		"end_de":    w.EndDate(),
	}
}

// Calculator derives windows relative to a clock.
type Calculator struct {
	loc       *time.Location
	now       func() time.Time
	lookback  time.Duration
	lookahead time.Duration
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) { c.now = now }
}

// WithLookback sets the default distance of Start before now.
func WithLookback(d time.Duration) Option {
	return func(c *Calculator) {
		if d > 0 {
			c.lookback = d
		}
	}
}

// WithLookahead sets the forward margin of End past now.
func WithLookahead(d time.Duration) Option {
	return func(c *Calculator) {
		if d >= 0 {
			c.lookahead = d
		}
	}
}

// New creates a Calculator for the given zone. A nil zone means KST.
func New(loc *time.Location, opts ...Option) *Calculator {
	if loc == nil {
		loc = utils.KST
	}
	c := &Calculator{
		loc:       loc,
		now:       time.Now,
		lookback:  DefaultLookback,
		lookahead: DefaultLookahead,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Location returns the fixed reference zone.
func (c *Calculator) Location() *time.Location { return c.loc }

// Now returns the current instant in the fixed zone.
func (c *Calculator) Now() time.Time { return c.now().In(c.loc) }

// Compute returns the window for an optional since value. An unparseable
// since is treated as absent. Start never exceeds End.
func (c *Calculator) Compute(since string) Window {
	now := c.Now()
	w := Window{
		Start: now.Add(-c.lookback),
		End:   now.Add(c.lookahead),
	}

	if strings.TrimSpace(since) != "" {
		if t, ok := ParseSince(since, c.loc); ok {
			w.Start = t
		} else {
			w.SinceIgnored = true
		}
	}

	if w.Start.After(w.End) {
		w.Start = w.End
	}
	return w
}

// ParseSince parses an ISO-8601 timestamp and converts it to loc. Values
// without an offset are interpreted in loc.
func ParseSince(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range sinceLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t.In(loc), true
		}
	}
	return time.Time{}, false
}
