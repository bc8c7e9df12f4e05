package utils

import (
	"fmt"
	"time"
)

// DefaultZone is the reference zone used when none is configured.
const DefaultZone = "Asia/Seoul"

const (
	// ISOLayout is ISO-8601 with millisecond precision and an explicit
	// numeric offset. Timestamps rendered in one zone with this layout sort
	// lexically in chronological order.
	ISOLayout = "2006-01-02T15:04:05.000-07:00"

	// CompactDateLayout is the all-digits calendar date (yyyyMMdd).
	CompactDateLayout = "20060102"
)

// KST is Korea Standard Time (UTC+9, no daylight saving).
var KST *time.Location

func init() {
	var err error
	KST, err = time.LoadLocation(DefaultZone)
	if err != nil {
		// Fallback: create fixed zone if tz database is not available
		KST = time.FixedZone("KST", 9*60*60)
	}
}

// LoadZone resolves a zone name. An empty name or DefaultZone always
// succeeds, falling back to the fixed KST offset without a tz database.
func LoadZone(name string) (*time.Location, error) {
	if name == "" || name == DefaultZone {
		return KST, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load zone %q: %w", name, err)
	}
	return loc, nil
}

// FormatISO renders t in loc using ISOLayout.
func FormatISO(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(ISOLayout)
}

// FormatCompactDate renders the calendar date of t in loc as yyyyMMdd.
func FormatCompactDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(CompactDateLayout)
}

// ParseCompactDate parses a yyyyMMdd date at the given hour in loc.
func ParseCompactDate(s string, hour int, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(CompactDateLayout, s, loc)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, loc), nil
}
