package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/seenimoa/kospifeed/pkg/utils"
)

// --- Canonical feed event ---

// EventType identifies which provider an event came from.
type EventType string

const (
	EventFiling EventType = "FILING"
	EventNews   EventType = "NEWS"
)

// Relevance weights. Filings are higher-confidence signals than headlines.
const (
	FilingScore = 1.0
	NewsScore   = 0.5
)

// Event is the unified record both providers map into.
type Event struct {
	Type        EventType `json:"type"`
	Symbol      *string   `json:"symbol"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary,omitempty"`
	URL         string    `json:"url"`
	SourceURL   string    `json:"source_url,omitempty"`
	PublishedAt Timestamp `json:"published_at"`
	Tags        []string  `json:"tags"`
	Score       float64   `json:"score"`
}

// Valid reports whether the required fields are populated.
func (e Event) Valid() bool {
	return e.Type != "" && e.Title != "" && e.URL != ""
}

// MarshalJSON keeps tags as an array even when the slice is nil.
func (e Event) MarshalJSON() ([]byte, error) {
	type plain Event
	if e.Tags == nil {
		e.Tags = []string{}
	}
	// HTML escaping is left to the outer encoder.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(plain(e)); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// --- Nullable timestamp ---

// Timestamp is an optional instant rendered as ISO-8601 with an explicit
// offset, or JSON null when the upstream value could not be parsed.
type Timestamp struct {
	t     time.Time
	valid bool
}

// At wraps t, keeping its location for rendering.
func At(t time.Time) Timestamp {
	return Timestamp{t: t, valid: true}
}

// Time returns the instant and whether it is set.
func (ts Timestamp) Time() (time.Time, bool) { return ts.t, ts.valid }

// IsNull reports whether the timestamp is absent.
func (ts Timestamp) IsNull() bool { return !ts.valid }

// String returns the ISO rendering, or "" when null.
func (ts Timestamp) String() string {
	if !ts.valid {
		return ""
	}
	return ts.t.Format(utils.ISOLayout)
}

// After reports whether ts is strictly later than other. A null timestamp
// is earlier than every set one.
func (ts Timestamp) After(other Timestamp) bool {
	switch {
	case !ts.valid:
		return false
	case !other.valid:
		return true
	default:
		return ts.t.After(other.t)
	}
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if !ts.valid {
		return []byte("null"), nil
	}
	return json.Marshal(ts.String())
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*ts = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("timestamp %q: %w", s, err)
	}
	*ts = At(t)
	return nil
}
