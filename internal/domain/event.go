package domain

import (
	"errors"
	"math"
	"strings"
	"time"
)

// Severity is the coarse severity bucket assigned upstream by the scraper's ranker.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

// ParseSeverity matches a level case-insensitively. Absent or unrecognized
// values fall back to SeverityLow.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "medium":
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Event is a single news-style record from the feed. Events are treated as
// immutable once loaded.
type Event struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	URL            string   `json:"url"`
	Source         string   `json:"source"`
	SeverityLevel  Severity `json:"severity_level"`
	SeverityScore  float64  `json:"severity_score"`
	Published      string   `json:"published,omitempty"`
	TickerLabel    string   `json:"ticker_label,omitempty"`
	TickerCategory Category `json:"ticker_category,omitempty"`
}

// Text returns the lowercased "title description" string the classifier and
// matchers operate on.
func (e Event) Text() string {
	return strings.ToLower(e.Title + " " + e.Description)
}

// PublishedTime parses the published timestamp. The second return value is
// false when the field is empty or in no recognized layout.
func (e Event) PublishedTime() (time.Time, bool) {
	return ParseTimestamp(e.Published)
}

// Precomputed reports whether the event carries its own ticker label and a
// known category, in which case classification is bypassed.
func (e Event) Precomputed() bool {
	return e.TickerLabel != "" && e.TickerCategory.Valid()
}

// timestampLayouts covers the ISO-8601 variants seen in scraper output and the
// RFC 1123 forms used by RSS pubDate fields.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02",
}

// ParseTimestamp tries each known layout in turn. Layouts without a zone are
// interpreted as UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// TickerConfig bounds a ticker selection pass. It is supplied by the feed
// alongside the event batch.
type TickerConfig struct {
	FreshnessHours float64 `json:"freshness_hours"`
	MaxItems       int     `json:"max_items"`
}

const (
	DefaultFreshnessHours = 72
	DefaultMaxItems       = 20
)

// DefaultTickerConfig returns the configuration used when the feed omits one.
func DefaultTickerConfig() TickerConfig {
	return TickerConfig{FreshnessHours: DefaultFreshnessHours, MaxItems: DefaultMaxItems}
}

// WithDefaults replaces absent (non-positive) fields with their defaults.
func (c TickerConfig) WithDefaults() TickerConfig {
	if c.FreshnessHours <= 0 {
		c.FreshnessHours = DefaultFreshnessHours
	}
	if c.MaxItems <= 0 {
		c.MaxItems = DefaultMaxItems
	}
	return c
}

// Thresholds are the user-adjustable numeric cutoffs for the mass-casualty and
// stock-swing predicates.
type Thresholds struct {
	StockPercent float64 `json:"stockPercent"`
	MassCasualty float64 `json:"massCasualty"`
}

// DefaultThresholds returns the thresholds used before the user changes them.
func DefaultThresholds() Thresholds {
	return Thresholds{StockPercent: 50, MassCasualty: 10}
}

// Validate rejects negative and NaN thresholds. Zero is allowed and makes the
// predicate accept any number.
func (t Thresholds) Validate() error {
	if t.StockPercent < 0 || t.MassCasualty < 0 || math.IsNaN(t.StockPercent) || math.IsNaN(t.MassCasualty) {
		return errors.New("thresholds must not be negative")
	}
	return nil
}

// TickerItem is one entry of the scrolling ticker. Items are derived on every
// selection pass and never persisted by the core.
type TickerItem struct {
	Label    string   `json:"label"`
	URL      string   `json:"url"`
	Category Category `json:"category"`
}

// Stats counts events per severity level.
type Stats struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// ComputeStats tallies events by severity level.
func ComputeStats(events []Event) Stats {
	s := Stats{Total: len(events)}
	for _, e := range events {
		switch ParseSeverity(string(e.SeverityLevel)) {
		case SeverityCritical:
			s.Critical++
		case SeverityHigh:
			s.High++
		case SeverityMedium:
			s.Medium++
		default:
			s.Low++
		}
	}
	return s
}

// FilterBySeverity returns the events at the given level. The empty string
// and "all" return every event.
func FilterBySeverity(events []Event, level string) []Event {
	if level == "" || strings.EqualFold(level, "all") {
		return events
	}
	want := ParseSeverity(level)
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if e.SeverityLevel == want {
			out = append(out, e)
		}
	}
	return out
}
