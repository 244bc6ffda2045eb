package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Feed is the decoded event feed produced by the scraper.
type Feed struct {
	LastUpdated  string       `json:"last_updated"`
	TickerConfig TickerConfig `json:"ticker_config"`
	Events       []Event      `json:"events"`
}

// proxyEnvelope is the CORS-proxy convention some feed mirrors use: the real
// payload is a JSON string under "contents".
type proxyEnvelope struct {
	Contents *string `json:"contents"`
}

// ErrEmptyFeed is returned when a payload decodes to nothing usable.
var ErrEmptyFeed = errors.New("feed payload is empty")

// ParseFeed decodes a feed payload, unwrapping a {"contents": "..."} envelope
// when present. Event severity levels are normalized and the ticker config has
// defaults applied.
func ParseFeed(data []byte) (Feed, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Feed{}, ErrEmptyFeed
	}

	var env proxyEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Feed{}, fmt.Errorf("parse feed: %w", err)
	}
	if env.Contents != nil {
		if strings.TrimSpace(*env.Contents) == "" {
			return Feed{}, ErrEmptyFeed
		}
		data = []byte(*env.Contents)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Feed{}, fmt.Errorf("parse feed: %w", err)
	}
	if raw == nil {
		return Feed{}, ErrEmptyFeed
	}

	var feed Feed
	if err := json.Unmarshal(data, &feed); err != nil {
		return Feed{}, fmt.Errorf("parse feed: %w", err)
	}
	if _, ok := raw["ticker_config"]; !ok {
		feed.TickerConfig = DefaultTickerConfig()
	}
	feed.TickerConfig = feed.TickerConfig.WithDefaults()
	for i := range feed.Events {
		feed.Events[i].SeverityLevel = ParseSeverity(string(feed.Events[i].SeverityLevel))
	}
	return feed, nil
}

// FeedAttempt records the outcome of fetching one feed source.
type FeedAttempt struct {
	URL    string `json:"url"`
	OK     bool   `json:"ok"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Outcome renders the attempt as "OK", "HTTP <status>" or the error text.
func (a FeedAttempt) Outcome() string {
	switch {
	case a.OK:
		return "OK"
	case a.Status != "":
		return "HTTP " + a.Status
	case a.Error != "":
		return a.Error
	default:
		return "error"
	}
}

// FeedUnavailableError means every feed source failed or returned unusable
// content. It carries the attempts so they can be shown to the user.
type FeedUnavailableError struct {
	Attempts []FeedAttempt
}

func (e *FeedUnavailableError) Error() string {
	var b strings.Builder
	b.WriteString("failed to load events. attempts:")
	for _, a := range e.Attempts {
		fmt.Fprintf(&b, "\n• %s → %s", a.URL, a.Outcome())
	}
	return b.String()
}
