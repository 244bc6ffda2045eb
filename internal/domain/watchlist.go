package domain

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"
	"time"
)

// MaxWatchlistEntries caps the watchlist; larger persisted sets keep the first entries.
const MaxWatchlistEntries = 5

// EntryType distinguishes ticker symbols from free-form company names.
type EntryType string

const (
	EntryTicker  EntryType = "ticker"
	EntryCompany EntryType = "company"
)

// WatchlistEntry is one user-curated symbol or company name.
type WatchlistEntry struct {
	Value string    `json:"value"`
	Type  EntryType `json:"type"`
}

// synonyms maps well-known ticker symbols to brand and company names used in
// headlines. Symbols absent from the table have no synonyms.
var synonyms = map[string][]string{
	"C":     {"Citigroup", "Citi", "Citibank"},
	"BAC":   {"Bank of America"},
	"JPM":   {"JPMorgan", "JPMorgan Chase"},
	"AAPL":  {"Apple", "Apple Inc"},
	"MSFT":  {"Microsoft"},
	"GOOGL": {"Google", "Alphabet"},
	"TSLA":  {"Tesla"},
	"KO":    {"Coca-Cola", "The Coca-Cola Company", "Coke"},
	"MCD":   {"McDonald's", "McDonalds", "McDonald’s"},
}

// Synonyms returns the alternate names for a ticker symbol (case-insensitive).
func Synonyms(symbol string) []string {
	return synonyms[strings.ToUpper(strings.TrimSpace(symbol))]
}

// Tokens expands the entry into the terms matched against text. Only ticker
// entries get synonym expansion; company entries match their literal name.
func (w WatchlistEntry) Tokens() []string {
	base := strings.TrimSpace(w.Value)
	if w.Type == EntryCompany {
		return []string{base}
	}
	return append([]string{base}, Synonyms(base)...)
}

// NormalizeWatchlistEntries trims values, coerces unknown types to ticker,
// drops empty values and keeps at most MaxWatchlistEntries.
func NormalizeWatchlistEntries(entries []WatchlistEntry) []WatchlistEntry {
	out := make([]WatchlistEntry, 0, min(len(entries), MaxWatchlistEntries))
	for _, e := range entries {
		v := strings.TrimSpace(e.Value)
		if v == "" {
			continue
		}
		t := EntryTicker
		if e.Type == EntryCompany {
			t = EntryCompany
		}
		out = append(out, WatchlistEntry{Value: v, Type: t})
		if len(out) == MaxWatchlistEntries {
			break
		}
	}
	return out
}

// NormalizeWatchlist decodes a persisted watchlist. Both the legacy array of
// plain strings and the array of {value, type} objects are accepted. The
// boolean is false when raw is not a JSON array.
func NormalizeWatchlist(raw []byte) ([]WatchlistEntry, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	entries := make([]WatchlistEntry, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			entries = append(entries, WatchlistEntry{Value: s, Type: EntryTicker})
			continue
		}
		var obj struct {
			Value any    `json:"value"`
			Type  string `json:"type"`
		}
		if err := json.Unmarshal(item, &obj); err != nil {
			continue
		}
		entries = append(entries, WatchlistEntry{Value: stringify(obj.Value), Type: EntryType(obj.Type)})
	}
	return NormalizeWatchlistEntries(entries), true
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		b, _ := json.Marshal(t)
		return string(b)
	default:
		return ""
	}
}

// WatchlistTickers returns the trimmed, uppercased values of ticker entries.
func WatchlistTickers(entries []WatchlistEntry) []string {
	var out []string
	for _, e := range entries {
		v := strings.TrimSpace(e.Value)
		if e.Type == EntryTicker && v != "" {
			out = append(out, strings.ToUpper(v))
		}
	}
	return out
}

// wordMatcher matches literal tokens as case-insensitive whole words.
type wordMatcher []*regexp.Regexp

func newWordMatcher(tokens []string) wordMatcher {
	m := make(wordMatcher, 0, len(tokens))
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		m = append(m, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(tok)+`\b`))
	}
	return m
}

// match reports whether text contains any of the tokens.
func (m wordMatcher) match(text string) bool {
	for _, re := range m {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// FindLatestMatch returns the most recently published event mentioning any of
// the entry's tokens. Events with missing or unparseable timestamps sort last.
func FindLatestMatch(entry WatchlistEntry, events []Event) (Event, bool) {
	tokens := newWordMatcher(entry.Tokens())
	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return publishedUnix(sorted[i]) > publishedUnix(sorted[j])
	})
	for _, e := range sorted {
		if tokens.match(e.Text()) {
			return e, true
		}
	}
	return Event{}, false
}

func publishedUnix(e Event) int64 {
	t, ok := e.PublishedTime()
	if !ok {
		return 0
	}
	return t.UnixMilli()
}

// Headline is an item from an external news source.
type Headline struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description,omitempty"`
	PubDate     string `json:"pub_date"`
	Source      string `json:"source"`
}

// Headline source labels.
const (
	SourceGoogleNews    = "Google News"
	SourceMWTopStories  = "MW Top Stories"
	SourceMWRealtime    = "MW Realtime"
	SourceMWMarketPulse = "MW Market Pulse"
)

// SourceHeadlines groups the items returned by one labeled source. A failed
// fetch is represented by an empty Items slice.
type SourceHeadlines struct {
	Source string
	Items  []Headline
}

// RSSFilters toggles which headline sources contribute to watchlist mentions.
type RSSFilters struct {
	GoogleNews bool `json:"gn"`
	MWTop      bool `json:"mwTop"`
	MWRealtime bool `json:"mwRealtime"`
	MWPulse    bool `json:"mwPulse"`
}

// DefaultRSSFilters enables every source.
func DefaultRSSFilters() RSSFilters {
	return RSSFilters{GoogleNews: true, MWTop: true, MWRealtime: true, MWPulse: true}
}

// Enabled reports whether headlines from the labeled source are shown.
// Unknown sources are always shown.
func (f RSSFilters) Enabled(source string) bool {
	switch source {
	case SourceGoogleNews:
		return f.GoogleNews
	case SourceMWTopStories:
		return f.MWTop
	case SourceMWRealtime:
		return f.MWRealtime
	case SourceMWMarketPulse:
		return f.MWPulse
	default:
		return true
	}
}

const (
	// HeadlineMaxAge bounds how old a merged headline may be.
	HeadlineMaxAge = 12 * time.Hour
	// MaxHeadlinesPerEntry caps merged headlines per watchlist entry.
	MaxHeadlinesPerEntry = 5
)

// MergeHeadlines combines headline results for a watchlist entry: enabled
// sources are concatenated in order, items must mention one of the entry's
// tokens and be at most HeadlineMaxAge old, duplicates by link (or title when
// there is no link) are dropped, and at most MaxHeadlinesPerEntry remain.
func MergeHeadlines(entry WatchlistEntry, results []SourceHeadlines, filters RSSFilters, now time.Time) []Headline {
	tokens := newWordMatcher(entry.Tokens())
	seen := make(map[string]struct{})
	var out []Headline
	for _, res := range results {
		if !filters.Enabled(res.Source) {
			continue
		}
		for _, h := range res.Items {
			if !headlineFresh(h, now) || !tokens.match(h.Title+" "+h.Description) {
				continue
			}
			key := strings.ToLower(h.Link)
			if key == "" {
				key = strings.ToLower(h.Title)
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			if h.Source == "" {
				h.Source = res.Source
			}
			out = append(out, h)
			if len(out) == MaxHeadlinesPerEntry {
				return out
			}
		}
	}
	return out
}

// headlineFresh treats unparseable dates as stale.
func headlineFresh(h Headline, now time.Time) bool {
	t, ok := ParseTimestamp(h.PubDate)
	if !ok {
		return false
	}
	return now.Sub(t) <= HeadlineMaxAge
}
