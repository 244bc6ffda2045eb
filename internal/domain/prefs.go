package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Preference keys as stored by the preference collaborator.
const (
	PrefTickerDuration = "tickerDuration"
	PrefThresholds     = "tickerThresholds"
	PrefWatchlist      = "stockWatchlist"
	PrefRSSFilters     = "rssFilters"
)

// DefaultTickerDuration is the ticker scroll duration in seconds.
const DefaultTickerDuration = 100

// tickerDurationSteps is the discrete ladder of allowed scroll durations.
var tickerDurationSteps = []int{10, 15, 20, 25, 30, 40, 50, 60, 80, 100}

// TickerDurationSteps returns a copy of the allowed scroll durations.
func TickerDurationSteps() []int {
	out := make([]int, len(tickerDurationSteps))
	copy(out, tickerDurationSteps)
	return out
}

// AdjustTickerDuration moves one step along the ladder: +1 slows the ticker
// (longer duration), -1 speeds it up. Off-ladder values snap to the nearest
// step first. The result is clamped to the ladder ends.
func AdjustTickerDuration(current, direction int) int {
	idx := nearestStep(current)
	next := max(0, min(len(tickerDurationSteps)-1, idx+direction))
	return tickerDurationSteps[next]
}

func nearestStep(d int) int {
	best := 0
	for i, s := range tickerDurationSteps {
		if s == d {
			return i
		}
		if abs(s-d) < abs(tickerDurationSteps[best]-d) {
			best = i
		}
	}
	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// ValidTickerDuration reports whether d is on the ladder.
func ValidTickerDuration(d int) bool {
	for _, s := range tickerDurationSteps {
		if s == d {
			return true
		}
	}
	return false
}

// DecodeTickerDuration reads a stored duration. Values that are not integers
// on the ladder fall back to DefaultTickerDuration.
func DecodeTickerDuration(raw []byte) int {
	n, err := strconv.Atoi(strings.Trim(strings.TrimSpace(string(raw)), `"`))
	if err != nil || !ValidTickerDuration(n) {
		return DefaultTickerDuration
	}
	return n
}

// EncodeTickerDuration is the stored form of a duration.
func EncodeTickerDuration(d int) []byte {
	return []byte(strconv.Itoa(d))
}

// DecodeThresholds reads stored thresholds. Both fields must be present JSON
// numbers, otherwise the defaults are returned.
func DecodeThresholds(raw []byte) Thresholds {
	var obj struct {
		StockPercent *float64 `json:"stockPercent"`
		MassCasualty *float64 `json:"massCasualty"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil || obj.StockPercent == nil || obj.MassCasualty == nil {
		return DefaultThresholds()
	}
	return Thresholds{StockPercent: *obj.StockPercent, MassCasualty: *obj.MassCasualty}
}

// DecodeRSSFilters reads stored source filters. Missing keys keep their
// default (enabled); malformed input returns the defaults.
func DecodeRSSFilters(raw []byte) RSSFilters {
	f := DefaultRSSFilters()
	if err := json.Unmarshal(raw, &f); err != nil {
		return DefaultRSSFilters()
	}
	return f
}

// DecodeWatchlist reads a stored watchlist, returning an empty list when the
// stored value is malformed.
func DecodeWatchlist(raw []byte) []WatchlistEntry {
	entries, ok := NormalizeWatchlist(raw)
	if !ok {
		return []WatchlistEntry{}
	}
	return entries
}

// Preferences is the user-adjustable state persisted between sessions.
type Preferences struct {
	TickerDuration int              `json:"tickerDuration"`
	Thresholds     Thresholds       `json:"thresholds"`
	Watchlist      []WatchlistEntry `json:"watchlist"`
	RSSFilters     RSSFilters       `json:"rssFilters"`
}

// DefaultPreferences is the state of a fresh install.
func DefaultPreferences() Preferences {
	return Preferences{
		TickerDuration: DefaultTickerDuration,
		Thresholds:     DefaultThresholds(),
		Watchlist:      []WatchlistEntry{},
		RSSFilters:     DefaultRSSFilters(),
	}
}
