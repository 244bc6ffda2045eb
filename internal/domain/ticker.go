package domain

import (
	"strings"
	"time"
)

// StockSwingMaxAge is the hard freshness cutoff for stock-swing items. It
// applies regardless of TickerConfig.FreshnessHours.
const StockSwingMaxAge = 12 * time.Hour

// SelectTickerItems picks the ticker items for the current time. See
// SelectTickerItemsAt.
func SelectTickerItems(events []Event, cfg TickerConfig, th Thresholds, watchlistTickers []string) []TickerItem {
	return SelectTickerItemsAt(clock.Now(), events, cfg, th, watchlistTickers)
}

// SelectTickerItemsAt walks events in feed order and returns at most
// cfg.MaxItems ticker items with unique normalized labels.
//
// Events older than cfg.FreshnessHours are skipped; events without a parseable
// timestamp count as fresh. Stock-swing items must additionally be at most
// StockSwingMaxAge old (an unparseable timestamp fails this check) and must not
// mention a watchlist ticker or one of its synonyms, since those symbols are
// reported through live prices instead. Stock-swing and mass-casualty items,
// precomputed ones included, must also clear their thresholds.
func SelectTickerItemsAt(now time.Time, events []Event, cfg TickerConfig, th Thresholds, watchlistTickers []string) []TickerItem {
	cfg = cfg.WithDefaults()
	freshness := time.Duration(cfg.FreshnessHours * float64(time.Hour))
	exclusions := newWordMatcher(watchlistTokens(watchlistTickers))

	seen := make(map[string]struct{})
	items := make([]TickerItem, 0, min(len(events), cfg.MaxItems))
	for _, e := range events {
		published, hasTime := e.PublishedTime()
		if hasTime && now.Sub(published) > freshness {
			continue
		}

		c, ok := Classify(e, th)
		if !ok {
			continue
		}

		switch c.Category {
		case CategoryStockSwing:
			if !hasTime || now.Sub(published) > StockSwingMaxAge {
				continue
			}
			if exclusions.match(c.Label + " " + e.Title + " " + e.Description) {
				continue
			}
			if !IsStockSwing(e.Text(), th.StockPercent) {
				continue
			}
		case CategoryMassCasualty:
			if !IsMassCasualty(e.Text(), th.MassCasualty) {
				continue
			}
		}

		key := NormalizeLabel(c.Label)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		items = append(items, TickerItem{Label: c.Label, URL: e.URL, Category: c.Category})
		if len(items) >= cfg.MaxItems {
			break
		}
	}
	return items
}

// NormalizeLabel is the ticker dedup key: lowercased, whitespace runs
// collapsed to one space, trimmed.
func NormalizeLabel(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), " ")
}

// watchlistTokens expands watchlist symbols with their synonyms.
func watchlistTokens(tickers []string) []string {
	var tokens []string
	for _, t := range tickers {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		tokens = append(tokens, t)
		tokens = append(tokens, Synonyms(t)...)
	}
	return tokens
}
