// Package dashboard holds the application context: the loaded events, the
// user's preferences and the collaborators that serve every dashboard panel.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/crisis-ticker-service/internal/domain"
	"github.com/couchcryptid/crisis-ticker-service/internal/observability"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidInput marks caller mistakes such as an unknown speed action.
var ErrInvalidInput = errors.New("invalid input")

// FeedLoader fetches the event feed.
type FeedLoader interface {
	Load(ctx context.Context) (domain.Feed, []domain.FeedAttempt, error)
}

// PrefsStore persists user preferences.
type PrefsStore interface {
	Load(ctx context.Context) (domain.Preferences, error)
	SaveTickerDuration(ctx context.Context, seconds int) error
	SaveThresholds(ctx context.Context, th domain.Thresholds) error
	SaveWatchlist(ctx context.Context, entries []domain.WatchlistEntry) error
	SaveRSSFilters(ctx context.Context, f domain.RSSFilters) error
}

// HeadlineSource fetches external headlines for a watchlist entry.
type HeadlineSource interface {
	Headlines(ctx context.Context, entry domain.WatchlistEntry, filters domain.RSSFilters) []domain.SourceHeadlines
}

// QuoteSource is a cached quote provider whose entries can be invalidated.
type QuoteSource interface {
	domain.QuoteProvider
	ClearSymbols(symbols ...string)
}

// TickerPublisher receives each ticker selection pass.
type TickerPublisher interface {
	PublishTicker(ctx context.Context, items []domain.TickerItem, selectedAt time.Time) error
}

// Deps are the collaborators of an App. Publisher may be nil.
type Deps struct {
	Feeds       FeedLoader
	Prefs       PrefsStore
	Headlines   HeadlineSource
	Quotes      QuoteSource
	Publisher   TickerPublisher
	LiveSymbols []string
	Metrics     *observability.Metrics
	Logger      *slog.Logger
}

// App is the dashboard application context. It is constructed once at
// startup and is safe for concurrent use.
type App struct {
	store       *EventStore
	feeds       FeedLoader
	prefs       PrefsStore
	headlines   HeadlineSource
	quotes      QuoteSource
	publisher   TickerPublisher
	liveSymbols []string
	metrics     *observability.Metrics
	logger      *slog.Logger

	loadMu sync.Mutex

	prefsMu     sync.Mutex
	preferences domain.Preferences
}

// New creates an App with default preferences. Call Init to read the
// persisted ones.
func New(d Deps) *App {
	return &App{
		store:       NewEventStore(),
		feeds:       d.Feeds,
		prefs:       d.Prefs,
		headlines:   d.Headlines,
		quotes:      d.Quotes,
		publisher:   d.Publisher,
		liveSymbols: d.LiveSymbols,
		metrics:     d.Metrics,
		logger:      d.Logger,
		preferences: domain.DefaultPreferences(),
	}
}

// Init loads persisted preferences.
func (a *App) Init(ctx context.Context) error {
	p, err := a.prefs.Load(ctx)
	if err != nil {
		return fmt.Errorf("load preferences: %w", err)
	}
	a.prefsMu.Lock()
	a.preferences = p
	a.prefsMu.Unlock()
	return nil
}

// Store exposes the event store.
func (a *App) Store() *EventStore { return a.store }

// Preferences returns a copy of the current preferences.
func (a *App) Preferences() domain.Preferences {
	a.prefsMu.Lock()
	defer a.prefsMu.Unlock()
	p := a.preferences
	p.Watchlist = make([]domain.WatchlistEntry, len(a.preferences.Watchlist))
	copy(p.Watchlist, a.preferences.Watchlist)
	return p
}

// CheckReadiness reports ready once a feed has been loaded.
func (a *App) CheckReadiness(_ context.Context) error {
	if !a.store.Loaded() {
		return errors.New("no feed loaded yet")
	}
	return nil
}

// LoadResult describes a completed feed load.
type LoadResult struct {
	Events      int                  `json:"events"`
	LastUpdated string               `json:"last_updated"`
	Attempts    []domain.FeedAttempt `json:"attempts"`
}

// Reload fetches the feed and replaces the store. Loads are serialized; the
// last one to complete wins. On failure the store is left untouched and the
// error is a *domain.FeedUnavailableError carrying the attempts.
func (a *App) Reload(ctx context.Context) (LoadResult, error) {
	a.loadMu.Lock()
	defer a.loadMu.Unlock()

	feed, attempts, err := a.feeds.Load(ctx)
	if err != nil {
		return LoadResult{Attempts: attempts}, err
	}
	a.store.Replace(feed)
	a.InjectLiveStocks(ctx)

	events, _ := a.store.Snapshot()
	a.metrics.EventsLoaded.Set(float64(len(events)))
	a.logger.Info("feed loaded", "events", len(events), "last_updated", feed.LastUpdated)

	a.publishTicker(ctx)
	return LoadResult{Events: len(events), LastUpdated: feed.LastUpdated, Attempts: attempts}, nil
}

// publishTicker sends the current selection to the publisher, once per
// completed load. Failures are logged and counted only.
func (a *App) publishTicker(ctx context.Context) {
	if a.publisher == nil {
		return
	}
	items, now, _ := a.selectTicker()
	if len(items) == 0 {
		return
	}
	if err := a.publisher.PublishTicker(ctx, items, now); err != nil {
		a.metrics.TickerPublish.WithLabelValues("error").Inc()
		a.logger.Warn("ticker publish failed", "error", err)
		return
	}
	a.metrics.TickerPublish.WithLabelValues("success").Inc()
}

// InjectLiveStocks quotes the configured live symbols and replaces the live
// events with a stock-swing event for every symbol with a known percent
// change.
func (a *App) InjectLiveStocks(ctx context.Context) {
	if len(a.liveSymbols) == 0 || a.quotes == nil {
		return
	}
	rows := a.quoteAll(ctx, a.liveSymbols)
	now := domain.Now()
	var injected []domain.Event
	for _, r := range rows {
		if !r.Available || r.Quote.Pct == nil {
			continue
		}
		injected = append(injected, domain.StockSwingEvent(r.Symbol, *r.Quote.Pct, now))
	}
	a.store.SetLive(injected)
	a.logger.Debug("live stocks injected", "count", len(injected))
}

// EventsView is the event list panel.
type EventsView struct {
	Level       string         `json:"level"`
	LastUpdated string         `json:"last_updated"`
	Stats       domain.Stats   `json:"stats"`
	Events      []domain.Event `json:"events"`
}

// Events returns the events at level, with stats over every event. An empty
// level uses the store's current filter; any other value becomes the filter.
func (a *App) Events(level string) EventsView {
	if level == "" {
		level = a.store.Level()
	} else {
		a.store.SetLevel(level)
	}
	events, _ := a.store.Snapshot()
	return EventsView{
		Level:       level,
		LastUpdated: a.store.LastUpdated(),
		Stats:       domain.ComputeStats(events),
		Events:      domain.FilterBySeverity(events, level),
	}
}

// TickerView is the ticker panel.
type TickerView struct {
	Items    []domain.TickerItem `json:"items"`
	Duration int                 `json:"duration"`
}

// Ticker runs a selection pass over the stored events using the current
// thresholds and watchlist.
func (a *App) Ticker(_ context.Context) TickerView {
	items, _, duration := a.selectTicker()

	a.metrics.TickerItemsSelected.Set(float64(len(items)))
	for _, it := range items {
		a.metrics.Classifications.WithLabelValues(string(it.Category)).Inc()
	}
	return TickerView{Items: items, Duration: duration}
}

func (a *App) selectTicker() ([]domain.TickerItem, time.Time, int) {
	p := a.Preferences()
	events, cfg := a.store.Snapshot()
	now := domain.Now()
	items := domain.SelectTickerItemsAt(now, events, cfg, p.Thresholds, domain.WatchlistTickers(p.Watchlist))
	return items, now, p.TickerDuration
}

// Speed actions accepted by AdjustSpeed.
const (
	SpeedSlower = "slower"
	SpeedFaster = "faster"
	SpeedReset  = "reset"
)

// AdjustSpeed moves the ticker duration one ladder step, or resets it, and
// persists the result.
func (a *App) AdjustSpeed(ctx context.Context, action string) (int, error) {
	a.prefsMu.Lock()
	defer a.prefsMu.Unlock()

	current := a.preferences.TickerDuration
	var next int
	switch strings.ToLower(strings.TrimSpace(action)) {
	case SpeedSlower:
		next = domain.AdjustTickerDuration(current, 1)
	case SpeedFaster:
		next = domain.AdjustTickerDuration(current, -1)
	case SpeedReset:
		next = domain.DefaultTickerDuration
	default:
		return current, fmt.Errorf("%w: unknown speed action %q", ErrInvalidInput, action)
	}
	if err := a.prefs.SaveTickerDuration(ctx, next); err != nil {
		return current, err
	}
	a.preferences.TickerDuration = next
	return next, nil
}

// Thresholds returns the classifier thresholds.
func (a *App) Thresholds() domain.Thresholds {
	return a.Preferences().Thresholds
}

// SetThresholds validates and persists classifier thresholds.
func (a *App) SetThresholds(ctx context.Context, th domain.Thresholds) error {
	if err := th.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	a.prefsMu.Lock()
	defer a.prefsMu.Unlock()
	if err := a.prefs.SaveThresholds(ctx, th); err != nil {
		return err
	}
	a.preferences.Thresholds = th
	return nil
}

// RSSFilters returns the headline source filters.
func (a *App) RSSFilters() domain.RSSFilters {
	return a.Preferences().RSSFilters
}

// SetRSSFilters persists the headline source filters.
func (a *App) SetRSSFilters(ctx context.Context, f domain.RSSFilters) error {
	a.prefsMu.Lock()
	defer a.prefsMu.Unlock()
	if err := a.prefs.SaveRSSFilters(ctx, f); err != nil {
		return err
	}
	a.preferences.RSSFilters = f
	return nil
}

// SetWatchlist normalizes and persists the watchlist, returning what was stored.
func (a *App) SetWatchlist(ctx context.Context, entries []domain.WatchlistEntry) ([]domain.WatchlistEntry, error) {
	normalized := domain.NormalizeWatchlistEntries(entries)
	a.prefsMu.Lock()
	defer a.prefsMu.Unlock()
	if err := a.prefs.SaveWatchlist(ctx, normalized); err != nil {
		return nil, err
	}
	a.preferences.Watchlist = normalized
	return normalized, nil
}

// Mention is the watchlist panel row for one entry.
type Mention struct {
	Entry     domain.WatchlistEntry `json:"entry"`
	Latest    *domain.Event         `json:"latest,omitempty"`
	Headlines []domain.Headline     `json:"headlines"`
}

// WatchlistMentions finds, for each watchlist entry, the latest matching feed
// event and the merged external headlines. Entries are processed concurrently.
func (a *App) WatchlistMentions(ctx context.Context) []Mention {
	p := a.Preferences()
	events, _ := a.store.Snapshot()
	now := domain.Now()

	out := make([]Mention, len(p.Watchlist))
	var g errgroup.Group
	for i, entry := range p.Watchlist {
		g.Go(func() error {
			m := Mention{Entry: entry, Headlines: []domain.Headline{}}
			if e, ok := domain.FindLatestMatch(entry, events); ok {
				m.Latest = &e
			}
			if a.headlines != nil {
				results := a.headlines.Headlines(ctx, entry, p.RSSFilters)
				if merged := domain.MergeHeadlines(entry, results, p.RSSFilters, now); merged != nil {
					m.Headlines = merged
				}
			}
			out[i] = m
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// PriceRow is one live price panel row. Quote is the zero value when the
// symbol is unavailable.
type PriceRow struct {
	Symbol    string       `json:"symbol"`
	Available bool         `json:"available"`
	Quote     domain.Quote `json:"quote"`
}

// LivePrices quotes every ticker on the watchlist. With refresh the cached
// quotes for those symbols are dropped first.
func (a *App) LivePrices(ctx context.Context, refresh bool) []PriceRow {
	symbols := domain.WatchlistTickers(a.Preferences().Watchlist)
	if a.quotes == nil {
		rows := make([]PriceRow, len(symbols))
		for i, s := range symbols {
			rows[i] = PriceRow{Symbol: s}
		}
		return rows
	}
	if refresh {
		a.quotes.ClearSymbols(symbols...)
	}
	return a.quoteAll(ctx, symbols)
}

// RefreshPrices invalidates cached quotes for the watchlist and live symbols
// and re-injects live stock events.
func (a *App) RefreshPrices(ctx context.Context) {
	if a.quotes == nil {
		return
	}
	symbols := domain.WatchlistTickers(a.Preferences().Watchlist)
	symbols = append(symbols, a.liveSymbols...)
	a.quotes.ClearSymbols(symbols...)
	a.InjectLiveStocks(ctx)
}

// quoteAll fetches each symbol concurrently. Failed symbols are reported as
// unavailable rows in input order.
func (a *App) quoteAll(ctx context.Context, symbols []string) []PriceRow {
	rows := make([]PriceRow, len(symbols))
	var g errgroup.Group
	for i, sym := range symbols {
		g.Go(func() error {
			sym = strings.ToUpper(strings.TrimSpace(sym))
			q, err := a.quotes.Quote(ctx, sym)
			if err != nil || q.Empty() {
				if err != nil {
					a.logger.Debug("quote unavailable", "symbol", sym, "error", err)
				}
				rows[i] = PriceRow{Symbol: sym}
				return nil
			}
			rows[i] = PriceRow{Symbol: sym, Available: true, Quote: q}
			return nil
		})
	}
	_ = g.Wait()
	return rows
}
