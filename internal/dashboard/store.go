package dashboard

import (
	"sync"

	"github.com/couchcryptid/crisis-ticker-service/internal/domain"
)

// EventStore holds the most recently loaded feed. Each load replaces it
// wholesale. Safe for concurrent use.
type EventStore struct {
	mu           sync.RWMutex
	events       []domain.Event
	live         []domain.Event
	tickerConfig domain.TickerConfig
	lastUpdated  string
	level        string
	loaded       bool
}

// NewEventStore returns an empty store showing every severity level.
func NewEventStore() *EventStore {
	return &EventStore{tickerConfig: domain.DefaultTickerConfig(), level: "all"}
}

// Replace swaps in the events and ticker config of a freshly loaded feed.
func (s *EventStore) Replace(feed domain.Feed) {
	events := make([]domain.Event, len(feed.Events))
	copy(events, feed.Events)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = events
	s.tickerConfig = feed.TickerConfig.WithDefaults()
	s.lastUpdated = feed.LastUpdated
	s.loaded = true
}

// SetLive replaces the live stock events, which are listed ahead of the
// feed events and survive feed reloads.
func (s *EventStore) SetLive(events []domain.Event) {
	live := make([]domain.Event, len(events))
	copy(live, events)
	s.mu.Lock()
	s.live = live
	s.mu.Unlock()
}

// Snapshot returns a copy of the live and feed events, in that order, and
// the ticker config.
func (s *EventStore) Snapshot() ([]domain.Event, domain.TickerConfig) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Event, 0, len(s.live)+len(s.events))
	out = append(out, s.live...)
	out = append(out, s.events...)
	return out, s.tickerConfig
}

// LastUpdated is the feed's own timestamp string.
func (s *EventStore) LastUpdated() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdated
}

// Loaded reports whether any feed has been stored.
func (s *EventStore) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Level is the current severity filter ("all" or a severity name).
func (s *EventStore) Level() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.level
}

// SetLevel changes the severity filter. Empty means "all".
func (s *EventStore) SetLevel(level string) {
	if level == "" {
		level = "all"
	}
	s.mu.Lock()
	s.level = level
	s.mu.Unlock()
}
