// Package sqlite persists user preferences in a SQLite key/value table.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/crisis-ticker-service/internal/domain"
	_ "modernc.org/sqlite"
)

// PrefsStore is a key/value preference store. Values are JSON documents keyed
// by the domain.Pref* names. Safe for concurrent use.
type PrefsStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the preference database at path. The
// special path ":memory:" opens a private in-memory database.
func Open(path string) (*PrefsStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// Each connection to :memory: is its own database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS preferences (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &PrefsStore{db: db}, nil
}

// Close closes the database.
func (s *PrefsStore) Close() error {
	return s.db.Close()
}

// CheckReadiness pings the database.
func (s *PrefsStore) CheckReadiness(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Get returns the raw stored value for key. The boolean is false when the key
// has never been written.
func (s *PrefsStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get preference %s: %w", key, err)
	}
	return []byte(value), true, nil
}

// Set stores a raw value for key, replacing any previous value.
func (s *PrefsStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(value), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set preference %s: %w", key, err)
	}
	return nil
}

// Load reads every preference, validating each one and falling back to its
// default when absent or malformed.
func (s *PrefsStore) Load(ctx context.Context) (domain.Preferences, error) {
	p := domain.DefaultPreferences()

	if raw, ok, err := s.Get(ctx, domain.PrefTickerDuration); err != nil {
		return p, err
	} else if ok {
		p.TickerDuration = domain.DecodeTickerDuration(raw)
	}
	if raw, ok, err := s.Get(ctx, domain.PrefThresholds); err != nil {
		return p, err
	} else if ok {
		p.Thresholds = domain.DecodeThresholds(raw)
	}
	if raw, ok, err := s.Get(ctx, domain.PrefWatchlist); err != nil {
		return p, err
	} else if ok {
		p.Watchlist = domain.DecodeWatchlist(raw)
	}
	if raw, ok, err := s.Get(ctx, domain.PrefRSSFilters); err != nil {
		return p, err
	} else if ok {
		p.RSSFilters = domain.DecodeRSSFilters(raw)
	}
	return p, nil
}

// SaveTickerDuration persists the ticker scroll duration.
func (s *PrefsStore) SaveTickerDuration(ctx context.Context, seconds int) error {
	return s.Set(ctx, domain.PrefTickerDuration, domain.EncodeTickerDuration(seconds))
}

// SaveThresholds persists the classifier thresholds.
func (s *PrefsStore) SaveThresholds(ctx context.Context, th domain.Thresholds) error {
	return s.setJSON(ctx, domain.PrefThresholds, th)
}

// SaveWatchlist persists the watchlist entries.
func (s *PrefsStore) SaveWatchlist(ctx context.Context, entries []domain.WatchlistEntry) error {
	return s.setJSON(ctx, domain.PrefWatchlist, entries)
}

// SaveRSSFilters persists the headline source filters.
func (s *PrefsStore) SaveRSSFilters(ctx context.Context, f domain.RSSFilters) error {
	return s.setJSON(ctx, domain.PrefRSSFilters, f)
}

func (s *PrefsStore) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode preference %s: %w", key, err)
	}
	return s.Set(ctx, key, data)
}
