package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Quote provider names accepted by QUOTE_PROVIDER.
const (
	QuoteProviderYahoo  = "yahoo"
	QuoteProviderPublic = "public"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	FeedURLs         []string
	FeedTimeout      time.Duration
	FeedPollInterval time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	PrefsDBPath string

	// Quote and headline collaborators.
	QuoteProvider        string
	QuoteTimeout         time.Duration
	QuoteCacheTTL        time.Duration
	PriceRefreshInterval time.Duration
	LiveStockSymbols     []string
	RSSTimeout           time.Duration
	RSSRatePerSec        float64

	// Optional ticker publication.
	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaTickerTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	feedTimeout, err := parsePositiveDuration("FEED_TIMEOUT", "6s")
	if err != nil {
		return nil, err
	}
	pollInterval, err := parsePositiveDuration("FEED_POLL_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}
	quoteTimeout, err := parsePositiveDuration("QUOTE_TIMEOUT", "4s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parsePositiveDuration("QUOTE_CACHE_TTL", "10m")
	if err != nil {
		return nil, err
	}
	refreshInterval, err := parsePositiveDuration("PRICE_REFRESH_INTERVAL", "30m")
	if err != nil {
		return nil, err
	}
	rssTimeout, err := parsePositiveDuration("RSS_TIMEOUT", "6s")
	if err != nil {
		return nil, err
	}

	rate, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("RSS_RATE_PER_SEC", "2"), 64)
	if err != nil || rate <= 0 {
		return nil, errors.New("invalid RSS_RATE_PER_SEC")
	}

	cfg := &Config{
		FeedURLs:         splitList(sharedcfg.EnvOrDefault("FEED_URLS", "data/events.json")),
		FeedTimeout:      feedTimeout,
		FeedPollInterval: pollInterval,

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		PrefsDBPath: sharedcfg.EnvOrDefault("PREFS_DB_PATH", "crisis-ticker.db"),

		QuoteProvider:        strings.ToLower(sharedcfg.EnvOrDefault("QUOTE_PROVIDER", QuoteProviderYahoo)),
		QuoteTimeout:         quoteTimeout,
		QuoteCacheTTL:        cacheTTL,
		PriceRefreshInterval: refreshInterval,
		LiveStockSymbols:     splitList(strings.ToUpper(os.Getenv("LIVE_STOCK_SYMBOLS"))),
		RSSTimeout:           rssTimeout,
		RSSRatePerSec:        rate,

		KafkaEnabled:     os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:     sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTickerTopic: sharedcfg.EnvOrDefault("KAFKA_TICKER_TOPIC", "crisis-ticker-items"),
	}

	if len(cfg.FeedURLs) == 0 {
		return nil, errors.New("FEED_URLS is required")
	}
	if cfg.QuoteProvider != QuoteProviderYahoo && cfg.QuoteProvider != QuoteProviderPublic {
		return nil, fmt.Errorf("invalid QUOTE_PROVIDER %q: want %s or %s", cfg.QuoteProvider, QuoteProviderYahoo, QuoteProviderPublic)
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
		}
		if cfg.KafkaTickerTopic == "" {
			return nil, errors.New("KAFKA_TICKER_TOPIC is required")
		}
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
