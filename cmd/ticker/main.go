package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/crisis-ticker-service/internal/adapter/feed"
	"github.com/couchcryptid/crisis-ticker-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/crisis-ticker-service/internal/adapter/kafka"
	"github.com/couchcryptid/crisis-ticker-service/internal/adapter/rss"
	"github.com/couchcryptid/crisis-ticker-service/internal/adapter/sqlite"
	"github.com/couchcryptid/crisis-ticker-service/internal/adapter/yahoo"
	"github.com/couchcryptid/crisis-ticker-service/internal/config"
	"github.com/couchcryptid/crisis-ticker-service/internal/dashboard"
	"github.com/couchcryptid/crisis-ticker-service/internal/observability"
	"github.com/couchcryptid/crisis-ticker-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	prefs, err := sqlite.Open(cfg.PrefsDBPath)
	if err != nil {
		logger.Error("failed to open preferences", "error", err, "path", cfg.PrefsDBPath)
		os.Exit(1)
	}

	deps := dashboard.Deps{
		Feeds:       feed.NewLoader(cfg.FeedURLs, cfg.FeedTimeout, metrics, logger),
		Prefs:       prefs,
		Headlines:   rss.NewClient(cfg.RSSTimeout, cfg.RSSRatePerSec, metrics, logger),
		Quotes:      yahoo.NewProvider(cfg.QuoteProvider, cfg.QuoteTimeout, cfg.QuoteCacheTTL, metrics),
		LiveSymbols: cfg.LiveStockSymbols,
		Metrics:     metrics,
		Logger:      logger,
	}

	// Ticker publication is feature-flagged via KAFKA_ENABLED.
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		deps.Publisher = writer
		logger.Info("ticker publication enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTickerTopic)
	} else {
		logger.Info("ticker publication disabled")
	}

	app := dashboard.New(deps)
	if err := app.Init(context.Background()); err != nil {
		logger.Error("failed to load preferences", "error", err)
		os.Exit(1)
	}

	poller := pipeline.NewPoller(app, cfg.FeedPollInterval, nil, logger, metrics)
	refresher := pipeline.NewRefresher(app, cfg.PriceRefreshInterval, nil, logger)

	srv := httpadapter.NewServer(cfg.HTTPAddr, app, httpadapter.Checks{app, prefs}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start background loops.
	go func() {
		if err := poller.Run(ctx); err != nil {
			logger.Error("poller error", "error", err)
		}
	}()
	go func() {
		if err := refresher.Run(ctx); err != nil {
			logger.Error("price refresher error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := prefs.Close(); err != nil {
		logger.Error("preferences close error", "error", err)
	}

	logger.Info("shutdown complete")
}
