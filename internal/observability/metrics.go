package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "crisis_ticker"

// Metrics holds the Prometheus counters, histograms, and gauges for the ticker service.
type Metrics struct {
	FeedLoads        *prometheus.CounterVec // labels: outcome={success,unavailable}
	FeedLoadDuration prometheus.Histogram
	EventsLoaded     prometheus.Gauge
	PollerRunning    prometheus.Gauge

	// Classification and selection.
	TickerItemsSelected prometheus.Gauge
	Classifications     *prometheus.CounterVec // labels: category

	// Collaborators.
	QuoteRequests *prometheus.CounterVec // labels: outcome={success,error,unavailable,timeout}
	QuoteCache    *prometheus.CounterVec // labels: result={hit,miss,stale}
	RSSFetches    *prometheus.CounterVec // labels: source, outcome={success,error}
	TickerPublish *prometheus.CounterVec // labels: outcome={success,error}
}

func newMetrics() *Metrics {
	return &Metrics{
		FeedLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_loads_total",
			Help:      "Feed load attempts by outcome.",
		}, []string{"outcome"}),
		FeedLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feed_load_duration_seconds",
			Help:      "Duration of a complete feed load across all sources.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		EventsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "events_loaded",
			Help:      "Number of events in the store after the last load.",
		}),
		PollerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "poller_running",
			Help:      "1 when the feed poller is active, 0 when shut down.",
		}),
		TickerItemsSelected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ticker_items_selected",
			Help:      "Number of ticker items produced by the last selection pass.",
		}),
		Classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Selected ticker items by crisis category.",
		}, []string{"category"}),
		QuoteRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_requests_total",
			Help:      "Quote provider requests by outcome.",
		}, []string{"outcome"}),
		QuoteCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_cache_total",
			Help:      "Quote cache lookups by result.",
		}, []string{"result"}),
		RSSFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rss_fetches_total",
			Help:      "RSS fetches by source and outcome.",
		}, []string{"source", "outcome"}),
		TickerPublish: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticker_publish_total",
			Help:      "Ticker publication batches by outcome.",
		}, []string{"outcome"}),
	}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FeedLoads,
		m.FeedLoadDuration,
		m.EventsLoaded,
		m.PollerRunning,
		m.TickerItemsSelected,
		m.Classifications,
		m.QuoteRequests,
		m.QuoteCache,
		m.RSSFetches,
		m.TickerPublish,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid "already
// registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
