// Package pipeline runs the background loops that keep the dashboard fresh:
// feed polling and live price refresh.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/crisis-ticker-service/internal/dashboard"
	"github.com/couchcryptid/crisis-ticker-service/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"
)

// Retry bounds after a failed feed load. Retries stop backing off at
// maxBackoff or the poll interval, whichever is shorter.
const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = time.Minute
)

// Reloader loads the feed into the dashboard.
type Reloader interface {
	Reload(ctx context.Context) (dashboard.LoadResult, error)
}

// PriceRefresher drops cached quotes and re-injects live stock events.
type PriceRefresher interface {
	RefreshPrices(ctx context.Context)
}

// Poller reloads the feed on a fixed interval.
type Poller struct {
	app      Reloader
	interval time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewPoller creates a Poller. A nil clock means real time.
func NewPoller(app Reloader, interval time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Poller {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Poller{app: app, interval: interval, clock: clock, logger: logger, metrics: metrics}
}

// Run loads the feed immediately and then every interval until the context
// is cancelled. Failed loads are retried with exponential backoff.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("feed poller started", "interval", p.interval)
	p.metrics.PollerRunning.Set(1)
	defer p.metrics.PollerRunning.Set(0)

	backoffCap := min(maxBackoff, p.interval)
	backoff := initialBackoff

	for {
		wait := p.interval
		if !p.poll(ctx) {
			if ctx.Err() != nil {
				break
			}
			wait = backoff
			backoff = retry.NextBackoff(backoff, backoffCap)
		} else {
			backoff = initialBackoff
		}

		if !p.sleep(ctx, wait) {
			break
		}
	}
	p.logger.Info("feed poller stopping", "reason", ctx.Err())
	return nil
}

// poll runs one reload. Returns false on failure.
func (p *Poller) poll(ctx context.Context) bool {
	res, err := p.app.Reload(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Error("feed load failed", "error", err)
		}
		return false
	}
	p.logger.Debug("feed polled", "events", res.Events)
	return true
}

func (p *Poller) sleep(ctx context.Context, d time.Duration) bool {
	return sleepWithContext(ctx, p.clock, d)
}

// Refresher periodically refreshes live prices.
type Refresher struct {
	app      PriceRefresher
	interval time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
}

// NewRefresher creates a Refresher. A nil clock means real time.
func NewRefresher(app PriceRefresher, interval time.Duration, clock clockwork.Clock, logger *slog.Logger) *Refresher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Refresher{app: app, interval: interval, clock: clock, logger: logger}
}

// Run refreshes prices every interval until the context is cancelled. The
// first refresh happens one interval after start.
func (r *Refresher) Run(ctx context.Context) error {
	r.logger.Info("price refresher started", "interval", r.interval)
	for sleepWithContext(ctx, r.clock, r.interval) {
		r.app.RefreshPrices(ctx)
		r.logger.Debug("prices refreshed")
	}
	return nil
}

func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
