package yahoo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/couchcryptid/crisis-ticker-service/internal/domain"
	"github.com/couchcryptid/crisis-ticker-service/internal/observability"
	gocache "github.com/patrickmn/go-cache"
)

// CachedProvider wraps a QuoteProvider with two go-cache tiers: a fresh tier
// served without calling the provider, and a last-known tier returned when
// the provider fails.
type CachedProvider struct {
	inner   domain.QuoteProvider
	fresh   *gocache.Cache
	known   *gocache.Cache
	metrics *observability.Metrics
}

// NewCachedProvider creates a cache decorator with the given freshness window.
func NewCachedProvider(inner domain.QuoteProvider, ttl time.Duration, metrics *observability.Metrics) *CachedProvider {
	return &CachedProvider{
		inner:   inner,
		fresh:   gocache.New(ttl, 2*ttl),
		known:   gocache.New(gocache.NoExpiration, 0),
		metrics: metrics,
	}
}

// Quote serves fresh cache hits, otherwise asks the provider. On provider
// failure the last known quote is returned if there is one.
func (c *CachedProvider) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	key := strings.ToUpper(strings.TrimSpace(symbol))
	if v, ok := c.fresh.Get(key); ok {
		c.metrics.QuoteCache.WithLabelValues("hit").Inc()
		return v.(domain.Quote), nil
	}
	c.metrics.QuoteCache.WithLabelValues("miss").Inc()

	q, err := c.inner.Quote(ctx, key)
	if err == nil {
		c.metrics.QuoteRequests.WithLabelValues("success").Inc()
		c.fresh.SetDefault(key, q)
		c.known.SetDefault(key, q)
		return q, nil
	}

	c.metrics.QuoteRequests.WithLabelValues(outcome(err)).Inc()
	if v, ok := c.known.Get(key); ok {
		c.metrics.QuoteCache.WithLabelValues("stale").Inc()
		return v.(domain.Quote), nil
	}
	return domain.Quote{}, err
}

// ClearSymbols drops fresh entries so the next lookup goes to the provider.
// Last-known quotes are kept as the failure fallback.
func (c *CachedProvider) ClearSymbols(symbols ...string) {
	for _, s := range symbols {
		c.fresh.Delete(strings.ToUpper(strings.TrimSpace(s)))
	}
}

func outcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrQuoteUnavailable):
		return "unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

// Chain tries providers in order and returns the first successful quote.
type Chain []domain.QuoteProvider

// Quote implements domain.QuoteProvider.
func (c Chain) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	err := error(domain.ErrQuoteUnavailable)
	for _, p := range c {
		q, perr := p.Quote(ctx, symbol)
		if perr == nil {
			return q, nil
		}
		err = perr
	}
	return domain.Quote{}, err
}
