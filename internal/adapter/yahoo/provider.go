// Package yahoo provides live market quotes for watchlist symbols.
package yahoo

import (
	"time"

	"github.com/couchcryptid/crisis-ticker-service/internal/config"
	"github.com/couchcryptid/crisis-ticker-service/internal/observability"
)

// NewProvider builds the cached quote provider named by QUOTE_PROVIDER.
// "public" queries the keyless chart endpoint first and falls back to
// finance-go; anything else uses finance-go alone.
func NewProvider(name string, timeout, ttl time.Duration, metrics *observability.Metrics) *CachedProvider {
	var inner Chain
	if name == config.QuoteProviderPublic {
		inner = append(inner, NewChartClient(timeout))
	}
	inner = append(inner, NewFinanceProvider(timeout))
	return NewCachedProvider(inner, ttl, metrics)
}
