package rss

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/crisis-ticker-service/internal/domain"
	"github.com/couchcryptid/crisis-ticker-service/internal/observability"
	"github.com/mmcdole/gofeed"
)

const userAgent = "crisis-ticker/1.0"

// Source is a labeled RSS feed.
type Source struct {
	Label string
	URL   string
}

// MarketSources are the fixed market headline feeds consulted for every
// watchlist entry.
var MarketSources = []Source{
	{Label: domain.SourceMWTopStories, URL: "https://feeds.content.dowjones.io/public/rss/mw_topstories"},
	{Label: domain.SourceMWRealtime, URL: "https://feeds.content.dowjones.io/public/rss/mw_realtimeheadlines"},
	{Label: domain.SourceMWMarketPulse, URL: "https://feeds.content.dowjones.io/public/rss/mw_marketpulse"},
}

const googleNewsSearchURL = "https://news.google.com/rss/search"

// Client fetches headline feeds with gofeed. Every fetch fails soft: errors
// are logged and counted, and the source contributes no items.
type Client struct {
	httpClient    *http.Client
	limiter       *hostLimiter
	googleNewsURL string
	market        []Source
	metrics       *observability.Metrics
	logger        *slog.Logger
}

// NewClient creates an RSS client with a fixed per-feed timeout and a
// per-host request rate.
func NewClient(timeout time.Duration, ratePerSec float64, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient:    &http.Client{Timeout: timeout},
		limiter:       newHostLimiter(ratePerSec, 2),
		googleNewsURL: googleNewsSearchURL,
		market:        MarketSources,
		metrics:       metrics,
		logger:        logger,
	}
}

// Headlines fetches Google News search results for the entry plus the market
// feeds, concurrently. Results are returned in source order: Google News
// first, then MarketSources. Sources disabled by filters are not fetched.
func (c *Client) Headlines(ctx context.Context, entry domain.WatchlistEntry, filters domain.RSSFilters) []domain.SourceHeadlines {
	sources := make([]Source, 0, 1+len(c.market))
	sources = append(sources, Source{Label: domain.SourceGoogleNews, URL: c.searchURL(entry)})
	sources = append(sources, c.market...)

	results := make([]domain.SourceHeadlines, len(sources))
	var wg sync.WaitGroup
	for i, src := range sources {
		results[i] = domain.SourceHeadlines{Source: src.Label}
		if !filters.Enabled(src.Label) {
			continue
		}
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			results[i].Items = c.Fetch(ctx, src)
		}(i, src)
	}
	wg.Wait()
	return results
}

// Fetch parses one feed into headlines labeled with the source.
func (c *Client) Fetch(ctx context.Context, src Source) []domain.Headline {
	if err := c.limiter.Wait(ctx, src.URL); err != nil {
		c.fail(src, err)
		return nil
	}

	parser := gofeed.NewParser()
	parser.Client = c.httpClient
	parser.UserAgent = userAgent

	feed, err := parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		c.fail(src, err)
		return nil
	}
	c.metrics.RSSFetches.WithLabelValues(src.Label, "success").Inc()

	items := make([]domain.Headline, 0, len(feed.Items))
	for _, it := range feed.Items {
		link := strings.TrimSpace(it.Link)
		if link == "" {
			link = strings.TrimSpace(it.GUID)
		}
		items = append(items, domain.Headline{
			Title:       strings.TrimSpace(it.Title),
			Link:        link,
			Description: it.Description,
			PubDate:     pubDate(it),
			Source:      src.Label,
		})
	}
	return items
}

func (c *Client) fail(src Source, err error) {
	c.metrics.RSSFetches.WithLabelValues(src.Label, "error").Inc()
	c.logger.Warn("rss fetch failed", "source", src.Label, "url", src.URL, "error", err)
}

// searchURL builds the Google News query "(TOKEN OR synonym ...) (stock OR shares OR price)".
func (c *Client) searchURL(entry domain.WatchlistEntry) string {
	q := fmt.Sprintf("(%s) (stock OR shares OR price)", strings.Join(entry.Tokens(), " OR "))
	params := url.Values{
		"q":    {q},
		"hl":   {"en-US"},
		"gl":   {"US"},
		"ceid": {"US:en"},
	}
	return c.googleNewsURL + "?" + params.Encode()
}

// pubDate prefers the parsed publish (or update) time, normalized to RFC 3339.
func pubDate(it *gofeed.Item) string {
	switch {
	case it.PublishedParsed != nil:
		return it.PublishedParsed.UTC().Format(time.RFC3339)
	case it.UpdatedParsed != nil:
		return it.UpdatedParsed.UTC().Format(time.RFC3339)
	case it.Published != "":
		return strings.TrimSpace(it.Published)
	default:
		return strings.TrimSpace(it.Updated)
	}
}
