package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/crisis-ticker-service/internal/domain"
	"github.com/couchcryptid/crisis-ticker-service/internal/observability"
)

// maxFeedBytes bounds a single feed payload.
const maxFeedBytes = 16 << 20

// Loader fetches the event feed from an ordered list of sources. Sources are
// http(s) URLs or local file paths; the first one yielding a usable feed wins.
type Loader struct {
	sources    []string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewLoader creates a feed loader with a fixed per-request timeout.
func NewLoader(sources []string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Loader {
	return &Loader{
		sources:    sources,
		httpClient: &http.Client{Timeout: timeout},
		metrics:    metrics,
		logger:     logger,
	}
}

// Load tries each source in order. The attempts made are always returned so
// callers can surface diagnostics. When every source fails the error is a
// *domain.FeedUnavailableError.
func (l *Loader) Load(ctx context.Context) (domain.Feed, []domain.FeedAttempt, error) {
	start := time.Now()
	defer func() { l.metrics.FeedLoadDuration.Observe(time.Since(start).Seconds()) }()

	attempts := make([]domain.FeedAttempt, 0, len(l.sources))
	for _, src := range l.sources {
		if ctx.Err() != nil {
			break
		}
		feed, attempt := l.tryLoad(ctx, src)
		attempts = append(attempts, attempt)
		if attempt.OK {
			l.metrics.FeedLoads.WithLabelValues("success").Inc()
			return feed, attempts, nil
		}
		l.logger.Warn("feed source failed", "source", src, "outcome", attempt.Outcome())
	}

	l.metrics.FeedLoads.WithLabelValues("unavailable").Inc()
	return domain.Feed{}, attempts, &domain.FeedUnavailableError{Attempts: attempts}
}

func (l *Loader) tryLoad(ctx context.Context, src string) (domain.Feed, domain.FeedAttempt) {
	attempt := domain.FeedAttempt{URL: src}

	data, status, err := l.read(ctx, src)
	switch {
	case status != 0 && status != http.StatusOK:
		attempt.Status = strconv.Itoa(status)
		return domain.Feed{}, attempt
	case err != nil:
		attempt.Error = err.Error()
		return domain.Feed{}, attempt
	}

	feed, err := domain.ParseFeed(data)
	if err != nil {
		attempt.Error = err.Error()
		return domain.Feed{}, attempt
	}
	attempt.OK = true
	return feed, attempt
}

// read returns the raw payload. status is the HTTP status for remote sources
// and 0 for local files.
func (l *Loader) read(ctx context.Context, src string) ([]byte, int, error) {
	if !isRemote(src) {
		data, err := os.ReadFile(strings.TrimPrefix(src, "file://"))
		return data, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, 0, errors.New("timeout")
		}
		return nil, 0, fmt.Errorf("feed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read feed body: %w", err)
	}
	return data, resp.StatusCode, nil
}

func isRemote(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}
