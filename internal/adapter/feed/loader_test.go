package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/crisis-ticker-service/internal/domain"
	"github.com/couchcryptid/crisis-ticker-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validFeed = `{"last_updated":"2025-12-24T12:00:00Z","events":[{"title":"Flood in Valencia","severity_level":"High"}]}`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLoader(sources ...string) *Loader {
	return NewLoader(sources, 2*time.Second, observability.NewMetricsForTesting(), discardLogger())
}

func TestLoader_FirstSourceSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "no-cache", r.Header.Get("Cache-Control"))
		_, _ = io.WriteString(w, validFeed)
	}))
	defer srv.Close()

	feed, attempts, err := newTestLoader(srv.URL).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, feed.Events, 1)
	assert.Equal(t, domain.SeverityHigh, feed.Events[0].SeverityLevel)
	assert.Equal(t, []domain.FeedAttempt{{URL: srv.URL, OK: true}}, attempts)
}

func TestLoader_FallsBackToLocalFile(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	path := filepath.Join(t.TempDir(), "events.json")
	require.NoError(t, os.WriteFile(path, []byte(validFeed), 0o600))

	feed, attempts, err := newTestLoader(down.URL, path).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, feed.Events, 1)
	require.Len(t, attempts, 2)
	assert.Equal(t, "HTTP 503", attempts[0].Outcome())
	assert.True(t, attempts[1].OK)
}

func TestLoader_ProxyEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"contents":"{\"events\":[{\"title\":\"Wrapped\"}]}"}`)
	}))
	defer srv.Close()

	feed, _, err := newTestLoader(srv.URL).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, feed.Events, 1)
	assert.Equal(t, "Wrapped", feed.Events[0].Title)
}

func TestLoader_AllSourcesFail(t *testing.T) {
	notFound := httptest.NewServer(http.NotFoundHandler())
	defer notFound.Close()
	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "<html>rate limited</html>")
	}))
	defer garbage.Close()
	missing := filepath.Join(t.TempDir(), "missing.json")

	_, attempts, err := newTestLoader(notFound.URL, garbage.URL, missing).Load(context.Background())
	require.Error(t, err)

	var unavailable *domain.FeedUnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Len(t, unavailable.Attempts, 3)
	assert.Equal(t, attempts, unavailable.Attempts)
	assert.Equal(t, "404", attempts[0].Status)
	assert.Contains(t, attempts[1].Error, "parse feed")
	assert.NotEmpty(t, attempts[2].Error)
	assert.Contains(t, err.Error(), "failed to load events. attempts:")
}

func TestLoader_Timeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer slow.Close()

	l := NewLoader([]string{slow.URL}, 50*time.Millisecond, observability.NewMetricsForTesting(), discardLogger())
	_, attempts, err := l.Load(context.Background())
	require.Error(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, "timeout", attempts[0].Error)
}

func TestLoader_EmptyPayloadIsUnusable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	defer srv.Close()

	_, attempts, err := newTestLoader(srv.URL).Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.ErrEmptyFeed.Error(), attempts[0].Error)
}
