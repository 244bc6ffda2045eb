package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/crisis-ticker-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const testFeed = `{
  "last_updated": "2025-12-24T11:55:00Z",
  "ticker_config": {"freshness_hours": 72, "max_items": 10},
  "events": [
    {"title": "Earthquake strikes Chile", "url": "https://a", "severity_level": "Critical", "published": "2025-12-24T11:00:00Z"},
    {"title": "Tesla stock plunges 62% after recall", "url": "https://b", "severity_level": "High", "published": "2025-12-24T10:00:00Z"},
    {"title": "Council approves budget", "url": "https://c", "severity_level": "Low", "published": "2025-12-24T09:00:00Z"},
    {"title": "Old storm recap", "url": "https://d", "severity_level": "Low", "published": "2025-12-01T09:00:00Z"}
  ]
}`

// run executes tickerctl in an isolated home directory.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFeed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.json")
	require.NoError(t, os.WriteFile(path, []byte(testFeed), 0o600))
	return path
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "tickerctl dev\n", out)
}

func TestClassify_JSON(t *testing.T) {
	out, err := run(t, "classify", "--feed", writeFeed(t), "-o", "json")
	require.NoError(t, err)

	var rows []classifyRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 4)
	assert.Equal(t, domain.CategoryNaturalDisaster, rows[0].Category)
	assert.Equal(t, domain.CategoryStockSwing, rows[1].Category)
	assert.Empty(t, rows[2].Category)
}

func TestClassify_ThresholdFlag(t *testing.T) {
	out, err := run(t, "classify", "--feed", writeFeed(t), "--stock-threshold", "70", "-o", "json")
	require.NoError(t, err)

	var rows []classifyRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.Empty(t, rows[1].Category)
}

func TestTicker_YAMLWithWatchlist(t *testing.T) {
	feed := writeFeed(t)

	out, err := run(t, "ticker", "--feed", feed, "--now", "2025-12-24T12:00:00Z", "-o", "yaml")
	require.NoError(t, err)
	var rows []tickerRow
	require.NoError(t, yaml.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "🌪️ Earthquake strikes Chile", rows[0].Label)

	out, err = run(t, "ticker", "--feed", feed, "--now", "2025-12-24T12:00:00Z", "--watchlist", "TSLA", "-o", "yaml")
	require.NoError(t, err)
	rows = nil
	require.NoError(t, yaml.Unmarshal([]byte(out), &rows))
	assert.Len(t, rows, 1)
}

func TestTicker_InvalidNow(t *testing.T) {
	_, err := run(t, "ticker", "--feed", writeFeed(t), "--now", "yesterday")
	assert.ErrorContains(t, err, "invalid --now")
}

func TestTicker_TableOutput(t *testing.T) {
	out, err := run(t, "ticker", "--feed", writeFeed(t), "--now", "2025-12-24T12:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "CATEGORY")
	assert.Contains(t, out, "natural_disaster")
}

func TestUnknownOutputFormat(t *testing.T) {
	_, err := run(t, "classify", "--feed", writeFeed(t), "-o", "xml")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestMissingFeed(t *testing.T) {
	_, err := run(t, "classify", "--feed", filepath.Join(t.TempDir(), "missing.json"))
	var unavailable *domain.FeedUnavailableError
	assert.ErrorAs(t, err, &unavailable)
}

func TestWatchlistMatch(t *testing.T) {
	out, err := run(t, "watchlist", "match", "tsla", "--feed", writeFeed(t), "-o", "json")
	require.NoError(t, err)
	var ev domain.Event
	require.NoError(t, json.Unmarshal([]byte(out), &ev))
	assert.Equal(t, "https://b", ev.URL)

	out, err = run(t, "watchlist", "match", "TSLA", "--company", "--feed", writeFeed(t))
	require.NoError(t, err)
	assert.Contains(t, out, "no events mention TSLA")
}

func TestPrefs_EditAndShow(t *testing.T) {
	db := filepath.Join(t.TempDir(), "prefs.db")

	out, err := run(t, "prefs", "speed", "faster", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "ticker duration 80s\n", out)

	_, err = run(t, "prefs", "thresholds", "--stock-threshold", "25", "--db", db)
	require.NoError(t, err)

	_, err = run(t, "watchlist", "set", "ko", "company:Acme Corp", "--db", db)
	require.NoError(t, err)

	out, err = run(t, "prefs", "show", "--db", db, "-o", "json")
	require.NoError(t, err)
	var p domain.Preferences
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, 80, p.TickerDuration)
	assert.Equal(t, domain.Thresholds{StockPercent: 25, MassCasualty: domain.DefaultThresholds().MassCasualty}, p.Thresholds)
	assert.Equal(t, []domain.WatchlistEntry{
		{Value: "ko", Type: domain.EntryTicker},
		{Value: "Acme Corp", Type: domain.EntryCompany},
	}, p.Watchlist)
}

func TestPrefs_RejectsBadInput(t *testing.T) {
	db := filepath.Join(t.TempDir(), "prefs.db")

	_, err := run(t, "prefs", "speed", "sideways", "--db", db)
	assert.Error(t, err)

	_, err = run(t, "prefs", "thresholds", "--casualty-threshold=-1", "--db", db)
	assert.ErrorContains(t, err, "negative")
}

func TestPrefs_ZeroThresholdAccepted(t *testing.T) {
	db := filepath.Join(t.TempDir(), "prefs.db")

	_, err := run(t, "prefs", "thresholds", "--stock-threshold", "0", "--db", db)
	require.NoError(t, err)

	out, err := run(t, "prefs", "show", "--db", db, "-o", "json")
	require.NoError(t, err)
	var p domain.Preferences
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Zero(t, p.Thresholds.StockPercent)
}

func TestEnvOverridesDefault(t *testing.T) {
	db := filepath.Join(t.TempDir(), "env.db")
	t.Setenv("TICKERCTL_DB", db)

	_, err := run(t, "prefs", "speed", "reset")
	require.NoError(t, err)
	_, err = os.Stat(db)
	assert.NoError(t, err)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "tickerctl.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("output: json\n"), 0o600))

	out, err := run(t, "--config", cfg, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "output: json")
}
