package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.December, 24, 12, 0, 0, 0, time.UTC)

func hoursAgo(h float64) string {
	return testNow.Add(-time.Duration(h * float64(time.Hour))).Format(time.RFC3339)
}

func TestSelectTickerItems_Empty(t *testing.T) {
	items := SelectTickerItemsAt(testNow, nil, DefaultTickerConfig(), DefaultThresholds(), nil)
	assert.Empty(t, items)
}

func TestSelectTickerItems_PreservesFeedOrder(t *testing.T) {
	events := []Event{
		{Title: "Earthquake strikes Chile", URL: "https://a", Published: hoursAgo(1)},
		{Title: "Nothing to see here", URL: "https://b", Published: hoursAgo(1)},
		{Title: "Gunman arrested after shooting", URL: "https://c", Published: hoursAgo(2)},
	}

	items := SelectTickerItemsAt(testNow, events, DefaultTickerConfig(), DefaultThresholds(), nil)
	require.Len(t, items, 2)
	assert.Equal(t, TickerItem{Label: "🌪️ Earthquake strikes Chile", URL: "https://a", Category: CategoryNaturalDisaster}, items[0])
	assert.Equal(t, TickerItem{Label: "🚨 Gunman arrested after shooting", URL: "https://c", Category: CategoryActiveShooter}, items[1])
}

func TestSelectTickerItems_FreshnessWindow(t *testing.T) {
	events := []Event{
		{Title: "Old flood", Published: hoursAgo(80)},
		{Title: "Recent flood", Published: hoursAgo(70)},
		{Title: "Undated flood"},
		{Title: "Garbled flood", Published: "not a date"},
	}

	items := SelectTickerItemsAt(testNow, events, TickerConfig{FreshnessHours: 72, MaxItems: 20}, DefaultThresholds(), nil)
	labels := make([]string, 0, len(items))
	for _, it := range items {
		labels = append(labels, it.Label)
	}
	assert.Equal(t, []string{"🌪️ Recent flood", "🌪️ Undated flood", "🌪️ Garbled flood"}, labels)
}

func TestSelectTickerItems_AllStale(t *testing.T) {
	events := []Event{
		{Title: "Old flood", Published: hoursAgo(100)},
		{Title: "Old war", Published: hoursAgo(200)},
	}
	assert.Empty(t, SelectTickerItemsAt(testNow, events, DefaultTickerConfig(), DefaultThresholds(), nil))
}

func TestSelectTickerItems_StockSwingHardCutoff(t *testing.T) {
	events := []Event{
		{Title: "Acme stock soars 80% on nasdaq", Published: hoursAgo(13)},
		{Title: "Beta shares crash 70% at open", Published: hoursAgo(11)},
		{Title: "Gamma stock falls 90%"},
	}

	items := SelectTickerItemsAt(testNow, events, TickerConfig{FreshnessHours: 72, MaxItems: 20}, DefaultThresholds(), nil)
	require.Len(t, items, 1)
	assert.Equal(t, "📈 Beta shares crash 70% at open", items[0].Label)
	assert.Equal(t, CategoryStockSwing, items[0].Category)
}

func TestSelectTickerItems_WatchlistExclusion(t *testing.T) {
	events := []Event{
		{Title: "KO stock jumps 55% after split", Published: hoursAgo(1)},
		{Title: "Coca-Cola shares up 60%", Published: hoursAgo(1)},
		{Title: "Pepsi shares up 60%", Published: hoursAgo(1)},
		{Title: "KOALA stock rises 70%", Published: hoursAgo(1)},
	}

	items := SelectTickerItemsAt(testNow, events, DefaultTickerConfig(), DefaultThresholds(), []string{"KO"})
	labels := make([]string, 0, len(items))
	for _, it := range items {
		labels = append(labels, it.Label)
	}
	assert.Equal(t, []string{"📈 Pepsi shares up 60%", "📈 KOALA stock rises 70%"}, labels)
}

func TestSelectTickerItems_WatchlistDoesNotAffectOtherCategories(t *testing.T) {
	events := []Event{{Title: "KO bottling plant hit by flood", Published: hoursAgo(1)}}
	items := SelectTickerItemsAt(testNow, events, DefaultTickerConfig(), DefaultThresholds(), []string{"KO"})
	require.Len(t, items, 1)
	assert.Equal(t, CategoryNaturalDisaster, items[0].Category)
}

func TestSelectTickerItems_DedupAndMaxItems(t *testing.T) {
	var events []Event
	for i := 0; i < 30; i++ {
		events = append(events,
			Event{Title: "Wildfire   spreads", Published: hoursAgo(1)},
			Event{Title: fmt.Sprintf("Missile strike %d", i), Published: hoursAgo(1)},
		)
	}
	events = append(events, Event{Title: "WILDFIRE spreads "})

	cfg := TickerConfig{FreshnessHours: 72, MaxItems: 10}
	items := SelectTickerItemsAt(testNow, events, cfg, DefaultThresholds(), nil)
	assert.Len(t, items, 10)

	seen := map[string]bool{}
	for _, it := range items {
		key := NormalizeLabel(it.Label)
		assert.False(t, seen[key], "duplicate label %q", it.Label)
		seen[key] = true
	}
	assert.Equal(t, "🌪️ Wildfire   spreads", items[0].Label)
}

func TestSelectTickerItems_ConfigDefaults(t *testing.T) {
	var events []Event
	for i := 0; i < 25; i++ {
		events = append(events, Event{Title: fmt.Sprintf("Tornado %d touches down", i)})
	}
	items := SelectTickerItemsAt(testNow, events, TickerConfig{}, DefaultThresholds(), nil)
	assert.Len(t, items, DefaultMaxItems)
}

func TestSelectTickerItems_PrecomputedStockSwingHonorsThreshold(t *testing.T) {
	e := StockSwingEvent("omer", 3.4, testNow.Add(-time.Hour))

	items := SelectTickerItemsAt(testNow, []Event{e}, DefaultTickerConfig(), DefaultThresholds(), nil)
	assert.Empty(t, items)

	items = SelectTickerItemsAt(testNow, []Event{e}, DefaultTickerConfig(), Thresholds{StockPercent: 3, MassCasualty: 10}, nil)
	require.Len(t, items, 1)
	assert.Equal(t, "📈 OMER +3.4% today", items[0].Label)
}

func TestSelectTickerItems_PrecomputedMassCasualtyHonorsThreshold(t *testing.T) {
	e := Event{
		Title:          "Bus accident: killed 4",
		Published:      hoursAgo(1),
		TickerLabel:    "🚑 Bus accident: killed 4",
		TickerCategory: CategoryMassCasualty,
	}

	assert.Empty(t, SelectTickerItemsAt(testNow, []Event{e}, DefaultTickerConfig(), DefaultThresholds(), nil))

	items := SelectTickerItemsAt(testNow, []Event{e}, DefaultTickerConfig(), Thresholds{StockPercent: 50, MassCasualty: 3}, nil)
	require.Len(t, items, 1)
	assert.Equal(t, CategoryMassCasualty, items[0].Category)
}

func TestSelectTickerItems_ZeroStockThreshold(t *testing.T) {
	e := StockSwingEvent("MU", 0.3, testNow.Add(-time.Hour))
	items := SelectTickerItemsAt(testNow, []Event{e}, DefaultTickerConfig(), Thresholds{StockPercent: 0, MassCasualty: 10}, nil)
	assert.Len(t, items, 1)
}

func TestSelectTickerItems_UsesPackageClock(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(testNow))
	t.Cleanup(func() { SetClock(nil) })

	events := []Event{
		{Title: "Stocks swing 60%! Nasdaq reacts", Published: hoursAgo(13)},
		{Title: "Stocks swing 60%! NYSE reacts", Published: hoursAgo(2)},
	}
	items := SelectTickerItems(events, DefaultTickerConfig(), DefaultThresholds(), nil)
	require.Len(t, items, 1)
	assert.Equal(t, "📈 Stocks swing 60%! NYSE reacts", items[0].Label)
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, "🚨 shots fired downtown", NormalizeLabel("  🚨 Shots   fired\tDOWNTOWN "))
}
