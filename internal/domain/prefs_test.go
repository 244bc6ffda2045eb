package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdjustTickerDuration(t *testing.T) {
	tests := []struct {
		name      string
		current   int
		direction int
		want      int
	}{
		{"slower from default clamps", 100, 1, 100},
		{"faster from default", 100, -1, 80},
		{"faster from bottom clamps", 10, -1, 10},
		{"slower mid ladder", 25, 1, 30},
		{"off ladder snaps then moves", 33, 1, 40},
		{"off ladder snaps faster", 33, -1, 25},
		{"far above ladder", 500, -1, 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AdjustTickerDuration(tt.current, tt.direction))
		})
	}
}

func TestTickerDurationSteps_ReturnsCopy(t *testing.T) {
	steps := TickerDurationSteps()
	steps[0] = 999
	assert.Equal(t, 10, TickerDurationSteps()[0])
}

func TestDecodeTickerDuration(t *testing.T) {
	assert.Equal(t, 40, DecodeTickerDuration([]byte("40")))
	assert.Equal(t, 40, DecodeTickerDuration([]byte(`"40"`)))
	assert.Equal(t, DefaultTickerDuration, DecodeTickerDuration([]byte("33")))
	assert.Equal(t, DefaultTickerDuration, DecodeTickerDuration([]byte("fast")))
	assert.Equal(t, DefaultTickerDuration, DecodeTickerDuration(nil))
	assert.Equal(t, "60", string(EncodeTickerDuration(60)))
}

func TestDecodeThresholds(t *testing.T) {
	assert.Equal(t, Thresholds{StockPercent: 20, MassCasualty: 3}, DecodeThresholds([]byte(`{"stockPercent":20,"massCasualty":3}`)))
	assert.Equal(t, DefaultThresholds(), DecodeThresholds([]byte(`{"stockPercent":20}`)))
	assert.Equal(t, DefaultThresholds(), DecodeThresholds([]byte(`{"stockPercent":"20","massCasualty":3}`)))
	assert.Equal(t, DefaultThresholds(), DecodeThresholds([]byte(`nope`)))
}

func TestThresholdsValidate(t *testing.T) {
	assert.NoError(t, DefaultThresholds().Validate())
	assert.NoError(t, Thresholds{}.Validate())
	assert.Error(t, Thresholds{StockPercent: -0.5, MassCasualty: 10}.Validate())
	assert.Error(t, Thresholds{StockPercent: 50, MassCasualty: -1}.Validate())
	assert.Error(t, Thresholds{StockPercent: math.NaN(), MassCasualty: 10}.Validate())
}

func TestDecodeRSSFilters(t *testing.T) {
	got := DecodeRSSFilters([]byte(`{"gn":false}`))
	assert.Equal(t, RSSFilters{GoogleNews: false, MWTop: true, MWRealtime: true, MWPulse: true}, got)
	assert.Equal(t, DefaultRSSFilters(), DecodeRSSFilters([]byte(`{`)))
}

func TestDecodeWatchlist(t *testing.T) {
	assert.Equal(t, []WatchlistEntry{{Value: "AAPL", Type: EntryTicker}}, DecodeWatchlist([]byte(`["AAPL"]`)))
	assert.Empty(t, DecodeWatchlist([]byte(`"AAPL"`)))
	assert.NotNil(t, DecodeWatchlist(nil))
}

func TestDefaultPreferences(t *testing.T) {
	p := DefaultPreferences()
	assert.Equal(t, DefaultTickerDuration, p.TickerDuration)
	assert.Equal(t, DefaultThresholds(), p.Thresholds)
	assert.Empty(t, p.Watchlist)
	assert.Equal(t, DefaultRSSFilters(), p.RSSFilters)
}
