package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStockSwingEvent(t *testing.T) {
	now := time.Date(2025, time.December, 24, 15, 30, 0, 0, time.UTC)

	up := StockSwingEvent(" omer ", 3.44, now)
	assert.Equal(t, "OMER stock surged 3.4% today", up.Title)
	assert.Equal(t, "📈 OMER +3.4% today", up.TickerLabel)
	assert.Equal(t, CategoryStockSwing, up.TickerCategory)
	assert.Equal(t, SeverityHigh, up.SeverityLevel)
	assert.Equal(t, "https://finance.yahoo.com/quote/OMER", up.URL)
	assert.Equal(t, "2025-12-24T15:30:00Z", up.Published)
	assert.True(t, up.Precomputed())

	down := StockSwingEvent("TSLA", -12.06, now)
	assert.Equal(t, "TSLA stock plunged -12.1% today", down.Title)
	assert.Equal(t, "📉 TSLA -12.1% today", down.TickerLabel)
}

func TestCurrencySymbol(t *testing.T) {
	assert.Equal(t, "$", CurrencySymbol("usd"))
	assert.Equal(t, "€", CurrencySymbol(" EUR "))
	assert.Equal(t, "HK$", CurrencySymbol("HKD"))
	assert.Empty(t, CurrencySymbol("XYZ"))
}

func TestQuoteEmpty(t *testing.T) {
	price := 10.5
	assert.True(t, Quote{}.Empty())
	assert.False(t, Quote{Price: &price}.Empty())
}
