package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrQuoteUnavailable is returned by quote providers that have no data for a symbol.
var ErrQuoteUnavailable = errors.New("quote unavailable")

// Quote is a point-in-time market quote. Price and Pct are nil when the
// provider did not report them.
type Quote struct {
	Price          *float64 `json:"price"`
	Pct            *float64 `json:"pct"`
	Name           string   `json:"name"`
	Currency       string   `json:"currency"`
	CurrencySymbol string   `json:"currencySymbol"`
}

// Empty reports whether the quote carries neither a price nor a percent change.
func (q Quote) Empty() bool {
	return q.Price == nil && q.Pct == nil
}

// QuoteProvider fetches live quotes for a symbol.
type QuoteProvider interface {
	Quote(ctx context.Context, symbol string) (Quote, error)
}

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"CNY": "¥",
	"AUD": "A$",
	"CAD": "C$",
	"CHF": "CHF",
	"HKD": "HK$",
	"INR": "₹",
	"KRW": "₩",
	"BRL": "R$",
	"ZAR": "R",
}

// CurrencySymbol maps an ISO currency code to its display symbol, or "" if unknown.
func CurrencySymbol(code string) string {
	return currencySymbols[strings.ToUpper(strings.TrimSpace(code))]
}

// StockSwingEvent turns a live percent change into a precomputed stock-swing
// event so it can ride the ticker alongside feed events.
func StockSwingEvent(symbol string, pct float64, now time.Time) Event {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	icon, verb := "📈", "surged"
	if pct < 0 {
		icon, verb = "📉", "plunged"
	}
	sign := ""
	if pct >= 0 {
		sign = "+"
	}
	return Event{
		Title:          fmt.Sprintf("%s stock %s %.1f%% today", symbol, verb, pct),
		Description:    fmt.Sprintf("%s shares moved %.1f%% today based on Yahoo Finance.", symbol, pct),
		URL:            "https://finance.yahoo.com/quote/" + symbol,
		Source:         "Yahoo Finance",
		SeverityLevel:  SeverityHigh,
		SeverityScore:  55,
		Published:      now.UTC().Format(time.RFC3339),
		TickerLabel:    fmt.Sprintf("%s %s %s%.1f%% today", icon, symbol, sign, pct),
		TickerCategory: CategoryStockSwing,
	}
}
