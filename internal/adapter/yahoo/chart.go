package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/crisis-ticker-service/internal/domain"
)

// ChartClient implements domain.QuoteProvider using the public, keyless
// Yahoo chart endpoint.
type ChartClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewChartClient creates a chart endpoint client with a fixed request timeout.
func NewChartClient(timeout time.Duration) *ChartClient {
	return &ChartClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    "https://query1.finance.yahoo.com/v8/finance/chart",
	}
}

// Quote returns the latest quote for symbol derived from the chart metadata.
func (c *ChartClient) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	u := fmt.Sprintf("%s/%s?%s", c.baseURL, url.PathEscape(symbol), url.Values{
		"interval": {"1d"},
		"range":    {"1d"},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("chart request %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Quote{}, fmt.Errorf("chart API error: status %d: %s", resp.StatusCode, body)
	}

	var chart chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return domain.Quote{}, fmt.Errorf("decode response: %w", err)
	}
	if len(chart.Chart.Result) == 0 {
		return domain.Quote{}, domain.ErrQuoteUnavailable
	}

	q := chart.Chart.Result[0].Meta.toQuote()
	if q.Empty() {
		return domain.Quote{}, domain.ErrQuoteUnavailable
	}
	return q, nil
}

// Chart API response types.

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta chartMeta `json:"meta"`
		} `json:"result"`
	} `json:"chart"`
}

type chartMeta struct {
	Currency           string   `json:"currency"`
	Symbol             string   `json:"symbol"`
	ShortName          string   `json:"shortName"`
	LongName           string   `json:"longName"`
	RegularMarketPrice *float64 `json:"regularMarketPrice"`
	ChartPreviousClose *float64 `json:"chartPreviousClose"`
	PreviousClose      *float64 `json:"previousClose"`
}

func (m chartMeta) toQuote() domain.Quote {
	name := m.ShortName
	if name == "" {
		name = m.LongName
	}
	q := domain.Quote{
		Price:          m.RegularMarketPrice,
		Name:           name,
		Currency:       m.Currency,
		CurrencySymbol: domain.CurrencySymbol(m.Currency),
	}

	prev := m.PreviousClose
	if prev == nil {
		prev = m.ChartPreviousClose
	}
	if q.Price != nil && prev != nil && *prev != 0 {
		pct := (*q.Price - *prev) / *prev * 100
		q.Pct = &pct
	}
	return q
}
