package yahoo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/crisis-ticker-service/internal/domain"
	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/quote"
)

// QuoteFunc fetches a quote by symbol. quote.Get is the production value.
type QuoteFunc func(symbol string) (*finance.Quote, error)

// FinanceProvider implements domain.QuoteProvider on top of finance-go.
// The library call takes no context, so each request runs in its own
// goroutine and races a fixed timeout.
type FinanceProvider struct {
	get     QuoteFunc
	timeout time.Duration
}

// NewFinanceProvider creates a finance-go backed quote provider.
func NewFinanceProvider(timeout time.Duration) *FinanceProvider {
	return &FinanceProvider{get: quote.Get, timeout: timeout}
}

type financeResult struct {
	q   *finance.Quote
	err error
}

// Quote returns the latest quote for symbol.
func (p *FinanceProvider) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ch := make(chan financeResult, 1)
	go func() {
		q, err := p.get(symbol)
		ch <- financeResult{q: q, err: err}
	}()

	select {
	case <-ctx.Done():
		return domain.Quote{}, fmt.Errorf("finance quote %s: %w", symbol, ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return domain.Quote{}, fmt.Errorf("finance quote %s: %w", symbol, r.err)
		}
		if r.q == nil {
			return domain.Quote{}, domain.ErrQuoteUnavailable
		}
		q := fromFinance(r.q)
		if q.Empty() {
			return domain.Quote{}, domain.ErrQuoteUnavailable
		}
		return q, nil
	}
}

// fromFinance maps a finance-go quote. Zero prices are treated as missing,
// and the percent change is derived from the previous close when absent.
func fromFinance(fq *finance.Quote) domain.Quote {
	q := domain.Quote{
		Name:           fq.ShortName,
		Currency:       fq.CurrencyID,
		CurrencySymbol: domain.CurrencySymbol(fq.CurrencyID),
	}
	if fq.RegularMarketPrice != 0 {
		price := fq.RegularMarketPrice
		q.Price = &price
	}
	pct := fq.RegularMarketChangePercent
	if pct == 0 && q.Price != nil && fq.RegularMarketPreviousClose != 0 {
		pct = (*q.Price - fq.RegularMarketPreviousClose) / fq.RegularMarketPreviousClose * 100
	}
	if pct != 0 || q.Price != nil {
		q.Pct = &pct
	}
	return q
}
