// Package eodhd provides a client for the EODHD (End of Day Historical Data) API
// and adapts it to the market-data capability interfaces.
package eodhd

import (
	"strings"
	"time"
)

// QueryOption represents an optional parameter for API queries.
type QueryOption func(*queryParams)

// queryParams holds optional query parameters.
type queryParams struct {
	From   time.Time
	To     time.Time
	Period string // d, w, m
	Order  string // a (asc), d (desc)
	Limit  int
}

// WithDateRange sets the date range for the query.
func WithDateRange(from, to time.Time) QueryOption {
	return func(p *queryParams) {
		p.From = from
		p.To = to
	}
}

// WithPeriod sets the period (d=daily, w=weekly, m=monthly).
func WithPeriod(period string) QueryOption {
	return func(p *queryParams) {
		p.Period = period
	}
}

// WithOrder sets the order (a=ascending, d=descending).
func WithOrder(order string) QueryOption {
	return func(p *queryParams) {
		p.Order = order
	}
}

// WithLimit sets the maximum number of results.
func WithLimit(limit int) QueryOption {
	return func(p *queryParams) {
		p.Limit = limit
	}
}

// exchangeSymbol converts a plain ticker to EODHD's TICKER.EXCHANGE form.
// Forex pairs map to the FOREX exchange and symbols that already carry an
// exchange suffix pass through.
func exchangeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if strings.Contains(s, ".") && !strings.HasSuffix(s, ".B") && !strings.HasSuffix(s, ".A") {
		return s
	}
	if isForexPair(s) {
		return s + ".FOREX"
	}
	return strings.ReplaceAll(s, ".", "-") + ".US"
}

// plainSymbol strips the exchange suffix added by exchangeSymbol.
func plainSymbol(code string) string {
	code = strings.ToUpper(code)
	for _, suffix := range []string{".US", ".FOREX"} {
		if strings.HasSuffix(code, suffix) {
			return strings.ReplaceAll(strings.TrimSuffix(code, suffix), "-", ".")
		}
	}
	return code
}

func isForexPair(s string) bool {
	if len(s) != 6 {
		return false
	}
	switch s[:3] {
	case "EUR", "GBP", "USD", "AUD", "NZD", "XAU", "XAG", "CHF", "CAD", "JPY":
		return true
	}
	return false
}
