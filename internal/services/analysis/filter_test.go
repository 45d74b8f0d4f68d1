package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/vigil/internal/models"
)

func TestTradeabilityFilter_Execute(t *testing.T) {
	gw := &fakeGateway{quotes: quotesFrom(map[string]models.Quote{
		"AAA": {Symbol: "AAA", Price: 1.5, Volume: 100},
		"BBB": {Symbol: "BBB", Price: 0.5, Volume: 100},
		"CCC": {Symbol: "CCC", Price: 2.0, Volume: 0},
	})}

	got, err := NewTradeabilityFilter(gw, nil).Execute(context.Background(), []string{"AAA", "BBB", "CCC"}, 1.0)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA"}, got)
}

func TestTradeabilityFilter_Cases(t *testing.T) {
	tests := []struct {
		name     string
		quotes   map[string]models.Quote
		symbols  []string
		minPrice float64
		want     []string
	}{
		{
			name:     "price equal to floor passes",
			quotes:   map[string]models.Quote{"AAA": {Price: 1.0, Volume: 1}},
			symbols:  []string{"AAA"},
			minPrice: 1.0,
			want:     []string{"AAA"},
		},
		{
			name:     "aggressive floor admits penny stock",
			quotes:   map[string]models.Quote{"PNY": {Price: 0.2, Volume: 5000}},
			symbols:  []string{"PNY"},
			minPrice: models.RiskAggressive.MinPrice(),
			want:     []string{"PNY"},
		},
		{
			name:     "missing quote is not tradeable",
			quotes:   map[string]models.Quote{"AAA": {Price: 5, Volume: 1}},
			symbols:  []string{"ZZZ", "AAA"},
			minPrice: 1.0,
			want:     []string{"AAA"},
		},
		{
			name:     "no quotes at all",
			quotes:   map[string]models.Quote{},
			symbols:  []string{"AAA"},
			minPrice: 1.0,
			want:     nil,
		},
		{
			name:     "lowercase input matches normalized quote keys",
			quotes:   map[string]models.Quote{"AAPL": {Price: 190, Volume: 1000}},
			symbols:  []string{"aapl", " AAPL "},
			minPrice: 1.0,
			want:     []string{"AAPL"},
		},
		{
			name:     "input order kept",
			quotes:   map[string]models.Quote{"B": {Price: 5, Volume: 1}, "A": {Price: 5, Volume: 1}},
			symbols:  []string{"B", "A"},
			minPrice: 1.0,
			want:     []string{"B", "A"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{quotes: quotesFrom(tt.quotes)}
			got, err := NewTradeabilityFilter(gw, nil).Execute(context.Background(), tt.symbols, tt.minPrice)
			require.NoError(t, err)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTradeabilityFilter_RequestsNormalizedSymbols(t *testing.T) {
	var requested []string
	gw := &fakeGateway{quotes: func(symbols []string) map[string]models.Quote {
		requested = symbols
		return map[string]models.Quote{"MSFT": {Price: 400, Volume: 10}}
	}}

	got, err := NewTradeabilityFilter(gw, nil).Execute(context.Background(), []string{"msft", ""}, 1.0)
	require.NoError(t, err)
	assert.Equal(t, []string{"MSFT"}, requested)
	assert.Equal(t, []string{"MSFT"}, got)
}

func TestTradeabilityFilter_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gw := &fakeGateway{quotes: quotesFrom(map[string]models.Quote{"AAA": {Price: 5, Volume: 1}})}
	_, err := NewTradeabilityFilter(gw, nil).Execute(ctx, []string{"AAA"}, 1.0)
	assert.ErrorIs(t, err, context.Canceled)
}
