package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/vigil/internal/models"
)

func bar(h, l, c float64, v int64) models.IntradayBar {
	return models.IntradayBar{Time: time.Unix(0, 0), Open: c, High: h, Low: l, Close: c, Volume: v}
}

func TestVWAP_TypicalPrice(t *testing.T) {
	bars := []models.IntradayBar{bar(10, 8, 9, 100), bar(12, 9, 11, 200)}
	want := (9.0*100 + ((12.0+9+11)/3)*200) / 300

	got, ok := VWAP(bars)
	require.True(t, ok)
	assert.InDelta(t, want, got, 1e-9)

	got, ok = VWAPFromClose(bars)
	require.True(t, ok)
	assert.InDelta(t, (9.0*100+11*200)/300, got, 1e-9)

	_, ok = VWAP(nil)
	assert.False(t, ok)
}

func TestRSI(t *testing.T) {
	rising := make([]float64, 16)
	for i := range rising {
		rising[i] = float64(i + 1)
	}
	flat := make([]float64, 15)
	for i := range flat {
		flat[i] = 10
	}

	tests := []struct {
		name   string
		prices []float64
		want   float64
		ok     bool
	}{
		{"all gains", rising, 100, true},
		{"flat", flat, 50, true},
		{"insufficient", flat[:10], 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RSI(tt.prices, 14)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestATR_ConstantRange(t *testing.T) {
	bars := make([]models.IntradayBar, 15)
	for i := range bars {
		bars[i] = bar(10, 8, 9, 100)
	}
	got, ok := ATR(bars, 14)
	require.True(t, ok)
	assert.InDelta(t, 2.0, got, 1e-9)

	_, ok = ATR(bars[:6], 14)
	assert.False(t, ok)
}

func TestSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	got, ok := SMA(values, 5)
	require.True(t, ok)
	assert.InDelta(t, 8.0, got, 1e-9)

	_, ok = SMA(values[:3], 5)
	assert.False(t, ok)

	daily := make([]models.DailyBar, len(values))
	for i, v := range values {
		daily[i] = models.DailyBar{Close: v}
	}
	smas := SMAs(daily, 5, 10, 50)
	assert.InDelta(t, 8.0, smas[5], 1e-9)
	assert.InDelta(t, 5.5, smas[10], 1e-9)
	_, has50 := smas[50]
	assert.False(t, has50)
}
