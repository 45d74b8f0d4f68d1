// Package indicators computes the technical indicators used by the setup
// ranker. Every function returns false when there is not enough data.
package indicators

import (
	"math"

	"github.com/ternarybob/vigil/internal/models"
)

// VWAP is the volume-weighted average of the bars' typical price (H+L+C)/3.
func VWAP(bars []models.IntradayBar) (float64, bool) {
	var pv, vol float64
	for _, b := range bars {
		typical := (b.High + b.Low + b.Close) / 3
		pv += typical * float64(b.Volume)
		vol += float64(b.Volume)
	}
	if vol == 0 {
		return 0, false
	}
	return pv / vol, true
}

// VWAPFromClose weights closes instead of typical prices.
func VWAPFromClose(bars []models.IntradayBar) (float64, bool) {
	var pv, vol float64
	for _, b := range bars {
		pv += b.Close * float64(b.Volume)
		vol += float64(b.Volume)
	}
	if vol == 0 {
		return 0, false
	}
	return pv / vol, true
}

// RSI is Wilder's relative strength index over period. It needs period+1 prices.
// A series with no movement reads 50.
func RSI(prices []float64, period int) (float64, bool) {
	if period <= 0 || len(prices) < period+1 {
		return 0, false
	}

	var gain, loss float64
	for i := 1; i <= period; i++ {
		d := prices[i] - prices[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)

	for i := period + 1; i < len(prices); i++ {
		d := prices[i] - prices[i-1]
		g, l := 0.0, 0.0
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		avgGain = (avgGain*float64(period-1) + g) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + l) / float64(period)
	}

	switch {
	case avgGain == 0 && avgLoss == 0:
		return 50, true
	case avgLoss == 0:
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

// ATR is the simple average true range of the last period bars. It needs period+1 bars.
func ATR(bars []models.IntradayBar, period int) (float64, bool) {
	if period <= 0 || len(bars) < period+1 {
		return 0, false
	}
	var sum float64
	for i := len(bars) - period; i < len(bars); i++ {
		prevClose := bars[i-1].Close
		tr := math.Max(bars[i].High-bars[i].Low,
			math.Max(math.Abs(bars[i].High-prevClose), math.Abs(bars[i].Low-prevClose)))
		sum += tr
	}
	return sum / float64(period), true
}

// SMA is the mean of the last period values.
func SMA(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period {
		return 0, false
	}
	var sum float64
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period), true
}

// SMAs computes SMA of daily closes for each period that has enough data.
func SMAs(bars []models.DailyBar, periods ...int) map[int]float64 {
	closes := DailyCloses(bars)
	out := make(map[int]float64, len(periods))
	for _, p := range periods {
		if v, ok := SMA(closes, p); ok {
			out[p] = v
		}
	}
	return out
}

// IntradayCloses extracts closing prices.
func IntradayCloses(bars []models.IntradayBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// DailyCloses extracts closing prices.
func DailyCloses(bars []models.DailyBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
