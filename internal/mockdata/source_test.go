package mockdata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/vigil/internal/models"
)

func TestQuotesAreDeterministic(t *testing.T) {
	now := time.Date(2025, 3, 3, 15, 0, 0, 0, time.UTC)
	s := New(func() time.Time { return now })
	ctx := context.Background()

	a, err := s.GetQuotes(ctx, []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	b, err := s.GetQuotes(ctx, []string{"MSFT", "AAPL"})
	require.NoError(t, err)

	assert.Equal(t, a["AAPL"].Price, b["AAPL"].Price)
	assert.Greater(t, a["AAPL"].Volume, int64(0))
	assert.GreaterOrEqual(t, a["AAPL"].Price, 20.0)
}

func TestBarsCoverRequestedRange(t *testing.T) {
	s := New(nil)
	ctx := context.Background()

	intraday, err := s.GetIntradayBars(ctx, "AAPL", 2)
	require.NoError(t, err)
	assert.Len(t, intraday, 60)
	assert.True(t, intraday[0].Time.Before(intraday[59].Time))

	daily, err := s.GetDailyBars(ctx, "AAPL", 200)
	require.NoError(t, err)
	assert.Len(t, daily, 200)
	assert.Less(t, daily[0].Close, daily[199].Close)
}

func TestScreenHonoursCriteria(t *testing.T) {
	s := New(nil)
	syms, err := s.Screen(context.Background(), models.ScreenerCriteria{MinPrice: 1, MinVolume: 1, Limit: 3})
	require.NoError(t, err)
	assert.Len(t, syms, 3)
}
