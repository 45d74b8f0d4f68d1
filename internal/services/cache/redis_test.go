package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestRedisTier_Get(t *testing.T) {
	db, mock := redismock.NewClientMock()
	tier := NewRedisTierFromClient(db, "vigil:")
	ctx := context.Background()

	t.Run("hit", func(t *testing.T) {
		mock.ExpectGet("vigil:quote:AAPL").SetVal(`{"symbol":"AAPL"}`)

		val, found, err := tier.Get(ctx, "quote:AAPL")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, `{"symbol":"AAPL"}`, string(val))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("miss is not an error", func(t *testing.T) {
		mock.ExpectGet("vigil:quote:MSFT").RedisNil()

		val, found, err := tier.Get(ctx, "quote:MSFT")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, val)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis error", func(t *testing.T) {
		mock.ExpectGet("vigil:quote:TSLA").SetErr(redis.TxFailedErr)

		_, _, err := tier.Get(ctx, "quote:TSLA")
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRedisTier_Set(t *testing.T) {
	db, mock := redismock.NewClientMock()
	tier := NewRedisTierFromClient(db, "vigil:")

	value := []byte(`{"price":1}`)
	mock.ExpectSet("vigil:quote:AAPL", value, 5*time.Second).SetVal("OK")

	require.NoError(t, tier.Set(context.Background(), "quote:AAPL", value, 5*time.Second))
	assert.NoError(t, mock.ExpectationsWereMet())
}

type quoteValue struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

func TestTiered_SharedHitPopulatesLocal(t *testing.T) {
	db, mock := redismock.NewClientMock()
	tier := NewRedisTierFromClient(db, "vigil:")
	local := NewTTLCache[quoteValue](time.Minute, nil)
	c := NewTiered[quoteValue]("quote", local, tier, arbor.NewNoOpLogger())
	ctx := context.Background()

	mock.ExpectGet("vigil:quote:AAPL").SetVal(`{"symbol":"AAPL","price":190.1}`)

	v, result, ok := c.Get(ctx, "AAPL")
	require.True(t, ok)
	assert.Equal(t, ResultSharedHit, result)
	assert.Equal(t, 190.1, v.Price)

	// second read is served locally without touching redis
	v, result, ok = c.Get(ctx, "AAPL")
	require.True(t, ok)
	assert.Equal(t, ResultHit, result)
	assert.Equal(t, "AAPL", v.Symbol)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTiered_SharedFailureDegradesToMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	tier := NewRedisTierFromClient(db, "vigil:")
	c := NewTiered[quoteValue]("quote", NewTTLCache[quoteValue](time.Minute, nil), tier, arbor.NewNoOpLogger())

	mock.ExpectGet("vigil:quote:AAPL").SetErr(redis.TxFailedErr)

	_, result, ok := c.Get(context.Background(), "AAPL")
	assert.False(t, ok)
	assert.Equal(t, ResultMiss, result)
}

func TestTiered_LocalOnly(t *testing.T) {
	c := NewTiered[quoteValue]("quote", NewTTLCache[quoteValue](time.Minute, nil), nil, arbor.NewNoOpLogger())
	ctx := context.Background()

	_, result, ok := c.Get(ctx, "AAPL")
	assert.False(t, ok)
	assert.Equal(t, ResultMiss, result)

	c.Put(ctx, "AAPL", quoteValue{Symbol: "AAPL", Price: 1})
	_, result, ok = c.Get(ctx, "AAPL")
	assert.True(t, ok)
	assert.Equal(t, ResultHit, result)

	c.ClearLocal()
	_, _, ok = c.Get(ctx, "AAPL")
	assert.False(t, ok)
}
