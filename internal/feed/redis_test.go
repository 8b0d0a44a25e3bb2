package feed

import (
	"context"
	"testing"
	"time"

	"github.com/Yusufzhafir/go-orderbook/depthchart/pkg/model"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := NewRedisClient(context.Background(), RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func newRedisFeed(rdb *redis.Client, levels int, poll time.Duration) *RedisFeed {
	return NewRedisFeed(RedisFeedOpts{
		Client:       rdb,
		Markets:      []model.Market{wethUSDC},
		Levels:       levels,
		PollInterval: poll,
		Logger:       zerolog.Nop(),
	})
}

func unorderedBook(ts int64) model.MarketDepth {
	return model.MarketDepth{
		Bids: []model.Offer{
			{Price: decimal.RequireFromString("99"), Volume: decimal.RequireFromString("3")},
			{Price: decimal.RequireFromString("100"), Volume: decimal.RequireFromString("5")},
			{Price: decimal.RequireFromString("98.5"), Volume: decimal.RequireFromString("1")},
		},
		Asks: []model.Offer{
			{Price: decimal.RequireFromString("102"), Volume: decimal.RequireFromString("2")},
			{Price: decimal.RequireFromString("101"), Volume: decimal.RequireFromString("4")},
			{Price: decimal.RequireFromString("103.25"), Volume: decimal.RequireFromString("7")},
		},
		Timestamp: ts,
	}
}

func prices(offers []model.Offer) []string {
	out := make([]string, 0, len(offers))
	for _, o := range offers {
		out = append(out, o.Price.String())
	}
	return out
}

func TestNewRedisClientPingFails(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisClient(context.Background(), RedisConfig{Addr: addr})
	assert.Error(t, err)
}

func TestRedisFeedLoadingWithoutMeta(t *testing.T) {
	_, rdb := newRedis(t)
	f := newRedisFeed(rdb, 0, 0)

	snap, err := f.Snapshot(context.Background(), "WETH-USDC")
	require.NoError(t, err)
	require.True(t, snap.MarketSelected())
	assert.True(t, snap.Loading)
	assert.Empty(t, snap.Depth.Bids)

	snap, err = f.Snapshot(context.Background(), "DOGE-USDC")
	require.NoError(t, err)
	assert.False(t, snap.MarketSelected())
}

func TestRedisWriterRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, rdb := newRedis(t)
	w := NewRedisWriter(rdb)
	require.NoError(t, w.SetSnapshot(ctx, "WETH-USDC", unorderedBook(1700000000000)))

	snap, err := newRedisFeed(rdb, 0, 0).Snapshot(ctx, "WETH-USDC")
	require.NoError(t, err)
	assert.False(t, snap.Loading)
	assert.Equal(t, int64(1700000000000), snap.Depth.Timestamp)
	assert.Equal(t, []string{"100", "99", "98.5"}, prices(snap.Depth.Bids), "bids best first")
	assert.Equal(t, []string{"101", "102", "103.25"}, prices(snap.Depth.Asks), "asks best first")
	assert.True(t, snap.Depth.Bids[0].Volume.Equal(decimal.NewFromInt(5)))
	assert.True(t, snap.Depth.Asks[2].Volume.Equal(decimal.NewFromInt(7)))

	capped, err := newRedisFeed(rdb, 2, 0).Snapshot(ctx, "WETH-USDC")
	require.NoError(t, err)
	assert.Equal(t, []string{"100", "99"}, prices(capped.Depth.Bids))
	assert.Equal(t, []string{"101", "102"}, prices(capped.Depth.Asks))

	// a new snapshot replaces the old levels entirely
	require.NoError(t, w.SetSnapshot(ctx, "WETH-USDC", model.MarketDepth{Timestamp: 1700000001000}))
	snap, err = newRedisFeed(rdb, 0, 0).Snapshot(ctx, "WETH-USDC")
	require.NoError(t, err)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Depth.Bids)
	assert.Empty(t, snap.Depth.Asks)
}

func TestRedisFeedSkipsMembersWithoutSize(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	require.NoError(t, NewRedisWriter(rdb).SetSnapshot(ctx, "WETH-USDC", unorderedBook(1)))
	mr.HDel(bookBidSizeKey("WETH-USDC"), "100")

	snap, err := newRedisFeed(rdb, 0, 0).Snapshot(ctx, "WETH-USDC")
	require.NoError(t, err)
	assert.Equal(t, []string{"99", "98.5"}, prices(snap.Depth.Bids))
}

func TestRedisFeedChangeDetection(t *testing.T) {
	ctx := context.Background()
	_, rdb := newRedis(t)
	f := newRedisFeed(rdb, 0, 0)
	w := NewRedisWriter(rdb)

	assert.Empty(t, f.changed(ctx), "no meta yet")

	require.NoError(t, w.SetSnapshot(ctx, "WETH-USDC", unorderedBook(1)))
	assert.Equal(t, []string{"WETH-USDC"}, f.changed(ctx))
	assert.Empty(t, f.changed(ctx), "same ts is not a change")

	require.NoError(t, w.SetSnapshot(ctx, "WETH-USDC", unorderedBook(2)))
	assert.Equal(t, []string{"WETH-USDC"}, f.changed(ctx))
}

func TestRedisFeedWatch(t *testing.T) {
	_, rdb := newRedis(t)
	f := newRedisFeed(rdb, 0, 10*time.Millisecond)

	updates := make(chan string, 8)
	f.OnUpdate(func(symbol string) { updates <- symbol })

	ctx, cancel := context.WithCancel(context.Background())
	watchErr := make(chan error, 1)
	go func() { watchErr <- f.Watch(ctx) }()

	require.NoError(t, NewRedisWriter(rdb).SetSnapshot(context.Background(), "WETH-USDC", unorderedBook(5)))
	select {
	case symbol := <-updates:
		assert.Equal(t, "WETH-USDC", symbol)
	case <-time.After(2 * time.Second):
		t.Fatal("no update after snapshot was written")
	}

	cancel()
	select {
	case err := <-watchErr:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}
