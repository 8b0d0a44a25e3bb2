package feed

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/Yusufzhafir/go-orderbook/depthchart/pkg/model"
	"github.com/Yusufzhafir/go-orderbook/depthchart/pkg/util"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Key schema shared with the collector that writes books:
//
//	book:{symbol}:bids      - sorted set of bid prices (score = price, member = price string)
//	book:{symbol}:asks      - sorted set of ask prices
//	book:{symbol}:bid:size  - hash price -> volume for bids
//	book:{symbol}:ask:size  - hash price -> volume for asks
//	book:{symbol}:meta      - hash with "ts" (unix ms of the snapshot)
func bookBidsKey(symbol string) string    { return "book:" + symbol + ":bids" }
func bookAsksKey(symbol string) string    { return "book:" + symbol + ":asks" }
func bookBidSizeKey(symbol string) string { return "book:" + symbol + ":bid:size" }
func bookAskSizeKey(symbol string) string { return "book:" + symbol + ":ask:size" }
func bookMetaKey(symbol string) string    { return "book:" + symbol + ":meta" }

type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	TLSEnabled bool
}

// NewRedisClient connects and pings.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return rdb, nil
}

// RedisFeed reads books maintained in Redis by an external collector.
type RedisFeed struct {
	rdb     *redis.Client
	markets []model.Market
	index   map[string]model.Market
	levels  int
	poll    time.Duration

	mu       sync.Mutex
	handlers []UpdateHandler
	lastTs   map[string]string

	logger zerolog.Logger
}

type RedisFeedOpts struct {
	Client       *redis.Client
	Markets      []model.Market
	Levels       int
	PollInterval time.Duration // how often Watch checks book:{symbol}:meta
	Logger       zerolog.Logger
}

func NewRedisFeed(opts RedisFeedOpts) *RedisFeed {
	poll := opts.PollInterval
	if poll <= 0 {
		poll = time.Second
	}
	return &RedisFeed{
		rdb:     opts.Client,
		markets: opts.Markets,
		index:   marketIndex(opts.Markets),
		levels:  opts.Levels,
		poll:    poll,
		lastTs:  make(map[string]string, len(opts.Markets)),
		logger:  opts.Logger.With().Str("component", "redis_feed").Logger(),
	}
}

func (f *RedisFeed) OnUpdate(handler UpdateHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, handler)
}

// Watch polls each market's meta timestamp and notifies handlers when the
// collector wrote a newer book. It returns when ctx is done.
func (f *RedisFeed) Watch(ctx context.Context) error {
	ticker := time.NewTicker(f.poll)
	defer ticker.Stop()
	f.logger.Info().Dur("interval", f.poll).Msg("watching books")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for _, symbol := range f.changed(ctx) {
				f.notify(symbol)
			}
		}
	}
}

func (f *RedisFeed) changed(ctx context.Context) []string {
	pipe := f.rdb.Pipeline()
	cmds := make(map[string]*redis.StringCmd, len(f.markets))
	for _, m := range f.markets {
		cmds[m.Symbol] = pipe.HGet(ctx, bookMetaKey(m.Symbol), "ts")
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		f.logger.Warn().Err(err).Msg("poll book meta")
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for symbol, cmd := range cmds {
		ts, err := cmd.Result()
		if err != nil {
			continue
		}
		if f.lastTs[symbol] != ts {
			f.lastTs[symbol] = ts
			out = append(out, symbol)
		}
	}
	return out
}

func (f *RedisFeed) notify(symbol string) {
	f.mu.Lock()
	handlers := append([]UpdateHandler(nil), f.handlers...)
	f.mu.Unlock()
	for _, h := range handlers {
		h(symbol)
	}
}

func (f *RedisFeed) Markets() []model.Market {
	return f.markets
}

func (f *RedisFeed) Snapshot(ctx context.Context, symbol string) (model.MarketSnapshot, error) {
	m, ok := f.index[symbol]
	if !ok {
		return model.MarketSnapshot{}, nil
	}
	market := m

	stop := int64(-1)
	if f.levels > 0 {
		stop = int64(f.levels - 1)
	}

	pipe := f.rdb.Pipeline()
	// bids highest first, asks lowest first
	bidsCmd := pipe.ZRevRangeWithScores(ctx, bookBidsKey(symbol), 0, stop)
	asksCmd := pipe.ZRangeWithScores(ctx, bookAsksKey(symbol), 0, stop)
	bidSizeCmd := pipe.HGetAll(ctx, bookBidSizeKey(symbol))
	askSizeCmd := pipe.HGetAll(ctx, bookAskSizeKey(symbol))
	metaCmd := pipe.HGetAll(ctx, bookMetaKey(symbol))

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return model.MarketSnapshot{}, fmt.Errorf("redis: get book %s: %w", symbol, err)
	}

	meta, _ := metaCmd.Result()
	if len(meta) == 0 {
		return model.MarketSnapshot{Market: &market, Loading: true}, nil
	}

	snap := model.MarketSnapshot{Market: &market}
	if ts, err := strconv.ParseInt(meta["ts"], 10, 64); err == nil {
		snap.Depth.Timestamp = ts
	}

	bidSizes, _ := bidSizeCmd.Result()
	bidsZ, _ := bidsCmd.Result()
	bids, err := offersFromZ(bidsZ, bidSizes)
	if err != nil {
		return model.MarketSnapshot{}, fmt.Errorf("redis: %s bids: %w", symbol, err)
	}
	askSizes, _ := askSizeCmd.Result()
	asksZ, _ := asksCmd.Result()
	asks, err := offersFromZ(asksZ, askSizes)
	if err != nil {
		return model.MarketSnapshot{}, fmt.Errorf("redis: %s asks: %w", symbol, err)
	}
	snap.Depth.Bids, snap.Depth.Asks = bids, asks
	return snap, nil
}

// offersFromZ keeps the sorted-set order. Members without a size entry are
// skipped; the collector writes both in one transaction, so they only show
// up mid-update.
func offersFromZ(zs []redis.Z, sizes map[string]string) ([]model.Offer, error) {
	out := make([]model.Offer, 0, len(zs))
	for _, z := range zs {
		price, ok := z.Member.(string)
		if !ok {
			continue
		}
		size, ok := sizes[price]
		if !ok {
			continue
		}
		o, err := util.StringsToOffer(price, size)
		if err != nil {
			return nil, err
		}
		if o.Volume.IsZero() {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// RedisWriter publishes whole snapshots using the key schema above.
type RedisWriter struct {
	rdb *redis.Client
}

func NewRedisWriter(rdb *redis.Client) *RedisWriter {
	return &RedisWriter{rdb: rdb}
}

func (w *RedisWriter) SetSnapshot(ctx context.Context, symbol string, depth model.MarketDepth) error {
	bidsKey, asksKey := bookBidsKey(symbol), bookAsksKey(symbol)
	bidSizeKey, askSizeKey := bookBidSizeKey(symbol), bookAskSizeKey(symbol)
	metaKey := bookMetaKey(symbol)

	pipe := w.rdb.TxPipeline()
	pipe.Del(ctx, bidsKey, asksKey, bidSizeKey, askSizeKey, metaKey)

	for _, lvl := range depth.Bids {
		price := lvl.Price.String()
		pipe.ZAdd(ctx, bidsKey, redis.Z{Score: lvl.Price.InexactFloat64(), Member: price})
		pipe.HSet(ctx, bidSizeKey, price, lvl.Volume.String())
	}
	for _, lvl := range depth.Asks {
		price := lvl.Price.String()
		pipe.ZAdd(ctx, asksKey, redis.Z{Score: lvl.Price.InexactFloat64(), Member: price})
		pipe.HSet(ctx, askSizeKey, price, lvl.Volume.String())
	}
	pipe.HSet(ctx, metaKey, "ts", strconv.FormatInt(depth.Timestamp, 10))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set book %s: %w", symbol, err)
	}
	return nil
}

var (
	_ Feed     = (*RedisFeed)(nil)
	_ Notifier = (*RedisFeed)(nil)
)
