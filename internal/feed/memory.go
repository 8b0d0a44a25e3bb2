package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/engine"
	"github.com/Yusufzhafir/go-orderbook/depthchart/pkg/model"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type book struct {
	market   model.Market
	engine   engine.BookEngine
	received bool
}

// BookFeed keeps one in-memory book per configured market. Snapshots handed
// out are copies; ingest never touches a snapshot already returned.
type BookFeed struct {
	mu       sync.RWMutex
	books    map[string]*book
	markets  []model.Market
	levels   int
	handlers []UpdateHandler
	logger   zerolog.Logger
}

type BookFeedOpts struct {
	Markets []model.Market
	Levels  int // per side, 0 = whole book
	Logger  zerolog.Logger
}

func NewBookFeed(opts BookFeedOpts) *BookFeed {
	f := &BookFeed{
		books:   make(map[string]*book, len(opts.Markets)),
		markets: opts.Markets,
		levels:  opts.Levels,
		logger:  opts.Logger.With().Str("component", "book_feed").Logger(),
	}
	for _, m := range opts.Markets {
		e := engine.NewBookEngine()
		e.Initialize()
		f.books[m.Symbol] = &book{market: m, engine: e}
	}
	return f
}

func (f *BookFeed) Markets() []model.Market {
	return f.markets
}

func (f *BookFeed) Snapshot(_ context.Context, symbol string) (model.MarketSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	b, ok := f.books[symbol]
	if !ok {
		return model.MarketSnapshot{Loading: false}, nil
	}
	market := b.market
	if !b.received {
		return model.MarketSnapshot{Market: &market, Loading: true}, nil
	}
	return model.MarketSnapshot{
		Market: &market,
		Depth:  b.engine.GetMarketDepth(f.levels),
	}, nil
}

func (f *BookFeed) ApplySnapshot(_ context.Context, symbol string, depth model.MarketDepth) error {
	f.mu.Lock()
	b, ok := f.books[symbol]
	if !ok {
		f.mu.Unlock()
		return fmt.Errorf("apply snapshot %s: %w", symbol, ErrUnknownMarket)
	}
	err := b.engine.ApplySnapshot(depth)
	if err == nil {
		b.received = true
	}
	f.mu.Unlock()

	if err != nil {
		return fmt.Errorf("apply snapshot %s: %w", symbol, err)
	}
	f.logger.Debug().Str("market", symbol).Int("bids", len(depth.Bids)).Int("asks", len(depth.Asks)).Msg("snapshot applied")
	f.notify(symbol)
	return nil
}

func (f *BookFeed) UpdateLevel(_ context.Context, symbol string, side model.Side, price, volume decimal.Decimal) error {
	f.mu.Lock()
	b, ok := f.books[symbol]
	if !ok {
		f.mu.Unlock()
		return fmt.Errorf("update level %s: %w", symbol, ErrUnknownMarket)
	}
	err := b.engine.UpdateLevel(side, price, volume)
	if err == nil {
		b.received = true
	}
	f.mu.Unlock()

	if err != nil {
		return fmt.Errorf("update level %s %s@%s: %w", symbol, side, price, err)
	}
	f.notify(symbol)
	return nil
}

// OnUpdate registers handler to run after every successful ingest. Handlers
// run on the ingesting goroutine.
func (f *BookFeed) OnUpdate(handler UpdateHandler) {
	f.mu.Lock()
	f.handlers = append(f.handlers, handler)
	f.mu.Unlock()
}

func (f *BookFeed) notify(symbol string) {
	f.mu.RLock()
	handlers := f.handlers
	f.mu.RUnlock()
	for _, h := range handlers {
		h(symbol)
	}
}

var (
	_ Feed     = (*BookFeed)(nil)
	_ Ingester = (*BookFeed)(nil)
)
