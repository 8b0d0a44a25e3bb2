package engine

import (
	"fmt"
	"time"

	bookModel "github.com/Yusufzhafir/go-orderbook/depthchart/internal/engine/model"
	"github.com/Yusufzhafir/go-orderbook/depthchart/pkg/model"
	"github.com/google/btree"
	"github.com/shopspring/decimal"
)

// BookEngine keeps the aggregated price levels of one market. It is not safe
// for concurrent use; callers serialize access.
type BookEngine interface {
	ApplySnapshot(depth model.MarketDepth) error
	UpdateLevel(side model.Side, price, volume decimal.Decimal) error
	Initialize()
	LevelSize() int
	GetTopOfBook() *model.TopOfBook
	GetMarketDepth(levels int) model.MarketDepth
}

type BookEngineImpl struct {
	bids, asks *btree.BTree // price-level trees, best price is Min()
	updatedAt  time.Time
	now        func() time.Time
}

func NewBookEngine() BookEngine {
	return &BookEngineImpl{now: time.Now}
}

func (b *BookEngineImpl) Initialize() {
	b.bids = btree.New(32) // degree tuned for performance
	b.asks = btree.New(32)
	b.updatedAt = time.Time{}
}

func validateLevel(price, volume decimal.Decimal) error {
	if !price.IsPositive() {
		return fmt.Errorf("price must be > 0, got %s", price)
	}
	if volume.IsNegative() {
		return fmt.Errorf("volume must be >= 0, got %s", volume)
	}
	return nil
}

// ApplySnapshot replaces the whole book. Offers may arrive in any order and
// repeated prices are summed; zero-volume offers are skipped.
func (b *BookEngineImpl) ApplySnapshot(depth model.MarketDepth) error {
	for _, o := range depth.Bids {
		if err := validateLevel(o.Price, o.Volume); err != nil {
			return fmt.Errorf("bid: %w", err)
		}
	}
	for _, o := range depth.Asks {
		if err := validateLevel(o.Price, o.Volume); err != nil {
			return fmt.Errorf("ask: %w", err)
		}
	}

	bids := btree.New(32)
	asks := btree.New(32)
	for _, o := range depth.Bids {
		if o.Volume.IsZero() {
			continue
		}
		key := &bookModel.BidPriceLevel{Price: o.Price}
		if item := bids.Get(key); item != nil {
			level := item.(*bookModel.BidPriceLevel)
			level.Volume = level.Volume.Add(o.Volume)
			continue
		}
		key.Volume = o.Volume
		bids.ReplaceOrInsert(key)
	}
	for _, o := range depth.Asks {
		if o.Volume.IsZero() {
			continue
		}
		key := &bookModel.AskPriceLevel{Price: o.Price}
		if item := asks.Get(key); item != nil {
			level := item.(*bookModel.AskPriceLevel)
			level.Volume = level.Volume.Add(o.Volume)
			continue
		}
		key.Volume = o.Volume
		asks.ReplaceOrInsert(key)
	}

	b.bids, b.asks = bids, asks
	b.touch(depth.Timestamp)
	return nil
}

// UpdateLevel sets the volume resting at price. Zero volume removes the level.
func (b *BookEngineImpl) UpdateLevel(side model.Side, price, volume decimal.Decimal) error {
	if err := validateLevel(price, volume); err != nil {
		return err
	}

	switch side {
	case model.ASK:
		level := &bookModel.AskPriceLevel{Price: price, Volume: volume}
		if volume.IsZero() {
			b.asks.Delete(level)
		} else {
			b.asks.ReplaceOrInsert(level)
		}
	case model.BID:
		level := &bookModel.BidPriceLevel{Price: price, Volume: volume}
		if volume.IsZero() {
			b.bids.Delete(level)
		} else {
			b.bids.ReplaceOrInsert(level)
		}
	default:
		return fmt.Errorf("unknown side %d", side)
	}

	b.touch(0)
	return nil
}

func (b *BookEngineImpl) touch(ts int64) {
	if ts > 0 {
		b.updatedAt = time.UnixMilli(ts)
		return
	}
	b.updatedAt = b.now()
}

func (b *BookEngineImpl) LevelSize() int {
	return b.asks.Len() + b.bids.Len()
}

// GetMarketDepth copies at most levels price levels per side; levels <= 0
// means the whole book.
func (b *BookEngineImpl) GetMarketDepth(levels int) model.MarketDepth {
	bidCap, askCap := b.bids.Len(), b.asks.Len()
	if levels > 0 {
		bidCap, askCap = min(bidCap, levels), min(askCap, levels)
	}
	depth := model.MarketDepth{
		Bids: make([]model.Offer, 0, bidCap),
		Asks: make([]model.Offer, 0, askCap),
	}
	if !b.updatedAt.IsZero() {
		depth.Timestamp = b.updatedAt.UnixMilli()
	}

	// Collect bid levels (highest price first)
	b.bids.Ascend(func(item btree.Item) bool {
		if len(depth.Bids) >= bidCap {
			return false // Stop iteration
		}
		bidLevel := item.(*bookModel.BidPriceLevel)
		depth.Bids = append(depth.Bids, model.Offer{Price: bidLevel.Price, Volume: bidLevel.Volume})
		return true
	})

	// Collect ask levels (lowest price first)
	b.asks.Ascend(func(item btree.Item) bool {
		if len(depth.Asks) >= askCap {
			return false
		}
		askLevel := item.(*bookModel.AskPriceLevel)
		depth.Asks = append(depth.Asks, model.Offer{Price: askLevel.Price, Volume: askLevel.Volume})
		return true
	})

	return depth
}

// GetTopOfBook returns best bid and ask
func (b *BookEngineImpl) GetTopOfBook() *model.TopOfBook {
	tob := &model.TopOfBook{}

	if b.bids.Len() > 0 {
		best := b.bids.Min().(*bookModel.BidPriceLevel)
		tob.BestBid = &model.Offer{Price: best.Price, Volume: best.Volume}
	}
	if b.asks.Len() > 0 {
		best := b.asks.Min().(*bookModel.AskPriceLevel)
		tob.BestAsk = &model.Offer{Price: best.Price, Volume: best.Volume}
	}

	if tob.BestBid != nil && tob.BestAsk != nil {
		tob.Spread = decimal.NewNullDecimal(tob.BestAsk.Price.Sub(tob.BestBid.Price))
	}

	return tob
}
