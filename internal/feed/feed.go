// Package feed supplies market snapshots to the depth aggregator. Feeds are
// read-only from the aggregator's side.
package feed

import (
	"context"
	"errors"

	"github.com/Yusufzhafir/go-orderbook/depthchart/pkg/model"
	"github.com/shopspring/decimal"
)

var (
	ErrUnknownMarket = errors.New("unknown market")
	ErrReadOnly      = errors.New("feed is read-only")
)

type Feed interface {
	// Snapshot returns the latest book for symbol. An unknown symbol yields a
	// snapshot with no market selected rather than an error.
	Snapshot(ctx context.Context, symbol string) (model.MarketSnapshot, error)
	Markets() []model.Market
}

// Notifier reports which market changed after new book data arrives.
type Notifier interface {
	OnUpdate(handler UpdateHandler)
}

// Ingester accepts book data pushed by a publisher.
type Ingester interface {
	Notifier
	ApplySnapshot(ctx context.Context, symbol string, depth model.MarketDepth) error
	UpdateLevel(ctx context.Context, symbol string, side model.Side, price, volume decimal.Decimal) error
}

type UpdateHandler func(symbol string)

func marketIndex(markets []model.Market) map[string]model.Market {
	idx := make(map[string]model.Market, len(markets))
	for _, m := range markets {
		idx[m.Symbol] = m
	}
	return idx
}
