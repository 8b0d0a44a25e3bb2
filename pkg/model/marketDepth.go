package model

import "github.com/shopspring/decimal"

// MarketDepth is an immutable best-first view of one market's book.
type MarketDepth struct {
	Bids      []Offer `json:"bids"` // Highest to lowest price
	Asks      []Offer `json:"asks"` // Lowest to highest price
	Timestamp int64   `json:"timestamp"`
}

// TopOfBook represents best bid/ask
type TopOfBook struct {
	BestBid *Offer              `json:"bestBid"`
	BestAsk *Offer              `json:"bestAsk"`
	Spread  decimal.NullDecimal `json:"spread"`
}
