package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Side uint8

const (
	BID Side = iota
	ASK
)

func (s Side) String() string {
	if s == ASK {
		return "ASK"
	}
	return "BID"
}

func ParseSide(s string) (Side, error) {
	switch s {
	case "BID", "bid", "bids", "BUY", "buy":
		return BID, nil
	case "ASK", "ask", "asks", "SELL", "sell":
		return ASK, nil
	}
	return BID, fmt.Errorf("unknown side %q", s)
}

// Offer is a resting order at a price with an available volume.
type Offer struct {
	Price  decimal.Decimal `json:"price"`
	Volume decimal.Decimal `json:"volume"`
}

func NewOffer(price, volume float64) Offer {
	return Offer{
		Price:  decimal.NewFromFloat(price),
		Volume: decimal.NewFromFloat(volume),
	}
}

// CumulativeOffer carries the running volume from the best price up to and
// including this offer.
type CumulativeOffer struct {
	Offer
	Cumulative decimal.Decimal `json:"cumulative"`
}
