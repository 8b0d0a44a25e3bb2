package model

import (
	"github.com/google/btree"
	"github.com/shopspring/decimal"
)

// AskPriceLevel ascending
type AskPriceLevel struct {
	Price  decimal.Decimal
	Volume decimal.Decimal
}

func (pl *AskPriceLevel) Less(than btree.Item) bool {
	other := than.(*AskPriceLevel)
	return pl.Price.LessThan(other.Price)
}

// BidPriceLevel descending
type BidPriceLevel struct {
	Price  decimal.Decimal
	Volume decimal.Decimal
}

func (bpl *BidPriceLevel) Less(than btree.Item) bool {
	other := than.(*BidPriceLevel)
	return bpl.Price.GreaterThan(other.Price) // Reverse
}
