// Package depth turns best-first order book sides into the data a depth chart
// renders: cumulative step series, the mid-price and a zoomable viewport.
package depth

import (
	"errors"
	"iter"

	"github.com/Yusufzhafir/go-orderbook/depthchart/pkg/model"
	"github.com/shopspring/decimal"
)

var ErrMidPriceUnavailable = errors.New("mid-price unavailable: both sides must have offers")

// Cumulative walks side from the best price outward, yielding each offer with
// the volume accumulated so far. Each range over the result starts again from
// the best price; side is never modified.
func Cumulative(side []model.Offer) iter.Seq[model.CumulativeOffer] {
	return func(yield func(model.CumulativeOffer) bool) {
		total := decimal.Zero
		for _, o := range side {
			total = total.Add(o.Volume)
			if !yield(model.CumulativeOffer{Offer: o, Cumulative: total}) {
				return
			}
		}
	}
}

func CollectCumulative(side []model.Offer) []model.CumulativeOffer {
	out := make([]model.CumulativeOffer, 0, len(side))
	for c := range Cumulative(side) {
		out = append(out, c)
	}
	return out
}

var (
	two = decimal.NewFromInt(2)
	// half is exact; Div rounds to DivisionPrecision and can land outside the spread
	half = decimal.New(5, -1)
)

// MidPrice is the midpoint between the best bid and the best ask.
func MidPrice(bids, asks []model.Offer) (decimal.Decimal, error) {
	if len(bids) == 0 || len(asks) == 0 {
		return decimal.Zero, ErrMidPriceUnavailable
	}
	return bids[0].Price.Add(asks[0].Price).Mul(half), nil
}

// lerp interpolates between a and b; t outside [0,1] extrapolates.
func lerp(a, b, t decimal.Decimal) decimal.Decimal {
	return a.Add(b.Sub(a).Mul(t))
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	return decimal.Min(decimal.Max(v, lo), hi)
}
