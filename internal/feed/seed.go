package feed

import (
	"github.com/Yusufzhafir/go-orderbook/depthchart/pkg/model"
	"github.com/shopspring/decimal"
)

// SyntheticBook builds a symmetric book around mid with levels per side,
// step apart, and volumes growing linearly from baseVolume. Used to seed
// development environments.
func SyntheticBook(mid, step, baseVolume decimal.Decimal, levels int, ts int64) model.MarketDepth {
	halfStep := step.Div(decimal.NewFromInt(2))
	depth := model.MarketDepth{
		Bids:      make([]model.Offer, 0, levels),
		Asks:      make([]model.Offer, 0, levels),
		Timestamp: ts,
	}
	for i := 0; i < levels; i++ {
		n := decimal.NewFromInt(int64(i))
		off := halfStep.Add(step.Mul(n))
		vol := baseVolume.Mul(n.Add(decimal.NewFromInt(1)))
		if bid := mid.Sub(off); bid.IsPositive() {
			depth.Bids = append(depth.Bids, model.Offer{Price: bid, Volume: vol})
		}
		depth.Asks = append(depth.Asks, model.Offer{Price: mid.Add(off), Volume: vol})
	}
	return depth
}
