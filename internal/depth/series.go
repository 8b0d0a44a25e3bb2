package depth

import (
	"slices"

	"github.com/Yusufzhafir/go-orderbook/depthchart/pkg/model"
	"github.com/shopspring/decimal"
)

const (
	SeriesBids     = "bids"
	SeriesAsks     = "asks"
	SeriesMidPrice = "midPrice"
)

type Curve string

const (
	CurveStepBefore Curve = "stepBefore"
	CurveStepAfter  Curve = "stepAfter"
	CurveLinear     Curve = "linear"
)

type Line struct {
	Key    string        `json:"key"`
	Curve  Curve         `json:"curve"`
	Points []model.Offer `json:"points"`
}

type Series struct {
	Bids     Line `json:"bids"`
	Asks     Line `json:"asks"`
	MidPrice Line `json:"midPrice"`
}

var midLineMultipliers = []decimal.Decimal{
	decimal.RequireFromString("1.2"),
	decimal.RequireFromString("0.5"),
	decimal.Zero,
}

// BuildSeries lays out the step curves in ascending price order. Each side
// starts at zero volume on its best price; bids run down to price zero.
func BuildSeries(bids, asks []model.CumulativeOffer, mid decimal.Decimal, vp Viewport) Series {
	s := Series{
		Bids:     Line{Key: SeriesBids, Curve: CurveStepBefore, Points: []model.Offer{}},
		Asks:     Line{Key: SeriesAsks, Curve: CurveStepAfter, Points: []model.Offer{}},
		MidPrice: Line{Key: SeriesMidPrice, Curve: CurveLinear, Points: []model.Offer{}},
	}

	if len(bids) > 0 {
		pts := make([]model.Offer, 0, len(bids)+2)
		pts = append(pts, model.Offer{Price: bids[0].Price, Volume: decimal.Zero})
		for _, b := range bids {
			pts = append(pts, model.Offer{Price: b.Price, Volume: b.Cumulative})
		}
		pts = append(pts, model.Offer{Price: decimal.Zero, Volume: decimal.Zero})
		slices.Reverse(pts)
		s.Bids.Points = pts
	}

	if len(asks) > 0 {
		pts := make([]model.Offer, 0, len(asks)+1)
		pts = append(pts, model.Offer{Price: asks[0].Price, Volume: decimal.Zero})
		for _, a := range asks {
			pts = append(pts, model.Offer{Price: a.Price, Volume: a.Cumulative})
		}
		s.Asks.Points = pts
	}

	for _, m := range midLineMultipliers {
		s.MidPrice.Points = append(s.MidPrice.Points, model.Offer{
			Price:  mid,
			Volume: lerp(decimal.Zero, vp.MaxVolume, m),
		})
	}
	return s
}
