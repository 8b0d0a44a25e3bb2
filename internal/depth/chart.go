package depth

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Yusufzhafir/go-orderbook/depthchart/pkg/model"
	"github.com/shopspring/decimal"
)

// State tells the renderer which output to draw.
type State uint8

const (
	StateLoading     State = iota // no market selected, or the feed is still loading
	StateEmptyMarket              // market resolved, no offers on either side
	StateUnavailable              // one side empty, no mid-price
	StateReady
)

var stateNames = map[State]string{
	StateLoading:     "loading",
	StateEmptyMarket: "empty_market",
	StateUnavailable: "unavailable",
	StateReady:       "ready",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Chart is everything the rendering surface needs for one snapshot.
type Chart struct {
	State          State                   `json:"state"`
	Market         *model.Market           `json:"market,omitempty"`
	CumulativeBids []model.CumulativeOffer `json:"cumulativeBids"`
	CumulativeAsks []model.CumulativeOffer `json:"cumulativeAsks"`
	MidPrice       decimal.NullDecimal     `json:"midPrice"`
	Viewport       *Viewport               `json:"viewport,omitempty"`
	Series         *Series                 `json:"series,omitempty"`
	Axis           *Axis                   `json:"axis,omitempty"`
	Timestamp      int64                   `json:"timestamp"`
}

func (c Chart) LowestAsk() (model.CumulativeOffer, bool) {
	if len(c.CumulativeAsks) == 0 {
		return model.CumulativeOffer{}, false
	}
	return c.CumulativeAsks[0], true
}

func (c Chart) HighestBid() (model.CumulativeOffer, bool) {
	if len(c.CumulativeBids) == 0 {
		return model.CumulativeOffer{}, false
	}
	return c.CumulativeBids[0], true
}

type Aggregator struct {
	cfg ViewportConfig
}

func NewAggregator(cfg ViewportConfig) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// Aggregate derives the chart for snap under view. It is a pure function of
// its inputs.
func (a *Aggregator) Aggregate(snap model.MarketSnapshot, view ViewState) Chart {
	chart := Chart{
		Market:         snap.Market,
		CumulativeBids: []model.CumulativeOffer{},
		CumulativeAsks: []model.CumulativeOffer{},
		Timestamp:      snap.Depth.Timestamp,
	}
	if snap.Loading || !snap.MarketSelected() {
		chart.State = StateLoading
		return chart
	}

	chart.CumulativeBids = CollectCumulative(snap.Depth.Bids)
	chart.CumulativeAsks = CollectCumulative(snap.Depth.Asks)
	if len(chart.CumulativeBids) == 0 && len(chart.CumulativeAsks) == 0 {
		chart.State = StateEmptyMarket
		return chart
	}

	mid, err := MidPrice(snap.Depth.Bids, snap.Depth.Asks)
	if errors.Is(err, ErrMidPriceUnavailable) {
		chart.State = StateUnavailable
		return chart
	}

	vp := a.cfg.DeriveViewport(chart.CumulativeBids, chart.CumulativeAsks, mid, view)
	series := BuildSeries(chart.CumulativeBids, chart.CumulativeAsks, mid, vp)
	axis := NewAxis(vp)

	chart.State = StateReady
	chart.MidPrice = decimal.NewNullDecimal(mid)
	chart.Viewport = &vp
	chart.Series = &series
	chart.Axis = &axis
	return chart
}

// Zoom re-derives chart under view scaled by the wheel delta.
func (a *Aggregator) Zoom(snap model.MarketSnapshot, view ViewState, deltaY float64) Chart {
	chart := a.Aggregate(snap, view)
	if chart.State != StateReady {
		return chart
	}
	return a.Aggregate(snap, Zoom(*chart.Viewport, a.cfg.WheelFactor(deltaY)))
}

func (a *Aggregator) Pan(snap model.MarketSnapshot, view ViewState, fraction decimal.Decimal) Chart {
	chart := a.Aggregate(snap, view)
	if chart.State != StateReady {
		return chart
	}
	return a.Aggregate(snap, Pan(*chart.Viewport, fraction))
}
