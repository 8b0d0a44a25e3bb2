package depth

import (
	"github.com/shopspring/decimal"
)

var (
	thousand     = decimal.NewFromInt(1_000)
	million      = decimal.NewFromInt(1_000_000)
	compactAbove = decimal.NewFromInt(500)
)

type Tick struct {
	Value decimal.Decimal `json:"value"`
	Label string          `json:"label"`
}

type Axis struct {
	NumTicks int    `json:"numTicks"`
	Compact  bool   `json:"compact"`
	Ticks    []Tick `json:"ticks"`
}

// NumTicks picks how many price ticks fit under the chart. Wide domains use
// compact labels and can hold more of them; sub-unit domains carry long
// fractional labels and get fewer.
func NumTicks(zoomDomain decimal.Decimal) int {
	switch {
	case zoomDomain.GreaterThanOrEqual(compactAbove):
		return 8
	case zoomDomain.LessThan(decimal.NewFromInt(1)):
		return 4
	default:
		return 6
	}
}

// FormatNumber renders an axis label. Compact labels use K/M suffixes.
func FormatNumber(v decimal.Decimal, compact bool) string {
	abs := v.Abs()
	if compact {
		switch {
		case abs.GreaterThanOrEqual(million):
			return v.Div(million).Round(1).String() + "M"
		case abs.GreaterThanOrEqual(thousand):
			return v.Div(thousand).Round(1).String() + "K"
		}
		return v.Round(0).String()
	}
	switch {
	case abs.GreaterThanOrEqual(thousand):
		return v.Round(0).String()
	case abs.GreaterThanOrEqual(decimal.NewFromInt(1)):
		return v.Round(2).String()
	}
	return v.Round(6).String()
}

func NewAxis(vp Viewport) Axis {
	n := NumTicks(vp.ZoomDomain)
	compact := vp.ZoomDomain.GreaterThanOrEqual(compactAbove)
	axis := Axis{NumTicks: n, Compact: compact, Ticks: make([]Tick, 0, n)}
	steps := decimal.NewFromInt(int64(n - 1))
	for i := 0; i < n; i++ {
		v := lerp(vp.Domain[0], vp.Domain[1], decimal.NewFromInt(int64(i)).Div(steps))
		axis.Ticks = append(axis.Ticks, Tick{Value: v, Label: FormatNumber(v, compact)})
	}
	return axis
}
