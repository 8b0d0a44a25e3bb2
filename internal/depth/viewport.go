package depth

import (
	"fmt"

	"github.com/Yusufzhafir/go-orderbook/depthchart/pkg/model"
	"github.com/shopspring/decimal"
)

// Viewport is the visible price/volume window.
type Viewport struct {
	Domain     [2]decimal.Decimal `json:"domain"`
	Range      [2]decimal.Decimal `json:"range"`
	ZoomDomain decimal.Decimal    `json:"zoomDomain"` // half-width of Domain
	Offset     decimal.Decimal    `json:"offset"`     // Domain centre minus mid-price
	MaxVolume  decimal.Decimal    `json:"maxVolume"`  // unpadded top of Range
	MinZoom    decimal.Decimal    `json:"minZoom"`
	MaxZoom    decimal.Decimal    `json:"maxZoom"`
}

// ViewState is the part of a viewport the client keeps between requests. A
// zero ZoomDomain selects the default zoom (whole book visible).
type ViewState struct {
	ZoomDomain decimal.Decimal `json:"zoomDomain"`
	Offset     decimal.Decimal `json:"offset"`
}

func (v Viewport) State() ViewState {
	return ViewState{ZoomDomain: v.ZoomDomain, Offset: v.Offset}
}

func (v Viewport) Contains(price decimal.Decimal) bool {
	return price.GreaterThanOrEqual(v.Domain[0]) && price.LessThanOrEqual(v.Domain[1])
}

type ViewportConfig struct {
	DomainPadding    decimal.Decimal // fraction added beyond the worst visible price
	RangePadding     decimal.Decimal // fraction added above the max cumulative volume
	MinZoomRatio     decimal.Decimal // smallest zoom as a fraction of the mid-price
	WheelSensitivity decimal.Decimal // zoom factor change per wheel delta unit
	MaxZoomStep      decimal.Decimal // bound on a single wheel factor's distance from 1
}

func DefaultViewportConfig() ViewportConfig {
	return ViewportConfig{
		DomainPadding:    decimal.RequireFromString("0.05"),
		RangePadding:     decimal.RequireFromString("0.1"),
		MinZoomRatio:     decimal.RequireFromString("0.0005"),
		WheelSensitivity: decimal.RequireFromString("0.001"),
		MaxZoomStep:      decimal.RequireFromString("0.5"),
	}
}

func (c ViewportConfig) Validate() error {
	if c.DomainPadding.IsNegative() || c.RangePadding.IsNegative() {
		return fmt.Errorf("viewport padding must be >= 0")
	}
	if c.MinZoomRatio.IsNegative() {
		return fmt.Errorf("min zoom ratio must be >= 0")
	}
	if !c.WheelSensitivity.IsPositive() {
		return fmt.Errorf("wheel sensitivity must be > 0")
	}
	if !c.MaxZoomStep.IsPositive() || c.MaxZoomStep.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("max zoom step must be in (0, 1)")
	}
	return nil
}

// zoomBounds returns the smallest and largest half-width the domain may take
// around mid. Both sides must be non-empty.
func (c ViewportConfig) zoomBounds(bids, asks []model.CumulativeOffer, mid decimal.Decimal) (lo, hi decimal.Decimal) {
	worstBid := bids[len(bids)-1].Price
	worstAsk := asks[len(asks)-1].Price
	halfSpread := asks[0].Price.Sub(bids[0].Price).Mul(half).Abs()

	hi = decimal.Max(mid.Sub(worstBid), worstAsk.Sub(mid)).Mul(decimal.NewFromInt(1).Add(c.DomainPadding))
	lo = decimal.Max(mid.Mul(c.MinZoomRatio), halfSpread)
	if lo.GreaterThan(hi) {
		hi = lo
	}
	if !hi.IsPositive() {
		// single price on both sides, crossed at mid
		hi = decimal.Max(mid.Mul(c.DomainPadding), decimal.New(1, -8))
		lo = decimal.Min(lo, hi)
	}
	return lo, hi
}

// DeriveViewport maps cumulative series to the visible window for view. Both
// sides must be non-empty.
func (c ViewportConfig) DeriveViewport(bids, asks []model.CumulativeOffer, mid decimal.Decimal, view ViewState) Viewport {
	lo, hi := c.zoomBounds(bids, asks, mid)

	zoom := hi
	if view.ZoomDomain.IsPositive() {
		zoom = clamp(view.ZoomDomain, lo, hi)
	}
	offset := clamp(view.Offset, bids[len(bids)-1].Price.Sub(mid), asks[len(asks)-1].Price.Sub(mid))
	centre := mid.Add(offset)

	vp := Viewport{
		Domain:     [2]decimal.Decimal{decimal.Max(centre.Sub(zoom), decimal.Zero), centre.Add(zoom)},
		ZoomDomain: zoom,
		Offset:     offset,
		MinZoom:    lo,
		MaxZoom:    hi,
	}

	maxVolume := decimal.Zero
	for _, side := range [][]model.CumulativeOffer{bids, asks} {
		for _, o := range side {
			// cumulative grows outward, so the last visible offer is the tallest
			if vp.Contains(o.Price) {
				maxVolume = decimal.Max(maxVolume, o.Cumulative)
			}
		}
	}
	if maxVolume.IsZero() {
		// panned past every offer: keep the scale of the best levels
		maxVolume = decimal.Max(bids[0].Cumulative, asks[0].Cumulative)
	}
	vp.MaxVolume = maxVolume
	vp.Range = [2]decimal.Decimal{decimal.Zero, lerp(decimal.Zero, maxVolume, decimal.NewFromInt(1).Add(c.RangePadding))}
	return vp
}

// WheelFactor converts a wheel delta into a zoom multiplier. Positive deltas
// (scrolling down) zoom out.
func (c ViewportConfig) WheelFactor(deltaY float64) decimal.Decimal {
	one := decimal.NewFromInt(1)
	f := one.Add(decimal.NewFromFloat(deltaY).Mul(c.WheelSensitivity))
	return clamp(f, one.Sub(c.MaxZoomStep), one.Add(c.MaxZoomStep))
}

// Zoom scales the domain half-width by factor. Clamping to the zoom bounds
// happens when the viewport is derived.
func Zoom(v Viewport, factor decimal.Decimal) ViewState {
	s := v.State()
	if factor.IsPositive() {
		s.ZoomDomain = clamp(v.ZoomDomain.Mul(factor), v.MinZoom, v.MaxZoom)
	}
	return s
}

// Pan moves the domain centre by fraction of the domain width; positive
// fractions move towards higher prices.
func Pan(v Viewport, fraction decimal.Decimal) ViewState {
	s := v.State()
	width := v.ZoomDomain.Mul(two)
	s.Offset = v.Offset.Add(width.Mul(fraction))
	return s
}
