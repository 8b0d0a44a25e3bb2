package depth

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Hover is the datum nearest to the pointer as reported by the renderer.
type Hover struct {
	Key    string          `json:"key"`
	Price  decimal.Decimal `json:"price"`
	Volume decimal.Decimal `json:"volume"`
}

type TooltipContent struct {
	PriceLabel  string `json:"priceLabel"`
	Price       string `json:"price"`
	VolumeLabel string `json:"volumeLabel,omitempty"`
	Volume      string `json:"volume,omitempty"`
}

// Tooltip decides what to show for h. It returns false when nothing should
// be drawn.
func Tooltip(c Chart, h Hover, scrolling bool) (TooltipContent, bool) {
	if scrolling || c.State != StateReady || c.Viewport == nil || c.Market == nil {
		return TooltipContent{}, false
	}
	if !c.Viewport.Contains(h.Price) {
		return TooltipContent{}, false
	}

	mid := h.Key == SeriesMidPrice
	if mid && (len(c.CumulativeAsks) == 0 || len(c.CumulativeBids) == 0) {
		return TooltipContent{}, false
	}
	if !mid && (h.Price.IsZero() || h.Volume.IsZero()) {
		return TooltipContent{}, false
	}

	out := TooltipContent{
		PriceLabel: "Price",
		Price:      h.Price.StringFixed(c.Market.PriceDecimals) + " " + c.Market.Quote.Name,
	}
	if mid {
		out.PriceLabel = "Mid price"
		return out, true
	}
	out.VolumeLabel = strings.TrimSuffix(h.Key, "s")
	out.Volume = h.Volume.StringFixed(c.Market.Base.Decimals) + " " + c.Market.Base.Name
	return out, true
}
