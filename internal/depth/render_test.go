package depth

import (
	"testing"
	"time"

	"github.com/Yusufzhafir/go-orderbook/depthchart/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readyChart(t *testing.T) Chart {
	t.Helper()
	chart := NewAggregator(DefaultViewportConfig()).
		Aggregate(snapshot(weth, false, offers(100, 5, 99, 3), offers(101, 4, 102, 2)), ViewState{})
	require.Equal(t, StateReady, chart.State)
	return chart
}

func TestBuildSeries(t *testing.T) {
	chart := readyChart(t)
	s := chart.Series

	// bids ascend in price: 0, 99, 100, 100(anchor)
	require.Len(t, s.Bids.Points, 4)
	assert.True(t, s.Bids.Points[0].Price.IsZero())
	assert.True(t, s.Bids.Points[0].Volume.IsZero())
	assert.True(t, s.Bids.Points[1].Price.Equal(d("99")))
	assert.True(t, s.Bids.Points[1].Volume.Equal(d("8")))
	assert.True(t, s.Bids.Points[2].Volume.Equal(d("5")))
	assert.True(t, s.Bids.Points[3].Price.Equal(d("100")))
	assert.True(t, s.Bids.Points[3].Volume.IsZero())
	assert.Equal(t, CurveStepBefore, s.Bids.Curve)

	require.Len(t, s.Asks.Points, 3)
	assert.True(t, s.Asks.Points[0].Price.Equal(d("101")))
	assert.True(t, s.Asks.Points[0].Volume.IsZero())
	assert.True(t, s.Asks.Points[2].Volume.Equal(d("6")))
	assert.Equal(t, CurveStepAfter, s.Asks.Curve)

	// mid line: 1.2, 0.5 and 0 of the max visible volume (8)
	require.Len(t, s.MidPrice.Points, 3)
	for _, p := range s.MidPrice.Points {
		assert.True(t, p.Price.Equal(d("100.5")))
	}
	assert.True(t, s.MidPrice.Points[0].Volume.Equal(d("9.6")))
	assert.True(t, s.MidPrice.Points[1].Volume.Equal(d("4")))
	assert.True(t, s.MidPrice.Points[2].Volume.IsZero())
}

func TestBuildSeriesEmptySide(t *testing.T) {
	s := BuildSeries(nil, CollectCumulative(offers(1, 1)), d("1"), Viewport{MaxVolume: d("1")})
	assert.Empty(t, s.Bids.Points)
	assert.Len(t, s.Asks.Points, 2)
}

func TestFormatNumber(t *testing.T) {
	cases := []struct {
		in      string
		compact bool
		want    string
	}{
		{"1234567", true, "1.2M"},
		{"2500", true, "2.5K"},
		{"2000", true, "2K"},
		{"499.6", true, "500"},
		{"1850.75", false, "1851"},
		{"12.3456", false, "12.35"},
		{"0.000123456789", false, "0.000123"},
		{"-1500", true, "-1.5K"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatNumber(d(tc.in), tc.compact), tc.in)
	}
}

func TestNumTicksAndAxis(t *testing.T) {
	assert.Equal(t, 4, NumTicks(d("0.5")))
	assert.Equal(t, 6, NumTicks(d("10")))
	assert.Equal(t, 8, NumTicks(d("500")))

	axis := readyChart(t).Axis
	require.Len(t, axis.Ticks, axis.NumTicks)
	assert.False(t, axis.Compact)
	for i := 1; i < len(axis.Ticks); i++ {
		assert.True(t, axis.Ticks[i].Value.GreaterThan(axis.Ticks[i-1].Value))
	}
}

func TestTooltip(t *testing.T) {
	chart := readyChart(t)

	tip, ok := Tooltip(chart, Hover{Key: SeriesBids, Price: d("99"), Volume: d("8")}, false)
	require.True(t, ok)
	assert.Equal(t, "Price", tip.PriceLabel)
	assert.Equal(t, "99.00 USDC", tip.Price)
	assert.Equal(t, "bid", tip.VolumeLabel)
	assert.Equal(t, "8.000000000000000000 WETH", tip.Volume)

	tip, ok = Tooltip(chart, Hover{Key: SeriesMidPrice, Price: d("100.5"), Volume: d("4")}, false)
	require.True(t, ok)
	assert.Equal(t, "Mid price", tip.PriceLabel)
	assert.Empty(t, tip.Volume)

	hidden := []struct {
		name      string
		hover     Hover
		scrolling bool
	}{
		{"scrolling", Hover{Key: SeriesAsks, Price: d("101"), Volume: d("4")}, true},
		{"outside domain", Hover{Key: SeriesAsks, Price: d("500"), Volume: d("4")}, false},
		{"zero volume anchor", Hover{Key: SeriesAsks, Price: d("101"), Volume: d("0")}, false},
	}
	for _, tc := range hidden {
		_, ok := Tooltip(chart, tc.hover, tc.scrolling)
		assert.False(t, ok, tc.name)
	}

	_, ok = Tooltip(Chart{State: StateLoading}, Hover{Key: SeriesBids, Price: d("1"), Volume: d("1")}, false)
	assert.False(t, ok)
}

func TestTooltipUsesBaseTokenDecimals(t *testing.T) {
	wbtc := &model.Market{
		Symbol:        "WBTC-USDC",
		Base:          model.Token{Name: "WBTC", Decimals: 8},
		Quote:         model.Token{Name: "USDC", Decimals: 6},
		PriceDecimals: 1,
	}
	chart := NewAggregator(DefaultViewportConfig()).
		Aggregate(snapshot(wbtc, false, offers(100, 5, 99, 3), offers(101, 4, 102, 2)), ViewState{})
	require.Equal(t, StateReady, chart.State)

	tip, ok := Tooltip(chart, Hover{Key: SeriesAsks, Price: d("102"), Volume: d("6")}, false)
	require.True(t, ok)
	assert.Equal(t, "102.0 USDC", tip.Price)
	assert.Equal(t, "6.00000000 WBTC", tip.Volume)
}

func TestInteractionScrolling(t *testing.T) {
	i := NewInteraction()
	now := time.Unix(1_700_000_000, 0)
	assert.False(t, i.Scrolling(now))

	i.OnWheel(now)
	assert.True(t, i.Scrolling(now.Add(100*time.Millisecond)))
	assert.False(t, i.Scrolling(now.Add(DefaultScrollQuiet)))

	i.OnMouseOver()
	assert.True(t, i.Hovering())
	i.OnMouseOut()
	assert.False(t, i.Hovering())
}
