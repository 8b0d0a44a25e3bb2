package main

import (
	"encoding/json"
	"os"

	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/depth"
	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/engine"
	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/log"
	"github.com/Yusufzhafir/go-orderbook/depthchart/pkg/model"
	"github.com/shopspring/decimal"
)

func main() {
	logger := log.New(os.Stdout, "debug", true)

	book := engine.NewBookEngine()
	book.Initialize()

	err := book.ApplySnapshot(model.MarketDepth{
		Bids: []model.Offer{model.NewOffer(100, 5), model.NewOffer(99, 3)},
		Asks: []model.Offer{model.NewOffer(101, 4), model.NewOffer(102, 2)},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("apply snapshot")
	}
	logger.Info().Interface("top", book.GetTopOfBook()).Msg("top of book")

	market, err := model.ParseMarket("WETH-USDC", map[string]int32{"WETH": 18, "USDC": 6}, 18, 2)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse market")
	}
	snap := model.MarketSnapshot{Market: &market, Depth: book.GetMarketDepth(0)}
	agg := depth.NewAggregator(depth.DefaultViewportConfig())

	//should be ready with mid 100.5
	chart := agg.Aggregate(snap, depth.ViewState{})
	dump(logger, "default view", chart)

	//zoomed in halfway
	zoomed := agg.Zoom(snap, chart.Viewport.State(), -500)
	dump(logger, "zoomed", zoomed)

	//panned a quarter of the domain towards the asks
	panned := agg.Pan(snap, zoomed.Viewport.State(), decimal.RequireFromString("0.25"))
	dump(logger, "panned", panned)

	//removing the only asks leaves no mid-price
	_ = book.UpdateLevel(model.ASK, decimal.NewFromInt(101), decimal.Zero)
	_ = book.UpdateLevel(model.ASK, decimal.NewFromInt(102), decimal.Zero)
	snap.Depth = book.GetMarketDepth(0)
	dump(logger, "bids only", agg.Aggregate(snap, depth.ViewState{}))

	tip, ok := depth.Tooltip(chart, depth.Hover{Key: depth.SeriesBids, Price: decimal.NewFromInt(99), Volume: decimal.NewFromInt(8)}, false)
	logger.Info().Bool("visible", ok).Interface("tooltip", tip).Msg("hover on bids")
}

func dump(logger log.Logger, label string, chart depth.Chart) {
	ev := logger.Info().Str("state", chart.State.String())
	if chart.Viewport != nil {
		vp, _ := json.Marshal(chart.Viewport)
		ev = ev.RawJSON("viewport", vp)
	}
	if chart.MidPrice.Valid {
		ev = ev.Str("mid", chart.MidPrice.Decimal.String())
	}
	ev.Int("bids", len(chart.CumulativeBids)).Int("asks", len(chart.CumulativeAsks)).Msg(label)
}
