package chart

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/depth"
	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/feed"
	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/metrics"
	"github.com/Yusufzhafir/go-orderbook/depthchart/pkg/model"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type ChartUseCase interface {
	Markets(ctx context.Context) []model.Market

	Chart(ctx context.Context, symbol string, view depth.ViewState) (depth.Chart, error)

	Zoom(ctx context.Context, symbol string, view depth.ViewState, deltaY float64) (depth.Chart, error)

	Pan(ctx context.Context, symbol string, view depth.ViewState, fraction decimal.Decimal) (depth.Chart, error)

	Tooltip(ctx context.Context, symbol string, view depth.ViewState, hover depth.Hover, scrolling bool) (depth.TooltipContent, bool, error)

	ApplySnapshot(ctx context.Context, symbol string, book model.MarketDepth) error

	UpdateLevel(ctx context.Context, symbol string, side model.Side, price, volume decimal.Decimal) error

	RegisterChartHandler(handler ChartHandler)
}

// ChartHandler receives the default-view chart after each ingest.
type ChartHandler func(symbol string, chart depth.Chart)

type chartUseCaseImpl struct {
	feed       feed.Feed
	ingester   feed.Ingester // nil when the feed is read-only
	aggregator *depth.Aggregator

	// feeds may notify from their own goroutines
	chartHandler atomic.Pointer[ChartHandler]
	logger       zerolog.Logger
}

type ChartUseCaseOpts struct {
	Feed       feed.Feed
	Aggregator *depth.Aggregator
	Logger     zerolog.Logger
}

func NewChartUseCase(opts ChartUseCaseOpts) ChartUseCase {
	uc := &chartUseCaseImpl{
		feed:       opts.Feed,
		aggregator: opts.Aggregator,
		logger:     opts.Logger.With().Str("component", "chart_usecase").Logger(),
	}
	if ing, ok := opts.Feed.(feed.Ingester); ok {
		uc.ingester = ing
	}
	if n, ok := opts.Feed.(feed.Notifier); ok {
		n.OnUpdate(uc.onFeedUpdate)
	}
	return uc
}

func (uc *chartUseCaseImpl) RegisterChartHandler(handler ChartHandler) {
	uc.chartHandler.Store(&handler)
}

func (uc *chartUseCaseImpl) Markets(ctx context.Context) []model.Market {
	return uc.feed.Markets()
}

func (uc *chartUseCaseImpl) snapshot(ctx context.Context, symbol string) (model.MarketSnapshot, error) {
	snap, err := uc.feed.Snapshot(ctx, symbol)
	if err != nil {
		return model.MarketSnapshot{}, fmt.Errorf("read %s snapshot: %w", symbol, err)
	}
	return snap, nil
}

func (uc *chartUseCaseImpl) observe(start time.Time, chart depth.Chart) depth.Chart {
	metrics.AggregateLatencyMs.Observe(float64(time.Since(start).Microseconds()) / 1000)
	metrics.ChartsTotal.WithLabelValues(chart.State.String()).Inc()
	return chart
}

func (uc *chartUseCaseImpl) Chart(ctx context.Context, symbol string, view depth.ViewState) (depth.Chart, error) {
	snap, err := uc.snapshot(ctx, symbol)
	if err != nil {
		return depth.Chart{}, err
	}
	start := time.Now()
	return uc.observe(start, uc.aggregator.Aggregate(snap, view)), nil
}

func (uc *chartUseCaseImpl) Zoom(ctx context.Context, symbol string, view depth.ViewState, deltaY float64) (depth.Chart, error) {
	snap, err := uc.snapshot(ctx, symbol)
	if err != nil {
		return depth.Chart{}, err
	}
	start := time.Now()
	return uc.observe(start, uc.aggregator.Zoom(snap, view, deltaY)), nil
}

func (uc *chartUseCaseImpl) Pan(ctx context.Context, symbol string, view depth.ViewState, fraction decimal.Decimal) (depth.Chart, error) {
	snap, err := uc.snapshot(ctx, symbol)
	if err != nil {
		return depth.Chart{}, err
	}
	start := time.Now()
	return uc.observe(start, uc.aggregator.Pan(snap, view, fraction)), nil
}

func (uc *chartUseCaseImpl) Tooltip(ctx context.Context, symbol string, view depth.ViewState, hover depth.Hover, scrolling bool) (depth.TooltipContent, bool, error) {
	chart, err := uc.Chart(ctx, symbol, view)
	if err != nil {
		return depth.TooltipContent{}, false, err
	}
	tip, ok := depth.Tooltip(chart, hover, scrolling)
	return tip, ok, nil
}

func (uc *chartUseCaseImpl) ApplySnapshot(ctx context.Context, symbol string, book model.MarketDepth) error {
	if uc.ingester == nil {
		return feed.ErrReadOnly
	}
	if err := uc.ingester.ApplySnapshot(ctx, symbol, book); err != nil {
		metrics.IngestErrorsTotal.WithLabelValues(symbol).Inc()
		return err
	}
	metrics.SnapshotsIngestedTotal.WithLabelValues(symbol).Inc()
	return nil
}

func (uc *chartUseCaseImpl) UpdateLevel(ctx context.Context, symbol string, side model.Side, price, volume decimal.Decimal) error {
	if uc.ingester == nil {
		return feed.ErrReadOnly
	}
	if err := uc.ingester.UpdateLevel(ctx, symbol, side, price, volume); err != nil {
		metrics.IngestErrorsTotal.WithLabelValues(symbol).Inc()
		return err
	}
	metrics.LevelUpdatesTotal.WithLabelValues(symbol, side.String()).Inc()
	return nil
}

// onFeedUpdate recomputes the default chart; each new chart supersedes the
// previous one, so nothing is queued.
func (uc *chartUseCaseImpl) onFeedUpdate(symbol string) {
	handler := uc.chartHandler.Load()
	if handler == nil || *handler == nil {
		return
	}
	chart, err := uc.Chart(context.Background(), symbol, depth.ViewState{})
	if err != nil {
		uc.logger.Error().Err(err).Str("market", symbol).Msg("recompute chart")
		return
	}
	(*handler)(symbol, chart)
}
