package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	SnapshotsIngestedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "depth_snapshots_ingested_total", Help: "Book snapshots ingested by market"}, []string{"market"})
	LevelUpdatesTotal      = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "depth_level_updates_total", Help: "Incremental level updates by market and side"}, []string{"market", "side"})
	IngestErrorsTotal      = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "depth_ingest_errors_total", Help: "Rejected snapshots and level updates"}, []string{"market"})
	ChartsTotal            = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "depth_charts_total", Help: "Charts computed by resulting state"}, []string{"state"})
	AggregateLatencyMs     = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "depth_aggregate_latency_ms", Help: "Chart aggregation latency", Buckets: prometheus.ExponentialBuckets(0.01, 2, 16)})
	WSClients              = prometheus.NewGauge(prometheus.GaugeOpts{Name: "ws_clients", Help: "Connected websocket clients"})
	WSPublishDropsTotal    = prometheus.NewCounter(prometheus.CounterOpts{Name: "ws_publish_drops_total", Help: "Frames dropped for slow clients or a full publish buffer"})
	WSEvictionsTotal       = prometheus.NewCounter(prometheus.CounterOpts{Name: "ws_evictions_total", Help: "Slow clients evicted"})
)

func Init(logger zerolog.Logger) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	toRegister := []prometheus.Collector{
		SnapshotsIngestedTotal, LevelUpdatesTotal, IngestErrorsTotal,
		ChartsTotal, AggregateLatencyMs,
		WSClients, WSPublishDropsTotal, WSEvictionsTotal,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range toRegister {
		_ = reg.Register(c)
	}
	logger.Info().Msg("prometheus metrics initialized")
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
