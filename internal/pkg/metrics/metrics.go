// Package metrics holds the Prometheus collectors for valuation cycles.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "portfolio"

var (
	CycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "cycle_duration_seconds",
		Help:      "Duration of a full valuation cycle.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	Cycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cycles_total",
		Help:      "Valuation cycles by outcome.",
	}, []string{"outcome"})

	TotalValueUSD = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "total_value_usd",
		Help:      "Portfolio total USD value as of the last cycle.",
	})

	AssetValueUSD = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "asset_value_usd",
		Help:      "Per-asset USD value as of the last cycle.",
	}, []string{"asset"})

	UnpricedAssets = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "unpriced_assets",
		Help:      "Number of held assets without a price in the last cycle.",
	})

	SnapshotBatchesWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshot_batches_written_total",
		Help:      "Snapshot batches appended to the store.",
	})

	MalformedSnapshotRows = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshot_malformed_rows_total",
		Help:      "Snapshot rows skipped because they could not be parsed.",
	})

	SourceFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "source_failures_total",
		Help:      "Balance or price source failures by source.",
	}, []string{"source"})
)

var registerOnce sync.Once

// MustRegisterMetrics registers every collector with the default registry.
// Safe to call more than once.
func MustRegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			CycleDuration,
			Cycles,
			TotalValueUSD,
			AssetValueUSD,
			UnpricedAssets,
			SnapshotBatchesWritten,
			MalformedSnapshotRows,
			SourceFailures,
		)
	})
}
