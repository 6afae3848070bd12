// Package observability holds service-level watermark metrics.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	activityProcessedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "analytics_service",
		Subsystem: "pipeline",
		Name:      "last_activity_processed_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity run through the pipeline.",
	})
	rollupGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "analytics_service",
		Subsystem: "pipeline",
		Name:      "last_rollup_recomputed_timestamp_seconds",
		Help:      "Unix timestamp of the most recent daily rollup recompute.",
	})
)

func init() {
	prometheus.MustRegister(activityProcessedGauge, rollupGauge)
}

// RecordActivityProcessed updates the processing watermark gauge.
func RecordActivityProcessed(ts time.Time) {
	if ts.IsZero() {
		return
	}
	activityProcessedGauge.Set(float64(ts.Unix()))
}

// RecordRollupRecomputed updates the rollup watermark gauge.
func RecordRollupRecomputed(ts time.Time) {
	if ts.IsZero() {
		return
	}
	rollupGauge.Set(float64(ts.Unix()))
}
