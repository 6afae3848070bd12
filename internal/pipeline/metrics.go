package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	processedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "analytics_service",
		Subsystem: "pipeline",
		Name:      "activities_processed_total",
		Help:      "Number of pipeline runs grouped by outcome.",
	}, []string{"status"})

	processDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "analytics_service",
		Subsystem: "pipeline",
		Name:      "process_duration_seconds",
		Help:      "Wall time of one activity pipeline run.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	})

	insightsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "analytics_service",
		Subsystem: "pipeline",
		Name:      "insights_generated_total",
		Help:      "Number of insights written across all pipeline runs.",
	})

	recordsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "analytics_service",
		Subsystem: "pipeline",
		Name:      "personal_records_updated_total",
		Help:      "Number of personal-record rows improved by pipeline runs.",
	})
)

func init() {
	prometheus.MustRegister(processedCounter, processDuration, insightsCounter, recordsCounter)
}

func recordProcessed(status string, elapsed time.Duration) {
	processedCounter.WithLabelValues(status).Inc()
	processDuration.Observe(elapsed.Seconds())
}

func recordInsightsGenerated(count int) {
	if count > 0 {
		insightsCounter.Add(float64(count))
	}
}

func recordRecordsUpdated(count int) {
	if count > 0 {
		recordsCounter.Add(float64(count))
	}
}
