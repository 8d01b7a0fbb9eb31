// Package observability holds the Prometheus collectors shared across binaries.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	lastWriteGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "healthtracker",
		Subsystem: "persistence",
		Name:      "last_write_timestamp_seconds",
		Help:      "Unix timestamp of the most recent write persisted to Postgres, per entity.",
	}, []string{"entity"})
	progressDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "healthtracker",
		Subsystem: "progress",
		Name:      "evaluation_duration_seconds",
		Help:      "Time taken to evaluate progress for every active goal of a user.",
		Buckets:   prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(lastWriteGauge, progressDuration)
}

// RecordWrite updates the persistence watermark for entity.
func RecordWrite(entity string, ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastWriteGauge.WithLabelValues(entity).Set(float64(ts.Unix()))
}

// ObserveProgress records how long a progress evaluation took.
func ObserveProgress(d time.Duration) {
	progressDuration.Observe(d.Seconds())
}
