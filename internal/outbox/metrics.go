package outbox

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

// Outcome label values. Dispatcher outcomes are delivered and dead_lettered; the rest belong to the DLQ manager.
const (
	outcomeDelivered      = "delivered"
	outcomeDeadLettered   = "dead_lettered"
	outcomeRequeued       = "requeued"
	outcomeRetryScheduled = "retry_scheduled"
	outcomeQuarantined    = "quarantined"
)

var (
	eventsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "healthtracker",
		Subsystem: "outbox",
		Name:      "events_total",
		Help:      "Outbox events leaving the table, by topic, event type and outcome.",
	}, []string{"topic", "event_type", "outcome"})

	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "healthtracker",
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Time spent claiming, delivering and marking one non-empty outbox batch.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	dlqEntriesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "healthtracker",
		Subsystem: "dlq",
		Name:      "entries_total",
		Help:      "Dead-letter entries handled by the manager, by topic, event type and outcome.",
	}, []string{"topic", "event_type", "outcome"})

	dlqBacklogGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "healthtracker",
		Subsystem: "dlq",
		Name:      "entries",
		Help:      "Dead-letter entries currently stored, split into pending and quarantined.",
	}, []string{"state"})
)

func init() {
	prometheus.MustRegister(eventsCounter, batchDuration, dlqEntriesCounter, dlqBacklogGauge)
}

func recordEvents(messages []Message, outcome string) {
	for _, msg := range messages {
		eventsCounter.WithLabelValues(msg.Topic, msg.EventType, outcome).Inc()
	}
}

func recordDLQOutcome(entry dlqEntry, outcome string) {
	dlqEntriesCounter.WithLabelValues(entry.Topic, entry.EventType, outcome).Inc()
}

func observeBatch(start time.Time) {
	batchDuration.Observe(time.Since(start).Seconds())
}

// refreshDLQBacklog recounts the dead-letter table. Failures keep the previous values.
func refreshDLQBacklog(ctx context.Context, pool *pgxpool.Pool) {
	var pending, quarantined int
	err := pool.QueryRow(ctx, `SELECT
            COUNT(*) FILTER (WHERE quarantined_at IS NULL),
            COUNT(*) FILTER (WHERE quarantined_at IS NOT NULL)
        FROM outbox_dlq`).Scan(&pending, &quarantined)
	if err != nil {
		log.Debugf("dlq: backlog count failed: %v", err)
		return
	}
	dlqBacklogGauge.WithLabelValues("pending").Set(float64(pending))
	dlqBacklogGauge.WithLabelValues("quarantined").Set(float64(quarantined))
}
