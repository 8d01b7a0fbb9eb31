package consumer

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultHandled      = "handled"
	resultHandlerError = "handler_error"
)

var (
	eventsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "healthtracker",
		Subsystem: "consumer",
		Name:      "events_total",
		Help:      "Decoded change events by topic, event type and handler result.",
	}, []string{"topic", "event_type", "result"})

	decodeErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "healthtracker",
		Subsystem: "consumer",
		Name:      "decode_errors_total",
		Help:      "Records dropped as undecodable, by topic and reason.",
	}, []string{"topic", "reason"})

	lagGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "healthtracker",
		Subsystem: "consumer",
		Name:      "last_event_timestamp_seconds",
		Help:      "Kafka timestamp of the newest handled event per topic.",
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(eventsCounter, decodeErrorCounter, lagGauge)
}

func recordResult(msg Message, result string) {
	eventsCounter.WithLabelValues(msg.Topic, msg.EventType, result).Inc()
	if result == resultHandled && !msg.Timestamp.IsZero() {
		lagGauge.WithLabelValues(msg.Topic).Set(float64(msg.Timestamp.Unix()))
	}
}

func recordDecodeError(topic string, err error) {
	decodeErrorCounter.WithLabelValues(topic, decodeReason(err)).Inc()
}

func decodeReason(err error) string {
	switch {
	case errors.Is(err, errShortRecord):
		return "short_record"
	case errors.Is(err, errMagicByte):
		return "magic_byte"
	case errors.Is(err, errMissingEventType):
		return "missing_event_type"
	case errors.Is(err, errInvalidJSON):
		return "invalid_json"
	default:
		return "other"
	}
}
