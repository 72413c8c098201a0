package coordination

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	eventsProcessedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cadence",
		Subsystem: "coordination",
		Name:      "events_processed_total",
		Help:      "Number of coordination events folded into trigger state.",
	}, []string{"event_type"})

	triggersCreatedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cadence",
		Subsystem: "coordination",
		Name:      "triggers_created_total",
		Help:      "Number of coordination triggers created.",
	}, []string{"rule_id"})

	triggersResolvedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cadence",
		Subsystem: "coordination",
		Name:      "triggers_resolved_total",
		Help:      "Number of coordination triggers resolved by domain events.",
	})

	duplicateSuppressedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cadence",
		Subsystem: "coordination",
		Name:      "duplicate_triggers_suppressed_total",
		Help:      "Number of trigger creations skipped because a live trigger already held the dedup key.",
	}, []string{"rule_id"})

	malformedEventsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cadence",
		Subsystem: "coordination",
		Name:      "malformed_events_total",
		Help:      "Number of events marked processed without effect due to malformed metadata.",
	}, []string{"event_type"})

	eventFailuresCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cadence",
		Subsystem: "coordination",
		Name:      "event_failures_total",
		Help:      "Number of events left unprocessed after a storage failure; retried on the next run.",
	}, []string{"event_type"})
)

func init() {
	prometheus.MustRegister(
		eventsProcessedCounter,
		triggersCreatedCounter,
		triggersResolvedCounter,
		duplicateSuppressedCounter,
		malformedEventsCounter,
		eventFailuresCounter,
	)
}
