// Package metrics exposes the service's prometheus collectors.
//
// Publish failures get their own counter because a failed publish after a
// committed write is silent downstream-consistency drift: operators alert on
// events_publish_failures_total separately from ordinary request errors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsPublished counts successfully published domain events by type.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_published_total",
		Help: "Domain events successfully published to the bus.",
	}, []string{"event_type"})

	// EventsPublishFailures counts publish attempts that failed. A non-zero
	// rate after successful commits means the store and the bus have drifted.
	EventsPublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_publish_failures_total",
		Help: "Domain event publish attempts that failed after the storage commit.",
	}, []string{"event_type"})

	// EventsConsumed counts messages acknowledged by the worker.
	EventsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_consumed_total",
		Help: "Messages successfully processed and acknowledged by the worker.",
	}, []string{"event_type"})

	// EventsFailed counts handler failures. Failed messages are redelivered
	// by the queue after the visibility timeout.
	EventsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_failed_total",
		Help: "Messages whose handler failed; left for queue redelivery.",
	}, []string{"event_type"})
)
