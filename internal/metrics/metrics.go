// Package metrics exposes the bot's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NotificationsDelivered counts fan-out messages accepted by the gateway.
	NotificationsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickalert_notifications_delivered_total",
		Help: "Total number of fan-out notifications delivered.",
	})

	// NotificationsFailed counts per-recipient delivery failures.
	NotificationsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickalert_notifications_failed_total",
		Help: "Total number of fan-out notification delivery failures.",
	})

	// SyncRuns counts scraped-event sync attempts, by outcome.
	SyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tickalert_event_sync_runs_total",
		Help: "Total number of scraped-event sync runs.",
	}, []string{"outcome"})

	// EventsInserted counts events created by the deduplicating merge.
	EventsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickalert_events_inserted_total",
		Help: "Total number of events inserted from the scores provider.",
	})
)
