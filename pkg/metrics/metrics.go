package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ItinerariesGenerated counts itinerary generation attempts by result (success|failure).
	ItinerariesGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wayfarer_itineraries_generated_total",
			Help: "Total number of itinerary generation attempts",
		},
		[]string{"result"},
	)

	// GenerationDuration measures end-to-end itinerary generation latency,
	// including provider round trips and persistence.
	GenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wayfarer_generation_duration_seconds",
			Help:    "Itinerary generation latency",
			Buckets: prometheus.DefBuckets,
		},
	)

	// RemindersScheduled counts reminder notifications created by the planner.
	RemindersScheduled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wayfarer_reminders_scheduled_total",
			Help: "Total number of reminder notifications scheduled",
		},
	)

	// NotificationsDispatched counts dispatcher outcomes (sent|failed|failed_config).
	NotificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wayfarer_notifications_dispatched_total",
			Help: "Total number of dispatched reminder notifications",
		},
		[]string{"result"},
	)

	// DispatcherTicks counts dispatcher tick executions (run|skipped).
	DispatcherTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wayfarer_dispatcher_ticks_total",
			Help: "Total number of dispatcher ticks",
		},
		[]string{"result"},
	)

	// DispatcherTickDuration measures the wall time of a single dispatcher tick.
	DispatcherTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wayfarer_dispatcher_tick_seconds",
			Help:    "Dispatcher tick duration",
			Buckets: prometheus.DefBuckets,
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wayfarer_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
