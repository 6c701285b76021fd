// Package metrics defines the Prometheus instruments shared across the
// service. All collectors are registered on the default registry via
// promauto and exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Shared-store metrics
var (
	// StoreOpsTotal tracks store operations by command and status.
	StoreOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_operations_total",
			Help: "Total shared-store operations by command and status",
		},
		[]string{"operation", "status"},
	)

	// StoreOpDuration tracks store operation latency in seconds.
	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Shared-store operation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// StoreConnectionErrors tracks connection-level failures to the store.
	StoreConnectionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "store_connection_errors_total",
			Help: "Total shared-store connection errors",
		},
	)

	// CircuitBreakerState tracks current breaker state (0=closed, 1=half-open, 2=open).
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"component"},
	)

	// CircuitBreakerStateChanges tracks breaker state transitions.
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions by component and new state",
		},
		[]string{"component", "state"},
	)
)

// Presence and assignment metrics
var (
	AgentsOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "agents_online",
			Help: "Number of agents currently in the online index",
		},
	)

	AgentsReapedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agents_reaped_total",
			Help: "Total stale agents logged out by the reaper",
		},
	)

	AssignmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversation_assignments_total",
			Help: "Total conversation assignments by channel",
		},
		[]string{"channel"},
	)

	ReleasesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversation_releases_total",
			Help: "Total conversation releases",
		},
	)
)

// Sentiment metrics
var (
	SentimentSamplesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentiment_samples_total",
			Help: "Total sentiment samples recorded by region",
		},
		[]string{"region"},
	)
)

// Hub metrics
var (
	HubConnectedClients = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hub_connected_clients",
			Help: "Connected clients by stream",
		},
		[]string{"stream"},
	)

	HubEventsDeliveredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_events_delivered_total",
			Help: "Events fanned out to local clients by stream",
		},
		[]string{"stream"},
	)

	HubDroppedMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_dropped_messages_total",
			Help: "Unparseable pub/sub payloads dropped by stream",
		},
		[]string{"stream"},
	)

	HubSlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_slow_clients_evicted_total",
			Help: "Clients evicted because their send buffer was full",
		},
	)
)

// Event channel metrics
var (
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Events published to the shared store by channel",
		},
		[]string{"channel"},
	)

	EventsReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_received_total",
			Help: "Events received from the shared store by channel",
		},
		[]string{"channel"},
	)
)
