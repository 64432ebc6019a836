package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Diagnosis metrics
	DiagnosesCreated  prometheus.Counter
	DiagnosesRejected *prometheus.CounterVec
	RuleEvaluations   *prometheus.CounterVec

	// Realtime metrics
	RealtimeSubscribers   prometheus.Gauge
	NotificationsSent     prometheus.Counter
	NotificationsEvicted  prometheus.Counter
	NotificationPublishes *prometheus.CounterVec

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
	DatabaseLatency    *prometheus.HistogramVec

	// Broker metrics
	BrokerOperations *prometheus.CounterVec
}

// NewMetrics creates all application metrics and registers them with reg.
// A nil reg uses the default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		DiagnosesCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnoses_created_total",
			Help:      "Total number of persisted diagnoses",
		}),
		DiagnosesRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnoses_rejected_total",
			Help:      "Total number of rejected diagnosis submissions",
		}, []string{"code"}),
		RuleEvaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_evaluations_total",
			Help:      "Redundancy rule evaluations by outcome",
		}, []string{"outcome"}),

		RealtimeSubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realtime_subscribers",
			Help:      "Current number of realtime diagnosis subscriptions",
		}),
		NotificationsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_notifications_sent_total",
			Help:      "Total number of diagnosis notifications handed to subscribers",
		}),
		NotificationsEvicted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_subscribers_evicted_total",
			Help:      "Subscribers dropped because their buffer was full",
		}),
		NotificationPublishes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_publishes_total",
			Help:      "Diagnosis publishes by transport and status",
		}, []string{"transport", "status"}),

		DatabaseOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
		DatabaseLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "database_operation_duration_seconds",
			Help:      "Duration of database operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),

		BrokerOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broker_operations_total",
			Help:      "Total number of broker operations",
		}, []string{"operation", "status"}),
	}
}

// NewNop returns metrics registered against a throwaway registry
func NewNop() *Metrics {
	return NewMetrics("test", prometheus.NewRegistry())
}
