package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// incident analytics service.
type Metrics struct {
	StoreQueries       *prometheus.CounterVec   // labels: operation={incidents,districts,causes,dates,weather}
	StoreQueryErrors   *prometheus.CounterVec   // labels: operation
	StoreQueryDuration *prometheus.HistogramVec // labels: operation
	IncidentsFetched   prometheus.Counter

	// Weather correlation metrics.
	WeatherFetches        *prometheus.CounterVec // labels: status={ok,sin_datos,sin_tag,error}
	CorrelationRequests   prometheus.Counter
	CorrelationValidation prometheus.Counter

	// Purge metrics.
	PurgesTriggered prometheus.Counter
	PurgeFailures   prometheus.Counter
	PurgeDuration   prometheus.Histogram
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.StoreQueries,
		m.StoreQueryErrors,
		m.StoreQueryDuration,
		m.IncidentsFetched,
		m.WeatherFetches,
		m.CorrelationRequests,
		m.CorrelationValidation,
		m.PurgesTriggered,
		m.PurgeFailures,
		m.PurgeDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		StoreQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_analytics",
			Name:      "store_queries_total",
			Help:      "Queries issued to the time-series store by operation.",
		}, []string{"operation"}),
		StoreQueryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_analytics",
			Name:      "store_query_errors_total",
			Help:      "Store queries that failed, by operation.",
		}, []string{"operation"}),
		StoreQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "incident_analytics",
			Name:      "store_query_duration_seconds",
			Help:      "Store query round-trip duration by operation.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
		IncidentsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_analytics",
			Name:      "incidents_fetched_total",
			Help:      "Total incident records returned by listing queries.",
		}),
		WeatherFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_analytics",
			Name:      "weather_fetches_total",
			Help:      "Weather window fetch outcomes per district group.",
		}, []string{"status"}),
		CorrelationRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_analytics",
			Name:      "correlation_requests_total",
			Help:      "Weather correlation requests processed.",
		}),
		CorrelationValidation: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_analytics",
			Name:      "correlation_validation_errors_total",
			Help:      "Correlation requests rejected for missing required keys.",
		}),
		PurgesTriggered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_analytics",
			Name:      "purges_triggered_total",
			Help:      "Background purge jobs accepted.",
		}),
		PurgeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_analytics",
			Name:      "purge_failures_total",
			Help:      "Background purge jobs that failed.",
		}),
		PurgeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "incident_analytics",
			Name:      "purge_duration_seconds",
			Help:      "Duration of a complete purge run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120},
		}),
	}
}
