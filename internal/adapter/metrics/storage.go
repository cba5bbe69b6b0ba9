package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RedisMetrics covers every command sent through the shared Redis client.
type RedisMetrics struct {
	OpsTotal          *prometheus.CounterVec
	OpDuration        *prometheus.HistogramVec
	ConnectionErrors  prometheus.Counter
	BreakerTransition *prometheus.CounterVec
}

func NewRedisMetrics(reg prometheus.Registerer) *RedisMetrics {
	m := &RedisMetrics{
		OpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "operations_total",
			Help:      "Redis commands by name and status.",
		}, []string{"operation", "status"}),
		OpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "operation_duration_seconds",
			Help:      "Redis command latency.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5},
		}, []string{"operation"}),
		ConnectionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "connection_errors_total",
			Help:      "Failed attempts to dial Redis.",
		}),
		BreakerTransition: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "circuit_breaker_transitions_total",
			Help:      "Redis circuit breaker state changes by target state.",
		}, []string{"state"}),
	}

	reg.MustRegister(m.OpsTotal, m.OpDuration, m.ConnectionErrors, m.BreakerTransition)
	return m
}

func (m *RedisMetrics) Command(operation string, failed bool, seconds float64) {
	if m == nil {
		return
	}
	status := "success"
	if failed {
		status = "error"
	}
	m.OpsTotal.WithLabelValues(operation, status).Inc()
	m.OpDuration.WithLabelValues(operation).Observe(seconds)
}

func (m *RedisMetrics) DialFailed() {
	if m != nil {
		m.ConnectionErrors.Inc()
	}
}

func (m *RedisMetrics) BreakerStateChanged(state string) {
	if m != nil {
		m.BreakerTransition.WithLabelValues(state).Inc()
	}
}

// DatabaseMetrics is fed by the pgx query tracer.
type DatabaseMetrics struct {
	QueryDuration *prometheus.HistogramVec
	ErrorsTotal   *prometheus.CounterVec
}

func NewDatabaseMetrics(reg prometheus.Registerer) *DatabaseMetrics {
	m := &DatabaseMetrics{
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Postgres query latency by statement kind.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query"}),
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "errors_total",
			Help:      "Failed Postgres queries by statement kind.",
		}, []string{"query"}),
	}

	reg.MustRegister(m.QueryDuration, m.ErrorsTotal)
	return m
}

func (m *DatabaseMetrics) Query(name string, err error, seconds float64) {
	if m == nil {
		return
	}
	m.QueryDuration.WithLabelValues(name).Observe(seconds)
	if err != nil {
		m.ErrorsTotal.WithLabelValues(name).Inc()
	}
}
