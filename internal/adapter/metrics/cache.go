package metrics

import "github.com/prometheus/client_golang/prometheus"

// DirectoryCacheMetrics tracks the Redis read-through cache in front of the
// broadcaster directory.
type DirectoryCacheMetrics struct {
	Hits          prometheus.Counter
	Misses        prometheus.Counter
	Invalidations prometheus.Counter
}

func NewDirectoryCacheMetrics(reg prometheus.Registerer) *DirectoryCacheMetrics {
	m := &DirectoryCacheMetrics{
		Hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "directory_cache",
			Name:      "hits_total",
			Help:      "Broadcaster lookups answered from Redis.",
		}),
		Misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "directory_cache",
			Name:      "misses_total",
			Help:      "Broadcaster lookups that fell through to the backing directory.",
		}),
		Invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "directory_cache",
			Name:      "invalidations_total",
			Help:      "Cache entries dropped after a directory write.",
		}),
	}

	reg.MustRegister(m.Hits, m.Misses, m.Invalidations)
	return m
}

func (m *DirectoryCacheMetrics) Hit() {
	if m != nil {
		m.Hits.Inc()
	}
}

func (m *DirectoryCacheMetrics) Miss() {
	if m != nil {
		m.Misses.Inc()
	}
}

func (m *DirectoryCacheMetrics) Invalidated() {
	if m != nil {
		m.Invalidations.Inc()
	}
}
