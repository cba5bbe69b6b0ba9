package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// RelayMetrics covers the stream.online pipeline from inbound notification
// to outbound Discord post.
type RelayMetrics struct {
	Notifications  *prometheus.CounterVec
	Lookups        *prometheus.CounterVec
	TokenRefreshes *prometheus.CounterVec
	Announcements  *prometheus.CounterVec
	DispatchTime   prometheus.Histogram
}

// NewRelayMetrics creates and registers relay metrics on the given registry.
func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	m := &RelayMetrics{
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "eventsub",
			Name:      "messages_total",
			Help:      "EventSub deliveries received, by message type and response status.",
		}, []string{"message_type", "status_code"}),
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "twitch",
			Name:      "channel_lookups_total",
			Help:      "Channel information requests, by upstream status code.",
		}, []string{"status_code"}),
		TokenRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "twitch",
			Name:      "token_refreshes_total",
			Help:      "App access token refreshes, by result.",
		}, []string{"result"}),
		Announcements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discord",
			Name:      "announcements_total",
			Help:      "Go-live announcements, by result.",
		}, []string{"result"}),
		DispatchTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "discord",
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent delivering an announcement to Discord.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}),
	}

	reg.MustRegister(m.Notifications, m.Lookups, m.TokenRefreshes, m.Announcements, m.DispatchTime)
	return m
}

// Methods are nil-safe so callers can run without a registry.

func (m *RelayMetrics) Message(messageType string, status int) {
	if m == nil {
		return
	}
	if messageType == "" {
		messageType = "unknown"
	}
	m.Notifications.WithLabelValues(messageType, strconv.Itoa(status)).Inc()
}

func (m *RelayMetrics) Lookup(status int) {
	if m != nil {
		m.Lookups.WithLabelValues(strconv.Itoa(status)).Inc()
	}
}

func (m *RelayMetrics) TokenRefresh(err error) {
	if m != nil {
		m.TokenRefreshes.WithLabelValues(result(err)).Inc()
	}
}

func (m *RelayMetrics) Announcement(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.Announcements.WithLabelValues(outcome).Inc()
	if seconds > 0 {
		m.DispatchTime.Observe(seconds)
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
