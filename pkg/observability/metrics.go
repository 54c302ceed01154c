package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors the chat pipeline reports into
type Metrics struct {
	ProviderRequests *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec
	SpeechRequests   *prometheus.CounterVec
	MessagesTotal    *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roleplay",
			Name:      "provider_requests_total",
			Help:      "AI provider calls by provider kind, variant and outcome code.",
		}, []string{"kind", "variant", "outcome"}),
		ProviderLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "roleplay",
			Name:      "provider_latency_seconds",
			Help:      "AI provider call latency.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 8),
		}, []string{"kind", "variant"}),
		SpeechRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roleplay",
			Name:      "speech_requests_total",
			Help:      "Speech requests by path (cache, remote, fallback) and outcome.",
		}, []string{"path", "outcome"}),
		MessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roleplay",
			Name:      "messages_total",
			Help:      "Messages appended to conversations by sender.",
		}, []string{"sender"}),
	}

	if reg != nil {
		reg.MustRegister(m.ProviderRequests, m.ProviderLatency, m.SpeechRequests, m.MessagesTotal)
	}
	return m
}

// ObserveProvider records one provider call. Safe on a nil receiver.
func (m *Metrics) ObserveProvider(kind, variant, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ProviderRequests.WithLabelValues(kind, variant, outcome).Inc()
	m.ProviderLatency.WithLabelValues(kind, variant).Observe(elapsed.Seconds())
}

// ObserveSpeech records one speech attempt. Safe on a nil receiver.
func (m *Metrics) ObserveSpeech(path, outcome string) {
	if m == nil {
		return
	}
	m.SpeechRequests.WithLabelValues(path, outcome).Inc()
}

// ObserveMessage counts an appended message. Safe on a nil receiver.
func (m *Metrics) ObserveMessage(sender string) {
	if m == nil {
		return
	}
	m.MessagesTotal.WithLabelValues(sender).Inc()
}
