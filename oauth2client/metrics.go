package oauth2client

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultSuccess        = "success"
	resultTransportError = "transport_error"
	resultProtocolError  = "protocol_error"
)

// Metrics holds Prometheus collectors for token acquisition. A nil *Metrics
// records nothing.
type Metrics struct {
	requests  *prometheus.CounterVec
	cacheHits prometheus.Counter
	duration  prometheus.Histogram
}

// NewMetrics creates and registers the token collectors on reg
// (prometheus.DefaultRegisterer when nil). Several providers may share one
// Metrics value.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_requests_total",
			Help:      "Token endpoint requests by result.",
		}, []string{"result"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_cache_hits_total",
			Help:      "Access token lookups served without a token request.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "token_request_duration_seconds",
			Help:      "Latency of token endpoint requests.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	for _, c := range []prometheus.Collector{m.requests, m.cacheHits, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) cacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Metrics) observe(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(result).Inc()
	m.duration.Observe(elapsed.Seconds())
}
