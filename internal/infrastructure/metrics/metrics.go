package metrics

import (
	"net/http"
	"time"

	"archie-shopify-login/internal/application"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder exports handshake metrics to Prometheus
type Recorder struct {
	registry  *prometheus.Registry
	decisions *prometheus.CounterVec
	beginAuth *prometheus.HistogramVec
}

var _ application.DecisionObserver = (*Recorder)(nil)

// NewRecorder registers the login metrics on a fresh registry
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Recorder{
		registry: registry,
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopify_login",
			Name:      "decisions_total",
			Help:      "Terminal handshake states reached, by state.",
		}, []string{"state"}),
		beginAuth: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shopify_login",
			Name:      "begin_auth_duration_seconds",
			Help:      "Time spent asking the provider for an authorization URL.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
	}
	registry.MustRegister(r.decisions, r.beginAuth)
	return r
}

// ObserveDecision counts a terminal state
func (r *Recorder) ObserveDecision(state application.State) {
	r.decisions.WithLabelValues(string(state)).Inc()
}

// ObserveBeginAuth records a provider call
func (r *Recorder) ObserveBeginAuth(elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.beginAuth.WithLabelValues(result).Observe(elapsed.Seconds())
}

// Handler serves the exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
