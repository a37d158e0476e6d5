package observability

import (
	"time"

	"github.com/boddenberg/storefront-payment-relay/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the relay.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	providerErrors  *prometheus.CounterVec
	pixAttempts     *prometheus.CounterVec
	tokenCache      *prometheus.CounterVec
	tokenRefreshes  prometheus.Counter
	requestsTotal   *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_request_duration_seconds",
				Help:    "Duration of relay operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		providerErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_provider_errors_total",
				Help: "Total errors returned by payment providers.",
			},
			[]string{"provider"},
		),
		pixAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_pix_attempts_total",
				Help: "PIX candidate format attempts by outcome.",
			},
			[]string{"format", "outcome"},
		),
		tokenCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_token_cache_total",
				Help: "Card provider token cache lookups.",
			},
			[]string{"result"},
		),
		tokenRefreshes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "relay_token_refreshes_total",
				Help: "Card provider token exchanges.",
			},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_requests_total",
				Help: "Total relay operations processed.",
			},
			[]string{"operation", "status"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrProviderError increments the provider error counter.
func (m *Metrics) IncrProviderError(provider string) {
	m.providerErrors.WithLabelValues(provider).Inc()
}

// IncrPixAttempt counts one candidate format attempt.
func (m *Metrics) IncrPixAttempt(format, outcome string) {
	m.pixAttempts.WithLabelValues(format, outcome).Inc()
}

// IncrTokenCacheHit increments the token cache hit counter.
func (m *Metrics) IncrTokenCacheHit() {
	m.tokenCache.WithLabelValues("hit").Inc()
}

// IncrTokenCacheMiss increments the token cache miss counter.
func (m *Metrics) IncrTokenCacheMiss() {
	m.tokenCache.WithLabelValues("miss").Inc()
}

// IncrTokenRefresh counts a token exchange.
func (m *Metrics) IncrTokenRefresh() {
	m.tokenRefreshes.Inc()
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(operation, status string) {
	m.requestsTotal.WithLabelValues(operation, status).Inc()
}

// Snapshot returns the relay counters for the GET /metrics/relay endpoint.
func (m *Metrics) Snapshot() *domain.RelayMetrics {
	hits := getCounterValue(m.tokenCache.WithLabelValues("hit"))
	misses := getCounterValue(m.tokenCache.WithLabelValues("miss"))

	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &domain.RelayMetrics{
		PixAttempts:       collectByLabel(m.pixAttempts, "format"),
		ProviderErrors:    collectByLabel(m.providerErrors, "provider"),
		TokenCacheHitRate: hitRate,
		TokenRefreshes:    getCounterValue(m.tokenRefreshes),
	}
}

// getCounterValue extracts the current float64 value from a counter.
func getCounterValue(counter prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := counter.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// collectByLabel sums a CounterVec grouped by one of its labels.
func collectByLabel(cv *prometheus.CounterVec, label string) map[string]float64 {
	out := make(map[string]float64)
	ch := make(chan prometheus.Metric)

	go func() {
		cv.Collect(ch)
		close(ch)
	}()

	for metric := range ch {
		m := &dto.Metric{}
		if err := metric.Write(m); err != nil || m.Counter == nil {
			continue
		}
		for _, lp := range m.GetLabel() {
			if lp.GetName() == label {
				out[lp.GetValue()] += m.Counter.GetValue()
			}
		}
	}
	return out
}
