package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/philiph/caddy-avatar-proxy/internal/core/ports"
)

// PrometheusMetricsRecorder records metrics using Prometheus.
type PrometheusMetricsRecorder struct {
	resolutionsTotal        *prometheus.CounterVec
	imageFetchesTotal       *prometheus.CounterVec
	placeholdersServedTotal prometheus.Counter
	cacheLookupsTotal       *prometheus.CounterVec
	gateUnlockAttemptsTotal *prometheus.CounterVec
}

// NewPrometheusMetricsRecorder creates a new Prometheus metrics recorder
// using the default Prometheus registry.
func NewPrometheusMetricsRecorder() *PrometheusMetricsRecorder {
	return NewPrometheusMetricsRecorderWithRegistry(prometheus.DefaultRegisterer)
}

// NewPrometheusMetricsRecorderWithRegistry creates a new Prometheus metrics recorder
// with a custom registry. Use this for testing.
func NewPrometheusMetricsRecorderWithRegistry(reg prometheus.Registerer) *PrometheusMetricsRecorder {
	resolutionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "avatar_proxy_resolutions_total",
		Help: "Total avatar resolutions by matching rule",
	}, []string{"rule", "result"})

	imageFetchesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "avatar_proxy_image_fetches_total",
		Help: "Total avatar image fetches",
	}, []string{"result"})

	placeholdersServedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "avatar_proxy_placeholders_served_total",
		Help: "Total placeholder images served",
	})

	cacheLookupsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "avatar_proxy_cache_lookups_total",
		Help: "Total resolution cache lookups",
	}, []string{"result"})

	gateUnlockAttemptsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "avatar_proxy_gate_unlock_attempts_total",
		Help: "Total gate unlock attempts",
	}, []string{"result"})

	reg.MustRegister(
		resolutionsTotal,
		imageFetchesTotal,
		placeholdersServedTotal,
		cacheLookupsTotal,
		gateUnlockAttemptsTotal,
	)

	return &PrometheusMetricsRecorder{
		resolutionsTotal:        resolutionsTotal,
		imageFetchesTotal:       imageFetchesTotal,
		placeholdersServedTotal: placeholdersServedTotal,
		cacheLookupsTotal:       cacheLookupsTotal,
		gateUnlockAttemptsTotal: gateUnlockAttemptsTotal,
	}
}

// RecordResolution records a resolution attempt. Misses use rule "none".
func (p *PrometheusMetricsRecorder) RecordResolution(rule string, found bool) {
	result := "miss"
	if found {
		result = "hit"
	}
	if rule == "" {
		rule = "none"
	}
	p.resolutionsTotal.WithLabelValues(rule, result).Inc()
}

// RecordImageFetch records an image fetch.
func (p *PrometheusMetricsRecorder) RecordImageFetch(success bool) {
	p.imageFetchesTotal.WithLabelValues(successLabel(success)).Inc()
}

// RecordPlaceholderServed records a placeholder response.
func (p *PrometheusMetricsRecorder) RecordPlaceholderServed() {
	p.placeholdersServedTotal.Inc()
}

// RecordCacheLookup records a resolution cache lookup.
func (p *PrometheusMetricsRecorder) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.cacheLookupsTotal.WithLabelValues(result).Inc()
}

// RecordGateUnlock records a gate unlock attempt.
func (p *PrometheusMetricsRecorder) RecordGateUnlock(success bool) {
	p.gateUnlockAttemptsTotal.WithLabelValues(successLabel(success)).Inc()
}

func successLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// Ensure PrometheusMetricsRecorder implements ports.MetricsRecorder
var _ ports.MetricsRecorder = (*PrometheusMetricsRecorder)(nil)
