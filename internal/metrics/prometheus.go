package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder exports metrics through a dedicated registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	registrations       *prometheus.CounterVec
	accessDecisions     *prometheus.CounterVec
	accessCheckDuration *prometheus.HistogramVec
	cacheLookups        *prometheus.CounterVec
	cacheInvalidations  *prometheus.CounterVec
	cacheErrors         *prometheus.CounterVec
	rateLimitRejected   prometheus.Counter
	accessLogPublished  *prometheus.CounterVec
}

// NewPrometheus registers all collectors on a fresh registry, including
// the Go runtime and process collectors.
func NewPrometheus() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		registry: reg,
		registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pinguard_registrations_total",
			Help: "PIN registration mutations by operation",
		}, []string{"operation"}),
		accessDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pinguard_access_decisions_total",
			Help: "Access decisions by entry point and result",
		}, []string{"entry_point", "granted"}),
		accessCheckDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pinguard_access_check_duration_seconds",
			Help:    "Duration of access checks including cache lookups",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}, []string{"entry_point"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pinguard_cache_lookups_total",
			Help: "Result cache lookups by namespace and outcome",
		}, []string{"namespace", "result"}),
		cacheInvalidations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pinguard_cache_invalidations_total",
			Help: "Result cache namespace invalidations",
		}, []string{"namespace"}),
		cacheErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pinguard_cache_errors_total",
			Help: "Result cache backend errors (requests fall through to the store)",
		}, []string{"namespace"}),
		rateLimitRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "pinguard_rate_limit_rejected_total",
			Help: "Requests rejected by the per-IP rate limiter",
		}),
		accessLogPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pinguard_access_log_events_total",
			Help: "Access log stream publishes by status",
		}, []string{"status"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusRecorder) IncRegistrationCreated() {
	p.registrations.WithLabelValues("created").Inc()
}

func (p *PrometheusRecorder) IncRegistrationUpdated() {
	p.registrations.WithLabelValues("updated").Inc()
}

func (p *PrometheusRecorder) IncRegistrationRevoked() {
	p.registrations.WithLabelValues("revoked").Inc()
}

func (p *PrometheusRecorder) IncAccessDecision(entryPoint string, granted bool) {
	p.accessDecisions.WithLabelValues(entryPoint, strconv.FormatBool(granted)).Inc()
}

func (p *PrometheusRecorder) ObserveAccessCheckDuration(entryPoint string, duration time.Duration) {
	p.accessCheckDuration.WithLabelValues(entryPoint).Observe(duration.Seconds())
}

func (p *PrometheusRecorder) IncCacheHit(namespace string) {
	p.cacheLookups.WithLabelValues(namespace, "hit").Inc()
}

func (p *PrometheusRecorder) IncCacheMiss(namespace string) {
	p.cacheLookups.WithLabelValues(namespace, "miss").Inc()
}

func (p *PrometheusRecorder) IncCacheInvalidation(namespace string) {
	p.cacheInvalidations.WithLabelValues(namespace).Inc()
}

func (p *PrometheusRecorder) IncCacheError(namespace string) {
	p.cacheErrors.WithLabelValues(namespace).Inc()
}

func (p *PrometheusRecorder) IncRateLimitRejected() {
	p.rateLimitRejected.Inc()
}

func (p *PrometheusRecorder) IncAccessLogPublished(status string) {
	p.accessLogPublished.WithLabelValues(status).Inc()
}
