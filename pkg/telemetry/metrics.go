package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for tree builds and headless resolution.
type Metrics struct {
	config MetricsConfig

	// Tree build metrics
	treeBuilds        *prometheus.CounterVec
	treeBuildDuration *prometheus.HistogramVec
	treeNodes         *prometheus.HistogramVec

	// Element resolution metrics
	elementsResolved   *prometheus.CounterVec
	elementDuration    *prometheus.HistogramVec
	payloadsDispatched *prometheus.CounterVec

	// Normalizer metrics
	normalizerCalls    *prometheus.CounterVec
	normalizerDuration *prometheus.HistogramVec
	normalizerErrors   *prometheus.CounterVec

	// Configuration metrics
	schemaWarnings *prometheus.CounterVec
	configReloads  *prometheus.CounterVec
	areasAvailable *prometheus.GaugeVec

	// Error metrics
	errorsByClass *prometheus.CounterVec
	errorsByCode  *prometheus.CounterVec

	// System metrics
	activeRenderPasses prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		treeBuilds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tree_builds_total",
				Help:      "Total number of editable tree builds",
			},
			[]string{"brick", "status"},
		),
		treeBuildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tree_build_duration_seconds",
				Help:      "Duration of editable tree builds in seconds",
				Buckets:   buckets,
			},
			[]string{"brick"},
		),
		treeNodes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tree_nodes",
				Help:      "Number of top-level nodes emitted per tree build",
				Buckets:   prometheus.LinearBuckets(0, 5, 10),
			},
			[]string{"brick"},
		),

		elementsResolved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "elements_resolved_total",
				Help:      "Total number of rendered units resolved into payloads",
			},
			[]string{"element_type", "status"},
		),
		elementDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "element_resolve_duration_seconds",
				Help:      "Duration of element resolution in seconds",
				Buckets:   buckets,
			},
			[]string{"element_type"},
		),
		payloadsDispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payloads_dispatched_total",
				Help:      "Total number of payloads handed to a sink",
			},
			[]string{"sink", "status"},
		),

		normalizerCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "normalizer_calls_total",
				Help:      "Total number of normalizer invocations",
			},
			[]string{"normalizer"},
		),
		normalizerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "normalizer_duration_seconds",
				Help:      "Duration of normalizer invocations in seconds",
				Buckets:   buckets,
			},
			[]string{"normalizer"},
		),
		normalizerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "normalizer_errors_total",
				Help:      "Total number of failed normalizer invocations",
			},
			[]string{"normalizer"},
		),

		schemaWarnings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schema_warnings_total",
				Help:      "Total number of schema contradictions reported in lenient mode",
			},
			[]string{"source"},
		),
		configReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of configuration reloads",
			},
			[]string{"status"},
		),
		areasAvailable: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "areas_available",
				Help:      "Current number of available areas per context",
			},
			[]string{"context"},
		),

		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of errors by error class",
			},
			[]string{"class"},
		),
		errorsByCode: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_code_total",
				Help:      "Total number of errors by error code",
			},
			[]string{"code"},
		),

		activeRenderPasses: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_render_passes",
				Help:      "Current number of render passes in progress",
			},
		),
	}

	registry.MustRegister(
		m.treeBuilds,
		m.treeBuildDuration,
		m.treeNodes,
		m.elementsResolved,
		m.elementDuration,
		m.payloadsDispatched,
		m.normalizerCalls,
		m.normalizerDuration,
		m.normalizerErrors,
		m.schemaWarnings,
		m.configReloads,
		m.areasAvailable,
		m.errorsByClass,
		m.errorsByCode,
		m.activeRenderPasses,
	)

	return m, nil
}

// Registry returns the underlying Prometheus registry, or nil when disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Tree Build Metrics

// RecordTreeBuild records one editable tree build for a brick.
func (m *Metrics) RecordTreeBuild(brick, status string, nodes int, duration time.Duration) {
	if m.treeBuilds == nil {
		return
	}
	m.treeBuilds.WithLabelValues(brick, status).Inc()
	m.treeBuildDuration.WithLabelValues(brick).Observe(duration.Seconds())
	if status == StatusSuccess {
		m.treeNodes.WithLabelValues(brick).Observe(float64(nodes))
	}
}

// Element Metrics

// RecordElementResolved records the resolution of one rendered unit.
func (m *Metrics) RecordElementResolved(elementType, status string, duration time.Duration) {
	if m.elementsResolved == nil {
		return
	}
	m.elementsResolved.WithLabelValues(elementType, status).Inc()
	m.elementDuration.WithLabelValues(elementType).Observe(duration.Seconds())
}

// RecordPayloadDispatched records a payload handed to a sink.
func (m *Metrics) RecordPayloadDispatched(sink, status string) {
	if m.payloadsDispatched == nil {
		return
	}
	m.payloadsDispatched.WithLabelValues(sink, status).Inc()
}

// Normalizer Metrics

// RecordNormalizerCall records a normalizer invocation with its duration.
func (m *Metrics) RecordNormalizerCall(normalizer string, duration time.Duration) {
	if m.normalizerCalls == nil {
		return
	}
	m.normalizerCalls.WithLabelValues(normalizer).Inc()
	m.normalizerDuration.WithLabelValues(normalizer).Observe(duration.Seconds())
}

// RecordNormalizerError records a failed normalizer invocation.
func (m *Metrics) RecordNormalizerError(normalizer string) {
	if m.normalizerErrors == nil {
		return
	}
	m.normalizerErrors.WithLabelValues(normalizer).Inc()
}

// Configuration Metrics

// RecordSchemaWarnings adds lenient-mode contradictions reported by a load.
func (m *Metrics) RecordSchemaWarnings(source string, count int) {
	if m.schemaWarnings == nil || count == 0 {
		return
	}
	m.schemaWarnings.WithLabelValues(source).Add(float64(count))
}

// RecordConfigReload records a configuration reload attempt.
func (m *Metrics) RecordConfigReload(status string) {
	if m.configReloads == nil {
		return
	}
	m.configReloads.WithLabelValues(status).Inc()
}

// SetAreasAvailable sets the number of available areas for a context.
func (m *Metrics) SetAreasAvailable(contextID string, count int) {
	if m.areasAvailable == nil {
		return
	}
	if contextID == "" {
		contextID = "root"
	}
	m.areasAvailable.WithLabelValues(contextID).Set(float64(count))
}

// Error Metrics

// RecordError records an error by class and optionally by code.
func (m *Metrics) RecordError(errorClass, errorCode string) {
	if m.errorsByClass == nil {
		return
	}
	m.errorsByClass.WithLabelValues(errorClass).Inc()
	if errorCode != "" && m.errorsByCode != nil {
		m.errorsByCode.WithLabelValues(errorCode).Inc()
	}
}

// System Metrics

// RenderPassStarted increments the active render pass gauge.
func (m *Metrics) RenderPassStarted() {
	if m.activeRenderPasses == nil {
		return
	}
	m.activeRenderPasses.Inc()
}

// RenderPassFinished decrements the active render pass gauge.
func (m *Metrics) RenderPassFinished() {
	if m.activeRenderPasses == nil {
		return
	}
	m.activeRenderPasses.Dec()
}

// Status label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// StatusOf maps an error to a status label value.
func StatusOf(err error) string {
	if err != nil {
		return StatusFailure
	}
	return StatusSuccess
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Serve exposes the metrics on addr until ctx is done. It returns the bound
// address once the listener is open.
func (m *Metrics) Serve(ctx context.Context, addr string) (net.Addr, error) {
	if m.registry == nil {
		return nil, fmt.Errorf("metrics are disabled")
	}

	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "metrics server error: %v\n", err)
		}
	}()

	return ln.Addr(), nil
}

// WriteTextfile writes the current metrics in the Prometheus text format,
// for node_exporter's textfile collector or a one-off inspection.
func (m *Metrics) WriteTextfile(path string) error {
	if m.registry == nil {
		return fmt.Errorf("metrics are disabled")
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
