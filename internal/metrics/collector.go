// Package metrics exposes viewer, loader and server statistics to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector records metrics. It implements viewer.Observer and
// loader.Observer.
type Collector struct {
	// Viewer
	sessionsActive prometheus.Gauge
	sessionsTotal  prometheus.Counter
	layersActive   *prometheus.GaugeVec
	layersTotal    *prometheus.CounterVec
	framesTotal    prometheus.Counter
	frameDuration  prometheus.Histogram

	// Loader
	loadsTotal   *prometheus.CounterVec
	loadDuration *prometheus.HistogramVec

	// HTTP
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Assistant
	assistantRequestsTotal   *prometheus.CounterVec
	assistantRequestDuration prometheus.Histogram

	factory   promauto.Factory
	namespace string
	logger    *zap.Logger
}

// NewCollector creates a collector registered with reg. A nil reg uses the
// default Prometheus registry.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	c := &Collector{
		factory:   factory,
		namespace: namespace,
		logger:    logger.With(zap.String("component", "metrics")),
	}

	c.sessionsActive = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "viewer_sessions_active",
		Help:      "Number of live viewport sessions",
	})
	c.sessionsTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "viewer_sessions_total",
		Help:      "Total number of viewport sessions created",
	})
	c.layersActive = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "viewer_layers_active",
		Help:      "Number of installed layers",
	}, []string{"role"})
	c.layersTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "viewer_layers_installed_total",
		Help:      "Total number of layers installed",
	}, []string{"role"})
	c.framesTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "viewer_frames_total",
		Help:      "Total number of frames drawn",
	})
	c.frameDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "viewer_frame_duration_seconds",
		Help:      "Time spent producing a frame",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
	})

	c.loadsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loader_loads_total",
		Help:      "Total number of mesh loads",
	}, []string{"format", "outcome"})
	c.loadDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "loader_load_duration_seconds",
		Help:      "Mesh fetch and decode duration in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"format"})

	c.httpRequestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	c.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	c.assistantRequestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "assistant_requests_total",
		Help:      "Total number of assistant requests",
	}, []string{"status"})
	c.assistantRequestDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "assistant_request_duration_seconds",
		Help:      "Assistant request duration in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	return c
}

// TrackResources exports the live resource count of a device. It must be
// called at most once per device name.
func (c *Collector) TrackResources(device string, live func() int) {
	c.factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   c.namespace,
		Name:        "viewer_device_resources_live",
		Help:        "Number of live device resources",
		ConstLabels: prometheus.Labels{"device": device},
	}, func() float64 { return float64(live()) })
}

// SessionOpened records a new viewport session
func (c *Collector) SessionOpened() {
	c.sessionsActive.Inc()
	c.sessionsTotal.Inc()
}

// SessionClosed records a destroyed viewport session
func (c *Collector) SessionClosed() {
	c.sessionsActive.Dec()
}

// LayerInstalled records a layer install
func (c *Collector) LayerInstalled(role string) {
	c.layersActive.WithLabelValues(role).Inc()
	c.layersTotal.WithLabelValues(role).Inc()
}

// LayerReleased records a layer release
func (c *Collector) LayerReleased(role string) {
	c.layersActive.WithLabelValues(role).Dec()
}

// FrameDrawn records one frame
func (c *Collector) FrameDrawn(elapsed time.Duration) {
	c.framesTotal.Inc()
	c.frameDuration.Observe(elapsed.Seconds())
}

// ObserveLoad records a loader result
func (c *Collector) ObserveLoad(format string, outcome string, elapsed time.Duration) {
	c.loadsTotal.WithLabelValues(format, outcome).Inc()
	if elapsed > 0 {
		c.loadDuration.WithLabelValues(format).Observe(elapsed.Seconds())
	}
	if outcome != "ok" && outcome != "cached" {
		c.logger.Debug("load failure recorded", zap.String("format", format), zap.String("outcome", outcome))
	}
}

// RecordHTTPRequest records a served HTTP request
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordAssistantRequest records a model provider call
func (c *Collector) RecordAssistantRequest(status string, duration time.Duration) {
	c.assistantRequestsTotal.WithLabelValues(status).Inc()
	c.assistantRequestDuration.Observe(duration.Seconds())
}

// statusCode buckets an HTTP status code
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
