package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the aggregation service.
// Following the explicit dependency injection pattern, this struct is
// passed to every component that needs to record metrics; a nil *Metrics
// disables recording.
type Metrics struct {
	// Provider call metrics
	providerCallsTotal   *prometheus.CounterVec
	providerCallDuration *prometheus.HistogramVec
	rateLimitHits        *prometheus.CounterVec

	// Fallback orchestration metrics
	fallbackDepth          *prometheus.HistogramVec
	fallbackExhaustedTotal *prometheus.CounterVec

	// Normalization metrics
	transfersParsedTotal      *prometheus.CounterVec
	validationRejectionsTotal *prometheus.CounterVec

	// Block scanning metrics
	blockHead      *prometheus.GaugeVec
	scanWatermark  *prometheus.GaugeVec
	blocksFetched  *prometheus.CounterVec

	// HTTP metrics
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec

	// NATS metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		providerCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provider_calls_total",
				Help: "Total number of provider calls by network, provider, operation, and status",
			},
			[]string{"network", "provider", "operation", "status"},
		),
		providerCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "provider_call_duration_seconds",
				Help:    "Duration of provider calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"network", "provider", "operation"},
		),
		rateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provider_rate_limit_hits_total",
				Help: "Total number of provider rate limit hits (429 responses)",
			},
			[]string{"provider"},
		),
		fallbackDepth: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fallback_depth",
				Help:    "How many providers were tried before one answered (0 = primary)",
				Buckets: []float64{0, 1, 2, 3, 4, 5},
			},
			[]string{"network", "operation"},
		),
		fallbackExhaustedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fallback_exhausted_total",
				Help: "Total number of requests where every candidate provider failed",
			},
			[]string{"network", "operation"},
		),
		transfersParsedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transfers_parsed_total",
				Help: "Total number of normalized transfer legs emitted by parsers",
			},
			[]string{"network", "provider"},
		),
		validationRejectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "validation_rejections_total",
				Help: "Total number of provider payloads rejected by validators",
			},
			[]string{"network", "provider", "reason"},
		),
		blockHead: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "block_head",
				Help: "Most recently observed block head per network (offset applied)",
			},
			[]string{"network"},
		),
		scanWatermark: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "scan_watermark",
				Help: "Last fully processed block height per network",
			},
			[]string{"network"},
		),
		blocksFetched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blocks_fetched_total",
				Help: "Total number of blocks fetched during range scans",
			},
			[]string{"network", "provider"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"handler", "method"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),
		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of transfer events published to NATS",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"subject"},
		),
	}
}

// RecordProviderCall records one provider call with its outcome.
func (m *Metrics) RecordProviderCall(network, provider string, operation, status string, duration float64) {
	if m == nil {
		return
	}
	m.providerCallsTotal.WithLabelValues(network, provider, operation, status).Inc()
	m.providerCallDuration.WithLabelValues(network, provider, operation).Observe(duration)
}

// RecordRateLimitHit records a 429 from a provider.
func (m *Metrics) RecordRateLimitHit(provider string) {
	if m == nil {
		return
	}
	m.rateLimitHits.WithLabelValues(provider).Inc()
}

// RecordFallbackDepth records how deep the fallback loop went before a
// provider answered.
func (m *Metrics) RecordFallbackDepth(network string, operation string, depth float64) {
	if m == nil {
		return
	}
	m.fallbackDepth.WithLabelValues(network, operation).Observe(depth)
}

// RecordFallbackExhausted records a request where every provider failed.
func (m *Metrics) RecordFallbackExhausted(network string, operation string) {
	if m == nil {
		return
	}
	m.fallbackExhaustedTotal.WithLabelValues(network, operation).Inc()
}

// RecordTransfersParsed records normalized transfer legs emitted.
func (m *Metrics) RecordTransfersParsed(network, provider string, count float64) {
	if m == nil {
		return
	}
	m.transfersParsedTotal.WithLabelValues(network, provider).Add(count)
}

// RecordValidationRejection records a payload rejected by a validator.
func (m *Metrics) RecordValidationRejection(network, provider, reason string) {
	if m == nil {
		return
	}
	m.validationRejectionsTotal.WithLabelValues(network, provider, reason).Inc()
}

// SetBlockHead records the most recently observed block head.
func (m *Metrics) SetBlockHead(network string, head float64) {
	if m == nil {
		return
	}
	m.blockHead.WithLabelValues(network).Set(head)
}

// SetScanWatermark records the last fully processed block height.
func (m *Metrics) SetScanWatermark(network string, height float64) {
	if m == nil {
		return
	}
	m.scanWatermark.WithLabelValues(network).Set(height)
}

// RecordBlocksFetched records blocks fetched during a range scan.
func (m *Metrics) RecordBlocksFetched(network, provider string, count float64) {
	if m == nil {
		return
	}
	m.blocksFetched.WithLabelValues(network, provider).Add(count)
}

// RecordHTTPRequest records an HTTP request with its duration and status.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	if m == nil {
		return
	}
	m.httpRequestDuration.WithLabelValues(handler, method).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, httpStatusLabel(statusCode)).Inc()
}

// RecordNATSPublish records one publish attempt.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	if m == nil {
		return
	}
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}

// httpStatusLabel buckets status codes into class labels to bound
// cardinality.
func httpStatusLabel(code int) string {
	switch {
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
