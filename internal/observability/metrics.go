package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DirectionSent     = "sent"
	DirectionReceived = "received"
)

var (
	registerOnce sync.Once

	messages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "framewire",
			Name:      "messages_total",
			Help:      "Messages moved through the transport by direction and kind.",
		},
		[]string{"direction", "kind"},
	)
	wireBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "framewire",
			Name:      "bytes_total",
			Help:      "Encoded message bytes by direction.",
		},
		[]string{"direction"},
	)
	decodeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "framewire",
			Name:      "decode_errors_total",
			Help:      "Messages rejected by the receiver, by reason.",
		},
		[]string{"reason"},
	)
	openConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "framewire",
			Name:      "open_connections",
			Help:      "Logical connections created and not yet destroyed.",
		},
	)
	frameBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "framewire",
			Name:      "frame_bytes",
			Help:      "Pixel bytes carried per frame.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
		},
		[]string{"direction", "format"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "framewire",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Admin HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "framewire",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			messages, wireBytes, decodeErrors, openConnections, frameBytes,
			httpRequests, httpDuration,
		)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}

func RecordMessage(direction, kind string, encodedBytes int) {
	RegisterMetrics()
	messages.WithLabelValues(direction, kind).Inc()
	wireBytes.WithLabelValues(direction).Add(float64(encodedBytes))
}

func RecordFrame(direction, format string, pixelBytes int) {
	RegisterMetrics()
	frameBytes.WithLabelValues(direction, format).Observe(float64(pixelBytes))
}

func RecordDecodeError(reason string) {
	RegisterMetrics()
	decodeErrors.WithLabelValues(reason).Inc()
}

func ConnectionOpened() {
	RegisterMetrics()
	openConnections.Inc()
}

func ConnectionClosed() {
	RegisterMetrics()
	openConnections.Dec()
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}
