package obs

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"monfari.org/internal/apperr"
)

var (
	registerOnce sync.Once

	clientRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monfari_client_requests_total",
			Help: "Round trips issued by the client session.",
		},
		[]string{"kind", "outcome"},
	)

	clientRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "monfari_client_request_duration_seconds",
			Help:    "Client round-trip latency from send to decoded reply.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	serverFramesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monfari_server_frames_total",
			Help: "Request frames handled by the development server.",
		},
		[]string{"kind", "outcome"},
	)

	serverConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "monfari_server_connections",
		Help: "Open connections on the development server.",
	})
)

// Init registers all collectors with the default registry. Safe to call repeatedly.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(clientRequestsTotal, clientRequestDuration, serverFramesTotal, serverConnections, buildInfo)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Outcome labels err: "ok" for nil, the lower-cased error code otherwise.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if code := apperr.CodeOf(err); code != "" {
		return strings.ToLower(string(code))
	}
	return "error"
}

// ObserveClientRequest records one client round trip.
func ObserveClientRequest(kind string, err error, d time.Duration) {
	clientRequestsTotal.WithLabelValues(kind, Outcome(err)).Inc()
	clientRequestDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// ObserveServerFrame records one request handled by the server.
func ObserveServerFrame(kind string, err error) {
	serverFramesTotal.WithLabelValues(kind, Outcome(err)).Inc()
}

func ServerConnectionOpened() { serverConnections.Inc() }
func ServerConnectionClosed() { serverConnections.Dec() }
