package transport

import (
	"net/http"

	"github.com/VictoriaMetrics/metrics"
)

// Connection and frame counters, exposed in Prometheus text format by
// MetricsHandler.
var (
	connectionsTotal = metrics.NewCounter(`shoal_connections_total`)
	framesRead       = metrics.NewCounter(`shoal_frames_read_total`)
	framesWritten    = metrics.NewCounter(`shoal_frames_written_total`)
	framesDropped    = metrics.NewCounter(`shoal_frames_dropped_total`)
)

// MetricsHandler serves transport and process metrics in Prometheus
// text format.
func MetricsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})
}
