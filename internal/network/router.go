package network

import (
	"net/http"

	"github.com/HyprPixl/signalfoundry/internal/platform/metrics"
)

// NewRouter wires the socket, the history API and the metrics endpoints.
func NewRouter(hub *Hub, history *HistoryHandler, m *metrics.Collector) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	history.RegisterRoutes(mux)
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/metrics/prometheus", m.PrometheusHandler())
	return mux
}
