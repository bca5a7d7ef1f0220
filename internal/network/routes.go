package network

import (
	"net/http"

	"github.com/MRamiBalles/ByteLife/internal/platform/metrics"
)

// Routes bundles every HTTP surface of the server.
type Routes struct {
	Hub     *Hub
	Shop    *ShopBridge
	History *HistoryHandler
	Metrics *metrics.Collector
}

// NewMux registers the websocket endpoint, the REST APIs and the metrics endpoints.
func NewMux(r Routes) *http.ServeMux {
	mux := http.NewServeMux()
	if r.Hub != nil {
		mux.HandleFunc("/ws", r.Hub.ServeWS)
	}
	if r.Shop != nil {
		r.Shop.RegisterRoutes(mux)
	}
	if r.History != nil {
		r.History.RegisterRoutes(mux)
	}
	if r.Metrics != nil {
		mux.HandleFunc("/metrics", r.Metrics.Handler())
		mux.HandleFunc("/metrics/prometheus", r.Metrics.PrometheusHandler())
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		jsonSuccess(w, map[string]string{"status": "ok"})
	})
	return mux
}
