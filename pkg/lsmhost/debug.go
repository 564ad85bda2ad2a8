package lsmhost

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DebugResponse is the JSON body of /debug/stats.
type DebugResponse struct {
	Status        string `json:"status"`
	ShardCount    int    `json:"shard_count"`
	Counts        []int  `json:"counts"`
	ValueCountMax int    `json:"value_count_max"`
	FlushCount    uint64 `json:"flush_count"`
}

// DebugRouter builds a read-only chi mux exposing /healthz, /debug/stats,
// and /metrics (via promhttp against reg). It never exposes a write path;
// the host is purely in-memory and this is introspection only.
func (h *Host[K, V]) DebugRouter(reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Get("/debug/stats", func(w http.ResponseWriter, req *http.Request) {
		stats := h.Stats()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(DebugResponse{
			Status:        "ok",
			ShardCount:    stats.ShardCount,
			Counts:        stats.Counts,
			ValueCountMax: stats.ValueCountMax,
			FlushCount:    stats.FlushCount,
		})
	})

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return r
}
