// Package status exposes the sequencer's control surface over HTTP:
// a read-only status endpoint, a liveness probe, and a Prometheus
// metrics endpoint.
package status

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dramarereg/aztec-sequencer/server/api"
	"github.com/dramarereg/aztec-sequencer/x/sequencer"
)

// Handler wires the sequencer's status() accessor into an HTTP surface.
type Handler struct {
	seq *sequencer.Sequencer
	log zerolog.Logger
}

// NewHandler constructs a Handler bound to seq.
func NewHandler(seq *sequencer.Sequencer, log zerolog.Logger) *Handler {
	return &Handler{seq: seq, log: log.With().Str("component", "status-handler").Logger()}
}

// Register mounts /status, /healthz and /metrics on router.
func (h *Handler) Register(router *mux.Router) {
	router.HandleFunc("/status", h.status).Methods(http.MethodGet)
	router.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	st := h.seq.Status()
	api.WriteJSON(w, http.StatusOK, map[string]any{
		"phase":           st.Phase.String(),
		"uptime_seconds":  st.UptimeSeconds,
		"ticks_processed": st.TicksProcessed,
		"last_error":      st.LastError,
		"flushing":        st.Flushing,
	})
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	st := h.seq.Status()
	if st.Phase == sequencer.PhaseStopped {
		api.WriteError(w, r, http.StatusServiceUnavailable, "sequencer_stopped", "sequencer is stopped", nil)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
