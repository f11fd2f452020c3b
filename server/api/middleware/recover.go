package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/dramarereg/aztec-sequencer/pkg/metrics"
)

// panicsTotal counts recovered HTTP handler panics, namespaced alongside
// the sequencer's own collectors (x/sequencer/metrics.go) so an operator
// graphing this node's metrics sees API-surface panics next to block
// publication failures rather than in a separate dashboard.
var panicsTotal = metrics.NewComponentRegistry("sequencer", "http_api").NewCounter(prometheus.CounterOpts{
	Name: "panics_total",
	Help: "Total number of HTTP handler panics recovered",
})

// Recover guards the server from panics, logs the stack trace, and counts
// the occurrence so an operator notices a recurring handler bug instead of
// only ever seeing individual 500s.
func Recover(log zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					panicsTotal.Inc()
					log.Error().
						Interface("error", rec).
						Bytes("stack", debug.Stack()).
						Msg("http_panic")
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
