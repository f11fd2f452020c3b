package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// responseWriter wraps http.ResponseWriter to capture status and bytes.
type responseWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += int64(n)
	return n, err
}

// pollPaths are hit on a fixed interval by Prometheus and liveness probes
// rather than by an operator; logging every successful poll at Info would
// drown out everything else this node logs, so they're demoted to Debug.
var pollPaths = map[string]bool{
	"/metrics": true,
	"/healthz": true,
}

// Logger provides structured access logging for HTTP requests.
func Logger(log zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID, _ := r.Context().Value(RequestIDKey).(string)
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rw, r)

			var evt *zerolog.Event
			switch {
			case rw.status >= 500:
				evt = log.Error()
			case rw.status >= 400:
				evt = log.Warn()
			case pollPaths[r.URL.Path]:
				evt = log.Debug()
			default:
				evt = log.Info()
			}

			evt.
				Str("request_id", requestID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("query", r.URL.RawQuery).
				Str("remote_addr", r.RemoteAddr).
				Str("user_agent", r.UserAgent()).
				Int("status", rw.status).
				Int64("bytes", rw.bytes).
				Dur("latency", time.Since(start)).
				Msg("http_request")
		})
	}
}
