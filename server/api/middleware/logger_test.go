package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestLoggerDemotesPollPathsToDebug(t *testing.T) {
	t.Parallel()

	var buf strings.Builder
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	handler := Logger(log)(ok)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Contains(t, buf.String(), `"level":"debug"`)

	buf.Reset()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Contains(t, buf.String(), `"level":"info"`)
}

func TestLoggerKeepsPollPathFailuresAtWarnOrAbove(t *testing.T) {
	t.Parallel()

	var buf strings.Builder
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	failing := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) })
	handler := Logger(log)(failing)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Contains(t, buf.String(), `"level":"warn"`)
}
