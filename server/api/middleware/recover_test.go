package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestRecoverCountsPanic(t *testing.T) {
	before := testutil.ToFloat64(panicsTotal)

	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic("boom") })
	handler := Recover(zerolog.Nop())(panicking)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, before+1, testutil.ToFloat64(panicsTotal))
}
