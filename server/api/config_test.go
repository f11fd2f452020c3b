package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigScalesWithPollingInterval(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig(2 * time.Second)
	require.Equal(t, time.Second, cfg.ReadTimeout)
	require.Equal(t, 2*time.Second, cfg.WriteTimeout)
	require.Equal(t, 200*time.Millisecond, cfg.ReadHeaderTimeout)
	require.Equal(t, 20*time.Second, cfg.IdleTimeout)
}

func TestDefaultConfigFloorsTinyPollingInterval(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig(10 * time.Millisecond)
	require.Equal(t, minReadTimeout, cfg.ReadTimeout)

	cfg = DefaultConfig(0)
	require.Equal(t, minReadTimeout, cfg.ReadTimeout)
}
