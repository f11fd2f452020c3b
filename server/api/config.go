package api

import "time"

// Config defines runtime parameters for the HTTP API server that exposes
// this node's /status, /healthz and /metrics surface (spec.md §6).
type Config struct {
	ListenAddr        string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	MaxHeaderBytes    int           `mapstructure:"max_header_bytes" yaml:"max_header_bytes"`
}

// minReadTimeout floors the derived read timeout so a very fast polling
// interval (tests, local dev) never produces an unusably tight deadline.
const minReadTimeout = 500 * time.Millisecond

// DefaultConfig sizes the API server's timeouts off the sequencer's own
// polling interval rather than a fixed generic budget: every handler this
// server exposes (status/healthz/metrics) is a cheap in-memory read of
// Sequencer.Status(), so a single request should never take longer than a
// fraction of one tick. pollingInterval <= 0 falls back to minReadTimeout.
func DefaultConfig(pollingInterval time.Duration) Config {
	readTimeout := pollingInterval / 2
	if readTimeout < minReadTimeout {
		readTimeout = minReadTimeout
	}

	return Config{
		ListenAddr:        ":8081",
		ReadHeaderTimeout: readTimeout / 5,
		ReadTimeout:       readTimeout,
		WriteTimeout:      readTimeout * 2,
		IdleTimeout:       readTimeout * 20,
		MaxHeaderBytes:    1 << 16, // status/metrics requests carry no body; no need for the teacher's 1MB budget
	}
}
