// Package metrics provides a thin helper over prometheus client_golang that
// namespaces every metric under a component and optional subsystem, so
// call sites never repeat the namespace/subsystem boilerplate and every
// collector ends up registered against the same registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Bucket presets shared across components so histograms stay comparable
// when graphed side by side.
var (
	// CountBuckets fits small integer counts (txs per block, attestations).
	CountBuckets = []float64{1, 2, 4, 8, 16, 32, 64, 128, 256}

	// DurationBuckets fits sub-slot wall-clock durations, in seconds.
	DurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

	// NetworkBuckets fits network round-trip and connection durations, in seconds.
	NetworkBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60}

	// SizeBuckets fits byte sizes (messages, blocks).
	SizeBuckets = []float64{64, 256, 1024, 4096, 16384, 65536, 262144, 1048576, 4194304}
)

// ComponentRegistry namespaces a component's collectors under
// "<component>[_<subsystem>]_<name>" and registers each with the wrapped
// prometheus.Registerer as it is created.
type ComponentRegistry struct {
	namespace  string
	subsystem  string
	registerer prometheus.Registerer
}

// NewComponentRegistry creates a ComponentRegistry that registers against
// prometheus's default registerer. subsystem may be empty.
func NewComponentRegistry(component, subsystem string) *ComponentRegistry {
	return NewComponentRegistryWith(prometheus.DefaultRegisterer, component, subsystem)
}

// NewComponentRegistryWith creates a ComponentRegistry against an explicit
// registerer, used by tests to avoid colliding with the global registry.
func NewComponentRegistryWith(registerer prometheus.Registerer, component, subsystem string) *ComponentRegistry {
	return &ComponentRegistry{
		namespace:  component,
		subsystem:  subsystem,
		registerer: registerer,
	}
}

func (r *ComponentRegistry) fill(opts *prometheus.Opts) {
	opts.Namespace = r.namespace
	opts.Subsystem = r.subsystem
}

// NewCounter creates and registers a Counter.
func (r *ComponentRegistry) NewCounter(opts prometheus.CounterOpts) prometheus.Counter {
	r.fill((*prometheus.Opts)(&opts))
	c := prometheus.NewCounter(opts)
	r.mustRegister(c)
	return c
}

// NewCounterVec creates and registers a CounterVec.
func (r *ComponentRegistry) NewCounterVec(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	r.fill((*prometheus.Opts)(&opts))
	c := prometheus.NewCounterVec(opts, labels)
	r.mustRegister(c)
	return c
}

// NewGauge creates and registers a Gauge.
func (r *ComponentRegistry) NewGauge(opts prometheus.GaugeOpts) prometheus.Gauge {
	r.fill((*prometheus.Opts)(&opts))
	g := prometheus.NewGauge(opts)
	r.mustRegister(g)
	return g
}

// NewGaugeVec creates and registers a GaugeVec.
func (r *ComponentRegistry) NewGaugeVec(opts prometheus.GaugeOpts, labels []string) *prometheus.GaugeVec {
	r.fill((*prometheus.Opts)(&opts))
	g := prometheus.NewGaugeVec(opts, labels)
	r.mustRegister(g)
	return g
}

// NewHistogram creates and registers a Histogram.
func (r *ComponentRegistry) NewHistogram(opts prometheus.HistogramOpts) prometheus.Histogram {
	opts.Namespace = r.namespace
	opts.Subsystem = r.subsystem
	h := prometheus.NewHistogram(opts)
	r.mustRegister(h)
	return h
}

// NewHistogramVec creates and registers a HistogramVec.
func (r *ComponentRegistry) NewHistogramVec(opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	opts.Namespace = r.namespace
	opts.Subsystem = r.subsystem
	h := prometheus.NewHistogramVec(opts, labels)
	r.mustRegister(h)
	return h
}

// mustRegister registers c, tolerating AlreadyRegisteredError so that
// constructing the same component's metrics twice in a test process does
// not panic. In that case c itself stays unregistered: the caller keeps
// using c, and only the first collector of that name is exported.
func (r *ComponentRegistry) mustRegister(c prometheus.Collector) {
	if err := r.registerer.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return
		}
		panic(err)
	}
}
