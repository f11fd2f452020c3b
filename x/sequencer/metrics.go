package sequencer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dramarereg/aztec-sequencer/pkg/metrics"
)

// Metrics records the counters and histograms named in spec.md §4.J.
type Metrics struct {
	registry *metrics.ComponentRegistry

	PublishedBlocksTotal      prometheus.Counter
	FailedBlocksTotal         prometheus.Counter
	BlockPublishDuration      prometheus.Histogram
	BlockBuilderTreeInsertion prometheus.Histogram
	StateTransitionBufferMs   *prometheus.HistogramVec
	AttestationsCollecting    prometheus.Gauge

	now              DateProvider
	attestationStart time.Time
}

// NewMetrics constructs sequencer metrics against the default prometheus
// registerer.
func NewMetrics(now DateProvider) *Metrics {
	return newMetricsWith(metrics.NewComponentRegistry("sequencer", ""), now)
}

func newMetricsWith(reg *metrics.ComponentRegistry, now DateProvider) *Metrics {
	return &Metrics{
		registry: reg,
		now:      now,

		PublishedBlocksTotal: reg.NewCounter(prometheus.CounterOpts{
			Name: "published_blocks_total",
			Help: "Total number of blocks successfully published",
		}),

		FailedBlocksTotal: reg.NewCounter(prometheus.CounterOpts{
			Name: "failed_blocks_total",
			Help: "Total number of block builds that failed (excluding timing aborts)",
		}),

		BlockPublishDuration: reg.NewHistogram(prometheus.HistogramOpts{
			Name:    "block_publish_duration_seconds",
			Help:    "Duration of a successful block build-and-publish",
			Buckets: metrics.DurationBuckets,
		}),

		BlockBuilderTreeInsertion: reg.NewHistogram(prometheus.HistogramOpts{
			Name:    "block_builder_tree_insertion_microseconds",
			Help:    "Duration of inserting processed txs into the rollup tree",
			Buckets: metrics.DurationBuckets,
		}),

		StateTransitionBufferMs: reg.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "state_transition_buffer_ms",
			Help:    "Milliseconds of slack remaining at each restricted phase transition",
			Buckets: metrics.DurationBuckets,
		}, []string{"phase"}),

		AttestationsCollecting: reg.NewGauge(prometheus.GaugeOpts{
			Name: "attestations_collecting",
			Help: "1 while an attestation collection round is in flight",
		}),
	}
}

// PublishedBlock records a successful publish.
func (m *Metrics) PublishedBlock(duration time.Duration) {
	m.PublishedBlocksTotal.Inc()
	m.BlockPublishDuration.Observe(duration.Seconds())
}

// FailedBlock records a build failure other than a timing abort.
func (m *Metrics) FailedBlock() {
	m.FailedBlocksTotal.Inc()
}

// BlockBuilderTreeInsertions records the tree-insertion duration in
// microseconds.
func (m *Metrics) BlockBuilderTreeInsertions(microseconds float64) {
	m.BlockBuilderTreeInsertion.Observe(microseconds)
}

// StateTransitionBuffer records the slack at a restricted phase
// transition.
func (m *Metrics) StateTransitionBuffer(bufferMs float64, phase Phase) {
	m.StateTransitionBufferMs.WithLabelValues(phase.String()).Observe(bufferMs)
}

// StartCollectingAttestationsTimer marks the beginning of an attestation
// collection round.
func (m *Metrics) StartCollectingAttestationsTimer() {
	m.attestationStart = m.now.Now()
	m.AttestationsCollecting.Set(1)
}

// StopCollectingAttestationsTimer marks the end of an attestation
// collection round.
func (m *Metrics) StopCollectingAttestationsTimer() {
	m.AttestationsCollecting.Set(0)
}
