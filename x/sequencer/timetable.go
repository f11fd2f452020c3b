package sequencer

import "time"

// These constants are the fixed allowances from spec.md §4.A. They are not
// configurable; only slotDuration, ethereumSlotDuration and
// maxL1TxInclusionTimeIntoSlot feed the derivation.
const (
	initialTimeSec                = 2.0
	blockPrepareTimeSec           = 1.0
	attestationPropagationTimeSec = 2.0
	blockValidationTimeSec        = 1.0
)

// TimeTable maps each Phase to a deadline expressed as seconds from slot
// start. It is immutable once constructed; a config update produces a new
// TimeTable and atomically replaces the old one (see Sequencer.UpdateConfig).
type TimeTable struct {
	slotDurationSec float64
	deadlines       [8]float64 // indexed by Phase
	processTxTimeSec float64
}

// deadlineFor returns the configured deadline, in seconds into the slot,
// for phase p.
func (t TimeTable) deadlineFor(p Phase) float64 {
	return t.deadlines[p]
}

// ProcessTxTimeSeconds is also exposed as the tx-processing deadline
// budget consumed by the block assembler (spec.md §4.E step 5).
func (t TimeTable) ProcessTxTimeSeconds() float64 {
	return t.processTxTimeSec
}

// NewTimeTable derives the TimeTable from the rollup constants and the
// reserved L1-inclusion window, per spec.md §4.A. It fails with a
// *ConfigError when enforceTimeTable is true and the derived
// remainingTimeInSlot is negative.
func NewTimeTable(constants RollupConstants, maxL1TxInclusionTimeIntoSlot time.Duration, enforceTimeTable bool) (TimeTable, error) {
	s := constants.SlotDuration.Seconds()
	e := constants.EthereumSlotDuration.Seconds()
	m := maxL1TxInclusionTimeIntoSlot.Seconds()

	l1PublishingTime := e - m
	remainingTimeInSlot := s - initialTimeSec - blockPrepareTimeSec - l1PublishingTime -
		2*attestationPropagationTimeSec - blockValidationTimeSec

	if enforceTimeTable && remainingTimeInSlot < 0 {
		return TimeTable{}, newConfigError("time table has no time left for tx processing: " +
			"slot duration too short for the configured L1 inclusion window")
	}

	processTxTime := remainingTimeInSlot / 2

	var table TimeTable
	table.slotDurationSec = s
	table.processTxTimeSec = processTxTime

	for _, p := range []Phase{PhaseStopped, PhaseIdle, PhaseSynchronizing, PhaseProposerCheck} {
		table.deadlines[p] = s
	}

	table.deadlines[PhaseInitializingProposal] = initialTimeSec
	table.deadlines[PhaseCreatingBlock] = initialTimeSec + blockPrepareTimeSec
	table.deadlines[PhaseCollectingAttestations] = initialTimeSec + blockPrepareTimeSec + processTxTime + blockValidationTimeSec
	table.deadlines[PhasePublishingBlock] = s - l1PublishingTime

	return table, nil
}
