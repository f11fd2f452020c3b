package sequencer

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestStateMachine(t *testing.T, enforce bool, now *fakeClock) (*StateMachine, RollupConstants, TimeTable) {
	t.Helper()
	constants := testConstants(24, 12, time.Unix(0, 0))
	table, err := NewTimeTable(constants, 4*time.Second, enforce)
	require.NoError(t, err)
	sm := NewStateMachine(constants, table, enforce, now, zerolog.Nop())
	return sm, constants, table
}

func TestStateMachineStoppedIgnoresTransitionsWithoutForce(t *testing.T) {
	t.Parallel()

	now := newFakeClock(time.Unix(0, 0))
	sm, _, _ := newTestStateMachine(t, true, now)

	require.Equal(t, PhaseStopped, sm.Current())
	require.NoError(t, sm.Set(PhaseIdle, 0, false))
	require.Equal(t, PhaseStopped, sm.Current(), "transition while Stopped without force must be ignored")

	require.NoError(t, sm.Set(PhaseIdle, 0, true))
	require.Equal(t, PhaseIdle, sm.Current())
}

func TestStateMachineUnrestrictedPhasesAlwaysPass(t *testing.T) {
	t.Parallel()

	now := newFakeClock(time.Unix(0, 0))
	sm, constants, _ := newTestStateMachine(t, true, now)
	require.NoError(t, sm.Set(PhaseIdle, 0, true))

	now.Set(constants.L1GenesisTime.Add(23 * time.Second))
	require.NoError(t, sm.Set(PhaseSynchronizing, 0, false))
	require.NoError(t, sm.Set(PhaseProposerCheck, 0, false))
}

func TestStateMachineRejectsLateRestrictedTransition(t *testing.T) {
	t.Parallel()

	now := newFakeClock(time.Unix(0, 0))
	sm, constants, _ := newTestStateMachine(t, true, now)
	require.NoError(t, sm.Set(PhaseIdle, 0, true))

	// CreatingBlock deadline is 3s into the slot; put the clock at 5s into slot 1.
	now.Set(constants.L1GenesisTime.Add(constants.SlotDuration + 5*time.Second))
	err := sm.Set(PhaseCreatingBlock, 1, false)
	require.Error(t, err)

	var tooSlow *SequencerTooSlowError
	require.ErrorAs(t, err, &tooSlow)
	require.Equal(t, PhaseIdle, tooSlow.CurrentPhase)
	require.Equal(t, PhaseCreatingBlock, tooSlow.TargetPhase)
	require.Equal(t, 3.0, tooSlow.Deadline)
	require.Equal(t, 5.0, tooSlow.ActualTime)

	require.Equal(t, PhaseIdle, sm.Current(), "current phase must not change on rejection")
}

func TestStateMachineAcceptsOnTimeTransitionAndRecordsBuffer(t *testing.T) {
	t.Parallel()

	now := newFakeClock(time.Unix(0, 0))
	sm, constants, _ := newTestStateMachine(t, true, now)
	require.NoError(t, sm.Set(PhaseIdle, 0, true))

	var gotBuffer float64
	var gotPhase Phase
	sm.SetOnTransition(func(bufferMs float64, phase Phase) {
		gotBuffer = bufferMs
		gotPhase = phase
	})

	now.Set(constants.L1GenesisTime.Add(constants.SlotDuration + 1*time.Second)) // 1s into slot 1
	require.NoError(t, sm.Set(PhaseInitializingProposal, 1, false))
	require.Equal(t, PhaseInitializingProposal, sm.Current())
	require.Equal(t, PhaseInitializingProposal, gotPhase)
	require.InDelta(t, 1000.0, gotBuffer, 0.001) // deadline 2s - actual 1s = 1s of buffer
}

func TestStateMachineNotEnforcedNeverRejects(t *testing.T) {
	t.Parallel()

	now := newFakeClock(time.Unix(0, 0))
	sm, constants, _ := newTestStateMachine(t, false, now)
	require.NoError(t, sm.Set(PhaseIdle, 0, true))

	now.Set(constants.L1GenesisTime.Add(100 * time.Second))
	require.NoError(t, sm.Set(PhaseCreatingBlock, 1, false))
}

func TestStateMachineUpdateTableReplacesDeadlines(t *testing.T) {
	t.Parallel()

	now := newFakeClock(time.Unix(0, 0))
	sm, constants, oldTable := newTestStateMachine(t, true, now)
	require.NoError(t, sm.Set(PhaseIdle, 0, true))

	// Swap in a table derived from a much shorter slot; its
	// CollectingAttestations deadline differs from the one it replaces.
	newConstants := testConstants(6, 12, time.Unix(0, 0))
	// Deliberately skip error check: enforce=false avoids ConfigError just
	// to construct a table whose deadlines are irrelevant here.
	newTable, _ := NewTimeTable(newConstants, 4*time.Second, false)
	sm.UpdateTable(newTable, newConstants, true)

	require.NotEqual(t, oldTable.deadlineFor(PhaseCollectingAttestations), newTable.deadlineFor(PhaseCollectingAttestations))
	_ = constants
}
