package sequencer

import (
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// StateMachine holds the sequencer's current phase and rejects forward
// transitions whose deadline has already passed. Only the work-loop
// driver mutates phase, so transitions are totally ordered; the mutex
// guards readers (status(), metrics) racing the driver.
type StateMachine struct {
	mu     sync.RWMutex
	log    zerolog.Logger
	now    DateProvider
	table  TimeTable
	constants RollupConstants
	enforce bool

	current Phase

	onTransition func(bufferMs float64, phase Phase)
}

// NewStateMachine constructs a StateMachine in the Stopped phase.
func NewStateMachine(constants RollupConstants, table TimeTable, enforce bool, now DateProvider, log zerolog.Logger) *StateMachine {
	return &StateMachine{
		log:       log.With().Str("component", "state-machine").Logger(),
		now:       now,
		table:     table,
		constants: constants,
		enforce:   enforce,
		current:   PhaseStopped,
	}
}

// SetOnTransition installs the hook invoked after every successful
// restricted transition, with the state-transition buffer in milliseconds
// (spec.md §4.B step 4). Used by Metrics.
func (sm *StateMachine) SetOnTransition(fn func(bufferMs float64, phase Phase)) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.onTransition = fn
}

// UpdateTable atomically swaps in a newly derived TimeTable, e.g. after a
// config update. Each Set call reads the table under the lock, so a check
// already running finishes against the old table, while every later Set
// call, including the remaining transitions of a tick already in flight,
// uses the new one; the table is not pinned per tick.
func (sm *StateMachine) UpdateTable(table TimeTable, constants RollupConstants, enforce bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.table = table
	sm.constants = constants
	sm.enforce = enforce
}

// Current returns the current phase.
func (sm *StateMachine) Current() Phase {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.current
}

// Set attempts to transition to phase for the given slot. slot is ignored
// (and may be zero) for unrestricted phases. force bypasses the
// "Stopped is terminal" rule, used by restart()/force-set paths in the
// Lifecycle component.
func (sm *StateMachine) Set(phase Phase, slot SlotId, force bool) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.current == PhaseStopped && !force {
		return nil
	}

	if !phase.restricted() {
		prev := sm.current
		sm.current = phase
		sm.log.Debug().Str("from", prev.String()).Str("to", phase.String()).Msg("phase transition")
		return nil
	}

	deadline := sm.table.deadlineFor(phase)
	if deadline >= sm.table.slotDurationSec {
		// Unrestricted despite table lookup (defensive; spec table never
		// stores a sub-slot deadline for unrestricted phases).
		sm.current = phase
		return nil
	}

	secondsIntoSlot := sm.secondsIntoSlotLocked(slot)

	if sm.enforce && secondsIntoSlot > deadline {
		return newSequencerTooSlow(sm.current, phase, deadline, secondsIntoSlot)
	}

	prev := sm.current
	sm.current = phase

	bufferMs := (deadline - secondsIntoSlot) * 1000
	sm.log.Debug().
		Str("from", prev.String()).
		Str("to", phase.String()).
		Uint64("slot", uint64(slot)).
		Float64("buffer_ms", bufferMs).
		Msg("phase transition")

	if sm.onTransition != nil {
		sm.onTransition(bufferMs, phase)
	}
	return nil
}

// secondsIntoSlotLocked computes how far into the slot "now" is, rounded
// to 3 decimal places per spec.md §4.B step 2. Caller must hold sm.mu.
func (sm *StateMachine) secondsIntoSlotLocked(slot SlotId) float64 {
	slotStart := sm.constants.L1GenesisTime.Add(time.Duration(slot) * sm.constants.SlotDuration)
	elapsed := sm.now.Now().Sub(slotStart).Seconds()
	return math.Round(elapsed*1000) / 1000
}
