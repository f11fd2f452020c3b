package sequencer

import (
	"fmt"
)

// Kind categorizes the sequencer's own error taxonomy (spec §7). It is not
// meant to carry cryptographic or proving failures — those belong to
// collaborators out of scope for this package.
type Kind int

const (
	KindTooSlow Kind = iota
	KindNotEligible
	KindTooFewTxs
	KindConfigError
	KindPublisherRejected
	KindClaimFailed
)

func (k Kind) String() string {
	switch k {
	case KindTooSlow:
		return "too_slow"
	case KindNotEligible:
		return "not_eligible"
	case KindTooFewTxs:
		return "too_few_txs"
	case KindConfigError:
		return "config_error"
	case KindPublisherRejected:
		return "publisher_rejected"
	case KindClaimFailed:
		return "claim_failed"
	default:
		return "unknown"
	}
}

// Error is the structured error type raised by sequencer components. The
// work loop logs SequencerTooSlow at WARN and NotEligible at DEBUG and
// returns neither past the loop boundary; every other error is logged at
// ERROR and returned.
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	Phase Phase
	Slot  SlotId
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("sequencer %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("sequencer %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, &Error{Kind: KindTooSlow}) style matching on Kind
// alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) withCause(cause error) *Error {
	e.Cause = cause
	return e
}

func (e *Error) withPhase(phase Phase) *Error {
	e.Phase = phase
	return e
}

func (e *Error) withSlot(slot SlotId) *Error {
	e.Slot = slot
	return e
}

// SequencerTooSlowError reports that a forward phase transition missed its
// TimeTable deadline.
type SequencerTooSlowError struct {
	Err          *Error
	CurrentPhase Phase
	TargetPhase  Phase
	Deadline     float64
	ActualTime   float64
}

func newSequencerTooSlow(current, target Phase, deadline, actual float64) *SequencerTooSlowError {
	return &SequencerTooSlowError{
		Err: &Error{
			Kind: KindTooSlow,
			Message: fmt.Sprintf(
				"transition %s -> %s missed deadline: wanted <= %.3fs into slot, was %.3fs",
				current, target, deadline, actual,
			),
			Phase: target,
		},
		CurrentPhase: current,
		TargetPhase:  target,
		Deadline:     deadline,
		ActualTime:   actual,
	}
}

func (e *SequencerTooSlowError) Error() string  { return e.Err.Error() }
func (e *SequencerTooSlowError) Unwrap() error  { return e.Err.Unwrap() }
func (e *SequencerTooSlowError) Is(t error) bool { return e.Err.Is(t) }

// NotEligibleError reports that this node is not the elected proposer for
// the slot under consideration, or that the proposer-eligibility RPC
// itself failed.
type NotEligibleError struct {
	Err *Error
}

func newNotEligible(message string) *NotEligibleError {
	return &NotEligibleError{Err: newError(KindNotEligible, message)}
}

func (e *NotEligibleError) Error() string  { return e.Err.Error() }
func (e *NotEligibleError) Unwrap() error  { return e.Err.Unwrap() }
func (e *NotEligibleError) Is(t error) bool { return e.Err.Is(t) }

// TooFewTxsError reports that the assembler's minTxsPerBlock gate rejected
// the build.
type TooFewTxsError struct {
	Err  *Error
	Got  int
	Want int
}

func newTooFewTxs(got, want int) *TooFewTxsError {
	return &TooFewTxsError{
		Err:  newError(KindTooFewTxs, fmt.Sprintf("got %d txs, want at least %d", got, want)),
		Got:  got,
		Want: want,
	}
}

func (e *TooFewTxsError) Error() string  { return e.Err.Error() }
func (e *TooFewTxsError) Unwrap() error  { return e.Err.Unwrap() }
func (e *TooFewTxsError) Is(t error) bool { return e.Err.Is(t) }

// ConfigError reports that TimeTable derivation failed under the proposed
// configuration; the previous config and table remain active.
type ConfigError struct {
	Err *Error
}

func newConfigError(message string) *ConfigError {
	return &ConfigError{Err: newError(KindConfigError, message)}
}

func (e *ConfigError) Error() string  { return e.Err.Error() }
func (e *ConfigError) Unwrap() error  { return e.Err.Unwrap() }
func (e *ConfigError) Is(t error) bool { return e.Err.Is(t) }

// PublisherRejectedError reports that validateForSubmission or propose
// returned a falsy/failing result.
type PublisherRejectedError struct {
	Err *Error
}

func newPublisherRejected(message string) *PublisherRejectedError {
	return &PublisherRejectedError{Err: newError(KindPublisherRejected, message)}
}

func (e *PublisherRejectedError) Error() string  { return e.Err.Error() }
func (e *PublisherRejectedError) Unwrap() error  { return e.Err.Unwrap() }
func (e *PublisherRejectedError) Is(t error) bool { return e.Err.Is(t) }

// ClaimFailedError reports that claiming an epoch-proof-quote right failed.
type ClaimFailedError struct {
	Err *Error
}

func newClaimFailed(message string) *ClaimFailedError {
	return &ClaimFailedError{Err: newError(KindClaimFailed, message)}
}

func (e *ClaimFailedError) Error() string  { return e.Err.Error() }
func (e *ClaimFailedError) Unwrap() error  { return e.Err.Unwrap() }
func (e *ClaimFailedError) Is(t error) bool { return e.Err.Is(t) }

// ProposerMismatchError reports that the publisher's canProposeAtNextEthBlock
// response referred to a different L1 block number than expected.
type ProposerMismatchError struct {
	*NotEligibleError
	Expected uint64
	Got      uint64
}

func newProposerMismatch(expected, got uint64) *ProposerMismatchError {
	return &ProposerMismatchError{
		NotEligibleError: newNotEligible(fmt.Sprintf("proposer mismatch: expected block %d, publisher returned %d", expected, got)),
		Expected:         expected,
		Got:              got,
	}
}
