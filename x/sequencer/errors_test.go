package sequencer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// errorIsKind reports whether err's Kind (found by walking the *Error
// chain) equals kind. Used where embedding makes a target-typed
// errors.As brittle but the Kind tag is the thing under test.
func errorIsKind(err error, kind Kind) bool {
	return errors.Is(err, &Error{Kind: kind})
}

func TestErrorIsMatchesOnKindAlone(t *testing.T) {
	t.Parallel()

	err := newTooFewTxs(2, 5)
	require.True(t, errors.Is(err, &Error{Kind: KindTooFewTxs}))
	require.False(t, errors.Is(err, &Error{Kind: KindConfigError}))
}

func TestErrorUnwrapExposesCause(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("rpc timeout")
	e := newError(KindClaimFailed, "claim failed").withCause(cause)
	require.ErrorIs(t, e, cause)
}

func TestSequencerTooSlowErrorMessage(t *testing.T) {
	t.Parallel()

	err := newSequencerTooSlow(PhaseIdle, PhaseCreatingBlock, 3.0, 5.123)
	require.Contains(t, err.Error(), "idle")
	require.Contains(t, err.Error(), "creating-block")
	require.True(t, errorIsKind(err, KindTooSlow))
}
