package sequencer

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// tickIDKey is the context key the work loop stamps each tick with, so
// every collaborator call made during that tick can log and trace under
// the same correlation ID (SPEC_FULL.md DOMAIN STACK, uuid/errgroup/otel).
type tickIDKey struct{}

// withTickID attaches id to ctx for the duration of one tick.
func withTickID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, tickIDKey{}, id)
}

// tickIDFromContext returns the tick ID stamped by withTickID, or "" if ctx
// carries none (e.g. in unit tests that call a component directly).
func tickIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(tickIDKey{}).(string)
	return id
}

// loggerWithTickID enriches log with the tick ID carried on ctx, if any, so
// every log line emitted while handling that tick can be correlated.
func loggerWithTickID(ctx context.Context, log zerolog.Logger) zerolog.Logger {
	if id := tickIDFromContext(ctx); id != "" {
		return log.With().Str("tick_id", id).Logger()
	}
	return log
}

// tracedTransition runs a restricted phase transition inside a child span
// of the tick's root span, tagging it with phase/slot attributes and
// recording SequencerTooSlow as a span event (a WARN, not a span error)
// rather than as a failed span (spec.md §2 Component I; SPEC_FULL.md
// DOMAIN STACK otel section).
func tracedTransition(ctx context.Context, phase Phase, slot SlotId, set func() error) error {
	ctx, span := tracer.Start(ctx, "sequencer.phase."+phase.String())
	defer span.End()

	span.SetAttributes(
		attribute.String("phase", phase.String()),
		attribute.Int64("slot", int64(slot)),
	)

	err := set()
	if err == nil {
		span.SetAttributes(attribute.String("outcome", "ok"))
		return nil
	}

	var tooSlow *SequencerTooSlowError
	if errors.As(err, &tooSlow) {
		span.AddEvent("sequencer_too_slow", trace.WithAttributes(
			attribute.String("current_phase", tooSlow.CurrentPhase.String()),
			attribute.String("target_phase", tooSlow.TargetPhase.String()),
			attribute.Float64("deadline", tooSlow.Deadline),
			attribute.Float64("actual", tooSlow.ActualTime),
		))
		span.SetAttributes(attribute.String("outcome", "too_slow"))
		return err
	}

	span.SetAttributes(attribute.String("outcome", "error"))
	return err
}

// newCorrelationID generates a UUID used as a tick ID or a proof-quote
// claim ID (SPEC_FULL.md DOMAIN STACK).
func newCorrelationID() string {
	return uuid.NewString()
}
