package sequencer

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("sequencer")

// WorkLoop runs one tick of the sequencer pipeline under a span tracer,
// catching SequencerTooSlow as a warning, NotEligible at debug, and
// everything else as an error, and always resetting the phase to Idle
// (spec.md §4.H).
type WorkLoop struct {
	sm              *StateMachine
	syncGate        *SyncGate
	proposerCheck   *ProposerCheck
	assembler       *BlockAssembler
	attestations    *AttestationCollector
	proofQuotes     *ProofQuoteBidder
	publisher       Publisher
	l2BlockSource   L2BlockSource
	txPool          TxPool
	globalBuilder   GlobalVariableBuilder
	now             DateProvider
	metrics         *Metrics

	cfg       func() Config
	constants func() RollupConstants

	flushing bool

	log zerolog.Logger
}

// NewWorkLoop constructs a WorkLoop.
func NewWorkLoop(
	sm *StateMachine,
	syncGate *SyncGate,
	proposerCheck *ProposerCheck,
	assembler *BlockAssembler,
	attestations *AttestationCollector,
	proofQuotes *ProofQuoteBidder,
	publisher Publisher,
	l2BlockSource L2BlockSource,
	txPool TxPool,
	globalBuilder GlobalVariableBuilder,
	now DateProvider,
	metrics *Metrics,
	cfg func() Config,
	constants func() RollupConstants,
	log zerolog.Logger,
) *WorkLoop {
	return &WorkLoop{
		sm:            sm,
		syncGate:      syncGate,
		proposerCheck: proposerCheck,
		assembler:     assembler,
		attestations:  attestations,
		proofQuotes:   proofQuotes,
		publisher:     publisher,
		l2BlockSource: l2BlockSource,
		txPool:        txPool,
		globalBuilder: globalBuilder,
		now:           now,
		metrics:       metrics,
		cfg:           cfg,
		constants:     constants,
		log:           log.With().Str("component", "work-loop").Logger(),
	}
}

// SetFlushing arms the next tick to build even with too few pending txs.
func (w *WorkLoop) SetFlushing(flushing bool) {
	w.flushing = flushing
}

// IsFlushing reports whether the flush flag is currently armed.
func (w *WorkLoop) IsFlushing() bool {
	return w.flushing
}

// Tick runs a single iteration of the pipeline. It never returns a
// *SequencerTooSlowError to the caller: that case is logged as a warning
// and swallowed, matching the "work" wrapper's finally-driven phase reset
// described in spec.md §4.H/§7.
//
// Every tick is tagged with a UUID that becomes the root span's tick ID
// and is threaded through every log line emitted while handling it, and
// each restricted phase transition opens its own child span (SPEC_FULL.md
// DOMAIN STACK).
func (w *WorkLoop) Tick(ctx context.Context) error {
	tickID := newCorrelationID()
	ctx = withTickID(ctx, tickID)
	log := loggerWithTickID(ctx, w.log)

	ctx, span := tracer.Start(ctx, "sequencer.tick")
	span.SetAttributes(attribute.String("tick.id", tickID))
	defer span.End()

	err := w.doRealWork(ctx)

	// finally: always reset to Idle, regardless of outcome.
	if setErr := w.sm.Set(PhaseIdle, 0, true); setErr != nil {
		log.Error().Err(setErr).Msg("failed to reset phase to idle")
	}

	if err == nil {
		span.SetAttributes(attribute.String("outcome", "ok"))
		return nil
	}

	var tooSlow *SequencerTooSlowError
	if errors.As(err, &tooSlow) {
		span.SetAttributes(attribute.String("outcome", "too_slow"))
		span.AddEvent("sequencer_too_slow", trace.WithAttributes(
			attribute.String("current_phase", tooSlow.CurrentPhase.String()),
			attribute.String("target_phase", tooSlow.TargetPhase.String()),
			attribute.Float64("deadline", tooSlow.Deadline),
			attribute.Float64("actual", tooSlow.ActualTime),
		))
		log.Warn().
			Str("current_phase", tooSlow.CurrentPhase.String()).
			Str("target_phase", tooSlow.TargetPhase.String()).
			Float64("deadline", tooSlow.Deadline).
			Float64("actual", tooSlow.ActualTime).
			Msg("sequencer too slow, aborting tick")
		return nil
	}

	// Matched on Kind so *ProposerMismatchError, which carries
	// KindNotEligible through its embedded *NotEligibleError, is routed here too.
	if errors.Is(err, &Error{Kind: KindNotEligible}) {
		span.SetAttributes(attribute.String("outcome", "not_eligible"))
		log.Debug().Err(err).Msg("not eligible to propose this tick")
		return nil
	}

	span.SetAttributes(attribute.String("outcome", "error"))
	log.Error().Err(err).Msg("sequencer tick failed")
	return err
}

func (w *WorkLoop) doRealWork(ctx context.Context) error {
	if err := w.sm.Set(PhaseSynchronizing, 0, false); err != nil {
		return err
	}

	synced, err := w.syncGate.Synced(ctx)
	if err != nil {
		return err
	}
	if !synced {
		return nil
	}

	if err := w.sm.Set(PhaseProposerCheck, 0, false); err != nil {
		return err
	}

	tip, err := w.l2BlockSource.GetLatestBlock(ctx)
	if err != nil {
		return err
	}

	var nextBlockNumber uint64 = 1
	tipArchive := GenesisArchiveRoot
	if tip != nil {
		nextBlockNumber = tip.BlockNumber + 1
		tipArchive = tip.Archive
	}

	slot, err := w.proposerCheck.MayPropose(ctx, tipArchive, nextBlockNumber)
	if err != nil {
		return err
	}

	cfg := w.cfg()

	globals, err := w.globalBuilder.BuildGlobalVariables(ctx, nextBlockNumber, cfg.Coinbase, cfg.FeeRecipient, slot)
	if err != nil {
		return err
	}

	// Fire-and-forget governance and slashing votes, run as sibling
	// goroutines coordinated by an errgroup.Group; the group is awaited
	// off a detached goroutine so the tick never blocks on it (spec.md §5).
	w.dispatchVotes(ctx, slot)

	pendingCount, err := w.txPool.GetPendingTxCount(ctx)
	if err != nil {
		return err
	}

	if pendingCount < cfg.MinTxsPerBlock && !w.flushing {
		return w.proofQuotes.ClaimIfAvailable(ctx, slot)
	}

	if err := tracedTransition(ctx, PhaseInitializingProposal, slot, func() error {
		return w.sm.Set(PhaseInitializingProposal, slot, false)
	}); err != nil {
		return err
	}

	historicalHeader := ProposalHeader{
		ParentArchive: tipArchive,
		BlockNumber:   nextBlockNumber - 1,
	}

	proposalHeader := ProposalHeader{
		ParentArchive: tipArchive,
		BlockNumber:   nextBlockNumber,
		Slot:          slot,
		Globals:       globals,
		TxsHash:       common.Hash{},
		OutHash:       common.Hash{},
	}

	return w.buildBlockAndAttemptToPublish(ctx, slot, proposalHeader, historicalHeader)
}

// dispatchVotes dispatches the governance and slashing votes as sibling
// goroutines coordinated by an errgroup.Group. The group is detached: a
// background goroutine awaits it so individual vote failures are logged
// without ever joining the main tick's error (spec.md §5).
func (w *WorkLoop) dispatchVotes(ctx context.Context, slot SlotId) {
	voteCtx := context.WithoutCancel(ctx)

	var group errgroup.Group
	group.Go(func() error {
		w.castVoteDetached(voteCtx, slot, VoteGovernance)
		return nil
	})
	group.Go(func() error {
		w.castVoteDetached(voteCtx, slot, VoteSlashing)
		return nil
	})

	go func() {
		_ = group.Wait()
	}()
}

func (w *WorkLoop) castVoteDetached(ctx context.Context, slot SlotId, kind VoteKind) {
	log := loggerWithTickID(ctx, w.log)
	if err := w.publisher.CastVote(ctx, slot, w.now.Now(), kind); err != nil {
		log.Debug().Err(err).Str("kind", kind.String()).Msg("cast vote failed")
	}
}

// buildBlockAndAttemptToPublish builds the block, validates it both before
// and after the build, collects attestations, optionally attaches a proof
// quote, and publishes. Any partial failure must propagate so the tick
// aborts cleanly; fork discipline inside the assembler handles releasing
// world-state resources regardless of outcome.
func (w *WorkLoop) buildBlockAndAttemptToPublish(ctx context.Context, slot SlotId, proposalHeader, historicalHeader ProposalHeader) error {
	if err := w.publisher.ValidateBlockForSubmission(ctx, proposalHeader); err != nil {
		rejected := newPublisherRejected("pre-build validation failed")
		rejected.Err.Cause = err
		return rejected
	}

	log := loggerWithTickID(ctx, w.log)

	if err := tracedTransition(ctx, PhaseCreatingBlock, slot, func() error {
		return w.sm.Set(PhaseCreatingBlock, slot, false)
	}); err != nil {
		return err
	}

	var quoteHandle quoteResult
	quoteGroup, quoteCtx := errgroup.WithContext(ctx)
	quoteGroup.Go(func() error {
		quote, err := w.proofQuotes.SelectQuote(quoteCtx, slot)
		quoteHandle = quoteResult{quote: quote, err: err}
		return nil
	})

	constants := w.constants()
	slotStart := constants.L1GenesisTime.Add(time.Duration(slot) * constants.SlotDuration)

	result, err := w.assembler.BuildBlock(ctx, slotStart, proposalHeader.BlockNumber, proposalHeader.Globals, historicalHeader, w.flushing, BuildOptions{})
	w.flushing = false
	if err != nil {
		w.metrics.FailedBlock()
		return err
	}

	w.metrics.BlockBuilderTreeInsertions(result.BlockBuilderTreeInsertMs * 1000)

	finalHeader := result.Block.Header
	finalHeader.ParentArchive = proposalHeader.ParentArchive
	finalHeader.Slot = slot

	w.metrics.StartCollectingAttestationsTimer()
	attResult, err := w.attestations.Collect(ctx, slot, finalHeader, finalHeader.ArchiveRoot, result.Block.TxHashes)
	w.metrics.StopCollectingAttestationsTimer()
	if err != nil {
		var tooSlow *SequencerTooSlowError
		if !errors.As(err, &tooSlow) {
			w.metrics.FailedBlock()
		}
		return err
	}

	var quote *EpochProofQuote
	_ = quoteGroup.Wait() // quoteHandle.err carries the failure; the tick still proceeds without a quote
	if quoteHandle.err != nil {
		log.Warn().Err(quoteHandle.err).Msg("proof quote selection failed, publishing without it")
	} else if quoteHandle.quote != nil {
		claimID := newCorrelationID()
		log.Info().
			Str("claim_id", claimID).
			Uint64("epoch", quoteHandle.quote.EpochToProve).
			Uint32("fee_basis_points", quoteHandle.quote.BasisPointFee).
			Msg("attaching epoch proof quote to block publication")
		quote = quoteHandle.quote
	}

	if err := tracedTransition(ctx, PhasePublishingBlock, slot, func() error {
		return w.sm.Set(PhasePublishingBlock, slot, false)
	}); err != nil {
		return err
	}

	if err := w.publisher.ValidateBlockForSubmission(ctx, finalHeader); err != nil {
		w.metrics.FailedBlock()
		rejected := newPublisherRejected("post-build validation failed")
		rejected.Err.Cause = err
		return rejected
	}

	published, err := w.publisher.ProposeL2Block(ctx, result.Block, attResult.Attestations, result.Block.TxHashes, quote)
	if err != nil {
		w.metrics.FailedBlock()
		return err
	}
	if !published {
		w.metrics.FailedBlock()
		return newPublisherRejected("publisher rejected proposeL2Block")
	}

	w.metrics.PublishedBlock(w.now.Now().Sub(result.BlockBuildingTimerStart))
	return nil
}

type quoteResult struct {
	quote *EpochProofQuote
	err   error
}
