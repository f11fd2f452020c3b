package sequencer

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
)

// ProofQuoteBidder fetches epoch-proof quotes for the claimable prior
// epoch, filters by validity, picks the lowest fee, and claims it via the
// publisher — either directly or by attaching it to the block about to be
// published (spec.md §4.G).
type ProofQuoteBidder struct {
	publisher Publisher
	txPool    TxPool
	log       zerolog.Logger
}

// NewProofQuoteBidder constructs a ProofQuoteBidder.
func NewProofQuoteBidder(publisher Publisher, txPool TxPool, log zerolog.Logger) *ProofQuoteBidder {
	return &ProofQuoteBidder{
		publisher: publisher,
		txPool:    txPool,
		log:       log.With().Str("component", "proof-quote-bidder").Logger(),
	}
}

// SelectQuote runs steps 1-4: it fetches the claimable epoch, collects and
// filters candidate quotes, and returns the cheapest valid one. A nil
// result with a nil error means there is nothing to claim this tick.
func (b *ProofQuoteBidder) SelectQuote(ctx context.Context, currentSlot SlotId) (*EpochProofQuote, error) {
	epoch, ok, err := b.publisher.GetClaimableEpoch(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	quotes, err := b.txPool.GetEpochProofQuotes(ctx, epoch)
	if err != nil {
		return nil, err
	}

	var candidates []EpochProofQuote
	for _, q := range quotes {
		if q.EpochToProve != epoch {
			continue
		}
		if q.ValidUntilSlot < currentSlot {
			continue
		}
		valid, err := b.publisher.ValidateProofQuote(ctx, q)
		if err != nil {
			tickLog := loggerWithTickID(ctx, b.log)
			tickLog.Debug().Err(err).Uint64("epoch", epoch).Msg("proof quote validation errored, discarding")
			continue
		}
		if !valid {
			continue
		}
		candidates = append(candidates, q)
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].BasisPointFee < candidates[j].BasisPointFee
	})

	best := candidates[0]
	return &best, nil
}

// ClaimIfAvailable implements the no-block-being-built path: select a
// quote and, if found, claim it directly via the publisher. Used when the
// tick skips building because the pool has too few txs (spec.md §4.H
// step 8). Each claim attempt is tagged with its own UUID for idempotency
// logging (SPEC_FULL.md DOMAIN STACK), distinct from the tick ID.
func (b *ProofQuoteBidder) ClaimIfAvailable(ctx context.Context, currentSlot SlotId) error {
	quote, err := b.SelectQuote(ctx, currentSlot)
	if err != nil {
		return err
	}
	if quote == nil {
		return nil
	}

	claimID := newCorrelationID()
	log := loggerWithTickID(ctx, b.log).With().
		Str("claim_id", claimID).
		Uint64("epoch", quote.EpochToProve).
		Uint32("fee_basis_points", quote.BasisPointFee).
		Logger()
	log.Debug().Msg("attempting epoch proof right claim")

	claimed, err := b.publisher.ClaimEpochProofRight(ctx, *quote)
	if err != nil {
		log.Warn().Err(err).Msg("epoch proof right claim errored")
		return newClaimFailed(err.Error())
	}
	if !claimed {
		log.Warn().Msg("publisher rejected epoch proof right claim")
		return newClaimFailed("publisher rejected epoch proof right claim")
	}
	log.Info().Msg("epoch proof right claimed")
	return nil
}
