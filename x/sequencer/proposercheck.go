package sequencer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

// ProposerCheck asks the publisher whether this node may propose on top of
// a given archive root at the next L1 block (spec.md §4.D).
type ProposerCheck struct {
	publisher Publisher
	log       zerolog.Logger
}

// NewProposerCheck constructs a ProposerCheck.
func NewProposerCheck(publisher Publisher, log zerolog.Logger) *ProposerCheck {
	return &ProposerCheck{
		publisher: publisher,
		log:       log.With().Str("component", "proposer-check").Logger(),
	}
}

// MayPropose returns the L2 slot assigned to this node if it may propose on
// top of tipArchive at the next L1 block. expectedBlockNumber is the
// locally derived next block number (tip + 1); a mismatch against what the
// publisher returns indicates a racing reorg and is surfaced as
// *ProposerMismatchError. Any underlying RPC failure is wrapped as
// *NotEligibleError — the caller logs at debug and skips the tick.
func (p *ProposerCheck) MayPropose(ctx context.Context, tipArchive common.Hash, expectedBlockNumber uint64) (SlotId, error) {
	slot, blockNumber, err := p.publisher.CanProposeAtNextEthBlock(ctx, tipArchive)
	if err != nil {
		tickLog := loggerWithTickID(ctx, p.log)
		tickLog.Debug().Err(err).Msg("canProposeAtNextEthBlock failed")
		notEligible := newNotEligible("canProposeAtNextEthBlock failed")
		notEligible.Err.withCause(err)
		return 0, notEligible
	}

	if blockNumber != expectedBlockNumber {
		return 0, newProposerMismatch(expectedBlockNumber, blockNumber)
	}

	return slot, nil
}
